package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/kvasudev/eqmd/internal/config"
	"github.com/kvasudev/eqmd/internal/lj"
	"github.com/kvasudev/eqmd/internal/logging"
	"github.com/kvasudev/eqmd/internal/protocol"
	"github.com/kvasudev/eqmd/internal/schedule"
	"github.com/kvasudev/eqmd/internal/storage"
	"github.com/kvasudev/eqmd/internal/viz"
)

var (
	dataDir     string
	maxPressure float64
	frequency   int
	stepScale   int
	configFile  string
	preset      string
	particles   int
	density     float64
	seed        int64
	noSave      bool
	verbose     bool
	outFile     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "eqmd",
		Short: "21-stage MD equilibration protocol driver",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".eqmd", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the equilibration protocol on the built-in engine",
		RunE:  runProtocol,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the protocol with a live terminal view",
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "print the stage table",
		RunE:  printSchedule,
	}
	scheduleCmd.Flags().Float64Var(&maxPressure, "max-pressure", config.DefaultMaxPressure, "maximum pressure (bar)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot per-stage traces of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export per-stage data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "write to a file instead of stdout")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, scheduleCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&maxPressure, "max-pressure", config.DefaultMaxPressure, "maximum pressure (bar)")
	cmd.Flags().IntVar(&frequency, "frequency", protocol.DefaultBarostatFrequency, "barostat frequency (steps)")
	cmd.Flags().IntVar(&stepScale, "step-scale", 1, "divide stage durations by this factor")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&particles, "particles", config.DefaultParticles, "engine particle count")
	cmd.Flags().Float64Var(&density, "density", config.DefaultDensity, "engine number density (1/nm^3)")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "engine random seed")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the run")
}

// resolveConfig merges preset, config file and flags, flags winning when set.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("max-pressure") {
		cfg.MaxPressure = maxPressure
	}
	if cmd.Flags().Changed("frequency") {
		cfg.BarostatFrequency = frequency
	}
	if cmd.Flags().Changed("step-scale") {
		cfg.StepScale = stepScale
	}
	if cmd.Flags().Changed("particles") {
		cfg.Engine.Particles = particles
	}
	if cmd.Flags().Changed("density") {
		cfg.Engine.Density = density
	}
	if cmd.Flags().Changed("seed") || cfg.Engine.Seed == 0 {
		cfg.Engine.Seed = seed
	}
	if cfg.BarostatFrequency == 0 {
		cfg.BarostatFrequency = protocol.DefaultBarostatFrequency
	}
	if cfg.StepScale == 0 {
		cfg.StepScale = 1
	}
	return cfg, nil
}

func logger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return logging.New(level)
}

func newEngine(cfg *config.Config) *lj.Engine {
	return lj.New(lj.Config{
		Particles:  cfg.Engine.Particles,
		Density:    cfg.Engine.Density,
		Sigma:      cfg.Engine.Sigma,
		Epsilon:    cfg.Engine.Epsilon,
		Cutoff:     cfg.Engine.Cutoff,
		TimestepPs: cfg.Engine.TimestepPs,
		TauPs:      cfg.Engine.TauPs,
		Seed:       cfg.Engine.Seed,
	})
}

func buildStages(cfg *config.Config) ([]schedule.Stage, error) {
	stages, err := schedule.Build(cfg.MaxPressure)
	if err != nil {
		return nil, err
	}
	if cfg.StepScale > 1 {
		for i := range stages {
			steps := stages[i].DurationSteps / cfg.StepScale
			if steps < 1 {
				steps = 1
			}
			stages[i].DurationSteps = steps
		}
	}
	return stages, nil
}

func newMonitor(cfg *config.Config) *protocol.Monitor {
	return protocol.NewMonitor(protocol.MonitorConfig{
		MaxVolumeRatio: cfg.Monitor.MaxVolumeRatio,
		TemperatureTol: cfg.Monitor.TemperatureTol,
		PressureTol:    cfg.Monitor.PressureTol,
	})
}

func saveRun(log *slog.Logger, result *protocol.Result) {
	if noSave || result == nil {
		return
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		log.Error("storage init failed", "err", err)
		return
	}
	runID, err := st.Save("lj", result)
	if err != nil {
		log.Error("saving run failed", "err", err)
		return
	}
	log.Info("run saved", "id", runID)
}

func runProtocol(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log := logger()

	stages, err := buildStages(cfg)
	if err != nil {
		return err
	}

	runner, err := protocol.New(newEngine(cfg), cfg.MaxPressure,
		protocol.WithStages(stages),
		protocol.WithMonitor(newMonitor(cfg)),
		protocol.WithObserver(protocol.LogObserver{Logger: log}),
	)
	if err != nil {
		return err
	}

	// Ctrl-C requests a cooperative stop at the next stage boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := runner.Run(ctx, cfg.BarostatFrequency)
	elapsed := time.Since(start)

	saveRun(log, result)

	if result != nil {
		log.Info("protocol finished",
			"status", result.Status.String(),
			"stages_completed", result.CurrentStage,
			"elapsed", elapsed.Round(time.Millisecond).String(),
		)
		for _, rep := range result.Reports {
			for _, w := range rep.Warnings {
				log.Warn("convergence warning", "stage", rep.Stage.Index, "msg", w)
			}
		}
	}
	return err
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	stages, err := buildStages(cfg)
	if err != nil {
		return err
	}

	engine := newEngine(cfg)
	result, err := viz.Run(stages,
		func(ctx context.Context, obs protocol.Observer) (*protocol.Result, error) {
			runner, rerr := protocol.New(engine, cfg.MaxPressure,
				protocol.WithStages(stages),
				protocol.WithMonitor(newMonitor(cfg)),
				protocol.WithObserver(obs),
			)
			if rerr != nil {
				return nil, rerr
			}
			return runner.Run(ctx, cfg.BarostatFrequency)
		})

	saveRun(logging.NewNop(), result)

	if result != nil {
		fmt.Printf("status: %s (stage %d/%d)\n", result.Status, result.CurrentStage, len(stages))
	}
	return err
}

func printSchedule(cmd *cobra.Command, args []string) error {
	stages, err := schedule.Build(maxPressure)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IDX\tNAME\tENSEMBLE\tTEMP(K)\tPRESSURE(BAR)\tFRACTION\tSTEPS\tTIME(PS)")
	for _, s := range stages {
		pressure, fraction := "-", "-"
		if s.BarostatEnabled() {
			pressure = strconv.FormatFloat(s.Pressure, 'f', 1, 64)
			fraction = strconv.FormatFloat(s.PressureFraction, 'g', 4, 64)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.0f\t%s\t%s\t%d\t%.0f\n",
			s.Index, s.Name, s.Ensemble, s.Temperature, pressure, fraction,
			s.DurationSteps, s.Picoseconds())
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSTATUS\tSTAGE\tMAX_P(BAR)\tFREQ\tWARNINGS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0f\t%d\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Status,
			run.CurrentStage,
			run.MaxPressure,
			run.BarostatFrequency,
			run.Warnings,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadStages(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\nstatus: %s\nstages: %d\n\n", meta.ID, meta.Status, len(rows))

	series := []struct {
		caption string
		value   func(storage.StageRow) float64
	}{
		{"temperature (K)", func(r storage.StageRow) float64 { return r.Temperature }},
		{"pressure (bar)", func(r storage.StageRow) float64 { return r.Pressure }},
		{"volume (nm^3)", func(r storage.StageRow) float64 { return r.Volume }},
		{"potential energy", func(r storage.StageRow) float64 { return r.PotentialEnergy }},
	}

	for _, s := range series {
		data := make([]float64, len(rows))
		for i, row := range rows {
			data[i] = s.value(row)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption+" vs stage"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	rows, err := st.LoadStages(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{
		"stage", "name", "ensemble", "target_temp_k", "target_pressure_bar",
		"steps", "temp_k", "pressure_bar", "volume", "potential_energy",
		"kinetic_energy", "warnings",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		target := ""
		if r.Ensemble == "NPT" {
			target = strconv.FormatFloat(r.TargetPressure, 'f', 4, 64)
		}
		row := []string{
			strconv.Itoa(r.Stage),
			r.Name,
			r.Ensemble,
			strconv.FormatFloat(r.TargetTemp, 'f', 2, 64),
			target,
			strconv.Itoa(r.Steps),
			strconv.FormatFloat(r.Temperature, 'f', 4, 64),
			strconv.FormatFloat(r.Pressure, 'f', 4, 64),
			strconv.FormatFloat(r.Volume, 'f', 6, 64),
			strconv.FormatFloat(r.PotentialEnergy, 'f', 6, 64),
			strconv.FormatFloat(r.KineticEnergy, 'f', 6, 64),
			r.Warnings,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadStages(runID)
	if err != nil {
		return err
	}

	if outFile != "" {
		return storage.ExportJSON(outFile, meta, rows)
	}
	return storage.ExportJSONStdout(meta, rows)
}
