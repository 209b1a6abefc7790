package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kvasudev/eqmd/internal/protocol"
)

// Store persists protocol runs under a base directory, one directory per run
// holding metadata.json and stages.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID                string    `json:"id"`
	Engine            string    `json:"engine"`
	Timestamp         time.Time `json:"timestamp"`
	Status            string    `json:"status"`
	CurrentStage      int       `json:"current_stage"`
	MaxPressure       float64   `json:"max_pressure_bar"`
	BarostatFrequency int       `json:"barostat_frequency"`
	Warnings          int       `json:"warnings"`
}

// StageRow is one line of stages.csv: the stage targets plus the observed
// end-of-stage readback.
type StageRow struct {
	Stage           int
	Name            string
	Ensemble        string
	TargetTemp      float64
	TargetPressure  float64
	Steps           int
	Temperature     float64
	Pressure        float64
	Volume          float64
	PotentialEnergy float64
	KineticEnergy   float64
	Warnings        string
}

func (s *Store) Save(engine string, result *protocol.Result) (string, error) {
	runID := fmt.Sprintf("eq_%d", time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	warnings := 0
	for _, rep := range result.Reports {
		warnings += len(rep.Warnings)
	}

	meta := RunMetadata{
		ID:                runID,
		Engine:            engine,
		Timestamp:         time.Now(),
		Status:            result.Status.String(),
		CurrentStage:      result.CurrentStage,
		MaxPressure:       result.MaxPressure,
		BarostatFrequency: result.BarostatFrequency,
		Warnings:          warnings,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "stages.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{
		"stage", "name", "ensemble", "target_temp_k", "target_pressure_bar",
		"steps", "temp_k", "pressure_bar", "volume", "potential_energy",
		"kinetic_energy", "warnings",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, rep := range result.Reports {
		target := ""
		if rep.Stage.BarostatEnabled() {
			target = strconv.FormatFloat(rep.Stage.Pressure, 'f', 4, 64)
		}
		row := []string{
			strconv.Itoa(rep.Stage.Index),
			rep.Stage.Name,
			rep.Stage.Ensemble.String(),
			strconv.FormatFloat(rep.Stage.Temperature, 'f', 2, 64),
			target,
			strconv.Itoa(rep.Stage.DurationSteps),
			strconv.FormatFloat(rep.State.Temperature, 'f', 4, 64),
			strconv.FormatFloat(rep.State.Pressure, 'f', 4, 64),
			strconv.FormatFloat(rep.State.Volume, 'f', 6, 64),
			strconv.FormatFloat(rep.State.PotentialEnergy, 'f', 6, 64),
			strconv.FormatFloat(rep.State.KineticEnergy, 'f', 6, 64),
			strings.Join(rep.Warnings, "; "),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadStages(runID string) ([]StageRow, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "stages.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([]StageRow, 0, len(records))
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 12 {
			continue
		}

		stage, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}

		row := StageRow{
			Stage:    stage,
			Name:     rec[1],
			Ensemble: rec[2],
			Warnings: rec[11],
		}
		row.TargetTemp, _ = strconv.ParseFloat(rec[3], 64)
		if rec[4] != "" {
			row.TargetPressure, _ = strconv.ParseFloat(rec[4], 64)
		}
		row.Steps, _ = strconv.Atoi(rec[5])
		row.Temperature, _ = strconv.ParseFloat(rec[6], 64)
		row.Pressure, _ = strconv.ParseFloat(rec[7], 64)
		row.Volume, _ = strconv.ParseFloat(rec[8], 64)
		row.PotentialEnergy, _ = strconv.ParseFloat(rec[9], 64)
		row.KineticEnergy, _ = strconv.ParseFloat(rec[10], 64)

		rows = append(rows, row)
	}

	return rows, nil
}
