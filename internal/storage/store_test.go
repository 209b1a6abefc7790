package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kvasudev/eqmd/internal/md"
	"github.com/kvasudev/eqmd/internal/protocol"
	"github.com/kvasudev/eqmd/internal/schedule"
)

func sampleResult(t *testing.T) *protocol.Result {
	t.Helper()
	stages, err := schedule.Build(50_000)
	if err != nil {
		t.Fatalf("build schedule: %v", err)
	}

	return &protocol.Result{
		Status:            md.StatusCompleted,
		CurrentStage:      2,
		MaxPressure:       50_000,
		BarostatFrequency: 50,
		Reports: []protocol.StageReport{
			{
				Stage: stages[0],
				State: md.State{Temperature: 598.2, Pressure: 12.5, Volume: 180.0, PotentialEnergy: -950.1, KineticEnergy: 820.4},
			},
			{
				Stage:    stages[2],
				State:    md.State{Temperature: 301.7, Pressure: 988.2, Volume: 175.2, PotentialEnergy: -1100.3, KineticEnergy: 410.9},
				Warnings: []string{"pressure 988.2 bar is 11.8 bar off target 1000.0 bar"},
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	runID, err := st.Save("lj", sampleResult(t))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.ID != runID {
		t.Errorf("expected id %s, got %s", runID, meta.ID)
	}
	if meta.Engine != "lj" {
		t.Errorf("expected engine lj, got %s", meta.Engine)
	}
	if meta.Status != "completed" || meta.CurrentStage != 2 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Warnings != 1 {
		t.Errorf("expected 1 warning, got %d", meta.Warnings)
	}

	rows, err := st.LoadStages(runID)
	if err != nil {
		t.Fatalf("load stages: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if rows[0].Name != "md1" || rows[0].Ensemble != "NVT" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[0].TargetPressure != 0 {
		t.Errorf("NVT row should have no pressure target, got %g", rows[0].TargetPressure)
	}
	if rows[1].Name != "md3" || rows[1].Ensemble != "NPT" {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
	if rows[1].TargetPressure != 1000 {
		t.Errorf("expected target 1000 bar, got %g", rows[1].TargetPressure)
	}
	if rows[1].Warnings == "" {
		t.Error("expected warning text on second row")
	}
	if rows[1].Pressure != 988.2 {
		t.Errorf("expected observed pressure 988.2, got %g", rows[1].Pressure)
	}
}

func TestListEmptyAndPopulated(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := st.Save("lj", sampleResult(t)); err != nil {
		t.Fatalf("save: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
}

func TestExportJSONToFile(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	runID, err := st.Save("lj", sampleResult(t))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rows, err := st.LoadStages(runID)
	if err != nil {
		t.Fatalf("load stages: %v", err)
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := ExportJSON(path, meta, rows); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var exported ExportData
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if exported.ID != runID || exported.Status != "completed" {
		t.Errorf("unexpected export metadata: %+v", exported)
	}
	if len(exported.Stages) != 2 {
		t.Errorf("expected 2 stages, got %d", len(exported.Stages))
	}
}

func TestLoadMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("eq_0"); err == nil {
		t.Error("expected error for missing run")
	}
	if _, err := st.LoadStages("eq_0"); err == nil {
		t.Error("expected error for missing stage data")
	}
}
