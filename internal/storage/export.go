package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	ID                string     `json:"id"`
	Engine            string     `json:"engine"`
	Status            string     `json:"status"`
	CurrentStage      int        `json:"current_stage"`
	MaxPressure       float64    `json:"max_pressure_bar"`
	BarostatFrequency int        `json:"barostat_frequency"`
	Stages            []StageRow `json:"stages"`
}

func exportJSON(w io.Writer, meta *RunMetadata, stages []StageRow) error {
	data := ExportData{
		ID:                meta.ID,
		Engine:            meta.Engine,
		Status:            meta.Status,
		CurrentStage:      meta.CurrentStage,
		MaxPressure:       meta.MaxPressure,
		BarostatFrequency: meta.BarostatFrequency,
		Stages:            stages,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, meta *RunMetadata, stages []StageRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return exportJSON(file, meta, stages)
}

func ExportJSONStdout(meta *RunMetadata, stages []StageRow) error {
	return exportJSON(os.Stdout, meta, stages)
}
