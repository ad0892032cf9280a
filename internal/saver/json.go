package saver

import (
	"encoding/json"
	"os"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

// JSONSaver stores tables as an indented JSON array; absent values are null.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) SavePrices(rows []model.PriceBar, path string) error {
	return writeJSON(path, rows)
}

func (JSONSaver) SaveFundamentals(rows []model.FundamentalsRecord, path string) error {
	return writeJSON(path, rows)
}

func (JSONSaver) LoadPrices(path string) ([]model.PriceBar, error) {
	return readJSON[model.PriceBar](path)
}

func (JSONSaver) LoadFundamentals(path string) ([]model.FundamentalsRecord, error) {
	return readJSON[model.FundamentalsRecord](path)
}

func writeJSON[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return err
	}
	return f.Close()
}

func readJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
