package scraper

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sjsage522/cafe24worker/pkg/errors"
)

// LoadInputs reads product URLs from a CSV (requires a "url" column) or a
// JSON document (a list of strings or objects with a "url" key). An
// unsupported extension fails before any network activity.
func LoadInputs(path string) ([]ProductInput, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".json":
		return loadJSON(path)
	default:
		return nil, errors.NewInput(fmt.Sprintf("unsupported input format: %s", filepath.Ext(path)), nil)
	}
}

func loadCSV(path string) ([]ProductInput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInput("failed to open input file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.NewInput("failed to read CSV header", err)
	}

	urlColumn := -1
	for idx, name := range header {
		if strings.TrimSpace(strings.ToLower(name)) == "url" {
			urlColumn = idx
			break
		}
	}
	if urlColumn < 0 {
		return nil, errors.NewInput("CSV must contain a 'url' column", nil)
	}

	var inputs []ProductInput
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewInput("failed to read CSV row", err)
		}
		if urlColumn >= len(row) {
			continue
		}
		url := strings.TrimSpace(row[urlColumn])
		if url == "" {
			continue
		}
		inputs = append(inputs, ProductInput{URL: url})
	}
	return inputs, nil
}

func loadJSON(path string) ([]ProductInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInput("failed to open input file", err)
	}

	var entries []any
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.NewInput("JSON input must be a list of URLs or objects with 'url'", err)
	}

	var inputs []ProductInput
	for _, entry := range entries {
		url := ""
		switch value := entry.(type) {
		case string:
			url = value
		case map[string]any:
			if raw, ok := value["url"].(string); ok {
				url = raw
			}
		}
		url = strings.TrimSpace(url)
		if url != "" {
			inputs = append(inputs, ProductInput{URL: url})
		}
	}
	return inputs, nil
}

// DedupeInputs removes repeated URLs by exact string match, preserving
// first-seen order
func DedupeInputs(inputs []ProductInput) []ProductInput {
	seen := make(map[string]struct{}, len(inputs))
	deduped := make([]ProductInput, 0, len(inputs))
	for _, input := range inputs {
		if _, ok := seen[input.URL]; ok {
			continue
		}
		seen[input.URL] = struct{}{}
		deduped = append(deduped, input)
	}
	return deduped
}
