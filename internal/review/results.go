package review

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed results.schema.json
var resultsSchemaJSON []byte

var resultsSchema = gojsonschema.NewBytesLoader(resultsSchemaJSON)

// RecordError marks a stored results record that fails validation. Batch
// callers log it and refetch; they never abort the run over one bad file.
type RecordError struct {
	Path   string
	Detail string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("invalid results record %s: %s", e.Path, e.Detail)
}

// WriteFile persists a results record as indented JSON, creating parent
// directories as needed.
func WriteFile(path string, res *Results) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

// LoadFile reads and validates a stored results record. Schema violations
// come back as a *RecordError so callers can distinguish a corrupt cache
// entry from an I/O failure.
func LoadFile(path string) (*Results, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, err
	}
	return Decode(path, data)
}

// Decode validates raw JSON against the results schema and unmarshals it.
func Decode(path string, data []byte) (*Results, error) {
	verdict, err := gojsonschema.Validate(resultsSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &RecordError{Path: path, Detail: err.Error()}
	}
	if !verdict.Valid() {
		details := make([]string, 0, len(verdict.Errors()))
		for _, desc := range verdict.Errors() {
			details = append(details, desc.String())
		}
		return nil, &RecordError{Path: path, Detail: strings.Join(details, "; ")}
	}

	var res Results
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, &RecordError{Path: path, Detail: err.Error()}
	}
	return &res, nil
}
