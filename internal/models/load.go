package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRecordFile reads a FailureRecord from a YAML or JSON file.
func LoadRecordFile(path string) (FailureRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FailureRecord{}, fmt.Errorf("reading record file: %w", err)
	}
	return ParseRecord(data)
}

// ParseRecord decodes YAML or JSON bytes into a FailureRecord. Both go
// through the same alias-aware extraction as event payloads.
func ParseRecord(data []byte) (FailureRecord, error) {
	var payload map[string]any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return FailureRecord{}, fmt.Errorf("parsing record: %w", err)
	}
	if payload == nil {
		return FailureRecord{}, fmt.Errorf("parsing record: document is empty")
	}
	return FromPayload(payload)
}
