package config

import (
	"encoding/json"
	"testing"
)

func TestGenerateSchema(t *testing.T) {
	out, err := GenerateSchema()
	if err != nil {
		t.Fatalf("GenerateSchema failed: %v", err)
	}

	var schema struct {
		Title      string                     `json:"title"`
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if err := json.Unmarshal(out, &schema); err != nil {
		t.Fatalf("Schema is not valid JSON: %v", err)
	}

	if schema.Title != "tokenmig Configuration" {
		t.Errorf("Unexpected title %q", schema.Title)
	}
	for _, section := range []string{"logging", "migration", "namespace", "catalog", "metrics"} {
		if _, ok := schema.Properties[section]; !ok {
			t.Errorf("Expected section %q in schema properties", section)
		}
	}
	if len(schema.Required) != 0 {
		t.Errorf("Expected no required sections, got %v", schema.Required)
	}

	var migration struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(schema.Properties["migration"], &migration); err != nil {
		t.Fatalf("Failed to decode migration section: %v", err)
	}
	for _, key := range []string{"source", "destination", "dir_mode", "max_rate"} {
		if _, ok := migration.Properties[key]; !ok {
			t.Errorf("Expected key %q in migration schema", key)
		}
	}
}
