package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateSchema returns the JSON schema of the configuration file, for
// editors that validate YAML against a schema.
func GenerateSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		// Keys follow the yaml tags; nothing is required since every
		// section has defaults.
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "tokenmig Configuration"
	schema.Description = "Configuration schema for the tokenmig space token migration tool"

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
