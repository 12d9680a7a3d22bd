package config

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their configuration key, not their Go name
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	source := path.Clean(cfg.Migration.Source)
	destination := path.Clean(cfg.Migration.Destination)
	if source == destination {
		return fmt.Errorf("migration: source and destination are both %s", source)
	}

	// Backend sections only need checking for the selected type; the
	// factories report anything beyond the required keys.
	switch cfg.Namespace.Type {
	case "chimera":
		if err := requireKeys("namespace.chimera", cfg.Namespace.Chimera, "url", "user", "password"); err != nil {
			return err
		}
	case "badger":
		if err := requireKeys("namespace.badger", cfg.Namespace.Badger, "db_path"); err != nil {
			return err
		}
	}

	switch cfg.Catalog.Type {
	case "postgres":
		if err := requireKeys("catalog.postgres", cfg.Catalog.Postgres, "url", "user", "password"); err != nil {
			return err
		}
	case "sqlite":
		if err := requireKeys("catalog.sqlite", cfg.Catalog.SQLite, "path"); err != nil {
			return err
		}
	}

	return nil
}

// requireKeys checks that every key is present in section and not empty.
func requireKeys(prefix string, section map[string]any, keys ...string) error {
	for _, key := range keys {
		value, ok := section[key]
		if !ok || value == nil {
			return fmt.Errorf("%s.%s: setting not specified", prefix, key)
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s.%s: setting is empty", prefix, key)
		}
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}

	// Return the first validation error with context
	e := validationErrs[0]
	key := strings.TrimPrefix(e.Namespace(), "Config.")
	if e.Tag() == "required" {
		if e.Kind() == reflect.Ptr {
			return fmt.Errorf("%s: setting not specified", key)
		}
		return fmt.Errorf("%s: setting not specified or empty", key)
	}
	return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", key, e.Tag(), e.Value())
}
