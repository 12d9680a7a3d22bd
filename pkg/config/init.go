package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const sampleHeader = `# tokenmig Configuration File
#
# Every key can be overridden with an environment variable: upper-case the
# key, replace dots with underscores and prefix TOKENMIG_, e.g.
#   TOKENMIG_NAMESPACE_CHIMERA_PASSWORD=secret
# Variables may also be placed in a .env file in the working directory.
#
# migration.tokens limits the run to the listed space tokens; leave it empty
# to migrate every token. migration.direction is forward (flat layout to one
# directory per token) or reverse.
#
# namespace.type: chimera | badger | memory
# catalog.type:   postgres | sqlite

`

// InitConfig writes a sample configuration file to the default location.
//
// Returns the path of the written file. Without force, an existing file is
// an error.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content, err := GenerateSample()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold database passwords
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateSample renders the default configuration as commented YAML.
func GenerateSample() ([]byte, error) {
	cfg := GetDefaultConfig()

	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode sample config: %w", err)
	}

	// Modes read better in octal
	if node := lookupNode(&doc, "migration", "dir_mode"); node != nil {
		node.Value = fmt.Sprintf("0%o", cfg.Migration.DirMode)
	}

	var buf bytes.Buffer
	buf.WriteString(sampleHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to encode sample config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode sample config: %w", err)
	}

	return buf.Bytes(), nil
}

// lookupNode follows a path of mapping keys from node.
func lookupNode(node *yaml.Node, keys ...string) *yaml.Node {
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	for _, key := range keys {
		if node.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			return nil
		}
		node = next
	}
	return node
}
