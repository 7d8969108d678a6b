package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int               `toml:"version"`
	Entries map[string]string `toml:"entries"`
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported store schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}
