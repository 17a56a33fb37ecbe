package signatures

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader loads signature sets from YAML files
type Loader struct {
	signaturesPath string
}

// NewLoader creates a new signature loader
func NewLoader(signaturesPath string) *Loader {
	return &Loader{
		signaturesPath: signaturesPath,
	}
}

// Load returns the built-in defaults merged with any YAML files found
// under the signatures directory. A missing directory is not an error.
func (l *Loader) Load() (*Set, error) {
	set := Defaults()

	if l.signaturesPath != "" {
		if _, err := os.Stat(l.signaturesPath); err == nil {
			err := filepath.Walk(l.signaturesPath, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() || (filepath.Ext(path) != ".yaml" && filepath.Ext(path) != ".yml") {
					return nil
				}
				if err := l.loadFile(path, set); err != nil {
					return fmt.Errorf("failed to load %s: %w", path, err)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	if err := set.Compile(); err != nil {
		return nil, err
	}

	return set, nil
}

// loadFile merges one YAML signature file into the set
func (l *Loader) loadFile(path string, set *Set) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file Set
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	set.Suspicious = append(set.Suspicious, file.Suspicious...)
	set.Packers = append(set.Packers, file.Packers...)

	return nil
}
