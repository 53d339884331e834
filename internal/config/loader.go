package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultConfigDir holds one YAML file per provider, e.g. ~/.ec2-gazua/aws.yml
const DefaultConfigDir = "~/.ec2-gazua"

// ConfigLoader supplies raw config text keyed by provider id
type ConfigLoader interface {
	ReadConfigs() (map[string]string, error)
}

// StaticLoader serves config text from memory
type StaticLoader map[string]string

// ReadConfigs returns a copy of the loader's contents
func (l StaticLoader) ReadConfigs() (map[string]string, error) {
	configs := make(map[string]string, len(l))
	for provider, text := range l {
		configs[provider] = text
	}
	return configs, nil
}

// DirLoader reads every *.yml and *.yaml file in Dir. The provider id is the
// file name without its extension
type DirLoader struct {
	Dir string
}

// ReadConfigs reads the provider files from the loader's directory
func (l DirLoader) ReadConfigs() (map[string]string, error) {
	dir := ExpandHome(l.Dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading config directory %s: %w", dir, err)
	}

	configs := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}

		provider := strings.TrimSuffix(entry.Name(), ext)
		if _, dup := configs[provider]; dup {
			return nil, fmt.Errorf("duplicate config for provider %s in %s", provider, dir)
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", entry.Name(), err)
		}
		configs[provider] = string(content)
	}
	return configs, nil
}

// Load reads raw config text through loader and parses every provider
func Load(loader ConfigLoader) (map[string]*ProviderConfig, error) {
	texts, err := loader.ReadConfigs()
	if err != nil {
		return nil, fmt.Errorf("error reading provider configs: %w", err)
	}
	return LoadText(texts)
}

// LoadText parses config text keyed by provider id. An invalid provider is
// left out of the returned map and its *ConfigParseError is joined into the
// returned error, so callers may still list the valid providers
func LoadText(texts map[string]string) (map[string]*ProviderConfig, error) {
	providers := make([]string, 0, len(texts))
	for provider := range texts {
		providers = append(providers, provider)
	}
	sort.Strings(providers)

	configs := make(map[string]*ProviderConfig, len(texts))
	var errs []error
	for _, provider := range providers {
		cfg, err := Parse(provider, texts[provider])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		configs[provider] = cfg
	}
	return configs, errors.Join(errs...)
}

// ExpandHome replaces a leading ~ with the current user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
