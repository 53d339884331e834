package config

import "fmt"

// ConfigParseError reports a missing or malformed key in a provider's config
type ConfigParseError struct {
	Provider string
	Key      string
	Err      error
}

func (e *ConfigParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("provider %s: invalid config: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("provider %s: invalid config key %q: %v", e.Provider, e.Key, e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

func parseError(provider, key, format string, args ...any) *ConfigParseError {
	return &ConfigParseError{
		Provider: provider,
		Key:      key,
		Err:      fmt.Errorf(format, args...),
	}
}
