package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config file keys
const (
	keySSHPath    = "ssh-path"
	keyCredential = "credential"
	keyGroupTag   = "group-tag"
	keyNameTag    = "name-tag"
	keyConnectIP  = "connect-ip"
	keyKeyFile    = "key-file"
	keyUser       = "user"
)

type rawSetting struct {
	Default *string           `yaml:"default"`
	Group   map[string]string `yaml:"group"`
	Name    map[string]string `yaml:"name"`
}

// Parse builds a ProviderConfig from the YAML text of a single provider
// credential, group-tag and name-tag are required. Override sections that are
// omitted fall back to a default-only setting
func Parse(provider, text string) (*ProviderConfig, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ConfigParseError{Provider: provider, Err: err}
	}

	cfg := &ProviderConfig{
		ID:      provider,
		SSHPath: DefaultSSHPath,
	}

	if node, ok := doc[keySSHPath]; ok {
		path, err := decodeString(provider, keySSHPath, &node)
		if err != nil {
			return nil, err
		}
		cfg.SSHPath = path
	}

	credential, err := decodeCredential(provider, doc)
	if err != nil {
		return nil, err
	}
	cfg.Credential = credential

	if cfg.GroupTag, err = requiredString(provider, keyGroupTag, doc); err != nil {
		return nil, err
	}
	if cfg.NameTag, err = requiredString(provider, keyNameTag, doc); err != nil {
		return nil, err
	}

	if cfg.ConnectIP, err = decodeSetting(provider, keyConnectIP, doc, ConnectPublic, validateConnectIP); err != nil {
		return nil, err
	}
	if cfg.KeyFile, err = decodeSetting(provider, keyKeyFile, doc, KeyFileAuto, nil); err != nil {
		return nil, err
	}
	if cfg.User, err = decodeSetting(provider, keyUser, doc, DefaultUser, nil); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decodeCredential(provider string, doc map[string]yaml.Node) (map[string]string, error) {
	node, ok := doc[keyCredential]
	if !ok {
		return nil, parseError(provider, keyCredential, "missing required key")
	}
	if node.Kind != yaml.MappingNode {
		return nil, parseError(provider, keyCredential, "must be a mapping")
	}

	var credential map[string]string
	if err := node.Decode(&credential); err != nil {
		return nil, parseError(provider, keyCredential, "%w", err)
	}
	if len(credential) == 0 {
		return nil, parseError(provider, keyCredential, "must not be empty")
	}
	return credential, nil
}

func requiredString(provider, key string, doc map[string]yaml.Node) (string, error) {
	node, ok := doc[key]
	if !ok {
		return "", parseError(provider, key, "missing required key")
	}
	return decodeString(provider, key, &node)
}

func decodeString(provider, key string, node *yaml.Node) (string, error) {
	if node.Kind != yaml.ScalarNode || node.ShortTag() == "!!null" {
		return "", parseError(provider, key, "must be a string")
	}
	var value string
	if err := node.Decode(&value); err != nil {
		return "", parseError(provider, key, "%w", err)
	}
	if value == "" {
		return "", parseError(provider, key, "must not be empty")
	}
	return value, nil
}

// decodeSetting reads an override section. A bare scalar is shorthand for a
// default with no overrides
func decodeSetting(provider, key string, doc map[string]yaml.Node, fallback string, validate func(string) error) (OverridableSetting, error) {
	node, ok := doc[key]
	if !ok {
		return DefaultOnly(fallback), nil
	}

	var setting OverridableSetting
	switch node.Kind {
	case yaml.ScalarNode:
		value, err := decodeString(provider, key, &node)
		if err != nil {
			return setting, err
		}
		setting = DefaultOnly(value)
	case yaml.MappingNode:
		var raw rawSetting
		if err := node.Decode(&raw); err != nil {
			return setting, parseError(provider, key, "%w", err)
		}
		if raw.Default == nil || *raw.Default == "" {
			return setting, parseError(provider, key, "missing default value")
		}
		setting = DefaultOnly(*raw.Default)
		for group, value := range raw.Group {
			setting.Group[group] = value
		}
		for name, value := range raw.Name {
			setting.Name[name] = value
		}
	default:
		return setting, parseError(provider, key, "must be a mapping with default, group and name")
	}

	if validate != nil {
		if err := validateAll(setting, validate); err != nil {
			return OverridableSetting{}, parseError(provider, key, "%w", err)
		}
	}
	return setting, nil
}

func validateAll(setting OverridableSetting, validate func(string) error) error {
	if err := validate(setting.Default); err != nil {
		return fmt.Errorf("default: %w", err)
	}
	for group, value := range setting.Group {
		if err := validate(value); err != nil {
			return fmt.Errorf("group %s: %w", group, err)
		}
	}
	for name, value := range setting.Name {
		if err := validate(value); err != nil {
			return fmt.Errorf("name %s: %w", name, err)
		}
	}
	return nil
}

func validateConnectIP(value string) error {
	switch value {
	case ConnectPublic, ConnectPrivate:
		return nil
	default:
		return fmt.Errorf("%q is not one of %s, %s", value, ConnectPublic, ConnectPrivate)
	}
}
