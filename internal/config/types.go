package config

const (
	// ConnectPublic selects the instance's public address
	ConnectPublic = "public"
	// ConnectPrivate selects the instance's private address
	ConnectPrivate = "private"
	// KeyFileAuto means no explicit key file path is configured
	KeyFileAuto = "auto"

	// DefaultSSHPath is used when ssh-path is omitted
	DefaultSSHPath = "~/.ssh"
	// DefaultUser is used when the user section is omitted
	DefaultUser = "ec2-user"
)

// ProviderConfig holds the SSH connection settings for one cloud provider
// It is read-only after Parse returns
type ProviderConfig struct {
	ID         string
	SSHPath    string
	Credential map[string]string
	GroupTag   string
	NameTag    string
	ConnectIP  OverridableSetting
	KeyFile    OverridableSetting
	User       OverridableSetting
}

// Region returns the region from the credential block, if any
func (c *ProviderConfig) Region() string {
	return c.Credential["region"]
}

// OverridableSetting is a value with optional per-group and per-name overrides
type OverridableSetting struct {
	Default string
	Group   map[string]string
	Name    map[string]string
}

// Resolve returns the name override, then the group override, then the default
func (s OverridableSetting) Resolve(group, name string) string {
	if v, ok := s.Name[name]; ok {
		return v
	}
	if v, ok := s.Group[group]; ok {
		return v
	}
	return s.Default
}

// Resolve looks up setting for an instance identified by group and name
// Sentinel values such as KeyFileAuto are returned as-is
func Resolve(setting OverridableSetting, group, name string) string {
	return setting.Resolve(group, name)
}

// DefaultOnly returns a setting with no overrides
func DefaultOnly(value string) OverridableSetting {
	return OverridableSetting{
		Default: value,
		Group:   map[string]string{},
		Name:    map[string]string{},
	}
}
