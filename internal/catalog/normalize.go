package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/younsl/gazua/internal/config"
	"github.com/younsl/gazua/internal/models"
	"github.com/younsl/gazua/pkg/utils"
)

// MissingTagError reports an instance without the configured group or name tag
type MissingTagError struct {
	InstanceID string
	Tag        string
}

func (e *MissingTagError) Error() string {
	return fmt.Sprintf("instance %s has no %q tag", e.InstanceID, e.Tag)
}

// Normalize converts a raw EC2 instance into an Instance, resolving key file,
// user and connect address from cfg
func Normalize(cfg *config.ProviderConfig, raw types.Instance) (models.Instance, error) {
	id := utils.SafeDeref(raw.InstanceId)
	tags := utils.GetTagsMap(raw.Tags)

	group, ok := utils.LookupTag(tags, cfg.GroupTag)
	if !ok {
		return models.Instance{}, &MissingTagError{InstanceID: id, Tag: cfg.GroupTag}
	}
	name, ok := utils.LookupTag(tags, cfg.NameTag)
	if !ok {
		return models.Instance{}, &MissingTagError{InstanceID: id, Tag: cfg.NameTag}
	}

	instance := models.Instance{
		ID:        id,
		Type:      string(raw.InstanceType),
		Group:     group,
		Name:      name,
		IsRunning: raw.State != nil && raw.State.Name == types.InstanceStateNameRunning,
		PrivateIP: utils.SafeDeref(raw.PrivateIpAddress),
		PublicIP:  utils.SafeDeref(raw.PublicIpAddress),
		KeyName:   utils.SafeDeref(raw.KeyName),
		KeyFile:   keyFilePath(cfg.SSHPath, cfg.KeyFile.Resolve(group, name)),
		User:      cfg.User.Resolve(group, name),
	}

	if cfg.ConnectIP.Resolve(group, name) == config.ConnectPrivate {
		instance.ConnectIP = instance.PrivateIP
	} else {
		instance.ConnectIP = instance.PublicIP
	}

	return instance, nil
}

// keyFilePath turns a resolved key-file value into a path. auto yields no
// path; relative paths live under sshPath
func keyFilePath(sshPath, value string) string {
	switch {
	case value == config.KeyFileAuto || value == "":
		return ""
	case filepath.IsAbs(value):
		return value
	case value == "~" || strings.HasPrefix(value, "~/"):
		return config.ExpandHome(value)
	default:
		return filepath.Join(config.ExpandHome(sshPath), value)
	}
}
