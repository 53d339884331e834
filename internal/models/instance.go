package models

// Instance represents a normalized EC2 instance ready for an SSH connection
type Instance struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Group     string `json:"group"`
	Name      string `json:"name"`
	IsRunning bool   `json:"is_running"`
	PrivateIP string `json:"private_ip"`
	PublicIP  string `json:"public_ip"`
	ConnectIP string `json:"connect_ip"` // public or private address, per connect-ip setting
	KeyName   string `json:"key_name"`
	KeyFile   string `json:"key_file,omitempty"` // empty when no explicit path is configured
	User      string `json:"user"`
}

// HasKeyFile reports whether an explicit key file was resolved for the instance
func (i Instance) HasKeyFile() bool {
	return i.KeyFile != ""
}

// InstanceGroupMap maps a group name to its instances sorted by name
type InstanceGroupMap map[string][]Instance

// Count returns the total number of instances across all groups
func (m InstanceGroupMap) Count() int {
	total := 0
	for _, instances := range m {
		total += len(instances)
	}
	return total
}
