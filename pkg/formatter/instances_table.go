package formatter

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/younsl/gazua/internal/models"
)

var (
	groupStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// PrintInstancesTable prints every provider's groups as kubectl style tables
// Providers and groups are printed in name order
func PrintInstancesTable(w io.Writer, listing map[string]models.InstanceGroupMap, scanTime time.Time, scanDuration time.Duration) {
	if countAll(listing) == 0 {
		fmt.Fprintln(w, "No instances found.")
		return
	}

	fmt.Fprintf(w, "Scan time: %s (completed in %.2f seconds)\n",
		scanTime.Format("2006-01-02 15:04:05"),
		scanDuration.Seconds())

	for _, provider := range sortedKeys(listing) {
		groups := listing[provider]
		for _, group := range sortedKeys(groups) {
			fmt.Fprintln(w)
			fmt.Fprintln(w, groupStyle.Render(fmt.Sprintf("[%s] %s", provider, getGroupName(group))))
			printGroup(w, groups[group])
		}
	}
}

func printGroup(w io.Writer, instances []models.Instance) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	// STATE stays last: tabwriter does not align the final cell, so its
	// escape sequences cannot shift the other columns
	fmt.Fprintln(tw, "NAME\tINSTANCE ID\tTYPE\tCONNECT IP\tUSER\tKEY FILE\tSTATE")

	for _, instance := range instances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			getInstanceName(instance.Name),
			instance.ID,
			instance.Type,
			orDash(instance.ConnectIP),
			instance.User,
			getKeyFile(instance),
			getState(instance),
		)
	}

	tw.Flush()
}

// PrintInstancesSummary prints per-provider group and instance counts
func PrintInstancesSummary(w io.Writer, listing map[string]models.InstanceGroupMap) {
	if len(listing) == 0 {
		return
	}

	fmt.Fprintln(w, "\n## Instances Summary")

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tGROUPS\tINSTANCES\tRUNNING")

	var totalGroups, totalInstances, totalRunning int
	for _, provider := range sortedKeys(listing) {
		groups := listing[provider]
		running := countRunning(groups)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			provider,
			humanize.Comma(int64(len(groups))),
			humanize.Comma(int64(groups.Count())),
			humanize.Comma(int64(running)),
		)
		totalGroups += len(groups)
		totalInstances += groups.Count()
		totalRunning += running
	}

	fmt.Fprintf(tw, "Total:\t%s\t%s\t%s\n",
		humanize.Comma(int64(totalGroups)),
		humanize.Comma(int64(totalInstances)),
		humanize.Comma(int64(totalRunning)),
	)

	tw.Flush()
}

// FilterRunning returns a copy of listing without stopped instances
// Groups left empty are dropped
func FilterRunning(listing map[string]models.InstanceGroupMap) map[string]models.InstanceGroupMap {
	filtered := make(map[string]models.InstanceGroupMap, len(listing))
	for provider, groups := range listing {
		kept := models.InstanceGroupMap{}
		for group, instances := range groups {
			var running []models.Instance
			for _, instance := range instances {
				if instance.IsRunning {
					running = append(running, instance)
				}
			}
			if len(running) > 0 {
				kept[group] = running
			}
		}
		filtered[provider] = kept
	}
	return filtered
}

// getInstanceName returns a formatted instance name or <unnamed> if empty
func getInstanceName(name string) string {
	if name == "" {
		return "<unnamed>"
	}
	return name
}

func getGroupName(group string) string {
	if group == "" {
		return "<ungrouped>"
	}
	return group
}

func getState(instance models.Instance) string {
	if instance.IsRunning {
		return "running"
	}
	return stoppedStyle.Render("not running")
}

// getKeyFile shows the resolved path, or the provider key name when the
// key file is left to auto
func getKeyFile(instance models.Instance) string {
	if instance.HasKeyFile() {
		return instance.KeyFile
	}
	if instance.KeyName != "" {
		return fmt.Sprintf("auto (%s)", instance.KeyName)
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func countAll(listing map[string]models.InstanceGroupMap) int {
	total := 0
	for _, groups := range listing {
		total += groups.Count()
	}
	return total
}

func countRunning(groups models.InstanceGroupMap) int {
	running := 0
	for _, instances := range groups {
		for _, instance := range instances {
			if instance.IsRunning {
				running++
			}
		}
	}
	return running
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
