package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/younsl/gazua/internal/catalog"
	"github.com/younsl/gazua/internal/config"
	"github.com/younsl/gazua/pkg/aws"
	"github.com/younsl/gazua/pkg/formatter"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type listOptions struct {
	providers   []string
	strict      bool
	runningOnly bool
	parallel    bool
	output      string
	spinner     bool
}

func newListCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List instances grouped by provider and group tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := listOptions{
				providers:   v.GetStringSlice("provider"),
				strict:      v.GetBool("strict"),
				runningOnly: v.GetBool("running-only"),
				parallel:    v.GetBool("parallel"),
				output:      v.GetString("output"),
				spinner:     true,
			}
			loader := config.DirLoader{Dir: v.GetString("config-dir")}
			return runList(cmd.Context(), cmd.OutOrStdout(), loader, aws.NewEC2Client(), opts)
		},
	}

	cmd.Flags().StringSliceP("provider", "p", nil, "Providers to list (comma separated, default: all configured)")
	cmd.Flags().Bool("strict", false, "Fail on invalid provider configs and instances missing group or name tags")
	cmd.Flags().BoolP("running-only", "r", false, "Show running instances only")
	cmd.Flags().Bool("parallel", true, "Query providers concurrently")
	cmd.Flags().StringP("output", "o", outputTable, "Output format: table, json")

	return cmd
}

// runList loads provider configs, lists their instances and renders the result
func runList(ctx context.Context, out io.Writer, loader config.ConfigLoader, client catalog.ProviderAPIClient, opts listOptions) error {
	if opts.output != outputTable && opts.output != outputJSON {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	configs, err := loadConfigs(loader, opts)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		return errors.New("no providers to list")
	}

	policy := catalog.SkipMissingTags
	if opts.strict {
		policy = catalog.FailOnMissingTags
	}
	c := catalog.New(client,
		catalog.WithLogger(log.Logger),
		catalog.WithMissingTagPolicy(policy),
		catalog.WithParallelism(opts.parallel),
	)

	var s *spinner.Spinner
	if opts.spinner && opts.output == outputTable {
		s = spinner.New(spinner.CharSets[9], 200*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = fmt.Sprintf(" Listing instances of %d provider(s) ...", len(configs))
		s.Start()
	}

	scanStartTime := time.Now()
	listing, err := c.ListInstances(ctx, configs)
	scanDuration := time.Since(scanStartTime)

	if s != nil {
		s.Stop()
	}

	if err != nil {
		if opts.strict || len(listing) == 0 {
			return err
		}
		log.Error().Err(err).Msg("Some providers could not be listed")
	}

	if opts.runningOnly {
		listing = formatter.FilterRunning(listing)
	}

	if opts.output == outputJSON {
		return formatter.PrintJSON(out, listing)
	}
	formatter.PrintInstancesTable(out, listing, scanStartTime, scanDuration)
	formatter.PrintInstancesSummary(out, listing)
	return nil
}

// loadConfigs parses provider configs and keeps only the selected providers
// Invalid providers are skipped with a warning unless opts.strict is set
func loadConfigs(loader config.ConfigLoader, opts listOptions) (map[string]*config.ProviderConfig, error) {
	configs, err := config.Load(loader)
	if err != nil {
		var parseErr *config.ConfigParseError
		if opts.strict || !errors.As(err, &parseErr) {
			return nil, err
		}
		log.Warn().Err(err).Msg("Skipping providers with invalid config")
	}

	if len(opts.providers) == 0 {
		return configs, nil
	}

	selected := make(map[string]*config.ProviderConfig, len(opts.providers))
	for _, provider := range opts.providers {
		cfg, ok := configs[provider]
		if !ok {
			return nil, fmt.Errorf("provider %s is not configured", provider)
		}
		selected[provider] = cfg
	}
	return selected, nil
}
