package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/younsl/gazua/internal/config"
	"github.com/younsl/gazua/internal/version"
)

// Environment variables use this prefix, e.g. GAZUA_CONFIG_DIR
const envPrefix = "GAZUA"

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gazua",
		Short: "List EC2 instances grouped for SSH",
		Long: `gazua reads per-provider SSH settings, lists the provider's instances
and shows them grouped by tag with the address, user and key file to connect with.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("log", "L", "info", "Set log level. Available: debug, info, warn, error")
	cmd.PersistentFlags().StringP("config-dir", "c", config.DefaultConfigDir, "Directory with one <provider>.yml per provider")

	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := v.BindPFlags(c.Flags()); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
		setLogLevel(v.GetString("log"))
		return nil
	}

	cmd.AddCommand(newListCmd(v))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get())
		},
	}
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func setupLogger() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func main() {
	setupLogger()
	root := newRootCmd(newViper())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	root.SetContext(ctx)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
