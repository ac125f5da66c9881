package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shortprog",
		Short: "Find the shortest stack programs between values",
		Long: `shortprog enumerates every program of a small stack language up to a given
length and records, for each reachable start/end pair, the shortest program
that produces it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := loadConfig(); err != nil {
				return err
			}
			processGlobalFlags()
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.shortprog.yaml)")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newSearchCmd(),
		newExecCmd(),
		newTraceCmd(),
		newOpsCmd(),
		newLookupCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the config file named by --config, or the first
// $HOME/.shortprog.* file found. Environment variables prefixed with
// SHORTPROG_ override both.
func loadConfig() error {
	viper.SetEnvPrefix("shortprog")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
		return nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return nil
	}
	for _, ext := range viper.SupportedExts {
		path := filepath.Join(home, ".shortprog."+ext)
		if _, err := os.Stat(path); err == nil {
			viper.SetConfigFile(path)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("reading config %s: %w", path, err)
			}
			break
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shortprog %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fatal(err)
	}
}
