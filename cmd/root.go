package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SuperDARNCanada/globus/internal/config"
)

var (
	Version      = "dev"
	envFile      string
	tokenFile    string
	clientID     string
	clientSecret string
	transferURL  string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:     "sdsync",
	Short:   "SuperDARN mirror synchronization tool",
	Version: Version,
	Long: `sdsync copies SuperDARN radar data files from the official mirror to a
directory on a local Globus Connect Personal endpoint.

The first run asks for a browser login and persists a refresh token, so
later runs (for example from cron) authenticate without prompting.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load before reading SDSYNC_* variables")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "Refresh token file (default: ~/.globus_transfer_rt)")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "Globus Auth client id (default: the registered sdsync app)")
	rootCmd.PersistentFlags().StringVar(&clientSecret, "client-secret", "", "Globus Auth client secret (or set SDSYNC_CLIENT_SECRET env var)")
	rootCmd.PersistentFlags().StringVar(&transferURL, "transfer-url", "", "Transfer API base URL (default: the public Globus deployment)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// loadConfig assembles the runtime configuration: defaults, then the env
// file and SDSYNC_* variables, then command-line flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if tokenFile != "" {
		cfg.TokenFile = tokenFile
	}
	if clientID != "" {
		cfg.ClientID = clientID
	}
	if clientSecret != "" {
		cfg.ClientSecret = clientSecret
	}
	if transferURL != "" {
		cfg.TransferURL = transferURL
	}
	return cfg, nil
}

// newLogger returns the debug logger, or nil when -v is off.
func newLogger() *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
