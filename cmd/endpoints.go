package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SuperDARNCanada/globus/internal/auth"
	"github.com/SuperDARNCanada/globus/internal/syncer"
	"github.com/SuperDARNCanada/globus/internal/transfer"
)

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "Resolve and print the mirror and personal endpoint ids",
	Long: `Resolve the mirror endpoint (by search) and the personal endpoint (from
the Globus Connect Personal client-id file, or by discovery) and print
both ids. Useful for checking a setup before scheduling syncs.`,
	RunE: runEndpoints,
}

func init() {
	rootCmd.AddCommand(endpointsCmd)
}

func runEndpoints(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	authorizer := auth.Select(cfg.ClientID, cfg.ClientSecret, auth.NewTokenFile(cfg.TokenFile), os.Stdin, os.Stdout)
	tokens, err := authorizer.TokenSource(ctx)
	if err != nil {
		return err
	}

	logger := newLogger()
	client := transfer.NewClient(tokens, transfer.WithBaseURL(cfg.TransferURL), transfer.WithLogger(logger))
	s := syncer.New(cfg, client, syncer.WithLogger(logger))

	mirrorID, personalID, err := s.ResolveEndpoints(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tENDPOINT ID")
	fmt.Fprintln(w, "----\t-----------")
	fmt.Fprintf(w, "mirror\t%s\n", mirrorID)
	fmt.Fprintf(w, "personal\t%s\n", personalID)
	w.Flush()

	return nil
}
