package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/SuperDARNCanada/globus/internal/auth"
	"github.com/SuperDARNCanada/globus/internal/syncer"
	"github.com/SuperDARNCanada/globus/internal/transfer"
)

var (
	syncYear          int
	syncMonth         int
	syncStation       string
	syncPattern       string
	syncType          string
	syncNotifySuccess bool
	syncNotifyFailure bool
	syncDryRun        bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [flags] LOCAL_DIR",
	Short: "Sync radar data files from the mirror to a local directory",
	Long: `Sync a year/month slice of one data type from the SuperDARN mirror to a
directory on the local Globus Connect Personal endpoint. The copy is
checksum-verified and runs server-side; the command waits out a soft
timeout of 30 seconds per file and then returns, leaving the transfer
running.

Examples:
  sdsync sync /data/current_month_rawacfs/
  sdsync sync -y 2016 -m 05 /data/201605_rawacfs/
  sdsync sync -y 2004 -m 02 -t dat /data/200402_dat_files/
  sdsync sync -y 2014 -m 12 -p 20141201 -s sas /data/20141201_sas_rawacfs/
  sdsync sync -s rkn /data/cur_month_rkn_rawacfs/`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	now := time.Now()
	syncCmd.Flags().IntVarP(&syncYear, "year", "y", now.Year(), "Year to sync data for")
	syncCmd.Flags().IntVarP(&syncMonth, "month", "m", int(now.Month()), "Month to sync data for")
	syncCmd.Flags().StringVarP(&syncStation, "station", "s", "*", "Station code to narrow the sync, e.g. sas")
	syncCmd.Flags().StringVarP(&syncPattern, "pattern", "p", "*", "File name fragment to narrow the sync, e.g. 20141201")
	syncCmd.Flags().StringVarP(&syncType, "type", "t", string(syncer.Raw), "Data type: "+syncer.DataTypeNames())
	syncCmd.Flags().BoolVar(&syncNotifySuccess, "notify-success", false, "Email when the transfer succeeds")
	syncCmd.Flags().BoolVar(&syncNotifyFailure, "notify-failure", true, "Email when the transfer fails")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "List matching files without submitting a transfer")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	req := syncer.Request{
		Year:     syncYear,
		Month:    syncMonth,
		Station:  syncStation,
		Pattern:  syncPattern,
		DataType: syncer.DataType(syncType),
		LocalDir: args[0],
	}
	// Reject bad arguments before any prompt or network traffic.
	if err := req.Validate(time.Now()); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("notify-success") {
		cfg.NotifyOnSucceeded = syncNotifySuccess
	}
	if cmd.Flags().Changed("notify-failure") {
		cfg.NotifyOnFailed = syncNotifyFailure
	}

	ctx := cmd.Context()
	authorizer := auth.Select(cfg.ClientID, cfg.ClientSecret, auth.NewTokenFile(cfg.TokenFile), os.Stdin, os.Stdout)
	tokens, err := authorizer.TokenSource(ctx)
	if err != nil {
		return err
	}

	logger := newLogger()
	client := transfer.NewClient(tokens, transfer.WithBaseURL(cfg.TransferURL), transfer.WithLogger(logger))
	s := syncer.New(cfg, client, syncer.WithLogger(logger), syncer.WithDryRun(syncDryRun))
	return s.Run(ctx, req)
}
