package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SuperDARNCanada/globus/internal/auth"
	"github.com/SuperDARNCanada/globus/internal/syncer"
	"github.com/SuperDARNCanada/globus/internal/transfer"
)

var (
	loginForce    bool
	loginConsents bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to Globus and persist a refresh token",
	Long: `Log in to Globus interactively and persist a refresh token for
unattended runs. Prints a login URL; paste the code shown after login
back into the terminal.

With --consents, the mirror and personal endpoints are probed afterwards
and, when a stricter deployment demands per-endpoint consents, a second
login requests the missing scopes.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVarP(&loginForce, "force", "f", false, "Log in again even when a refresh token is already persisted")
	loginCmd.Flags().BoolVar(&loginConsents, "consents", false, "Probe the endpoints and request any missing consents")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	tokens := auth.NewTokenFile(cfg.TokenFile)

	if tokens.Exists() && !loginForce && !loginConsents {
		fmt.Printf("Already logged in: refresh token present at %s\n", tokens.Path())
		fmt.Println("Use --force to log in again")
		return nil
	}

	if !tokens.Exists() || loginForce {
		interactive := &auth.InteractiveAuthorizer{
			ClientID: cfg.ClientID,
			Tokens:   tokens,
			In:       os.Stdin,
			Out:      os.Stdout,
		}
		if _, err := interactive.TokenSource(ctx); err != nil {
			return err
		}
	}

	if !loginConsents {
		return nil
	}

	// Consent discovery: resolve both endpoints with the current
	// credential, probe them, and request whatever scopes are missing.
	authorizer := auth.Select(cfg.ClientID, cfg.ClientSecret, tokens, os.Stdin, os.Stdout)
	src, err := authorizer.TokenSource(ctx)
	if err != nil {
		return err
	}
	logger := newLogger()
	client := transfer.NewClient(src, transfer.WithBaseURL(cfg.TransferURL), transfer.WithLogger(logger))
	s := syncer.New(cfg, client, syncer.WithLogger(logger))
	mirrorID, personalID, err := s.ResolveEndpoints(ctx)
	if err != nil {
		return err
	}
	scopes, err := auth.MissingScopes(ctx, client, mirrorID, personalID)
	if err != nil {
		return err
	}
	if len(scopes) == 0 {
		fmt.Println("All required consents are in place")
		return nil
	}

	fmt.Printf("Missing consents for %d scopes:\n", len(scopes))
	for _, scope := range scopes {
		fmt.Printf("  %s\n", scope)
	}
	fmt.Println()
	interactive := &auth.InteractiveAuthorizer{
		ClientID: cfg.ClientID,
		Tokens:   tokens,
		In:       os.Stdin,
		Out:      os.Stdout,
		Scopes:   scopes,
	}
	if _, err := interactive.TokenSource(ctx); err != nil {
		return err
	}
	fmt.Println("Consents granted and refresh token updated")
	return nil
}
