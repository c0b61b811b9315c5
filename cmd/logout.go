package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SuperDARNCanada/globus/internal/auth"
)

var logoutForce bool

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the persisted refresh token",
	Long: `Delete the persisted refresh token so the next run asks for a fresh
login. Deleting the file does not revoke the consent on the Globus side;
revoke it at ` + auth.ConsentsURL + ` if the credential may have leaked.`,
	RunE: runLogout,
}

func init() {
	logoutCmd.Flags().BoolVarP(&logoutForce, "force", "f", false, "Delete without confirmation")
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tokens := auth.NewTokenFile(cfg.TokenFile)

	if !tokens.Exists() {
		fmt.Printf("No refresh token at %s\n", tokens.Path())
		return nil
	}

	if !logoutForce {
		fmt.Printf("Delete refresh token %s? [y/N]: ", tokens.Path())
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Logout cancelled")
			return nil
		}
	}

	if err := tokens.Delete(); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", tokens.Path())
	return nil
}
