// ABOUTME: Status command reporting the account standing for an email
// ABOUTME: Optionally verifies a credential pair without creating a session

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/aldavm/valhalla-cli/internal/client"
)

var (
	statusEmail string
	statusCheck bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the standing of an account",
	Long: `Show whether an account is active or blocked.

With --check, you are prompted for the account password and the pair is
verified against the server without creating a session.

Exit codes:
  0 - Account active (and credentials valid, with --check)
  1 - Account blocked or credentials rejected
  2 - Error`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runStatus(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusEmail, "email", "", "Account email (defaults to the signed-in account)")
	statusCmd.Flags().BoolVar(&statusCheck, "check", false, "Also verify the account password")
}

func runStatus(ctx context.Context, w io.Writer) int {
	log := newLogger()
	defer log.Sync()

	store, err := openStore(log)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	email := statusEmail
	if email == "" {
		if !store.IsAuthenticated() {
			fmt.Fprintln(w, "Error: provide --email or sign in first")
			return 2
		}
		email = store.User().Email
	}

	apiClient := newAuthClient(store)

	status, err := apiClient.AccountStatus(ctx, email)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if IsJSONOutput() && !statusCheck {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return 2
		}
		fmt.Fprintln(w, string(data))
		if status.IsBlocked {
			return 1
		}
		return 0
	}

	if status.IsBlocked {
		fmt.Fprintf(w, "Account %s is blocked. Contact support to restore access.\n", email)
		return 1
	}
	fmt.Fprintf(w, "Account %s is active.\n", email)

	if !statusCheck {
		return 0
	}

	// The password stays in this frame; it is never logged or saved.
	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	).WithTheme(huh.ThemeBase())
	if err := form.Run(); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if err := apiClient.ValidateCredentials(ctx, email, password); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 401 {
			fmt.Fprintln(w, "Credentials rejected.")
			return 1
		}
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	fmt.Fprintln(w, "Credentials valid.")
	return 0
}
