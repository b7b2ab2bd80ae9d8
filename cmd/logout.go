// ABOUTME: Logout command invalidating the current session
// ABOUTME: Clears local state even when the server call fails

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var logoutYes bool

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and invalidate the current session",
	Long: `Sign out of the platform. The server-side session is invalidated
best-effort; the local session is removed regardless.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runLogout(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
	logoutCmd.Flags().BoolVarP(&logoutYes, "yes", "y", false, "Skip the confirmation prompt")
}

// runLogout executes the logout and returns an exit code
func runLogout(ctx context.Context, w io.Writer) int {
	log := newLogger()
	defer log.Sync()

	store, err := openStore(log)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if !store.IsAuthenticated() {
		fmt.Fprintln(w, "Not signed in.")
		return 0
	}

	if !logoutYes {
		confirmed := false
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Sign out %s?", store.User().Email)).
					Description("This invalidates your current session.").
					Value(&confirmed),
			),
		).WithTheme(huh.ThemeBase())
		if err := form.Run(); err != nil || !confirmed {
			fmt.Fprintln(w, "Cancelled.")
			return 1
		}
	}

	apiClient := newAuthClient(store)
	if err := store.Logout(ctx, apiClient); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	fmt.Fprintln(w, "Signed out.")
	return 0
}
