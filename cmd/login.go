// ABOUTME: Login command running the interactive sign-in flow
// ABOUTME: Drives the login controller through the terminal UI

package cmd

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aldavm/valhalla-cli/internal/authflow"
	"github.com/aldavm/valhalla-cli/internal/tui"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the platform",
	Long: `Sign in interactively. If the account has reached its concurrent-session
limit, existing sessions can be reviewed and closed before retrying.

Exit codes:
  0 - Signed in
  1 - Cancelled without signing in
  2 - Error`,
	Run: func(cmd *cobra.Command, args []string) {
		exitCode := runLogin(os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Prefill the email address")
}

// runLogin executes the interactive login and returns an exit code
func runLogin(w io.Writer) int {
	log := newLogger()
	defer log.Sync()

	store, err := openStore(log)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if store.IsAuthenticated() {
		fmt.Fprintf(w, "Already signed in as %s. Run 'valhalla logout' first to switch accounts.\n",
			store.User().Email)
		return 0
	}

	apiClient := newAuthClient(store)
	ctrl := authflow.New(apiClient, store, log)
	app := tui.New(ctrl, loginEmail)

	model, err := tea.NewProgram(app).Run()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	final := model.(*tui.App)
	user := final.AuthenticatedUser()
	if user == nil {
		fmt.Fprintln(w, "Not signed in.")
		return 1
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}
	fmt.Fprintf(w, "Signed in as %s (%s).\n", name, user.Email)
	return 0
}
