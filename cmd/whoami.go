// ABOUTME: Whoami command showing the locally persisted identity
// ABOUTME: Reads the saved session without contacting the server

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show who is signed in on this machine",
	Long: `Show the identity saved by the last successful login. This reads local
state only and does not contact the server.

Exit codes:
  0 - Signed in
  1 - Not signed in
  2 - Error`,
	Run: func(cmd *cobra.Command, args []string) {
		exitCode := runWhoami(os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(w io.Writer) int {
	log := newLogger()
	defer log.Sync()

	store, err := openStore(log)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	if !store.IsAuthenticated() {
		fmt.Fprintln(w, "Not signed in. Run 'valhalla login' first.")
		return 1
	}

	user := store.User()
	if IsJSONOutput() {
		data, err := json.MarshalIndent(user, "", "  ")
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return 2
		}
		fmt.Fprintln(w, string(data))
		return 0
	}

	fmt.Fprintf(w, "Signed in as %s (%s)\n", user.Name, user.Email)
	return 0
}
