// ABOUTME: Session management commands for authenticated users
// ABOUTME: Lists and terminates active sessions against the allowance

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aldavm/valhalla-cli/internal/client"
)

var removeCurrent bool

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage your active sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your active sessions",
	Long: `List the active sessions for your account, together with the configured
session allowance.

Exit codes:
  0 - Listed
  1 - Not signed in
  2 - Error`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runSessionsList(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var sessionsRemoveCmd = &cobra.Command{
	Use:   "remove [session-id]",
	Short: "Close one of your active sessions",
	Long: `Close an active session by id, or the session behind this client's own
token with --current. Closing the current session signs this client out.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		sessionID := ""
		if len(args) == 1 {
			sessionID = args[0]
		}
		exitCode := runSessionsRemove(ctx, os.Stdout, sessionID)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsRemoveCmd)
	sessionsRemoveCmd.Flags().BoolVar(&removeCurrent, "current", false, "Close the session behind this client's token")
}

// sessionsReport combines the listing with the configured allowance
type sessionsReport struct {
	Sessions         []client.RemoteSession `json:"sessions"`
	TotalSessions    int                    `json:"totalSessions"`
	MaxTokensAllowed int                    `json:"maxTokensAllowed"`
}

// runSessionsList fetches and prints the active sessions
func runSessionsList(ctx context.Context, w io.Writer) int {
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

	apiClient := newAuthClient(store)

	// The listing and the allowance come from separate endpoints.
	var (
		quota *client.SessionQuota
		cfg   *client.SessionConfig
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quota, err = apiClient.SessionsByToken(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		cfg, err = apiClient.SessionConfig(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		if !store.IsAuthenticated() {
			return 1
		}
		return 2
	}

	report := sessionsReport{
		Sessions:         quota.Sessions,
		TotalSessions:    quota.TotalSessions,
		MaxTokensAllowed: quota.MaxTokensAllowed,
	}
	if report.MaxTokensAllowed == 0 && cfg != nil {
		report.MaxTokensAllowed = cfg.MaxTokensAllowed
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatSessionsJSON(report))
	} else {
		fmt.Fprintln(w, formatSessionsHuman(report))
	}
	return 0
}

// runSessionsRemove closes one session and reports the refreshed count
func runSessionsRemove(ctx context.Context, w io.Writer, sessionID string) int {
	if sessionID == "" && !removeCurrent {
		fmt.Fprintln(w, "Error: provide a session id or --current")
		return 2
	}
	if sessionID != "" && removeCurrent {
		fmt.Fprintln(w, "Error: a session id and --current are mutually exclusive")
		return 2
	}

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

	apiClient := newAuthClient(store)

	if removeCurrent {
		if err := apiClient.RemoveCurrentSession(ctx); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return 2
		}
		// The token behind this client is gone now.
		if err := store.ClearLocal(); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return 2
		}
		fmt.Fprintln(w, "Current session closed. You are signed out.")
		return 0
	}

	if err := apiClient.RemoveSessionByToken(ctx, sessionID); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	// Re-fetch so the reported count is never stale.
	quota, err := apiClient.SessionsByToken(ctx)
	if err != nil {
		fmt.Fprintln(w, "Session closed.")
		return 0
	}
	fmt.Fprintf(w, "Session closed. %d of %d session slots in use.\n",
		quota.TotalSessions, quota.MaxTokensAllowed)
	return 0
}

// formatSessionsHuman formats the report for human readability
func formatSessionsHuman(report sessionsReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Active sessions: %d of %d allowed\n", report.TotalSessions, report.MaxTokensAllowed)

	if nearQuota(report.TotalSessions, report.MaxTokensAllowed) {
		sb.WriteString("Warning: you are close to the session limit. Close sessions you no longer use.\n")
	}
	sb.WriteString("\n")

	if len(report.Sessions) == 0 {
		sb.WriteString("No active sessions.")
		return sb.String()
	}

	for _, s := range report.Sessions {
		fmt.Fprintf(&sb, "  %-36s  %-30s  %-15s  %s\n",
			s.ID, s.DeviceInfo, s.IPAddress, formatSessionTime(s.CreatedAt))
	}
	sb.WriteString("\nClose one with: valhalla sessions remove <session-id>")
	return sb.String()
}

// formatSessionsJSON formats the report as JSON
func formatSessionsJSON(report sessionsReport) string {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// nearQuota reports whether usage is at 80% of the allowance or above
func nearQuota(total, max int) bool {
	if max <= 0 {
		return false
	}
	return float64(total)/float64(max) >= 0.8
}

func formatSessionTime(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Local().Format("2006-01-02 15:04")
}
