// ABOUTME: Root command for the valhalla CLI
// ABOUTME: Handles global flags, environment config, and shared wiring

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aldavm/valhalla-cli/internal/client"
	"github.com/aldavm/valhalla-cli/internal/debuglog"
	"github.com/aldavm/valhalla-cli/internal/deviceid"
	"github.com/aldavm/valhalla-cli/internal/session"
)

var (
	apiURL     string
	jsonOutput bool
	debugMode  bool
)

const defaultAPIURL = "http://localhost:3000"

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "valhalla",
	Short: "CLI for the Valhalla video platform",
	Long: `valhalla is a command-line client for the Valhalla instructional video platform.

It signs in against the platform backend, manages your active sessions, and
keeps your authentication persisted between runs.

Environment Variables:
  VALHALLA_API_URL  Backend API URL (default: http://localhost:3000)
  VALHALLA_DEBUG    Set to 1 to write a debug log under the config directory`,
}

// Execute runs the root command
func Execute() error {
	// A .env next to the binary may carry VALHALLA_API_URL; absence is fine.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides VALHALLA_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Write a debug log under the config directory")
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if envURL := os.Getenv("VALHALLA_API_URL"); envURL != "" {
		return envURL
	}
	return defaultAPIURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// ConfigDir returns the config directory following the XDG spec
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "valhalla")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "valhalla")
}

// newLogger builds the debug logger; disabled unless requested
func newLogger() *zap.Logger {
	if !debugMode && os.Getenv("VALHALLA_DEBUG") != "1" {
		return zap.NewNop()
	}
	log, err := debuglog.Init(ConfigDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: debug log unavailable: %v\n", err)
		return zap.NewNop()
	}
	return log
}

// openStore loads the persisted session from the config directory
func openStore(log *zap.Logger) (*session.Store, error) {
	return session.Open(ConfigDir(), log)
}

// newAuthClient wires the API client to the session store: the store supplies
// the bearer token, and any rejected token clears the store so every command
// observes the same logged-out state.
func newAuthClient(store *session.Store) *client.Client {
	opts := []client.Option{
		client.WithTokenSource(store.Token),
		client.WithUnauthorizedHandler(func() {
			if err := store.ClearLocal(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to clear local session: %v\n", err)
			}
			fmt.Fprintln(os.Stderr, "Your session is no longer valid. Run 'valhalla login' to sign in again.")
		}),
	}
	if id, err := deviceid.Load(ConfigDir()); err == nil {
		opts = append(opts, client.WithDeviceIdentity(id, deviceid.Describe()))
	}
	return client.New(GetAPIURL(), opts...)
}
