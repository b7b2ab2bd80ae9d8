// ABOUTME: Persistent device identity for session labeling
// ABOUTME: A generated uuid plus a human-readable host description

package deviceid

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

const idFile = "device-id"

// Load returns the device id persisted under configDir, generating and
// storing a new one on first use. The id survives logins so the server can
// recognize this client across sessions.
func Load(configDir string) (string, error) {
	path := filepath.Join(configDir, idFile)

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", err
	}
	return id, nil
}

// Describe returns the device description sent with login requests and
// echoed back in session listings.
func Describe() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return fmt.Sprintf("valhalla-cli on %s (%s/%s)", host, runtime.GOOS, runtime.GOARCH)
}
