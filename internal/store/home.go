package store

import (
	"os"
	"path/filepath"
)

// ProgramHome resolves the directory holding cookies, cached results
// and page snapshots. Priority: explicit override (config/flag), the
// RBGCLI_HOME environment variable, then ~/.rbgcli. The directory is
// created on first use.
func ProgramHome(override string) (string, error) {
	base := override
	if base == "" {
		base = os.Getenv("RBGCLI_HOME")
	}
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".rbgcli")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}
	return base, nil
}
