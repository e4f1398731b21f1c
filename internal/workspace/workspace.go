// Package workspace lays out the data directory that holds the sqlite
// database and saved JSON reports.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	BaseDirName = "VeriText"
	DBFileName  = "veritext.db"
)

func EnsureDefault() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return EnsureAt(filepath.Join(home, BaseDirName))
}

// Ensure uses dir when set and the default location otherwise.
func Ensure(dir string) (string, error) {
	if dir == "" {
		return EnsureDefault()
	}
	return EnsureAt(dir)
}

func EnsureAt(base string) (string, error) {
	paths := []string{
		base,
		filepath.Join(base, "reports"),
	}

	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", p, err)
		}
	}
	return base, nil
}

func DBPath(base string) string {
	return filepath.Join(base, DBFileName)
}
