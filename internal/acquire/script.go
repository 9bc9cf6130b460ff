// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"dotnetup/internal/releases"
	"dotnetup/pkg/platform"

	"github.com/charmbracelet/log"
)

// scriptDirName is the state-dir subdirectory runnable script copies land
// in.
const scriptDirName = "scripts"

// scriptManager materializes the dotnet-install script on disk. The script
// bytes travel through the cached metadata fetcher, so a warm disk cache
// keeps installs working offline and a cold one fails with the fetch error.
type scriptManager struct {
	fetcher *releases.CachedFetcher
	url     string
	dir     string
	logger  *log.Logger
}

func newScriptManager(fetcher *releases.CachedFetcher, url, stateDir string, logger *log.Logger) *scriptManager {
	return &scriptManager{
		fetcher: fetcher,
		url:     url,
		dir:     filepath.Join(stateDir, scriptDirName),
		logger:  logger,
	}
}

// Ensure returns the path of an executable install script copy, fetching
// or refreshing it first.
func (m *scriptManager) Ensure(ctx context.Context) (string, error) {
	body, stale, err := m.fetcher.Fetch(ctx, m.url)
	if err != nil {
		return "", fmt.Errorf("fetching install script: %w", err)
	}
	if stale {
		m.logger.Debug("using cached install script", "url", m.url)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating script dir: %w", err)
	}

	target := filepath.Join(m.dir, scriptFileName())
	tmp, err := os.CreateTemp(m.dir, ".script-*")
	if err != nil {
		return "", fmt.Errorf("staging install script: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing install script: %w", err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return "", fmt.Errorf("marking install script executable: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing install script: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("placing install script: %w", err)
	}
	return target, nil
}

// scriptFileName picks the platform variant of the install script.
func scriptFileName() string {
	if runtime.GOOS == platform.Windows {
		return "dotnet-install.ps1"
	}
	return "dotnet-install.sh"
}
