// SPDX-License-Identifier: MPL-2.0

// Integration tests for distro detection against real distribution images.
// These require Docker or Podman and are skipped in short mode.

package distro

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
)

// checkTestcontainersAvailable safely checks if testcontainers can be used.
// Returns true if containers are available, false otherwise.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestDistroDetection_Integration verifies that os-release parsing and
// provider selection agree with what real distribution images report.
func TestDistroDetection_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping distro integration tests: testcontainers provider not available")
	}

	tests := []struct {
		name         string
		image        string
		wantID       string
		wantProvider string
		pkgManager   []string
	}{
		{
			name:         "ubuntu 22.04",
			image:        "ubuntu:22.04",
			wantID:       "ubuntu",
			wantProvider: "apt",
			pkgManager:   []string{"apt-get", "--version"},
		},
		{
			name:         "debian 12",
			image:        "debian:12",
			wantID:       "debian",
			wantProvider: "apt",
			pkgManager:   []string{"apt-get", "--version"},
		},
		{
			name:         "fedora 40",
			image:        "fedora:40",
			wantID:       "fedora",
			wantProvider: "dnf",
			pkgManager:   []string{"dnf", "--version"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
			defer cancel()

			ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
				ContainerRequest: testcontainers.ContainerRequest{
					Image: tt.image,
					Cmd:   []string{"sleep", "infinity"},
				},
				Started: true,
			})
			if err != nil {
				t.Skipf("skipping: could not start %s: %v", tt.image, err)
			}
			t.Cleanup(func() {
				_ = ctr.Terminate(context.Background())
			})

			osRelease := execInContainer(ctx, t, ctr, []string{"cat", "/etc/os-release"})
			info := parseOSRelease(osRelease)
			if info.ID != tt.wantID {
				t.Errorf("parsed ID = %q, want %q (os-release: %q)", info.ID, tt.wantID, osRelease)
			}
			if info.VersionID == "" {
				t.Error("parsed VersionID is empty")
			}

			p := ProviderFor(info, &scriptedRunner{}, log.New(io.Discard))
			if !strings.HasPrefix(p.Name(), tt.wantProvider) {
				t.Errorf("provider = %q, want prefix %q", p.Name(), tt.wantProvider)
			}

			// The provider's package manager must actually exist in the image.
			if out := execInContainer(ctx, t, ctr, tt.pkgManager); out == "" {
				t.Errorf("%s produced no output in %s", tt.pkgManager[0], tt.image)
			}
		})
	}
}

// execInContainer runs a command inside the container and returns combined
// output, failing the test on a non-zero exit.
func execInContainer(ctx context.Context, t *testing.T, ctr testcontainers.Container, cmd []string) string {
	t.Helper()

	code, reader, err := ctr.Exec(ctx, cmd, tcexec.Multiplexed())
	if err != nil {
		t.Fatalf("exec %v: %v", cmd, err)
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("reading exec output: %v", err)
	}
	if code != 0 {
		t.Fatalf("exec %v exited %d: %s", cmd, code, out)
	}
	return string(out)
}
