// SPDX-License-Identifier: MPL-2.0

package releases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"dotnetup/internal/store"
	"dotnetup/pkg/dotver"
)

// testIndex builds a releases-index document whose per-channel releases
// documents are served by the same test server.
func testIndex(baseURL string) string {
	return fmt.Sprintf(`{"releases-index": [
		{"channel-version": "9.0", "latest-release": "9.0.0-preview.5", "latest-runtime": "9.0.0-preview.5", "latest-sdk": "9.0.100-preview.5", "support-phase": "preview", "release-type": "sts", "releases.json": "%[1]s/9.0/releases.json"},
		{"channel-version": "8.0", "latest-release": "8.0.8", "latest-runtime": "8.0.8", "latest-sdk": "8.0.404", "support-phase": "active", "release-type": "lts", "releases.json": "%[1]s/8.0/releases.json"},
		{"channel-version": "7.0", "latest-release": "7.0.20", "latest-runtime": "7.0.20", "latest-sdk": "7.0.410", "support-phase": "eol", "release-type": "sts", "releases.json": "%[1]s/7.0/releases.json"},
		{"channel-version": "6.0", "latest-release": "6.0.33", "latest-runtime": "6.0.33", "latest-sdk": "6.0.428", "support-phase": "eol", "release-type": "lts", "releases.json": "%[1]s/6.0/releases.json"}
	]}`, baseURL)
}

const testChannel70 = `{"channel-version": "7.0", "releases": [
	{"sdk": {"version": "7.0.410"}, "sdks": [{"version": "7.0.410"}, {"version": "7.0.317"}, {"version": "7.0.120"}]},
	{"sdk": {"version": "7.0.304"}, "sdks": [{"version": "7.0.304"}]}
]}`

const testChannel80 = `{"channel-version": "8.0", "releases": [
	{"sdk": {"version": "8.0.404"}, "sdks": [{"version": "8.0.404"}, {"version": "8.0.307"}]}
]}`

// recordingNotifier captures warnings for assertions.
type recordingNotifier struct {
	warnings []string
}

func (n *recordingNotifier) ShowError(string)   {}
func (n *recordingNotifier) ShowWarning(msg string) {
	n.warnings = append(n.warnings, msg)
}
func (n *recordingNotifier) ShowInfo(string)                  {}
func (n *recordingNotifier) PromptForManualPath() (string, bool) { return "", false }

// newTestResolver serves the canned index and channel documents.
func newTestResolver(t *testing.T, opts ...ResolverOption) (*Resolver, *recordingNotifier) {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/releases-index.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testIndex(srv.URL)))
	})
	mux.HandleFunc("/7.0/releases.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testChannel70))
	})
	mux.HandleFunc("/8.0/releases.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testChannel80))
	})

	notifier := &recordingNotifier{}
	opts = append([]ResolverOption{WithNotifier(notifier)}, opts...)
	f := NewCachedFetcher(store.NewMemStore())
	return NewResolver(f, srv.URL+"/releases-index.json", opts...), notifier
}

// onlySupports is a SupportFilter allowing an explicit channel set.
type onlySupports map[string]bool

func (f onlySupports) Supported(majorMinor string) bool { return f[majorMinor] }

func TestResolveExpressions(t *testing.T) {
	tests := []struct {
		name string
		expr string
		mode dotver.Mode
		want string
	}{
		{name: "major minor runtime", expr: "8.0", mode: dotver.ModeRuntime, want: "8.0.8"},
		{name: "major minor aspnetcore", expr: "8.0", mode: dotver.ModeASPNetCore, want: "8.0.8"},
		{name: "major minor sdk", expr: "8.0", mode: dotver.ModeSDK, want: "8.0.404"},
		{name: "bare major prefers active channel", expr: "8", mode: dotver.ModeRuntime, want: "8.0.8"},
		{name: "pinned runtime passes through", expr: "8.0.3", mode: dotver.ModeRuntime, want: "8.0.3"},
		{name: "feature band resolves newest in band", expr: "7.0.3xx", mode: dotver.ModeSDK, want: "7.0.317"},
		{name: "pinned sdk in known band validates", expr: "7.0.312", mode: dotver.ModeSDK, want: "7.0.312"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(t)
			got, err := r.Resolve(context.Background(), tt.expr, tt.mode)
			if err != nil {
				t.Fatalf("Resolve(%q, %s): %v", tt.expr, tt.mode, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q, %s) = %q, want %q", tt.expr, tt.mode, got, tt.want)
			}
		})
	}
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name string
		expr string
		mode dotver.Mode
	}{
		{name: "unknown channel", expr: "3.1", mode: dotver.ModeRuntime},
		{name: "garbage expression", expr: "eight", mode: dotver.ModeRuntime},
		{name: "band for runtime mode", expr: "7.0.3xx", mode: dotver.ModeRuntime},
		{name: "pinned sdk in unknown band", expr: "7.0.999", mode: dotver.ModeSDK},
		{name: "band with no sdks", expr: "7.0.2xx", mode: dotver.ModeSDK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(t)
			_, err := r.Resolve(context.Background(), tt.expr, tt.mode)
			if !errors.Is(err, ErrVersionResolution) {
				t.Errorf("Resolve(%q, %s) error = %v, want ErrVersionResolution", tt.expr, tt.mode, err)
			}
		})
	}
}

func TestResolveUnreachableMetadataWithColdCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // dead on arrival

	f := NewCachedFetcher(store.NewMemStore())
	r := NewResolver(f, srv.URL+"/releases-index.json")

	_, err := r.Resolve(context.Background(), "8.0", dotver.ModeRuntime)
	if !errors.Is(err, ErrVersionResolution) {
		t.Errorf("error = %v, want ErrVersionResolution", err)
	}
}

func TestResolveDistroWalkBack(t *testing.T) {
	r, notifier := newTestResolver(t, WithSupportFilter(onlySupports{"6.0": true, "7.0": true}))

	got, err := r.Resolve(context.Background(), "8.0", dotver.ModeRuntime)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "7.0.20" {
		t.Errorf("walked-back version = %q, want 7.0.20", got)
	}
	if len(notifier.warnings) == 0 {
		t.Error("walk-back produced no warning")
	}
}

func TestResolveDistroWalkBackExhausted(t *testing.T) {
	r, _ := newTestResolver(t, WithSupportFilter(onlySupports{}))

	_, err := r.Resolve(context.Background(), "8.0", dotver.ModeRuntime)
	if !errors.Is(err, ErrVersionResolution) {
		t.Errorf("error = %v, want ErrVersionResolution when no channel is distro-supported", err)
	}
}

func TestRecommendPrefersActiveChannel(t *testing.T) {
	r, notifier := newTestResolver(t)

	got, err := r.Recommend(context.Background(), dotver.ModeRuntime)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	// 9.0 is newer but preview; 8.0 is the newest active channel.
	if got != "8.0.8" {
		t.Errorf("Recommend = %q, want 8.0.8", got)
	}
	if len(notifier.warnings) != 0 {
		t.Errorf("unexpected warnings: %v", notifier.warnings)
	}
}

func TestRecommendFallsBackWithWarning(t *testing.T) {
	// Only EOL channels visible: recommendation must still answer, loudly.
	r, notifier := newTestResolver(t, WithSupportFilter(onlySupports{"7.0": true, "6.0": true}))

	got, err := r.Recommend(context.Background(), dotver.ModeSDK)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if got != "7.0.410" {
		t.Errorf("Recommend = %q, want 7.0.410 (newest available)", got)
	}
	if len(notifier.warnings) == 0 {
		t.Error("EOL fallback produced no warning")
	}
}

func TestChannelsSortedNewestFirst(t *testing.T) {
	r, _ := newTestResolver(t)

	channels, err := r.Channels(context.Background())
	if err != nil {
		t.Fatalf("Channels: %v", err)
	}
	want := []string{"9.0", "8.0", "7.0", "6.0"}
	if len(channels) != len(want) {
		t.Fatalf("channel count = %d, want %d", len(channels), len(want))
	}
	for i, w := range want {
		if channels[i].ChannelVersion != w {
			t.Errorf("channels[%d] = %s, want %s", i, channels[i].ChannelVersion, w)
		}
	}
}
