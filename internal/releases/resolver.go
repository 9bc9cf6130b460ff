// SPDX-License-Identifier: MPL-2.0

package releases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dotnetup/internal/notify"
	"dotnetup/pkg/dotver"

	"github.com/charmbracelet/log"
)

// ErrVersionResolution is the sentinel error wrapped by
// VersionResolutionError.
var ErrVersionResolution = errors.New("version resolution failed")

type (
	// VersionResolutionError reports that a version expression could not be
	// mapped to a concrete version: no matching channel, or metadata
	// unreachable with a cold cache. It wraps ErrVersionResolution for
	// errors.Is(); Unwrap also exposes the underlying cause when there is one.
	VersionResolutionError struct {
		Expr   string
		Mode   dotver.Mode
		Reason string
		Err    error
	}

	// SupportFilter narrows resolution to versions a platform can actually
	// install. On Linux the distro provider implements it; elsewhere the
	// filter is nil and every channel passes.
	SupportFilter interface {
		// Supported reports whether the platform officially supports the
		// given major.minor channel.
		Supported(majorMinor string) bool
	}

	// Resolver maps version expressions to fully specified versions using
	// the cached releases-index.
	Resolver struct {
		fetcher  Fetcher
		indexURL string
		filter   SupportFilter
		notifier notify.Notifier
		logger   *log.Logger
	}

	// ResolverOption configures a Resolver.
	ResolverOption func(*Resolver)
)

// Error implements the error interface.
func (e *VersionResolutionError) Error() string {
	return fmt.Sprintf("%v: %q (%s): %s", ErrVersionResolution, e.Expr, e.Mode, e.Reason)
}

// Unwrap returns the sentinel and any underlying cause.
func (e *VersionResolutionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrVersionResolution, e.Err}
	}
	return []error{ErrVersionResolution}
}

// WithSupportFilter installs a platform support filter.
func WithSupportFilter(f SupportFilter) ResolverOption {
	return func(r *Resolver) { r.filter = f }
}

// WithNotifier sets where resolution warnings go.
func WithNotifier(n notify.Notifier) ResolverOption {
	return func(r *Resolver) { r.notifier = n }
}

// WithResolverLogger sets the logger used for resolution diagnostics.
func WithResolverLogger(logger *log.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver returns a Resolver reading channel metadata from indexURL
// through the given fetcher.
func NewResolver(fetcher Fetcher, indexURL string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher:  fetcher,
		indexURL: indexURL,
		notifier: notify.Nop{},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Channels fetches and parses the releases-index, newest channel first.
func (r *Resolver) Channels(ctx context.Context) ([]Channel, error) {
	data, cached, err := r.fetcher.Fetch(ctx, r.indexURL)
	if err != nil {
		return nil, &VersionResolutionError{
			Expr: "", Mode: "", Reason: "release metadata unreachable and not cached", Err: err,
		}
	}
	if cached {
		r.logger.Debug("channel metadata served from cache", "url", r.indexURL)
	}
	idx, err := ParseIndex(data)
	if err != nil {
		return nil, &VersionResolutionError{Expr: "", Mode: "", Reason: "malformed releases index", Err: err}
	}
	return idx.Channels, nil
}

// Resolve maps a version expression plus mode to one fully specified
// version. Fully pinned SDK versions are validated against the channel's
// shipped versions rather than re-resolved; pinned runtime versions pass
// through untouched (the acquisition fast path never reaches here for them).
func (r *Resolver) Resolve(ctx context.Context, expr string, mode dotver.Mode) (string, error) {
	kind, err := dotver.Classify(expr)
	if err != nil {
		return "", &VersionResolutionError{Expr: expr, Mode: mode, Reason: "unrecognized version expression", Err: err}
	}

	if kind == dotver.KindFeatureBand && mode != dotver.ModeSDK {
		return "", &VersionResolutionError{Expr: expr, Mode: mode, Reason: "feature bands apply to SDK requests only"}
	}

	if kind == dotver.KindFull && mode != dotver.ModeSDK {
		return expr, nil
	}

	channels, err := r.Channels(ctx)
	if err != nil {
		var vre *VersionResolutionError
		if errors.As(err, &vre) {
			return "", &VersionResolutionError{Expr: expr, Mode: mode, Reason: vre.Reason, Err: vre.Err}
		}
		return "", err
	}

	switch kind {
	case dotver.KindFull:
		return r.validatePinnedSDK(ctx, channels, expr)
	case dotver.KindFeatureBand:
		return r.resolveBand(ctx, channels, expr)
	case dotver.KindMajor:
		return r.resolveMajor(channels, expr, mode)
	case dotver.KindMajorMinor:
		return r.resolveMajorMinor(channels, expr, mode)
	}
	return "", &VersionResolutionError{Expr: expr, Mode: mode, Reason: "unrecognized version expression"}
}

// Recommend picks the version a caller gets when it does not constrain the
// channel: the newest recommendable channel, or the newest available one
// with a warning when every channel is in maintenance, preview, or EOL.
func (r *Resolver) Recommend(ctx context.Context, mode dotver.Mode) (string, error) {
	channels, err := r.Channels(ctx)
	if err != nil {
		return "", err
	}
	c, ok := r.recommendFrom(channels, mode)
	if !ok {
		return "", &VersionResolutionError{Expr: "latest", Mode: mode, Reason: "no installable channel available"}
	}
	return c.LatestFor(mode), nil
}

// recommendFrom applies the recommendation policy to an already-filtered
// channel list (newest first).
func (r *Resolver) recommendFrom(channels []Channel, mode dotver.Mode) (Channel, bool) {
	supported := r.supportedChannels(channels)
	if len(supported) == 0 {
		return Channel{}, false
	}
	for _, c := range supported {
		if c.Recommendable() {
			return c, true
		}
	}
	// Nothing active: hand out the newest channel anyway, loudly.
	c := supported[0]
	r.notifier.ShowWarning(fmt.Sprintf(
		".NET %s is in support phase %q; no actively supported channel is available", c.ChannelVersion, c.SupportPhase))
	return c, true
}

// supportedChannels drops channels the platform filter rejects.
func (r *Resolver) supportedChannels(channels []Channel) []Channel {
	if r.filter == nil {
		return channels
	}
	var out []Channel
	for _, c := range channels {
		if r.filter.Supported(c.ChannelVersion) {
			out = append(out, c)
		}
	}
	return out
}

// resolveMajor picks the best channel sharing the requested major: the
// newest recommendable one, falling back to the newest present with a
// warning.
func (r *Resolver) resolveMajor(channels []Channel, major string, mode dotver.Mode) (string, error) {
	var matching []Channel
	for _, c := range r.supportedChannels(channels) {
		if strings.HasPrefix(c.ChannelVersion, major+".") {
			matching = append(matching, c)
		}
	}
	if len(matching) == 0 {
		return "", &VersionResolutionError{Expr: major, Mode: mode, Reason: "no channel matches the requested major version"}
	}
	c, _ := r.recommendFrom(matching, mode)
	return c.LatestFor(mode), nil
}

// resolveMajorMinor resolves an exact channel request. When the platform
// filter rejects the requested channel, resolution walks to progressively
// older channels until one is supported, warning about the substitution.
func (r *Resolver) resolveMajorMinor(channels []Channel, majorMinor string, mode dotver.Mode) (string, error) {
	c, ok := findChannel(channels, majorMinor)
	if !ok {
		return "", &VersionResolutionError{Expr: majorMinor, Mode: mode, Reason: "no such release channel"}
	}

	if r.filter == nil || r.filter.Supported(c.ChannelVersion) {
		return c.LatestFor(mode), nil
	}

	// Walk back: channels are sorted newest first, so everything after the
	// requested one is older.
	for _, older := range channels {
		cmp, err := dotver.Compare(older.ChannelVersion, majorMinor)
		if err != nil || cmp >= 0 {
			continue
		}
		if r.filter.Supported(older.ChannelVersion) {
			r.notifier.ShowWarning(fmt.Sprintf(
				".NET %s is not supported on this distribution; using %s instead", majorMinor, older.ChannelVersion))
			return older.LatestFor(mode), nil
		}
	}
	return "", &VersionResolutionError{
		Expr: majorMinor, Mode: mode,
		Reason: "no distro-supported channel at or below the requested version",
	}
}

// resolveBand resolves a feature-band expression ("7.0.3xx") to the newest
// shipped SDK inside the band.
func (r *Resolver) resolveBand(ctx context.Context, channels []Channel, bandExpr string) (string, error) {
	mm, err := dotver.MajorMinor(bandExpr)
	if err != nil {
		return "", &VersionResolutionError{Expr: bandExpr, Mode: dotver.ModeSDK, Reason: "unrecognized feature band", Err: err}
	}
	c, ok := findChannel(channels, mm)
	if !ok {
		return "", &VersionResolutionError{Expr: bandExpr, Mode: dotver.ModeSDK, Reason: "no such release channel"}
	}

	sdks, err := r.channelSDKs(ctx, c)
	if err != nil {
		return "", err
	}

	var inBand []string
	for _, v := range sdks {
		if ok, matchErr := dotver.MatchesBand(v, bandExpr); matchErr == nil && ok {
			inBand = append(inBand, v)
		}
	}
	newest, ok := dotver.Newest(inBand)
	if !ok {
		return "", &VersionResolutionError{Expr: bandExpr, Mode: dotver.ModeSDK, Reason: "channel has no SDK in the requested feature band"}
	}
	return newest, nil
}

// validatePinnedSDK checks a fully pinned SDK version against the channel's
// shipped feature bands. The pinned version itself is returned untouched;
// only membership in a known band is verified.
func (r *Resolver) validatePinnedSDK(ctx context.Context, channels []Channel, version string) (string, error) {
	mm, err := dotver.MajorMinor(version)
	if err != nil {
		return "", &VersionResolutionError{Expr: version, Mode: dotver.ModeSDK, Reason: "unrecognized version expression", Err: err}
	}
	c, ok := findChannel(channels, mm)
	if !ok {
		return "", &VersionResolutionError{Expr: version, Mode: dotver.ModeSDK, Reason: "no such release channel"}
	}

	sdks, err := r.channelSDKs(ctx, c)
	if err != nil {
		return "", err
	}

	requestedBand, err := dotver.FeatureBand(version)
	if err != nil {
		return "", &VersionResolutionError{Expr: version, Mode: dotver.ModeSDK, Reason: "unrecognized version expression", Err: err}
	}
	for _, v := range sdks {
		band, bandErr := dotver.FeatureBand(v)
		if bandErr == nil && band == requestedBand {
			return version, nil
		}
	}
	return "", &VersionResolutionError{
		Expr: version, Mode: dotver.ModeSDK,
		Reason: fmt.Sprintf("channel %s has no %dxx feature band", mm, requestedBand),
	}
}

// channelSDKs fetches a channel's releases document and lists its SDKs.
func (r *Resolver) channelSDKs(ctx context.Context, c Channel) ([]string, error) {
	if c.ReleasesJSON == "" {
		return nil, &VersionResolutionError{
			Expr: c.ChannelVersion, Mode: dotver.ModeSDK,
			Reason: "channel metadata carries no releases document",
		}
	}
	data, _, err := r.fetcher.Fetch(ctx, c.ReleasesJSON)
	if err != nil {
		return nil, &VersionResolutionError{
			Expr: c.ChannelVersion, Mode: dotver.ModeSDK,
			Reason: "channel release metadata unreachable and not cached", Err: err,
		}
	}
	sdks, err := parseChannelSDKs(data)
	if err != nil {
		return nil, &VersionResolutionError{
			Expr: c.ChannelVersion, Mode: dotver.ModeSDK,
			Reason: "malformed channel releases document", Err: err,
		}
	}
	return sdks, nil
}

func findChannel(channels []Channel, majorMinor string) (Channel, bool) {
	for _, c := range channels {
		if c.ChannelVersion == majorMinor {
			return c, true
		}
	}
	return Channel{}, false
}
