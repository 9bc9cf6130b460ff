// SPDX-License-Identifier: MPL-2.0

package releases

import (
	"encoding/json"
	"fmt"
	"slices"

	"dotnetup/pkg/dotver"
)

const (
	// PhasePreview marks a channel that has not shipped a stable release.
	PhasePreview SupportPhase = "preview"
	// PhaseGoLive marks a release-candidate channel licensed for production.
	PhaseGoLive SupportPhase = "go-live"
	// PhaseActive marks a fully supported channel.
	PhaseActive SupportPhase = "active"
	// PhaseMaintenance marks a channel receiving security fixes only.
	PhaseMaintenance SupportPhase = "maintenance"
	// PhaseEOL marks a channel past its end of support.
	PhaseEOL SupportPhase = "eol"
)

type (
	// SupportPhase is a channel's position in the .NET support lifecycle, as
	// reported by the releases-index document.
	SupportPhase string

	// Channel is one major.minor release line from the releases-index.
	Channel struct {
		ChannelVersion string       `json:"channel-version"`
		LatestRelease  string       `json:"latest-release"`
		LatestRuntime  string       `json:"latest-runtime"`
		LatestSDK      string       `json:"latest-sdk"`
		SupportPhase   SupportPhase `json:"support-phase"`
		ReleaseType    string       `json:"release-type"`
		EOLDate        string       `json:"eol-date"`
		ReleasesJSON   string       `json:"releases.json"`
	}

	// Index is the parsed releases-index document.
	Index struct {
		Channels []Channel `json:"releases-index"`
	}

	// channelReleases is the wire shape of a per-channel releases document,
	// reduced to the SDK version lists feature bands resolve against.
	channelReleases struct {
		ChannelVersion string `json:"channel-version"`
		Releases       []struct {
			SDK struct {
				Version string `json:"version"`
			} `json:"sdk"`
			SDKs []struct {
				Version string `json:"version"`
			} `json:"sdks"`
		} `json:"releases"`
	}
)

// Recommendable reports whether the channel may be handed to a caller that
// did not pin a version. Go-live release candidates count: they are licensed
// for production use.
func (c Channel) Recommendable() bool {
	return c.SupportPhase == PhaseActive || c.SupportPhase == PhaseGoLive
}

// LatestFor returns the channel's newest version for a mode. The index
// carries one runtime version per channel; the ASP.NET Core runtime ships in
// lockstep with it.
func (c Channel) LatestFor(mode dotver.Mode) string {
	if mode == dotver.ModeSDK {
		return c.LatestSDK
	}
	return c.LatestRuntime
}

// ParseIndex decodes a releases-index document and sorts its channels newest
// first, dropping entries whose channel version does not parse.
func ParseIndex(data []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decoding releases index: %w", err)
	}

	idx.Channels = slices.DeleteFunc(idx.Channels, func(c Channel) bool {
		_, err := dotver.MajorMinor(c.ChannelVersion)
		return err != nil
	})
	slices.SortStableFunc(idx.Channels, func(a, b Channel) int {
		cmp, err := dotver.Compare(b.ChannelVersion, a.ChannelVersion)
		if err != nil {
			return 0
		}
		return cmp
	})
	return &idx, nil
}

// ChannelFor returns the channel whose version matches majorMinor.
func (i *Index) ChannelFor(majorMinor string) (Channel, bool) {
	for _, c := range i.Channels {
		if c.ChannelVersion == majorMinor {
			return c, true
		}
	}
	return Channel{}, false
}

// parseChannelSDKs extracts every SDK version a channel has shipped.
func parseChannelSDKs(data []byte) ([]string, error) {
	var doc channelReleases
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding channel releases: %w", err)
	}

	seen := make(map[string]bool)
	var versions []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			versions = append(versions, v)
		}
	}
	for _, r := range doc.Releases {
		add(r.SDK.Version)
		for _, s := range r.SDKs {
			add(s.Version)
		}
	}
	return versions, nil
}
