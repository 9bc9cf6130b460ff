// SPDX-License-Identifier: MPL-2.0

// Package releases resolves .NET version expressions against the official
// release metadata. The releases-index document maps major.minor channels to
// their latest runtime and SDK versions and support phase; per-channel
// documents list every SDK release, which is what feature-band expressions
// resolve against. Both documents come through a TTL-cached fetcher so
// resolution keeps working offline once the cache is warm.
package releases
