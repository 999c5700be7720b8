// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Mirror Discovery - these keys locate the primary and backup mirror services.
const (
	SourceBaseURL       = "source.base_url"
	SourceBackupURL     = "source.backup_url"
	SourceTimeout       = "source.timeout"
	SourceBackupTimeout = "source.backup_timeout"
	SourceUserAgent     = "source.user_agent"
)

// Response Caching - these keys bound the lifetime of cached lookups.
const (
	CacheMirrorsTTL  = "cache.mirrors_ttl"
	CacheManifestTTL = "cache.manifest_ttl"
)

// Failover - these keys tune manifest retries before a mirror is abandoned.
const (
	FailoverMaxAttempts = "failover.max_attempts"
	FailoverBaseDelay   = "failover.base_delay"
)

// Playback Preferences - these keys hold the user's default language and quality.
const (
	PlaybackLanguage = "playback.language"
	PlaybackQuality  = "playback.quality"
	PlaybackPlayer   = "playback.player"
)

// Network Quality - these keys seed the estimator before the first sample arrives.
const (
	NetworkDefaultBandwidth = "network.default_bandwidth"
	NetworkTLSFingerprint   = "network.tls_fingerprint"
	NetworkMaxConnsPerHost  = "network.max_conns_per_host"
	NetworkPingInterval    = "network.ping_interval"
)

// History Tracking - these keys configure the persistence of resolved sessions.
const (
	HistorySaveOnResolve = "history.save_on_resolve"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored     = "cli.colored"
	CliMetricsAddr = "cli.metrics_addr"
)
