package config

import "time"

// ModerationConfig owns every threshold used by the deletion pipeline.
type ModerationConfig struct {
	// Version of the moderation config.
	Version int `koanf:"version"`
	// Detection thresholds.
	Detection Detection `koanf:"detection"`
	// Suspicion limits for regular users.
	UserLimits Limits `koanf:"user_limits"`
	// Suspicion limits for the privileged operator.
	OwnerLimits Limits `koanf:"owner_limits"`
	// Days to keep deletion records.
	RetentionDays int `koanf:"retention_days"       validate:"gte=1"`
	// Relationship age in minutes before garbage collection.
	RelationshipMaxAge int `koanf:"relationship_max_age" validate:"gte=1"`
	// Minutes between maintenance passes.
	CleanupInterval int `koanf:"cleanup_interval"     validate:"gte=1"`
	// Review configuration.
	Review Review `koanf:"review"`
	// Context extractor configuration.
	Extractor Extractor `koanf:"extractor"`
}

// Detection contains the thresholds that classify a single deletion.
type Detection struct {
	// Deletions faster than this many milliseconds after posting are rapid.
	RapidThreshold int `koanf:"rapid_threshold"  validate:"gte=1"`
	// Window in milliseconds for counting bulk deletions.
	BulkWindow int `koanf:"bulk_window"      validate:"gte=1"`
	// Prior deletions inside the bulk window needed to flag bulk behavior.
	BulkMinCount int `koanf:"bulk_min_count"   validate:"gte=1"`
	// Lifetime deletions at which a user is a frequent deleter.
	FrequentThreshold int `koanf:"frequent_threshold" validate:"gte=1"`
	// Lifetime deletions still handled with a contextual edit.
	ContextualMax int `koanf:"contextual_max"   validate:"gte=0,ltfield=FrequentThreshold"`
}

// Limits are the windowed counts above which a user is suspicious.
// A zero limit disables that check.
type Limits struct {
	Hourly      int `koanf:"hourly"       validate:"gte=0"`
	Daily       int `koanf:"daily"        validate:"gte=0"`
	RapidHourly int `koanf:"rapid_hourly" validate:"gte=0"`
}

// Review contains audit retention and bulk operation configuration.
type Review struct {
	// Which deletions get a review record (all, suspicious, off).
	AuditMode string `koanf:"audit_mode"       validate:"oneof=all suspicious off"`
	// Days to keep review records.
	RetentionDays int `koanf:"retention_days"   validate:"gte=1"`
	// Delay in milliseconds between bulk operations.
	BulkDelay int `koanf:"bulk_delay"       validate:"gte=0"`
	// Concurrent workers for bulk operations.
	BulkConcurrency int `koanf:"bulk_concurrency" validate:"gte=1,lte=16"`
	// Default cap on records touched by one bulk operation.
	BulkMaxCount int `koanf:"bulk_max_count"   validate:"gte=1"`
}

// Extractor contains context extractor cache configuration.
type Extractor struct {
	// Maximum cached extractions.
	CacheSize int `koanf:"cache_size" validate:"gte=1"`
	// Cache entry lifetime in seconds.
	CacheTTL int `koanf:"cache_ttl"  validate:"gte=1"`
}

// Thresholds are the read-only values derived from ModerationConfig.
type Thresholds struct {
	RapidThreshold    time.Duration
	BulkWindow        time.Duration
	BulkMinCount      int
	FrequentThreshold int
	ContextualMax     int
	UserLimits        Limits
	OwnerLimits       Limits
	Retention         time.Duration
}

// Thresholds derives the values every component reads.
func (m *ModerationConfig) Thresholds() Thresholds {
	return Thresholds{
		RapidThreshold:    time.Duration(m.Detection.RapidThreshold) * time.Millisecond,
		BulkWindow:        time.Duration(m.Detection.BulkWindow) * time.Millisecond,
		BulkMinCount:      m.Detection.BulkMinCount,
		FrequentThreshold: m.Detection.FrequentThreshold,
		ContextualMax:     m.Detection.ContextualMax,
		UserLimits:        m.UserLimits,
		OwnerLimits:       m.OwnerLimits,
		Retention:         time.Duration(m.RetentionDays) * 24 * time.Hour,
	}
}

// IsRapid reports whether a deletion after elapsed counts as rapid.
func (t Thresholds) IsRapid(elapsed time.Duration) bool {
	return elapsed < t.RapidThreshold
}

// DefaultThresholds returns the thresholds of the default moderation config.
func DefaultThresholds() Thresholds {
	m := Default().Moderation
	return m.Thresholds()
}
