// Package config defines default retirement settings and per-domain presets.
package config

import "time"

// Defaults.
const (
	DefaultRegion              = "us-east-1"
	DefaultMinAgeDays          = 30
	DefaultUnusedThresholdDays = 90
	DefaultCheckDays           = 90
	DefaultConcurrencyLimit    = 8
	DefaultPollInterval        = 10 * time.Second
	DefaultMaxWaitDuration     = 5 * time.Minute

	// KMS scheduled deletion requires a 7-30 day recovery window.
	DefaultPendingWindowDays = 7
	MinPendingWindowDays     = 7
	MaxPendingWindowDays     = 30
)

// Settings is the engine-facing configuration struct.
type Settings struct {
	MinAgeDays            int
	UnusedThresholdDays   int
	ProtectedNamePatterns []string
	CheckHistoricalUsage  bool
	CheckDays             int
	DryRun                bool
	ConcurrencyLimit      int
	PollInterval          time.Duration
	MaxWaitDuration       time.Duration
}

// DefaultSettings returns the safe baseline: dry run on, history check on.
func DefaultSettings() Settings {
	return Settings{
		MinAgeDays:            DefaultMinAgeDays,
		UnusedThresholdDays:   DefaultUnusedThresholdDays,
		ProtectedNamePatterns: []string{"default"},
		CheckHistoricalUsage:  true,
		CheckDays:             DefaultCheckDays,
		DryRun:                true,
		ConcurrencyLimit:      DefaultConcurrencyLimit,
		PollInterval:          DefaultPollInterval,
		MaxWaitDuration:       DefaultMaxWaitDuration,
	}
}

// DomainPreset carries the per-domain knowledge the engine itself stays
// ignorant of: which audit events count as activity and which lifecycle
// states end a completion wait.
type DomainPreset struct {
	// ActivityEvents restricts historical evidence to real usage. Empty
	// means every event in the window counts.
	ActivityEvents []string
	// SuccessStates and FailureStates drive the completion tracker.
	SuccessStates []string
	FailureStates []string
}

// KMSUsageEvents are the CloudTrail event names that prove a key was used
// for cryptographic work, as opposed to being described or tagged.
var KMSUsageEvents = []string{
	"Encrypt",
	"Decrypt",
	"GenerateDataKey",
	"GenerateDataKeyWithoutPlaintext",
	"ReEncrypt",
}

// Presets returns the per-domain defaults keyed by provider domain name.
func Presets() map[string]DomainPreset {
	return map[string]DomainPreset{
		"kms": {
			ActivityEvents: KMSUsageEvents,
		},
		"sagemaker": {
			SuccessStates: []string{"Deleted"},
			FailureStates: []string{"Delete_Failed", "Failed"},
		},
		"ami":      {},
		"sg":       {},
		"loggroup": {},
	}
}
