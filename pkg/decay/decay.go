// Package decay implements the time-based confidence decay policy: the
// effective confidence of a learning event is a pure function of its stored
// confidence and its age. Nothing is ever written back; decay is computed at
// read time.
package decay

import (
	"math"
	"time"
)

type Config struct {
	GracePeriodDays int     // age below which no decay applies
	RatePerDay      float64 // percent of the original confidence lost per day after the grace window
}

func DefaultConfig() Config {
	return Config{
		GracePeriodDays: 7,
		RatePerDay:      0.5,
	}
}

// Info is the quantitative justification attached to decay-based skips.
type Info struct {
	OriginalConfidence int     `json:"originalConfidence"`
	AdjustedConfidence int     `json:"adjustedConfidence"`
	AgeInDays          int     `json:"ageInDays"`
	DecayPercentage    float64 `json:"decayPercentage"`
}

// AgeInDays returns the whole days elapsed since createdAt.
func AgeInDays(createdAt, now time.Time) int {
	if now.Before(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt).Hours() / 24)
}

// AdjustForAge computes the decayed confidence for an event of the given age.
// Linear decay after the grace window; the result is non-increasing in age
// and floored at zero.
func AdjustForAge(confidence, ageInDays int, cfg Config) int {
	pct := decayPercentage(ageInDays, cfg)
	if pct <= 0 {
		return confidence
	}
	adjusted := int(math.Round(float64(confidence) * (1 - pct/100)))
	if adjusted < 0 {
		return 0
	}
	return adjusted
}

// AdjustConfidenceByAge is AdjustForAge anchored on the event's creation time.
func AdjustConfidenceByAge(confidence int, createdAt time.Time, cfg Config) int {
	return AdjustForAge(confidence, AgeInDays(createdAt, time.Now()), cfg)
}

// MeetsConfidenceThreshold reports whether the decayed confidence still
// clears minConfidence.
func MeetsConfidenceThreshold(confidence int, createdAt time.Time, minConfidence int, cfg Config) bool {
	return AdjustConfidenceByAge(confidence, createdAt, cfg) >= minConfidence
}

// GetDecayInfo returns the full decay accounting for logs and skip audits.
func GetDecayInfo(confidence int, createdAt time.Time, cfg Config) Info {
	age := AgeInDays(createdAt, time.Now())
	return Info{
		OriginalConfidence: confidence,
		AdjustedConfidence: AdjustForAge(confidence, age, cfg),
		AgeInDays:          age,
		DecayPercentage:    decayPercentage(age, cfg),
	}
}

func decayPercentage(ageInDays int, cfg Config) float64 {
	if cfg.RatePerDay <= 0 {
		return 0
	}
	effectiveDays := ageInDays - cfg.GracePeriodDays
	if effectiveDays <= 0 {
		return 0
	}
	pct := float64(effectiveDays) * cfg.RatePerDay
	if pct > 100 {
		return 100
	}
	return pct
}
