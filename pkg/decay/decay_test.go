package decay

import (
	"testing"
	"time"
)

func TestAdjustForAge(t *testing.T) {
	cfg := DefaultConfig() // 7 day grace, 0.5%/day

	tests := []struct {
		name       string
		confidence int
		ageInDays  int
		want       int
	}{
		{name: "fresh event keeps confidence", confidence: 80, ageInDays: 0, want: 80},
		{name: "inside grace window", confidence: 80, ageInDays: 7, want: 80},
		{name: "one day past grace", confidence: 80, ageInDays: 8, want: 80}, // 0.5% of 80 rounds away
		{name: "ten days past grace", confidence: 80, ageInDays: 17, want: 76},
		{name: "old event decays hard", confidence: 80, ageInDays: 107, want: 40},
		{name: "decay floors at zero", confidence: 50, ageInDays: 10000, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AdjustForAge(tt.confidence, tt.ageInDays, cfg); got != tt.want {
				t.Errorf("AdjustForAge(%d, %d) = %d, want %d", tt.confidence, tt.ageInDays, got, tt.want)
			}
		})
	}
}

func TestAdjustForAgeMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	prev := 100
	for age := 0; age <= 400; age++ {
		got := AdjustForAge(100, age, cfg)
		if got > prev {
			t.Fatalf("decay not monotonic: age %d gives %d after %d", age, got, prev)
		}
		if got < 0 {
			t.Fatalf("decay went negative at age %d: %d", age, got)
		}
		prev = got
	}
	if prev != 0 {
		t.Errorf("confidence should fully decay by age 400, got %d", prev)
	}
}

func TestAdjustForAgeZeroRate(t *testing.T) {
	cfg := Config{GracePeriodDays: 7, RatePerDay: 0}
	if got := AdjustForAge(80, 365, cfg); got != 80 {
		t.Errorf("zero rate must disable decay, got %d", got)
	}
}

func TestMeetsConfidenceThreshold(t *testing.T) {
	cfg := DefaultConfig()

	fresh := time.Now().Add(-24 * time.Hour)
	if !MeetsConfidenceThreshold(80, fresh, 80, cfg) {
		t.Error("fresh event at exactly the threshold should pass")
	}

	// 80 confidence, ~47 days old: 40 effective days * 0.5% = 20% decay -> 64.
	old := time.Now().AddDate(0, 0, -47)
	if MeetsConfidenceThreshold(80, old, 70, cfg) {
		t.Error("decayed event should no longer clear 70")
	}
	if !MeetsConfidenceThreshold(80, old, 60, cfg) {
		t.Error("decayed event should still clear 60")
	}
}

func TestGetDecayInfo(t *testing.T) {
	cfg := DefaultConfig()
	createdAt := time.Now().AddDate(0, 0, -17)

	info := GetDecayInfo(80, createdAt, cfg)
	if info.OriginalConfidence != 80 {
		t.Errorf("OriginalConfidence = %d", info.OriginalConfidence)
	}
	if info.AgeInDays != 17 {
		t.Errorf("AgeInDays = %d, want 17", info.AgeInDays)
	}
	if info.DecayPercentage != 5.0 {
		t.Errorf("DecayPercentage = %v, want 5.0", info.DecayPercentage)
	}
	if info.AdjustedConfidence != 76 {
		t.Errorf("AdjustedConfidence = %d, want 76", info.AdjustedConfidence)
	}
}

func TestAgeInDays(t *testing.T) {
	now := time.Now()
	if got := AgeInDays(now.Add(time.Hour), now); got != 0 {
		t.Errorf("future createdAt should clamp to 0, got %d", got)
	}
	if got := AgeInDays(now.Add(-49*time.Hour), now); got != 2 {
		t.Errorf("49 hours should be 2 whole days, got %d", got)
	}
}
