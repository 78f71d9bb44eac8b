// Package priority orders a batch of learning events for deterministic
// conflict resolution. The ordering key is: confidence descending, then
// creation time ascending, then id ascending as the final tie-break. When
// the application engine walks a group, the strongest claim wins and equal
// claims resolve by age, reproducibly for any input permutation.
package priority

import (
	"sort"
	"strings"

	"org-knowledge-be/internal/entity"
)

// SortEvents returns a new slice with the batch in priority order. The input
// is not mutated.
func SortEvents(events []*entity.LearningEvent) []*entity.LearningEvent {
	sorted := make([]*entity.LearningEvent, len(events))
	copy(sorted, events)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return strings.Compare(sorted[i].Id.String(), sorted[j].Id.String()) < 0
	})

	return sorted
}
