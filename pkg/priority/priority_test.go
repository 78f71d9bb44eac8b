package priority

import (
	"testing"
	"time"

	"org-knowledge-be/internal/entity"

	"github.com/google/uuid"
)

func event(confidence int, createdAt time.Time, id string) *entity.LearningEvent {
	return &entity.LearningEvent{
		Id:         uuid.MustParse(id),
		Confidence: confidence,
		CreatedAt:  createdAt,
	}
}

func TestSortEvents(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	a := event(90, base.Add(2*time.Hour), "00000000-0000-0000-0000-00000000000a")
	b := event(70, base, "00000000-0000-0000-0000-00000000000b")
	c := event(90, base.Add(time.Hour), "00000000-0000-0000-0000-00000000000c")
	d := event(90, base.Add(time.Hour), "00000000-0000-0000-0000-00000000000d")

	got := SortEvents([]*entity.LearningEvent{b, a, d, c})

	want := []*entity.LearningEvent{c, d, a, b}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, got[i].Id, want[i].Id)
		}
	}
}

func TestSortEventsDeterministicAcrossPermutations(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	events := []*entity.LearningEvent{
		event(80, base, "00000000-0000-0000-0000-000000000001"),
		event(80, base, "00000000-0000-0000-0000-000000000002"),
		event(95, base.Add(time.Minute), "00000000-0000-0000-0000-000000000003"),
	}

	first := SortEvents(events)
	reversed := SortEvents([]*entity.LearningEvent{events[2], events[1], events[0]})
	for i := range first {
		if first[i].Id != reversed[i].Id {
			t.Fatalf("ordering depends on input permutation at %d", i)
		}
	}
}

func TestSortEventsDoesNotMutateInput(t *testing.T) {
	base := time.Now()
	in := []*entity.LearningEvent{
		event(10, base, "00000000-0000-0000-0000-000000000001"),
		event(99, base, "00000000-0000-0000-0000-000000000002"),
	}
	SortEvents(in)
	if in[0].Confidence != 10 || in[1].Confidence != 99 {
		t.Error("input slice was reordered")
	}
}
