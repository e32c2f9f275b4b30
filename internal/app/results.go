package app

import (
	"sort"

	"lecture-quiz-service/internal/domain"
)

// Results keeps one entry per checked question, keyed by origin identity so an
// outcome recorded in one working set stays attributable in the next.
type Results struct {
	entries map[domain.QuestionRef]resultSlot
}

type resultSlot struct {
	entry domain.ResultEntry
	order int
}

func newResults() *Results {
	return &Results{entries: make(map[domain.QuestionRef]resultSlot)}
}

// Record stores entry, replacing any earlier outcome for the same question.
// order is the question's position in the session's original list.
func (r *Results) Record(entry domain.ResultEntry, order int) {
	r.entries[entry.Question] = resultSlot{entry: entry, order: order}
}

// Lookup returns the recorded outcome for ref; ok is false if it was never checked.
func (r *Results) Lookup(ref domain.QuestionRef) (domain.ResultEntry, bool) {
	slot, ok := r.entries[ref]
	return slot.entry, ok
}

// Visited is the number of distinct questions checked.
func (r *Results) Visited() int {
	return len(r.entries)
}

// Correct is the number of checked questions whose latest outcome is correct.
func (r *Results) Correct() int {
	n := 0
	for _, slot := range r.entries {
		if slot.entry.IsCorrect {
			n++
		}
	}
	return n
}

// Incorrect lists the questions whose latest outcome is wrong, in origin order.
func (r *Results) Incorrect() []domain.QuestionRef {
	var wrong []domain.QuestionRef
	for _, slot := range r.sorted() {
		if !slot.entry.IsCorrect {
			wrong = append(wrong, slot.entry.Question)
		}
	}
	return wrong
}

// Reset drops every recorded outcome.
func (r *Results) Reset() {
	r.entries = make(map[domain.QuestionRef]resultSlot)
}

// Summary builds the end-of-session view; total is the size of the original list.
func (r *Results) Summary(total int) domain.Summary {
	slots := r.sorted()
	entries := make([]domain.ResultEntry, 0, len(slots))
	for _, slot := range slots {
		entries = append(entries, slot.entry)
	}
	return domain.Summary{
		Total:   total,
		Visited: len(entries),
		Correct: r.Correct(),
		Entries: entries,
	}
}

func (r *Results) sorted() []resultSlot {
	slots := make([]resultSlot, 0, len(r.entries))
	for _, slot := range r.entries {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].order != slots[j].order {
			return slots[i].order < slots[j].order
		}
		a, b := slots[i].entry.Question, slots[j].entry.Question
		if a.SetID != b.SetID {
			return a.SetID < b.SetID
		}
		return a.Index < b.Index
	})
	return slots
}
