package models

import (
	"sort"
	"time"
)

// EmissionLogEntry is a delivered signal as recorded in the history file
type EmissionLogEntry struct {
	Signal
	EmittedAt time.Time `json:"emitted_at"`
}

// NewEmissionLogEntry stamps a signal with its emission time
func NewEmissionLogEntry(signal Signal, emittedAt time.Time) EmissionLogEntry {
	return EmissionLogEntry{Signal: signal, EmittedAt: emittedAt}
}

// SortChronologically orders entries by session date then trigger time
func SortChronologically(entries []EmissionLogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].SessionDate.Format(DateLayout), entries[j].SessionDate.Format(DateLayout)
		if di != dj {
			return di < dj
		}
		return entries[i].TriggerClock() < entries[j].TriggerClock()
	})
}
