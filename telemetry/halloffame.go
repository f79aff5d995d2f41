package telemetry

import (
	"encoding/json"
	"sort"
)

// HallEntry records a well-fed animal and its brain.
type HallEntry struct {
	Generation int32     `json:"generation"`
	AnimalID   uint32    `json:"animal_id"`
	Satiation  uint32    `json:"satiation"`
	Chromosome []float32 `json:"chromosome"`
}

// HallOfFame keeps the best-fed animals seen across all generations,
// sorted by satiation (highest first). Ties keep the earlier entry first.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates a new hall of fame with the given capacity.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider offers an entry to the hall. Animals that never fed are not
// admitted. Returns true if the entry was added.
func (hof *HallOfFame) Consider(entry HallEntry) bool {
	if entry.Satiation == 0 {
		return false
	}

	// Find insertion point (sorted descending by satiation)
	idx := sort.Search(len(hof.entries), func(i int) bool {
		return hof.entries[i].Satiation < entry.Satiation
	})

	// If hall is full and entry would be last (lowest), skip it
	if idx >= hof.maxSize {
		return false
	}

	entry.Chromosome = append([]float32(nil), entry.Chromosome...)

	hof.entries = append(hof.entries, HallEntry{})
	copy(hof.entries[idx+1:], hof.entries[idx:])
	hof.entries[idx] = entry

	if len(hof.entries) > hof.maxSize {
		hof.entries = hof.entries[:hof.maxSize]
	}
	return true
}

// Len returns the number of entries.
func (hof *HallOfFame) Len() int {
	return len(hof.entries)
}

// Top returns the best entry, or false if the hall is empty.
func (hof *HallOfFame) Top() (HallEntry, bool) {
	if len(hof.entries) == 0 {
		return HallEntry{}, false
	}
	return hof.entries[0], true
}

// Entries returns the entries, best first. The slice must not be modified.
func (hof *HallOfFame) Entries() []HallEntry {
	return hof.entries
}

// MarshalJSON serializes the hall of fame to JSON.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(struct {
		Entries []HallEntry `json:"entries"`
	}{hof.entries}, "", "  ")
}
