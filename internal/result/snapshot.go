package result

import (
	"github.com/usestring/chunkgrep/pkg/types"
)

// Snapshot is a read-only view of an Accumulator, suitable for caching and printing.
// Record order is unspecified.
type Snapshot struct {
	Records       []types.MatchRecord `json:"records"`
	Count         int64               `json:"count"`
	Partial       bool                `json:"partial,omitempty"`
	Diagnostics   []types.Diagnostic  `json:"diagnostics,omitempty"`
	FilesSearched int                 `json:"files_searched"`
	ChunksScanned int                 `json:"chunks_scanned"`
}

// Multiset returns the number of occurrences of each distinct record.
func (s *Snapshot) Multiset() map[types.RecordKey]int {
	m := make(map[types.RecordKey]int, len(s.Records))
	for _, r := range s.Records {
		m[r.Key()]++
	}
	return m
}

// SameRecords reports whether s and other hold the same multiset of records.
func (s *Snapshot) SameRecords(other *Snapshot) bool {
	if len(s.Records) != len(other.Records) {
		return false
	}
	a, b := s.Multiset(), other.Multiset()
	if len(a) != len(b) {
		return false
	}
	for k, n := range a {
		if b[k] != n {
			return false
		}
	}
	return true
}
