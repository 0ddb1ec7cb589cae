package repair

import "sort"

// Entry records one LBA the clean loop encountered and what happened to it,
// grounded on original_source/include/sector_repair.h's errorLBA struct.
type Entry struct {
	LBA    uint64
	Status Status
}

// ErrorList is the running record of every LBA a clean.Run pass has
// repaired or failed to repair, spec.md §4.7 (C8). Kept sorted
// ascending by LBA at all times so Contains can binary search and the
// rendered table reads in a sensible order.
type ErrorList struct {
	entries []Entry
}

// Add inserts e in sorted position, replacing any existing entry for
// the same LBA rather than duplicating it.
func (l *ErrorList) Add(e Entry) {
	i := sort.Search(len(l.entries), func(i int) bool { return l.entries[i].LBA >= e.LBA })
	if i < len(l.entries) && l.entries[i].LBA == e.LBA {
		l.entries[i] = e
		return
	}
	l.entries = append(l.entries, Entry{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = e
}

// Contains reports whether lba is already in the list, via a sorted
// binary search rather than a linear scan.
func (l *ErrorList) Contains(lba uint64) bool {
	_, ok := l.Find(lba)
	return ok
}

// Find returns the entry for lba, if present.
func (l *ErrorList) Find(lba uint64) (Entry, bool) {
	i := sort.Search(len(l.entries), func(i int) bool { return l.entries[i].LBA >= lba })
	if i < len(l.entries) && l.entries[i].LBA == lba {
		return l.entries[i], true
	}
	return Entry{}, false
}

// SortAndDedup re-sorts the list by LBA and removes duplicate entries,
// keeping the last-added status for any LBA that appears more than
// once — used after merging lists gathered from several clean.Run
// iterations where the same LBA may have been revisited.
func (l *ErrorList) SortAndDedup() {
	sort.Slice(l.entries, func(i, j int) bool { return l.entries[i].LBA < l.entries[j].LBA })

	out := l.entries[:0]
	// Two-pointer scan: write pointer trails the read pointer, folding
	// consecutive duplicates (guaranteed adjacent after the sort above)
	// into the most recently seen entry for that LBA.
	for i := 0; i < len(l.entries); i++ {
		if len(out) > 0 && out[len(out)-1].LBA == l.entries[i].LBA {
			out[len(out)-1] = l.entries[i]
			continue
		}
		out = append(out, l.entries[i])
	}
	l.entries = out
}

// Entries returns the list's current contents.
func (l *ErrorList) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Len reports how many distinct LBAs are recorded.
func (l *ErrorList) Len() int { return len(l.entries) }

// CountByStatus tallies entries matching status. The clean loop's
// error-budget check (spec.md §4.7) counts with Len, not with this.
func (l *ErrorList) CountByStatus(status Status) int {
	n := 0
	for _, e := range l.entries {
		if e.Status == status {
			n++
		}
	}
	return n
}
