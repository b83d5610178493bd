package core

// DedupKey identifies a recurring obligation already satisfied for a period.
type DedupKey struct {
	Interval    Interval
	Category    string
	Description string
	Label       string
}

// DedupIndex is a point-in-time set of satisfied obligations for one owner.
type DedupIndex struct {
	keys map[DedupKey]struct{}
}

// SkippedEntry is a ledger entry left out of the index.
type SkippedEntry struct {
	Entry LedgerEntry
	Err   error
}

// BuildDedupIndex indexes every entry under every interval kind, since the
// index cannot tell which entries came from which template. Entries with an
// unparseable date are returned instead of aborting the build.
func BuildDedupIndex(entries []LedgerEntry) (DedupIndex, []SkippedEntry) {
	idx := DedupIndex{keys: make(map[DedupKey]struct{}, len(entries)*2)}
	var skipped []SkippedEntry

	for _, e := range entries {
		t, err := ParseDate(e.Date)
		if err != nil {
			skipped = append(skipped, SkippedEntry{Entry: e, Err: err})
			continue
		}
		desc := dedupDescription(e.Category, e.Description)
		for _, interval := range Intervals() {
			period, err := PeriodOf(t, interval)
			if err != nil {
				continue
			}
			idx.keys[DedupKey{
				Interval:    interval,
				Category:    e.Category,
				Description: desc,
				Label:       period.Label,
			}] = struct{}{}
		}
	}

	return idx, skipped
}

// KeyForTemplate builds the key a template must be absent under to be
// materialized in the given period.
func KeyForTemplate(t RecurringTemplate, period PeriodKey) DedupKey {
	return DedupKey{
		Interval:    period.Interval,
		Category:    t.Category,
		Description: dedupDescription(t.Category, t.Description),
		Label:       period.Label,
	}
}

// Contains reports whether key is already satisfied.
func (i DedupIndex) Contains(key DedupKey) bool {
	_, ok := i.keys[key]
	return ok
}

// Len returns the number of keys.
func (i DedupIndex) Len() int {
	return len(i.keys)
}

// The generated placeholder counts as an empty description, otherwise an
// auto-inserted entry would never match the template that produced it.
func dedupDescription(category, description string) string {
	if description == PlaceholderDescription(category) {
		return ""
	}
	return description
}
