package hardlinkfilemap

func New() *Index {
	return &Index{
		hardlinkFileMap: make(map[FileID]int),
	}
}

// Add associates a record index with id and reports whether id was new. Only
// the first index of an id is kept.
func (t *Index) Add(id FileID, idx int) bool {
	if _, exists := t.hardlinkFileMap[id]; exists {
		// file id already associated with another path
		return false
	}

	t.hardlinkFileMap[id] = idx
	return true
}

// Representative returns the first record index added for id.
func (t *Index) Representative(id FileID) (int, bool) {
	idx, exists := t.hardlinkFileMap[id]
	return idx, exists
}

// Distinct counts the distinct FileIDs among ids.
func Distinct(ids []FileID) int {
	seen := make(map[FileID]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

func (t *Index) Length() int {
	return len(t.hardlinkFileMap)
}
