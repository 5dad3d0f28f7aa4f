package reconcile

// ComputeDiff compares the identifier->version map held by the store with the one
// declared on disk.
//
// For each declared identifier: absent from the store -> ToCreate; present with a different
// version -> ToUpdate; same version -> Unchanged. Stored identifiers not declared on disk
// are Unused. The comparison is exact; an empty version is a version like any other.
func ComputeDiff(current, declared map[string]string) Diff {
	diff := Diff{
		ToCreate:  make(Set),
		ToUpdate:  make(Set),
		Unchanged: make(Set),
		Unused:    make(Set),
	}

	for id, version := range declared {
		stored, exists := current[id]
		switch {
		case !exists:
			diff.ToCreate.Add(id)
		case stored != version:
			diff.ToUpdate.Add(id)
		default:
			diff.Unchanged.Add(id)
		}
	}

	for id := range current {
		if _, declaredOnDisk := declared[id]; !declaredOnDisk {
			diff.Unused.Add(id)
		}
	}

	return diff
}
