package reconcile

import (
	"sort"
	"strings"
)

// Set is an unordered collection of identifiers.
type Set map[string]struct{}

// NewSet builds a set from the given keys.
func NewSet(keys ...string) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts a key.
func (s Set) Add(key string) {
	s[key] = struct{}{}
}

// Has reports whether key is a member.
func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Sorted returns the members in lexical order, for logs and error messages.
func (s Set) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Union returns a new set holding the members of s and every other set.
func (s Set) Union(others ...Set) Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	for _, o := range others {
		for k := range o {
			out[k] = struct{}{}
		}
	}
	return out
}

// Lower returns a new set with every member lower-cased.
// Filename prefixes are compared against identifiers through this form.
func (s Set) Lower() Set {
	out := make(Set, len(s))
	for k := range s {
		out[strings.ToLower(k)] = struct{}{}
	}
	return out
}

// Diff is the outcome of comparing the identifiers stored in the database with the
// identifiers declared on disk. Every identifier lands in exactly one bucket.
type Diff struct {
	// ToCreate holds identifiers declared on disk and absent from the store.
	ToCreate Set `json:"to_create"`

	// ToUpdate holds identifiers present in both with a different version.
	ToUpdate Set `json:"to_update"`

	// Unchanged holds identifiers present in both with the same version.
	Unchanged Set `json:"unchanged"`

	// Unused holds identifiers present in the store and absent from disk.
	Unused Set `json:"unused"`
}

// LoadSet is the set of identifiers whose rows must be inserted: created or updated.
func (d Diff) LoadSet() Set {
	return d.ToCreate.Union(d.ToUpdate)
}

// DropSet is the set of identifiers whose rows must be deleted: updated ones are dropped
// before being recreated, unused ones are dropped outright.
func (d Diff) DropSet() Set {
	return d.ToUpdate.Union(d.Unused)
}

// HasChanges reports whether applying the diff would touch the store.
func (d Diff) HasChanges() bool {
	return len(d.ToCreate) > 0 || len(d.ToUpdate) > 0 || len(d.Unused) > 0
}

// ReconcileOptions controls how a reconciliation run behaves.
type ReconcileOptions struct {
	// DryRun computes and validates the plan without mutating the store.
	DryRun bool

	// PruneAbsent drops identifiers tracked in the store but no longer declared on disk.
	// The vocabulary reconciler always prunes; the STCM reconciler honours this flag.
	PruneAbsent bool

	// PendingVocabularies is a vocabulary diff that was planned but not applied, as in
	// a dry run of `load all`. The STCM reconciler checks source vocabularies as if it
	// had been applied: its load set counts as present and its unused set as absent.
	PendingVocabularies *Diff
}
