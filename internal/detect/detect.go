// Package detect diffs a form snapshot against the reference profile and
// produces the minimal set of field-level discrepancies. Detection is pure
// and read-only: it never mutates the snapshot or the profile.
package detect

import (
	"fmt"
	"sort"

	"credfill/internal/normalize"
	"credfill/internal/profile"
)

// FieldType classifies where a changed field lives.
type FieldType string

const (
	// TypeScalar marks a provider-wide field (DEA, NPI, license, name).
	TypeScalar FieldType = "scalar"
	// TypeLocation marks a field inside a repeated location group.
	TypeLocation FieldType = "location"
)

// Change is one detected discrepancy between the form and the reference
// profile. Values are raw (un-normalized) so the review UI shows what the
// user actually typed.
type Change struct {
	Key            profile.FieldKey
	Type           FieldType
	LocationIndex  int
	CurrentValue   string
	ReferenceValue string
	DisplayName    string
	// NewLocation marks a change in a location group beyond the profile's
	// known locations; such changes carry no reference value.
	NewLocation bool
}

// identity is the tuple that determines change-set equality.
func (c Change) identity() string {
	return fmt.Sprintf("%s|%s|%s", c.Key.String(), c.Type, c.CurrentValue)
}

// ChangeSet is an ordered sequence of changes. A nil ChangeSet means
// "nothing to report"; detection never returns an empty non-nil set.
type ChangeSet []Change

// Detect compares the snapshot against the reference profile and returns the
// discrepancies, or nil when there are none. A field contributes a change
// only when its normalized snapshot value is non-empty and differs from the
// normalized reference value; formatting-only differences (case, punctuation,
// abbreviations) are suppressed by normalization.
func Detect(snapshot map[string]string, ref *profile.ReferenceProfile) ChangeSet {
	var out ChangeSet

	for _, name := range profile.ScalarFieldNames {
		raw, ok := snapshot[name]
		if !ok {
			continue
		}
		refVal := ref.Scalar(name)
		if normalize.Normalize(raw) == "" || normalize.Equal(raw, refVal) {
			continue
		}
		out = append(out, Change{
			Key:            profile.ScalarKey(name),
			Type:           TypeScalar,
			LocationIndex:  -1,
			CurrentValue:   raw,
			ReferenceValue: refVal,
			DisplayName:    profile.DisplayName(profile.ScalarKey(name)),
		})
	}

	for _, idx := range locationIndexes(snapshot) {
		isNew := idx >= len(ref.Locations)
		for _, name := range profile.LocationFieldNames {
			key := profile.LocationKey(name, idx)
			raw, ok := snapshot[key.String()]
			if !ok {
				continue
			}
			cur := normalize.Normalize(raw)
			if cur == "" {
				continue
			}

			if isNew {
				// Any populated field of an unknown group is a change; there
				// is no reference value to suppress against.
				out = append(out, Change{
					Key:           key,
					Type:          TypeLocation,
					LocationIndex: idx,
					CurrentValue:  raw,
					DisplayName:   profile.DisplayName(key),
					NewLocation:   true,
				})
				continue
			}

			// Specialty resolves provider-wide and fax resolves to the empty
			// string; both special cases live in LocationField.
			refVal := ref.LocationField(idx, name)
			if normalize.Equal(raw, refVal) {
				continue
			}
			out = append(out, Change{
				Key:            key,
				Type:           TypeLocation,
				LocationIndex:  idx,
				CurrentValue:   raw,
				ReferenceValue: refVal,
				DisplayName:    profile.DisplayName(key),
			})
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// locationIndexes lists the location group indexes present in the snapshot,
// ascending.
func locationIndexes(snapshot map[string]string) []int {
	seen := make(map[int]bool)
	for s := range snapshot {
		key := profile.ParseFieldKey(s)
		if !key.IsScalar() {
			seen[key.Index] = true
		}
	}
	idxs := make([]int, 0, len(seen))
	for i := range seen {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	return idxs
}

// SameChangeSet reports whether two change sets are semantically identical:
// their identity tuples form equal sets, regardless of order or duplicates.
// The review workflow uses it to avoid re-prompting for an unchanged result.
func SameChangeSet(a, b ChangeSet) bool {
	if a == nil || b == nil {
		return false
	}
	setA := identitySet(a)
	setB := identitySet(b)
	if len(setA) != len(setB) {
		return false
	}
	for id := range setA {
		if !setB[id] {
			return false
		}
	}
	return true
}

func identitySet(cs ChangeSet) map[string]bool {
	s := make(map[string]bool, len(cs))
	for _, c := range cs {
		s[c.identity()] = true
	}
	return s
}

// PreviousValue resolves the raw (un-normalized) reference value shown as
// "Previous" on a review card. New-location changes have none.
func PreviousValue(c Change, ref *profile.ReferenceProfile) string {
	if c.NewLocation {
		return ""
	}
	if c.Type == TypeScalar {
		return ref.Scalar(c.Key.Name)
	}
	return ref.LocationField(c.LocationIndex, c.Key.Name)
}
