// Package form is the in-memory stand-in for the document the panel works
// against. It implements the field I/O and location-group contracts the core
// depends on: values addressed by stable field keys, touch tracking, and
// change listeners that survive structural edits without double-firing.
package form

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"credfill/internal/profile"
)

// NotFoundError reports a field key with no corresponding live field, e.g. a
// stale location index after a group was removed mid-flight. Callers are
// expected to log and skip, not abort.
type NotFoundError struct {
	Key profile.FieldKey
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("form: no field %q", e.Key.String())
}

// ChangeListener observes a field write. Listeners are registered under a
// caller-chosen id; re-registering the same id replaces the previous
// listener, so structural edits can re-register without double-firing.
type ChangeListener func(key profile.FieldKey, value string)

// MemoryForm holds the form state: provider-wide scalar fields and an ordered
// sequence of location groups, each with the same eight fields.
type MemoryForm struct {
	mu        sync.Mutex
	scalars   map[string]string
	groups    []map[string]string
	touched   map[string]bool
	listeners map[string]ChangeListener
	// notify suppresses listener dispatch when false; used for restores that
	// must not re-trigger detection.
	notify bool
}

// NewMemoryForm returns a form with one empty location group, matching the
// document's initial state.
func NewMemoryForm() *MemoryForm {
	f := &MemoryForm{
		scalars:   make(map[string]string),
		touched:   make(map[string]bool),
		listeners: make(map[string]ChangeListener),
		notify:    true,
	}
	f.groups = append(f.groups, emptyGroup())
	return f
}

func emptyGroup() map[string]string {
	g := make(map[string]string, len(profile.LocationFieldNames))
	for _, n := range profile.LocationFieldNames {
		g[n] = ""
	}
	return g
}

func (f *MemoryForm) isScalarName(name string) bool {
	switch name {
	case profile.FieldDEA, profile.FieldNPI, profile.FieldLicense,
		profile.FieldName, profile.FieldPrintLicense:
		return true
	}
	return false
}

// Value returns the current raw text of the field.
func (f *MemoryForm) Value(key profile.FieldKey) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.valueLocked(key)
}

func (f *MemoryForm) valueLocked(key profile.FieldKey) (string, error) {
	if key.IsScalar() {
		if !f.isScalarName(key.Name) {
			return "", &NotFoundError{Key: key}
		}
		return f.scalars[key.Name], nil
	}
	if key.Index >= len(f.groups) {
		return "", &NotFoundError{Key: key}
	}
	v, ok := f.groups[key.Index][key.Name]
	if !ok {
		return "", &NotFoundError{Key: key}
	}
	return v, nil
}

// SetValue writes the field and dispatches change listeners.
func (f *MemoryForm) SetValue(key profile.FieldKey, value string) error {
	f.mu.Lock()
	if key.IsScalar() {
		if !f.isScalarName(key.Name) {
			f.mu.Unlock()
			return &NotFoundError{Key: key}
		}
		f.scalars[key.Name] = value
	} else {
		if key.Index >= len(f.groups) {
			f.mu.Unlock()
			return &NotFoundError{Key: key}
		}
		if _, ok := f.groups[key.Index][key.Name]; !ok {
			f.mu.Unlock()
			return &NotFoundError{Key: key}
		}
		f.groups[key.Index][key.Name] = value
	}
	notify := f.notify
	ls := make([]ChangeListener, 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()

	if notify {
		for _, l := range ls {
			l(key, value)
		}
	}
	return nil
}

// SetValueQuiet writes without dispatching listeners. The review workflow
// uses it when applying confirmed values, so the apply does not re-trigger
// detection.
func (f *MemoryForm) SetValueQuiet(key profile.FieldKey, value string) error {
	f.mu.Lock()
	f.notify = false
	f.mu.Unlock()
	err := f.SetValue(key, value)
	f.mu.Lock()
	f.notify = true
	f.mu.Unlock()
	return err
}

// MarkTouched records that the user or the autofill wrote the field. Only
// touched fields are eligible for change detection.
func (f *MemoryForm) MarkTouched(key profile.FieldKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[key.String()] = true
}

// Touched reports whether the field has been written this session.
func (f *MemoryForm) Touched(key profile.FieldKey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched[key.String()]
}

// ClearTouched forgets all touch state; called when the panel session resets.
func (f *MemoryForm) ClearTouched() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = make(map[string]bool)
}

// RegisterListener installs a change listener under id. Registration is
// idempotent: the same id replaces, never stacks, so callers may re-register
// after every structural change without listeners double-firing.
func (f *MemoryForm) RegisterListener(id string, l ChangeListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners[id] = l
}

// RemoveListener uninstalls the listener registered under id.
func (f *MemoryForm) RemoveListener(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listeners, id)
}

// GroupCount returns the number of location groups on the form.
func (f *MemoryForm) GroupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.groups)
}

// AddGroup appends an empty location group and returns its index.
func (f *MemoryForm) AddGroup() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, emptyGroup())
	return len(f.groups) - 1
}

// RemoveGroup deletes the group at index and re-indexes the rest, preserving
// the "{name}-{index}" key convention. Touch state for the removed and
// shifted groups is dropped, then re-established for shifted fields that
// still hold a value (a populated field stays eligible for detection under
// its new index).
func (f *MemoryForm) RemoveGroup(index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.groups) {
		return &NotFoundError{Key: profile.LocationKey("group", index)}
	}
	if len(f.groups) == 1 {
		return fmt.Errorf("form: cannot remove the last location group")
	}

	for i := index; i < len(f.groups); i++ {
		for _, name := range profile.LocationFieldNames {
			delete(f.touched, profile.LocationKey(name, i).String())
		}
	}

	f.groups = append(f.groups[:index], f.groups[index+1:]...)

	for i := index; i < len(f.groups); i++ {
		for _, name := range profile.LocationFieldNames {
			if strings.TrimSpace(f.groups[i][name]) != "" {
				f.touched[profile.LocationKey(name, i).String()] = true
			}
		}
	}
	return nil
}

// Snapshot returns the current raw value of every field, keyed by the wire
// form of its FieldKey. The result is a fresh copy per call; detection never
// reuses a stale snapshot.
func (f *MemoryForm) Snapshot() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := make(map[string]string, len(f.scalars)+len(f.groups)*len(profile.LocationFieldNames))
	for name, v := range f.scalars {
		snap[name] = v
	}
	for i, g := range f.groups {
		for name, v := range g {
			snap[profile.LocationKey(name, i).String()] = v
		}
	}
	return snap
}

// Keys returns every live field key in a stable order: scalars first, then
// location groups in index order.
func (f *MemoryForm) Keys() []profile.FieldKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]profile.FieldKey, 0)
	scalars := make([]string, 0, len(f.scalars))
	for name := range f.scalars {
		scalars = append(scalars, name)
	}
	sort.Strings(scalars)
	for _, name := range scalars {
		keys = append(keys, profile.ScalarKey(name))
	}
	for i := range f.groups {
		for _, name := range profile.LocationFieldNames {
			keys = append(keys, profile.LocationKey(name, i))
		}
	}
	return keys
}
