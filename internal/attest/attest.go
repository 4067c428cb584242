// Package attest manages the attestation queue: externally sourced profile
// updates the provider must approve or revert before re-attesting. The queue
// supports substring search, category/source/time filters, stable
// multi-column sorting, and bulk approval of the filtered view.
package attest

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedData []byte

// Status is the resolution state of a queue item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusReverted Status = "reverted"
)

// HistoryEntry is one line of an item's provenance trail.
type HistoryEntry struct {
	Date string `yaml:"date"`
	Time string `yaml:"time"`
	Text string `yaml:"text"`
}

// Item is one externally sourced update awaiting attestation.
type Item struct {
	ID            string         `yaml:"id,omitempty"`
	Category      string         `yaml:"category"`
	NewValue      string         `yaml:"new_value"`
	OldValue      string         `yaml:"old_value"`
	EffectiveDate time.Time      `yaml:"effective_date"`
	Source        string         `yaml:"source"`
	History       []HistoryEntry `yaml:"history,omitempty"`
	Status        Status         `yaml:"status,omitempty"`

	// seq is the load order, used as the stable sort tie-break.
	seq int
}

// ShortDate renders the effective date the way the dashboard table shows it.
func (it Item) ShortDate() string {
	return it.EffectiveDate.Format("1/2/2006")
}

// Window bounds the time filter to a preset span or a custom range.
type Window string

const (
	WindowAll    Window = ""
	Window24h    Window = "24h"
	WindowWeek   Window = "week"
	WindowMonth  Window = "month"
	WindowCustom Window = "custom"
)

// Filter selects a subset of the queue. Zero value selects everything.
type Filter struct {
	// Search matches case-insensitively against category, values, source,
	// and the short date.
	Search     string
	Categories []string
	Sources    []string
	Window     Window
	// From and To bound WindowCustom; a zero bound is open.
	From time.Time
	To   time.Time
}

// Sort columns.
const (
	ColCategory = "category"
	ColNewValue = "new"
	ColOldValue = "old"
	ColDate     = "date"
	ColSource   = "source"
)

// Sort orders the filtered view. The zero value sorts by effective date,
// newest first.
type Sort struct {
	Column string
	Asc    bool
}

// Queue is the in-memory attestation queue.
type Queue struct {
	mu    sync.Mutex
	items []*Item
	now   func() time.Time
}

type seedFile struct {
	Items []*Item `yaml:"items"`
}

// NewQueue loads the queue from path, or from the embedded demonstration
// seed when path is empty.
func NewQueue(path string) (*Queue, error) {
	data := seedData
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read attestation seed: %w", err)
		}
		data = b
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse attestation seed: %w", err)
	}
	q := &Queue{now: time.Now}
	for i, it := range f.Items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.Status == "" {
			it.Status = StatusPending
		}
		it.seq = i
		q.items = append(q.items, it)
	}
	return q, nil
}

// SetNow overrides the clock used by time-window filters.
func (q *Queue) SetNow(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

// Len returns the total number of items, filtered or not.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns the filtered, sorted view. The returned slice is fresh but
// shares the underlying items, so status changes through Approve and Revert
// are visible in held views.
func (q *Queue) Items(f Filter, s Sort) []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	out := make([]*Item, 0, len(q.items))
	for _, it := range q.items {
		if q.matchesLocked(it, f, now) {
			out = append(out, it)
		}
	}
	sortItems(out, s)
	return out
}

func (q *Queue) matchesLocked(it *Item, f Filter, now time.Time) bool {
	if f.Search != "" {
		s := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(it.Category), s) &&
			!strings.Contains(strings.ToLower(it.NewValue), s) &&
			!strings.Contains(strings.ToLower(it.OldValue), s) &&
			!strings.Contains(strings.ToLower(it.Source), s) &&
			!strings.Contains(it.ShortDate(), s) {
			return false
		}
	}
	if len(f.Categories) > 0 && !containsFold(f.Categories, it.Category) {
		return false
	}
	if len(f.Sources) > 0 && !containsFold(f.Sources, it.Source) {
		return false
	}
	switch f.Window {
	case Window24h:
		return it.EffectiveDate.After(now.Add(-24 * time.Hour))
	case WindowWeek:
		return it.EffectiveDate.After(now.AddDate(0, 0, -7))
	case WindowMonth:
		return it.EffectiveDate.After(now.AddDate(0, -1, 0))
	case WindowCustom:
		if !f.From.IsZero() && it.EffectiveDate.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && it.EffectiveDate.After(f.To) {
			return false
		}
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func sortItems(items []*Item, s Sort) {
	less := func(a, b *Item) bool {
		switch s.Column {
		case ColCategory:
			return a.Category < b.Category
		case ColNewValue:
			return a.NewValue < b.NewValue
		case ColOldValue:
			return a.OldValue < b.OldValue
		case ColSource:
			return a.Source < b.Source
		default:
			return a.EffectiveDate.Before(b.EffectiveDate)
		}
	}
	asc := s.Asc
	if s.Column == "" {
		// Default view: newest first.
		asc = false
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if less(a, b) != less(b, a) {
			if asc {
				return less(a, b)
			}
			return less(b, a)
		}
		// Equal under the column: load order keeps the view stable.
		return a.seq < b.seq
	})
}

func (q *Queue) find(id string) *Item {
	for _, it := range q.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Approve marks the item approved.
func (q *Queue) Approve(id string) error {
	return q.setStatus(id, StatusApproved)
}

// Revert marks the item reverted: the provider rejects the external update
// and keeps the previous value on file.
func (q *Queue) Revert(id string) error {
	return q.setStatus(id, StatusReverted)
}

func (q *Queue) setStatus(id string, st Status) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	it := q.find(id)
	if it == nil {
		return fmt.Errorf("attest: no item %q", id)
	}
	it.Status = st
	return nil
}

// ApproveAll approves every still-pending item in the filtered view and
// returns how many it approved.
func (q *Queue) ApproveAll(f Filter) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	n := 0
	for _, it := range q.items {
		if it.Status == StatusPending && q.matchesLocked(it, f, now) {
			it.Status = StatusApproved
			n++
		}
	}
	return n
}

// AllResolved reports whether no item remains pending; re-attestation is
// allowed only once this holds.
func (q *Queue) AllResolved() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.Status == StatusPending {
			return false
		}
	}
	return true
}

// PendingCount returns the number of unresolved items.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, it := range q.items {
		if it.Status == StatusPending {
			n++
		}
	}
	return n
}

// CategoryCounts tallies items per category, for the dashboard's tab badges.
func (q *Queue) CategoryCounts() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	counts := make(map[string]int)
	for _, it := range q.items {
		counts[it.Category]++
	}
	return counts
}

// Categories returns the distinct categories in load order.
func (q *Queue) Categories() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.distinctLocked(func(it *Item) string { return it.Category })
}

// Sources returns the distinct sources in load order.
func (q *Queue) Sources() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.distinctLocked(func(it *Item) string { return it.Source })
}

func (q *Queue) distinctLocked(key func(*Item) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range q.items {
		k := key(it)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// SourceLink resolves the public portal URL for a data source, or "" when
// none is known.
func SourceLink(source string) string {
	switch source {
	case "Pennsylvania DHS":
		return "https://provider.enrollment.dhs.pa.gov/RequestInfo"
	case "PA State Board", "PA Medical Board":
		return "https://www.pa.gov/agencies/dos/department-and-offices/bpoa/boards-commissions/medicine.html"
	case "Diversion Control Division":
		return "https://www.deadiversion.usdoj.gov/"
	}
	return ""
}
