// Package review drives the change-review workflow: it watches form edits,
// waits for the typing burst to settle, runs change detection over the
// touched fields, and walks the user through confirming or discarding what it
// found. Confirmed values are applied to the form and the reference profile
// in one all-or-nothing step.
package review

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"credfill/internal/detect"
	"credfill/internal/form"
	"credfill/internal/panel"
	"credfill/internal/profile"
)

// listenerID keys the workflow's form listener; re-attaching under the same
// id replaces rather than stacks.
const listenerID = "review-workflow"

// ValidationError reports one proposal that failed validation. Apply is
// all-or-nothing, so a single ValidationError blocks the whole confirm.
type ValidationError struct {
	Key     profile.FieldKey
	Display string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("review: %s: %s", e.Display, e.Message)
}

// Proposal is one detected change presented for review. Proposed starts as
// the form's current value and may be edited in the panel before confirming.
type Proposal struct {
	Change   detect.Change
	Previous string
	Proposed string
}

// Workflow owns the detect-review-apply loop for one session.
type Workflow struct {
	form    *form.MemoryForm
	ref     *profile.ReferenceProfile
	session *panel.Session
	deb     *Debouncer
	settle  time.Duration
	log     *zap.Logger

	mu            sync.Mutex
	lastShown     detect.ChangeSet
	lastConfirmed detect.ChangeSet
}

// NewWorkflow builds the workflow. quiet is the debounce window after the
// last keystroke; settle is the extra delay before detection runs, giving
// dependent fields (state/zip auto-complete and the like) time to land.
func NewWorkflow(f *form.MemoryForm, ref *profile.ReferenceProfile, s *panel.Session, quiet, settle time.Duration, log *zap.Logger) *Workflow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Workflow{
		form:    f,
		ref:     ref,
		session: s,
		deb:     NewDebouncer(quiet),
		settle:  settle,
		log:     log,
	}
}

// Attach registers the workflow as the form's change listener. Attaching is
// idempotent.
func (w *Workflow) Attach() {
	w.form.RegisterListener(listenerID, w.FieldEdited)
}

// Detach removes the form listener and cancels any pending evaluation.
func (w *Workflow) Detach() {
	w.form.RemoveListener(listenerID)
	w.deb.Cancel()
}

// FieldEdited is the form change listener. Edits arriving while an autofill
// run is writing the form are the autofill's own writes and are ignored;
// anything else marks the field touched and schedules an evaluation.
func (w *Workflow) FieldEdited(key profile.FieldKey, value string) {
	if w.session.AutofillInProgress() {
		return
	}
	w.form.MarkTouched(key)
	w.deb.Debounce(func() {
		if w.settle > 0 {
			time.AfterFunc(w.settle, w.Evaluate)
			return
		}
		w.Evaluate()
	})
}

// Evaluate runs detection over the touched fields and routes the result:
// nothing found dismisses an open review, a repeat of what is already on
// screen is left alone, a repeat of what was already confirmed jumps straight
// to the confirmation, and anything else opens the review panel.
func (w *Workflow) Evaluate() {
	if w.session.AutofillInProgress() {
		return
	}
	changes := detect.Detect(w.touchedSnapshot(), w.ref)

	w.mu.Lock()
	defer w.mu.Unlock()

	if changes == nil {
		w.lastShown = nil
		if w.session.View() == panel.ViewChangeReview {
			w.session.Show(panel.ViewLocationPicker, nil)
		}
		return
	}

	if w.session.View() == panel.ViewChangeReview && detect.SameChangeSet(changes, w.lastShown) {
		// The open panel already shows exactly this; re-rendering would
		// discard any in-panel edits.
		return
	}

	if w.session.ConfirmationShown() && detect.SameChangeSet(changes, w.lastConfirmed) {
		w.session.Show(panel.ViewChangeConfirmed, nil)
		return
	}

	w.lastShown = changes
	w.log.Info("changes detected", zap.Int("count", len(changes)))
	w.session.Show(panel.ViewChangeReview, w.proposalsLocked())
}

// EvaluateNow cancels any pending debounced evaluation and runs one
// immediately, e.g. right after an autofill run finishes and the form should
// be checked without waiting out the quiet period.
func (w *Workflow) EvaluateNow() {
	w.deb.Immediate(w.Evaluate)
}

// touchedSnapshot filters the form snapshot down to fields the user or the
// autofill has actually written; untouched fields never raise changes.
func (w *Workflow) touchedSnapshot() map[string]string {
	snap := w.form.Snapshot()
	out := make(map[string]string, len(snap))
	for k, v := range snap {
		if w.form.Touched(profile.ParseFieldKey(k)) {
			out[k] = v
		}
	}
	return out
}

// Proposals returns the review cards for the currently shown change set.
func (w *Workflow) Proposals() []Proposal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.proposalsLocked()
}

func (w *Workflow) proposalsLocked() []Proposal {
	out := make([]Proposal, 0, len(w.lastShown))
	for _, c := range w.lastShown {
		out = append(out, Proposal{
			Change:   c,
			Previous: detect.PreviousValue(c, w.ref),
			Proposed: c.CurrentValue,
		})
	}
	return out
}

// Validate checks one proposed value: phone fields must hold exactly ten
// digits once formatting is stripped, everything else must be non-empty.
func Validate(key profile.FieldKey, display, value string) *ValidationError {
	if profile.IsPhoneField(key) {
		if len(digits(value)) != 10 {
			return &ValidationError{Key: key, Display: display, Message: "must contain exactly 10 digits"}
		}
		return nil
	}
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Key: key, Display: display, Message: "cannot be empty"}
	}
	return nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteString(string(r))
		}
	}
	return b.String()
}

// ConfirmAll validates every proposal and, only when all pass, applies the
// values to the form and the reference profile. edits maps a field key's wire
// form to an in-panel override; fields absent from edits keep the detected
// value. On validation failure nothing is applied and the failures are
// returned.
func (w *Workflow) ConfirmAll(edits map[string]string) []*ValidationError {
	w.mu.Lock()
	changes := w.lastShown
	w.mu.Unlock()
	if changes == nil {
		return nil
	}

	values := make([]string, len(changes))
	var errs []*ValidationError
	for i, c := range changes {
		v := c.CurrentValue
		if ed, ok := edits[c.Key.String()]; ok {
			v = ed
		}
		values[i] = v
		if verr := Validate(c.Key, c.DisplayName, v); verr != nil {
			errs = append(errs, verr)
		}
	}
	if len(errs) > 0 {
		w.log.Info("confirm blocked by validation", zap.Int("failures", len(errs)))
		return errs
	}

	w.session.SetReviewInProgress(true)
	defer w.session.SetReviewInProgress(false)

	confirmed := make(detect.ChangeSet, 0, len(changes))
	for i, c := range changes {
		v := values[i]
		// Quiet writes: applying the review must not re-trigger it.
		if err := w.form.SetValueQuiet(c.Key, v); err != nil {
			w.log.Warn("apply: field missing, skipping",
				zap.String("field", c.Key.String()))
		} else {
			w.form.MarkTouched(c.Key)
		}

		if !c.NewLocation {
			if c.Type == detect.TypeScalar {
				w.ref.SetScalar(c.Key.Name, v)
			} else {
				// SetLocationField routes specialty provider-wide and drops
				// fax; the form keeps the fax value, the profile never does.
				w.ref.SetLocationField(c.LocationIndex, c.Key.Name, v)
			}
		}

		cc := c
		cc.CurrentValue = v
		confirmed = append(confirmed, cc)
	}

	w.mu.Lock()
	w.lastConfirmed = confirmed
	w.lastShown = nil
	w.mu.Unlock()

	w.log.Info("changes confirmed", zap.Int("count", len(confirmed)))
	w.session.Show(panel.ViewChangeConfirmed, nil)
	return nil
}

// Cancel discards the shown change set and closes the review. The form keeps
// whatever the user typed; the fields stay touched, so the next evaluation
// detects the same drift again.
func (w *Workflow) Cancel() {
	w.mu.Lock()
	n := len(w.lastShown)
	w.lastShown = nil
	w.mu.Unlock()

	w.log.Info("review dismissed", zap.Int("discarded", n))
	w.session.Show(panel.ViewLocationPicker, nil)
}

// Reset forgets shown and confirmed change sets, e.g. when the panel closes.
func (w *Workflow) Reset() {
	w.deb.Cancel()
	w.mu.Lock()
	w.lastShown = nil
	w.lastConfirmed = nil
	w.mu.Unlock()
}
