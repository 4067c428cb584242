// Package panel owns the side-panel state machine: a closed set of mutually
// exclusive views, the session flags that guard transitions, and the close
// rules that keep the panel from disappearing underneath an in-flight
// autofill or review.
package panel

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// View is one of the panel's mutually exclusive views. Exactly one view is
// visible while the panel is open; Closed means no sub-view is visible.
type View int

const (
	ViewClosed View = iota
	ViewLogin
	ViewLocationPicker
	ViewProgress
	ViewSuccess
	ViewChangeReview
	ViewChangeConfirmed
	ViewProfile
)

var viewNames = map[View]string{
	ViewClosed:          "closed",
	ViewLogin:           "login",
	ViewLocationPicker:  "location-picker",
	ViewProgress:        "progress",
	ViewSuccess:         "success",
	ViewChangeReview:    "change-review",
	ViewChangeConfirmed: "change-confirmed",
	ViewProfile:         "profile",
}

func (v View) String() string { return viewNames[v] }

// Header returns the panel header text shown on entry to the view.
func (v View) Header() string {
	switch v {
	case ViewLogin:
		return "Sign in"
	case ViewLocationPicker:
		return "Autofill"
	case ViewChangeReview:
		return "Updates Detected"
	case ViewProfile:
		return "Account Information"
	}
	return ""
}

// ErrStateConflict marks an operation refused by a guard flag, e.g. an
// ambient close during autofill. It reflects expected guard behavior, not a
// failure; callers treat it as a no-op.
var ErrStateConflict = errors.New("panel: operation blocked by in-progress guard")

// Renderer is the presentation collaborator. The session calls ShowView with
// the view and its payload; rendering the corresponding markup is entirely
// the renderer's concern.
type Renderer interface {
	ShowView(v View, payload any)
}

// Session is the per-panel mutable state: the visible view plus the advisory
// flags that serialize autofill runs and review applies. It replaces the
// ambient globals of earlier prototypes with a single injected owner.
type Session struct {
	mu       sync.Mutex
	id       string
	view     View
	renderer Renderer
	log      *zap.Logger

	autofillInProgress bool
	reviewInProgress   bool
	confirmationShown  bool
	signedIn           bool
}

// NewSession returns a session in the Closed state.
func NewSession(r Renderer, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		id:       uuid.NewString(),
		view:     ViewClosed,
		renderer: r,
		log:      log,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// View returns the currently visible view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Show transitions to view v, hiding all others, and forwards the payload to
// the renderer. Entry side effects: ChangeConfirmed records that the user has
// seen the confirmation this session so an identical change set skips
// straight there next time, and Closed resets every session flag.
func (s *Session) Show(v View, payload any) {
	s.mu.Lock()
	prev := s.view
	s.view = v
	switch v {
	case ViewChangeConfirmed:
		s.confirmationShown = true
	case ViewClosed:
		s.resetLocked()
	}
	r := s.renderer
	s.mu.Unlock()

	s.log.Debug("panel view transition",
		zap.String("from", prev.String()),
		zap.String("to", v.String()))
	if r != nil {
		r.ShowView(v, payload)
	}
}

// Open shows the view a fresh panel opening lands on: the location picker
// when signed in, the login view otherwise.
func (s *Session) Open() {
	if s.SignedIn() {
		s.Show(ViewLocationPicker, nil)
		return
	}
	s.Show(ViewLogin, nil)
}

// CloseExplicit closes the panel via a close control. Explicit closes always
// succeed regardless of guard flags.
func (s *Session) CloseExplicit() {
	s.Show(ViewClosed, nil)
}

// CloseAmbient closes the panel from an ambient dismissal (outside click,
// Escape). It is refused with ErrStateConflict while an autofill or review
// apply is in flight, and while the change-review view is open and the
// dismissal landed on a live form field, so the user can keep editing the
// form without losing the review panel.
func (s *Session) CloseAmbient(onFormField bool) error {
	s.mu.Lock()
	if s.autofillInProgress || s.reviewInProgress ||
		(s.view == ViewChangeReview && onFormField) {
		view := s.view
		s.mu.Unlock()
		s.log.Debug("ambient close suppressed",
			zap.String("view", view.String()),
			zap.Bool("on_form_field", onFormField))
		return ErrStateConflict
	}
	s.mu.Unlock()
	s.Show(ViewClosed, nil)
	return nil
}

// Reset restores all session flags to their defaults. Called when the panel
// closes and when a fresh autofill starts.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.autofillInProgress = false
	s.reviewInProgress = false
	s.confirmationShown = false
}

// SignIn records a successful (simulated) sign-in.
func (s *Session) SignIn() {
	s.mu.Lock()
	s.signedIn = true
	s.mu.Unlock()
}

// SignOut clears the signed-in state and returns to the login view.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.signedIn = false
	s.resetLocked()
	s.mu.Unlock()
	s.Show(ViewLogin, nil)
}

// SignedIn reports whether the simulated login has completed.
func (s *Session) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signedIn
}

// Flag accessors. The in-progress flags act as advisory mutexes against
// overlapping autofill runs or review applies.

func (s *Session) SetAutofillInProgress(v bool) {
	s.mu.Lock()
	s.autofillInProgress = v
	s.mu.Unlock()
}

func (s *Session) AutofillInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autofillInProgress
}

func (s *Session) SetReviewInProgress(v bool) {
	s.mu.Lock()
	s.reviewInProgress = v
	s.mu.Unlock()
}

func (s *Session) ReviewInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviewInProgress
}

func (s *Session) SetConfirmationShown(v bool) {
	s.mu.Lock()
	s.confirmationShown = v
	s.mu.Unlock()
}

func (s *Session) ConfirmationShown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmationShown
}
