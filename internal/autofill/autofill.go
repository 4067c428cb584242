// Package autofill runs the form-filling task: it reshapes the form's
// location groups to match the user's selection, types the reference profile
// into every field, and simulates the document upload, while honoring pause,
// resume, and abort at every step boundary.
package autofill

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"credfill/internal/form"
	"credfill/internal/panel"
	"credfill/internal/profile"
)

// ErrAborted is returned by Run when the task was aborted, whether by an
// explicit abort or by the pause timeout.
var ErrAborted = errors.New("autofill: task aborted")

// State is the task lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateAborted
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateAborted:
		return "aborted"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Timing groups the delays the task sleeps between steps. Zero values are
// valid and make the task run flat out, which the tests rely on.
type Timing struct {
	// WordDelay is the pause between typed words of a field value.
	WordDelay time.Duration
	// FieldDelay is the pause between fields.
	FieldDelay time.Duration
	// UploadTick is the interval between simulated upload progress bumps.
	UploadTick time.Duration
	// PauseAbortAfter bounds how long a pause may last before the task
	// aborts itself rather than hold the form hostage.
	PauseAbortAfter time.Duration
}

// Progress is one progress update pushed to the panel while the task runs.
type Progress struct {
	Label   string
	Percent int
}

// ProgressFunc receives progress updates. It is called from the task
// goroutine.
type ProgressFunc func(Progress)

// Task is a single autofill run over the form. A Task is single-use: create,
// Start, wait on Done.
type Task struct {
	form     *form.MemoryForm
	ref      *profile.ReferenceProfile
	session  *panel.Session
	timing   Timing
	log      *zap.Logger
	progress ProgressFunc

	// selected holds indexes into ref.Locations, in form-group order.
	selected []int

	mu    sync.Mutex
	state State
	wake  chan struct{}

	done chan struct{}
	err  error

	rng *rand.Rand
}

// NewTask prepares an autofill run for the selected reference locations.
func NewTask(f *form.MemoryForm, ref *profile.ReferenceProfile, s *panel.Session, selected []int, timing Timing, progress ProgressFunc, log *zap.Logger) *Task {
	if log == nil {
		log = zap.NewNop()
	}
	if progress == nil {
		progress = func(Progress) {}
	}
	return &Task{
		form:     f,
		ref:      ref,
		session:  s,
		timing:   timing,
		log:      log,
		progress: progress,
		selected: append([]int(nil), selected...),
		state:    StateIdle,
		done:     make(chan struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// State returns the current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed when the task goroutine has finished, on any path.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the terminal error after Done is closed: nil on success,
// ErrAborted on any abort path.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Start launches the task goroutine. It refuses to start when another
// autofill is already in flight. A fresh run begins a fresh session: the
// guard flags and the form's touch state from any earlier run are cleared
// before the first field is written.
func (t *Task) Start() error {
	if t.session.AutofillInProgress() {
		return fmt.Errorf("autofill: a run is already in progress")
	}
	if len(t.selected) == 0 {
		return fmt.Errorf("autofill: no locations selected")
	}
	t.mu.Lock()
	t.state = StateRunning
	t.mu.Unlock()

	t.session.Reset()
	t.form.ClearTouched()
	t.session.SetAutofillInProgress(true)
	t.session.Show(panel.ViewProgress, nil)
	go t.run()
	return nil
}

// Pause suspends the task at its next step boundary. A pause that lasts
// longer than Timing.PauseAbortAfter aborts the task.
func (t *Task) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		return
	}
	t.state = StatePaused
	t.wake = make(chan struct{})
	t.log.Info("autofill paused")
}

// Resume continues a paused task.
func (t *Task) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePaused {
		return
	}
	t.state = StateRunning
	close(t.wake)
	t.wake = nil
	t.log.Info("autofill resumed")
}

// Abort stops the task at its next step boundary. Abort of a paused task
// also wakes it so it can exit.
func (t *Task) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.abortLocked("user abort")
}

func (t *Task) abortLocked(reason string) {
	if t.state == StateAborted || t.state == StateDone {
		return
	}
	prev := t.state
	t.state = StateAborted
	if prev == StatePaused && t.wake != nil {
		close(t.wake)
		t.wake = nil
	}
	t.log.Info("autofill aborted", zap.String("reason", reason))
}

// gate is checked at every step boundary: between words, fields, groups, and
// upload ticks. It blocks while paused, waking on resume or aborting after
// the pause timeout, and returns ErrAborted once the task is aborted. Every
// interruptible point in the task funnels through here so all abort paths
// converge on the same cleanup.
func (t *Task) gate() error {
	for {
		t.mu.Lock()
		switch t.state {
		case StateAborted:
			t.mu.Unlock()
			return ErrAborted
		case StatePaused:
			wake := t.wake
			t.mu.Unlock()
			if t.timing.PauseAbortAfter > 0 {
				select {
				case <-wake:
				case <-time.After(t.timing.PauseAbortAfter):
					t.mu.Lock()
					if t.state == StatePaused {
						t.abortLocked("pause timeout")
					}
					t.mu.Unlock()
				}
			} else {
				<-wake
			}
			// Loop to re-read the state after waking.
		default:
			t.mu.Unlock()
			return nil
		}
	}
}

func (t *Task) sleep(d time.Duration) error {
	if d > 0 {
		time.Sleep(d)
	}
	return t.gate()
}

func (t *Task) run() {
	err := t.fill()

	t.mu.Lock()
	t.err = err
	if err == nil {
		t.state = StateDone
	} else {
		t.state = StateAborted
	}
	t.mu.Unlock()

	// Cleanup is identical on every path: the in-progress guard drops and
	// the panel returns to a stable view.
	t.session.SetAutofillInProgress(false)
	if err != nil {
		t.session.Show(panel.ViewLocationPicker, nil)
	} else {
		t.session.Show(panel.ViewSuccess, nil)
	}
	close(t.done)
}

// fill performs the actual work: group reshaping, scalar fields, location
// groups, then the upload simulation.
func (t *Task) fill() error {
	// Reshape the form to one group per selected location. Shrinking to a
	// single group first keeps the re-index bookkeeping trivial.
	for t.form.GroupCount() > 1 {
		if err := t.form.RemoveGroup(t.form.GroupCount() - 1); err != nil {
			return fmt.Errorf("autofill: reshape groups: %w", err)
		}
	}
	for t.form.GroupCount() < len(t.selected) {
		t.form.AddGroup()
	}

	totalFields := len(profile.ScalarFieldNames) + 1 + len(t.selected)*len(profile.LocationFieldNames)
	filled := 0
	step := func(label string) {
		filled++
		// The fill phase owns the first 60% of the bar; the upload
		// simulation takes it the rest of the way.
		t.progress(Progress{Label: label, Percent: filled * 60 / totalFields})
	}

	for _, name := range profile.ScalarFieldNames {
		key := profile.ScalarKey(name)
		if err := t.typeField(key, t.ref.Scalar(name)); err != nil {
			return err
		}
		step("Filling in " + profile.DisplayName(key) + "...")
		if err := t.sleep(t.timing.FieldDelay); err != nil {
			return err
		}
	}

	// The print-license question is always answered yes; it has no profile
	// counterpart.
	printKey := profile.ScalarKey(profile.FieldPrintLicense)
	if err := t.setField(printKey, "yes"); err != nil {
		return err
	}
	step("Filling in " + profile.DisplayName(printKey) + "...")

	for group, refIdx := range t.selected {
		for _, name := range profile.LocationFieldNames {
			key := profile.LocationKey(name, group)
			if err := t.typeField(key, t.ref.LocationField(refIdx, name)); err != nil {
				return err
			}
			step("Filling in " + profile.DisplayName(key) + "...")
			if err := t.sleep(t.timing.FieldDelay); err != nil {
				return err
			}
		}
	}

	return t.uploadDocuments()
}

// typeField writes the value word by word, so a watching user sees the field
// grow, checking the gate between words. Missing fields are logged and
// skipped, never fatal.
func (t *Task) typeField(key profile.FieldKey, value string) error {
	if err := t.gate(); err != nil {
		return err
	}
	words := strings.Fields(value)
	if len(words) == 0 {
		// Empty reference values (notably fax) still clear the field and
		// count as autofill-touched.
		if err := t.setField(key, ""); err != nil {
			return err
		}
		return nil
	}
	for i := range words {
		partial := strings.Join(words[:i+1], " ")
		if err := t.form.SetValue(key, partial); err != nil {
			var nf *form.NotFoundError
			if errors.As(err, &nf) {
				t.log.Warn("autofill: field missing, skipping",
					zap.String("field", key.String()))
				return nil
			}
			return err
		}
		if err := t.sleep(t.timing.WordDelay); err != nil {
			return err
		}
	}
	t.form.MarkTouched(key)
	return nil
}

func (t *Task) setField(key profile.FieldKey, value string) error {
	if err := t.form.SetValue(key, value); err != nil {
		var nf *form.NotFoundError
		if errors.As(err, &nf) {
			t.log.Warn("autofill: field missing, skipping",
				zap.String("field", key.String()))
			return nil
		}
		return err
	}
	t.form.MarkTouched(key)
	return nil
}

// uploadDocuments simulates the credentialing document upload: the bar climbs
// from 60 to 100 in uneven random jumps, one per tick.
func (t *Task) uploadDocuments() error {
	percent := 60
	t.progress(Progress{Label: "Uploading documents...", Percent: percent})
	for percent < 100 {
		if err := t.sleep(t.timing.UploadTick); err != nil {
			return err
		}
		percent += 8 + t.rng.Intn(19)
		if percent > 100 {
			percent = 100
		}
		t.progress(Progress{Label: "Uploading documents...", Percent: percent})
	}
	return nil
}
