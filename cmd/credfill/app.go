package main

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"credfill/cmd/credfill/ui"
	"credfill/internal/attest"
	"credfill/internal/autofill"
	"credfill/internal/config"
	"credfill/internal/form"
	"credfill/internal/logging"
	"credfill/internal/panel"
	"credfill/internal/profile"
	"credfill/internal/review"
	"credfill/internal/transport"
)

// App wires the panel session, the in-memory form, the review workflow, and
// the autofill host together. It is both the session's renderer and the
// transport runner, and it backs the ui.Controller surface the TUI drives.
type App struct {
	cfg     *config.Config
	ref     *profile.ReferenceProfile
	form    *form.MemoryForm
	session *panel.Session
	flow    *review.Workflow
	log     *zap.Logger

	hostEP  *transport.Endpoint
	panelEP *transport.Endpoint
	bridge  *transport.Bridge

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timing  config.Timing
	task    *autofill.Task
	runOnce bool
	program *tea.Program
}

// NewApp builds the fully wired application.
func NewApp(cfg *config.Config, ref *profile.ReferenceProfile, log *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:    cfg,
		ref:    ref,
		form:   form.NewMemoryForm(),
		log:    log,
		timing: cfg.ParseTiming(),
		ctx:    ctx,
		cancel: cancel,
	}
	a.session = panel.NewSession(a, log.Named("panel"))
	t := a.Timing()
	a.flow = review.NewWorkflow(a.form, ref, a.session, t.DebounceQuiet, t.Settle, log.Named("review"))

	a.hostEP, a.panelEP = transport.NewPair(16)
	a.bridge = transport.NewBridge(a.hostEP, &hostRunner{app: a}, log.Named("transport"))
	return a
}

// hostRunner is the host side of the transport link. Keeping it a separate
// type keeps the host verbs off the ui.Controller surface.
type hostRunner struct {
	app *App
}

func (h *hostRunner) StartAutofill(selected []int) error { return h.app.startTask(selected) }
func (h *hostRunner) PauseAutofill() {
	if t := h.app.currentTask(); t != nil {
		t.Pause()
	}
}
func (h *hostRunner) ResumeAutofill() {
	if t := h.app.currentTask(); t != nil {
		t.Resume()
	}
}
func (h *hostRunner) AbortAutofill() {
	if t := h.app.currentTask(); t != nil {
		t.Abort()
	}
}
func (h *hostRunner) ClosePanel() { h.app.session.CloseExplicit() }

// Timing returns the current (possibly hot-reloaded) timing values.
func (a *App) Timing() config.Timing {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timing
}

// Run starts the background loops and blocks on the TUI.
func (a *App) Run() error {
	model := ui.NewPanelModel(ui.NewStyles(ui.ThemeByName(a.cfg.Theme)), a)
	p := tea.NewProgram(model, tea.WithAltScreen())

	a.mu.Lock()
	a.program = p
	a.mu.Unlock()

	go func() {
		if err := a.bridge.Serve(a.ctx); err != nil {
			a.log.Warn("bridge stopped", zap.Error(err))
		}
	}()
	go a.panelLoop()
	go func() {
		err := config.Watch(a.ctx, configFile(), a.log.Named("config"), func(cfg *config.Config) {
			a.mu.Lock()
			a.timing = cfg.ParseTiming()
			a.mu.Unlock()
		})
		if err != nil {
			a.log.Debug("config watch unavailable", zap.Error(err))
		}
	}()

	a.flow.Attach()
	defer a.flow.Detach()
	defer a.cancel()

	_, err := p.Run()
	return err
}

func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// send forwards a message into the Bubble Tea loop.
func (a *App) send(msg tea.Msg) {
	a.mu.Lock()
	p := a.program
	a.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// panelLoop is the panel side of the transport link: it forwards host
// messages into the TUI.
func (a *App) panelLoop() {
	for {
		env, err := a.panelEP.Recv(a.ctx)
		if err != nil {
			return
		}
		logging.Get(logging.CategoryTransport).Debug("panel recv: %s", env.Type)
		switch env.Type {
		case transport.MsgAutofillProgress:
			var p transport.ProgressPayload
			if err := env.Decode(&p); err != nil {
				a.log.Warn("bad progress payload", zap.Error(err))
				continue
			}
			a.send(ui.ProgressMsg{Label: p.Label, Percent: p.Percent})
		case transport.MsgAutofillComplete:
			// View transitions arrive through the renderer; nothing extra.
		}
	}
}

// ShowView implements panel.Renderer. Closing the panel ends the session:
// touch state and review memory must not leak into the next one.
func (a *App) ShowView(v panel.View, payload any) {
	logging.Get(logging.CategoryPanel).Debug("show view: %s", v.String())
	if v == panel.ViewClosed {
		a.form.ClearTouched()
		a.flow.Reset()
	}
	a.send(ui.ViewMsg{View: v, Payload: payload})
}

// startTask launches the fill task for the selected reference locations. It
// runs on the host side of the transport link.
func (a *App) startTask(selected []int) error {
	t := a.Timing()
	taskTiming := autofill.Timing{
		WordDelay:       t.WordDelay,
		FieldDelay:      t.FieldDelay,
		UploadTick:      t.UploadTick,
		PauseAbortAfter: t.PauseAbortAfter,
	}
	task := autofill.NewTask(a.form, a.ref, a.session, selected, taskTiming,
		func(p autofill.Progress) {
			if err := a.bridge.SendProgress(a.ctx, p.Label, p.Percent); err != nil {
				a.log.Debug("progress dropped", zap.Error(err))
			}
		},
		a.log.Named("autofill"))

	if err := task.Start(); err != nil {
		return err
	}
	// A fresh run also forgets the previous review's shown and confirmed sets.
	a.flow.Reset()
	logging.Get(logging.CategoryAutofill).Info("run started: %d location(s)", len(selected))

	a.mu.Lock()
	a.task = task
	a.mu.Unlock()

	go a.awaitTask(task)
	return nil
}

func (a *App) awaitTask(task *autofill.Task) {
	<-task.Done()

	a.mu.Lock()
	a.task = nil
	a.mu.Unlock()

	logging.Get(logging.CategoryAutofill).Info("run finished: err=%v", task.Err())
	if err := task.Err(); err != nil {
		if !errors.Is(err, autofill.ErrAborted) {
			a.log.Warn("autofill failed", zap.Error(err))
		}
		return
	}

	a.mu.Lock()
	a.runOnce = true
	a.mu.Unlock()

	if err := a.bridge.SendComplete(a.ctx); err != nil {
		a.log.Debug("complete dropped", zap.Error(err))
	}

	// Let the success view breathe, then return to the picker and run one
	// detection pass so edits made during review of the filled form are
	// picked up immediately.
	dwell := a.Timing().SuccessReturn
	select {
	case <-time.After(dwell):
	case <-a.ctx.Done():
		return
	}
	a.session.Show(panel.ViewLocationPicker, nil)
	a.flow.EvaluateNow()
}

func (a *App) currentTask() *autofill.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.task
}

// --- ui.Controller (panel side) ---

// SignIn implements ui.Controller. The sign-in is simulated: any credentials
// are accepted.
func (a *App) SignIn(username, password string) {
	a.session.SignIn()
	a.session.Show(panel.ViewLocationPicker, nil)
}

// StartAutofill implements ui.Controller. The request travels over the
// transport link; only the quick precondition check happens panel-side so
// the picker can surface it inline.
func (a *App) StartAutofill(selected []int) error {
	if a.session.AutofillInProgress() {
		return errors.New("an autofill is already in progress")
	}
	env, err := transport.Encode(transport.MsgAutofillLocations, transport.LocationsPayload{Selected: selected})
	if err != nil {
		return err
	}
	return a.panelEP.Send(a.ctx, env)
}

// TogglePause implements ui.Controller.
func (a *App) TogglePause(paused bool) {
	env, err := transport.Encode(transport.MsgAutofillPause, transport.PausePayload{Paused: paused})
	if err != nil {
		return
	}
	if err := a.panelEP.Send(a.ctx, env); err != nil {
		a.log.Debug("pause dropped", zap.Error(err))
	}
}

// Abort implements ui.Controller.
func (a *App) Abort() {
	env, err := transport.Encode(transport.MsgAutofillAbort, nil)
	if err != nil {
		return
	}
	if err := a.panelEP.Send(a.ctx, env); err != nil {
		a.log.Debug("abort dropped", zap.Error(err))
	}
}

// RequestClose implements ui.Controller: an ambient close that the session
// may refuse while work is in flight.
func (a *App) RequestClose() {
	if err := a.session.CloseAmbient(false); errors.Is(err, panel.ErrStateConflict) {
		a.log.Debug("close refused, work in progress")
	}
}

// Proposals implements ui.Controller.
func (a *App) Proposals() []review.Proposal {
	return a.flow.Proposals()
}

// ConfirmAll implements ui.Controller.
func (a *App) ConfirmAll(edits map[string]string) []*review.ValidationError {
	errs := a.flow.ConfirmAll(edits)
	logging.Get(logging.CategoryReview).Info("confirm all: %d validation failure(s)", len(errs))
	return errs
}

// CancelReview implements ui.Controller. From the confirmation or success
// views it simply returns to the picker; from an open review it discards the
// shown changes.
func (a *App) CancelReview() {
	switch a.session.View() {
	case panel.ViewChangeConfirmed, panel.ViewSuccess:
		a.session.Show(panel.ViewLocationPicker, nil)
	default:
		a.flow.Cancel()
	}
}

// Profile implements ui.Controller.
func (a *App) Profile() *profile.ReferenceProfile {
	return a.ref
}

// HasRunOnce implements ui.Controller.
func (a *App) HasRunOnce() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runOnce
}

// FormKeys implements ui.Controller.
func (a *App) FormKeys() []profile.FieldKey {
	return a.form.Keys()
}

// FormValue implements ui.Controller.
func (a *App) FormValue(key profile.FieldKey) string {
	v, err := a.form.Value(key)
	if err != nil {
		return ""
	}
	return v
}

// EditField implements ui.Controller. The write goes through the form's
// listener path, so it feeds the review workflow's debounced detection just
// like any other edit.
func (a *App) EditField(key profile.FieldKey, value string) error {
	return a.form.SetValue(key, value)
}

// ShowProfile implements ui.Controller.
func (a *App) ShowProfile() {
	a.session.Show(panel.ViewProfile, nil)
}

// BackToPicker implements ui.Controller: returns from a leaf view to the
// location picker.
func (a *App) BackToPicker() {
	a.session.Show(panel.ViewLocationPicker, nil)
}

// SignOut implements ui.Controller.
func (a *App) SignOut() {
	a.session.SignOut()
}

func runPanel() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ref, err := loadProfile()
	if err != nil {
		return err
	}
	app := NewApp(cfg, ref, logger)
	app.session.Open()
	return app.Run()
}

func runAttest() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	q, err := attest.NewQueue(cfg.AttestSeedPath)
	if err != nil {
		return err
	}
	logging.Get(logging.CategoryAttest).Info("queue loaded: %d item(s), %d pending",
		q.Len(), q.PendingCount())
	if attestSummary {
		runAttestSummary(q)
		return nil
	}
	model := ui.NewAttestModel(ui.NewStyles(ui.ThemeByName(cfg.Theme)), q)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
