package transport

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner is the host-side surface the bridge drives from inbound messages.
type Runner interface {
	StartAutofill(selected []int) error
	PauseAutofill()
	ResumeAutofill()
	AbortAutofill()
	ClosePanel()
}

// Bridge dispatches inbound envelopes to a Runner and offers typed senders
// for outbound traffic. It decouples the panel surface from the autofill
// host so either can live across a process boundary later.
type Bridge struct {
	ep     *Endpoint
	runner Runner
	log    *zap.Logger
}

// NewBridge wires an endpoint to a runner.
func NewBridge(ep *Endpoint, r Runner, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{ep: ep, runner: r, log: log}
}

// Serve receives and dispatches messages until the context is canceled or
// the peer closes. Unknown message types are logged and dropped, never
// fatal.
func (b *Bridge) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			env, err := b.ep.Recv(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			b.dispatch(env)
		}
	})
	return g.Wait()
}

func (b *Bridge) dispatch(env Envelope) {
	switch env.Type {
	case MsgAutofillLocations:
		var p LocationsPayload
		if err := env.Decode(&p); err != nil {
			b.log.Warn("bad locations payload", zap.Error(err))
			return
		}
		if err := b.runner.StartAutofill(p.Selected); err != nil {
			b.log.Warn("autofill refused", zap.Error(err))
		}
	case MsgAutofillPause:
		var p PausePayload
		if err := env.Decode(&p); err != nil {
			b.log.Warn("bad pause payload", zap.Error(err))
			return
		}
		if p.Paused {
			b.runner.PauseAutofill()
		} else {
			b.runner.ResumeAutofill()
		}
	case MsgAutofillAbort:
		b.runner.AbortAutofill()
	case MsgClosePanel:
		b.runner.ClosePanel()
	default:
		b.log.Debug("unhandled message", zap.String("type", string(env.Type)))
	}
}

// SendProgress forwards a task progress update to the peer.
func (b *Bridge) SendProgress(ctx context.Context, label string, percent int) error {
	env, err := Encode(MsgAutofillProgress, ProgressPayload{Label: label, Percent: percent})
	if err != nil {
		return err
	}
	return b.ep.Send(ctx, env)
}

// SendComplete announces a finished autofill run to the peer.
func (b *Bridge) SendComplete(ctx context.Context) error {
	env, err := Encode(MsgAutofillComplete, nil)
	if err != nil {
		return err
	}
	return b.ep.Send(ctx, env)
}
