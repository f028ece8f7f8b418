package reactor

import (
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"satleds/pkg/cue"
	"satleds/pkg/proto"
)

type rgb struct {
	r, g, b byte
}

var (
	black  = rgb{}
	blue   = rgb{b: 255}
	yellow = rgb{r: 255, g: 255}
	red    = rgb{r: 255}
	green  = rgb{g: 255}
)

// Timing groups every delay the state machine uses; tests shrink it.
type Timing struct {
	ErrorRevert      time.Duration
	SynthesizeRevert time.Duration
	FlashPhase       time.Duration
	DisconnectHold   time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		ErrorRevert:      5 * time.Second,
		SynthesizeRevert: 5 * time.Second,
		FlashPhase:       200 * time.Millisecond,
		DisconnectHold:   500 * time.Millisecond,
	}
}

type Option func(*Reactor)

func WithTiming(t Timing) Option {
	return func(r *Reactor) {
		r.timing = t
	}
}

// New builds a reactor for one client. All strip writes for the reactor
// happen on the Run goroutine, in arrival order.
func New(strip proto.Strip, cues cue.Trigger, logger *zap.Logger, opts ...Option) *Reactor {
	r := &Reactor{
		strip:  strip,
		cues:   cues,
		logger: logger,
		timing: DefaultTiming(),
		sched:  newScheduler(),
		events: make(chan Event),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type Reactor struct {
	strip  proto.Strip
	cues   cue.Trigger
	logger *zap.Logger
	timing Timing

	sched  *scheduler
	events chan Event
	stop   chan struct{}
	done   chan struct{}

	stopOnce sync.Once

	// processing is true between wake detection and a terminating event.
	// Owned by the Run goroutine.
	processing bool
}

// Submit queues ev for processing. It blocks until the loop accepts it,
// preserving arrival order, and gives up once the loop has exited.
func (r *Reactor) Submit(ev Event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

// Stop shuts the loop down and waits for it to finish. Idempotent.
func (r *Reactor) Stop() {
	r.stopOnce.Do(func() {
		r.sched.close()
		close(r.stop)
	})
	<-r.done
}

// Run drains events and timer firings until Stop or a hardware failure.
// A strip write error aborts the loop: once a write fails the display
// state is unknown and nothing sensible can be rendered.
func (r *Reactor) Run() error {
	defer close(r.done)

	for {
		select {
		case <-r.stop:
			return nil

		case ev := <-r.events:
			// A newer event always wins over a scheduled action.
			r.sched.cancel()
			if err := r.dispatch(ev); err != nil {
				return err
			}

		case t := <-r.sched.fired:
			if !r.sched.live(t) {
				// superseded while in flight
				continue
			}
			if err := t.action(); err != nil {
				return err
			}
		}
	}
}

func (r *Reactor) dispatch(ev Event) error {
	switch ev.Kind {
	case WakeDetected:
		r.processing = true
		r.cues.Trigger(cue.Wake)
		return r.show(blue)

	case ErrorReported:
		if ev.Code != CodeNoTextRecognized {
			return nil
		}
		if err := r.show(red); err != nil {
			return err
		}
		r.sched.schedule(r.timing.ErrorRevert, func() error {
			// Streaming may still be live; never a blind blackout.
			return r.show(lo.Ternary(r.processing, yellow, black))
		})
		return nil

	case StreamingStarted:
		if !r.processing {
			return nil
		}
		return r.show(yellow)

	case Synthesize:
		r.sched.schedule(r.timing.SynthesizeRevert, func() error {
			r.processing = false
			return r.show(black)
		})
		return nil

	case RunSatellite:
		r.processing = false
		return r.show(black)

	case Connected:
		return r.flashConnected()

	case Disconnected:
		if err := r.show(red); err != nil {
			return err
		}
		time.Sleep(r.timing.DisconnectHold)
		r.processing = false
		return r.show(black)

	default:
		r.logger.Debug("ignoring event")
		return nil
	}
}

// flashConnected blocks the reactor's queue for its four 0.2s phases.
func (r *Reactor) flashConnected() error {
	for i := 0; i < 2; i++ {
		if err := r.show(green); err != nil {
			return err
		}
		time.Sleep(r.timing.FlashPhase)

		if err := r.show(black); err != nil {
			return err
		}
		if i == 0 {
			time.Sleep(r.timing.FlashPhase)
		}
	}
	return nil
}

func (r *Reactor) show(c rgb) error {
	r.strip.Fill(c.r, c.g, c.b)
	return r.strip.Show()
}
