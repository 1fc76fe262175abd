package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/thermod/pkg/adc"
	"github.com/itohio/thermod/pkg/config"
	"github.com/itohio/thermod/pkg/sample"
)

var ErrAlreadyStarted = errors.New("engine already started")

// Commands accepted on the module command topic.
const (
	CommandShutdown = "shutdown"
	CommandRestart  = "restart"
)

// Publisher receives one result per channel per cycle. Publish is called
// synchronously from the sampling loop.
type Publisher interface {
	Publish(ChannelResult) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ChannelResult) error

func (f PublisherFunc) Publish(r ChannelResult) error {
	return f(r)
}

// Observer is notified of scheduler events.
type Observer interface {
	Ready()
	CycleDone(elapsed time.Duration)
	CycleAborted()
	Result(State)
}

type nopObserver struct{}

func (nopObserver) Ready()                  {}
func (nopObserver) CycleDone(time.Duration) {}
func (nopObserver) CycleAborted()           {}
func (nopObserver) Result(State)            {}

// TransportFactory opens the ADC transport described by a device config.
type TransportFactory func(config.Device) (adc.Transport, error)

// Phase is the scheduler state.
type Phase int32

const (
	PhaseAwaitingConfig Phase = iota
	PhaseRunning
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingConfig:
		return "awaiting-config"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	}
	return fmt.Sprintf("Phase(%d)", int32(p))
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver sets the receiver of scheduler events.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.obs = o
		}
	}
}

// WithTrace logs every channel result of every cycle.
func WithTrace(enabled bool) Option {
	return func(e *Engine) {
		e.trace = enabled
	}
}

// Engine runs the sampling loop of one module.
type Engine struct {
	surface *Surface
	open    TransportFactory
	pub     Publisher
	obs     Observer
	trace   bool

	phase   atomic.Int32
	started atomic.Bool

	stop     chan struct{}
	stopOnce sync.Once
	restart  atomic.Bool
}

// New creates an engine sampling the module configured by surface.
func New(surface *Surface, open TransportFactory, pub Publisher, opts ...Option) *Engine {
	e := &Engine{
		surface: surface,
		open:    open,
		pub:     pub,
		obs:     nopObserver{},
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Phase returns the current scheduler state.
func (e *Engine) Phase() Phase {
	return Phase(e.phase.Load())
}

// Stop requests the loop to exit. A cycle already in flight completes first.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stop)
	})
}

// RestartRequested reports whether the engine was stopped by a restart
// command.
func (e *Engine) RestartRequested() bool {
	return e.restart.Load()
}

// HandleCommand applies a module command. Both shutdown and restart stop the
// engine; the caller decides whether to start a new one.
func (e *Engine) HandleCommand(cmd string) error {
	switch cmd {
	case CommandShutdown:
		log.Printf("Shutdown requested")
	case CommandRestart:
		log.Printf("Restart requested")
		e.restart.Store(true)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	e.Stop()
	return nil
}

// Run waits for the configuration to be complete, opens the transport and
// samples until Stop is called or ctx is done. The wait for configuration has
// no timeout. Run may be called once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer e.phase.Store(int32(PhaseStopped))

	log.Printf("Waiting for configuration")
	select {
	case <-e.surface.Readiness().Done():
	case <-e.stop:
		return nil
	case <-ctx.Done():
		return nil
	}

	e.obs.Ready()

	t, err := e.open(e.surface.Device())
	if err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}
	defer func() {
		if err := t.Close(); err != nil {
			log.Printf("Failed to close transport: %v", err)
		}
	}()

	e.phase.Store(int32(PhaseRunning))
	log.Printf("Sampling started on module %d", e.surface.Module())

	for {
		select {
		case <-e.stop:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		if err := e.Cycle(t); err != nil {
			log.Printf("Cycle skipped: %v", err)
		}

		wait := e.surface.Device().IntervalDuration() - time.Since(start)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-e.stop:
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

// Cycle acquires, conditions and classifies every channel once and
// publishes the results. Configuration is snapshotted before acquisition and
// no lock is held during transport I/O. A transport fault aborts the cycle
// before anything is published.
func (e *Engine) Cycle(t adc.Transport) error {
	start := time.Now()
	dev := e.surface.Device()
	sensors := e.surface.Assignments()

	set, err := sample.Acquire(t, dev.SampleCount)
	if err != nil {
		e.obs.CycleAborted()
		return fmt.Errorf("acquisition failed: %w", err)
	}

	module := e.surface.Module()
	for ch, samples := range set {
		result := Classify(Input{
			Module:  module,
			Channel: ch,
			Sensor:  sensors[ch],
			Samples: samples,
			Device:  dev,
		})
		if e.trace {
			log.Printf("Channel %d: %s (%d samples)", ch, result, len(samples))
		}

		e.obs.Result(result.State)
		if err := e.pub.Publish(result); err != nil {
			log.Printf("Failed to publish result for channel %d: %v", ch, err)
		}
	}

	e.obs.CycleDone(time.Since(start))
	return nil
}
