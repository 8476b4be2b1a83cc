// Package engine schedules scans and link polls, feeds their output through
// the parsers into the registry and connection tracker, and republishes the
// results as events.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"wifiwatch/internal/command"
	"wifiwatch/internal/iw"
	"wifiwatch/internal/models"
	"wifiwatch/internal/registry"
	"wifiwatch/internal/tracker"
)

// ErrStopped is returned by operations on a stopped engine.
var ErrStopped = errors.New("engine stopped")

const stopEventWait = time.Second

// Engine owns the registry and the connection tracker. Both are touched only
// by the loop goroutine; results of external commands are posted back to it
// as closures, which are dropped once the engine stops.
type Engine struct {
	cfg      Config
	commands *command.Table
	exec     command.Executor
	log      zerolog.Logger
	now      func() time.Time

	// Loop-owned state.
	registry   *registry.Registry
	tracker    *tracker.Tracker
	scanTicker *time.Ticker
	statTicker *time.Ticker
	scanBusy   bool
	statBusy   bool

	events chan Event
	calls  chan func()

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	killing  atomic.Bool
	stopOnce sync.Once

	// final is written by the loop before done closes.
	final []models.NetworkRecord
}

// New creates an engine and starts its loop. Cadences do not run until Start.
func New(cfg Config, exec command.Executor, log zerolog.Logger) *Engine {
	cfg = applyDefaults(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:      cfg,
		commands: command.NewTable(cfg.Interface, cfg.Interface2, cfg.Commands),
		exec:     exec,
		log:      log.With().Str("component", "engine").Str("interface", cfg.Interface).Logger(),
		now:      time.Now,
		registry: registry.New(registry.Options{
			VanishThreshold: cfg.VanishThreshold,
			PurgeVanished:   cfg.PurgeVanished,
		}),
		tracker: tracker.New(),
		events:  make(chan Event, cfg.EventBuffer),
		calls:   make(chan func()),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go e.loop()

	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Events delivers every event. It is closed after the stop event. Consumers
// must keep draining it; the loop waits on a full channel.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Start arms both cadences and fires each once immediately. Calling it again
// has no effect.
func (e *Engine) Start() error {
	return e.call(func() {
		if e.scanTicker != nil {
			return
		}
		e.log.Info().
			Dur("update_frequency", e.cfg.UpdateFrequency).
			Dur("connection_spy_frequency", e.cfg.ConnectionSpyFrequency).
			Msg("Starting wireless monitor")

		e.scanTicker = time.NewTicker(e.cfg.UpdateFrequency)
		e.statTicker = time.NewTicker(e.cfg.ConnectionSpyFrequency)
		e.scan(false)
		e.poll(nil)
	})
}

// Stop cancels both cadences and any in-flight command, emits the stop event
// and closes Events. Command failures caused by the teardown are not reported.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.killing.Store(true)
		e.cancel()
		<-e.done

		timer := time.NewTimer(stopEventWait)
		defer timer.Stop()

		select {
		case e.events <- Event{Kind: EventStop, Time: e.now()}:
		case <-timer.C:
			e.log.Warn().Msg("Event consumer not draining; stop event dropped")
		}
		close(e.events)

		e.log.Info().Msg("Wireless monitor stopped")
	})
}

// List returns the current registry contents sorted by address. After Stop
// it returns the registry as it was when the engine stopped.
func (e *Engine) List() []models.NetworkRecord {
	var out []models.NetworkRecord
	if err := e.call(func() { out = e.registry.Snapshot() }); err != nil {
		<-e.done
		return e.final
	}
	return out
}

// Forget removes a network from the registry, e.g. after it vanished.
func (e *Engine) Forget(address string) (bool, error) {
	var removed bool
	err := e.call(func() { removed = e.registry.Remove(address) })
	return removed, err
}

// Status reports whether the host is associated and with which address.
func (e *Engine) Status() (tracker.State, string, error) {
	var (
		state tracker.State
		addr  string
	)
	err := e.call(func() {
		state = e.tracker.State()
		addr = e.tracker.Address()
	})
	return state, addr, err
}

func (e *Engine) loop() {
	defer close(e.done)
	defer func() {
		e.stopTickers()
		e.final = e.registry.Snapshot()
	}()

	for {
		select {
		case <-e.ctx.Done():
			return
		case fn := <-e.calls:
			fn()
		case <-tickC(e.scanTicker):
			e.scan(false)
		case <-tickC(e.statTicker):
			e.poll(nil)
		}
	}
}

func (e *Engine) stopTickers() {
	if e.scanTicker != nil {
		e.scanTicker.Stop()
	}
	if e.statTicker != nil {
		e.statTicker.Stop()
	}
}

func tickC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// call runs fn on the loop goroutine and waits for it.
func (e *Engine) call(fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		fn()
		close(finished)
	}

	select {
	case e.calls <- wrapped:
	case <-e.ctx.Done():
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-e.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// post hands fn to the loop without waiting. It is dropped after Stop.
func (e *Engine) post(fn func()) {
	select {
	case e.calls <- fn:
	case <-e.ctx.Done():
	}
}

// emit must run on the loop goroutine.
func (e *Engine) emit(ev Event) {
	ev.Time = e.now()
	if ev.Kind == EventError {
		e.log.Warn().Msg(ev.Message)
	} else {
		e.log.Debug().Str("event", string(ev.Kind)).Msg("Emitting event")
	}

	select {
	case e.events <- ev:
	case <-e.ctx.Done():
	}
}

func (e *Engine) fail(msg string) {
	if e.killing.Load() {
		return
	}
	e.emit(Event{Kind: EventError, Message: msg})
}

// runAsync announces cmd, runs it off the loop and posts handle back to it.
func (e *Engine) runAsync(cmd string, handle func(command.Result)) {
	e.emit(Event{Kind: EventCommand, Command: cmd})
	e.log.Debug().Str("command", cmd).Msg("Executing command")

	go func() {
		res := e.exec.Run(e.ctx, cmd)
		e.post(func() { handle(res) })
	}()
}

// scan issues one scan. A cadence tick is skipped while the previous scan is
// still outstanding; the fallback scan reuses the primary's slot.
func (e *Engine) scan(fallback bool) {
	if e.scanBusy {
		e.log.Debug().Msg("Previous scan still running; skipping tick")
		return
	}

	name := command.Scan
	if fallback {
		name = command.Scan2
	}
	cmd, err := e.commands.Get(name)
	if err != nil {
		e.fail(err.Error())
		return
	}

	e.scanBusy = true
	e.runAsync(cmd, func(res command.Result) {
		e.scanBusy = false
		e.handleScan(cmd, fallback, res)
	})
}

func (e *Engine) handleScan(cmd string, fallback bool, res command.Result) {
	if e.killing.Load() {
		return
	}
	canFallback := !fallback && e.cfg.Interface2 != ""

	if res.Err != nil {
		if command.ExitCode(res.Err) == iw.BusyExitCode && canFallback {
			e.log.Info().Str("interface2", e.cfg.Interface2).Msg("Primary interface busy; scanning secondary")
			e.scan(true)
			return
		}
		switch iw.Diagnose(res.Stderr) {
		case iw.DiagnosticBusy:
			e.fail(msgOverlapping)
		case iw.DiagnosticAllocation:
			e.fail(msgTooManyNetworks)
		default:
			e.fail(fmt.Sprintf("Got some major errors from our scan command (%s): %v", cmd, res.Err))
		}
		return
	}

	switch iw.Diagnose(res.Stderr) {
	case iw.DiagnosticBusy:
		e.fail(msgOverlapping)
		return
	case iw.DiagnosticAllocation:
		e.fail(msgTooManyNetworks)
		return
	case iw.DiagnosticOther:
		e.fail("Got some errors from our scan command: " + res.Stderr)
	}

	if iw.Aborted(res.Stdout) {
		if canFallback {
			e.scan(true)
			return
		}
		e.fail(fmt.Sprintf("Scan aborted (%s)", cmd))
		return
	}

	networks, _ := iw.ParseScan(res.Stdout)
	if len(networks) == 0 {
		e.emit(Event{Kind: EventEmpty})
		return
	}

	e.emit(Event{Kind: EventBatch, Networks: networks})

	for _, c := range e.registry.Ingest(networks) {
		switch c.Change {
		case registry.ChangeAppear:
			e.emit(networkEvent(EventAppear, c.Network))
		case registry.ChangeIdentity:
			e.emit(networkEvent(EventChange, c.Network))
		case registry.ChangeSignal:
			e.emit(networkEvent(EventSignal, c.Network))
		}
	}
	for _, n := range e.registry.Decay() {
		e.emit(networkEvent(EventVanish, n))
	}
}

// poll issues one link status check. done, when set, runs after the result
// is processed whatever the outcome. Cadence ticks (done == nil) are skipped
// while a previous poll is outstanding.
func (e *Engine) poll(done func()) {
	if done == nil && e.statBusy {
		return
	}

	cmd, err := e.commands.Get(command.Stat)
	if err != nil {
		e.fail(err.Error())
		if done != nil {
			done()
		}
		return
	}

	e.statBusy = true
	e.runAsync(cmd, func(res command.Result) {
		e.statBusy = false
		e.handleLink(cmd, res)
		if done != nil {
			done()
		}
	})
}

func (e *Engine) handleLink(cmd string, res command.Result) {
	if e.killing.Load() {
		return
	}
	if res.Err != nil {
		e.fail(fmt.Sprintf("Error getting wireless devices information (%s): %v", cmd, res.Err))
		return
	}

	result := e.tracker.Poll(iw.ParseLink(res.Stdout), e.registry.Get)
	switch result.Transition {
	case tracker.TransitionJoin:
		e.emit(networkEvent(EventJoin, result.Network))
	case tracker.TransitionFormer:
		link := result.Link
		e.emit(Event{Kind: EventFormer, Link: &link})
	case tracker.TransitionLeave:
		e.emit(Event{Kind: EventLeave})
	}
}

// pollAndWait checks the link once from a caller goroutine.
func (e *Engine) pollAndWait(ctx context.Context) error {
	finished := make(chan struct{})
	if err := e.call(func() { e.poll(func() { close(finished) }) }); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

const (
	msgOverlapping     = "Scans are overlapping; slow down update frequency"
	msgTooManyNetworks = "Too many networks for the scan command to handle"
)
