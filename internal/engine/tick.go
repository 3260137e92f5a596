// Package engine owns the game state and drives simulated time forward.
//
// The Scheduler is a two-state machine, Stopped or Running(period), keyed
// by (gameStarted, isPaused, speed). Every state change re-evaluates the
// key; a change cancels the armed timer before a new one is armed, so at
// most one timer is live per session.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/alt-history/internal/ai"
	"github.com/talgya/alt-history/internal/events"
	"github.com/talgya/alt-history/internal/format"
	"github.com/talgya/alt-history/internal/game"
)

// Cadences, in simulated days.
const (
	EventCheckInterval = 7
	SkipSpeed          = 60 // speed used by "skip to next event"
	DefaultSpeed       = 1
)

var (
	ErrNotStarted    = errors.New("no game in progress")
	ErrEventsPending = errors.New("events await a decision")
)

// Content is the static data the scheduler consults each day.
type Content interface {
	game.Catalog
	events.Source
}

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Mode is the scheduler's machine state.
type Mode struct {
	Running bool
	Period  time.Duration
}

// Scheduler advances the game one simulated day per tick.
type Scheduler struct {
	Interval  time.Duration // wall-clock period at speed 1
	AfterFunc AfterFunc

	// Callbacks, populated during setup.
	OnDay    func(s game.State)            // after every simulated day
	OnEvents func(evs []game.Event)        // when new events trigger
	OnAIPass func(decisions []ai.Decision) // after each AI pass

	store   *Store
	content Content
	ai      *ai.Engine

	mu     sync.Mutex
	mode   Mode
	timer  Timer
	gen    uint64
	unsub  func()
	ticks  uint64
	stepMu sync.Mutex

	// Event-check bookkeeping for the current session.
	checkedOnce bool
}

// NewScheduler creates a stopped scheduler over store.
func NewScheduler(store *Store, content Content, engine *ai.Engine) *Scheduler {
	return &Scheduler{
		Interval:  time.Second,
		AfterFunc: realAfterFunc,
		store:     store,
		content:   content,
		ai:        engine,
	}
}

// Start subscribes to state changes and arms the timer if the current
// state allows ticking.
func (sc *Scheduler) Start() {
	sc.mu.Lock()
	if sc.unsub == nil {
		sc.unsub = sc.store.Subscribe(sc.onChange)
	}
	sc.mu.Unlock()
	slog.Info("scheduler started")
	sc.Sync()
}

// Stop cancels any armed timer and stops reacting to state changes.
func (sc *Scheduler) Stop() {
	sc.mu.Lock()
	if sc.unsub != nil {
		sc.unsub()
		sc.unsub = nil
	}
	sc.cancelLocked()
	sc.mode = Mode{}
	sc.mu.Unlock()
	slog.Info("scheduler stopped", "ticks", sc.Ticks())
}

// Mode returns the current machine state.
func (sc *Scheduler) Mode() Mode {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.mode
}

// Ticks returns how many timer ticks have run.
func (sc *Scheduler) Ticks() uint64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.ticks
}

// ModeFor maps a state to the mode it requires.
func (sc *Scheduler) ModeFor(s game.State) Mode {
	if !s.Meta.GameStarted || s.Meta.IsPaused || s.Meta.Speed <= 0 {
		return Mode{}
	}
	return Mode{Running: true, Period: sc.Interval / time.Duration(s.Meta.Speed)}
}

// Sync re-evaluates the machine key and cancels or re-arms the timer when
// the required mode differs from the current one.
func (sc *Scheduler) Sync() {
	want := sc.ModeFor(sc.store.State())

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if want == sc.mode {
		return
	}
	sc.cancelLocked()
	sc.mode = want
	if want.Running {
		sc.armLocked()
		slog.Debug("scheduler running", "period", want.Period)
	} else {
		slog.Debug("scheduler stopped ticking")
	}
}

func (sc *Scheduler) cancelLocked() {
	sc.gen++
	if sc.timer != nil {
		sc.timer.Stop()
		sc.timer = nil
	}
}

func (sc *Scheduler) armLocked() {
	gen := sc.gen
	sc.timer = sc.AfterFunc(sc.mode.Period, func() { sc.fire(gen) })
}

func (sc *Scheduler) fire(gen uint64) {
	sc.mu.Lock()
	if gen != sc.gen || !sc.mode.Running {
		sc.mu.Unlock()
		return
	}
	sc.timer = nil
	sc.ticks++
	sc.mu.Unlock()

	sc.step(true)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if gen == sc.gen && sc.mode.Running && sc.timer == nil {
		sc.armLocked()
	}
}

func (sc *Scheduler) onChange(prev, next game.State) {
	if newSession(prev, next) {
		sc.stepMu.Lock()
		sc.checkedOnce = false
		sc.stepMu.Unlock()
	}
	if prev.Meta != next.Meta {
		sc.Sync()
	}
}

func newSession(prev, next game.State) bool {
	return next.Meta.GameStarted && (!prev.Meta.GameStarted ||
		!prev.Time.StartDate.Equal(next.Time.StartDate) ||
		prev.Identity != next.Identity ||
		next.Time.DaysPassed < prev.Time.DaysPassed)
}

// Step runs one simulated day: advance the clock, finish research, check
// events, run the AI pass when due, then the day hook. It steps a paused
// game too; timer ticks do not.
func (sc *Scheduler) Step() { sc.step(false) }

func (sc *Scheduler) step(timed bool) {
	sc.stepMu.Lock()
	defer sc.stepMu.Unlock()

	// The pause check and the advance are one transition, so a pause that
	// lands after the timer fired still wins.
	advanced := false
	st := sc.store.Update(func(s game.State) []game.Action {
		if !s.Meta.GameStarted || (timed && s.Meta.IsPaused) {
			return nil
		}
		advanced = true
		return []game.Action{game.AdvanceTime{Days: 1}}
	})
	if !advanced {
		return
	}

	if cur := st.Research.CurrentResearch; cur != nil && st.Research.Points >= cur.Cost {
		st = sc.store.Dispatch(game.CompleteResearch{Tech: *cur})
		slog.Info("research completed", "tech", cur.ID, "day", st.Time.DaysPassed)
	}

	skipping := st.Meta.Speed >= SkipSpeed
	if !sc.checkedOnce || skipping || st.Time.DaysPassed%EventCheckInterval == 0 {
		sc.checkedOnce = true
		st = sc.checkEvents(st, skipping)
	}

	if ai.Due(st) && sc.ai != nil {
		st = sc.runAI(st)
	}

	st = sc.checkEraEnd(st)

	if sc.OnDay != nil {
		sc.OnDay(st)
	}
}

func (sc *Scheduler) checkEvents(st game.State, skipping bool) game.State {
	due := events.Due(sc.content, st)
	if len(due) == 0 {
		return st
	}
	actions := make([]game.Action, 0, len(due)+1)
	for _, ev := range due {
		actions = append(actions, game.TriggerEvent{Event: ev})
		slog.Info("event triggered", "event", ev.ID, "date", format.DateShort(st.Time.CurrentDate))
	}
	if skipping {
		actions = append(actions, game.SetSpeed{Speed: DefaultSpeed})
	}
	st = sc.store.DispatchAll(actions...)
	if sc.OnEvents != nil {
		sc.OnEvents(due)
	}
	return st
}

func (sc *Scheduler) runAI(st game.State) game.State {
	decisions := sc.ai.Pass(st)
	for _, d := range decisions {
		st = sc.store.Update(d.Actions)
		if d.Action != ai.Wait {
			slog.Debug("ai action", "country", d.Country, "action", d.Action, "day", d.Day)
		}
	}
	if sc.OnAIPass != nil {
		sc.OnAIPass(decisions)
	}
	return st
}

func (sc *Scheduler) checkEraEnd(st game.State) game.State {
	if sc.content == nil {
		return st
	}
	era, ok := sc.content.Era(st.Identity.Era)
	if !ok || !st.Time.CurrentDate.Equal(era.EndDate) {
		return st
	}
	slog.Info("era concluded", "era", era.Name, "days", st.Time.DaysPassed)
	return sc.store.DispatchAll(
		game.AddNotification{Notification: game.Notification{
			Type:      game.NotifyInfo,
			Message:   "The Era Has Ended",
			Details:   era.Name + " concluded on " + format.Date(era.EndDate),
			Timestamp: st.Time.CurrentDate,
		}},
		game.PauseGame{},
	)
}

// SkipToNextEvent fast-forwards until the next event triggers. It is
// refused while an event is still waiting for the player's decision.
func (sc *Scheduler) SkipToNextEvent() (game.State, error) {
	var err error
	st := sc.store.Update(func(s game.State) []game.Action {
		switch {
		case !s.Meta.GameStarted:
			err = ErrNotStarted
		case len(s.Events.ActiveEvents) > 0:
			err = fmt.Errorf("%w: %d pending", ErrEventsPending, len(s.Events.ActiveEvents))
		default:
			return []game.Action{game.SetSpeed{Speed: SkipSpeed}, game.ResumeGame{}}
		}
		return nil
	})
	return st, err
}
