package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/strata/internal/graph"
	"github.com/roach88/strata/internal/mission"
	"github.com/roach88/strata/internal/task"
	"github.com/roach88/strata/internal/timeline"
)

// DefaultMaxSteps is the default maximum number of task steps per simulated
// instant. This stops runaway zero-delay loops.
const DefaultMaxSteps = 10000

// DefaultLookahead bounds how far ahead a pending condition is searched when
// the engine is stepped without a RunFor horizon.
const DefaultLookahead = 24 * time.Hour

// ErrNegativeDelay is returned by Defer for a delay below zero.
var ErrNegativeDelay = errors.New("negative delay")

// Engine is the single-writer discrete-event scheduler.
//
// The engine keeps an agenda of task steps ordered by simulated time. Each
// Step pops every job due at the earliest instant and runs them as
// concurrent branches of the trunk history, then commits the instant.
//
// Thread-safety model: Engine is not safe for concurrent use. Determinism
// comes from the single writer: identical models and inputs produce identical
// histories, spans and errors.
type Engine struct {
	model  *mission.Model
	clock  *Clock
	jobs   *jobQueue
	now    timeline.History
	tasks  map[task.ID]*taskState
	cycles *CycleDetector
	quota  *QuotaEnforcer

	maxSteps  int
	lookahead time.Duration
	horizon   time.Duration
	bounded   bool // horizon is set by an active RunFor

	runIDs RunIDGenerator
	runID  string
	logger *slog.Logger

	err error // first failure; the engine is halted once set
}

// taskState is the engine's bookkeeping for one task.
type taskState struct {
	span    Span
	factory task.Factory
	task    task.Task
	gen     uint64
	cond    *conditionWait
	waiters []task.ID
}

// conditionWait is a task suspended on a condition.
type conditionWait struct {
	cond      task.Condition
	reads     []int // nil until first polled
	scheduled bool
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxSteps sets the maximum task steps per simulated instant.
//
// Default: 10000 steps (DefaultMaxSteps)
// Use WithMaxSteps(10) for testing quota enforcement.
func WithMaxSteps(maxSteps int) EngineOption {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithLookahead sets the condition search horizon used outside RunFor.
func WithLookahead(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.lookahead = d
	}
}

// WithRunIDGenerator sets the generator for the run ID.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithRunID fixes the run ID.
func WithRunID(id string) EngineOption {
	return func(e *Engine) {
		e.runIDs = NewFixedGenerator(id)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the clock that task IDs and job sequence numbers are drawn
// from.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine over model at time zero. The model's daemons are
// scheduled at time zero in registration order.
func New(model *mission.Model, opts ...EngineOption) *Engine {
	e := &Engine{
		model:     model,
		clock:     NewClock(),
		jobs:      newJobQueue(),
		now:       model.Timeline.Start(),
		tasks:     make(map[task.ID]*taskState),
		cycles:    NewCycleDetector(),
		maxSteps:  DefaultMaxSteps,
		lookahead: DefaultLookahead,
		runIDs:    UUIDv7Generator{},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.quota = NewQuotaEnforcer(e.maxSteps)
	e.runID = e.runIDs.Generate()

	for _, d := range model.Daemons() {
		f := d.Factory
		if f.Name == "" {
			f.Name = d.Name
		}
		id := e.newTask(f, 0, 0)
		e.push(0, id)
	}

	e.logger.Info("engine created",
		"run_id", e.runID,
		"daemons", len(model.Daemons()),
		"max_steps", e.maxSteps)
	return e
}

// RunID returns the identifier of this run.
func (e *Engine) RunID() string {
	return e.runID
}

// Model returns the model the engine simulates.
func (e *Engine) Model() *mission.Model {
	return e.model
}

// Elapsed returns the current simulated time.
func (e *Engine) Elapsed() time.Duration {
	return e.now.Elapsed()
}

// History returns the committed trunk history.
func (e *Engine) History() timeline.History {
	return e.now
}

// Err returns the error that halted the engine, or nil.
func (e *Engine) Err() error {
	return e.err
}

// Defer schedules a task to start delay after the current time.
func (e *Engine) Defer(delay time.Duration, f task.Factory) (task.ID, error) {
	if e.err != nil {
		return 0, e.halted()
	}
	if delay < 0 {
		return 0, fmt.Errorf("defer %q: %w: %s", f.Name, ErrNegativeDelay, delay)
	}
	at := e.Elapsed() + delay
	id := e.newTask(f, 0, at)
	e.push(at, id)
	e.logger.Debug("task deferred", "task", id, "name", f.Name, "at", at)
	return id, nil
}

// Next returns the time of the earliest pending job.
func (e *Engine) Next() (time.Duration, bool) {
	return e.nextAt()
}

// Step runs every job due at the earliest pending instant, advancing the
// clock to it first. It reports false when the agenda is empty.
//
// A conflict, a task error or a contract violation halts the engine: the
// error is returned and every later call returns ErrHalted.
func (e *Engine) Step(ctx context.Context) (bool, error) {
	if e.err != nil {
		return false, e.halted()
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	at, ok := e.nextAt()
	if !ok {
		return false, nil
	}
	if err := e.advanceTo(at); err != nil {
		return false, err
	}
	if err := e.runBatch(at); err != nil {
		return false, err
	}
	return true, nil
}

// RunFor processes every job due within d of the current time and then
// advances the clock to the horizon. Tasks still pending at the horizon stay
// pending and resume on a later RunFor.
func (e *Engine) RunFor(ctx context.Context, d time.Duration) error {
	if e.err != nil {
		return e.halted()
	}
	if d < 0 {
		return fmt.Errorf("run for %s: %w", d, ErrNegativeDelay)
	}
	end := e.Elapsed() + d
	e.horizon, e.bounded = end, true
	defer func() { e.bounded = false }()

	e.logger.Info("run started", "run_id", e.runID, "from", e.Elapsed(), "until", end)

	// A longer horizon may now contain the satisfying offset.
	if err := e.pollConditions(e.Elapsed(), func(cw *conditionWait) bool {
		return !cw.scheduled
	}); err != nil {
		return e.fail(err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		at, ok := e.nextAt()
		if !ok || at > end {
			break
		}
		if _, err := e.Step(ctx); err != nil {
			return err
		}
	}
	if err := e.advanceTo(end); err != nil {
		return err
	}

	e.logger.Info("run finished",
		"run_id", e.runID,
		"elapsed", e.Elapsed(),
		"pending", e.Pending())
	return nil
}

// Run steps until the agenda is empty. Models with daemons that loop forever
// never drain; use RunFor for those.
func (e *Engine) Run(ctx context.Context) error {
	for {
		more, err := e.Step(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Pending returns the number of tasks that have not completed.
func (e *Engine) Pending() int {
	n := 0
	for _, st := range e.tasks {
		if st.span.Status == SpanScheduled || st.span.Status == SpanRunning {
			n++
		}
	}
	return n
}

func (e *Engine) newTask(f task.Factory, parent task.ID, at time.Duration) task.ID {
	id := task.ID(e.clock.Next())
	e.tasks[id] = &taskState{
		span: Span{
			ID:        id,
			Parent:    parent,
			Name:      f.Name,
			Scheduled: at,
			Status:    SpanScheduled,
		},
		factory: f,
	}
	return id
}

func (e *Engine) push(at time.Duration, id task.ID) {
	st := e.tasks[id]
	e.jobs.Push(job{at: at, seq: e.clock.Next(), task: id, gen: st.gen})
}

// stale reports whether j was superseded or its task already finished.
func (e *Engine) stale(j job) bool {
	st, ok := e.tasks[j.task]
	return !ok || st.gen != j.gen || st.span.Status == SpanCompleted || st.span.Status == SpanFailed
}

func (e *Engine) nextAt() (time.Duration, bool) {
	for {
		j, ok := e.jobs.Peek()
		if !ok {
			return 0, false
		}
		if !e.stale(j) {
			return j.at, true
		}
		e.jobs.Pop()
	}
}

func (e *Engine) advanceTo(at time.Duration) error {
	elapsed := e.Elapsed()
	if at <= elapsed {
		return nil
	}
	next, err := e.now.Wait(at - elapsed)
	if err != nil {
		return e.fail(e.commitError(elapsed, err))
	}
	e.now = next
	return nil
}

func (e *Engine) commitError(at time.Duration, err error) error {
	if timeline.IsConflict(err) {
		return NewConflictError(at, err)
	}
	return &RuntimeError{
		Code:    ErrCodeInvalidStatus,
		Message: "commit failed",
		At:      at,
		Err:     err,
	}
}

func (e *Engine) fail(err error) error {
	e.err = err
	e.logger.Error("engine halted", "run_id", e.runID, "at", e.Elapsed(), "error", err)
	return err
}

func (e *Engine) halted() error {
	return fmt.Errorf("%w: %w", ErrHalted, e.err)
}

// runBatch runs the jobs due at at and commits the instant.
func (e *Engine) runBatch(at time.Duration) error {
	var due []job
	for _, j := range e.jobs.PopAt(at) {
		if !e.stale(j) {
			due = append(due, j)
		}
	}

	e.logger.Debug("batch", "at", at, "jobs", len(due))

	root := &frame{tip: e.now}
	// Branches are popped LIFO, so fork in reverse to run in scheduling order.
	for i := len(due) - 1; i >= 0; i-- {
		root.fork(due[i].task)
	}

	tip, err := e.runFrames(root, at)
	if err != nil {
		return e.fail(err)
	}

	var touched []int
	if !graph.IsEmpty(tip.Pending()) {
		committed, err := tip.Commit()
		if err != nil {
			return e.fail(e.commitError(at, err))
		}
		e.now = committed
		touched = e.now.Touched()
	}

	if err := e.pollConditions(at, func(cw *conditionWait) bool {
		return cw.reads == nil || intersects(cw.reads, touched)
	}); err != nil {
		return e.fail(err)
	}
	return nil
}

// runFrames drives the frame stack until the root frame is exhausted and
// returns the root's joined tip.
func (e *Engine) runFrames(root *frame, at time.Duration) (timeline.History, error) {
	stack := []*frame{root}
	for {
		top := stack[len(stack)-1]
		if br, ok := top.pop(); ok {
			child := &frame{tip: br.base}
			if err := e.stepTask(child, br.task, at); err != nil {
				return timeline.History{}, err
			}
			stack = append(stack, child)
			continue
		}

		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return top.tip, nil
		}
		parent := stack[len(stack)-1]
		joined, err := timeline.Join(parent.tip, top.tip)
		if err != nil {
			return timeline.History{}, fmt.Errorf("join frame: %w", err)
		}
		parent.tip = joined
	}
}

// stepTask runs one step of task id on fr and applies the returned status.
func (e *Engine) stepTask(fr *frame, id task.ID, at time.Duration) error {
	st := e.tasks[id]
	if err := e.quota.Check(at); err != nil {
		st.span.Status = SpanFailed
		st.span.End = at
		return err
	}

	if st.task == nil {
		if st.factory.New == nil {
			st.span.Status = SpanFailed
			return &RuntimeError{
				Code:    ErrCodeInvalidStatus,
				Message: fmt.Sprintf("factory %q has no constructor", st.factory.Name),
				Task:    id,
				At:      at,
			}
		}
		st.task = st.factory.New()
		st.span.Start = at
		st.span.Status = SpanRunning
	}
	if st.cond != nil {
		st.cond = nil
		st.gen++
	}

	sched := &stepContext{e: e, frame: fr, self: id, at: at}
	status, err := st.task.Step(sched)
	if err != nil {
		st.span.Status = SpanFailed
		st.span.End = at
		return &TaskError{Task: id, Name: st.span.Name, At: at, Err: err}
	}

	return e.apply(st, status, at)
}

// apply records the outcome of a step.
func (e *Engine) apply(st *taskState, status task.Status, at time.Duration) error {
	id := st.span.ID
	switch s := status.(type) {
	case task.Completed:
		st.span.Status = SpanCompleted
		st.span.End = at
		for _, w := range st.waiters {
			e.cycles.Clear(w)
			e.push(at, w)
		}
		st.waiters = nil
		e.logger.Debug("task completed", "task", id, "name", st.span.Name, "at", at)

	case task.Delayed:
		if s.Duration < 0 {
			return &RuntimeError{
				Code:    ErrCodeInvalidStatus,
				Message: fmt.Sprintf("negative delay %s", s.Duration),
				Task:    id,
				At:      at,
			}
		}
		e.push(at+s.Duration, id)

	case task.AwaitingTask:
		target, ok := e.tasks[s.Task]
		if !ok {
			return &RuntimeError{
				Code:    ErrCodeUnknownTask,
				Message: fmt.Sprintf("await on unknown task %s", s.Task),
				Task:    id,
				At:      at,
			}
		}
		if target.span.Status == SpanCompleted {
			e.push(at, id)
			return nil
		}
		if path, cyc := e.cycles.WouldCycle(id, s.Task); cyc {
			return NewAwaitCycleError(id, path, at)
		}
		e.cycles.Record(id, s.Task)
		target.waiters = append(target.waiters, id)

	case task.AwaitingCondition:
		if s.Condition == nil {
			return &RuntimeError{
				Code:    ErrCodeInvalidStatus,
				Message: "await on nil condition",
				Task:    id,
				At:      at,
			}
		}
		st.cond = &conditionWait{cond: s.Condition}

	default:
		return &RuntimeError{
			Code:    ErrCodeInvalidStatus,
			Message: fmt.Sprintf("unknown status %T", status),
			Task:    id,
			At:      at,
		}
	}
	return nil
}

// pollConditions evaluates the pending conditions selected by want against
// the committed trunk, in task ID order.
func (e *Engine) pollConditions(at time.Duration, want func(*conditionWait) bool) error {
	var ids []task.ID
	for id, st := range e.tasks {
		if st.cond != nil && want(st.cond) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	for _, id := range ids {
		if err := e.pollCondition(e.tasks[id], at); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) pollCondition(st *taskState, at time.Duration) error {
	cw := st.cond
	// Invalidates any resume scheduled by an earlier poll.
	st.gen++
	cw.scheduled = false

	tr := timeline.Track(e.now)
	offset, ok, err := cw.cond(tr, e.conditionHorizon())
	cw.reads = tr.Reads()
	if cw.reads == nil {
		cw.reads = []int{}
	}
	if err != nil {
		st.span.Status = SpanFailed
		st.span.End = at
		return &TaskError{Task: st.span.ID, Name: st.span.Name, At: at, Err: fmt.Errorf("condition: %w", err)}
	}
	if !ok {
		return nil
	}
	if offset < 0 {
		offset = 0
	}
	cw.scheduled = true
	e.push(at+offset, st.span.ID)
	return nil
}

func (e *Engine) conditionHorizon() time.Duration {
	if e.bounded {
		return max(e.horizon-e.Elapsed(), 0)
	}
	return e.lookahead
}

// intersects reports whether the ascending slices a and b share an element.
func intersects(a, b []int) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}
