package syncview

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/planwheel/syncview/codec"
	"github.com/planwheel/syncview/provider/ristretto"
)

// Client is the named query/mutation surface the rendering layer consumes.
// It exposes no raw cache-key API; every query below maps to a registered
// key and a per-view freshness policy.
type Client struct {
	remote Remote

	provider     Provider
	ownsProvider bool

	boards    *Store[[]Board]
	board     *Store[Board]
	summaries *Store[[]BoardSummary]
	sections  *Store[[]Section]
	tasks     *Store[[]Task]
	task      *Store[Task]

	taskExec  *Executor[Task]
	boardExec *Executor[Board]

	log      Logger
	hooks    Hooks
	retry    RetryPolicy
	loc      *time.Location
	degraded atomic.Bool
}

func newClient(opts Options) (*Client, error) {
	if opts.Remote == nil {
		return nil, fmt.Errorf("syncview: remote is required")
	}

	prov := opts.Provider
	owns := false
	if prov == nil {
		p, err := ristretto.New(ristretto.Config{
			NumCounters: 100_000,
			MaxCost:     32 << 20, // bytes; store passes frame length as cost
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
		prov = p
		owns = true
	}

	c := &Client{
		remote:       opts.Remote,
		provider:     prov,
		ownsProvider: owns,
		log:          coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:        coalesce[Hooks](opts.Hooks, NopHooks{}),
		retry:        opts.Retry,
		loc:          opts.Location,
	}
	if c.loc == nil {
		c.loc = time.Local
	}

	pol := opts.Policy
	if pol == nil {
		pol = ViewPolicy
	}

	var err error
	if c.boards, err = newViewStore[[]Board](c, "boards", pol, opts.SweepInterval); err != nil {
		return nil, err
	}
	if c.board, err = newViewStore[Board](c, "board", pol, opts.SweepInterval); err != nil {
		return nil, err
	}
	if c.summaries, err = newViewStore[[]BoardSummary](c, "summaries", pol, opts.SweepInterval); err != nil {
		return nil, err
	}
	if c.sections, err = newViewStore[[]Section](c, "sections", pol, opts.SweepInterval); err != nil {
		return nil, err
	}
	if c.tasks, err = newViewStore[[]Task](c, "tasks", pol, opts.SweepInterval); err != nil {
		return nil, err
	}
	if c.task, err = newViewStore[Task](c, "task", pol, opts.SweepInterval); err != nil {
		return nil, err
	}

	c.taskExec, err = NewExecutor(ExecutorOptions[Task]{
		Lists:      c.tasks,
		Singles:    c.task,
		SingleKey:  TaskKey,
		Dependents: taskDependents,
		Invalidate: c.invalidatePrefixes,
		Logger:     c.log,
		Hooks:      c.hooks,
	})
	if err != nil {
		return nil, err
	}
	c.boardExec, err = NewExecutor(ExecutorOptions[Board]{
		Lists:      c.boards,
		Singles:    c.board,
		SingleKey:  BoardKey,
		Dependents: boardDependents,
		Invalidate: c.invalidatePrefixes,
		Logger:     c.log,
		Hooks:      c.hooks,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newViewStore[V any](c *Client, ns string, pol PolicyFunc, sweep time.Duration) (*Store[V], error) {
	return NewStore(StoreOptions[V]{
		Namespace:     ns,
		Provider:      c.provider,
		Codec:         codec.Msgpack[V]{},
		Logger:        c.log,
		Hooks:         c.hooks,
		Policy:        pol,
		SweepInterval: sweep,
	})
}

// Close tears the cache down (logout). Stores stop their sweeps first; the
// provider is closed only when the client created it.
func (c *Client) Close(ctx context.Context) error {
	for _, closer := range []interface{ Close() }{c.boards, c.board, c.summaries, c.sections, c.tasks, c.task} {
		closer.Close()
	}
	if c.ownsProvider {
		return c.provider.Close(ctx)
	}
	return nil
}

// Degraded reports whether the remote has signalled that its schema is not
// provisioned yet; callers switch to a local-only UI instead of failing.
func (c *Client) Degraded() bool { return c.degraded.Load() }

// ---- queries ----

func (c *Client) Boards(ctx context.Context) (Result[[]Board], error) {
	return fetchQuery(ctx, c, c.boards, BoardsKey(), c.remote.ListBoards)
}

func (c *Client) BoardSummaries(ctx context.Context) (Result[[]BoardSummary], error) {
	return fetchQuery(ctx, c, c.summaries, BoardSummariesKey(), c.fetchSummaries)
}

func (c *Client) Sections(ctx context.Context, boardID string) (Result[[]Section], error) {
	return fetchQuery(ctx, c, c.sections, SectionsKey(boardID), func(ctx context.Context) ([]Section, error) {
		return c.remote.ListSections(ctx, boardID)
	})
}

// Tasks is the task list of one board, optionally filtered.
func (c *Client) Tasks(ctx context.Context, boardID string, f TaskFilters) (Result[[]Task], error) {
	return fetchQuery(ctx, c, c.tasks, FilteredBoardTasksKey(boardID, f), func(ctx context.Context) ([]Task, error) {
		return c.remote.ListTasks(ctx, TaskQuery{BoardID: &boardID, Filters: f})
	})
}

// InboxTasks lists unassigned tasks.
func (c *Client) InboxTasks(ctx context.Context) (Result[[]Task], error) {
	return fetchQuery(ctx, c, c.tasks, InboxTasksKey(), func(ctx context.Context) ([]Task, error) {
		return c.remote.ListTasks(ctx, TaskQuery{Inbox: true})
	})
}

// TodayTasks is the fast-moving "due today" view; its entry is stale the
// moment it lands, so every access refetches while still showing the
// last-known value.
func (c *Client) TodayTasks(ctx context.Context) (Result[[]Task], error) {
	return fetchQuery(ctx, c, c.tasks, TodayTasksKey(), func(ctx context.Context) ([]Task, error) {
		return c.remote.ListTasks(ctx, TaskQuery{Today: true})
	})
}

// AllTasks is the user's full collection, also the candidate set for the
// ownership gate.
func (c *Client) AllTasks(ctx context.Context) (Result[[]Task], error) {
	return fetchQuery(ctx, c, c.tasks, AllTasksKey(), func(ctx context.Context) ([]Task, error) {
		return c.remote.ListTasks(ctx, TaskQuery{All: true})
	})
}

// TaskByID reads one task. When the full collection is cached, an id absent
// from it is rejected without a network round-trip; the rejection is
// indistinguishable from a remote not-found.
func (c *Client) TaskByID(ctx context.Context, id string) (Result[Task], error) {
	if err := c.gateTask(ctx, id, "tasks.get"); err != nil {
		return Result[Task]{}, err
	}
	return fetchQuery(ctx, c, c.task, TaskKey(id), func(ctx context.Context) (Task, error) {
		return c.remote.GetTask(ctx, id)
	})
}

// ---- mutations ----

func (c *Client) CreateTask(ctx context.Context, draft Task) (Task, error) {
	if err := c.guardWrite("tasks.create"); err != nil {
		return Task{}, err
	}
	now := time.Now()
	draft.ID = TempID()
	draft.CreatedAt = now
	draft.UpdatedAt = now
	return c.taskExec.Create(ctx, draft, c.taskTargets(draft), func(ctx context.Context) (Task, error) {
		return c.remote.CreateTask(ctx, draft)
	})
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	if err := c.guardWrite("tasks.update"); err != nil {
		return Task{}, err
	}
	if err := c.gateTask(ctx, id, "tasks.update"); err != nil {
		return Task{}, err
	}
	return c.taskExec.Update(ctx, id, patch.Apply, func(ctx context.Context) (Task, error) {
		return c.remote.UpdateTask(ctx, id, patch)
	})
}

// MoveTask reassigns a task to a board (nil => inbox) and section.
func (c *Client) MoveTask(ctx context.Context, id string, boardID, sectionID *string) (Task, error) {
	return c.UpdateTask(ctx, id, TaskPatch{
		BoardID:    boardID,
		SectionID:  sectionID,
		ClearBoard: boardID == nil,
	})
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.guardWrite("tasks.delete"); err != nil {
		return err
	}
	return c.taskExec.Delete(ctx, id, func(ctx context.Context) error {
		return c.remote.DeleteTask(ctx, id)
	})
}

func (c *Client) CreateBoard(ctx context.Context, draft Board) (Board, error) {
	if err := c.guardWrite("boards.create"); err != nil {
		return Board{}, err
	}
	now := time.Now()
	draft.ID = TempID()
	draft.CreatedAt = now
	draft.UpdatedAt = now
	return c.boardExec.Create(ctx, draft, []Key{BoardsKey()}, func(ctx context.Context) (Board, error) {
		return c.remote.CreateBoard(ctx, draft)
	})
}

func (c *Client) UpdateBoard(ctx context.Context, id string, patch BoardPatch) (Board, error) {
	if err := c.guardWrite("boards.update"); err != nil {
		return Board{}, err
	}
	return c.boardExec.Update(ctx, id, patch.Apply, func(ctx context.Context) (Board, error) {
		return c.remote.UpdateBoard(ctx, id, patch)
	})
}

func (c *Client) DeleteBoard(ctx context.Context, id string) error {
	if err := c.guardWrite("boards.delete"); err != nil {
		return err
	}
	return c.boardExec.Delete(ctx, id, func(ctx context.Context) error {
		return c.remote.DeleteBoard(ctx, id)
	})
}

// ---- internals ----

// fetchQuery is the shared read path: fresh hit -> serve; stale hit -> serve
// after a guarded refetch; miss -> blocking fetch. A fetch failure never
// clears a cached value; the previous entry stays visible (stale-but-shown)
// and the error is surfaced alongside.
func fetchQuery[V any](ctx context.Context, c *Client, s *Store[V], key Key, fetch func(context.Context) (V, error)) (Result[V], error) {
	cached, info, ok, err := s.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed", Fields{"key": key.String(), "err": err})
	}
	if ok && !info.Stale {
		return Result[V]{Data: cached}, nil
	}

	observed := s.Version(key)
	fresh, ferr := retryFetch(ctx, c.retry, fetch)
	if ferr != nil {
		if IsNotProvisioned(ferr) {
			c.degraded.Store(true)
		}
		if ok {
			return Result[V]{Data: cached, Stale: true}, ferr
		}
		return Result[V]{Loading: true}, ferr
	}
	c.degraded.Store(false)

	_ = s.SetResolved(ctx, key, fresh, observed)
	if v, inf, ok, _ := s.Get(ctx, key); ok {
		return Result[V]{Data: v, Stale: inf.Stale}, nil
	}
	return Result[V]{Data: fresh}, nil
}

// retryFetch retries transient failures only; validation, not-found and
// not-provisioned are permanent and returned immediately.
func retryFetch[V any](ctx context.Context, p RetryPolicy, fetch func(context.Context) (V, error)) (V, error) {
	op := func() (V, error) {
		v, err := fetch(ctx)
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = coalesce(p.InitialInterval, 50*time.Millisecond)
	b.MaxInterval = coalesce(p.MaxInterval, time.Second)
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(coalesce(p.MaxTries, 3)),
	)
}

func (c *Client) fetchSummaries(ctx context.Context) ([]BoardSummary, error) {
	boards, err := c.remote.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	all, err := c.remote.ListTasks(ctx, TaskQuery{All: true})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(boards))
	for _, t := range all {
		if t.BoardID != nil {
			counts[*t.BoardID]++
		}
	}
	out := make([]BoardSummary, 0, len(boards))
	for _, b := range boards {
		out = append(out, BoardSummary{Board: b, TaskCount: counts[b.ID]})
	}
	return out, nil
}

// gateTask pre-validates id against the cached full collection before a
// remote read. A cold cache falls through to the remote; absence of a
// candidate list must not fabricate a not-found.
func (c *Client) gateTask(ctx context.Context, id, op string) error {
	all, _, ok, _ := c.tasks.Get(ctx, AllTasksKey())
	if ok && !IsOwned(id, all) {
		return &RemoteError{Code: CodeNotFound, Op: op}
	}
	return nil
}

func (c *Client) guardWrite(op string) error {
	if c.degraded.Load() {
		return &RemoteError{Code: CodeNotProvisioned, Op: op}
	}
	return nil
}

// taskTargets lists the views an optimistic create lands in. Only views that
// are already cached get patched; the rest materialize on next fetch.
func (c *Client) taskTargets(t Task) []Key {
	targets := []Key{AllTasksKey()}
	if t.BoardID != nil {
		targets = append(targets, BoardTasksKey(*t.BoardID))
	} else {
		targets = append(targets, InboxTasksKey())
	}
	if t.Due != nil && SameDay(*t.Due, time.Now(), c.loc) {
		targets = append(targets, TodayTasksKey())
	}
	return targets
}

// invalidatePrefixes fans dependent prefixes out to every store; a prefix
// that names no entry in a given store matches nothing there.
func (c *Client) invalidatePrefixes(ctx context.Context, prefixes []Key) {
	for _, p := range prefixes {
		c.tasks.Invalidate(ctx, p)
		c.task.Invalidate(ctx, p)
		c.boards.Invalidate(ctx, p)
		c.board.Invalidate(ctx, p)
		c.summaries.Invalidate(ctx, p)
		c.sections.Invalidate(ctx, p)
	}
}

// taskDependents: a task mutation always touches the today view, the full
// collection and the board summaries (counts), plus the task list of every
// board involved, or the inbox when the task is unassigned.
func taskDependents(before, after *Task) []Key {
	set := make(map[string]Key)
	add := func(k Key) { set[k.String()] = k }

	add(TodayTasksKey())
	add(BoardSummariesKey())
	add(AllTasksKey())
	for _, t := range []*Task{before, after} {
		if t == nil {
			continue
		}
		if t.BoardID != nil {
			add(BoardTasksKey(*t.BoardID))
		} else {
			add(InboxTasksKey())
		}
	}

	out := make([]Key, 0, len(set))
	for _, k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func boardDependents(before, after *Board) []Key {
	ks := []Key{BoardsKey(), BoardSummariesKey()}
	if before != nil && after == nil {
		// deletion orphans the board's tasks; every task view may shift
		ks = append(ks, TasksRootKey(), SectionsKey(before.ID))
	}
	return ks
}
