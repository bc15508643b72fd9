package syncview

import (
	"context"
	"time"
)

// TaskQuery selects a task collection from the remote service.
// Exactly one of BoardID / Inbox / Today / All applies; Filters narrows the
// result further (board lists only).
type TaskQuery struct {
	BoardID *string
	Inbox   bool // unassigned tasks only
	Today   bool // due today
	All     bool // the user's full collection
	Filters TaskFilters
}

// Remote is the remote persistence service this layer rides on. The transport
// behind it is not this layer's concern. Every method returns either the
// authoritative entity state or a *RemoteError carrying a machine-readable
// Code (see errors.go).
type Remote interface {
	ListBoards(ctx context.Context) ([]Board, error)
	GetBoard(ctx context.Context, id string) (Board, error)
	CreateBoard(ctx context.Context, b Board) (Board, error)
	UpdateBoard(ctx context.Context, id string, patch BoardPatch) (Board, error)
	DeleteBoard(ctx context.Context, id string) error

	ListTasks(ctx context.Context, q TaskQuery) ([]Task, error)
	GetTask(ctx context.Context, id string) (Task, error)
	CreateTask(ctx context.Context, t Task) (Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)
	DeleteTask(ctx context.Context, id string) error

	ListSections(ctx context.Context, boardID string) ([]Section, error)
}

// SameDay reports whether both instants fall on the same calendar day in loc.
// Used by the client to decide whether a task belongs to the "today" view.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
