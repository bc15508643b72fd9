package syncview

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entity is any record exchanged with the remote persistence service.
type Entity interface {
	EntityID() string
}

// Task is one item on a board. BoardID is nil for unassigned (inbox) tasks.
// ItemData is an opaque template payload owned by the rendering layer; this
// layer never interprets it and passes it through unchanged.
type Task struct {
	ID        string         `json:"id" msgpack:"id"`
	BoardID   *string        `json:"board_id,omitempty" msgpack:"board_id,omitempty"`
	SectionID *string        `json:"section_id,omitempty" msgpack:"section_id,omitempty"`
	Title     string         `json:"title" msgpack:"title"`
	Status    string         `json:"status" msgpack:"status"`
	Due       *time.Time     `json:"due,omitempty" msgpack:"due,omitempty"`
	Position  int            `json:"position" msgpack:"position"`
	ItemData  map[string]any `json:"item_data,omitempty" msgpack:"item_data,omitempty"`
	CreatedAt time.Time      `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" msgpack:"updated_at"`
}

func (t Task) EntityID() string { return t.ID }

// Board is one templated container of tasks. Template is a discriminant the
// rendering layer uses to pick field schemas (job tracker, recipe, kanban...).
type Board struct {
	ID        string    `json:"id" msgpack:"id"`
	Name      string    `json:"name" msgpack:"name"`
	Template  string    `json:"template" msgpack:"template"`
	Position  int       `json:"position" msgpack:"position"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at"`
}

func (b Board) EntityID() string { return b.ID }

// Section is a named ordered slice of a board (e.g. a kanban column).
type Section struct {
	ID       string `json:"id" msgpack:"id"`
	BoardID  string `json:"board_id" msgpack:"board_id"`
	Name     string `json:"name" msgpack:"name"`
	Position int    `json:"position" msgpack:"position"`
}

func (s Section) EntityID() string { return s.ID }

// BoardSummary is a board plus its task count, used by overview lists.
type BoardSummary struct {
	Board     Board `json:"board" msgpack:"board"`
	TaskCount int   `json:"task_count" msgpack:"task_count"`
}

func (s BoardSummary) EntityID() string { return s.Board.ID }

// TaskPatch is a partial task update. Nil fields are left untouched;
// ClearBoard/ClearDue distinguish "set to nothing" from "leave alone".
// ItemData, when non-nil, replaces the payload wholesale (opaque passthrough).
type TaskPatch struct {
	Title      *string        `json:"title,omitempty"`
	Status     *string        `json:"status,omitempty"`
	BoardID    *string        `json:"board_id,omitempty"`
	ClearBoard bool           `json:"clear_board,omitempty"`
	SectionID  *string        `json:"section_id,omitempty"`
	Due        *time.Time     `json:"due,omitempty"`
	ClearDue   bool           `json:"clear_due,omitempty"`
	Position   *int           `json:"position,omitempty"`
	ItemData   map[string]any `json:"item_data,omitempty"`
}

// Apply returns a patched value copy. This is the optimistic patch the
// executor writes into every containing view before the remote call settles.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	switch {
	case p.ClearBoard:
		t.BoardID = nil
		t.SectionID = nil
	case p.BoardID != nil:
		id := *p.BoardID
		t.BoardID = &id
	}
	if p.SectionID != nil && !p.ClearBoard {
		id := *p.SectionID
		t.SectionID = &id
	}
	switch {
	case p.ClearDue:
		t.Due = nil
	case p.Due != nil:
		due := *p.Due
		t.Due = &due
	}
	if p.Position != nil {
		t.Position = *p.Position
	}
	if p.ItemData != nil {
		t.ItemData = p.ItemData
	}
	return t
}

// BoardPatch is a partial board update.
type BoardPatch struct {
	Name     *string `json:"name,omitempty"`
	Template *string `json:"template,omitempty"`
	Position *int    `json:"position,omitempty"`
}

func (p BoardPatch) Apply(b Board) Board {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Template != nil {
		b.Template = *p.Template
	}
	if p.Position != nil {
		b.Position = *p.Position
	}
	return b
}

// TaskFilters narrows a board task list. The zero value means "no filters"
// and shares a cache entry with the unfiltered list.
type TaskFilters struct {
	Status    string     `json:"status,omitempty"`
	SectionID string     `json:"section_id,omitempty"`
	DueBefore *time.Time `json:"due_before,omitempty"`
	Search    string     `json:"search,omitempty"`
}

func (f TaskFilters) IsZero() bool {
	return f.Status == "" && f.SectionID == "" && f.DueBefore == nil && f.Search == ""
}

// canonical renders the filter set with fixed field order and zero fields
// omitted, so equal filters hash to the same key segment.
func (f TaskFilters) canonical() string {
	parts := make([]string, 0, 4)
	if f.Status != "" {
		parts = append(parts, "status="+f.Status)
	}
	if f.SectionID != "" {
		parts = append(parts, "section="+f.SectionID)
	}
	if f.DueBefore != nil {
		parts = append(parts, "due_before="+f.DueBefore.UTC().Format(time.RFC3339Nano))
	}
	if f.Search != "" {
		parts = append(parts, "q="+f.Search)
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

// Match reports whether t satisfies the filter set. Used by fake remotes in
// tests and by degraded local-only filtering.
func (f TaskFilters) Match(t Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.SectionID != "" && (t.SectionID == nil || *t.SectionID != f.SectionID) {
		return false
	}
	if f.DueBefore != nil && (t.Due == nil || !t.Due.Before(*f.DueBefore)) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// GroupByBoard is the standard grouping function for cross-board task views:
// tasks cluster under their board id, unassigned tasks under "inbox".
func GroupByBoard(t Task) string {
	if t.BoardID == nil {
		return "inbox"
	}
	return *t.BoardID
}

func (t Task) String() string {
	board := "inbox"
	if t.BoardID != nil {
		board = *t.BoardID
	}
	return fmt.Sprintf("task(%s board=%s status=%s)", t.ID, board, t.Status)
}
