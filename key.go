package syncview

import (
	"strings"

	"github.com/planwheel/syncview/internal/util"
)

// Key identifies one logical cached query as an ordered segment tuple.
// Keys are hierarchical: Key{"tasks", boardID} is a prefix of
// Key{"tasks", boardID, filterHash}, and prefix operations (Invalidate,
// CancelInFlight) match every key extending the given prefix.
//
// Segments must not contain ':'; ids are opaque and user-supplied parameter
// sets are canonicalized into a short hash segment.
type Key []string

func (k Key) String() string { return strings.Join(k, ":") }

func (k Key) Clone() Key {
	out := make(Key, len(k))
	copy(out, k)
	return out
}

// HasPrefix reports whether p is a (possibly equal) prefix of k.
// An empty prefix matches every key.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

func (k Key) Equal(o Key) bool {
	return len(k) == len(o) && k.HasPrefix(o)
}

// Named query keys. Two calls with identical parameters always produce keys
// that resolve to the same cache entry.

func BoardsKey() Key         { return Key{"boards"} }
func BoardSummariesKey() Key { return Key{"board-summaries"} }
func BoardKey(id string) Key { return Key{"board", id} }

func TasksRootKey() Key { return Key{"tasks"} }
func AllTasksKey() Key  { return Key{"tasks", "all"} }

// BoardTasksKey is the unfiltered task list of one board.
func BoardTasksKey(boardID string) Key { return Key{"tasks", "board", boardID} }

// FilteredBoardTasksKey extends the board list key with a canonical hash of
// the filter set, so equal filters share an entry regardless of field order.
func FilteredBoardTasksKey(boardID string, f TaskFilters) Key {
	if f.IsZero() {
		return BoardTasksKey(boardID)
	}
	return Key{"tasks", "board", boardID, util.ParamHash(f.canonical())}
}

// InboxTasksKey is the unassigned (no board) task list.
func InboxTasksKey() Key { return Key{"tasks", "inbox"} }

// TodayTasksKey is the fast-moving "due today" view.
func TodayTasksKey() Key { return Key{"tasks", "today"} }

func TaskKey(id string) Key { return Key{"task", id} }

func SectionsKey(boardID string) Key { return Key{"sections", boardID} }
