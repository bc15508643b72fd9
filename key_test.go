package syncview

import (
	"testing"
	"time"
)

func TestKeyPrefixHierarchy(t *testing.T) {
	cases := []struct {
		name   string
		key    Key
		prefix Key
		want   bool
	}{
		{"root matches everything", BoardTasksKey("b1"), Key{"tasks"}, true},
		{"exact key is its own prefix", BoardTasksKey("b1"), BoardTasksKey("b1"), true},
		{"board subtree", FilteredBoardTasksKey("b1", TaskFilters{Status: "done"}), BoardTasksKey("b1"), true},
		{"sibling board excluded", BoardTasksKey("b2"), BoardTasksKey("b1"), false},
		{"inbox is not under board", InboxTasksKey(), Key{"tasks", "board"}, false},
		{"longer prefix than key", Key{"tasks"}, BoardTasksKey("b1"), false},
		{"nil prefix matches", TaskKey("t1"), nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.key.HasPrefix(tc.prefix); got != tc.want {
				t.Fatalf("%v.HasPrefix(%v) = %v, want %v", tc.key, tc.prefix, got, tc.want)
			}
		})
	}
}

// Filter parameters hash deterministically: equal filters yield equal keys,
// different filters yield distinct keys under the same board prefix.
func TestFilteredKeyStability(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f1 := TaskFilters{Status: "todo", Search: "milk", DueBefore: &due}
	f2 := TaskFilters{Status: "todo", Search: "milk", DueBefore: &due}
	f3 := TaskFilters{Status: "done"}

	k1 := FilteredBoardTasksKey("b1", f1)
	k2 := FilteredBoardTasksKey("b1", f2)
	k3 := FilteredBoardTasksKey("b1", f3)

	if !k1.Equal(k2) {
		t.Fatalf("identical filters produced distinct keys: %v vs %v", k1, k2)
	}
	if k1.Equal(k3) {
		t.Fatalf("different filters collided: %v", k1)
	}
	if !k1.HasPrefix(BoardTasksKey("b1")) {
		t.Fatalf("filtered key left the board subtree: %v", k1)
	}
}

func TestFilteredKeyZeroFilters(t *testing.T) {
	if got := FilteredBoardTasksKey("b1", TaskFilters{}); !got.Equal(BoardTasksKey("b1")) {
		t.Fatalf("zero filters should collapse to the plain board key: %v", got)
	}
}

func TestKeyCloneIsIndependent(t *testing.T) {
	k := BoardTasksKey("b1")
	c := k.Clone()
	c[0] = "mutated"
	if k[0] != "tasks" {
		t.Fatalf("Clone shares backing storage")
	}
}

func TestKeyString(t *testing.T) {
	if got := BoardTasksKey("b1").String(); got != "tasks:board:b1" {
		t.Fatalf("String() = %q", got)
	}
}
