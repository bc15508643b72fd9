package syncview

import "testing"

func TestIsOwned(t *testing.T) {
	tasks := []Task{{ID: "t1"}, {ID: "t2"}}

	cases := []struct {
		name       string
		id         string
		candidates []Task
		want       bool
	}{
		{"present", "t1", tasks, true},
		{"absent", "t9", tasks, false},
		{"empty id", "", tasks, false},
		{"nil candidates", "t1", nil, false},
		{"empty candidates", "t1", []Task{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsOwned(tc.id, tc.candidates); got != tc.want {
				t.Fatalf("IsOwned(%q) = %v, want %v", tc.id, got, tc.want)
			}
		})
	}
}

func TestAreAllOwned(t *testing.T) {
	tasks := []Task{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}}

	if !AreAllOwned([]string{"t1", "t3"}, tasks) {
		t.Fatalf("subset should be owned")
	}
	if AreAllOwned([]string{"t1", "t9"}, tasks) {
		t.Fatalf("one missing id should fail the whole batch")
	}
	// vacuous truth: nothing asked for, nothing missing
	if !AreAllOwned(nil, tasks) {
		t.Fatalf("empty id set should be owned")
	}
	if AreAllOwned([]string{"t1"}, []Task(nil)) {
		t.Fatalf("no candidates owns nothing")
	}
}
