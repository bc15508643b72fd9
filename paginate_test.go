package syncview

import (
	"fmt"
	"testing"
)

// makeGrouped builds a flat task list laid out as consecutive groups, e.g.
// sizes {"A": 5, "B": 4} in order.
func makeGrouped(sizes []int) []Task {
	var out []Task
	for gi, n := range sizes {
		board := string(rune('A' + gi))
		for i := 0; i < n; i++ {
			b := board
			out = append(out, Task{ID: fmt.Sprintf("%s-%d", board, i), BoardID: &b})
		}
	}
	return out
}

func groupIDs(p Page[Task]) []string {
	out := make([]string, 0, len(p.Groups))
	for _, g := range p.Groups {
		out = append(out, g.ID)
	}
	return out
}

func pageItemCount(p Page[Task]) int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Items)
	}
	return n
}

// Groups of 5, 4 and 3 items with a page size of 6: the first page carries
// groups A and B in full (9 items, overflowing the soft cap), the second
// carries C alone.
func TestPaginateSoftCapOverflow(t *testing.T) {
	items := makeGrouped([]int{5, 4, 3})

	p1 := Paginate(items, GroupByBoard, 1, 6)
	if got := groupIDs(p1); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("page 1 groups: %v", got)
	}
	if n := pageItemCount(p1); n != 9 {
		t.Fatalf("page 1 items: %d, want 9", n)
	}
	if p1.TotalPages != 2 || p1.TotalItems != 12 {
		t.Fatalf("totals: pages=%d items=%d", p1.TotalPages, p1.TotalItems)
	}

	p2 := Paginate(items, GroupByBoard, 2, 6)
	if got := groupIDs(p2); len(got) != 1 || got[0] != "C" {
		t.Fatalf("page 2 groups: %v", got)
	}
	if n := pageItemCount(p2); n != 3 {
		t.Fatalf("page 2 items: %d, want 3", n)
	}
}

// Every group appears on exactly one page and in full, across any page size.
func TestPaginateNeverBisectsGroups(t *testing.T) {
	sizes := []int{1, 7, 2, 2, 5, 1, 3}
	items := makeGrouped(sizes)

	for pageSize := 1; pageSize <= len(items)+1; pageSize++ {
		seen := make(map[string]int)
		totalPages := Paginate(items, GroupByBoard, 1, pageSize).TotalPages
		for page := 1; page <= totalPages; page++ {
			for _, g := range Paginate(items, GroupByBoard, page, pageSize).Groups {
				seen[g.ID] += len(g.Items)
			}
		}
		for gi, n := range sizes {
			id := string(rune('A' + gi))
			if seen[id] != n {
				t.Fatalf("pageSize=%d: group %s has %d items across pages, want %d",
					pageSize, id, seen[id], n)
			}
		}
	}
}

func TestPaginateTotalPagesIgnoresGrouping(t *testing.T) {
	items := makeGrouped([]int{5, 4, 3}) // 12 items
	cases := []struct {
		pageSize, want int
	}{
		{6, 2}, {5, 3}, {12, 1}, {13, 1}, {1, 12},
	}
	for _, tc := range cases {
		if got := Paginate(items, GroupByBoard, 1, tc.pageSize).TotalPages; got != tc.want {
			t.Fatalf("pageSize=%d: TotalPages=%d, want %d", tc.pageSize, got, tc.want)
		}
	}
}

func TestPaginateEdgeCases(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		p := Paginate(nil, GroupByBoard, 1, 6)
		if p.TotalPages != 1 || p.TotalItems != 0 || len(p.Groups) != 0 {
			t.Fatalf("empty input: %+v", p)
		}
	})
	t.Run("page clamped high", func(t *testing.T) {
		// one group of 3, pageSize 2: TotalPages is 2 but the whole group
		// sits on page 1, so an out-of-range request lands there
		items := makeGrouped([]int{3})
		p := Paginate(items, GroupByBoard, 99, 2)
		if len(p.Groups) != 1 || p.Groups[0].ID != "A" || len(p.Groups[0].Items) != 3 {
			t.Fatalf("out-of-range page should land on the last page with content: %+v", p)
		}
		if p.TotalPages != 2 {
			t.Fatalf("TotalPages=%d, want 2", p.TotalPages)
		}
	})
	t.Run("in-range window swallowed by a spanning group", func(t *testing.T) {
		// group A spans pages 1 and 2; page 2 renders empty so A stays on
		// exactly one page
		items := makeGrouped([]int{3})
		p := Paginate(items, GroupByBoard, 2, 2)
		if len(p.Groups) != 0 {
			t.Fatalf("in-range empty window must not repeat earlier groups: %+v", p)
		}
	})
	t.Run("page clamped low", func(t *testing.T) {
		items := makeGrouped([]int{3})
		p := Paginate(items, GroupByBoard, 0, 2)
		if len(p.Groups) != 1 || p.Groups[0].ID != "A" {
			t.Fatalf("page 0 should clamp to page 1: %+v", p)
		}
	})
	t.Run("non-positive page size", func(t *testing.T) {
		items := makeGrouped([]int{5, 4})
		p := Paginate(items, GroupByBoard, 1, 0)
		if p.TotalPages != 1 || pageItemCount(p) != 9 {
			t.Fatalf("pageSize<=0 should serve everything: %+v", p)
		}
	})
	t.Run("single oversized group", func(t *testing.T) {
		items := makeGrouped([]int{10})
		p := Paginate(items, GroupByBoard, 1, 3)
		if len(p.Groups) != 1 || len(p.Groups[0].Items) != 10 {
			t.Fatalf("oversized group must stay whole: %+v", p)
		}
		if p.TotalPages != 4 {
			t.Fatalf("TotalPages=%d, want 4", p.TotalPages)
		}
	})
}

// Tasks without a board group under "inbox".
func TestGroupByBoardInbox(t *testing.T) {
	if got := GroupByBoard(Task{ID: "t1"}); got != "inbox" {
		t.Fatalf("GroupByBoard(no board) = %q", got)
	}
	b := "b1"
	if got := GroupByBoard(Task{ID: "t1", BoardID: &b}); got != "b1" {
		t.Fatalf("GroupByBoard(board) = %q", got)
	}
}

func TestPagerResets(t *testing.T) {
	items := makeGrouped([]int{5, 4, 3})

	p := NewPager(6)
	p.SetPage(2)
	res := PaginateWith(p, items, GroupByBoard)
	if got := groupIDs(res); len(got) != 1 || got[0] != "C" {
		t.Fatalf("page 2: %v", got)
	}

	// same collection size: the page sticks
	res = PaginateWith(p, items, GroupByBoard)
	if p.Page() != 2 {
		t.Fatalf("page reset without a size change")
	}

	// item count changed: back to page 1
	res = PaginateWith(p, items[:7], GroupByBoard)
	if p.Page() != 1 {
		t.Fatalf("page not reset on size change: %d", p.Page())
	}
	if got := groupIDs(res); len(got) == 0 || got[0] != "A" {
		t.Fatalf("expected first page after reset: %v", got)
	}

	// page size changed: also back to page 1
	p.SetPage(2)
	p.SetPageSize(3)
	if p.Page() != 1 {
		t.Fatalf("page not reset on page size change")
	}
}
