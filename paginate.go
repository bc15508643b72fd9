package syncview

// Group is a derived, non-persistent cluster of items sharing a grouping
// key, produced for pagination only. Groups are recomputed from the current
// cache state on every call and own no identity of their own.
type Group[E any] struct {
	ID    string
	Items []E
}

// Page is one window over a grouped collection.
type Page[E any] struct {
	Groups     []Group[E]
	TotalPages int
	TotalItems int
}

// Paginate splits items into page windows without ever bisecting a group.
//
// Items are grouped once, in order of first appearance. A group belongs to
// the page whose window contains the group's first item, and is always
// included in full: a group that starts inside the window but extends past
// it overflows the page. The page size is a soft target, not a hard cap.
// TotalPages is computed against the raw item count regardless of group
// boundaries, so the pager UI is unaffected apart from the occasional
// oversized page.
//
// page is clamped to [1, TotalPages]. An in-range window no group starts in
// (its items belong to a group that began on an earlier page) renders empty,
// keeping every group on exactly one page; a request beyond TotalPages lands
// on the last page with content instead. Empty input yields one empty page.
// A non-positive pageSize puts everything on one page.
func Paginate[E any](items []E, groupBy func(E) string, page, pageSize int) Page[E] {
	total := len(items)
	if total == 0 {
		return Page[E]{TotalPages: 1}
	}
	if pageSize <= 0 {
		pageSize = total
	}

	totalPages := (total + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	clamped := false
	if page > totalPages {
		page = totalPages
		clamped = true
	}

	// group by first appearance
	groups := make([]Group[E], 0)
	at := make(map[string]int)
	for _, it := range items {
		gid := groupBy(it)
		i, ok := at[gid]
		if !ok {
			i = len(groups)
			at[gid] = i
			groups = append(groups, Group[E]{ID: gid})
		}
		groups[i].Items = append(groups[i].Items, it)
	}

	window := func(page int) []Group[E] {
		start := (page - 1) * pageSize
		end := start + pageSize
		var out []Group[E]
		offset := 0
		for _, g := range groups {
			if offset >= end {
				break
			}
			if offset >= start {
				out = append(out, g)
			}
			offset += len(g.Items)
		}
		return out
	}

	out := window(page)
	// an out-of-range request lands on the last page with content; page 1
	// always has some (the first group starts at offset 0)
	for clamped && len(out) == 0 && page > 1 {
		page--
		out = window(page)
	}

	return Page[E]{Groups: out, TotalPages: totalPages, TotalItems: total}
}

// Pager tracks the current page across renders. Changing the page size or
// the underlying item count resets to page 1, so a stale page number is
// never silently retained against a shrunk collection.
type Pager struct {
	page      int
	pageSize  int
	itemCount int
	observed  bool
}

func NewPager(pageSize int) *Pager {
	return &Pager{page: 1, pageSize: pageSize}
}

func (p *Pager) Page() int     { return p.page }
func (p *Pager) PageSize() int { return p.pageSize }

func (p *Pager) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	p.page = n
}

func (p *Pager) SetPageSize(n int) {
	if n == p.pageSize {
		return
	}
	p.pageSize = n
	p.page = 1
}

// Observe records the collection size of the current render. A change from
// the previously observed size resets the page; the first observation only
// establishes the baseline.
func (p *Pager) Observe(itemCount int) {
	if p.observed && itemCount == p.itemCount {
		return
	}
	if p.observed {
		p.page = 1
	}
	p.itemCount = itemCount
	p.observed = true
}

// PaginateWith applies the pager's state to items, observing the item count
// first so size changes reset the window.
func PaginateWith[E any](p *Pager, items []E, groupBy func(E) string) Page[E] {
	p.Observe(len(items))
	res := Paginate(items, groupBy, p.page, p.pageSize)
	p.page = min(p.page, res.TotalPages)
	return res
}
