package listing

// DefaultPageSize is used when a query does not ask for a page size.
const DefaultPageSize = 25

// TotalPages is ceil(total/pageSize), never less than 1.
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// Pager holds the pagination state shared by every list screen.
// Page is 1-indexed. DeclaredPages is the page count reported by the API,
// used instead of the computed one when set.
type Pager struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalCount    int `json:"totalCount"`
	DeclaredPages int `json:"-"`
}

// NewPager builds a pager and clamps the page into range.
func NewPager(page, pageSize, totalCount int) Pager {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if totalCount < 0 {
		totalCount = 0
	}
	p := Pager{PageSize: pageSize, TotalCount: totalCount}
	p.GoToPage(page)
	return p
}

// TotalPages for the current count and size.
func (p Pager) TotalPages() int {
	if p.DeclaredPages > 0 {
		return p.DeclaredPages
	}
	return TotalPages(p.TotalCount, p.PageSize)
}

// GoToPage moves to n clamped to [1, TotalPages] and returns the page landed on.
func (p *Pager) GoToPage(n int) int {
	last := p.TotalPages()
	switch {
	case n < 1:
		n = 1
	case n > last:
		n = last
	}
	p.Page = n
	return n
}

// DisplayRange is the 1-based [from, to] of items shown on the current page,
// or (0, 0) when there is nothing to show.
func (p Pager) DisplayRange() (int, int) {
	if p.TotalCount <= 0 {
		return 0, 0
	}
	from := (p.Page-1)*p.PageSize + 1
	to := p.Page * p.PageSize
	if to > p.TotalCount {
		to = p.TotalCount
	}
	if from > to {
		return 0, 0
	}
	return from, to
}

// HasPrev reports whether a previous page exists.
func (p Pager) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p Pager) HasNext() bool { return p.Page < p.TotalPages() }

// Meta is the JSON summary sent alongside a page of items.
type Meta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalCount int  `json:"totalCount"`
	TotalPages int  `json:"totalPages"`
	From       int  `json:"from"`
	To         int  `json:"to"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Meta summarises the pager for a response body.
func (p Pager) Meta() Meta {
	from, to := p.DisplayRange()
	return Meta{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: p.TotalCount,
		TotalPages: p.TotalPages(),
		From:       from,
		To:         to,
		HasNext:    p.HasNext(),
		HasPrev:    p.HasPrev(),
	}
}
