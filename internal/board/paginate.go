package board

import "github.com/steveyegge/beadboard/internal/types"

// Page is one window of a column.
type Page struct {
	Items      []*types.Issue `json:"items"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// Paginate returns the page-th window of pageSize issues (pages start at 1).
// TotalPages is at least 1 even for an empty list. A page outside
// [1, TotalPages] yields no items; clamping is left to the caller.
func Paginate(issues []*types.Issue, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(issues)
	p := Page{
		Items:      []*types.Issue{},
		Total:      total,
		TotalPages: max(1, (total+pageSize-1)/pageSize),
	}
	if page < 1 {
		return p
	}
	start := (page - 1) * pageSize
	if start >= total {
		return p
	}
	end := min(start+pageSize, total)
	p.Items = issues[start:end]
	return p
}

// GroupByStatus splits issues into board columns, preserving their order.
// Every column in types.BoardColumns is present, possibly empty.
func GroupByStatus(issues []*types.Issue) map[types.Status][]*types.Issue {
	groups := make(map[types.Status][]*types.Issue, len(types.BoardColumns))
	for _, status := range types.BoardColumns {
		groups[status] = []*types.Issue{}
	}
	for _, issue := range issues {
		groups[issue.Status] = append(groups[issue.Status], issue)
	}
	return groups
}

// Column is one status column of the board at the current page.
type Column struct {
	Status types.Status `json:"status"`
	Page
}

// View is the paginated board. TotalPages is the largest page count of any
// column, so the shared page control reaches every issue.
type View struct {
	Columns    []Column `json:"columns"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
}

// BuildView groups issues by status and paginates every column with the
// same page and pageSize.
func BuildView(issues []*types.Issue, page, pageSize int) View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	groups := GroupByStatus(issues)
	v := View{Page: page, PageSize: pageSize, TotalPages: 1}
	for _, status := range types.BoardColumns {
		col := Column{Status: status, Page: Paginate(groups[status], page, pageSize)}
		v.TotalPages = max(v.TotalPages, col.TotalPages)
		v.Columns = append(v.Columns, col)
	}
	return v
}
