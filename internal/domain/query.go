package domain

import (
	"fmt"
	"net/url"
	"strconv"
)

// Pagination and ordering defaults applied by Normalize. Two call sites
// asking for "the first page, no filter" must land on the same cache key
// regardless of which zero values they left unset.
const (
	DefaultLimit = 12
	OrderAsc     = "asc"
	OrderDesc    = "desc"
)

// SortFields lists the sort keys the upstream API accepts from the console.
var SortFields = []string{"name", "rating", "prepTimeMinutes", "caloriesPerServing"}

// ListQuery identifies one page of the recipe collection: pagination,
// an optional free-text search term, and optional ordering.
type ListQuery struct {
	Limit  int
	Skip   int
	Q      string
	SortBy string
	Order  string
}

// Normalize fills in defaults so that every argument combination maps to a
// canonical form. It is total: any input produces a valid query.
func (q ListQuery) Normalize() ListQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Order != OrderDesc {
		q.Order = OrderAsc
	}
	if q.SortBy == "" {
		// Order is meaningless without a sort field; pin it so that
		// {SortBy:"", Order:"desc"} and {SortBy:""} share one key.
		q.Order = OrderAsc
	}
	return q
}

// CacheArg encodes the normalized query as a deterministic string for use
// in cache keys.
func (q ListQuery) CacheArg() string {
	n := q.Normalize()
	return fmt.Sprintf("limit=%d&order=%s&q=%s&skip=%d&sortBy=%s",
		n.Limit, n.Order, url.QueryEscape(n.Q), n.Skip, n.SortBy)
}

// Values renders the normalized query as upstream query parameters.
// The search term is deliberately excluded: it selects the endpoint
// (/recipes/search vs /recipes) rather than being a plain parameter here.
func (q ListQuery) Values() url.Values {
	n := q.Normalize()
	v := url.Values{}
	v.Set("limit", strconv.Itoa(n.Limit))
	v.Set("skip", strconv.Itoa(n.Skip))
	if n.SortBy != "" {
		v.Set("sortBy", n.SortBy)
		v.Set("order", n.Order)
	}
	return v
}

// Page is the 1-based page number this query's offset corresponds to.
func (q ListQuery) Page() int {
	n := q.Normalize()
	return n.Skip/n.Limit + 1
}

// WithPage returns a copy of the query positioned at the given 1-based page.
func (q ListQuery) WithPage(page int) ListQuery {
	n := q.Normalize()
	if page < 1 {
		page = 1
	}
	n.Skip = (page - 1) * n.Limit
	return n
}

// PageCount computes the number of pages needed for total items.
// ceil(total/limit), from the collection total rather than the page length.
func (q ListQuery) PageCount(total int) int {
	n := q.Normalize()
	if total <= 0 {
		return 0
	}
	return (total + n.Limit - 1) / n.Limit
}
