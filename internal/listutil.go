package internal

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"era-inventory-panel/internal/table"
)

// listParams holds the query parameters of a table page. The has* flags
// distinguish an absent parameter from an empty one so the session can keep
// the previous value.
type listParams struct {
	page    int
	size    int
	q       string
	sort    string
	hasQ    bool
	hasSort bool
}

// parseListParams parses page, size, q and sort from the request.
// page and size are 0 when absent or invalid; size must be one of table.Sizes.
func parseListParams(r *http.Request) listParams {
	values := r.URL.Query()

	page := 0
	if s := strings.TrimSpace(values.Get("page")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			page = v
		}
	}

	size := 0
	if s := strings.TrimSpace(values.Get("size")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && validSize(v) {
			size = v
		}
	}

	return listParams{
		page:    page,
		size:    size,
		q:       strings.TrimSpace(values.Get("q")),
		sort:    strings.TrimSpace(values.Get("sort")),
		hasQ:    values.Has("q"),
		hasSort: values.Has("sort"),
	}
}

func validSize(n int) bool {
	for _, s := range table.Sizes {
		if s == n {
			return true
		}
	}
	return false
}

// nextSort returns the sort parameter a header click produces: ascending on
// a new column, toggling direction on the current one.
func nextSort(current, column string) string {
	col, desc := table.ParseSort(current)
	if col == column && !desc {
		return "-" + column
	}
	return column
}

// sortArrow marks the sorted column.
func sortArrow(current, column string) string {
	col, desc := table.ParseSort(current)
	switch {
	case col != column:
		return ""
	case desc:
		return "▼"
	default:
		return "▲"
	}
}

// withQuery builds base?params, dropping empty values.
func withQuery(base string, kv ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			v.Set(kv[i], kv[i+1])
		}
	}
	if len(v) == 0 {
		return base
	}
	return base + "?" + v.Encode()
}

func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return 0
	}
	return n
}
