package table

import (
	"sort"
	"strconv"
	"strings"
)

// Row is anything a table can filter and sort by column.
type Row interface {
	Text(column string) string
}

// Filter keeps rows where any column contains keyword, case-insensitively.
func Filter[T Row](rows []T, columns []string, keyword string) []T {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return rows
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		for _, c := range columns {
			if strings.Contains(strings.ToLower(r.Text(c)), kw) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// ParseSort splits a sort parameter: "name" ascending, "-name" descending.
func ParseSort(param string) (column string, desc bool) {
	param = strings.TrimSpace(param)
	if strings.HasPrefix(param, "-") {
		return param[1:], true
	}
	return param, false
}

// Sort orders rows by a column using the ParseSort convention. Numeric
// values compare numerically; ties keep their original order.
func Sort[T Row](rows []T, param string) []T {
	column, desc := ParseSort(param)
	if column == "" {
		return rows
	}
	out := make([]T, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Text(column), out[j].Text(column)
		if desc {
			a, b = b, a
		}
		return less(a, b)
	})
	return out
}

func less(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return strings.ToLower(a) < strings.ToLower(b)
}
