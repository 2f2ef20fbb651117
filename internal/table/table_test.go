package table

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{47, 10, 5},
		{100, 25, 4},
		{5, 0, 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.total, tt.size), func(t *testing.T) {
			if got := Pages(tt.total, tt.size); got != tt.want {
				t.Errorf("Pages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
			}
		})
	}
}

func TestSliceExample(t *testing.T) {
	items := make([]int, 47)
	for i := range items {
		items[i] = i
	}
	require.Equal(t, 5, Pages(len(items), 10))
	last := Slice(items, 5, 10)
	assert.Len(t, last, 7)
	assert.Equal(t, 40, last[0])
	assert.Empty(t, Slice(items, 6, 10))
}

func TestSliceConcatenationEqualsInput(t *testing.T) {
	for n := 0; n <= 60; n += 7 {
		for _, size := range []int{1, 3, 10, 25} {
			items := make([]int, n)
			for i := range items {
				items[i] = i * 3
			}
			var joined []int
			for p := 1; p <= Pages(n, size); p++ {
				joined = append(joined, Slice(items, p, size)...)
			}
			if n == 0 {
				assert.Empty(t, joined)
				continue
			}
			assert.Equal(t, items, joined, "n=%d size=%d", n, size)
		}
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name          string
		current       int
		pages         int
		wantPages     []int
		leading, tail bool
	}{
		{"few pages", 1, 3, []int{1, 2, 3}, false, false},
		{"start", 1, 10, []int{1, 2, 3, 4, 5}, false, true},
		{"middle", 6, 10, []int{4, 5, 6, 7, 8}, true, true},
		{"end", 10, 10, []int{6, 7, 8, 9, 10}, true, false},
		{"clamped", 42, 5, []int{1, 2, 3, 4, 5}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Window(tt.current, tt.pages, 5)
			var got []int
			for _, l := range w.Links {
				got = append(got, l.Page)
			}
			assert.Equal(t, tt.wantPages, got)
			assert.Equal(t, tt.leading, w.LeadingEllipsis)
			assert.Equal(t, tt.tail, w.TrailingEllipsis)
			assert.Equal(t, tt.pages, w.Last)
		})
	}

	w := Window(1, 3, 5)
	assert.False(t, w.HasPrev())
	assert.True(t, w.HasNext())
	assert.True(t, w.Links[0].Current)
	assert.Empty(t, Window(1, 0, 5).Links)
}

func TestStateResetsOnChange(t *testing.T) {
	s := NewState()
	fp := Fingerprint("1", "2", "3")
	s.Sync(fp, 10)
	s.Goto(3, 47)
	assert.Equal(t, 3, s.Page)

	assert.False(t, s.Sync(fp, 10))
	assert.Equal(t, 3, s.Page, "unchanged data keeps the page")

	assert.True(t, s.Sync(fp, 25))
	assert.Equal(t, 1, s.Page, "page size change resets")

	s.Goto(2, 47)
	assert.True(t, s.Sync(Fingerprint("1", "2"), 25))
	assert.Equal(t, 1, s.Page, "data change resets")
}

func TestGotoClamps(t *testing.T) {
	s := NewState()
	s.Goto(99, 47)
	assert.Equal(t, 5, s.Page)
	s.Goto(-1, 47)
	assert.Equal(t, 1, s.Page)
	s.Goto(4, 0)
	assert.Equal(t, 1, s.Page)
}

func TestSelection(t *testing.T) {
	sel := NoSelection
	assert.False(t, sel.Active())

	sel.Select(2, "17")
	assert.True(t, sel.Active())
	assert.Equal(t, "17", sel.ID)

	sel.ClickOutside(true)
	assert.True(t, sel.Active(), "open form keeps selection")

	sel.ClickOutside(false)
	assert.False(t, sel.Active())

	sel.Select(1, "3")
	sel.Select(1, "3")
	assert.False(t, sel.Active(), "selecting the same row toggles it off")
}

type row map[string]string

func (r row) Text(c string) string { return r[c] }

func TestFilterAndSort(t *testing.T) {
	rows := []row{
		{"name": "Monitor", "qty": "10"},
		{"name": "mouse", "qty": "2"},
		{"name": "Keyboard", "qty": "9"},
	}
	cols := []string{"name", "qty"}

	assert.Len(t, Filter(rows, cols, "MO"), 2)
	assert.Len(t, Filter(rows, cols, ""), 3)
	assert.Empty(t, Filter(rows, cols, "desk"))

	byQty := Sort(rows, "qty")
	assert.Equal(t, "mouse", byQty[0]["name"])
	assert.Equal(t, "Monitor", byQty[2]["name"])

	byNameDesc := Sort(rows, "-name")
	assert.Equal(t, "mouse", byNameDesc[0]["name"])
	assert.Equal(t, "Keyboard", byNameDesc[2]["name"])

	assert.Equal(t, rows, Sort(rows, ""))
	col, desc := ParseSort("-qty")
	assert.Equal(t, "qty", col)
	assert.True(t, desc)
}
