package table

import (
	"hash/fnv"
	"strconv"
)

// State is the page position of one table. It resets to the first page
// whenever the data set or page size changes.
type State struct {
	Page        int
	Size        int
	fingerprint uint64
}

func NewState() State {
	return State{Page: 1, Size: DefaultSize}
}

// Sync records the current data fingerprint and page size, resetting the
// page to 1 if either differs from the previous call.
func (s *State) Sync(fingerprint uint64, size int) bool {
	if size < 1 {
		size = DefaultSize
	}
	changed := fingerprint != s.fingerprint || size != s.Size
	s.fingerprint = fingerprint
	s.Size = size
	if changed || s.Page < 1 {
		s.Page = 1
	}
	return changed
}

// Goto moves to page p, clamped to the available pages.
func (s *State) Goto(p, total int) {
	pages := Pages(total, s.Size)
	if pages == 0 {
		s.Page = 1
		return
	}
	s.Page = clamp(p, 1, pages)
}

// Fingerprint hashes the identity of a data set so State can notice when it
// was replaced.
func Fingerprint(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte(strconv.Itoa(len(parts))))
	return h.Sum64()
}

// Selection is the focused row of a table.
type Selection struct {
	Index int
	ID    string
}

// NoSelection is the zero selection.
var NoSelection = Selection{Index: -1}

func (s Selection) Active() bool { return s.Index >= 0 && s.ID != "" }

// Select focuses a row. Selecting the focused row again clears it.
func (s *Selection) Select(index int, id string) {
	if s.Active() && s.ID == id {
		s.Clear()
		return
	}
	s.Index, s.ID = index, id
}

// ClickOutside clears the selection unless a form is open.
func (s *Selection) ClickOutside(formOpen bool) {
	if formOpen {
		return
	}
	s.Clear()
}

func (s *Selection) Clear() {
	*s = NoSelection
}
