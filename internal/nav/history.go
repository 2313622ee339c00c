package nav

import "strings"

// Location is the address bar the controller keeps in sync with its state.
type Location interface {
	Fragment() string
	// Replace overwrites the current entry without adding history.
	Replace(fragment string)
}

// History is an in-memory address bar with back/forward entries.
// Entries are only added by Push; the controller only ever replaces.
type History struct {
	entries []string
	pos     int
}

// NewHistory starts a history at the given fragment.
func NewHistory(initial string) *History {
	return &History{entries: []string{normalize(initial)}}
}

func (h *History) Fragment() string {
	return h.entries[h.pos]
}

func (h *History) Replace(fragment string) {
	h.entries[h.pos] = normalize(fragment)
}

// Push adds fragment as a new entry after the current one, dropping any
// forward entries. Pushing the current fragment again is a no-op and
// reports false.
func (h *History) Push(fragment string) bool {
	fragment = normalize(fragment)
	if fragment == h.entries[h.pos] {
		return false
	}
	h.entries = append(h.entries[:h.pos+1], fragment)
	h.pos++
	return true
}

// Back moves to the previous entry.
func (h *History) Back() (string, bool) {
	if h.pos == 0 {
		return "", false
	}
	h.pos--
	return h.entries[h.pos], true
}

// Forward moves to the next entry.
func (h *History) Forward() (string, bool) {
	if h.pos == len(h.entries)-1 {
		return "", false
	}
	h.pos++
	return h.entries[h.pos], true
}

// Len is the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

func normalize(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || fragment == "#" {
		return ""
	}
	if !strings.HasPrefix(fragment, "#") {
		return "#" + fragment
	}
	return fragment
}
