package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory(t *testing.T) {
	h := NewHistory("2024-06-01")
	assert.Equal(t, "#2024-06-01", h.Fragment())

	assert.False(t, h.Push("#2024-06-01"), "same fragment must not add an entry")
	assert.True(t, h.Push("#2024-06-02"))
	assert.Equal(t, 2, h.Len())

	h.Replace("#2024-06-02/a.json")
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, "#2024-06-02/a.json", h.Fragment())

	frag, ok := h.Back()
	assert.True(t, ok)
	assert.Equal(t, "#2024-06-01", frag)
	_, ok = h.Back()
	assert.False(t, ok)

	frag, ok = h.Forward()
	assert.True(t, ok)
	assert.Equal(t, "#2024-06-02/a.json", frag)
	_, ok = h.Forward()
	assert.False(t, ok)

	h.Back()
	h.Push("")
	assert.Equal(t, "", h.Fragment())
	_, ok = h.Forward()
	assert.False(t, ok, "push drops forward entries")
}
