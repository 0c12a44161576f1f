package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryBindGetUnbind(t *testing.T) {
	r := NewRegistry()
	fc := &fakeConn{}

	r.Bind("a", fc, nil)
	got, ok := r.Get("a")
	assert.True(t, ok)
	assert.Same(t, fc, got.(*fakeConn))
	assert.Equal(t, 1, r.Len())

	r.Unbind("a")
	_, ok = r.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry()
	fired := false
	r.Bind("a", &fakeConn{}, func() { fired = true })

	assert.True(t, r.Cancel("a"))
	assert.True(t, fired)
	assert.False(t, r.Cancel("missing"))

	// Nil cancel funcs are tolerated.
	r.Bind("b", &fakeConn{}, nil)
	assert.True(t, r.Cancel("b"))
}
