package watchdog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pathwatch/navguard/internal/navtypes"
)

func TestClientStatePush(t *testing.T) {
	t.Run("grows under capacity", func(t *testing.T) {
		s := newClientState()
		s.push(&navtypes.Record{T: 1}, 5)
		s.push(&navtypes.Record{T: 2}, 5)
		assert.Len(t, s.window, 2)
	})

	t.Run("evicts oldest beyond capacity", func(t *testing.T) {
		s := newClientState()
		for i := int64(1); i <= 5; i++ {
			s.push(&navtypes.Record{T: i}, 3)
		}
		assert.Len(t, s.window, 3)
		assert.Equal(t, int64(3), s.window[0].T)
		assert.Equal(t, int64(5), s.window[2].T)
	})
}

func TestLastN(t *testing.T) {
	records := []*navtypes.Record{{T: 1}, {T: 2}, {T: 3}}

	t.Run("n larger than slice returns everything", func(t *testing.T) {
		assert.Len(t, lastN(records, 10), 3)
	})

	t.Run("n smaller than slice returns the tail", func(t *testing.T) {
		tail := lastN(records, 2)
		assert.Len(t, tail, 2)
		assert.Equal(t, int64(2), tail[0].T)
		assert.Equal(t, int64(3), tail[1].T)
	})
}
