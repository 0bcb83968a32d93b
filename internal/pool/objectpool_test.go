package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPool(t *testing.T) {
	t.Run("reuse", func(t *testing.T) {
		created := 0
		p := NewObjectPool[*int](2, func() *int {
			created++
			return new(int)
		})

		a := p.Acquire()
		*a = 42
		p.Release(a)
		b := p.Acquire()
		require.Same(t, a, b)
		require.Equal(t, 1, created)
	})

	t.Run("bounded", func(t *testing.T) {
		p := NewObjectPool[*int](2, func() *int { return new(int) })
		for range 5 {
			p.Release(new(int))
		}

		require.Equal(t, 2, p.Len())
	})

	t.Run("concurrent", func(t *testing.T) {
		p := NewObjectPool[[]byte](8, func() []byte { return make([]byte, 16) })
		var wg sync.WaitGroup

		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 100 {
					buff := p.Acquire()
					assert.Len(t, buff, 16)
					p.Release(buff)
				}
			}()
		}

		wg.Wait()
		require.LessOrEqual(t, p.Len(), 8)
	})
}
