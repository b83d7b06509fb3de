package remoteobject

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ponybridge/errors"
)

func TestStore_RegisterAndGet(t *testing.T) {
	s := NewStore()

	first := s.Register([]int{1, 2}, "console")
	second := s.Register(map[string]int{"a": 1}, DefaultGroup)

	assert.Equal(t, "1", first)
	assert.Equal(t, "2", second)

	value, group, err := s.Get(first)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, value)
	assert.Equal(t, "console", group)

	_, _, err = s.Get("99")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)

	_, _, err = s.Get("not-a-number")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)
}

func TestStore_SameValueGetsDistinctIDs(t *testing.T) {
	s := NewStore()
	v := &struct{ N int }{1}
	a := s.Register(v, "g")
	b := s.Register(v, "g")
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Len())
}

func TestStore_ReleaseGroup(t *testing.T) {
	s := NewStore()
	r := rand.New(rand.NewSource(1))
	groups := []string{"a", "b", "c", DefaultGroup}

	issued := make(map[string][]string)
	for i := 0; i < 200; i++ {
		g := groups[r.Intn(len(groups))]
		issued[g] = append(issued[g], s.Register(i, g))
	}

	removed := s.ReleaseGroup("b")
	assert.Equal(t, len(issued["b"]), removed)

	for _, id := range issued["b"] {
		_, _, err := s.Get(id)
		assert.Error(t, err, "handle %s outlived its group", id)
	}
	for _, g := range []string{"a", "c", DefaultGroup} {
		for _, id := range issued[g] {
			_, group, err := s.Get(id)
			require.NoError(t, err)
			assert.Equal(t, g, group)
		}
	}

	assert.Equal(t, 0, s.ReleaseGroup("b"), "second release is a no-op")
	assert.Equal(t, 0, s.ReleaseGroup("never-used"))
	assert.Equal(t, 3, s.Groups())
}

func TestStore_IDsNotReusedAfterRelease(t *testing.T) {
	s := NewStore()
	old := s.Register("x", "g")
	s.ReleaseGroup("g")
	fresh := s.Register("y", "g")
	assert.NotEqual(t, old, fresh)

	_, _, err := s.Get(old)
	assert.Error(t, err)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Register(1, "a")
	s.Register(2, "b")
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Groups())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			group := fmt.Sprintf("g%d", g)
			for i := 0; i < 100; i++ {
				id := s.Register(i, group)
				_, _, err := s.Get(id)
				assert.NoError(t, err)
			}
			s.ReleaseGroup(group)
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 0, s.Len())
}
