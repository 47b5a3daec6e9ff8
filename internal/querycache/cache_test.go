package querycache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coderune/rune/internal/events"
	"github.com/coderune/rune/pkg/types"
)

func TestCache_PutAndGet(t *testing.T) {
	c, err := New(10, time.Minute, nil)
	require.NoError(t, err)

	q := types.Query{Text: "foo", Mode: types.ModeLiteral}
	results := []types.Result{{Path: "/a.go", Repository: "repo", LineNumber: 1}}
	c.Put(q, results)

	got, ok := c.Get(q)
	require.True(t, ok)
	require.Equal(t, results, got)
}

func TestCache_MissForDifferentQuery(t *testing.T) {
	c, err := New(10, time.Minute, nil)
	require.NoError(t, err)

	c.Put(types.Query{Text: "foo", Mode: types.ModeLiteral}, []types.Result{{Path: "/a.go"}})

	_, ok := c.Get(types.Query{Text: "bar", Mode: types.ModeLiteral})
	require.False(t, ok)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c, err := New(10, 10*time.Millisecond, nil)
	require.NoError(t, err)

	q := types.Query{Text: "foo", Mode: types.ModeLiteral}
	c.Put(q, []types.Result{{Path: "/a.go", Repository: "repo"}})

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(q)
	require.False(t, ok)
}

func TestCache_InvalidatesOnRepositoryChanged(t *testing.T) {
	bus := events.New()
	c, err := New(10, time.Minute, bus)
	require.NoError(t, err)

	q := types.Query{Text: "foo", Mode: types.ModeLiteral, Repositories: []string{"repo"}}
	c.Put(q, []types.Result{{Path: "/a.go", Repository: "repo"}})

	bus.Publish(events.RepositoryChanged{Repository: "repo"})

	require.Eventually(t, func() bool {
		_, ok := c.Get(q)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestCache_JanitorSweepsExpiredEntries(t *testing.T) {
	c, err := New(10, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer c.Close()

	q := types.Query{Text: "foo", Mode: types.ModeLiteral}
	c.Put(q, []types.Result{{Path: "/a.go", Repository: "repo"}})
	require.Equal(t, 1, c.Len())

	// The janitor runs at ttl/2; the entry must disappear without any
	// Get touching it.
	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCache_SizeBytesTracksEntries(t *testing.T) {
	c, err := New(10, time.Minute, nil)
	require.NoError(t, err)
	defer c.Close()

	q := types.Query{Text: "foo", Mode: types.ModeLiteral}
	c.Put(q, []types.Result{{Path: "/a.go", Repository: "repo", Snippet: "func a() {}"}})
	require.Positive(t, c.SizeBytes())

	c.Put(types.Query{Text: "bar", Mode: types.ModeLiteral}, nil)
	first := c.SizeBytes()
	require.GreaterOrEqual(t, first, int64(0))
}
