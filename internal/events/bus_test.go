package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversToSubscribers(t *testing.T) {
	b := New()
	ch := make(chan RepositoryChanged, 1)
	b.Subscribe(ch)

	b.Publish(RepositoryChanged{Repository: "repo"})

	select {
	case ev := <-ch:
		require.Equal(t, "repo", ev.Repository)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_PublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := New()
	ch := make(chan RepositoryChanged) // unbuffered, nobody reading
	b.Subscribe(ch)

	done := make(chan struct{})
	go func() {
		b.Publish(RepositoryChanged{Repository: "repo"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	b := New()
	ch1 := make(chan RepositoryChanged, 1)
	ch2 := make(chan RepositoryChanged, 1)
	b.Subscribe(ch1)
	b.Subscribe(ch2)

	b.Publish(RepositoryChanged{Repository: "repo"})

	require.Equal(t, "repo", (<-ch1).Repository)
	require.Equal(t, "repo", (<-ch2).Repository)
}
