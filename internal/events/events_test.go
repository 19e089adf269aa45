package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlinemirror/internal/catalog"
)

func TestCodec_AllVariants(t *testing.T) {
	book := &catalog.Book{ID: "b1", SeriesID: "s1", Name: "Vol 1"}
	all := []Event{
		SeriesDeleted{SeriesID: "s1"},
		BookAdded{BookID: "b1", SeriesID: "s1"},
		BookChanged{BookID: "b1", SeriesID: "s1"},
		BookDeleted{BookID: "b1", SeriesID: "s1"},
		LibraryChanged{LibraryID: "l1"},
		LibraryDeleted{LibraryID: "l1"},
		UserDeleted{UserID: "u1"},
		ServerDeleted{ServerID: "srv"},
		ReadProgressChanged{BookID: "b1", UserID: "u1"},
		DownloadProgress{Book: book, TotalBytes: 100, CompletedBytes: 50},
		DownloadCompleted{Book: book},
	}

	for _, ev := range all {
		t.Run(ev.Type(), func(t *testing.T) {
			data, err := Encode(ev)
			require.NoError(t, err)
			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, ev, decoded)
		})
	}
}

func TestCodec_DownloadErrorKeepsMessage(t *testing.T) {
	data, err := Encode(DownloadError{BookID: "b1", Err: errors.New("disk full")})
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	de, ok := decoded.(DownloadError)
	require.True(t, ok)
	assert.Equal(t, "b1", de.DownloadBookID())
	assert.Nil(t, de.Book)
	assert.Equal(t, "disk full", de.Message())
}

func TestCodec_UnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"nope","payload":{}}`))
	assert.Error(t, err)
}

func TestDownloadProgress_TotalKnown(t *testing.T) {
	assert.False(t, DownloadProgress{Book: &catalog.Book{}}.TotalKnown())
	assert.True(t, DownloadProgress{Book: &catalog.Book{}, TotalBytes: 1}.TotalKnown())
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, SeriesDeleted{SeriesID: "s1"}))
	require.NoError(t, bus.Publish(ctx, BookAdded{BookID: "b1", SeriesID: "s2"}))

	for _, ch := range []<-chan Event{first, second} {
		var got []Event
		for len(got) < 2 {
			select {
			case ev := <-ch:
				got = append(got, ev)
			case <-time.After(time.Second):
				t.Fatalf("received %d events, want 2", len(got))
			}
		}
		assert.Equal(t, SeriesDeleted{SeriesID: "s1"}, got[0])
		assert.Equal(t, BookAdded{BookID: "b1", SeriesID: "s2"}, got[1])
	}
}

func TestBus_StalledSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stalled, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 500; i++ {
			if err := bus.Publish(ctx, BookChanged{BookID: fmt.Sprintf("b%d", i)}); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a subscriber that does not drain")
	}

	first := <-stalled
	assert.Equal(t, BookChanged{BookID: "b0"}, first, "buffered events keep publish order")

	live, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, SeriesDeleted{SeriesID: "s1"}))
	select {
	case ev := <-live:
		assert.Equal(t, SeriesDeleted{SeriesID: "s1"}, ev)
	case <-time.After(time.Second):
		t.Fatal("new subscriber received nothing")
	}
}
