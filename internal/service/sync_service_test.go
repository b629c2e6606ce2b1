package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/dto"
)

type fakeChannel struct {
	available  bool
	publishErr error
	published  [][]byte
	remote     chan []byte
	closed     bool
}

func (f *fakeChannel) Available() bool { return f.available }

func (f *fakeChannel) Publish(ctx context.Context, professorID string, payload []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeChannel) Subscribe(ctx context.Context, professorID string) (<-chan []byte, func() error, error) {
	return f.remote, func() error { f.closed = true; return nil }, nil
}

func receive(t *testing.T, ch <-chan dto.SyncEvent) dto.SyncEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sync event")
		return dto.SyncEvent{}
	}
}

func TestSyncGenerationGuard(t *testing.T) {
	svc := NewSyncService(nil, nil)

	idle := svc.Token(testProfessor)
	assert.False(t, idle.Busy)
	assert.True(t, svc.Current(idle))

	svc.Begin(testProfessor)
	assert.False(t, svc.Current(idle))
	busy := svc.Token(testProfessor)
	assert.True(t, busy.Busy)
	assert.False(t, svc.Current(busy))

	svc.End(testProfessor)
	assert.False(t, svc.Current(idle))
	after := svc.Token(testProfessor)
	assert.True(t, svc.Current(after))
	assert.Equal(t, idle.Generation+2, after.Generation)

	other := svc.Token("prof-2")
	assert.True(t, svc.Current(other))
}

func TestSyncLocalFanout(t *testing.T) {
	svc := NewSyncService(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := svc.Subscribe(ctx, testProfessor)
	svc.Publish(ctx, testProfessor, "import")
	svc.Publish(ctx, "prof-2", "import")

	event := receive(t, events)
	assert.Equal(t, testProfessor, event.ProfessorID)
	assert.Equal(t, "import", event.Reason)

	unsubscribe()
	unsubscribe()
	svc.Publish(ctx, testProfessor, "records")
	select {
	case <-events:
		t.Fatal("unsubscribed stream received an event")
	default:
	}
}

func TestSyncPublishesOverChannel(t *testing.T) {
	channel := &fakeChannel{available: true, remote: make(chan []byte, 1)}
	svc := NewSyncService(channel, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := svc.Subscribe(ctx, testProfessor)
	defer unsubscribe()

	svc.Publish(ctx, testProfessor, "subject.created")
	require.Len(t, channel.published, 1)

	var sent dto.SyncEvent
	require.NoError(t, json.Unmarshal(channel.published[0], &sent))
	assert.Equal(t, "subject.created", sent.Reason)

	channel.remote <- channel.published[0]
	event := receive(t, events)
	assert.Equal(t, "subject.created", event.Reason)
}

func TestSyncFallsBackToLocalWhenPublishFails(t *testing.T) {
	channel := &fakeChannel{available: true, publishErr: errors.New("breaker open"), remote: make(chan []byte)}
	svc := NewSyncService(channel, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := svc.Subscribe(ctx, testProfessor)
	defer unsubscribe()

	svc.Publish(ctx, testProfessor, "import")
	assert.Equal(t, "import", receive(t, events).Reason)
}
