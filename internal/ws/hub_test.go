package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu     sync.Mutex
	msgs   [][]byte
	fail   bool
	closed bool
}

func (f *fakeClient) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.msgs = append(f.msgs, data)
	return nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func TestHub_PublishReachesClients(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	good := &fakeClient{}
	bad := &fakeClient{fail: true}
	h.Register <- good
	h.Register <- bad

	h.Publish(Event{Type: EventOrderUpdate, Action: "completed", ReferenceNo: "SO-000001"})

	require.Eventually(t, func() bool { return good.received() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)

	var ev Event
	require.NoError(t, json.Unmarshal(good.msgs[0], &ev))
	assert.Equal(t, "SO-000001", ev.ReferenceNo)
	assert.False(t, ev.At.IsZero())
}

func TestHub_PublishDoesNotBlockWithoutRunner(t *testing.T) {
	h := NewHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(h.Broadcast)+10; i++ {
			h.Publish(Event{Type: EventStockUpdate})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	h := NewHub(nil)
	finished := make(chan struct{})
	go func() { h.Run(); close(finished) }()

	c := &fakeClient{}
	h.Register <- c
	h.Stop()
	h.Stop()
	<-finished

	assert.True(t, c.closed)
}

func TestHub_JoinAndLeaveAfterStopReturn(t *testing.T) {
	h := NewHub(nil)
	finished := make(chan struct{})
	go func() { h.Run(); close(finished) }()

	c := &fakeClient{}
	require.True(t, h.Join(c))
	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)

	h.Stop()
	<-finished

	done := make(chan bool)
	go func() {
		h.Leave(c)
		done <- h.Join(&fakeClient{})
	}()

	select {
	case joined := <-done:
		assert.False(t, joined)
	case <-time.After(time.Second):
		t.Fatal("Leave or Join blocked after the hub stopped")
	}
	assert.Zero(t, h.Count())
}
