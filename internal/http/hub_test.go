package http

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"live-transcript-service/internal/models"
)

func TestHub_StalledClientDoesNotBlockOthers(t *testing.T) {
	h := NewHub(func() models.TranscriptView { return models.TranscriptView{} }, time.Hour)
	stalled, healthy := &websocket.Conn{}, &websocket.Conn{}
	h.clients[stalled] = true
	h.clients[healthy] = true

	release := make(chan struct{})
	delivered := make(chan struct{})
	h.write = func(conn *websocket.Conn, _ models.TranscriptView) error {
		if conn == stalled {
			<-release
			return nil
		}
		close(delivered)
		return nil
	}

	done := make(chan struct{})
	go func() {
		h.broadcast(models.TranscriptView{SessionID: "sess-1"})
		close(done)
	}()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("healthy client was not written while another write stalled")
	}

	counted := make(chan int, 1)
	go func() { counted <- h.Clients() }()
	select {
	case n := <-counted:
		assert.Equal(t, 2, n)
	case <-time.After(time.Second):
		t.Fatal("client registry locked during broadcast")
	}

	close(release)
	<-done
}

func TestHub_SendSkipsUnknownClient(t *testing.T) {
	h := NewHub(func() models.TranscriptView { return models.TranscriptView{} }, time.Hour)
	called := false
	h.write = func(*websocket.Conn, models.TranscriptView) error {
		called = true
		return nil
	}

	h.send(&websocket.Conn{}, models.TranscriptView{})

	assert.False(t, called)
	assert.Equal(t, 0, h.Clients())
}
