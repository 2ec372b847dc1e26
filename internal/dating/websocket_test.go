package dating

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/kiekky-match/internal/auth"
)

// dialHub connects userID to the hub and returns once the hub has
// registered the connection.
func dialHub(t *testing.T, srv *httptest.Server, userID string) (*websocket.Conn, <-chan Message) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	pong := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	messages := make(chan Message, 4)
	go func() {
		defer close(messages)
		for {
			var m Message
			if err := conn.ReadJSON(&m); err != nil {
				return
			}
			messages <- m
		}
	}()

	// the server only answers pings once its read pump, started after
	// registration, is running
	require.NoError(t, conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)))
	select {
	case <-pong:
	case <-time.After(2 * time.Second):
		t.Fatal("hub never answered ping")
	}
	return conn, messages
}

func TestHub_NotifiesBothSides(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r.WithContext(auth.WithUserID(r.Context(), r.URL.Query().Get("user"))))
	}))
	defer srv.Close()

	_, aliceEvents := dialHub(t, srv, "alice")
	_, bobEvents := dialHub(t, srv, "bob")

	hub.NotifyMatch(&Match{ID: "m-1", LoUserID: "alice", HiUserID: "bob", Score: 4, Status: StatusMatched})

	for user, events := range map[string]<-chan Message{"alice": aliceEvents, "bob": bobEvents} {
		select {
		case m := <-events:
			assert.Equal(t, "new_match", m.Type)
			assert.Equal(t, user, m.UserID)
			data, ok := m.Data.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, "m-1", data["match_id"])
			assert.NotEqual(t, user, data["partner_id"])
		case <-time.After(2 * time.Second):
			t.Fatalf("%s got no match event", user)
		}
	}
}

func TestHub_RejectsAnonymous(t *testing.T) {
	hub := NewHub()
	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHub_NotifyNeverBlocks(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		// nobody runs the hub: the buffer fills and the rest is dropped
		for i := 0; i < 1000; i++ {
			hub.NotifyMatch(&Match{LoUserID: "a", HiUserID: "b"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyMatch blocked")
	}
}
