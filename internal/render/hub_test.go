package render

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackmarket/internal/session"
)

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func readView(t *testing.T, conn *websocket.Conn) session.View {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "view", env.Type)

	var v session.View
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubBroadcastsViews(t *testing.T) {
	h := NewHub("*")
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer conn.Close()
	waitClients(t, h, 1)

	h.Render(session.View{SessionID: "abc", Phase: session.PhaseOpening, Reason: session.ReasonFull, Title: "Black Market"})

	v := readView(t, conn)
	assert.Equal(t, "abc", v.SessionID)
	assert.Equal(t, session.PhaseOpening, v.Phase)
	assert.Equal(t, "Black Market", v.Title)
	assert.EqualValues(t, 1, h.Frames())
}

func TestHubReplaysLatestViewToNewClient(t *testing.T) {
	h := NewHub("")
	srv := httptest.NewServer(h)
	defer srv.Close()

	h.Render(session.View{SessionID: "first"})
	h.Render(session.View{SessionID: "second"})

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "second", readView(t, conn).SessionID)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	h := NewHub("https://shop.example")
	srv := httptest.NewServer(h)
	defer srv.Close()

	_, resp, err := dial(t, srv, "https://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, "https://shop.example")
	require.NoError(t, err)
	conn.Close()
}

func TestHubDropsClientOnDisconnect(t *testing.T) {
	h := NewHub("*")
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	waitClients(t, h, 1)

	conn.Close()
	waitClients(t, h, 0)

	// Rendering with no clients must not block or panic.
	h.Render(session.View{SessionID: "nobody"})
}
