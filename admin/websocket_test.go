package admin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/state"
	"github.com/ulta-agent/ulta/tank"
	"go.uber.org/zap"
)

type fakeTankStatusProvider struct{ status tank.Status }

func (f *fakeTankStatusProvider) GetTankStatus() tank.Status { return f.status }

func TestHandleWSStatus_PushesTankStatus(t *testing.T) {
	s := NewServer(zap.NewNop().Sugar(), state.New(), cancel.New(), &fakeTankStatusProvider{status: tank.StatusTesting})

	ts := httptest.NewServer(http.HandlerFunc(s.handleWSStatus))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/status"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg), "TESTING")
}
