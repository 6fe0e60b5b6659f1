package admin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ulta-agent/ulta/tank"
)

const statusPushInterval = time.Second

// statusUpgrader accepts any origin: this endpoint is bound to loopback
// only, the same trust boundary as the rest of the admin API.
var statusUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// statusPush is one message sent down /ws/status.
type statusPush struct {
	TankStatus string `json:"tank_status"`
	Activity   string `json:"current_activity"`
}

// handleWSStatus upgrades the connection and pushes the agent's current
// tank status once per statusPushInterval until the client disconnects.
func (s *Server) handleWSStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := statusUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("failed to upgrade status websocket", "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(statusPushInterval)
	defer ticker.Stop()

	for range ticker.C {
		status := tank.StatusUnspecified
		if s.tankStatus != nil {
			status = s.tankStatus.GetTankStatus()
		}
		activity := "idle"
		if stack := s.state.CurrentState(); len(stack) > 0 {
			activity = strings.Join(stack, " -> ")
		}

		payload, _ := json.Marshal(statusPush{TankStatus: status.String(), Activity: activity})
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
