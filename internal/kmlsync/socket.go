package kmlsync

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/EndPointCorp/kmlsync/internal/command"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// handleSocket upgrades to a websocket where each text frame carries one
// command object and is answered by one text frame of joined log lines.
func (s *Service) handleSocket(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("socket upgrade failed")
		return
	}
	conn := ws.UnderlyingConn()
	s.trackConn(conn)
	defer s.untrackConn(conn)
	defer ws.Close()

	remote := c.Request.RemoteAddr
	active := s.socketClientCount.Add(1)
	s.logger.Info().Str("remote", remote).Int64("active_clients", active).Msg("socket client connected")
	defer func() {
		remaining := s.socketClientCount.Add(-1)
		s.logger.Info().Str("remote", remote).Int64("active_clients", remaining).Msg("socket client disconnected")
	}()

	for {
		mt, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Str("remote", remote).Msg("socket read")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		res := s.handleSocketMessage(payload)
		for _, line := range res.Log {
			s.logger.Info().Str("source", "socket").Msg("command result: " + line)
		}
		if err := ws.WriteMessage(websocket.TextMessage, []byte(res.String())); err != nil {
			s.logger.Warn().Err(err).Str("remote", remote).Msg("socket write")
			return
		}
	}
}

func (s *Service) handleSocketMessage(payload []byte) command.Result {
	var req CommandRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return command.Warning(fmt.Sprintf("Malformed socket message: %v", err))
	}
	cmd, err := req.ToCommand()
	if err != nil {
		return command.Warning(fmt.Sprintf("Rejected command: %v", err))
	}
	return s.socketCommands.Apply(cmd)
}

// checkOrigin admits every origin unless cors_origins narrows the list.
func (s *Service) checkOrigin(r *http.Request) bool {
	if len(s.cfg.CorsOrigins) == 0 {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CorsOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
