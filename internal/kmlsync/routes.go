package kmlsync

import (
	"html"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/EndPointCorp/kmlsync/internal/command"
	"github.com/EndPointCorp/kmlsync/internal/kml"
	"github.com/EndPointCorp/kmlsync/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

func (s *Service) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(s.logger))
	r.Use(observability.RequestMetricsMiddleware(s.cfg.Name))
	if len(s.cfg.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.CorsOrigins,
			AllowMethods: []string{http.MethodGet},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", s.handleHealth)
	if path := strings.TrimSpace(s.cfg.MetricsPath); path != "" {
		observability.RegisterMetrics()
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}
	r.GET(s.cfg.UpdatePath, s.handleUpdate)
	r.GET(s.cfg.MasterPath, s.handleMaster)
	r.GET(s.cfg.ModifyPath, s.handleModify)
	r.GET(s.cfg.IndexPath, s.handleIndex)
	if path := strings.TrimSpace(s.cfg.SocketPath); path != "" {
		r.GET(path, s.handleSocket)
	}
	return r
}

func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime":         time.Since(s.appeared).String(),
		"component":      "kmlsync",
		"version":        version,
		"windows":        len(s.store.Windows()),
		"bus_clients":    s.busClientCount.Load(),
		"socket_clients": s.socketClientCount.Load(),
	})
}

// handleUpdate answers one viewer poll with the KML delta for its window.
func (s *Service) handleUpdate(c *gin.Context) {
	window, reported, err := ParsePollQuery(c.Request.URL.Query())
	if err != nil {
		s.logger.Warn().Err(err).Str("query", c.Request.URL.RawQuery).Msg("poll rejected")
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	desired, diff := s.engine.Reconcile(window, reported)
	observability.RecordPoll(len(diff.Create), len(diff.Delete))
	s.logger.Debug().
		Str("window", window).
		Strs("reported", reported).
		Int("desired", len(desired)).
		Int("create", len(diff.Create)).
		Int("delete", len(diff.Delete)).
		Msg("poll reconciled")

	s.write(c, http.StatusOK, kml.ContentType, s.encoder.Update(desired, diff))
}

func (s *Service) handleMaster(c *gin.Context) {
	s.write(c, http.StatusOK, kml.ContentType, kml.Master())
}

// handleModify applies query-parameter commands and reports their log lines.
func (s *Service) handleModify(c *gin.Context) {
	cmds, res, err := ParseModifyQuery(c.Request.URL.Query())
	if err != nil {
		s.logger.Warn().Err(err).Str("query", c.Request.URL.RawQuery).Msg("modify rejected")
		s.write(c, http.StatusBadRequest, "text/html; charset=utf-8", renderLog(res))
		return
	}
	for _, cmd := range cmds {
		res.Merge(s.httpCommands.Apply(cmd))
	}
	for _, line := range res.Log {
		s.logger.Info().Str("source", "http").Msg("command result: " + line)
	}
	s.write(c, http.StatusOK, "text/html; charset=utf-8", renderLog(res))
}

// handleIndex serves the installed control page verbatim.
func (s *Service) handleIndex(c *gin.Context) {
	data, err := os.ReadFile(s.cfg.IndexFile)
	if err != nil {
		s.logger.Error().Err(err).Str("file", s.cfg.IndexFile).Msg("index read failed")
		c.Status(http.StatusInternalServerError)
		return
	}
	s.write(c, http.StatusOK, "text/html; charset=utf-8", data)
}

// write sends body and logs write failures; the status line is already
// committed by then, so the failure is recorded on the context instead.
func (s *Service) write(c *gin.Context, status int, contentType string, body []byte) {
	c.Header("Content-Type", contentType)
	c.Status(status)
	if _, err := c.Writer.Write(body); err != nil {
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("error writing http response")
		_ = c.Error(err)
	}
}

// renderLog formats a command result as one paragraph per log line followed
// by a Warning marker when any command was flagged.
func renderLog(res command.Result) []byte {
	var b strings.Builder
	for _, line := range res.Log {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>\n")
	}
	if res.Warning {
		b.WriteString("Warning")
	}
	return []byte(b.String())
}
