package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/checkrun-dev/engine/internal/observer"
	"github.com/checkrun-dev/engine/pkg/engine"
	"github.com/checkrun-dev/engine/pkg/models"
)

// submitRunRequest is the POST /runs body: a RunConfig, the check ids to
// run (empty means every check with no unresolved dependent), and the
// PRInfo the run's expressions evaluate against.
type submitRunRequest struct {
	Config    models.RunConfig `json:"config" binding:"required"`
	Requested []string         `json:"requested"`
	PRInfo    models.PRInfo    `json:"pr_info"`
}

func (s *Server) handleSubmitRun(c *gin.Context) {
	var req submitRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.Config.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid run config: "+err.Error())
		return
	}

	runID := uuid.New().String()

	hub := observer.NewWebSocketHub(s.log)
	mgr := observer.NewManager(s.log)
	mgr.Register(observer.NewLoggerSink(s.log))
	mgr.Register(observer.NewWebSocketSink(hub, s.log))

	handle := s.runs.create(runID, hub)

	opts := engine.DefaultOptions()
	if s.cfg.Engine.WaveCap > 0 {
		opts.WaveCap = s.cfg.Engine.WaveCap
	}
	if s.cfg.Engine.DefaultCheckTimeout > 0 {
		opts.DefaultCheckTimeout = s.cfg.Engine.DefaultCheckTimeout
	}

	eng := engine.New(s.registry, opts, mgr, s.log).WithTracer(s.tracer)

	// Decoupled from the request's own context: the run must keep going
	// after this handler returns the 202 below, not be canceled with it.
	runCtx := context.WithoutCancel(c.Request.Context())
	requested := req.Requested
	if len(requested) == 0 {
		for id := range req.Config.Checks {
			requested = append(requested, id)
		}
	}
	go func() {
		result, err := eng.Run(runCtx, &req.Config, requested, &req.PRInfo)
		handle.finish(result, err)
	}()

	c.JSON(http.StatusAccepted, gin.H{"id": runID, "status": "running"})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id := c.Param("id")
	handle, ok := s.runs.get(id)
	if !ok {
		respondError(c, http.StatusNotFound, "run not found")
		return
	}

	status, result, errMsg := handle.snapshot()
	resp := gin.H{"id": id, "status": status}
	if result != nil {
		resp["result"] = result
	}
	if errMsg != "" {
		resp["error"] = errMsg
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRunEvents(c *gin.Context) {
	id := c.Param("id")
	handle, ok := s.runs.get(id)
	if !ok {
		respondError(c, http.StatusNotFound, "run not found")
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	handle.hub.Register(conn)
}
