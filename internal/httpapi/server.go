// Package httpapi exposes the scheduling services over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/kiln/internal/ctxutil"
	"github.com/example/kiln/internal/ports/primary"
)

// ActorHeader lets a caller name itself for the regeneration audit trail.
const ActorHeader = "X-Kiln-Actor"

// Deps are the services the API serves.
type Deps struct {
	Schedule     primary.ScheduleService
	Tasks        primary.TaskService
	Pieces       primary.PieceService
	Orders       primary.OrderService
	Availability primary.AvailabilityService
	Activity     primary.ActivityService
	Metrics      http.Handler // Optional; /metrics is not mounted when nil
	Logger       *slog.Logger
}

// Server handles studio API requests.
type Server struct {
	router *gin.Engine
	deps   Deps
	logger *slog.Logger
}

// NewServer creates a server with every route mounted.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router: gin.New(),
		deps:   deps,
		logger: logger,
	}
	s.router.Use(gin.Recovery(), s.requestLogger(), actorMiddleware())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}

	api := s.router.Group("/api/v1")
	{
		api.POST("/schedule/regenerate", s.handleRegenerate)
		api.GET("/schedule", s.handleGetSchedule)
		api.GET("/schedule/runs", s.handleListRuns)

		api.GET("/tasks/:id", s.handleGetTask)
		api.POST("/tasks/:id/complete", s.handleCompleteTask)

		api.GET("/pieces/:id", s.handleGetPiece)
		api.PATCH("/pieces/:id/progress", s.handleUpdatePieceProgress)

		api.GET("/orders", s.handleListOrders)
		api.GET("/orders/:id", s.handleGetOrder)

		api.GET("/availability", s.handleListAvailability)
		api.GET("/availability/:date", s.handleGetAvailability)
		api.PUT("/availability/:date", s.handleSetAvailability)
		api.DELETE("/availability/:date", s.handleClearAvailability)

		api.GET("/activity", s.handleListActivity)
	}
}

// Router returns the gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"actor", ctxutil.ActorFromContext(c.Request.Context()),
		)
	}
}

// actorMiddleware stamps the caller into the request context.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader(ActorHeader)
		if actor == "" {
			actor = "http:" + c.ClientIP()
		}
		c.Request = c.Request.WithContext(ctxutil.WithActorID(c.Request.Context(), actor))
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRegenerate(c *gin.Context) {
	resp, err := s.deps.Schedule.Regenerate(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRegenerateJSON(resp))
}

func (s *Server) handleGetSchedule(c *gin.Context) {
	tasks, err := s.deps.Schedule.GetSchedule(c.Request.Context(), primary.ScheduleFilters{
		Status:  c.Query("status"),
		PieceID: c.Query("piece_id"),
		From:    c.Query("from"),
		To:      c.Query("to"),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]taskJSON, len(tasks))
	for i, t := range tasks {
		out[i] = toTaskJSON(t)
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

// queryLimit reads an optional positive ?limit, falling back to def.
func queryLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, errorJSON{Success: false, Error: "limit must be a positive integer"})
		return 0, false
	}
	return n, true
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, ok := queryLimit(c, 20)
	if !ok {
		return
	}
	runs, err := s.deps.Schedule.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]runJSON, len(runs))
	for i, r := range runs {
		out[i] = toRunJSON(r)
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *Server) handleGetTask(c *gin.Context) {
	t, err := s.deps.Tasks.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskJSON(t))
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	resp, err := s.deps.Tasks.CompleteTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, completeTaskJSON{
		Task:          toTaskJSON(resp.Task),
		Piece:         toPieceJSON(resp.Piece),
		StageAdvanced: resp.StageAdvanced,
	})
}

func (s *Server) handleGetPiece(c *gin.Context) {
	p, err := s.deps.Pieces.GetPiece(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPieceJSON(p))
}

type pieceProgressRequest struct {
	Stage             *string `json:"stage"`
	CompletedQuantity *int    `json:"completed_quantity"`
}

func (s *Server) handleUpdatePieceProgress(c *gin.Context) {
	var body pieceProgressRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorJSON{Success: false, Error: err.Error()})
		return
	}
	if body.Stage == nil && body.CompletedQuantity == nil {
		c.JSON(http.StatusBadRequest, errorJSON{Success: false, Error: "stage or completed_quantity is required"})
		return
	}

	p, err := s.deps.Pieces.UpdatePieceProgress(c.Request.Context(), primary.UpdatePieceProgressRequest{
		PieceID:           c.Param("id"),
		Stage:             body.Stage,
		CompletedQuantity: body.CompletedQuantity,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPieceJSON(p))
}

func (s *Server) handleListOrders(c *gin.Context) {
	orders, err := s.deps.Orders.ListOrders(c.Request.Context(), primary.OrderFilters{Status: c.Query("status")})
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]orderJSON, len(orders))
	for i, o := range orders {
		out[i] = toOrderJSON(o)
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (s *Server) handleGetOrder(c *gin.Context) {
	o, err := s.deps.Orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderJSON(o))
}

func (s *Server) handleListAvailability(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, errorJSON{Success: false, Error: "from and to are required"})
		return
	}
	days, err := s.deps.Availability.ListAvailability(c.Request.Context(), from, to)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]availabilityJSON, len(days))
	for i, d := range days {
		out[i] = toAvailabilityJSON(d)
	}
	c.JSON(http.StatusOK, gin.H{"availability": out})
}

func (s *Server) handleGetAvailability(c *gin.Context) {
	day, err := s.deps.Availability.CapacityFor(c.Request.Context(), c.Param("date"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAvailabilityJSON(day))
}

type setAvailabilityRequest struct {
	Hours *float64 `json:"hours" binding:"required"`
	Notes string   `json:"notes"`
}

func (s *Server) handleSetAvailability(c *gin.Context) {
	var body setAvailabilityRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorJSON{Success: false, Error: err.Error()})
		return
	}
	day, err := s.deps.Availability.SetAvailability(c.Request.Context(), primary.SetAvailabilityRequest{
		Date:  c.Param("date"),
		Hours: *body.Hours,
		Notes: body.Notes,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAvailabilityJSON(day))
}

func (s *Server) handleClearAvailability(c *gin.Context) {
	if err := s.deps.Availability.ClearAvailability(c.Request.Context(), c.Param("date")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListActivity(c *gin.Context) {
	limit, ok := queryLimit(c, 50)
	if !ok {
		return
	}
	entries, err := s.deps.Activity.ListActivity(c.Request.Context(), primary.ActivityFilters{
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Actor:      c.Query("actor"),
		Limit:      limit,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]activityJSON, len(entries))
	for i, e := range entries {
		out[i] = toActivityJSON(e)
	}
	c.JSON(http.StatusOK, gin.H{"activity": out})
}
