package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/coursemetrics/metrics-warehouse/internal/metrics"
	"github.com/coursemetrics/metrics-warehouse/pkg/logger"
)

const defaultRangeDays = 30

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard frontend is served from another origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes the metric catalog over HTTP and websocket.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	svc        *metrics.Service
	hub        *Hub
	addr       string
}

// NewServer mounts all routes on a fresh Gin engine.
func NewServer(addr string, svc *metrics.Service, hub *Hub) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router: router,
		svc:    svc,
		hub:    hub,
		addr:   addr,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	api.GET("/metrics/summary", s.handleSummary)
	api.GET("/metrics/catalog", s.handleCatalog)
	api.GET("/metrics/stream", s.handleStream)
	api.GET("/metrics/:key/details", s.handleDetails)
}

// Router exposes the handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves connections until Close is called.
func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	go func() {
		logger.Info("starting API server", zap.String("address", s.addr))

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Close gracefully stops the server.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// parseRange reads start/end query parameters. Both day-granular and full
// timestamp forms are accepted; the range defaults to the trailing 30 days.
// The default is truncated to day boundaries so defaulted requests share one
// cache key with each other and with the background refresh worker.
func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	start := now.AddDate(0, 0, -defaultRangeDays)
	end := now

	var err error
	if raw := c.Query("start"); raw != "" {
		start, err = parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %q", raw)
		}
	}
	if raw := c.Query("end"); raw != "" {
		end, err = parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %q", raw)
		}
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, errors.New("start date is after end date")
	}
	return start, end, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}

func (s *Server) handleSummary(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := s.svc.ComputeAll(c.Request.Context(), start, end)
	if err != nil {
		logger.Error("summary computation failed, warehouse unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unable to connect to warehouse"})
		return
	}

	c.JSON(http.StatusOK, results)
}

func (s *Server) handleDetails(c *gin.Context) {
	key := c.Param("key")
	if s.svc.Registry().Get(key) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown metric: %s", key)})
		return
	}

	start, end, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := make(map[string]string)
	for name, values := range c.Request.URL.Query() {
		if name == "start" || name == "end" || len(values) == 0 {
			continue
		}
		params[name] = values[0]
	}

	rows := s.svc.Details(c.Request.Context(), key, start, end, params)
	c.JSON(http.StatusOK, gin.H{"data": rows, "status": "ok"})
}

// catalogEntry is the display metadata served to the dashboard frontend.
type catalogEntry struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Trend       string `json:"trend,omitempty"`
	TrendValue  string `json:"trendValue,omitempty"`
}

func (s *Server) handleCatalog(c *gin.Context) {
	defs := s.svc.Registry().All()

	entries := make([]catalogEntry, 0, len(defs))
	for _, def := range defs {
		entries = append(entries, catalogEntry{
			Key:         def.Key,
			Title:       def.Title,
			Description: def.Description,
			Category:    def.Category,
			Type:        string(def.Type),
			Color:       def.Color,
			Icon:        def.Icon,
			Trend:       def.Trend,
			TrendValue:  def.TrendValue,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics":    entries,
		"categories": s.svc.Registry().Categories(),
	})
}

func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	logger.Debug("stream client connected", zap.String("remote", conn.RemoteAddr().String()))
	s.hub.serve(c.Request.Context(), conn)
}
