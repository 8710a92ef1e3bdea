package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cutroom/internal/appstate"
	"cutroom/internal/config"
	"cutroom/internal/curve"
	"cutroom/internal/grid"
	"cutroom/internal/logging"
	"cutroom/internal/progress"
	"cutroom/internal/projectview"
	"cutroom/internal/viewmodel"
)

// View names accepted by /api/view.
const (
	ViewProject = "project"
	ViewGrid    = "grid"
)

// Deps wires a Server.
type Deps struct {
	State     *appstate.Store
	Connector progress.Connector
	Config    *config.Config
	Logger    *slog.Logger
	// Bindings supplies handlers for POST /api/invoke. Without it the view
	// is read-only.
	Bindings func(view string) viewmodel.Bindings
}

// Server is the local preview relay: the rendered views as JSON, the tension
// curve as SVG, and the project's progress stream over a websocket.
type Server struct {
	bind           string
	state          *appstate.Store
	connector      progress.Connector
	bindings       func(string) viewmodel.Bindings
	logger         *slog.Logger
	curveWidth     float64
	curveHeight    float64
	reconnectDelay time.Duration
	upgrader       websocket.Upgrader

	engine   *gin.Engine
	listener net.Listener
	server   *http.Server
}

// New builds the server and its routes. Nothing listens until Start.
func New(deps Deps) (*Server, error) {
	if deps.State == nil {
		return nil, errors.New("preview: state store is required")
	}
	if deps.Connector == nil {
		return nil, errors.New("preview: progress connector is required")
	}
	s := &Server{
		bind:           "127.0.0.1:0",
		state:          deps.State,
		connector:      deps.Connector,
		bindings:       deps.Bindings,
		logger:         logging.NewComponentLogger(deps.Logger, "preview"),
		curveWidth:     curve.DefaultWidth,
		curveHeight:    curve.DefaultHeight,
		reconnectDelay: progress.DefaultReconnectDelay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameHost,
		},
	}
	if cfg := deps.Config; cfg != nil {
		if bind := strings.TrimSpace(cfg.Preview.Bind); bind != "" {
			s.bind = bind
		}
		if cfg.Curve.Width > 0 {
			s.curveWidth = float64(cfg.Curve.Width)
		}
		if cfg.Curve.Height > 0 {
			s.curveHeight = float64(cfg.Curve.Height)
		}
		s.reconnectDelay = cfg.ReconnectDelay()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "project": s.state.Snapshot().ProjectID()})
	})
	engine.GET("/curve.svg", s.handleCurve)
	engine.GET("/api/view", s.handleView)
	engine.GET("/api/log", s.handleLog)
	engine.POST("/api/invoke", s.handleInvoke)
	engine.GET("/ws/progress", s.handleProgress)
	s.engine = engine

	s.server = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("preview listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("preview server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("preview server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for open requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("preview request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) handleCurve(c *gin.Context) {
	snap := s.state.Snapshot()
	if snap.Project == nil || snap.Project.Story == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No breakdown yet"})
		return
	}
	layout, err := curve.Compute(curve.FromStory(snap.Project.Story), s.curveWidth, s.curveHeight)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "image/svg+xml")
	c.Status(http.StatusOK)
	if err := layout.WriteSVG(c.Writer); err != nil {
		s.logger.Warn("write curve", logging.Error(err))
	}
}

func (s *Server) build(view string) (*viewmodel.Node, error) {
	snap := s.state.Snapshot()
	switch view {
	case "", ViewProject:
		return projectview.Build(snap), nil
	case ViewGrid:
		return grid.Build(snap), nil
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
}

func (s *Server) handleView(c *gin.Context) {
	root, err := s.build(c.Query("view"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, encodeNode(root))
}

func (s *Server) handleLog(c *gin.Context) {
	scope := c.Query("scope")
	lines := []logLine{}
	for _, line := range s.state.Snapshot().Log {
		if scope != "" && line.Scope != scope {
			continue
		}
		lines = append(lines, logLine{Scope: line.Scope, Message: line.Event.Message, Type: line.Event.Type, At: line.At})
	}
	c.JSON(http.StatusOK, lines)
}

func (s *Server) handleInvoke(c *gin.Context) {
	if s.bindings == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "actions are disabled"})
		return
	}
	view := c.Query("view")
	id := c.Query("id")
	root, err := s.build(view)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bound, err := viewmodel.Bind(root, s.bindings(view))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Generations outlive the request that started them.
	if err := bound.Invoke(context.WithoutCancel(c.Request.Context()), id); err != nil {
		status := http.StatusConflict
		if viewmodel.Find(root, id) == nil {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("preview action invoked", logging.String("view", view), logging.String("id", id))
	c.JSON(http.StatusAccepted, gin.H{"status": "started", "id": id})
}

func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	host := strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	return host == r.Host
}
