package preview

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cutroom/internal/api"
	"cutroom/internal/logging"
	"cutroom/internal/progress"
	"cutroom/internal/viewmodel"
)

const writeWait = 10 * time.Second

type logLine struct {
	Scope   string    `json:"scope,omitempty"`
	Message string    `json:"message"`
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
}

type nodeJSON struct {
	ID       string      `json:"id,omitempty"`
	Kind     string      `json:"kind"`
	Label    string      `json:"label,omitempty"`
	Text     string      `json:"text,omitempty"`
	Hidden   bool        `json:"hidden,omitempty"`
	Disabled bool        `json:"disabled,omitempty"`
	Step     string      `json:"step,omitempty"`
	Action   string      `json:"action,omitempty"`
	Rows     [][]string  `json:"rows,omitempty"`
	Children []*nodeJSON `json:"children,omitempty"`
}

func encodeNode(n *viewmodel.Node) *nodeJSON {
	if n == nil {
		return nil
	}
	out := &nodeJSON{
		ID:       n.ID,
		Kind:     n.Kind.String(),
		Label:    n.Label,
		Text:     n.Text,
		Hidden:   n.Hidden,
		Disabled: n.Disabled,
		Rows:     n.Rows,
	}
	if n.Kind == viewmodel.KindStep {
		out.Step = n.Step.String()
	}
	if n.Action != nil {
		out.Action = n.Action.String()
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, encodeNode(child))
	}
	return out
}

// handleProgress relays one project's progress stream to a websocket client.
// The upstream stream reconnects until a terminal event; the socket is closed
// once that event was forwarded or the client went away.
func (s *Server) handleProgress(c *gin.Context) {
	projectID := c.Query("project")
	if projectID == "" {
		projectID = s.state.Snapshot().ProjectID()
	}
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no project"})
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(logging.WithProjectID(c.Request.Context(), projectID))
	defer cancel()
	logger := logging.WithContext(ctx, s.logger)

	events := make(chan api.ProgressEvent, 64)
	handle := progress.Open(ctx, s.connector, projectID, progress.Options{
		Policy: progress.RetryTolerant,
		OnEvent: func(evt api.ProgressEvent) {
			select {
			case events <- evt:
			case <-ctx.Done():
			}
		},
		ReconnectDelay: s.reconnectDelay,
		Logger:         s.logger,
	})
	defer handle.Close()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(evt api.ProgressEvent) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(evt); err != nil {
			logger.Debug("websocket write failed", logging.Error(err))
			return false
		}
		return true
	}

	logger.Info("progress relay opened")
	for {
		select {
		case evt := <-events:
			if !send(evt) {
				return
			}
		case <-handle.Done():
			for {
				select {
				case evt := <-events:
					if !send(evt) {
						return
					}
				default:
					msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, handle.Outcome().String())
					_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
					logger.Info("progress relay closed", logging.String("outcome", handle.Outcome().String()))
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
