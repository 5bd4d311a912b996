package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/lotas/autogroup/internal/applog"
	"nhooyr.io/websocket"
)

// ErrNotConnected is returned by Request when no extension is connected.
var ErrNotConnected = errors.New("extension not connected")

// Event types sent by the extension.
const (
	EventSnapshot   = "snapshot"
	EventTabCreated = "tab-created"
	EventTabUpdated = "tab-updated"
	EventTabRemoved = "tab-removed"
)

// Command actions understood by the extension.
const (
	ActionGetTab      = "get-tab"
	ActionQueryGroups = "query-groups"
	ActionQueryTabs   = "query-tabs"
	ActionGroupTabs   = "group-tabs"
	ActionUpdateGroup = "update-group"
)

// IncomingMsg is a message from the extension: either an event (Type set)
// or the reply to a command (ID set).
type IncomingMsg struct {
	Type   string          `json:"type,omitempty"`
	Tab    json.RawMessage `json:"tab,omitempty"`
	Tabs   json.RawMessage `json:"tabs,omitempty"`
	Groups json.RawMessage `json:"groups,omitempty"`
	TabID  int             `json:"tabId,omitempty"`
	URL    string          `json:"url,omitempty"`
	Status string          `json:"status,omitempty"`
	// Command response fields
	ID      string `json:"id,omitempty"`
	OK      *bool  `json:"ok,omitempty"`
	Error   string `json:"error,omitempty"`
	GroupID int    `json:"groupId,omitempty"`
}

// OutgoingMsg is a command from the daemon to the extension.
type OutgoingMsg struct {
	ID      string `json:"id"`
	Action  string `json:"action"`
	TabID   int    `json:"tabId,omitempty"`
	TabIDs  []int  `json:"tabIds,omitempty"`
	GroupID int    `json:"groupId,omitempty"`
	Title   string `json:"title,omitempty"`
	Color   string `json:"color,omitempty"`
}

// CommandError is returned when the extension reports a failed command.
type CommandError struct {
	Action string
	Msg    string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Action, e.Msg)
}

// Server manages the WebSocket connection to the extension.
type Server struct {
	port    int
	msgs    chan IncomingMsg
	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	pending map[string]chan IncomingMsg
	nextID  atomic.Int64
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(port int) *Server {
	return &Server{
		port:    port,
		msgs:    make(chan IncomingMsg, 64),
		pending: make(map[string]chan IncomingMsg),
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Messages returns the channel of events from the extension. Command
// replies are delivered to the waiting Request call instead.
func (s *Server) Messages() <-chan IncomingMsg {
	return s.msgs
}

// Connected reports whether an extension is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send sends a command to the connected extension without waiting for a
// reply. It is a no-op when nothing is connected.
func (s *Server) Send(msg OutgoingMsg) error {
	s.mu.Lock()
	conn := s.conn
	ctx := s.connCtx
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	applog.Info("ws.send", "action", msg.Action, "id", msg.ID)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Request sends a command and waits for the extension's reply with the same
// id. A reply with ok=false is returned as a *CommandError.
func (s *Server) Request(ctx context.Context, msg OutgoingMsg) (IncomingMsg, error) {
	if !s.Connected() {
		return IncomingMsg{}, ErrNotConnected
	}
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("cmd-%d", s.nextID.Add(1))
	}

	reply := make(chan IncomingMsg, 1)
	s.mu.Lock()
	s.pending[msg.ID] = reply
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}()

	if err := s.Send(msg); err != nil {
		return IncomingMsg{}, fmt.Errorf("send %s: %w", msg.Action, err)
	}

	select {
	case resp := <-reply:
		if resp.OK != nil && !*resp.OK {
			return resp, &CommandError{Action: msg.Action, Msg: resp.Error}
		}
		return resp, nil
	case <-ctx.Done():
		return IncomingMsg{}, fmt.Errorf("wait for %s reply: %w", msg.Action, ctx.Err())
	}
}

// deliver hands a reply to its waiting Request. It reports false if no
// request is waiting for that id.
func (s *Server) deliver(msg IncomingMsg) bool {
	s.mu.Lock()
	ch, ok := s.pending[msg.ID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- msg:
	default:
	}
	return true
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Printf("websocket accept: %v", err)
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(16 << 20) // snapshots with many tabs can be large

		ctx := r.Context()
		s.mu.Lock()
		if s.conn != nil {
			applog.Info("ws.replaced")
			s.conn.CloseNow()
		}
		s.conn = conn
		s.connCtx = ctx
		s.mu.Unlock()

		applog.Info("ws.connected", "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.connCtx = nil
			}
			s.mu.Unlock()
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg IncomingMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			if msg.Type == "" && msg.ID != "" {
				if !s.deliver(msg) {
					applog.Info("ws.reply.orphan", "id", msg.ID)
				}
				continue
			}
			applog.Info("ws.recv", "type", msg.Type, "tab", msg.TabID)
			select {
			case s.msgs <- msg:
			default:
				applog.Info("ws.drop", "type", msg.Type)
			}
		}
	})
}

// ListenAndServe starts the WebSocket server on the configured port.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler())

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
