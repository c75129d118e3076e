// Package debugserver broadcasts trampoline steps to connected
// inspectors over a websocket, adapting the teacher's breakpoint/
// step-state vocabulary (Running/Paused/StepInto/StepOver/Terminated) to
// "step the Answer->Answer trampoline." Like package trace, nothing in
// internal/eval imports this package — a driver calls Step around each
// Resume call.
package debugserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kr/pretty"
)

// State mirrors the teacher debugger's DebugState, narrowed to the
// states a single-threaded cooperative trampoline can actually occupy:
// there is no StepOut (no call stack to pop out of at this level) and no
// StepInto/StepOver distinction (every PrimOp/Apply/Fix/etc. step is the
// same granularity).
type State int

const (
	Running State = iota
	Paused
	Terminated
)

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

// Server accepts websocket connections and fans out one text line per
// trampoline step. Connected clients may send "pause", "resume", or
// "step" to control Server.state.
type Server struct {
	upgrader websocket.Upgrader
	http     *http.Server

	mu          sync.RWMutex
	clients     map[string]*client
	breakpoints map[string]bool
	state       State
	stepIndex   int64

	resumeCh chan struct{}
}

// New constructs a Server that will listen on addr once Start is called.
func New(addr string) *Server {
	s := &Server{
		clients:     make(map[string]*client),
		breakpoints: make(map[string]bool),
		state:       Running,
		resumeCh:    make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.http = &http.Server{Addr: addr, Handler: mux}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return s
}

// Start begins serving websocket connections in the background.
func (s *Server) Start() error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	go s.http.Serve(ln)
	return nil
}

func (s *Server) listen() (net.Listener, error) {
	return net.Listen("tcp", s.http.Addr)
}

// Stop shuts the server down, closing every client connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	for _, c := range s.clients {
		c.conn.Close()
	}
	s.clients = make(map[string]*client)
	s.mu.Unlock()
	return s.http.Shutdown(context.Background())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	id := uuid.NewString()
	c := &client{id: id, conn: conn}

	s.mu.Lock()
	s.clients[id] = c
	s.mu.Unlock()

	go s.readLoop(c)
}

func (s *Server) readLoop(c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		switch string(msg) {
		case "pause":
			s.mu.Lock()
			s.state = Paused
			s.mu.Unlock()
		case "resume", "step":
			s.mu.Lock()
			if string(msg) == "step" {
				s.state = Paused
			} else {
				s.state = Running
			}
			s.mu.Unlock()
			select {
			case s.resumeCh <- struct{}{}:
			default:
			}
		}
	}
}

// SetBreakpoint enables or disables pausing before a step of the given
// CExpr node-kind name (e.g. "Apply", "PrimOp(Subscript)").
func (s *Server) SetBreakpoint(nodeKind string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		s.breakpoints[nodeKind] = true
	} else {
		delete(s.breakpoints, nodeKind)
	}
}

// Step broadcasts one trampoline transition to every connected client,
// then blocks if the server is paused or nodeKind has a breakpoint set,
// until a client sends "resume" or "step".
func (s *Server) Step(runID, nodeKind string, args any, storeSize int) {
	s.mu.Lock()
	s.stepIndex++
	idx := s.stepIndex
	shouldPause := s.state == Paused || s.breakpoints[nodeKind]
	s.mu.Unlock()

	line := fmt.Sprintf("run=%s step=%d kind=%s store=%d args=%s",
		runID, idx, nodeKind, storeSize, pretty.Sprint(args))
	s.broadcast(line)

	if shouldPause {
		<-s.resumeCh
	}
}

func (s *Server) broadcast(line string) {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		c.conn.WriteMessage(websocket.TextMessage, []byte(line))
		c.mu.Unlock()
	}
}
