package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/skontar/presentation-switch/internal/engine"
	"github.com/skontar/presentation-switch/internal/util"
)

// Server hosts the control socket and serves requests.
type Server struct {
	engine     *engine.Engine
	logger     *util.Logger
	reload     func(reason string) error
	socketPath string

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new control server.
func NewServer(eng *engine.Engine, logger *util.Logger, reload func(reason string) error) (*Server, error) {
	path, err := DefaultSocketPath()
	if err != nil {
		return nil, err
	}
	return &Server{
		engine:     eng,
		logger:     logger,
		reload:     reload,
		socketPath: path,
	}, nil
}

// Serve listens on the control socket until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.prepareSocket(); err != nil {
		return err
	}
	s.logger.Infof("control server listening on %s", s.socketPath)
	defer s.cleanup()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := s.accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Errorf("control accept error: %v", err)
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, context.Canceled
	}
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (s *Server) prepareSocket() error {
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod control socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

func (s *Server) cleanup() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnf("remove control socket: %v", err)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	var req Request
	if err := dec.Decode(&req); err != nil {
		s.writeError(conn, fmt.Errorf("decode request: %w", err))
		return
	}
	switch req.Action {
	case ActionStatusGet:
		s.handleStatusGet(conn)
	case ActionModeSet:
		s.handleModeSet(ctx, conn, req.Params)
	case ActionHistoryGet:
		s.handleHistoryGet(conn)
	case ActionWindowsGet:
		s.handleWindowsGet(conn)
	case ActionReload:
		s.handleReload(conn)
	default:
		s.writeError(conn, fmt.Errorf("unknown action %q", req.Action))
	}
}

func (s *Server) handleStatusGet(conn net.Conn) {
	s.writeOK(conn, s.engine.Status())
}

func (s *Server) handleModeSet(ctx context.Context, conn net.Conn, params map[string]any) {
	modeState, _ := params["state"].(string)
	switch modeState {
	case ModeOn:
		s.engine.ForceMode(ctx, true)
	case ModeOff:
		s.engine.ForceMode(ctx, false)
	case ModeAuto:
		s.engine.ResumeAuto()
	default:
		s.writeError(conn, fmt.Errorf("state must be %q, %q, or %q", ModeOn, ModeOff, ModeAuto))
		return
	}
	s.writeOK(conn, s.engine.Status())
}

func (s *Server) handleHistoryGet(conn net.Conn) {
	s.writeOK(conn, HistoryResult{Ticks: s.engine.History()})
}

func (s *Server) handleWindowsGet(conn net.Conn) {
	result := WindowsResult{}
	if snap := s.engine.LastSnapshot(); snap != nil {
		result.Windows = make([]WindowSummary, 0, len(snap.Windows))
		for _, w := range snap.Windows {
			result.Windows = append(result.Windows, WindowSummary{
				ID:         w.ID,
				DesktopID:  w.DesktopID,
				PID:        w.PID,
				Title:      w.Title,
				Name:       w.Name,
				Classes:    w.WMClasses,
				CPU:        w.CPU,
				Fullscreen: w.Fullscreen,
			})
		}
	}
	s.writeOK(conn, result)
}

func (s *Server) handleReload(conn net.Conn) {
	if s.reload == nil {
		s.writeError(conn, errors.New("reload not supported"))
		return
	}
	if err := s.reload("control request"); err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, nil)
}

func (s *Server) writeOK(conn net.Conn, data any) {
	s.writeResponse(conn, Response{Status: StatusOK, Data: data})
}

func (s *Server) writeError(conn net.Conn, err error) {
	s.writeResponse(conn, Response{Status: StatusError, Error: err.Error()})
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Warnf("write control response: %v", err)
	}
}
