package control

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/turtacn/Vigil/pkg/errors"
	"github.com/turtacn/Vigil/pkg/logger"
)

// Server accepts control requests on a Unix domain socket, one request per
// connection.
type Server struct {
	socketPath string
	handler    Handler
	timeout    time.Duration
}

func NewServer(socketPath string, h Handler, timeout time.Duration) *Server {
	return &Server{socketPath: socketPath, handler: h, timeout: timeout}
}

// PrepareSocket removes a stale socket file and listens on a fresh one
// readable only by the current user.
func (s *Server) PrepareSocket() (net.Listener, error) {
	if _, err := os.Stat(s.socketPath); err == nil {
		_ = os.Remove(s.socketPath)
	}
	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, errors.New(errors.ErrCodeControlUnavailable, "PrepareSocket", "cannot listen on "+s.socketPath, err)
	}
	_ = os.Chmod(s.socketPath, 0o700)
	return l, nil
}

// Serve handles connections on l until ctx is cancelled, then closes l,
// waits for in-flight requests and removes the socket file.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	logger.Log.Info("Control: Listening", "socket", s.socketPath)

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		_ = os.Remove(s.socketPath)
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Log.Warn("Control: Accept failed", "err", err)
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		logger.Log.Warn("Control: Malformed request", "err", err)
		_ = json.NewEncoder(conn).Encode(Response{Error: "malformed request: " + err.Error()})
		return
	}

	resp := s.dispatch(req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		logger.Log.Warn("Control: Cannot write response", "command", req.Command, "err", err)
	}
}

func (s *Server) dispatch(req Request) Response {
	logger.Log.Debug("Control: Request received", "command", req.Command)

	var err error
	switch req.Command {
	case CmdPause:
		var d time.Duration
		var indefinite bool
		d, indefinite, err = ParsePauseDuration(req.Duration)
		if err == nil {
			if indefinite {
				s.handler.PauseIndefinitely()
			} else {
				s.handler.Pause(d)
			}
		}
	case CmdUnpause:
		s.handler.Unpause()
	case CmdStatus:
	case CmdReload:
		err = s.handler.Reload()
	case CmdIntervals:
		err = s.intervals(req)
	default:
		err = errors.New(errors.ErrCodeControlRejected, "dispatch", "unknown command "+req.Command, nil)
	}

	if err != nil {
		return Response{Error: err.Error()}
	}
	st := s.handler.Status()
	return Response{OK: true, Status: &st}
}

// intervals applies new poll intervals. An omitted interval keeps its
// current value.
func (s *Server) intervals(req Request) error {
	cur := s.handler.Status()
	active, err := durationOr(req.Active, cur.ActiveInterval)
	if err != nil {
		return err
	}
	idle, err := durationOr(req.Idle, cur.IdleInterval)
	if err != nil {
		return err
	}
	return s.handler.UpdateIntervals(active, idle)
}

func durationOr(v, fallback string) (time.Duration, error) {
	if v == "" {
		v = fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.New(errors.ErrCodeControlRejected, "intervals", "invalid interval "+v, err)
	}
	return d, nil
}

// Personal.AI order the ending
