package supervisor

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/HexSleeves/summ-daemon/internal/metrics"
	"github.com/HexSleeves/summ-daemon/internal/protocol"
)

// acceptLoop accepts connections until ctx is canceled, at which point it
// closes the listener (unblocking Accept) and returns once every
// in-flight handleConn has been dispatched to its own goroutine tracked
// by s.wg.
func (s *Supervisor) acceptLoop(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logWarn("accept failed", "error", err)
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn reads exactly one request frame, dispatches it, and writes
// exactly one response frame, then closes the connection. A deadline
// bounds the whole round trip so one stuck client can't hold a handler
// goroutine forever.
func (s *Supervisor) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(s.cfg.AcceptTimeout)); err != nil {
		s.logWarn("setting connection deadline failed", "error", err)
		return
	}

	body, err := protocol.ReadFrame(conn)
	if err != nil {
		s.logWarn("reading request frame failed", "error", err)
		return
	}

	req, decodeErr := protocol.DecodeRequest(body)
	var resp protocol.Response
	reqType := "unknown"
	if decodeErr != nil {
		resp = protocol.FromError(decodeErr)
	} else {
		reqType = string(req.Type)
		reqCtx, cancel := context.WithTimeout(ctx, s.cfg.AcceptTimeout)
		resp = s.handler.Dispatch(reqCtx, req)
		cancel()
	}

	outcome := "success"
	if resp.Type != "Success" {
		outcome = "error"
	}
	metrics.ObserveRequest(reqType, outcome)

	out, err := protocol.EncodeResponse(resp)
	if err != nil {
		s.logWarn("encoding response failed", "error", err)
		return
	}
	if err := protocol.WriteFrame(conn, out); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logWarn("writing response frame failed", "error", err)
	}
}
