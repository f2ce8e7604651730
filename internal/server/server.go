// Package server implements the demo's HTTP/1.0 connection handling: one
// goroutine per accepted connection, no keep-alive.
package server

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kolayne/go-tpool/internal/http10"
	"github.com/kolayne/go-tpool/internal/router"
	"github.com/kolayne/go-tpool/internal/util"
)

// Server accepts HTTP/1.0 connections and dispatches them through a
// Router.
type Server struct {
	rt  *router.Router
	log *zap.Logger

	startedAt time.Time
	connCount uint64
}

// New creates a Server bound to the given Router.
func New(rt *router.Router, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{rt: rt, log: log, startedAt: time.Now()}
}

func (s *Server) handleConn(c net.Conn) {
	defer c.Close()

	trace := map[string]string{
		"X-Request-Id": util.NewReqID(),
		"X-Worker-Pid": strconv.Itoa(os.Getpid()),
		"Connection":   "close",
	}

	r := bufio.NewReader(c)
	req, err := http10.ParseRequest(r)
	if err != nil {
		http10.WriteErrorJSON(c, 400, "bad_request", err.Error(), trace)
		return
	}

	if req.Method == "GET" {
		path, _ := http10.SplitTarget(req.Target)
		if path == "/status" {
			out := map[string]any{
				"pid":         os.Getpid(),
				"uptime_ms":   time.Since(s.startedAt).Milliseconds(),
				"started_at":  s.startedAt.UTC().Format(time.RFC3339Nano),
				"connections": atomic.LoadUint64(&s.connCount),
				"pools":       s.rt.PoolsSummary(),
			}
			b, _ := json.Marshal(out)
			http10.WriteJSONH(c, 200, string(b), trace)
			return
		}
	}

	res := s.rt.Dispatch(req.Method, req.Target)

	hdrs := make(map[string]string, len(trace)+len(res.Headers))
	for k, v := range trace {
		hdrs[k] = v
	}
	for k, v := range res.Headers {
		hdrs[k] = v
	}

	switch {
	case res.JSON && res.Err != nil:
		http10.WriteErrorJSON(c, res.Status, res.Err.Code, res.Err.Detail, hdrs)
	case res.JSON:
		http10.WriteJSONH(c, res.Status, res.Body, hdrs)
	default:
		http10.WritePlainH(c, res.Status, res.Body, hdrs)
	}
}

// ListenAndServe accepts connections on addr until the listener fails or
// is closed.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	s.log.Info("listening", zap.String("addr", addr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		atomic.AddUint64(&s.connCount, 1)
		go s.handleConn(conn)
	}
}
