package server_test

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolayne/go-tpool/internal/config"
	"github.com/kolayne/go-tpool/internal/router"
	"github.com/kolayne/go-tpool/internal/server"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	for name, pc := range cfg.Pools {
		pc.Workers = 1
		cfg.Pools[name] = pc
	}
	return cfg
}

// startServer spins up a real server.Server on an ephemeral port and
// returns its address, so tests exercise ListenAndServe's actual
// connection-handling path over a socket rather than calling internals.
func startServer(t *testing.T) string {
	t.Helper()
	cfg := newTestConfig(t)
	rt, err := router.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	s := server.New(rt, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	go s.ListenAndServe(addr)
	time.Sleep(20 * time.Millisecond)
	return addr
}

func doRequest(t *testing.T, addr, target string) (int, string) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET " + target + " HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	statusLine, err := r.ReadString('\n')
	require.NoError(t, err)

	var body strings.Builder
	inBody := false
	for {
		l, err := r.ReadString('\n')
		if err != nil {
			break
		}
		if !inBody {
			if l == "\r\n" {
				inBody = true
			}
			continue
		}
		body.WriteString(l)
	}

	fields := strings.Fields(statusLine)
	require.GreaterOrEqual(t, len(fields), 2)
	status, err := strconv.Atoi(fields[1])
	require.NoError(t, err)
	return status, body.String()
}

func TestServerServesReverseOverRealSocket(t *testing.T) {
	addr := startServer(t)
	status, body := doRequest(t, addr, "/reverse?text=abc")
	assert.Equal(t, 200, status)
	assert.Equal(t, "cba\n", body)
}

func TestServerReturns404ForUnknownRoute(t *testing.T) {
	addr := startServer(t)
	status, _ := doRequest(t, addr, "/does-not-exist")
	assert.Equal(t, 404, status)
}

func TestServerStatusEndpointReportsPools(t *testing.T) {
	addr := startServer(t)
	status, body := doRequest(t, addr, "/status")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, "pools")
}

func TestServerHandlesConcurrentConnections(t *testing.T) {
	addr := startServer(t)

	done := make(chan int, 10)
	for i := 0; i < 10; i++ {
		go func() {
			status, _ := doRequest(t, addr, "/timestamp")
			done <- status
		}()
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, 200, <-done)
	}
}
