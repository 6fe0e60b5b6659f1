package admin

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/errors"
	"github.com/ulta-agent/ulta/state"
	"github.com/ulta-agent/ulta/tank"
	"go.uber.org/zap"
)

// tankStatusProvider is the subset of statusreport.TankStatusProvider
// this package reads for the optional /ws/status stream.
type tankStatusProvider interface {
	GetTankStatus() tank.Status
}

// agentState is the coarse-grained liveness state reported by /health.
type agentState string

const (
	stateAlive        agentState = "ALIVE"
	stateShuttingDown agentState = "SHUTTING_DOWN"
	stateShutdown     agentState = "SHUTDOWN"
)

// healthResponse is the /health endpoint's JSON body.
type healthResponse struct {
	State           agentState `json:"state"`
	Errors          []string   `json:"errors"`
	CurrentActivity string     `json:"current_activity"`
}

// Server is the agent's loopback-only admin HTTP API: liveness and
// shutdown endpoints plus Prometheus metrics. It binds 127.0.0.1 and
// ::1 independently, tolerating either one failing to bind as long as
// the other succeeds.
type Server struct {
	logger       *zap.SugaredLogger
	state        *state.State
	cancellation *cancel.Cancellation
	tankStatus   tankStatusProvider

	mu        sync.Mutex
	listeners []net.Listener
	servers   []*http.Server
	wg        sync.WaitGroup
}

// NewServer builds a Server. It does not start listening until Start
// is called. tankStatus is optional; when nil, /ws/status reports an
// unspecified tank status instead of omitting the endpoint.
func NewServer(logger *zap.SugaredLogger, serviceState *state.State, cancellation *cancel.Cancellation, tankStatus tankStatusProvider) *Server {
	return &Server{logger: logger, state: serviceState, cancellation: cancellation, tankStatus: tankStatus}
}

// Start binds the admin API on port for both 127.0.0.1 and ::1. A
// failure to bind one address is logged and the other is still tried;
// failing to bind both is returned as a fatal error.
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/shutdown", s.handleShutdown)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws/status", s.handleWSStatus)

	addrs := []string{
		net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		net.JoinHostPort("::1", strconv.Itoa(port)),
	}

	var bound int
	for _, addr := range addrs {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			s.logger.Warnw("failed to bind admin API address", "addr", addr, "error", err)
			continue
		}
		bound++
		srv := &http.Server{Handler: mux}
		s.mu.Lock()
		s.listeners = append(s.listeners, ln)
		s.servers = append(s.servers, srv)
		s.mu.Unlock()

		s.wg.Add(1)
		go func(ln net.Listener, srv *http.Server) {
			defer s.wg.Done()
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				s.logger.Errorw("admin API server exited", "error", err)
			}
		}(ln, srv)
	}

	if bound == 0 {
		return errors.Newf("failed to bind admin API on port %d on any address", port)
	}
	return nil
}

// Stop shuts down every bound listener.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	servers := s.servers
	s.mu.Unlock()

	for _, srv := range servers {
		_ = srv.Shutdown(ctx)
	}
	s.wg.Wait()
}

func (s *Server) currentState() agentState {
	stack := s.state.CurrentState()
	if len(stack) == 0 {
		return stateShutdown
	}
	if s.cancellation.IsSet(cancel.Graceful) {
		return stateShuttingDown
	}
	return stateAlive
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	errs := s.state.CurrentErrors()
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}

	activity := "idle"
	if stack := s.state.CurrentState(); len(stack) > 0 {
		activity = strings.Join(stack, " -> ")
	}

	writeJSON(w, http.StatusOK, healthResponse{
		State:           s.currentState(),
		Errors:          messages,
		CurrentActivity: activity,
	})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.currentState() == stateShutdown {
		writeJSON(w, http.StatusOK, healthResponse{State: stateShutdown})
		return
	}

	level := cancel.Graceful
	reason := "shutdown requested via admin API"
	if force := r.URL.Query().Get("force"); force != "" {
		level = cancel.Forced
		reason = fmt.Sprintf("forced shutdown requested via admin API (force=%s)", force)
	}
	s.cancellation.Notify(reason, level)

	w.WriteHeader(http.StatusProcessing)
}
