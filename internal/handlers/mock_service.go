package handlers

import (
	"context"
	"net/http"
	"sync"

	"alpha_innotec_planner/internal/models"
	"alpha_innotec_planner/internal/planner"
	"alpha_innotec_planner/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	genToken    string
	genErr      error
	parseSub    string
	parseErr    error
	lastSubject string
	lastParse   string
}

func (m *mockAuth) GenerateToken(subject string) (string, error) {
	m.lastSubject = subject
	return m.genToken, m.genErr
}

func (m *mockAuth) ParseToken(token string) (string, error) {
	m.lastParse = token
	return m.parseSub, m.parseErr
}

type mockPlanning struct {
	result     service.RunResult
	runErr     error
	plan       planner.Plan
	previewErr error
	runCalls   int
	runCtxErr  error
	deadline   bool
}

func (m *mockPlanning) Run(ctx context.Context) (service.RunResult, error) {
	m.runCalls++
	m.runCtxErr = ctx.Err()
	_, m.deadline = ctx.Deadline()
	return m.result, m.runErr
}

func (m *mockPlanning) Preview(ctx context.Context) (planner.Plan, error) {
	return m.plan, m.previewErr
}

type mockMonitoring struct {
	mu     sync.Mutex
	states []models.RunState // served in order; the last one repeats
	err    error
	calls  int
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.RunState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return models.RunState{}, m.err
	}
	if len(m.states) == 0 {
		return models.RunState{}, nil
	}
	st := m.states[0]
	if len(m.states) > 1 {
		m.states = m.states[1:]
	}
	return st, nil
}

type mockEventLog struct {
	resp []models.RunEvent
	err  error
	last service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.RunEvent, error) {
	m.last = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
