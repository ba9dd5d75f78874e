package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	cartapp "github.com/astrogoddess/storefront/internal/application/cart"
	"github.com/astrogoddess/storefront/internal/domain/shared"
	"github.com/astrogoddess/storefront/internal/infrastructure/cache"
	"github.com/astrogoddess/storefront/internal/interfaces/http/dto"
	"github.com/astrogoddess/storefront/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}

// testServer wires the handlers the way the router does and keeps the
// session cookie between requests like a browser would.
type testServer struct {
	t         *testing.T
	engine    *gin.Engine
	storage   *cache.InMemoryCartStorage
	publisher *recordingPublisher
	cookie    *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	storage := cache.NewInMemoryCartStorage(0, 0)
	t.Cleanup(func() { _ = storage.Close() })

	publisher := &recordingPublisher{}
	service := cartapp.NewService(storage, cartapp.WithEventPublisher(publisher))

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Session(middleware.DefaultSessionConfig()))
	api := engine.Group("/api/v1")
	NewCartHandler(service).RegisterRoutes(api)
	NewBookingHandler(service).RegisterRoutes(api)
	NewHealthHandler(storage, "memory").RegisterRoutes(api)

	return &testServer{t: t, engine: engine, storage: storage, publisher: publisher}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.DefaultSessionCookie {
			s.cookie = c
		}
	}
	return w
}

// decode unwraps the response envelope into data
func decode[T any](t *testing.T, w *httptest.ResponseRecorder) (dto.Response, T) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *dto.ErrorInfo  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))

	var data T
	if len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, &data))
	}
	return dto.Response{Success: envelope.Success, Error: envelope.Error}, data
}
