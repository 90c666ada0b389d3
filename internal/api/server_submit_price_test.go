package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xonn9/Unilag-Price-saver/internal/config"
	"github.com/xonn9/Unilag-Price-saver/internal/engine"
	"github.com/xonn9/Unilag-Price-saver/internal/model"
	"github.com/xonn9/Unilag-Price-saver/internal/pkg/dedup"
	"github.com/xonn9/Unilag-Price-saver/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	m.Run()
}

type mockPriceStore struct {
	createFunc  func(ctx context.Context, rec *model.PriceRecord) error
	createCalls int
}

func (m *mockPriceStore) CreatePending(ctx context.Context, rec *model.PriceRecord) error {
	m.createCalls++
	return m.createFunc(ctx, rec)
}

type mockDeduper struct {
	dupFunc     func(ctx context.Context, sub dedup.Submission) (bool, error)
	forgetCalls int
}

func (m *mockDeduper) IsDuplicate(ctx context.Context, sub dedup.Submission) (bool, error) {
	if m.dupFunc != nil {
		return m.dupFunc(ctx, sub)
	}
	return false, nil
}

func (m *mockDeduper) Forget(ctx context.Context, sub dedup.Submission) error {
	m.forgetCalls++
	return nil
}

type mockLimiter struct {
	allowed bool
}

func (m *mockLimiter) Allow(ctx context.Context, userID uint) (bool, error) {
	return m.allowed, nil
}

func newSubmitServer(prices *mockPriceStore, deduper *mockDeduper, limiter *mockLimiter) *Server {
	return &Server{
		cfg:     &config.Config{App: config.AppConfig{RewardAmount: 50}},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:   engine.NewRecordStore(),
		prices:  prices,
		deduper: deduper,
		limiter: limiter,
	}
}

func submitRoute(s *Server) *gin.Engine {
	r := gin.New()
	r.POST("/prices", func(c *gin.Context) {
		c.Set("userID", uint(1))
		c.Set("role", "student")
		s.handleSubmitPrice(c)
	})
	return r
}

func TestSubmitPrice_Normal(t *testing.T) {
	prices := &mockPriceStore{
		createFunc: func(ctx context.Context, rec *model.PriceRecord) error {
			rec.ID = 1
			return nil
		},
	}
	s := newSubmitServer(prices, &mockDeduper{}, &mockLimiter{allowed: true})
	r := submitRoute(s)

	body := submitPriceRequest{
		CategoryID: 1,
		Name:       "Rice",
		Price:      1200,
		Retailer:   "Mama Nkechi",
		Location:   "Moremi Hall",
	}
	payload, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/prices", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	if prices.createCalls != 1 {
		t.Fatalf("expected create to be called")
	}

	var resp submitPriceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != model.StatusPending {
		t.Fatalf("expected pending status, got %q", resp.Status)
	}
}

func TestSubmitPrice_Deduplicated(t *testing.T) {
	prices := &mockPriceStore{
		createFunc: func(ctx context.Context, rec *model.PriceRecord) error { return nil },
	}
	deduper := &mockDeduper{
		dupFunc: func(ctx context.Context, sub dedup.Submission) (bool, error) { return true, nil },
	}
	s := newSubmitServer(prices, deduper, &mockLimiter{allowed: true})
	r := submitRoute(s)

	body := submitPriceRequest{CategoryID: 1, Name: "Rice", Price: 1200}
	payload, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/prices", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if prices.createCalls != 0 {
		t.Fatalf("expected no create on dedup")
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("skipped_duplicate")) {
		t.Fatalf("expected skipped_duplicate in response body")
	}
}

func TestSubmitPrice_RateLimited(t *testing.T) {
	prices := &mockPriceStore{
		createFunc: func(ctx context.Context, rec *model.PriceRecord) error { return nil },
	}
	s := newSubmitServer(prices, &mockDeduper{}, &mockLimiter{allowed: false})
	r := submitRoute(s)

	body := submitPriceRequest{CategoryID: 1, Name: "Rice", Price: 1200}
	payload, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/prices", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if prices.createCalls != 0 {
		t.Fatalf("expected no create when rate limited")
	}
}

func TestSubmitPrice_InvalidBody(t *testing.T) {
	prices := &mockPriceStore{
		createFunc: func(ctx context.Context, rec *model.PriceRecord) error { return nil },
	}
	s := newSubmitServer(prices, &mockDeduper{}, &mockLimiter{allowed: true})
	r := submitRoute(s)

	req := httptest.NewRequest(http.MethodPost, "/prices", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSubmitPrice_NegativePrice(t *testing.T) {
	prices := &mockPriceStore{
		createFunc: func(ctx context.Context, rec *model.PriceRecord) error { return nil },
	}
	s := newSubmitServer(prices, &mockDeduper{}, &mockLimiter{allowed: true})
	r := submitRoute(s)

	body := submitPriceRequest{CategoryID: 1, Name: "Rice", Price: -5}
	payload, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/prices", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if prices.createCalls != 0 {
		t.Fatalf("expected no create on invalid price")
	}
}
