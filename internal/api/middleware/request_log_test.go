package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newLogCapture() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, nil)), buf
}

func TestRequestLogger_IncludesAuthenticatedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, buf := newLogCapture()

	r := gin.New()
	r.Use(RequestLogger(logger))
	r.GET("/prices", func(c *gin.Context) {
		c.Set("userID", uint(7))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/prices", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := buf.String()
	if !strings.Contains(out, "user_id=7") {
		t.Fatalf("expected user_id in log, got %q", out)
	}
	if !strings.Contains(out, "status=200") || !strings.Contains(out, "path=/prices") {
		t.Fatalf("expected request metadata in log, got %q", out)
	}
	if !strings.Contains(out, "level=INFO") {
		t.Fatalf("expected info level for 200, got %q", out)
	}
}

func TestRequestLogger_WarnsOnServerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, buf := newLogCapture()

	r := gin.New()
	r.Use(RequestLogger(logger))
	r.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := buf.String()
	if !strings.Contains(out, "level=WARN") {
		t.Fatalf("expected warn level for 500, got %q", out)
	}
	if !strings.Contains(out, "user_id=0") {
		t.Fatalf("expected zero user_id for unauthenticated request, got %q", out)
	}
}
