package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/dukasync/storesync/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenParserStub struct {
	subject string
	err     error
}

func (s tokenParserStub) ParseToken(token string) (string, error) {
	return s.subject, s.err
}

func TestAuthRequired(t *testing.T) {
	router := gin.New()
	router.Use(AuthRequired(tokenParserStub{}))
	router.GET("/", func(c *gin.Context) {})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}

	router = gin.New()
	router.Use(AuthRequired(tokenParserStub{err: pkgAuth.ErrInvalidToken}))
	router.GET("/", func(c *gin.Context) {})
	resp = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", resp.Code)
	}

	router = gin.New()
	router.Use(AuthRequired(tokenParserStub{subject: "admin"}))
	router.GET("/", func(c *gin.Context) {
		subject, _ := c.Get(AdminSubjectContextKey)
		if subject != "admin" {
			t.Fatalf("unexpected subject %v", subject)
		}
		c.Status(http.StatusOK)
	})
	resp = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", resp.Code)
	}
}

func TestAuthRequiredReadsCookie(t *testing.T) {
	router := gin.New()
	router.Use(AuthRequired(tokenParserStub{subject: "admin"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: "good"})
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with cookie token, got %d", resp.Code)
	}
}

func TestDecompressRequest(t *testing.T) {
	router := gin.New()
	router.Use(DecompressRequest())
	router.POST("/", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			t.Fatalf("read body failed: %v", err)
		}
		if string(body) != "payload" {
			t.Fatalf("unexpected body %q", body)
		}
		c.Status(http.StatusOK)
	})

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, _ = gw.Write([]byte("payload"))
	_ = gw.Close()

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestDecompressRequestRejectsBadPayload(t *testing.T) {
	router := gin.New()
	router.Use(DecompressRequest())
	router.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("not gzip")))
	req.Header.Set("Content-Encoding", "gzip")
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for broken gzip, got %d", resp.Code)
	}
}
