package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-roster-api/internal/models"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type stubValidator struct {
	tokens map[string]string
}

func (s stubValidator) ValidateToken(token string) (*models.ProfessorClaims, error) {
	if id, ok := s.tokens[token]; ok {
		return &models.ProfessorClaims{ProfessorID: id}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func protectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(stubValidator{tokens: map[string]string{"good": "prof-1"}}))
	router.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, ProfessorID(c))
	})
	return router
}

func TestJWTAcceptsBearerHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()

	protectedRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prof-1", rec.Body.String())
}

func TestJWTAcceptsQueryTokenForStreams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me?access_token=good", nil)
	rec := httptest.NewRecorder()

	protectedRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prof-1", rec.Body.String())
}

func TestJWTRejects(t *testing.T) {
	cases := map[string]string{
		"missing":   "",
		"malformed": "Token good",
		"invalid":   "Bearer bad",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()

			protectedRouter().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), appErrors.ErrUnauthorized.Code)
		})
	}
}

type recordedRequest struct {
	method, path string
	status       int
}

type recordingObserver struct {
	requests []recordedRequest
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.requests = append(r.requests, recordedRequest{method: method, path: path, status: status})
}

func TestMetricsSkipsEventStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observed := &recordingObserver{}
	router := gin.New()
	router.Use(Metrics(observed))
	router.GET("/subjects/:code", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/stream", func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Status(http.StatusOK)
	})

	for _, path := range []string{"/subjects/CS101", "/stream", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, observed.requests, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/subjects/:code", http.StatusNoContent}, observed.requests[0])
	assert.Equal(t, "unmatched", observed.requests[1].path)
}

func TestAuditLogsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(ContextProfessorKey, "prof-1"); c.Next() })
	router.DELETE("/subjects/:code", Audit(zap.New(core), "subject.delete"), func(c *gin.Context) {
		if c.Param("code") == "LOCKED" {
			c.Status(http.StatusConflict)
			return
		}
		c.Status(http.StatusNoContent)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/subjects/CS101", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/subjects/LOCKED", nil))

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "subject.delete", fields["action"])
	assert.Equal(t, "prof-1", fields["professor_id"])
	assert.Equal(t, "CS101", fields["subject"])
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetMeta(c, "version", int64(3))
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, int64(3), meta["version"])
	assert.Contains(t, meta, "processing_time_ms")
}
