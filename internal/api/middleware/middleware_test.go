package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	endpoint string
	status   int
}

type fakeRecorder struct {
	requests []recordedRequest
}

func (r *fakeRecorder) RecordAPIRequest(_ context.Context, endpoint string, statusCode int, _ time.Duration) {
	r.requests = append(r.requests, recordedRequest{endpoint: endpoint, status: statusCode})
}

func TestRequestTracking(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := &fakeRecorder{}
	router := gin.New()
	router.Use(RequestTracking(recorder))
	router.GET("/projects/:id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	tests := []struct {
		name       string
		path       string
		header     string
		keepHeader bool
		wantStatus int
		wantRoute  string
	}{
		{name: "generates id", path: "/projects/1", wantStatus: http.StatusOK, wantRoute: "/projects/:id"},
		{name: "keeps valid id", path: "/projects/2", header: "1b4e28ba-2fa1-11d2-883f-0016d3cca427", keepHeader: true, wantStatus: http.StatusOK, wantRoute: "/projects/:id"},
		{name: "replaces junk id", path: "/projects/3", header: "not-a-uuid", wantStatus: http.StatusOK, wantRoute: "/projects/:id"},
		{name: "unmatched route", path: "/nope", wantStatus: http.StatusNotFound, wantRoute: "unmatched"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(requestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			id := w.Header().Get(requestIDHeader)
			require.NotEmpty(t, id)
			if tt.keepHeader {
				assert.Equal(t, tt.header, id)
			} else {
				assert.NotEqual(t, tt.header, id)
			}

			require.Len(t, recorder.requests, i+1)
			assert.Equal(t, recordedRequest{endpoint: tt.wantRoute, status: tt.wantStatus}, recorder.requests[i])
		})
	}
}

func TestRecoverWithSentry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestTracking(nil), RecoverWithSentry())
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, ParseOrigins(" https://a.example, ,https://b.example "))
	assert.Empty(t, ParseOrigins(""))
}
