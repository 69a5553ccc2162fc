package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func keyedRouter(key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireKey(key))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequireKey(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		query  string
		want   int
	}{
		{"disabled when unconfigured", "", "", "", http.StatusOK},
		{"missing key", "secret", "", "", http.StatusUnauthorized},
		{"wrong header key", "secret", "nope", "", http.StatusForbidden},
		{"correct header key", "secret", "secret", "", http.StatusOK},
		{"correct query key", "secret", "", "secret", http.StatusOK},
		{"wrong query key", "secret", "", "nope", http.StatusForbidden},
		{"header wins over query", "secret", "secret", "ignored", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := keyedRouter(tt.key)

			url := "/ping"
			if tt.query != "" {
				url += "?api_key=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d; want %d", w.Code, tt.want)
			}
		})
	}
}
