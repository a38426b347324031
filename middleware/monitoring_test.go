package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMonitorMiddlewareUsesRouteTemplate(t *testing.T) {
	InitPrometheus()
	InitPrometheus()

	r := mux.NewRouter()
	r.Use(MonitorMiddleware)
	r.HandleFunc("/habits/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}).Methods(http.MethodGet)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/habits/{id}", "GET", "403"))
	rejections := testutil.ToFloat64(authRejections.WithLabelValues("403_forbidden"))

	for _, id := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/habits/"+id, nil))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/habits/{id}", "GET", "403")))
	assert.Equal(t, rejections+2, testutil.ToFloat64(authRejections.WithLabelValues("403_forbidden")))
}

func TestBasicAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name       string
		user, pass string
		reqUser    string
		reqPass    string
		setAuth    bool
		status     int
	}{
		{"valid", "admin", "secret", "admin", "secret", true, http.StatusOK},
		{"wrong password", "admin", "secret", "admin", "nope", true, http.StatusUnauthorized},
		{"no credentials", "admin", "secret", "", "", false, http.StatusUnauthorized},
		{"not configured", "", "", "", "", true, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.reqUser, tt.reqPass)
			}
			rr := httptest.NewRecorder()
			BasicAuthMiddleware(tt.user, tt.pass)(ok).ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}
