package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"yoi_portal_backend/internal/config"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/repository"
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	pending := &service.Identity{Role: model.Student, Approved: false}
	student := &service.Identity{Role: model.Student, Approved: true}
	instructor := &service.Identity{Role: model.Instructor}
	admin := &service.Identity{Role: model.Admin, Approved: true}

	tests := []struct {
		path     string
		identity *service.Identity
		want     string
	}{
		{"/", nil, ""},
		{"/login", nil, ""},
		{"/dashboard", nil, "/login"},
		{"/module/abc", nil, "/login"},
		{"/profile", nil, "/login"},
		{"/admin/users", nil, "/login"},
		{"/dashboard", pending, "/pending-approval"},
		{"/admin", pending, "/pending-approval"},
		{"/dashboard", student, ""},
		{"/module/abc/3", student, ""},
		{"/admin", student, "/dashboard"},
		{"/admin/submissions", student, "/dashboard"},
		{"/admin", instructor, ""},
		{"/admin/users", admin, ""},
		{"/pending-approval", nil, ""},
		{"/pending-approval", pending, ""},
		{"/pending-approval", student, "/dashboard"},
		{"/pending-approval", admin, "/dashboard"},
		{"/dashboardx", nil, ""},
		{"/administrator", student, ""},
	}
	for _, tt := range tests {
		role := "anonymous"
		if tt.identity != nil {
			role = string(tt.identity.Role)
		}
		t.Run(role+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultGatePrefixes.Decide(tt.path, tt.identity))
		})
	}
}

func TestAccessGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	access := service.NewAccessService(repository.NewUserRepository(db))
	jwtCfg := &config.JWTConfig{Secret: testutil.JWTSecret, Cookie: "access_token"}

	r := gin.New()
	pages := r.Group("", OptionalAuth(jwtCfg), AccessGate(access, DefaultGatePrefixes))
	pages.GET("/dashboard", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	pages.GET("/admin/*path", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	student := testutil.CreateUser(t, db, "learner@example.com", model.Student, true)
	waiting := testutil.CreateUser(t, db, "new@example.com", model.Student, false)

	tests := []struct {
		name     string
		path     string
		cookie   string
		status   int
		location string
	}{
		{"anonymous", "/dashboard", "", http.StatusFound, "/login"},
		{"bad token", "/dashboard", "not-a-jwt", http.StatusFound, "/login"},
		{"deleted user", "/dashboard", testutil.Token(t, "ghost"), http.StatusFound, "/login"},
		{"waiting", "/dashboard", testutil.Token(t, waiting.ID), http.StatusFound, "/pending-approval"},
		{"student", "/dashboard", testutil.Token(t, student.ID), http.StatusOK, ""},
		{"student admin", "/admin/users", testutil.Token(t, student.ID), http.StatusFound, "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}
