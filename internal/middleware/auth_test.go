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
	"yoi_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newAPIRouter(t *testing.T) (*gin.Engine, *service.AccessService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	access := service.NewAccessService(repository.NewUserRepository(db))
	jwtCfg := &config.JWTConfig{Secret: testutil.JWTSecret, Cookie: "access_token"}

	r := gin.New()
	api := r.Group("/api", AuthMiddleware(jwtCfg))
	api.GET("/me", RequireApproved(access), func(c *gin.Context) {
		util.Success(c, gin.H{"id": GetIdentity(c).UserID})
	})
	api.GET("/admin", ReviewerOnly(access), func(c *gin.Context) {
		util.Success(c, nil)
	})
	return r, access
}

func serve(r *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, access := newAPIRouter(t)
	db := access.UserRepo.DB
	student := testutil.CreateUser(t, db, "learner@example.com", model.Student, true)
	waiting := testutil.CreateUser(t, db, "new@example.com", model.Student, false)
	instructor := testutil.CreateUser(t, db, "guide@example.com", model.Instructor, false)

	bearer := func(id string) string { return "Bearer " + testutil.Token(t, id) }

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/api/me", "Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/api/me", "Token "+testutil.Token(t, student.ID)).Code)

	w := serve(r, "/api/me", bearer(student.ID))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), student.ID)

	w = serve(r, "/api/me", bearer(waiting.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), util.ErrNotApproved.Error())

	assert.Equal(t, http.StatusForbidden, serve(r, "/api/me", bearer("ghost")).Code)

	assert.Equal(t, http.StatusForbidden, serve(r, "/api/admin", bearer(student.ID)).Code)
	// 导师不需要审批
	assert.Equal(t, http.StatusOK, serve(r, "/api/admin", bearer(instructor.ID)).Code)
}

func TestAuthMiddlewareReadsCookie(t *testing.T) {
	r, access := newAPIRouter(t)
	student := testutil.CreateUser(t, access.UserRepo.DB, "learner@example.com", model.Student, true)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: testutil.Token(t, student.ID)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoleChangeTakesEffectImmediately(t *testing.T) {
	r, access := newAPIRouter(t)
	db := access.UserRepo.DB
	user := testutil.CreateUser(t, db, "guide@example.com", model.Instructor, true)
	auth := "Bearer " + testutil.Token(t, user.ID)

	assert.Equal(t, http.StatusOK, serve(r, "/api/admin", auth).Code)

	db.Model(user).Update("role", model.Student)
	assert.Equal(t, http.StatusForbidden, serve(r, "/api/admin", auth).Code)
}
