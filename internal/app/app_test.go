package app

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"yoi_portal_backend/internal/config"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: gin.TestMode},
		JWT:       config.JWTConfig{Secret: testutil.JWTSecret, Cookie: "access_token"},
		Storage:   config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		RateLimit: config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1},
		Upload: config.UploadConfig{
			MaxAssignmentBytes: 1 << 20,
			MaxResponseBytes:   1 << 20,
			MaxVoiceBytes:      1 << 20,
		MaxAvatarBytes:     1 << 20,
			DefaultMinSeconds:  60,
			DefaultMaxSeconds:  120,
		},
	}
}

type testServer struct {
	app *App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a := New(testConfig(t), testutil.NewDB(t), nil)
	t.Cleanup(a.services.notification.Wait)
	return &testServer{app: a}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+testutil.Token(t, userID))
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

// upload 以 multipart 表单提交 mp4 内容
func (s *testServer) upload(t *testing.T, path, userID string, seconds string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	data := make([]byte, 4096)
	copy(data, []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00, 'i', 's', 'o', 'm', 'm', 'p', '4', '2'})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "practice.mp4")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("duration_seconds", seconds))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, userID))
	return s.serve(t, req)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","components":{"database":"up"}}`, string(env.Data))
}

func TestPageRedirects(t *testing.T) {
	s := newTestServer(t)
	db := s.app.DB
	waiting := testutil.CreateUser(t, db, "new@example.com", model.Student, false)

	w, _ := s.do(t, http.MethodGet, "/dashboard", "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w, _ = s.do(t, http.MethodGet, "/module/abc", waiting.ID, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/pending-approval", w.Header().Get("Location"))

	w, env := s.do(t, http.MethodGet, "/pending-approval", waiting.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"path":"/pending-approval"}`, string(env.Data))

	w, env = s.do(t, http.MethodGet, "/api/access/route?path=/admin/users", waiting.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"path":"/admin/users","allowed":false,"redirect":"/pending-approval"}`, string(env.Data))
}

func TestLearnerFlowThroughReview(t *testing.T) {
	s := newTestServer(t)
	db := s.app.DB
	learner := testutil.CreateUser(t, db, "learner@example.com", model.Student, true)
	guide := testutil.CreateUser(t, db, "guide@example.com", model.Instructor, true)
	m, seqs := testutil.CreateModule(t, db, "Breath", 1,
		testutil.Plain("Intro"), testutil.Upload("Practice"), testutil.Plain("Integration"))
	base := "/api/modules/" + m.ID + "/sequences/"

	w, _ := s.do(t, http.MethodPost, base+seqs[2].ID+"/complete", learner.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, base+seqs[0].ID+"/complete", learner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 上传序列不能直接完成
	w, _ = s.do(t, http.MethodPost, base+seqs[1].ID+"/complete", learner.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.upload(t, base+seqs[1].ID+"/submissions", learner.ID, "30")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "shorter")

	w, env = s.upload(t, base+seqs[1].ID+"/submissions", learner.ID, "90")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var submitted struct {
		Submission struct {
			ID string `json:"id"`
		} `json:"submission"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &submitted))
	require.NotEmpty(t, submitted.Submission.ID)

	// 学员不能访问管理接口
	w, _ = s.do(t, http.MethodGet, "/api/admin/submissions", learner.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/admin/submissions?status=bogus", guide.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/admin/submissions", guide.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), submitted.Submission.ID)

	unlock := gin.H{
		"user_id":            learner.ID,
		"module_id":          m.ID,
		"sequence_id":        seqs[1].ID,
		"submission_id":      submitted.Submission.ID,
		"response_video_url": "https://cdn.example.com/r.mp4",
		"message":            "Lovely",
	}

	w, _ = s.do(t, http.MethodPost, "/api/admin/unlock", guide.ID, gin.H{"user_id": learner.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	spoofed := gin.H{}
	for k, v := range unlock {
		spoofed[k] = v
	}
	spoofed["instructor_id"] = "someone-else"
	w, _ = s.do(t, http.MethodPost, "/api/admin/unlock", guide.ID, spoofed)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/admin/unlock", guide.ID, unlock)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		Success        bool    `json:"success"`
		NextSequenceID *string `json:"next_sequence_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Success)
	require.NotNil(t, result.NextSequenceID)
	assert.Equal(t, seqs[2].ID, *result.NextSequenceID)

	w, env = s.do(t, http.MethodGet, "/api/modules/"+m.ID, learner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"completedCount":2`)

	w, env = s.do(t, http.MethodGet, base+seqs[1].ID+"/response", learner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Lovely")
}

func TestRateLimitUsesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.RateLimit = config.RateLimitConfig{MaxRequests: 1, WindowMinutes: 60}
	a := New(cfg, testutil.NewDB(t), nil)
	s := &testServer{app: a}

	w, _ := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, http.StatusTooManyRequests, env.Code)
	assert.Equal(t, "too many requests", env.Message)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	learner := testutil.CreateUser(t, s.app.DB, "learner@example.com", model.Student, true)

	w, env := s.do(t, http.MethodPatch, "/api/profile", learner.ID, gin.H{"bio": "Evening sitter"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"bio":"Evening sitter"`)

	w, _ = s.do(t, http.MethodPatch, "/api/profile", learner.ID, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	image := make([]byte, 1024)
	copy(image, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R'})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("full_name", "Ada Lovelace"))
	fw, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = fw.Write(image)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/profile", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, learner.ID))
	w, env = s.serve(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var profile model.User
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "Ada Lovelace", profile.FullName)
	assert.Equal(t, "Evening sitter", profile.Bio)
	assert.Contains(t, profile.AvatarURL, "/uploads/avatars/"+learner.ID+"/")

	w, env = s.do(t, http.MethodGet, "/api/profile", learner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), profile.AvatarURL)
}
