package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"ttrac_backend/internal/config"
	"ttrac_backend/internal/model"
	"ttrac_backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "debug"},
		JWT:     config.JWTConfig{Secret: "router-test-secret", ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Notifications: config.NotificationsConfig{
			DummyKeywords: config.DefaultDummyKeywords,
		},
	}

	a := &App{Config: cfg, DB: db}
	repos := a.initRepositories(db, nil, cfg)
	s := a.initServices(repos, cfg, nil)
	t.Cleanup(s.hub.Stop)
	c := a.initControllers(s, db, nil)

	router := gin.New()
	a.registerRoutes(router, c, repos, cfg)
	return &testServer{t: t, router: router}
}

func (s *testServer) send(req *http.Request, token string) (int, apiResponse) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func (s *testServer) do(method, path, token string, body interface{}) (int, apiResponse) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.send(req, token)
}

// login 注册并登录，返回 token 和用户 ID
func (s *testServer) login(name, email string, role model.UserRole) (string, uint) {
	s.t.Helper()
	code, resp := s.do(http.MethodPost, "/api/register", "", gin.H{
		"name": name, "email": email, "password": "correct horse", "role": role,
	})
	require.Equal(s.t, http.StatusCreated, code, resp.Message)

	code, resp = s.do(http.MethodPost, "/api/login", "", gin.H{"email": email, "password": "correct horse"})
	require.Equal(s.t, http.StatusOK, code, resp.Message)
	var data struct {
		Token string        `json:"token"`
		User  model.Profile `json:"user"`
	}
	require.NoError(s.t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token, data.User.ID
}

type notificationList struct {
	Items       []model.Notification `json:"items"`
	Total       int                  `json:"total"`
	UnreadCount int                  `json:"unreadCount"`
}

func (s *testServer) inbox(token string) notificationList {
	s.t.Helper()
	code, resp := s.do(http.MethodGet, "/api/notifications", token, nil)
	require.Equal(s.t, http.StatusOK, code, resp.Message)
	var list notificationList
	require.NoError(s.t, json.Unmarshal(resp.Data, &list))
	return list
}

func TestRouter_PublicAndAuth(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/api/no-such-route", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodPost, "/api/register", "", gin.H{"name": "x", "email": "x@ttrac.edu", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodGet, "/api/notifications", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	_, _ = s.login("Ada", "ada@ttrac.edu", model.Student)
	code, _ = s.do(http.MethodPost, "/api/login", "", gin.H{"email": "ada@ttrac.edu", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_EnrollmentNotificationFlow(t *testing.T) {
	s := newTestServer(t)
	facultyToken, _ := s.login("Prof. Turing", "turing@ttrac.edu", model.Faculty)
	studentToken, _ := s.login("Joan", "joan@ttrac.edu", model.Student)

	code, resp := s.do(http.MethodPost, "/api/faculty/courses", facultyToken, gin.H{"code": "CS101", "title": "Computability"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var course model.Course
	require.NoError(t, json.Unmarshal(resp.Data, &course))

	code, _ = s.do(http.MethodPost, "/api/faculty/courses", studentToken, gin.H{"code": "CS102", "title": "Nope"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.do(http.MethodPost, fmt.Sprintf("/api/courses/%d/enroll", course.ID), studentToken, nil)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var enrollment model.Enrollment
	require.NoError(t, json.Unmarshal(resp.Data, &enrollment))

	code, _ = s.do(http.MethodPost, fmt.Sprintf("/api/courses/%d/enroll", course.ID), studentToken, nil)
	assert.Equal(t, http.StatusConflict, code)

	inbox := s.inbox(facultyToken)
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, "Enrollment request", inbox.Items[0].Title)
	assert.Equal(t, 1, inbox.UnreadCount)

	code, resp = s.do(http.MethodPost, fmt.Sprintf("/api/faculty/enrollments/%d/approve", enrollment.ID), facultyToken, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, _ = s.do(http.MethodPost, fmt.Sprintf("/api/faculty/enrollments/%d/decline", enrollment.ID), facultyToken, nil)
	assert.Equal(t, http.StatusConflict, code)

	studentInbox := s.inbox(studentToken)
	require.Len(t, studentInbox.Items, 1)
	assert.Equal(t, "Enrollment approved", studentInbox.Items[0].Title)

	// 上传资料后已选课学生收到通知
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Syllabus"))
	part, err := mw.CreateFormFile("file", "syllabus.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Week 1: Turing machines\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/faculty/courses/%d/materials", course.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, resp = s.send(req, facultyToken)
	require.Equal(t, http.StatusCreated, code, resp.Message)

	code, resp = s.do(http.MethodGet, fmt.Sprintf("/api/courses/%d/materials", course.ID), studentToken, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var materials []model.CourseMaterial
	require.NoError(t, json.Unmarshal(resp.Data, &materials))
	require.Len(t, materials, 1)
	assert.Equal(t, "Syllabus", materials[0].Title)

	studentInbox = s.inbox(studentToken)
	assert.Equal(t, 2, studentInbox.UnreadCount)
}

func TestRouter_NotificationEndpoints(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login("Joan", "joan@ttrac.edu", model.Student)

	code, resp := s.do(http.MethodPost, "/api/notifications", token, gin.H{"title": "Read chapter 3"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var created model.Notification
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, model.OriginManual, created.Origin)

	code, _ = s.do(http.MethodPost, "/api/notifications", token, gin.H{"title": "Seeded", "origin": "seed"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(http.MethodPost, "/api/notifications", token, gin.H{"title": "Read chapter 3"})
	require.Equal(t, http.StatusCreated, code)

	inbox := s.inbox(token)
	require.Equal(t, 1, inbox.Total, "seed data hidden and duplicates collapsed")
	assert.Equal(t, "Read chapter 3", inbox.Items[0].Title)

	code, resp = s.do(http.MethodPatch, "/api/notifications/"+inbox.Items[0].ID+"/read", token, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = s.do(http.MethodGet, "/api/notifications/unread-count", token, nil)
	require.Equal(t, http.StatusOK, code)
	var unread struct {
		UnreadCount int `json:"unreadCount"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &unread))
	assert.Zero(t, unread.UnreadCount, "the hidden duplicate is not counted")

	code, _ = s.do(http.MethodDelete, "/api/notifications/does-not-exist", token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodPost, "/api/notifications/read-all", token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodDelete, "/api/notifications", token, nil)
	require.Equal(t, http.StatusOK, code)
	var cleared struct {
		Deleted int `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &cleared))
	assert.Equal(t, 3, cleared.Deleted)
	assert.Zero(t, s.inbox(token).Total)

	code, _ = s.do(http.MethodPost, "/api/faculty/notifications/generate", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRouter_FacultyGenerate(t *testing.T) {
	s := newTestServer(t)
	facultyToken, _ := s.login("Prof. Turing", "turing@ttrac.edu", model.Faculty)

	code, resp := s.do(http.MethodPost, "/api/faculty/notifications/generate", facultyToken, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var res struct {
		Submissions int `json:"submissions"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	assert.Zero(t, res.Submissions)
}
