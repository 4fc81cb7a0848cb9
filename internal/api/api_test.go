package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"campus_identity/internal/credential"
	"campus_identity/internal/domain"
	"campus_identity/internal/middleware"
	"campus_identity/internal/service"
	"campus_identity/internal/store"
	"campus_identity/internal/testutil"
	"campus_identity/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret = "api-test-secret-0123456789abcdefgh"
	testIssuer = "campus-identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	repo   *store.Store
	mr     *miniredis.Miniredis
	tokens *utils.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := store.New(testutil.NewDB(t))
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hasher := credential.NewManager(bcrypt.MinCost, 4)
	tokens := utils.NewTokenService(testSecret, testIssuer, utils.DefaultTokenTTL)
	router := NewRouter(Deps{
		Repo:      repo,
		Registrar: service.NewRegistrar(repo, hasher, tokens),
		Accounts:  service.NewAccounts(repo, hasher, tokens),
		Directory: service.NewDirectory(repo),
		Tokens:    tokens,
		Throttle:  middleware.NewLoginThrottle(rdb, 3, 15*time.Minute),
		Redis:     rdb,
	})
	return &testServer{router: router, repo: repo, mr: mr, tokens: tokens}
}

type response struct {
	Code    int
	Header  http.Header
	Raw     string
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (s *testServer) call(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	resp := response{Code: w.Code, Header: w.Header(), Raw: w.Body.String()}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func decode[T any](t *testing.T, r response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Data, &v), string(r.Data))
	return v
}

type authData struct {
	User struct {
		ID                 uint   `json:"id"`
		Email              string `json:"email"`
		RegistrationNumber string `json:"registrationNumber"`
		Role               string `json:"role"`
		ProfilePicture     string `json:"profilePicture"`
	}     `json:"user"`
	Token string `json:"token"`
}

func studentBody(email, reg, roll string) map[string]any {
	return map[string]any{
		"name":               "Student " + reg,
		"email":              email,
		"registrationNumber": reg,
		"password":           "password123",
		"role":               "student",
		"department":         "Computer Science",
		"rollNumber":         roll,
		"batch":              "2022",
		"semester":           1,
		"courses":            []string{"CS101"},
	}
}

func teacherBody(email, reg, employeeID string) map[string]any {
	return map[string]any{
		"name":               "Teacher " + reg,
		"email":              email,
		"registrationNumber": reg,
		"password":           "password123",
		"role":               "teacher",
		"department":         "Mathematics",
		"employeeId":         employeeID,
		"designation":        "Associate Professor",
		"experience":         7,
		"isHOD":              true,
	}
}

func adminBody(email, reg string) map[string]any {
	return map[string]any{
		"name":               "Admin " + reg,
		"email":              email,
		"registrationNumber": reg,
		"password":           "password123",
		"role":               "admin",
		"department":         "Administration",
	}
}

func (s *testServer) register(t *testing.T, body map[string]any) authData {
	t.Helper()
	r := s.call(t, http.MethodPost, "/api/v1/auth/register", "", body)
	require.Equal(t, http.StatusCreated, r.Code, r.Raw)
	return decode[authData](t, r)
}

func TestRegisterStudentFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	// Fresh student
	r := s.call(t, http.MethodPost, "/api/v1/auth/register", "", studentBody("a@x.com", "R1", "RN1"))
	require.Equal(t, http.StatusCreated, r.Code, r.Raw)
	assert.True(t, r.Success)
	created := decode[authData](t, r)
	assert.Equal(t, "student", created.User.Role)
	assert.Equal(t, domain.DefaultProfilePicture, created.User.ProfilePicture)
	info, err := s.tokens.Verify(created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, info.UserID)
	assert.NotContains(t, r.Raw, "$2a$")
	assert.NotContains(t, r.Raw, "password")
	profile, err := s.repo.Profiles().FindStudentByUserID(ctx, created.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "RN1", profile.RollNumber)

	// Same payload again
	r = s.call(t, http.MethodPost, "/api/v1/auth/register", "", studentBody("a@x.com", "R1", "RN1"))
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.False(t, r.Success)
	assert.Contains(t, r.Message, "already exists")

	// New account, taken roll number: nothing is left behind
	r = s.call(t, http.MethodPost, "/api/v1/auth/register", "", studentBody("b@x.com", "R2", "RN1"))
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "roll number already exists", r.Message)
	_, err = s.repo.Users().FindActiveByIdentifier(ctx, "b@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegisterTeacherAndAdmin(t *testing.T) {
	s := newTestServer(t)

	teacher := s.register(t, teacherBody("t@x.com", "T1", "E1"))
	assert.Equal(t, "teacher", teacher.User.Role)

	r := s.call(t, http.MethodPost, "/api/v1/auth/register", "", teacherBody("t2@x.com", "T2", "E1"))
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "employee id already exists", r.Message)

	admin := s.register(t, adminBody("root@x.com", "A1"))
	assert.Equal(t, "admin", admin.User.Role)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		mutate func(b map[string]any)
		msg    string
	}{
		{"missing roll number", func(b map[string]any) { delete(b, "rollNumber") }, "rollNumber is required"},
		{"semester too high", func(b map[string]any) { b["semester"] = 11 }, "semester must be at most 10"},
		{"bad email", func(b map[string]any) { b["email"] = "nope" }, "email must be a valid email address"},
		{"short password", func(b map[string]any) { b["password"] = "abc" }, "password must be at least 8 characters"},
		{"unknown role", func(b map[string]any) { b["role"] = "dean" }, "role must be one of student teacher admin"},
		{"missing name", func(b map[string]any) { delete(b, "name") }, "name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := studentBody("v@x.com", "V1", "RNV")
			tt.mutate(body)
			r := s.call(t, http.MethodPost, "/api/v1/auth/register", "", body)
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.Equal(t, tt.msg, r.Message)
		})
	}

	body := teacherBody("t@x.com", "T1", "E1")
	body["designation"] = "Dean"
	r := s.call(t, http.MethodPost, "/api/v1/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Contains(t, r.Message, "designation must be one of")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request body")
}

func TestLoginByRegistrationNumber(t *testing.T) {
	s := newTestServer(t)
	created := s.register(t, studentBody("a@x.com", "R1", "RN1"))

	r := s.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "R1", "password": "password123"})
	require.Equal(t, http.StatusOK, r.Code, r.Raw)
	login := decode[authData](t, r)
	assert.Equal(t, created.User.ID, login.User.ID)
	assert.NotEmpty(t, login.Token)
	assert.NotContains(t, r.Raw, "$2a$")

	r = s.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "a@x.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, r.Code)

	r = s.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "R1", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	assert.Equal(t, "invalid credentials", r.Message)

	r = s.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "R1"})
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "password is required", r.Message)
}

func TestLoginLockout(t *testing.T) {
	s := newTestServer(t)
	s.register(t, adminBody("a@x.com", "A1"))
	bad := map[string]string{"identifier": "A1", "password": "wrong-password"}

	for i := 0; i < 3; i++ {
		r := s.call(t, http.MethodPost, "/api/v1/auth/login", "", bad)
		require.Equal(t, http.StatusUnauthorized, r.Code)
	}
	r := s.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "A1", "password": "password123"})
	assert.Equal(t, http.StatusTooManyRequests, r.Code)
	retry, err := strconv.Atoi(r.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retry, 0)

	s.mr.FastForward(16 * time.Minute)
	r = s.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "A1", "password": "password123"})
	assert.Equal(t, http.StatusOK, r.Code)
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	student := s.register(t, studentBody("s@x.com", "S1", "RN1"))
	teacher := s.register(t, teacherBody("t@x.com", "T1", "E1"))

	r := s.call(t, http.MethodGet, "/api/v1/auth/me", student.Token, nil)
	require.Equal(t, http.StatusOK, r.Code, r.Raw)
	me := decode[map[string]any](t, r)
	assert.Equal(t, "s@x.com", me["email"])
	assert.Equal(t, "RN1", me["rollNumber"])
	assert.EqualValues(t, 1, me["semester"])
	assert.NotContains(t, me, "employeeId")
	assert.NotContains(t, r.Raw, "$2a$")

	r = s.call(t, http.MethodGet, "/api/v1/auth/me", teacher.Token, nil)
	require.Equal(t, http.StatusOK, r.Code)
	me = decode[map[string]any](t, r)
	assert.Equal(t, "E1", me["employeeId"])
	assert.Equal(t, "Associate Professor", me["designation"])
	assert.Equal(t, true, me["isHOD"])

	r = s.call(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Code)
}

func TestMeOrphanIsNotFound(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	h, err := credential.NewManager(bcrypt.MinCost, 1).Hash(ctx, "password123")
	require.NoError(t, err)
	orphan := &domain.User{
		Name:               "Orphan",
		Email:              "o@x.com",
		RegistrationNumber: "O1",
		PasswordHash:       h,
		Role:               domain.RoleTeacher,
		Department:         "CS",
	}
	require.NoError(t, s.repo.Users().Create(ctx, orphan))
	tok, err := s.tokens.Issue(orphan.ID)
	require.NoError(t, err)

	r := s.call(t, http.MethodGet, "/api/v1/auth/me", tok, nil)
	assert.Equal(t, http.StatusNotFound, r.Code)
	assert.Equal(t, "profile not found", r.Message)

	r = s.call(t, http.MethodGet, "/api/v1/teacher/classes", tok, nil)
	assert.Equal(t, http.StatusNotFound, r.Code)
}

func TestUpdateMe(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, adminBody("a@x.com", "A1"))
	s.register(t, adminBody("taken@x.com", "A2"))

	r := s.call(t, http.MethodPatch, "/api/v1/auth/me", user.Token, map[string]string{"name": "Renamed", "profilePicture": "me.png"})
	require.Equal(t, http.StatusOK, r.Code, r.Raw)
	updated := decode[map[string]any](t, r)
	assert.Equal(t, "Renamed", updated["name"])
	assert.Equal(t, "me.png", updated["profilePicture"])
	assert.Equal(t, "a@x.com", updated["email"])

	r = s.call(t, http.MethodPatch, "/api/v1/auth/me", user.Token, map[string]string{"email": "taken@x.com"})
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "email already in use", r.Message)

	r = s.call(t, http.MethodPatch, "/api/v1/auth/me", user.Token, map[string]string{"email": "bad"})
	assert.Equal(t, http.StatusBadRequest, r.Code)

	// Password fields in the body are ignored.
	r = s.call(t, http.MethodPatch, "/api/v1/auth/me", user.Token, map[string]string{"password": "hijacked-pass"})
	require.Equal(t, http.StatusOK, r.Code)
	r = s.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "A1", "password": "password123"})
	assert.Equal(t, http.StatusOK, r.Code)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, studentBody("a@x.com", "R1", "RN1"))

	// Wrong current password changes nothing
	r := s.call(t, http.MethodPost, "/api/v1/auth/change-password", user.Token,
		map[string]string{"currentPassword": "not-the-password", "newPassword": "brand-new-pass"})
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	r = s.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "R1", "password": "password123"})
	require.Equal(t, http.StatusOK, r.Code)

	// A token from an hour ago, before the change below.
	old := jwt.NewWithClaims(jwt.SigningMethodHS256, utils.Claims{
		UserID: user.User.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	oldToken, err := old.SignedString([]byte(testSecret))
	require.NoError(t, err)

	r = s.call(t, http.MethodPost, "/api/v1/auth/change-password", user.Token,
		map[string]string{"currentPassword": "password123", "newPassword": "brand-new-pass"})
	require.Equal(t, http.StatusOK, r.Code, r.Raw)
	fresh := decode[map[string]string](t, r)["token"]
	require.NotEmpty(t, fresh)

	r = s.call(t, http.MethodGet, "/api/v1/auth/me", oldToken, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	r = s.call(t, http.MethodGet, "/api/v1/auth/me", fresh, nil)
	assert.Equal(t, http.StatusOK, r.Code)

	r = s.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "R1", "password": "brand-new-pass"})
	assert.Equal(t, http.StatusOK, r.Code)
}

func TestAdminUsers(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, adminBody("root@x.com", "A1"))
	student := s.register(t, studentBody("s@x.com", "S1", "RN1"))
	s.register(t, teacherBody("t@x.com", "T1", "E1"))

	r := s.call(t, http.MethodGet, "/api/v1/admin/users", student.Token, nil)
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = s.call(t, http.MethodGet, "/api/v1/admin/users?page=1&pageSize=2", admin.Token, nil)
	require.Equal(t, http.StatusOK, r.Code, r.Raw)
	list := decode[map[string]any](t, r)
	assert.EqualValues(t, 3, list["total"])
	assert.EqualValues(t, 2, list["totalPages"])
	assert.Equal(t, false, list["cached"])
	assert.Len(t, list["users"], 2)
	assert.NotContains(t, r.Raw, "$2a$")

	r = s.call(t, http.MethodGet, "/api/v1/admin/users?page=1&pageSize=2", admin.Token, nil)
	list = decode[map[string]any](t, r)
	assert.Equal(t, true, list["cached"])

	r = s.call(t, http.MethodDelete, "/api/v1/admin/users/"+strconv.Itoa(int(student.User.ID)), admin.Token, nil)
	require.Equal(t, http.StatusOK, r.Code, r.Raw)

	r = s.call(t, http.MethodGet, "/api/v1/admin/users?page=1&pageSize=2", admin.Token, nil)
	list = decode[map[string]any](t, r)
	assert.Equal(t, false, list["cached"])
	assert.EqualValues(t, 2, list["total"])

	// The deactivated user's token stops working and its claims stay taken.
	r = s.call(t, http.MethodGet, "/api/v1/auth/me", student.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	r = s.call(t, http.MethodPost, "/api/v1/auth/register", "", studentBody("s@x.com", "S9", "RN9"))
	assert.Equal(t, http.StatusBadRequest, r.Code)

	r = s.call(t, http.MethodDelete, "/api/v1/admin/users/9999", admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, r.Code)
	r = s.call(t, http.MethodDelete, "/api/v1/admin/users/abc", admin.Token, nil)
	assert.Equal(t, http.StatusBadRequest, r.Code)
}

func TestAdminUsersCacheFollowsWrites(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, adminBody("root@x.com", "A1"))
	student := s.register(t, studentBody("s@x.com", "S1", "RN1"))

	list := func() map[string]any {
		r := s.call(t, http.MethodGet, "/api/v1/admin/users", admin.Token, nil)
		require.Equal(t, http.StatusOK, r.Code, r.Raw)
		return decode[map[string]any](t, r)
	}
	assert.Equal(t, false, list()["cached"])
	assert.Equal(t, true, list()["cached"])

	// A new account drops the cached pages
	s.register(t, teacherBody("t@x.com", "T1", "E1"))
	page := list()
	assert.Equal(t, false, page["cached"])
	assert.EqualValues(t, 3, page["total"])
	assert.Equal(t, true, list()["cached"])

	// So does a profile edit
	r := s.call(t, http.MethodPatch, "/api/v1/auth/me", student.Token, map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusOK, r.Code, r.Raw)
	page = list()
	assert.Equal(t, false, page["cached"])
	var names []any
	for _, u := range page["users"].([]any) {
		names = append(names, u.(map[string]any)["name"])
	}
	assert.Contains(t, names, "Renamed")
}

func TestRegisterAdminRejectsProfileFields(t *testing.T) {
	s := newTestServer(t)

	body := adminBody("root@x.com", "A1")
	body["rollNumber"] = "RN9"
	r := s.call(t, http.MethodPost, "/api/v1/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "admin accounts do not take profile fields", r.Message)

	body = adminBody("root@x.com", "A1")
	body["employeeId"] = "E9"
	r = s.call(t, http.MethodPost, "/api/v1/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, r.Code)

	// Explicit nulls carry nothing and are accepted
	body = adminBody("root@x.com", "A1")
	body["courses"] = nil
	s.register(t, body)
}

func TestPortals(t *testing.T) {
	s := newTestServer(t)
	student := s.register(t, studentBody("s@x.com", "S1", "RN1"))
	teacher := s.register(t, teacherBody("t@x.com", "T1", "E1"))

	r := s.call(t, http.MethodGet, "/api/v1/student/attendance", student.Token, nil)
	require.Equal(t, http.StatusOK, r.Code, r.Raw)
	assert.Equal(t, "RN1", decode[map[string]any](t, r)["rollNumber"])

	r = s.call(t, http.MethodGet, "/api/v1/student/attendance", teacher.Token, nil)
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = s.call(t, http.MethodGet, "/api/v1/teacher/classes", teacher.Token, nil)
	require.Equal(t, http.StatusOK, r.Code, r.Raw)
	assert.Equal(t, "E1", decode[map[string]any](t, r)["employeeId"])

	r = s.call(t, http.MethodGet, "/api/v1/teacher/classes", student.Token, nil)
	assert.Equal(t, http.StatusForbidden, r.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	r := s.call(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, r.Code)

	s.mr.Close()
	r = s.call(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, r.Code)
	assert.Equal(t, "unavailable", decode[map[string]string](t, r)["redis"])
}
