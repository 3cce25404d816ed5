package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zeroai/internal/classifier"
	"zeroai/internal/config"
	"zeroai/internal/models"
	"zeroai/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "server-test-secret-with-enough-entropy"

type testEnv struct {
	server *Server
	app    *fiber.App
	posts  *testutil.PostRepoStub
	users  *testutil.UserRepoStub
	cls    *testutil.ClassifierStub
	host   *testutil.MediaHostStub
	redis  *miniredis.Miniredis
	rdb    *redis.Client
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		JWTSecret:            testJWTSecret,
		Port:                 "0",
		Env:                  "test",
		OTelServiceName:      "zeroai-test",
		TimelineCacheTTL:     time.Minute,
		ClassifierTimeout:    5 * time.Second,
		ClassifierPolicy:     config.ClassifierFailClosed,
		MediaHostTimeout:     5 * time.Second,
		ImageMaxUploadSizeMB: 1,
		UploadTmpDir:         t.TempDir(),
		AuthRateLimit:        100,
		PostRateLimit:        100,
		RateLimitWindow:      time.Minute,
		GlobalRequestsPerMin: 10000,
	}
}

// newTestEnv builds a server over in-memory stores. withRedis enables the cache and timeline stream.
func newTestEnv(t *testing.T, withRedis bool) *testEnv {
	t.Helper()
	env := &testEnv{
		posts: testutil.NewPostRepoStub(),
		users: testutil.NewUserRepoStub(),
		cls:   &testutil.ClassifierStub{Scores: classifier.Scores{AI: 0.1, Human: 0.9}},
		host:  &testutil.MediaHostStub{URL: "https://res.cloudinary.com/demo/image/upload/v1/a.png"},
	}

	deps := Deps{
		Posts:      env.posts,
		Users:      env.users,
		Classifier: env.cls,
		MediaHost:  env.host,
	}
	if withRedis {
		env.redis = miniredis.RunT(t)
		env.rdb = redis.NewClient(&redis.Options{Addr: env.redis.Addr()})
		t.Cleanup(func() { _ = env.rdb.Close() })
		deps.Redis = env.rdb
	}

	cfg := testConfig(t)
	s, err := NewServer(cfg, deps)
	require.NoError(t, err)
	env.server = s
	env.app = s.NewApp()
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func jsonRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, image []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (e *testEnv) seedUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, e.users.Create(t.Context(), u))
	return u
}

func decodeError(t *testing.T, body []byte) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	return resp
}

func decodeJSON(resp *http.Response, dest any) error {
	return json.NewDecoder(resp.Body).Decode(dest)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
