package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"recipe_api/internal/cache"
	"recipe_api/internal/config"
	"recipe_api/internal/db"
	"recipe_api/internal/domain"
	"recipe_api/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret   = "test-secret"
	testEmail    = "test@example.com"
	testPassword = "password! ."
	testName     = "Test name"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// memoryImages is an in-memory ImageStore
type memoryImages struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryImages() *memoryImages {
	return &memoryImages{objects: map[string][]byte{}}
}

func (m *memoryImages) Save(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryImages) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryImages) URL(key string) string {
	return "https://images.example/" + key
}

func (m *memoryImages) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	images *memoryImages
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store, err := cache.NewLRUCache(128)
	require.NoError(t, err)
	images := newMemoryImages()
	cfg := &config.Config{
		DBDriver:  config.DriverSQLite,
		JWTSecret: testSecret,
		JWTTTL:    time.Hour,
		CacheTTL:  time.Minute,
		MediaURL:  "/media/",
	}
	router := NewRouter(Deps{Config: cfg, DB: database, Cache: store, Images: images})
	return &testEnv{t: t, db: database, router: router, images: images}
}

func (e *testEnv) createUser(email, password, name string) *domain.User {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(e.t, err)
	user := &domain.User{Email: domain.NormalizeEmail(email), Name: name, Password: string(hash)}
	require.NoError(e.t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) token(user *domain.User) string {
	e.t.Helper()
	token, err := utils.GenerateJWT(user.ID, testSecret, time.Hour)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) createIngredient(user *domain.User, name string) domain.Ingredient {
	e.t.Helper()
	ing := domain.Ingredient{Label: domain.Label{Name: name, UserID: user.ID}}
	require.NoError(e.t, e.db.Omit("User").Create(&ing).Error)
	return ing
}

func (e *testEnv) createTag(user *domain.User, name string) domain.Tag {
	e.t.Helper()
	tag := domain.Tag{Label: domain.Label{Name: name, UserID: user.ID}}
	require.NoError(e.t, e.db.Omit("User").Create(&tag).Error)
	return tag
}

// createRecipe stores a recipe with sensible defaults and the given relations
func (e *testEnv) createRecipe(user *domain.User, title string, ingredients []domain.Ingredient, tags []domain.Tag) domain.Recipe {
	e.t.Helper()
	recipe := domain.Recipe{UserID: user.ID, Title: title, TimeMinutes: 10, Price: 500}
	require.NoError(e.t, e.db.Omit("Ingredients", "Tags").Create(&recipe).Error)
	if len(ingredients) > 0 {
		require.NoError(e.t, e.db.Model(&recipe).Omit("Ingredients.*").Association("Ingredients").Append(ingredients))
	}
	if len(tags) > 0 {
		require.NoError(e.t, e.db.Model(&recipe).Omit("Tags.*").Association("Tags").Append(tags))
	}
	return recipe
}

// do sends a JSON request; token may be empty for anonymous calls
func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// upload posts a multipart form with a single "image" file
func (e *testEnv) upload(path, filename string, content []byte, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(e.t, err)
	_, err = part.Write(content)
	require.NoError(e.t, err)
	require.NoError(e.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Token "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// errorBody is the shape of every 4xx response
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func recipeURL(id uint) string {
	return fmt.Sprintf("/recipe/recipes/%d", id)
}
