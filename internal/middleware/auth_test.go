package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
)

// TestHashAPIKey verifies that hashing is deterministic and produces
// SHA-256 hex output.
func TestHashAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{
			name: "empty key",
			key:  "",
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "abc",
			key:  "abc",
			want: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashAPIKey(tt.key)
			if got != tt.want {
				t.Errorf("HashAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	t.Run("different inputs different outputs", func(t *testing.T) {
		if HashAPIKey("sc_key_one") == HashAPIKey("sc_key_two") {
			t.Error("HashAPIKey produced same hash for different inputs")
		}
	})

	t.Run("output length", func(t *testing.T) {
		if n := len(HashAPIKey("sc_any_key")); n != 64 {
			t.Errorf("HashAPIKey output length = %d, want 64", n)
		}
	})
}

const testSecret = "test-secret"

type fakeAuthStore struct {
	keys  map[string]*models.APIKey // by hash
	users map[string]*models.User
}

func newFakeAuthStore() *fakeAuthStore {
	uid := "user-1"
	return &fakeAuthStore{
		keys: map[string]*models.APIKey{
			HashAPIKey("sc_good"): {ID: "key-1", Name: "ci", Active: true, RateLimit: 2, UserID: &uid},
		},
		users: map[string]*models.User{
			"user-1": {ID: "user-1", Email: "ada@example.com", Name: "Ada"},
		},
	}
}

func (f *fakeAuthStore) GetAPIKeyByHash(_ context.Context, hash string) (*models.APIKey, error) {
	if k, ok := f.keys[hash]; ok {
		return k, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeAuthStore) UpdateAPIKeyLastUsed(context.Context, string) error { return nil }

func (f *fakeAuthStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

// whoami echoes who the middleware decided the caller is.
func whoami(c *gin.Context) {
	switch {
	case GetAPIKey(c) != nil:
		c.String(http.StatusOK, "key:"+GetAPIKey(c).ID)
	case GetUser(c) != nil:
		c.String(http.StatusOK, "user:"+GetUser(c).ID)
	default:
		c.String(http.StatusOK, "anonymous")
	}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeAuthStore()
	token, err := GenerateJWT(store.users["user-1"], testSecret)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	foreign, _ := GenerateJWT(store.users["user-1"], "another-secret")

	tests := []struct {
		name       string
		mw         gin.HandlerFunc
		apiKey     string
		bearer     string
		wantStatus int
		wantBody   string
	}{
		{"optional anonymous", OptionalAuth(store, testSecret), "", "", 200, "anonymous"},
		{"optional api key", OptionalAuth(store, testSecret), "sc_good", "", 200, "key:key-1"},
		{"optional jwt", OptionalAuth(store, testSecret), "", token, 200, "user:user-1"},
		{"optional bad key", OptionalAuth(store, testSecret), "sc_bad", "", 401, ""},
		{"optional foreign token", OptionalAuth(store, testSecret), "", foreign, 401, ""},
		{"bad key falls back to jwt", OptionalAuth(store, testSecret), "sc_bad", token, 200, "user:user-1"},
		{"dual anonymous", DualAuth(store, testSecret), "", "", 401, ""},
		{"dual api key", DualAuth(store, testSecret), "sc_good", "", 200, "key:key-1"},
		{"jwt only rejects api key", JWTAuth(store, testSecret), "sc_good", "", 401, ""},
		{"jwt only accepts token", JWTAuth(store, testSecret), "", token, 200, "user:user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", tt.mw, whoami)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	keyID, userID := Owner(c)
	if keyID != nil || userID != nil {
		t.Fatal("anonymous caller should have no owner")
	}

	uid := "user-9"
	c.Set(string(apiKeyContextKey), &models.APIKey{ID: "key-9", UserID: &uid})
	keyID, userID = Owner(c)
	if keyID == nil || *keyID != "key-9" || userID == nil || *userID != "user-9" {
		t.Errorf("Owner() = %v, %v", keyID, userID)
	}
}
