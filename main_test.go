package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moxuan/socialbackend/config"
	"github.com/moxuan/socialbackend/follow"
	"github.com/moxuan/socialbackend/oauth"
	"github.com/moxuan/socialbackend/session"
	"github.com/moxuan/socialbackend/store"
	"github.com/moxuan/socialbackend/token"
)

// Registering the complete table, avatar route included, must not
// trip gin's route-tree conflict checks.
func TestSetupRouterRegistersFullRouteTable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Port:      "0",
		GCSBucket: "avatars-test",
	}
	users := store.NewMemoryUserStore()
	follows := store.NewMemoryFollowStore()
	articles := store.NewMemoryArticleStore()
	codec := token.NewCodec("route-table-test-secret", time.Minute, time.Hour)
	sessions := session.NewManager(codec, users)
	provider := oauth.NewGoogleProvider(oauth.GoogleConfig{})
	linker := oauth.NewLinker(provider, users, sessions)
	followSvc := follow.NewService(follows, users)

	r := setupRouter(cfg, users, articles, sessions, linker, followSvc, nil)

	// avatar upload is registered and gated by auth
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/profile/avatar", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated avatar upload: status %d, want 401", w.Code)
	}

	// the users group's wildcard routes still resolve alongside it
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/000000000000000000000001/follow/count", nil))
	if w.Code != http.StatusOK {
		t.Errorf("follow count route: status %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health route: status %d, want 200", w.Code)
	}
}

// Without a bucket the avatar route stays unregistered and the rest
// of the table is unaffected.
func TestSetupRouterWithoutBucket(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{Port: "0"}
	users := store.NewMemoryUserStore()
	follows := store.NewMemoryFollowStore()
	articles := store.NewMemoryArticleStore()
	codec := token.NewCodec("route-table-test-secret", time.Minute, time.Hour)
	sessions := session.NewManager(codec, users)
	linker := oauth.NewLinker(oauth.NewGoogleProvider(oauth.GoogleConfig{}), users, sessions)
	followSvc := follow.NewService(follows, users)

	r := setupRouter(cfg, users, articles, sessions, linker, followSvc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/profile/avatar", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("avatar route without bucket: status %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/articles", nil))
	if w.Code != http.StatusOK {
		t.Errorf("articles route: status %d, want 200", w.Code)
	}
}
