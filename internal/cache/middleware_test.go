package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type fakeStore struct {
	entries map[string][]byte
	sets    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string][]byte{}}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := f.entries[key]
	return v, ok
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	f.sets++
	f.entries[key] = value
}

func newCachedRouter(store ResponseStore, handlerCalls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	cached := router.Group("/api/v1/products", Responses(store, time.Minute))
	cached.GET("", func(c *gin.Context) {
		*handlerCalls++
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	router.POST("/api/v1/products", Responses(store, time.Minute), func(c *gin.Context) {
		*handlerCalls++
		c.JSON(http.StatusCreated, gin.H{"status": "success"})
	})
	return router
}

func TestResponsesCachesByFullURI(t *testing.T) {
	store := newFakeStore()
	calls := 0
	router := newCachedRouter(store, &calls)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/products?page=2&limit=10", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", first.Code)
	}
	if calls != 1 {
		t.Fatalf("want 1 handler call, got %d", calls)
	}
	if _, ok := store.entries[KeyPrefix+"/api/v1/products?page=2&limit=10"]; !ok {
		t.Fatalf("response not stored under path+query, keys: %v", store.entries)
	}

	// Second identical request is served from the cache.
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/products?page=2&limit=10", nil))
	if second.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", second.Code)
	}
	if calls != 1 {
		t.Fatalf("cached request must not reach the handler, got %d calls", calls)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("cached body %q differs from original %q", second.Body.String(), first.Body.String())
	}

	// Different query string is a different cache entry.
	third := httptest.NewRecorder()
	router.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/api/v1/products?page=3&limit=10", nil))
	if calls != 2 {
		t.Fatalf("distinct query must miss the cache, got %d calls", calls)
	}
}

func TestResponsesCapturesWriteString(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	calls := 0
	router := gin.New()
	router.GET("/plain", Responses(store, time.Minute), func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
		_, _ = c.Writer.WriteString(`{"status":"success"}`)
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/plain", nil))
	if got := string(store.entries[KeyPrefix+"/plain"]); got != `{"status":"success"}` {
		t.Fatalf("string-written body not captured, stored %q", got)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/plain", nil))
	if calls != 1 {
		t.Fatalf("cached request must not reach the handler, got %d calls", calls)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("cached body %q differs from original %q", second.Body.String(), first.Body.String())
	}
}

func TestResponsesSkipsNonGET(t *testing.T) {
	store := newFakeStore()
	calls := 0
	router := newCachedRouter(store, &calls)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/products", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d", rec.Code)
	}
	if store.sets != 0 {
		t.Fatalf("mutations must never be cached, got %d writes", store.sets)
	}
}

func TestResponsesDoesNotCacheErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	router := gin.New()
	router.GET("/boom", Responses(store, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if store.sets != 0 {
		t.Fatalf("error responses must not be cached, got %d writes", store.sets)
	}
}
