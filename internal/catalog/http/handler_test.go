package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"farmlok/internal/auth"
	"farmlok/internal/catalog"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeService struct {
	listFn   func(ctx context.Context, params map[string]string) ([]catalog.Product, int64, error)
	getFn    func(ctx context.Context, id string) (catalog.Product, error)
	createFn func(ctx context.Context, product catalog.Product, userID primitive.ObjectID) (catalog.Product, error)
	updateFn func(ctx context.Context, id string, patch catalog.ProductPatch) (catalog.Product, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeService) ListProducts(ctx context.Context, params map[string]string) ([]catalog.Product, int64, error) {
	return f.listFn(ctx, params)
}
func (f *fakeService) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	return f.getFn(ctx, id)
}
func (f *fakeService) CreateProduct(ctx context.Context, product catalog.Product, userID primitive.ObjectID) (catalog.Product, error) {
	return f.createFn(ctx, product, userID)
}
func (f *fakeService) UpdateProduct(ctx context.Context, id string, patch catalog.ProductPatch) (catalog.Product, error) {
	return f.updateFn(ctx, id, patch)
}
func (f *fakeService) DeleteProduct(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

func newTestRouter(svc ProductService, userID primitive.ObjectID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	asUser := func(c *gin.Context) {
		if !userID.IsZero() {
			c.Set(auth.ContextUserIDKey, userID)
		}
		c.Next()
	}

	router := gin.New()
	router.GET("/api/v1/products", handler.ListProducts)
	router.POST("/api/v1/products", asUser, handler.CreateProduct)
	router.GET("/api/v1/products/:id", handler.GetProduct)
	router.PUT("/api/v1/products/:id", asUser, handler.UpdateProduct)
	router.DELETE("/api/v1/products/:id", asUser, handler.DeleteProduct)
	return router
}

func TestListProductsEnvelope(t *testing.T) {
	svc := &fakeService{
		listFn: func(_ context.Context, params map[string]string) ([]catalog.Product, int64, error) {
			if params["category"] != "Fruits" || params["page"] != "2" {
				t.Fatalf("query params not forwarded, got %v", params)
			}
			return []catalog.Product{{Name: "Apple"}, {Name: "Mango"}}, 42, nil
		},
	}
	router := newTestRouter(svc, primitive.NilObjectID)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?category=Fruits&page=2", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var body struct {
		Status  string            `json:"status"`
		Data    []catalog.Product `json:"data"`
		Results int               `json:"results"`
		Total   int64             `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "success" || body.Results != 2 || body.Total != 42 {
		t.Fatalf("bad envelope: %+v", body)
	}
	if len(body.Data) != 2 {
		t.Fatalf("want 2 products, got %d", len(body.Data))
	}
}

func TestGetProductNotFound(t *testing.T) {
	svc := &fakeService{
		getFn: func(_ context.Context, _ string) (catalog.Product, error) {
			return catalog.Product{}, catalog.ErrNotFound
		},
	}
	router := newTestRouter(svc, primitive.NilObjectID)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+primitive.NewObjectID().Hex(), nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no product found with that ID") {
		t.Fatalf("missing domain message, got %s", rec.Body.String())
	}
}

func TestCreateProduct(t *testing.T) {
	owner := primitive.NewObjectID()
	payload := `{"name":"Tomato","description":"Fresh","price":40,"category":"Vegetables","stock":10,"location":"Delhi"}`

	t.Run("created with authenticated owner", func(t *testing.T) {
		var gotUser primitive.ObjectID
		svc := &fakeService{
			createFn: func(_ context.Context, p catalog.Product, userID primitive.ObjectID) (catalog.Product, error) {
				gotUser = userID
				p.ID = primitive.NewObjectID()
				return p, nil
			},
		}
		router := newTestRouter(svc, owner)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("want 201, got %d (%s)", rec.Code, rec.Body.String())
		}
		if gotUser != owner {
			t.Fatalf("want owner %s, got %s", owner.Hex(), gotUser.Hex())
		}
	})

	t.Run("missing identity is rejected", func(t *testing.T) {
		svc := &fakeService{
			createFn: func(_ context.Context, _ catalog.Product, _ primitive.ObjectID) (catalog.Product, error) {
				t.Fatal("service must not be reached without identity")
				return catalog.Product{}, nil
			},
		}
		router := newTestRouter(svc, primitive.NilObjectID)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})

	t.Run("validation error names the field", func(t *testing.T) {
		svc := &fakeService{
			createFn: func(_ context.Context, _ catalog.Product, _ primitive.ObjectID) (catalog.Product, error) {
				return catalog.Product{}, &catalog.ValidationError{Field: "price", Message: `failed on the "gte" rule`}
			},
		}
		router := newTestRouter(svc, owner)

		bad := `{"name":"X","description":"d","price":-5,"category":"c","stock":1,"location":"l"}`
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(bad))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"field":"price"`) {
			t.Fatalf("response must name the offending field, got %s", rec.Body.String())
		}
	})

	t.Run("incomplete body is rejected before the service", func(t *testing.T) {
		svc := &fakeService{
			createFn: func(_ context.Context, _ catalog.Product, _ primitive.ObjectID) (catalog.Product, error) {
				t.Fatal("service must not be reached for an invalid body")
				return catalog.Product{}, nil
			},
		}
		router := newTestRouter(svc, owner)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`{"name":"Tomato"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})
}

func TestUpdateProduct(t *testing.T) {
	svc := &fakeService{
		updateFn: func(_ context.Context, id string, patch catalog.ProductPatch) (catalog.Product, error) {
			if patch.Price == nil || *patch.Price != 55 {
				t.Fatalf("patch not decoded, got %+v", patch)
			}
			if patch.Name != nil {
				t.Fatal("absent fields must stay nil in the patch")
			}
			return catalog.Product{Price: *patch.Price}, nil
		},
	}
	router := newTestRouter(svc, primitive.NewObjectID())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/products/"+primitive.NewObjectID().Hex(), strings.NewReader(`{"price":55}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestDeleteProduct(t *testing.T) {
	t.Run("success is 204", func(t *testing.T) {
		svc := &fakeService{
			deleteFn: func(_ context.Context, _ string) error { return nil },
		}
		router := newTestRouter(svc, primitive.NewObjectID())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/products/"+primitive.NewObjectID().Hex(), nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("want 204, got %d", rec.Code)
		}
	})

	t.Run("missing id is 404", func(t *testing.T) {
		svc := &fakeService{
			deleteFn: func(_ context.Context, _ string) error { return catalog.ErrNotFound },
		}
		router := newTestRouter(svc, primitive.NewObjectID())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/products/"+primitive.NewObjectID().Hex(), nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})

	t.Run("unexpected errors are 500", func(t *testing.T) {
		svc := &fakeService{
			deleteFn: func(_ context.Context, _ string) error { return errors.New("db down") },
		}
		router := newTestRouter(svc, primitive.NewObjectID())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/products/"+primitive.NewObjectID().Hex(), nil))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("want 500, got %d", rec.Code)
		}
	})
}
