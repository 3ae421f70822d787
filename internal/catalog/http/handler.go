package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"farmlok/internal/auth"
	"farmlok/internal/catalog"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductService interface {
	ListProducts(ctx context.Context, params map[string]string) ([]catalog.Product, int64, error)
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	CreateProduct(ctx context.Context, product catalog.Product, userID primitive.ObjectID) (catalog.Product, error)
	UpdateProduct(ctx context.Context, id string, patch catalog.ProductPatch) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type Handler struct {
	service ProductService
	logger  *slog.Logger
}

func NewHandler(svc ProductService, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

type createProductRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Price       *float64 `json:"price" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	Stock       *int     `json:"stock" binding:"required"`
	Location    string   `json:"location" binding:"required"`
	Rating      float64  `json:"rating"`
}

type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Results *int   `json:"results,omitempty"`
	Total   *int64 `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// ListProducts godoc
// @Summary      List products with filtering, search and pagination
// @Tags         products
// @Produce      json
// @Param        page      query  int     false  "Page number"      default(1)
// @Param        limit     query  int     false  "Items per page"   default(20)
// @Param        sort      query  string  false  "Comma-separated sort fields, '-' prefix for descending"
// @Param        search    query  string  false  "Full-text search term"
// @Param        minPrice  query  number  false  "Lower price bound"
// @Param        maxPrice  query  number  false  "Upper price bound"
// @Param        category  query  string  false  "Category filter"
// @Success      200  {object}  envelope
// @Failure      500  {object}  envelope
// @Router       /api/v1/products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	items, total, err := h.service.ListProducts(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, err)
		return
	}

	results := len(items)
	c.JSON(http.StatusOK, envelope{
		Status:  "success",
		Data:    items,
		Results: &results,
		Total:   &total,
	})
}

// GetProduct godoc
// @Summary      Fetch a single product with its owner summary
// @Tags         products
// @Produce      json
// @Param        id  path  string  true  "Product ID"
// @Success      200  {object}  envelope
// @Failure      404  {object}  envelope
// @Router       /api/v1/products/{id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.service.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Status: "success", Data: product})
}

// CreateProduct godoc
// @Summary      Create a product owned by the authenticated user
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body  createProductRequest  true  "Product data"
// @Success      201  {object}  envelope
// @Failure      400  {object}  envelope
// @Failure      401  {object}  envelope
// @Security     BearerAuth
// @Router       /api/v1/products [post]
func (h *Handler) CreateProduct(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, envelope{Status: "fail", Message: "you are not logged in, please log in to get access"})
		return
	}

	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, envelope{Status: "fail", Message: "invalid request body"})
		return
	}

	created, err := h.service.CreateProduct(c.Request.Context(), catalog.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Category:    req.Category,
		Stock:       *req.Stock,
		Location:    req.Location,
		Rating:      req.Rating,
	}, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, envelope{Status: "success", Data: created})
}

// UpdateProduct godoc
// @Summary      Partially update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "Product ID"
// @Param        body  body  catalog.ProductPatch  true  "Fields to update"
// @Success      200  {object}  envelope
// @Failure      400  {object}  envelope
// @Failure      404  {object}  envelope
// @Security     BearerAuth
// @Router       /api/v1/products/{id} [put]
func (h *Handler) UpdateProduct(c *gin.Context) {
	var patch catalog.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, envelope{Status: "fail", Message: "invalid request body"})
		return
	}

	updated, err := h.service.UpdateProduct(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Status: "success", Data: updated})
}

// DeleteProduct godoc
// @Summary      Delete a product
// @Tags         products
// @Produce      json
// @Param        id  path  string  true  "Product ID"
// @Success      204
// @Failure      404  {object}  envelope
// @Security     BearerAuth
// @Router       /api/v1/products/{id} [delete]
func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.service.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, envelope{
			Status:  "fail",
			Message: verr.Error(),
			Field:   verr.Field,
		})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, envelope{
			Status:  "fail",
			Message: catalog.ErrNotFound.Error(),
		})
	default:
		h.logger.Error("catalog request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, envelope{
			Status:  "error",
			Message: "internal server error",
		})
	}
}
