package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"ecommerce-backend/internal/products"
	"ecommerce-backend/pkg/ctxmanage"
	"ecommerce-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) CreateProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	if c.Request.ContentLength > 5*1024 {
		slog.Error("request body limit breached", slog.String(logkey.TraceID, traceId),
			slog.Int64("size_received", c.Request.ContentLength))
		fail(c, http.StatusBadRequest, "Request body too large")
		return
	}

	var newProduct products.NewProduct
	if err := c.ShouldBindJSON(&newProduct); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(newProduct); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusBadRequest, "Name, price and stock must be valid")
		return
	}

	product, err := h.p.InsertProduct(c.Request.Context(), newProduct)
	if err != nil {
		slog.Error("error inserting product", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusBadRequest, "Product Creation Failed")
		return
	}

	respond(c, http.StatusCreated, "Product created successfully", product)
}

func (h *Handler) GetProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	product, err := h.p.GetProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			fail(c, http.StatusNotFound, "Product not found")
			return
		}
		slog.Error("error retrieving product", slog.String(logkey.TraceID, traceId),
			slog.String("product_id", c.Param("id")), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Failed to fetch product")
		return
	}

	respond(c, http.StatusOK, "Product fetched", product)
}

func (h *Handler) ListProducts(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.p.ListProducts(c.Request.Context(), products.Filter{Search: c.Query("search")})
	if err != nil {
		slog.Error("error listing products", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Failed to fetch products")
		return
	}

	respond(c, http.StatusOK, "Product List", list)
}

func (h *Handler) FilterProducts(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	filter := products.Filter{Category: c.Query("category")}
	if raw := c.Query("min_price"); raw != "" {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid min_price")
			return
		}
		filter.MinPrice = &min
	}
	if raw := c.Query("max_price"); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid max_price")
			return
		}
		filter.MaxPrice = &max
	}

	list, err := h.p.ListProducts(c.Request.Context(), filter)
	if err != nil {
		slog.Error("error filtering products", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Failed to fetch products")
		return
	}

	respond(c, http.StatusOK, "Product List", list)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var newProduct products.NewProduct
	if err := c.ShouldBindJSON(&newProduct); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(newProduct); err != nil {
		fail(c, http.StatusBadRequest, "Name, price and stock must be valid")
		return
	}

	product, err := h.p.UpdateProduct(c.Request.Context(), c.Param("id"), newProduct)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			fail(c, http.StatusNotFound, "Product not found")
			return
		}
		slog.Error("error updating product", slog.String(logkey.TraceID, traceId),
			slog.String("product_id", c.Param("id")), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Failed to update product")
		return
	}

	respond(c, http.StatusOK, "Product updated successfully", product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	if err := h.p.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, products.ErrNotFound) {
			fail(c, http.StatusNotFound, "Product not found")
			return
		}
		slog.Error("error deleting product", slog.String(logkey.TraceID, traceId),
			slog.String("product_id", c.Param("id")), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	c.Status(http.StatusNoContent)
}
