package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"ecommerce-backend/internal/cart"
	"ecommerce-backend/pkg/ctxmanage"
	"ecommerce-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	userCart, err := h.ct.GetCart(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error fetching cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Failed to fetch cart items")
		return
	}

	respond(c, http.StatusOK, "Cart items fetched", userCart)
}

func (h *Handler) AddToCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var request struct {
		ProductID string `json:"product_id" validate:"required"`
		Quantity  int    `json:"quantity" validate:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(request); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusBadRequest, "Product ID and quantity must be valid")
		return
	}

	userCart, err := h.ct.AddItem(c.Request.Context(), claims.Subject, request.ProductID, request.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrProductNotFound):
			fail(c, http.StatusNotFound, "Product not found")
		case errors.Is(err, cart.ErrInsufficientStock):
			slog.Error("insufficient stock", slog.String(logkey.TraceID, traceId),
				slog.String("product_id", request.ProductID), slog.Int("requested", request.Quantity))
			fail(c, http.StatusBadRequest, "Insufficient product quantity")
		case errors.Is(err, cart.ErrInvalidQuantity):
			fail(c, http.StatusBadRequest, "Product ID and quantity must be valid")
		default:
			slog.Error("error adding product to cart", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()), slog.String("product_id", request.ProductID))
			fail(c, http.StatusInternalServerError, "Failed to add product to cart")
		}
		return
	}

	slog.Info("product added to cart", slog.String(logkey.TraceID, traceId),
		slog.String("product_id", request.ProductID), slog.Int("quantity", request.Quantity),
		slog.String(logkey.UserID, claims.Subject))
	respond(c, http.StatusCreated, "Item added to cart", userCart)
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseInt(c.Param("item_id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid cart item id")
		return
	}

	var request struct {
		Quantity int `json:"quantity" validate:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(request); err != nil {
		fail(c, http.StatusBadRequest, "Quantity must be a positive integer")
		return
	}

	item, err := h.ct.UpdateItem(c.Request.Context(), claims.Subject, itemID, request.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrItemNotFound):
			fail(c, http.StatusNotFound, "Cart item not found")
		case errors.Is(err, cart.ErrInvalidQuantity):
			fail(c, http.StatusBadRequest, "Quantity must be a positive integer")
		default:
			slog.Error("error updating cart item", slog.String(logkey.TraceID, traceId),
				slog.Int64("item_id", itemID), slog.String(logkey.ERROR, err.Error()))
			fail(c, http.StatusInternalServerError, "Failed to update cart item")
		}
		return
	}

	respond(c, http.StatusOK, "Cart item updated successfully", item)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseInt(c.Param("item_id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid cart item id")
		return
	}

	if err := h.ct.RemoveItem(c.Request.Context(), claims.Subject, itemID); err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			fail(c, http.StatusNotFound, "Cart item not found")
			return
		}
		slog.Error("error removing cart item", slog.String(logkey.TraceID, traceId),
			slog.Int64("item_id", itemID), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Failed to remove cart item")
		return
	}

	c.Status(http.StatusNoContent)
}
