package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"ecommerce-backend/internal/orders"
	"ecommerce-backend/pkg/ctxmanage"
	"ecommerce-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	list, err := h.o.ListOrders(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error listing orders", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}

	respond(c, http.StatusOK, "Orders retrieved successfully", list)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var request struct {
		ShippingAddress string `json:"shipping_address" validate:"required"`
		PaymentMethod   string `json:"payment_method" validate:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(request); err != nil {
		fail(c, http.StatusBadRequest, "Shipping address and payment method are required")
		return
	}

	order, err := h.o.PlaceOrder(c.Request.Context(), claims.Subject, request.ShippingAddress, request.PaymentMethod)
	if err != nil {
		if errors.Is(err, orders.ErrEmptyCart) {
			fail(c, http.StatusBadRequest, "Cart is empty")
			return
		}
		slog.Error("error creating order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Failed to create order")
		return
	}

	slog.Info("order created", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.OrderID, order.ID), slog.String(logkey.UserID, claims.Subject))
	respond(c, http.StatusCreated, "Order created successfully", order)
}

func (h *Handler) GetOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	order, err := h.o.GetOrder(c.Request.Context(), claims.Subject, c.Param("id"))
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			fail(c, http.StatusNotFound, "Order not found")
			return
		}
		slog.Error("error fetching order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, c.Param("id")), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Failed to fetch order")
		return
	}

	respond(c, http.StatusOK, "Order retrieved successfully", order)
}

func (h *Handler) UpdateOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var patch orders.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.o.UpdateOrder(c.Request.Context(), claims.Subject, c.Param("id"), patch)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrNotFound):
			fail(c, http.StatusNotFound, "Order not found")
		case errors.Is(err, orders.ErrInvalidStatus):
			fail(c, http.StatusBadRequest, "Invalid status value")
		default:
			slog.Error("error updating order", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, c.Param("id")), slog.String(logkey.ERROR, err.Error()))
			fail(c, http.StatusInternalServerError, "Failed to update order")
		}
		return
	}

	respond(c, http.StatusOK, "Order updated successfully", order)
}

func (h *Handler) DeleteOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	if err := h.o.DeleteOrder(c.Request.Context(), claims.Subject, c.Param("id")); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			fail(c, http.StatusNotFound, "Order not found")
			return
		}
		slog.Error("error deleting order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, c.Param("id")), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Failed to delete order")
		return
	}

	c.Status(http.StatusNoContent)
}
