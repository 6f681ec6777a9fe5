package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ecommerce-backend/internal/orders"
	"ecommerce-backend/internal/payment"
	"ecommerce-backend/internal/stores/kafka"
	"ecommerce-backend/pkg/ctxmanage"
	"ecommerce-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Payment captures the order total through the gateway and flips the order to
// paid. The amount is derived from the order; a client-supplied amount only
// serves as a cross-check.
func (h *Handler) Payment(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var request struct {
		Token   string           `json:"token" validate:"required"`
		OrderID string           `json:"order_id" validate:"required"`
		Amount  *decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(request); err != nil {
		fail(c, http.StatusBadRequest, "Token and order_id are required")
		return
	}

	confirmation, err := h.rec.Capture(c.Request.Context(), claims.Subject, request.OrderID, request.Token, request.Amount)
	if err != nil {
		var decline *payment.DeclineError
		switch {
		case errors.Is(err, orders.ErrNotFound):
			fail(c, http.StatusNotFound, "Order not found")
		case errors.Is(err, orders.ErrAlreadyPaid):
			fail(c, http.StatusBadRequest, "Order is already paid")
		case errors.Is(err, payment.ErrAmountMismatch):
			fail(c, http.StatusBadRequest, "Amount does not match order total")
		case errors.Is(err, payment.ErrInvalidToken):
			fail(c, http.StatusBadRequest, "Invalid payment information")
		case errors.As(err, &decline):
			slog.Error("payment declined", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, request.OrderID), slog.String("reason", decline.Reason))
			fail(c, http.StatusBadRequest, decline.Error())
		case errors.Is(err, payment.ErrGatewayUnavailable):
			slog.Error("payment gateway unavailable", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, request.OrderID), slog.String(logkey.ERROR, err.Error()))
			fail(c, http.StatusBadGateway, "Payment gateway unavailable, please retry")
		default:
			slog.Error("payment failed", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, request.OrderID), slog.String(logkey.ERROR, err.Error()))
			fail(c, http.StatusInternalServerError, "Payment failed")
		}
		return
	}

	slog.Info("payment captured", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.OrderID, confirmation.OrderID), slog.String("reference", confirmation.Reference))

	// Confirmation email is fire-and-forget, detached from the request so
	// the response is never held up by kafka.
	go h.publishOrderPaid(context.WithoutCancel(c.Request.Context()), traceId, claims.Subject, confirmation)

	respond(c, http.StatusOK, "Payment successful", confirmation)
}

func (h *Handler) publishOrderPaid(ctx context.Context, traceId, userID string, confirmation payment.Confirmation) {
	if h.k == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	user, err := h.u.GetByID(ctx, userID)
	if err != nil {
		slog.Error("fetching user for order-paid event", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		return
	}
	order, err := h.o.GetOrder(ctx, userID, confirmation.OrderID)
	if err != nil {
		slog.Error("fetching order for order-paid event", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, confirmation.OrderID), slog.String(logkey.ERROR, err.Error()))
		return
	}

	event, err := json.Marshal(kafka.OrderPaidEvent{
		OrderID:    order.ID,
		UserID:     userID,
		Email:      user.Email,
		Total:      order.Total.StringFixed(2),
		PaymentRef: confirmation.Reference,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		slog.Error("marshaling order-paid event", slog.String(logkey.ERROR, err.Error()))
		return
	}
	if err := h.k.ProduceMessage(ctx, kafka.TopicOrderPaid, []byte(order.ID), event); err != nil {
		slog.Error("producing order-paid event", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
	}
}
