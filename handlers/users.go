package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ecommerce-backend/internal/auth"
	"ecommerce-backend/internal/stores/kafka"
	"ecommerce-backend/internal/users"
	"ecommerce-backend/pkg/ctxmanage"
	"ecommerce-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Signup(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var newUser users.NewUser
	if err := c.ShouldBindJSON(&newUser); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(newUser); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusBadRequest, "Name, email and password (min 8 chars) are required")
		return
	}

	user, err := h.u.InsertUser(c.Request.Context(), newUser)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			fail(c, http.StatusBadRequest, "Email already registered")
			return
		}
		slog.Error("error inserting user", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Signup failed")
		return
	}

	otp, err := h.u.CreateOTP(c.Request.Context(), user.ID, users.PurposeActivation)
	if err != nil {
		slog.Error("error creating activation otp", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, user.ID), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Signup failed")
		return
	}

	go h.publishOTP(context.WithoutCancel(c.Request.Context()), traceId, kafka.TopicAccountCreated, user, otp)

	respond(c, http.StatusCreated, "User created successfully", nil)
}

func (h *Handler) Activate(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var request struct {
		Email string `json:"email" validate:"required,email"`
		OTP   string `json:"otp" validate:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(request); err != nil {
		fail(c, http.StatusBadRequest, "Email and 6-digit OTP are required")
		return
	}

	if err := h.u.ActivateAccount(c.Request.Context(), request.Email, request.OTP); err != nil {
		switch {
		case errors.Is(err, users.ErrNotFound):
			fail(c, http.StatusNotFound, "User not found")
		case errors.Is(err, users.ErrOTPInvalid):
			fail(c, http.StatusBadRequest, "Invalid or expired OTP")
		default:
			slog.Error("error activating account", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			fail(c, http.StatusInternalServerError, "Activation failed")
		}
		return
	}

	respond(c, http.StatusOK, "Account activated successfully", nil)
}

func (h *Handler) Login(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(request); err != nil {
		fail(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.u.Authenticate(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, users.ErrAccountInactive):
			fail(c, http.StatusForbidden, "Account is not active")
		default:
			slog.Error("error authenticating user", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			fail(c, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	token, err := h.a.GenerateToken(user.ID, []string{auth.RoleUser})
	if err != nil {
		slog.Error("error generating token", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, user.ID), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Login failed")
		return
	}

	respond(c, http.StatusOK, "Login successful", gin.H{"access_token": token, "user": user})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var request struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(request); err != nil {
		fail(c, http.StatusBadRequest, "A valid email is required")
		return
	}

	user, err := h.u.GetByEmail(c.Request.Context(), request.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			fail(c, http.StatusNotFound, "User not found")
			return
		}
		slog.Error("error fetching user", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Request failed")
		return
	}

	otp, err := h.u.CreateOTP(c.Request.Context(), user.ID, users.PurposePasswordReset)
	if err != nil {
		slog.Error("error creating reset otp", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, user.ID), slog.String(logkey.ERROR, err.Error()))
		fail(c, http.StatusInternalServerError, "Request failed")
		return
	}

	go h.publishOTP(context.WithoutCancel(c.Request.Context()), traceId, kafka.TopicPasswordReset, user, otp)

	respond(c, http.StatusOK, "Password reset OTP sent", nil)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var request struct {
		Email       string `json:"email" validate:"required,email"`
		OTP         string `json:"otp" validate:"required,len=6"`
		NewPassword string `json:"new_password" validate:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(request); err != nil {
		fail(c, http.StatusBadRequest, "Email, OTP and a new password (min 8 chars) are required")
		return
	}

	if err := h.u.ResetPassword(c.Request.Context(), request.Email, request.OTP, request.NewPassword); err != nil {
		switch {
		case errors.Is(err, users.ErrNotFound):
			fail(c, http.StatusNotFound, "User not found")
		case errors.Is(err, users.ErrOTPInvalid):
			fail(c, http.StatusBadRequest, "Invalid or expired OTP")
		default:
			slog.Error("error resetting password", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			fail(c, http.StatusInternalServerError, "Password reset failed")
		}
		return
	}

	respond(c, http.StatusOK, "Password reset successfully", nil)
}

// publishOTP emits the OTP event that the notification worker turns into an
// email. The OTP travels only on the internal bus, never in a response.
func (h *Handler) publishOTP(ctx context.Context, traceId, topic string, user users.User, otp string) {
	if h.k == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	event, err := json.Marshal(kafka.AccountCreatedEvent{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		OTP:       otp,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("marshaling otp event", slog.String(logkey.ERROR, err.Error()))
		return
	}
	if err := h.k.ProduceMessage(ctx, topic, []byte(user.ID), event); err != nil {
		slog.Error("producing otp event", slog.String(logkey.TraceID, traceId),
			slog.String("topic", topic), slog.String(logkey.ERROR, err.Error()))
	}
}
