// Package handlers exposes the REST surface: cart, orders, payment, product
// catalog and user credentials, all answering with the shared envelope.
package handlers

import (
	"net/http"
	"os"

	"ecommerce-backend/internal/auth"
	"ecommerce-backend/internal/cart"
	"ecommerce-backend/internal/orders"
	"ecommerce-backend/internal/payment"
	"ecommerce-backend/internal/products"
	"ecommerce-backend/internal/stores/kafka"
	"ecommerce-backend/internal/users"
	"ecommerce-backend/middleware"
	"ecommerce-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	u        *users.Conf
	p        *products.Conf
	ct       *cart.Conf
	o        *orders.Conf
	rec      *payment.Reconciler
	k        *kafka.Conf
	a        *auth.Keys
	validate *validator.Validate
}

func NewHandler(u *users.Conf, p *products.Conf, ct *cart.Conf, o *orders.Conf,
	rec *payment.Reconciler, k *kafka.Conf, a *auth.Keys) *Handler {
	return &Handler{
		u:        u,
		p:        p,
		ct:       ct,
		o:        o,
		rec:      rec,
		k:        k,
		a:        a,
		validate: validator.New(),
	}
}

func API(a *auth.Keys, sm *metrics.ServerMetrics, h *Handler) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(a)
	if err != nil {
		panic(err)
	}

	r.Use(middleware.Logger(), gin.Recovery())
	if sm != nil {
		r.Use(sm.Middleware())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	r.GET("/ping", healthCheck)

	usersGroup := r.Group("/users")
	{
		usersGroup.POST("/signup", h.Signup)
		usersGroup.POST("/activate", h.Activate)
		usersGroup.POST("/login", h.Login)
		usersGroup.POST("/forgot-password", h.ForgotPassword)
		usersGroup.POST("/reset-password", h.ResetPassword)
	}

	productsGroup := r.Group("/products")
	productsGroup.Use(m.Authentication())
	{
		productsGroup.GET("/", m.Authorize(h.ListProducts, auth.RoleUser))
		productsGroup.GET("/filter/", m.Authorize(h.FilterProducts, auth.RoleUser))
		productsGroup.POST("/", m.Authorize(h.CreateProduct, auth.RoleUser))
		productsGroup.GET("/:id/", m.Authorize(h.GetProduct, auth.RoleUser))
		productsGroup.PUT("/:id/", m.Authorize(h.UpdateProduct, auth.RoleUser))
		productsGroup.DELETE("/:id/", m.Authorize(h.DeleteProduct, auth.RoleUser))
	}

	cartGroup := r.Group("/cart")
	cartGroup.Use(m.Authentication())
	{
		cartGroup.GET("/", m.Authorize(h.GetCart, auth.RoleUser))
		cartGroup.POST("/", m.Authorize(h.AddToCart, auth.RoleUser))
		cartGroup.PATCH("/:item_id/", m.Authorize(h.UpdateCartItem, auth.RoleUser))
		cartGroup.DELETE("/:item_id/", m.Authorize(h.RemoveCartItem, auth.RoleUser))

		cartGroup.GET("/orders/", m.Authorize(h.ListOrders, auth.RoleUser))
		cartGroup.POST("/orders/", m.Authorize(h.CreateOrder, auth.RoleUser))
		cartGroup.GET("/orders/:id/", m.Authorize(h.GetOrder, auth.RoleUser))
		cartGroup.PATCH("/orders/:id/", m.Authorize(h.UpdateOrder, auth.RoleUser))
		cartGroup.DELETE("/orders/:id/", m.Authorize(h.DeleteOrder, auth.RoleUser))

		cartGroup.POST("/payment/", m.Authorize(h.Payment, auth.RoleUser))
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
