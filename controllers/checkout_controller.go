package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/middleware"
	"github.com/kgoldpotera/spotted-avenue-boutique/services"
)

const checkoutTimeout = 30 * time.Second

type CheckoutController struct {
	Checkout    *services.CheckoutService
	FrontendURL string
	Logger      *zap.Logger
}

func NewCheckoutController(checkout *services.CheckoutService, frontendURL string, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{
		Checkout:    checkout,
		FrontendURL: frontendURL,
		Logger:      logger,
	}
}

// CreateCheckout inserts a pending order for the authenticated user and
// returns the hosted checkout redirect URL.
func (cc *CheckoutController) CreateCheckout(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	email := middleware.GetUserEmail(c)

	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = cc.FrontendURL
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), checkoutTimeout)
	defer cancel()

	result, svcErr := cc.Checkout.InitiateCheckout(ctx, userID, email, origin, &req)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": result.URL, "orderId": result.OrderID})
}
