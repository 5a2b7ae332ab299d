package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/models"
	"github.com/kgoldpotera/spotted-avenue-boutique/services"
)

// ConfirmationController exposes the notifier to internal callers that
// hold the service token, e.g. for resending a receipt.
type ConfirmationController struct {
	Notifier services.OrderNotifier
	Logger   *zap.Logger
}

func (cc *ConfirmationController) SendOrderConfirmation(c *gin.Context) {
	var req struct {
		Order models.Order `json:"order" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if err := cc.Notifier.SendOrderConfirmation(c.Request.Context(), &req.Order); err != nil {
		cc.Logger.Error("Confirmation dispatch failed",
			zap.String("order_id", req.Order.ID.String()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
