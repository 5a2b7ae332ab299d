package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/middleware"
	"github.com/kgoldpotera/spotted-avenue-boutique/models"
	"github.com/kgoldpotera/spotted-avenue-boutique/repository"
)

type CartController struct {
	Repo   repository.CartRepository
	Logger *zap.Logger
}

func NewCartController(repo repository.CartRepository, logger *zap.Logger) *CartController {
	return &CartController{Repo: repo, Logger: logger}
}

// GetCart returns the caller's cart items with product details.
func (cc *CartController) GetCart(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	items, err := cc.Repo.FindByUserID(c.Request.Context(), userID)
	if err != nil {
		cc.Logger.Error("Failed to fetch cart", zap.String("user_id", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch cart"})
		return
	}
	if items == nil {
		items = []models.CartItem{}
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddItem upserts a cart row; an existing (user, product) row
// accumulates quantity instead of duplicating.
func (cc *CartController) AddItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		ProductID uuid.UUID `json:"product_id" binding:"required"`
		Quantity  int       `json:"quantity" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}
	if err := cc.Repo.Upsert(c.Request.Context(), item); err != nil {
		cc.Logger.Error("Failed to add cart item", zap.String("user_id", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save cart item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "item added"})
}

// UpdateItem sets the quantity of one of the caller's cart rows.
func (cc *CartController) UpdateItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var req struct {
		Quantity int `json:"quantity" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := cc.Repo.UpdateQuantity(c.Request.Context(), userID, itemID, req.Quantity); err != nil {
		cc.Logger.Error("Failed to update cart item", zap.String("item_id", itemID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update cart item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "item updated"})
}

// RemoveItem deletes one of the caller's cart rows.
func (cc *CartController) RemoveItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	if err := cc.Repo.Remove(c.Request.Context(), userID, itemID); err != nil {
		cc.Logger.Error("Failed to remove cart item", zap.String("item_id", itemID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove cart item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "item removed"})
}
