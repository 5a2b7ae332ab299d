package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/models"
	"github.com/kgoldpotera/spotted-avenue-boutique/repository"
)

// RoleController manages admin role grants. All endpoints sit behind
// the super-admin gate.
type RoleController struct {
	Repo   repository.RoleRepository
	Logger *zap.Logger
}

func NewRoleController(repo repository.RoleRepository, logger *zap.Logger) *RoleController {
	return &RoleController{Repo: repo, Logger: logger}
}

func (rc *RoleController) ListAdmins(c *gin.Context) {
	roles, err := rc.Repo.ListByRole(c.Request.Context(), models.RoleAdmin)
	if err != nil {
		rc.Logger.Error("Failed to list admins", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list admins"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"admins": roles})
}

func (rc *RoleController) GrantAdmin(c *gin.Context) {
	var req struct {
		UserID uuid.UUID `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := rc.Repo.Grant(c.Request.Context(), req.UserID, models.RoleAdmin); err != nil {
		rc.Logger.Error("Failed to grant admin role", zap.String("user_id", req.UserID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to grant role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "admin role granted"})
}

func (rc *RoleController) RevokeAdmin(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := rc.Repo.Revoke(c.Request.Context(), userID, models.RoleAdmin); err != nil {
		rc.Logger.Error("Failed to revoke admin role", zap.String("user_id", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "admin role revoked"})
}
