package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kgoldpotera/spotted-avenue-boutique/models"
)

// RoleRepository defines the interface for role grants.
type RoleRepository interface {
	HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)
	Grant(ctx context.Context, userID uuid.UUID, role string) error
	Revoke(ctx context.Context, userID uuid.UUID, role string) error
	ListByRole(ctx context.Context, role string) ([]models.UserRole, error)
}

type GormRoleRepository struct {
	db *gorm.DB
}

func NewGormRoleRepository(db *gorm.DB) RoleRepository {
	return &GormRoleRepository{db: db}
}

func (r *GormRoleRepository) HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	var ur models.UserRole
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		First(&ur).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *GormRoleRepository) Grant(ctx context.Context, userID uuid.UUID, role string) error {
	// Granting an already-held role is a no-op.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "role"}},
			DoNothing: true,
		}).
		Create(&models.UserRole{UserID: userID, Role: role}).Error
}

func (r *GormRoleRepository) Revoke(ctx context.Context, userID uuid.UUID, role string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&models.UserRole{}).Error
}

func (r *GormRoleRepository) ListByRole(ctx context.Context, role string) ([]models.UserRole, error) {
	var roles []models.UserRole
	if err := r.db.WithContext(ctx).Where("role = ?", role).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}
