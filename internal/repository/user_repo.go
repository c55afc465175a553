package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"schedulix/backend/internal/model"
	"schedulix/backend/internal/tenant"
)

// UserRepository login accounts
type UserRepository interface {
	Create(ctx context.Context, tid tenant.ID, user *model.User) error
	GetByID(ctx context.Context, tid tenant.ID, id string) (*model.User, error)
	// GetByEmail is unscoped: the tenant is unknown until the account is found.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, tid tenant.ID, role string, offset, limit int) ([]model.User, int64, error)
	TouchLastLogin(ctx context.Context, tid tenant.ID, id string, at time.Time) error
	UpdatePassword(ctx context.Context, tid tenant.ID, id, passwordHash string) error
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepo creates a UserRepository.
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, tid tenant.ID, user *model.User) error {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}
	user.TenantID = tid.String()
	return db.Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, tid tenant.ID, id string) (*model.User, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := db.Where("user_id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) List(ctx context.Context, tid tenant.ID, role string, offset, limit int) ([]model.User, int64, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, 0, err
	}

	var users []model.User
	var total int64

	q := db.Model(&model.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err = q.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

func (r *userRepo) TouchLastLogin(ctx context.Context, tid tenant.ID, id string, at time.Time) error {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}
	return db.Model(&model.User{}).
		Where("user_id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *userRepo) UpdatePassword(ctx context.Context, tid tenant.ID, id, passwordHash string) error {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}
	return db.Model(&model.User{}).
		Where("user_id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_by":    id,
			"version":       gorm.Expr("version + 1"),
		}).Error
}
