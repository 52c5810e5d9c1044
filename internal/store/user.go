package store

import (
	"context"
	"errors"

	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/models"

	"gorm.io/gorm"
)

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.run(ctx, "get_user", func(db *gorm.DB) error {
		return db.Where("id = ?", id).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.run(ctx, "create_user", func(db *gorm.DB) error {
		return db.Create(user).Error
	})
}

// FindOwner implements core.UserStore for the default owner model backed by
// the users table. Other owner models are unknown to this store.
func (s *Store) FindOwner(ctx context.Context, ownerModel, ownerID string) (*core.OwnerRecord, error) {
	if ownerModel != s.ownerModel {
		return nil, core.ErrOwnerNotFound
	}
	user, err := s.GetUserByID(ctx, ownerID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, core.ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &core.OwnerRecord{
		Model:    ownerModel,
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Attributes: map[string]any{
			"full_name": user.FullName,
		},
	}, nil
}
