package store

import (
	"context"

	"github.com/go-authgate/codegrant/internal/models"

	"gorm.io/gorm"
)

// GetClient returns the client registered under clientID.
func (s *Store) GetClient(ctx context.Context, clientID string) (*models.OAuthClient, error) {
	var client models.OAuthClient
	err := s.run(ctx, "get_client", func(db *gorm.DB) error {
		return db.Where("client_id = ?", clientID).First(&client).Error
	})
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Store) CreateClient(ctx context.Context, client *models.OAuthClient) error {
	return s.run(ctx, "create_client", func(db *gorm.DB) error {
		return db.Create(client).Error
	})
}
