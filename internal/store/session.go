package store

import (
	"context"
	"time"

	"github.com/go-authgate/codegrant/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertSession returns the session for the owner/client triple, creating it
// on first grant and touching updated_at on later grants.
func (s *Store) UpsertSession(
	ctx context.Context,
	ownerModel, ownerID, clientID string,
) (*models.Session, error) {
	var sess *models.Session
	err := s.run(ctx, "upsert_session", func(db *gorm.DB) error {
		var err error
		sess, err = upsertSession(db, ownerModel, ownerID, clientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func upsertSession(db *gorm.DB, ownerModel, ownerID, clientID string) (*models.Session, error) {
	candidate := models.Session{
		OwnerModel: ownerModel,
		OwnerID:    ownerID,
		ClientID:   clientID,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "owner_model"},
			{Name: "owner_id"},
			{Name: "client_id"},
		},
		DoUpdates: clause.Assignments(map[string]any{"updated_at": time.Now()}),
	}).Create(&candidate).Error; err != nil {
		return nil, err
	}
	var sess models.Session
	if err := db.Where("owner_model = ? AND owner_id = ? AND client_id = ?",
		ownerModel, ownerID, clientID).First(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

// activeSessionTokens scopes a query to unexpired, unrevoked access tokens of
// the owner/client session.
func activeSessionTokens(db *gorm.DB, ownerModel, ownerID, clientID string) *gorm.DB {
	return db.Model(&models.AccessToken{}).
		Joins("JOIN oauth_sessions ON oauth_sessions.id = oauth_access_tokens.session_id").
		Where("oauth_sessions.owner_model = ? AND oauth_sessions.owner_id = ? AND oauth_sessions.client_id = ?",
			ownerModel, ownerID, clientID).
		Where("oauth_access_tokens.expires_at > ? AND oauth_access_tokens.revoked_at IS NULL", time.Now())
}

// CountActiveSessionTokens counts unexpired, unrevoked access tokens of the session.
func (s *Store) CountActiveSessionTokens(
	ctx context.Context,
	ownerModel, ownerID, clientID string,
) (int64, error) {
	var count int64
	err := s.run(ctx, "count_active_session_tokens", func(db *gorm.DB) error {
		return activeSessionTokens(db, ownerModel, ownerID, clientID).Count(&count).Error
	})
	return count, err
}

// ActiveSessionScopes returns the scope strings of every active access token
// of the session.
func (s *Store) ActiveSessionScopes(
	ctx context.Context,
	ownerModel, ownerID, clientID string,
) ([]string, error) {
	var scopes []string
	err := s.run(ctx, "active_session_scopes", func(db *gorm.DB) error {
		scopes = scopes[:0]
		return activeSessionTokens(db, ownerModel, ownerID, clientID).
			Pluck("oauth_access_tokens.scopes", &scopes).Error
	})
	return scopes, err
}

// RevokeSessionTokens revokes every access and refresh token of the session
// and returns the ids that changed state.
func (s *Store) RevokeSessionTokens(
	ctx context.Context,
	ownerModel, ownerID, clientID string,
) ([]string, error) {
	var revoked []string
	err := s.run(ctx, "revoke_session_tokens", func(db *gorm.DB) error {
		revoked = revoked[:0]
		return db.Transaction(func(tx *gorm.DB) error {
			var sess models.Session
			err := tx.Where("owner_model = ? AND owner_id = ? AND client_id = ?",
				ownerModel, ownerID, clientID).First(&sess).Error
			if err != nil {
				return err
			}

			var accessIDs []string
			if err := tx.Model(&models.AccessToken{}).
				Where("session_id = ? AND revoked_at IS NULL", sess.ID).
				Pluck("id", &accessIDs).Error; err != nil {
				return err
			}

			var allAccessIDs []string
			if err := tx.Model(&models.AccessToken{}).
				Where("session_id = ?", sess.ID).
				Pluck("id", &allAccessIDs).Error; err != nil {
				return err
			}

			var refreshIDs []string
			if len(allAccessIDs) > 0 {
				if err := tx.Model(&models.RefreshToken{}).
					Where("access_token_id IN ? AND revoked_at IS NULL", allAccessIDs).
					Pluck("id", &refreshIDs).Error; err != nil {
					return err
				}
			}

			now := time.Now()
			if len(accessIDs) > 0 {
				if err := tx.Model(&models.AccessToken{}).
					Where("id IN ? AND revoked_at IS NULL", accessIDs).
					Update("revoked_at", now).Error; err != nil {
					return err
				}
			}
			if len(refreshIDs) > 0 {
				if err := tx.Model(&models.RefreshToken{}).
					Where("id IN ? AND revoked_at IS NULL", refreshIDs).
					Update("revoked_at", now).Error; err != nil {
					return err
				}
			}

			revoked = append(revoked, accessIDs...)
			revoked = append(revoked, refreshIDs...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return revoked, nil
}
