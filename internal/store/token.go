package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-authgate/codegrant/internal/models"

	"gorm.io/gorm"
)

// insertTokens persists an access token and its optional refresh token.
func insertTokens(tx *gorm.DB, access *models.AccessToken, refresh *models.RefreshToken) error {
	if err := tx.Create(access).Error; err != nil {
		return err
	}
	if refresh != nil {
		return tx.Create(refresh).Error
	}
	return nil
}

func (s *Store) GetAccessTokenByID(ctx context.Context, id string) (*models.AccessToken, error) {
	var t models.AccessToken
	err := s.run(ctx, "get_access_token", func(db *gorm.DB) error {
		return db.Where("id = ?", id).First(&t).Error
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetRefreshTokenByID(ctx context.Context, id string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := s.run(ctx, "get_refresh_token", func(db *gorm.DB) error {
		return db.Where("id = ?", id).First(&t).Error
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// IsTokenRevoked reports whether the access or refresh token with the given
// id is revoked. Unknown ids count as revoked.
func (s *Store) IsTokenRevoked(ctx context.Context, id string) (bool, error) {
	var revoked bool
	err := s.run(ctx, "is_token_revoked", func(db *gorm.DB) error {
		var access models.AccessToken
		err := db.Select("id", "revoked_at").Where("id = ?", id).Take(&access).Error
		if err == nil {
			revoked = access.IsRevoked()
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var refresh models.RefreshToken
		err = db.Select("id", "revoked_at").Where("id = ?", id).Take(&refresh).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			revoked = true
			return nil
		}
		if err != nil {
			return err
		}
		revoked = refresh.IsRevoked()
		return nil
	})
	return revoked, err
}

// RotateRefreshToken revokes the old refresh token and its access token and
// stores the replacements. A refresh token can be rotated at most once;
// losers of a race receive ErrTokenAlreadyRevoked.
func (s *Store) RotateRefreshToken(
	ctx context.Context,
	old *models.RefreshToken,
	access *models.AccessToken,
	refresh *models.RefreshToken,
) error {
	return s.runOnce(ctx, "rotate_refresh_token", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			now := time.Now()
			result := tx.Model(&models.RefreshToken{}).
				Where("id = ? AND revoked_at IS NULL", old.ID).
				Update("revoked_at", now)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrTokenAlreadyRevoked
			}
			if err := tx.Model(&models.AccessToken{}).
				Where("id = ? AND revoked_at IS NULL", old.AccessTokenID).
				Update("revoked_at", now).Error; err != nil {
				return err
			}
			return insertTokens(tx, access, refresh)
		})
	})
}

// CleanupResult counts the rows removed by DeleteExpired.
type CleanupResult struct {
	AuthorizationCodes int64
	AccessTokens       int64
	RefreshTokens      int64
}

// DeleteExpired removes expired codes and tokens.
func (s *Store) DeleteExpired(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult
	now := time.Now()
	err := s.run(ctx, "delete_expired", func(db *gorm.DB) error {
		codes := db.Where("expires_at < ?", now).Delete(&models.AuthorizationCode{})
		if codes.Error != nil {
			return codes.Error
		}
		res.AuthorizationCodes = codes.RowsAffected

		refresh := db.Where("expires_at < ?", now).Delete(&models.RefreshToken{})
		if refresh.Error != nil {
			return refresh.Error
		}
		res.RefreshTokens = refresh.RowsAffected

		// Keep access rows still referenced by a live refresh token so that
		// rotation can revoke them.
		access := db.Where("expires_at < ?", now).
			Where("id NOT IN (?)", db.Model(&models.RefreshToken{}).Select("access_token_id")).
			Delete(&models.AccessToken{})
		if access.Error != nil {
			return access.Error
		}
		res.AccessTokens = access.RowsAffected
		return nil
	})
	return res, err
}
