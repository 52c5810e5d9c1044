package store

import (
	"context"
	"time"

	"github.com/go-authgate/codegrant/internal/models"

	"gorm.io/gorm"
)

// CreateAuthorizationCode persists a freshly minted code.
func (s *Store) CreateAuthorizationCode(ctx context.Context, code *models.AuthorizationCode) error {
	return s.run(ctx, "create_authorization_code", func(db *gorm.DB) error {
		return db.Create(code).Error
	})
}

// GetAuthorizationCodeByHash looks up a code by the SHA-256 hash of its
// plaintext. Expired codes are deleted on sight and reported as not found.
func (s *Store) GetAuthorizationCodeByHash(
	ctx context.Context,
	codeHash string,
) (*models.AuthorizationCode, error) {
	var code models.AuthorizationCode
	err := s.run(ctx, "get_authorization_code", func(db *gorm.DB) error {
		return db.Where("code_hash = ?", codeHash).First(&code).Error
	})
	if err != nil {
		return nil, err
	}

	if code.IsExpired() {
		if err := s.run(ctx, "delete_authorization_code", func(db *gorm.DB) error {
			return db.Delete(&models.AuthorizationCode{}, code.ID).Error
		}); err != nil {
			s.logger.Warn("store.code.lazy_delete_failed", "code_prefix", code.CodePrefix, "error", err)
		} else {
			s.logger.Debug("store.code.expired_deleted", "code_prefix", code.CodePrefix)
		}
		return nil, ErrRecordNotFound
	}
	return &code, nil
}

// MarkAuthorizationCodeUsed atomically consumes the code. Exactly one caller
// wins; every other caller receives ErrAuthCodeAlreadyUsed.
func (s *Store) MarkAuthorizationCodeUsed(ctx context.Context, id uint) error {
	return s.runOnce(ctx, "mark_authorization_code_used", func(db *gorm.DB) error {
		return markCodeUsed(db, id)
	})
}

// TokenBuilder mints the tokens of an exchange once its session is known.
type TokenBuilder func(sess *models.Session) (*models.AccessToken, *models.RefreshToken, error)

// ExchangeAuthorizationCode consumes the code, upserts the owner/client
// session and stores the tokens built for it in one transaction. A failure
// at any step leaves the code unused.
func (s *Store) ExchangeAuthorizationCode(
	ctx context.Context,
	code *models.AuthorizationCode,
	build TokenBuilder,
) (*models.Session, error) {
	var sess *models.Session
	err := s.runOnce(ctx, "exchange_authorization_code", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			if err := markCodeUsed(tx, code.ID); err != nil {
				return err
			}
			var err error
			sess, err = upsertSession(tx, code.OwnerModel, code.OwnerID, code.ClientID)
			if err != nil {
				return err
			}
			access, refresh, err := build(sess)
			if err != nil {
				return err
			}
			return insertTokens(tx, access, refresh)
		})
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func markCodeUsed(db *gorm.DB, id uint) error {
	result := db.Model(&models.AuthorizationCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAuthCodeAlreadyUsed
	}
	return nil
}
