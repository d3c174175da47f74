package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByUserID struct {
	UserID uuid.UUID
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// PurchaseOfType matches purchases of one product type, e.g. lifetime_unlock.
type PurchaseOfType struct {
	Type string
}

func (s PurchaseOfType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("type = ?", s.Type)
}
