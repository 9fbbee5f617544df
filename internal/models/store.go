package models

import "time"

// Store approval workflow: every new store starts pending and only an
// admin moves it to approved or rejected. Checkout refuses lines whose
// store is not approved.
const (
	StoreStatusPending  = "pending"
	StoreStatusApproved = "approved"
	StoreStatusRejected = "rejected"
)

type Store struct {
	ID              uint   `gorm:"primaryKey"`
	OwnerID         uint   `gorm:"not null;index"`
	Owner           User   `gorm:"foreignKey:OwnerID"`
	Name            string `gorm:"size:100;not null"`
	Description     string
	Address         string
	Phone           string `gorm:"size:15"`
	Email           string
	Website         string
	ApprovalStatus  string `gorm:"size:20;not null;default:'pending';index"`
	Active          bool   `gorm:"not null;default:true"`
	ApprovedByID    *uint  // admin who approved; nil while pending/rejected
	ApprovalDate    *time.Time
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OwnerUserID implements policy.Ownable.
func (s *Store) OwnerUserID() uint { return s.OwnerID }

// Sellable reports whether products of this store may be purchased.
func (s *Store) Sellable() bool {
	return s.Active && s.ApprovalStatus == StoreStatusApproved
}

// FavoriteStore is a (user, store) bookmark; unique per pair.
type FavoriteStore struct {
	ID        uint  `gorm:"primaryKey"`
	UserID    uint  `gorm:"not null;index:idx_fav_user_store,unique,priority:1"`
	StoreID   uint  `gorm:"not null;index:idx_fav_user_store,unique,priority:2"`
	Store     Store `gorm:"foreignKey:StoreID"`
	CreatedAt time.Time
}
