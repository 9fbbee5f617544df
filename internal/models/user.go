package models

import "time"

// User account types. A store owner lists products, an admin reviews
// store applications, everyone else buys.
const (
	UserTypeCustomer   = "customer"
	UserTypeStoreOwner = "store_owner"
	UserTypeAdmin      = "admin"
)

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"unique;not null;index"`
	Password  string `gorm:"not null"` // bcrypt hash
	Name      string `gorm:"index"`
	Type      string `gorm:"not null;default:'customer';index"`
	Phone     string
	Address   string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsAdmin() bool      { return u.Type == UserTypeAdmin }
func (u *User) IsStoreOwner() bool { return u.Type == UserTypeStoreOwner }
