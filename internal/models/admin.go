package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
)

func (r Role) Valid() bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RoleModerator
}

type Admin struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`
	Password      string             `bson:"password" json:"-"`
	Role          Role               `bson:"role" json:"role"`
	Permissions   []string           `bson:"permissions" json:"permissions"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	LoginAttempts int                `bson:"loginAttempts" json:"-"`
	LockUntil     *time.Time         `bson:"lockUntil,omitempty" json:"-"`
	LastLogin     *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (a *Admin) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

func (a *Admin) HasPermission(p string) bool {
	for _, have := range a.Permissions {
		if have == p {
			return true
		}
	}
	return false
}
