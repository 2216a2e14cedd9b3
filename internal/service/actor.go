package service

import (
	"fmt"

	"machinery-backend/internal/model"
)

// Actor identifies who performs an operation. A nil UserID means the system itself.
type Actor struct {
	UserID *int64
	Name   string
	Role   model.Role
}

// SystemActor is used by scheduled jobs that act without a user.
var SystemActor = Actor{Name: "sistema"}

// UserActor builds the actor for an authenticated user.
func UserActor(u *model.User) Actor {
	id := u.ID
	return Actor{UserID: &id, Name: u.FullName(), Role: u.Role}
}

func (a Actor) IsSystem() bool { return a.UserID == nil }

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

func requireAdmin(a Actor, action string) error {
	if !a.IsAdmin() {
		return fmt.Errorf("%s requires the %s role: %w", action, model.RoleAdmin, model.ErrPermission)
	}
	return nil
}
