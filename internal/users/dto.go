package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// UserView is the public shape of a user, safe for API responses.
type UserView struct {
	ID        uuid.UUID        `json:"id"`
	Email     string           `json:"email"`
	FullName  string           `json:"full_name"`
	Role      enums.MemberRole `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
}

// FromModel maps a user model to its public view.
func FromModel(user *models.User) UserView {
	return UserView{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
