package service

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablewise/restaurant-api/internal/auth"
)

// Actor is the authenticated caller on whose behalf a service call runs.
type Actor struct {
	UserID   uuid.UUID
	Username string
	Role     string
}

func (a Actor) Can(c auth.Capability) bool {
	return auth.Can(a.Role, c)
}

// stamp is the value written to created_by/updated_by/deleted_by columns.
func (a Actor) stamp() pgtype.Text {
	if a.Username == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: a.Username, Valid: true}
}
