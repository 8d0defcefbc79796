// internal/domain/models/role.go
package models

import "time"

// Role is an admin-defined label ("chair", "convener", "speaker", ...)
// referenced by group memberships, board memberships and talk assignments.
type Role struct {
	ID          int64   `bson:"_id" json:"id"`
	Name        string  `bson:"name" json:"name"`
	NameCI      string  `bson:"name_ci" json:"-"`
	Description *string `bson:"description" json:"description"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// RoleNameMaxLen bounds Role.Name.
const RoleNameMaxLen = 50
