// internal/domain/models/boardmember.go
package models

import (
	"fmt"
	"time"
)

// BoardType names the board an InstitutionalBoardMember sits on.
type BoardType string

const (
	BoardInstitutional BoardType = "institutional"
	BoardExecutive     BoardType = "executive"
	BoardPublication   BoardType = "publication"
	BoardTalks         BoardType = "talks"
)

// BoardTypes lists every accepted board type.
var BoardTypes = []BoardType{BoardInstitutional, BoardExecutive, BoardPublication, BoardTalks}

// Valid reports whether b is one of BoardTypes.
func (b BoardType) Valid() bool {
	for _, t := range BoardTypes {
		if b == t {
			return true
		}
	}
	return false
}

// ParseBoardType validates a board type string.
func ParseBoardType(s string) (BoardType, error) {
	b := BoardType(s)
	if !b.Valid() {
		return "", fmt.Errorf("unknown board_type %q", s)
	}
	return b, nil
}

// InstitutionalBoardMember seats a member on one of the collaboration boards
// on behalf of an institution.
type InstitutionalBoardMember struct {
	ID            int64     `bson:"_id" json:"id"`
	MemberID      int64     `bson:"member_id" json:"member_id"`
	InstitutionID int64     `bson:"institution_id" json:"institution_id"`
	BoardType     BoardType `bson:"board_type" json:"board_type"`
	RoleID        int64     `bson:"role_id" json:"role_id"`
	StartDate     Date      `bson:"start_date" json:"start_date"`
	EndDate       *Date     `bson:"end_date" json:"end_date"`
	IsChair       bool      `bson:"is_chair" json:"is_chair"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}
