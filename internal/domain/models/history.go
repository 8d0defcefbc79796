// internal/domain/models/history.go
package models

import "time"

// MemberInstitutionHistory is an append-only record of a past affiliation.
// A row is written when a member moves to a different institution and is
// never updated afterwards.
type MemberInstitutionHistory struct {
	ID            int64 `bson:"_id" json:"id"`
	MemberID      int64 `bson:"member_id" json:"member_id"`
	InstitutionID int64 `bson:"institution_id" json:"institution_id"`
	StartDate     Date  `bson:"start_date" json:"start_date"`
	EndDate       *Date `bson:"end_date" json:"end_date"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
}
