// internal/domain/models/conference.go
package models

import "time"

// Conference owns the talks given at it.
type Conference struct {
	ID        int64   `bson:"_id" json:"id"`
	Name      string  `bson:"name" json:"name"`
	Location  *string `bson:"location" json:"location"`
	StartDate Date    `bson:"start_date" json:"start_date"`
	EndDate   *Date   `bson:"end_date" json:"end_date"`
	URL       *string `bson:"url" json:"url"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// Talk is a presentation slot at a conference.
type Talk struct {
	ID           int64   `bson:"_id" json:"id"`
	Title        string  `bson:"title" json:"title"`
	DocDBID      *string `bson:"docdb_id" json:"docdb_id"`
	TalkLink     *string `bson:"talk_link" json:"talk_link"`
	StartDate    Date    `bson:"start_date" json:"start_date"`
	EndDate      *Date   `bson:"end_date" json:"end_date"`
	ConferenceID *int64  `bson:"conference_id" json:"conference_id"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// TalkAssignment gives a talk to a member. AssignedByID, when set, is the
// member who made the assignment.
type TalkAssignment struct {
	ID             int64  `bson:"_id" json:"id"`
	TalkID         int64  `bson:"talk_id" json:"talk_id"`
	MemberID       int64  `bson:"member_id" json:"member_id"`
	RoleID         int64  `bson:"role_id" json:"role_id"`
	AssignedByID   *int64 `bson:"assigned_by_id" json:"assigned_by_id"`
	AssignmentDate Date   `bson:"assignment_date" json:"assignment_date"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}
