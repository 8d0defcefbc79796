// internal/domain/models/group.go
package models

import "time"

// Group is a working group. Groups form a tree through ParentGroupID;
// the store rejects parent assignments that would introduce a cycle.
type Group struct {
	ID            int64   `bson:"_id" json:"id"`
	Name          string  `bson:"name" json:"name"`
	NameCI        string  `bson:"name_ci" json:"-"`
	Description   *string `bson:"description" json:"description"`
	IsActive      bool    `bson:"is_active" json:"is_active"`
	ParentGroupID *int64  `bson:"parent_group_id" json:"parent_group_id"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// GroupMember joins a member to a group with a role and a tenure.
//
// Active mirrors EndDate == nil. It backs the partial unique index that
// allows at most one open membership per (group, member) pair while
// keeping closed tenures as history.
type GroupMember struct {
	ID        int64 `bson:"_id" json:"id"`
	GroupID   int64 `bson:"group_id" json:"group_id"`
	MemberID  int64 `bson:"member_id" json:"member_id"`
	RoleID    int64 `bson:"role_id" json:"role_id"`
	StartDate Date  `bson:"start_date" json:"start_date"`
	EndDate   *Date `bson:"end_date" json:"end_date"`
	Active    bool  `bson:"active" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}
