// Package projection shapes stored entities for API responses.
//
// Every entity has a Lite shape (its own fields, nothing nested) and most
// have a Full shape. A Full shape embeds another Full shape only along an
// ownership edge with no way back (a conference owns its talks); every
// back-reference and every join entity carries Lite shapes instead. The
// choice is fixed per type pair, so serialization always terminates.
package projection

import "github.com/dalemusser/phonebook/internal/domain/models"

type InstitutionLite struct{ models.Institution }

type MemberLite struct{ models.Member }

type GroupLite struct{ models.Group }

type ConferenceLite struct{ models.Conference }

type TalkLite struct{ models.Talk }

// Roles have no relations, so the stored shape is the only shape.
type Role = models.Role

// GroupMemberView is a group membership with both ends and the role attached.
type GroupMemberView struct {
	models.GroupMember
	Group  *GroupLite  `json:"group"`
	Member *MemberLite `json:"member"`
	Role   *Role       `json:"role"`
}

type BoardMemberView struct {
	models.InstitutionalBoardMember
	Member      *MemberLite      `json:"member"`
	Institution *InstitutionLite `json:"institution"`
	Role        *Role            `json:"role"`
}

type HistoryView struct {
	models.MemberInstitutionHistory
	Member      *MemberLite      `json:"member"`
	Institution *InstitutionLite `json:"institution"`
}

// TalkAssignmentView names both members involved: the assignee and, when
// recorded, the member who made the assignment.
type TalkAssignmentView struct {
	models.TalkAssignment
	Member     *MemberLite `json:"member"`
	Role       *Role       `json:"role"`
	AssignedBy *MemberLite `json:"assigned_by_member"`
}

type InstitutionFull struct {
	models.Institution
	Members          []MemberLite      `json:"members"`
	BoardMemberships []BoardMemberView `json:"board_memberships"`
	History          []HistoryView     `json:"institution_memberships"`
}

type MemberFull struct {
	models.Member
	Institution          *InstitutionLite     `json:"institution"`
	GroupMemberships     []GroupMemberView    `json:"group_memberships"`
	BoardMemberships     []BoardMemberView    `json:"board_memberships"`
	TalkAssignments      []TalkAssignmentView `json:"talk_assignments"`
	TalkAssignmentsGiven []TalkAssignmentView `json:"talk_assignments_given"`
}

type GroupFull struct {
	models.Group
	ParentGroup      *GroupLite        `json:"parent_group"`
	Subgroups        []GroupLite       `json:"subgroups"`
	GroupMemberships []GroupMemberView `json:"group_memberships"`
}

// TalkFull carries the talk's assignments. It does not point back at its
// conference, which lets ConferenceFull embed it.
type TalkFull struct {
	models.Talk
	Assignments []TalkAssignmentView `json:"assignments"`
}

type ConferenceFull struct {
	models.Conference
	Talks []TalkFull `json:"talks"`
}

// MemberPage is one page of the member listing with the unpaged total.
type MemberPage struct {
	Items []MemberLite `json:"items"`
	Total int64        `json:"total"`
	Skip  int64        `json:"skip"`
	Limit int64        `json:"limit"`
}

func InstitutionLites(in []models.Institution) []InstitutionLite {
	out := make([]InstitutionLite, len(in))
	for i, v := range in {
		out[i] = InstitutionLite{v}
	}
	return out
}

func MemberLites(in []models.Member) []MemberLite {
	out := make([]MemberLite, len(in))
	for i, v := range in {
		out[i] = MemberLite{v}
	}
	return out
}

func GroupLites(in []models.Group) []GroupLite {
	out := make([]GroupLite, len(in))
	for i, v := range in {
		out[i] = GroupLite{v}
	}
	return out
}

func ConferenceLites(in []models.Conference) []ConferenceLite {
	out := make([]ConferenceLite, len(in))
	for i, v := range in {
		out[i] = ConferenceLite{v}
	}
	return out
}

func TalkLites(in []models.Talk) []TalkLite {
	out := make([]TalkLite, len(in))
	for i, v := range in {
		out[i] = TalkLite{v}
	}
	return out
}
