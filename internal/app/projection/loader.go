// internal/app/projection/loader.go
package projection

import (
	"context"

	assignmentstore "github.com/dalemusser/phonebook/internal/app/store/assignments"
	boardstore "github.com/dalemusser/phonebook/internal/app/store/boardmembers"
	groupstore "github.com/dalemusser/phonebook/internal/app/store/groups"
	historystore "github.com/dalemusser/phonebook/internal/app/store/history"
	institutionstore "github.com/dalemusser/phonebook/internal/app/store/institutions"
	memberstore "github.com/dalemusser/phonebook/internal/app/store/members"
	membershipstore "github.com/dalemusser/phonebook/internal/app/store/memberships"
	rolestore "github.com/dalemusser/phonebook/internal/app/store/roles"
	talkstore "github.com/dalemusser/phonebook/internal/app/store/talks"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Loader resolves the related rows a Full shape embeds. Related rows are
// fetched in one query per collection and joined in memory.
//
// A reference that no longer resolves is rendered as null and logged; it
// does not fail the response.
type Loader struct {
	institutions *institutionstore.Store
	members      *memberstore.Store
	history      *historystore.Store
	roles        *rolestore.Store
	groups       *groupstore.Store
	memberships  *membershipstore.Store
	boards       *boardstore.Store
	talks        *talkstore.Store
	assignments  *assignmentstore.Store
	log          *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Loader {
	return &Loader{
		institutions: institutionstore.New(db, log),
		members:      memberstore.New(db, log),
		history:      historystore.New(db),
		roles:        rolestore.New(db, log),
		groups:       groupstore.New(db, log),
		memberships:  membershipstore.New(db, log),
		boards:       boardstore.New(db, log),
		talks:        talkstore.New(db, log),
		assignments:  assignmentstore.New(db, log),
		log:          log,
	}
}

// idSet collects distinct ids in first-seen order.
type idSet struct {
	seen map[int64]bool
	ids  []int64
}

func (s *idSet) add(id int64) {
	if id <= 0 {
		return
	}
	if s.seen == nil {
		s.seen = map[int64]bool{}
	}
	if !s.seen[id] {
		s.seen[id] = true
		s.ids = append(s.ids, id)
	}
}

func (s *idSet) addPtr(id *int64) {
	if id != nil {
		s.add(*id)
	}
}

func (l *Loader) dangling(kind string, id int64) {
	l.log.Warn("projection: dangling reference", zap.String("kind", kind), zap.Int64("id", id))
}

func (l *Loader) memberLite(m map[int64]models.Member, id int64) *MemberLite {
	v, ok := m[id]
	if !ok {
		l.dangling("member", id)
		return nil
	}
	return &MemberLite{v}
}

func (l *Loader) institutionLite(m map[int64]models.Institution, id int64) *InstitutionLite {
	v, ok := m[id]
	if !ok {
		l.dangling("institution", id)
		return nil
	}
	return &InstitutionLite{v}
}

func (l *Loader) groupLite(m map[int64]models.Group, id int64) *GroupLite {
	v, ok := m[id]
	if !ok {
		l.dangling("group", id)
		return nil
	}
	return &GroupLite{v}
}

func (l *Loader) role(m map[int64]models.Role, id int64) *Role {
	v, ok := m[id]
	if !ok {
		l.dangling("role", id)
		return nil
	}
	return &v
}

// GroupMembers attaches group, member and role to each membership.
func (l *Loader) GroupMembers(ctx context.Context, gms []models.GroupMember) ([]GroupMemberView, error) {
	var gids, mids, rids idSet
	for _, gm := range gms {
		gids.add(gm.GroupID)
		mids.add(gm.MemberID)
		rids.add(gm.RoleID)
	}
	groups, err := l.groups.GetByIDs(ctx, gids.ids)
	if err != nil {
		return nil, err
	}
	members, err := l.members.GetByIDs(ctx, mids.ids)
	if err != nil {
		return nil, err
	}
	roles, err := l.roles.GetByIDs(ctx, rids.ids)
	if err != nil {
		return nil, err
	}
	out := make([]GroupMemberView, len(gms))
	for i, gm := range gms {
		out[i] = GroupMemberView{
			GroupMember: gm,
			Group:       l.groupLite(groups, gm.GroupID),
			Member:      l.memberLite(members, gm.MemberID),
			Role:        l.role(roles, gm.RoleID),
		}
	}
	return out, nil
}

func (l *Loader) GroupMember(ctx context.Context, gm models.GroupMember) (GroupMemberView, error) {
	out, err := l.GroupMembers(ctx, []models.GroupMember{gm})
	if err != nil {
		return GroupMemberView{}, err
	}
	return out[0], nil
}

// BoardMembers attaches member, institution and role to each board seat.
func (l *Loader) BoardMembers(ctx context.Context, bms []models.InstitutionalBoardMember) ([]BoardMemberView, error) {
	var mids, iids, rids idSet
	for _, bm := range bms {
		mids.add(bm.MemberID)
		iids.add(bm.InstitutionID)
		rids.add(bm.RoleID)
	}
	members, err := l.members.GetByIDs(ctx, mids.ids)
	if err != nil {
		return nil, err
	}
	insts, err := l.institutions.GetByIDs(ctx, iids.ids)
	if err != nil {
		return nil, err
	}
	roles, err := l.roles.GetByIDs(ctx, rids.ids)
	if err != nil {
		return nil, err
	}
	out := make([]BoardMemberView, len(bms))
	for i, bm := range bms {
		out[i] = BoardMemberView{
			InstitutionalBoardMember: bm,
			Member:                   l.memberLite(members, bm.MemberID),
			Institution:              l.institutionLite(insts, bm.InstitutionID),
			Role:                     l.role(roles, bm.RoleID),
		}
	}
	return out, nil
}

func (l *Loader) BoardMember(ctx context.Context, bm models.InstitutionalBoardMember) (BoardMemberView, error) {
	out, err := l.BoardMembers(ctx, []models.InstitutionalBoardMember{bm})
	if err != nil {
		return BoardMemberView{}, err
	}
	return out[0], nil
}

// Assignments attaches the assignee, the assigner and the role.
func (l *Loader) Assignments(ctx context.Context, tas []models.TalkAssignment) ([]TalkAssignmentView, error) {
	var mids, rids idSet
	for _, ta := range tas {
		mids.add(ta.MemberID)
		mids.addPtr(ta.AssignedByID)
		rids.add(ta.RoleID)
	}
	members, err := l.members.GetByIDs(ctx, mids.ids)
	if err != nil {
		return nil, err
	}
	roles, err := l.roles.GetByIDs(ctx, rids.ids)
	if err != nil {
		return nil, err
	}
	out := make([]TalkAssignmentView, len(tas))
	for i, ta := range tas {
		v := TalkAssignmentView{
			TalkAssignment: ta,
			Member:         l.memberLite(members, ta.MemberID),
			Role:           l.role(roles, ta.RoleID),
		}
		if ta.AssignedByID != nil {
			v.AssignedBy = l.memberLite(members, *ta.AssignedByID)
		}
		out[i] = v
	}
	return out, nil
}

func (l *Loader) Assignment(ctx context.Context, ta models.TalkAssignment) (TalkAssignmentView, error) {
	out, err := l.Assignments(ctx, []models.TalkAssignment{ta})
	if err != nil {
		return TalkAssignmentView{}, err
	}
	return out[0], nil
}

func (l *Loader) History(ctx context.Context, hs []models.MemberInstitutionHistory) ([]HistoryView, error) {
	var mids, iids idSet
	for _, h := range hs {
		mids.add(h.MemberID)
		iids.add(h.InstitutionID)
	}
	members, err := l.members.GetByIDs(ctx, mids.ids)
	if err != nil {
		return nil, err
	}
	insts, err := l.institutions.GetByIDs(ctx, iids.ids)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryView, len(hs))
	for i, h := range hs {
		out[i] = HistoryView{
			MemberInstitutionHistory: h,
			Member:                   l.memberLite(members, h.MemberID),
			Institution:              l.institutionLite(insts, h.InstitutionID),
		}
	}
	return out, nil
}

func (l *Loader) Institution(ctx context.Context, inst models.Institution) (InstitutionFull, error) {
	members, err := l.members.ByInstitution(ctx, inst.ID)
	if err != nil {
		return InstitutionFull{}, err
	}
	seats, err := l.boards.ByInstitution(ctx, inst.ID)
	if err != nil {
		return InstitutionFull{}, err
	}
	boards, err := l.BoardMembers(ctx, seats)
	if err != nil {
		return InstitutionFull{}, err
	}
	past, err := l.history.ListByInstitution(ctx, inst.ID)
	if err != nil {
		return InstitutionFull{}, err
	}
	history, err := l.History(ctx, past)
	if err != nil {
		return InstitutionFull{}, err
	}
	return InstitutionFull{
		Institution:      inst,
		Members:          MemberLites(members),
		BoardMemberships: boards,
		History:          history,
	}, nil
}

func (l *Loader) Member(ctx context.Context, m models.Member) (MemberFull, error) {
	insts, err := l.institutions.GetByIDs(ctx, []int64{m.InstitutionID})
	if err != nil {
		return MemberFull{}, err
	}
	rows, err := l.memberships.ByMember(ctx, m.ID)
	if err != nil {
		return MemberFull{}, err
	}
	groups, err := l.GroupMembers(ctx, rows)
	if err != nil {
		return MemberFull{}, err
	}
	seats, err := l.boards.ByMember(ctx, m.ID)
	if err != nil {
		return MemberFull{}, err
	}
	boards, err := l.BoardMembers(ctx, seats)
	if err != nil {
		return MemberFull{}, err
	}
	mine, err := l.assignments.ByMember(ctx, m.ID)
	if err != nil {
		return MemberFull{}, err
	}
	given, err := l.assignments.ByAssigner(ctx, m.ID)
	if err != nil {
		return MemberFull{}, err
	}
	assigned, err := l.Assignments(ctx, append(mine, given...))
	if err != nil {
		return MemberFull{}, err
	}
	return MemberFull{
		Member:               m,
		Institution:          l.institutionLite(insts, m.InstitutionID),
		GroupMemberships:     groups,
		BoardMemberships:     boards,
		TalkAssignments:      assigned[:len(mine):len(mine)],
		TalkAssignmentsGiven: assigned[len(mine):],
	}, nil
}

// NewMemberPage wraps one page of members with the unpaged total.
func NewMemberPage(ms []models.Member, total int64, page paging.Page) MemberPage {
	return MemberPage{Items: MemberLites(ms), Total: total, Skip: page.Skip, Limit: page.Limit}
}

func (l *Loader) Group(ctx context.Context, g models.Group) (GroupFull, error) {
	out := GroupFull{Group: g}
	if g.ParentGroupID != nil {
		parents, err := l.groups.GetByIDs(ctx, []int64{*g.ParentGroupID})
		if err != nil {
			return GroupFull{}, err
		}
		out.ParentGroup = l.groupLite(parents, *g.ParentGroupID)
	}
	children, err := l.groups.Children(ctx, g.ID)
	if err != nil {
		return GroupFull{}, err
	}
	out.Subgroups = GroupLites(children)
	rows, err := l.memberships.ByGroup(ctx, g.ID)
	if err != nil {
		return GroupFull{}, err
	}
	if out.GroupMemberships, err = l.GroupMembers(ctx, rows); err != nil {
		return GroupFull{}, err
	}
	return out, nil
}

// Talks loads the assignments of several talks in one pass.
func (l *Loader) Talks(ctx context.Context, ts []models.Talk) ([]TalkFull, error) {
	out := make([]TalkFull, len(ts))
	var all []models.TalkAssignment
	counts := make([]int, len(ts))
	for i, t := range ts {
		rows, err := l.assignments.ByTalk(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		counts[i] = len(rows)
		all = append(all, rows...)
	}
	views, err := l.Assignments(ctx, all)
	if err != nil {
		return nil, err
	}
	for i, t := range ts {
		out[i] = TalkFull{Talk: t, Assignments: views[:counts[i]:counts[i]]}
		views = views[counts[i]:]
	}
	return out, nil
}

func (l *Loader) Talk(ctx context.Context, t models.Talk) (TalkFull, error) {
	out, err := l.Talks(ctx, []models.Talk{t})
	if err != nil {
		return TalkFull{}, err
	}
	return out[0], nil
}

func (l *Loader) Conference(ctx context.Context, c models.Conference) (ConferenceFull, error) {
	ts, err := l.talks.ByConference(ctx, c.ID)
	if err != nil {
		return ConferenceFull{}, err
	}
	talks, err := l.Talks(ctx, ts)
	if err != nil {
		return ConferenceFull{}, err
	}
	return ConferenceFull{Conference: c, Talks: talks}, nil
}
