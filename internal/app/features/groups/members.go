// internal/app/features/groups/members.go
package groups

import (
	"context"
	"net/http"
	"strconv"

	membershipstore "github.com/dalemusser/phonebook/internal/app/store/memberships"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"github.com/dalemusser/phonebook/internal/domain/models"
)

func (h *Handler) writeMembership(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, gm models.GroupMember) {
	v, err := h.Views.GroupMember(ctx, gm)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, status, v)
}

// ServeGroupMembers handles GET /groups/{id}/members?role_id=.
func (h *Handler) ServeGroupMembers(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	page, err := paging.Parse(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	f := membershipstore.Filter{GroupID: &id}
	if f.RoleID, err = jsonio.QueryID(r, "role_id"); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.members")
	defer cancel()

	if _, err := h.Groups.Get(ctx, id); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	rows, err := h.Memberships.List(ctx, f, page)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	views, err := h.Views.GroupMembers(ctx, rows)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, views)
}

// HandleAddMember handles POST /groups/{id}/members. A group_id in the body
// must match the path.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var in membershipstore.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if in.GroupID != 0 && in.GroupID != id {
		jsonio.Error(w, r, h.Log, apperr.Validation("group_id %d in body does not match group %d in path", in.GroupID, id))
		return
	}
	in.GroupID = id

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.addmember")
	defer cancel()

	gm, err := h.Memberships.Create(ctx, in)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.EntityCreated(ctx, r, refs.GroupMembers, gm.ID, map[string]string{
		"group_id":  strconv.FormatInt(gm.GroupID, 10),
		"member_id": strconv.FormatInt(gm.MemberID, 10),
	})
	h.writeMembership(ctx, w, r, http.StatusCreated, gm)
}

// HandleUpdateMembership handles PUT and PATCH /groups/group-members/{gmID}.
func (h *Handler) HandleUpdateMembership(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "gmID")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var p membershipstore.Patch
	if err := jsonio.Decode(w, r, &p); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.updatemember")
	defer cancel()

	gm, err := h.Memberships.Update(ctx, id, p)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if fields := patch.Present(p); len(fields) > 0 {
		h.AuditLog.EntityUpdated(ctx, r, refs.GroupMembers, id, fields)
	}
	h.writeMembership(ctx, w, r, http.StatusOK, gm)
}

// HandleDeleteMembership handles DELETE /groups/group-members/{gmID}.
func (h *Handler) HandleDeleteMembership(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "gmID")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.removemember")
	defer cancel()

	ok, err := h.Memberships.Delete(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if !ok {
		jsonio.Error(w, r, h.Log, apperr.NotFound("group member %d not found", id))
		return
	}
	h.AuditLog.EntityDeleted(ctx, r, refs.GroupMembers, id)
	jsonio.NoContent(w)
}
