// internal/app/features/institutions/institution.go
package institutions

import (
	"context"
	"net/http"

	institutionstore "github.com/dalemusser/phonebook/internal/app/store/institutions"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"go.uber.org/zap"
)

func (h *Handler) writeFull(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, inst models.Institution) {
	full, err := h.Views.Institution(ctx, inst)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, status, full)
}

// ServeInstitution handles GET /institutions/{id}.
func (h *Handler) ServeInstitution(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "institutions.get")
	defer cancel()

	inst, err := h.Institutions.Get(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.writeFull(ctx, w, r, http.StatusOK, inst)
}

// HandleCreate handles POST /institutions. Create never calls the registry.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in institutionstore.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "institutions.create")
	defer cancel()

	inst, err := h.Institutions.Create(ctx, in)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.EntityCreated(ctx, r, refs.Institutions, inst.ID, map[string]string{"full_name": inst.FullName})
	h.writeFull(ctx, w, r, http.StatusCreated, inst)
}

// HandleUpdate handles PUT and PATCH /institutions/{id}. When the body sets
// rorid the institution must exist, then the registry record is fetched and
// layered over the patch; a failed lookup aborts the update with nothing
// written.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var p institutionstore.Patch
	if err := jsonio.Decode(w, r, &p); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "institutions.update")
	defer cancel()

	if rorID, ok := p.RORID.Value(); ok {
		if _, err := h.Institutions.Get(ctx, id); err != nil {
			jsonio.Error(w, r, h.Log, err)
			return
		}
		if h.Registry == nil {
			jsonio.Error(w, r, h.Log, apperr.Upstream(apperr.ErrUpstreamUnavailable, nil, "organization registry is not configured"))
			return
		}
		// The registry client carries its own timeout.
		org, err := h.Registry.Lookup(r.Context(), rorID)
		if err != nil {
			jsonio.Error(w, r, h.Log, err)
			return
		}
		overlay(&p, org)
		h.Log.Info("institution enriched from registry",
			zap.Int64("institution_id", id), zap.String("rorid", org.ID))
	}

	inst, err := h.Institutions.Update(ctx, id, p)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if fields := patch.Present(p); len(fields) > 0 {
		h.AuditLog.EntityUpdated(ctx, r, refs.Institutions, id, fields)
	}
	h.writeFull(ctx, w, r, http.StatusOK, inst)
}

// HandleDelete handles DELETE /institutions/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "institutions.delete")
	defer cancel()

	ok, err := h.Institutions.Delete(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if !ok {
		jsonio.Error(w, r, h.Log, apperr.NotFound("institution %d not found", id))
		return
	}
	h.AuditLog.EntityDeleted(ctx, r, refs.Institutions, id)
	jsonio.NoContent(w)
}
