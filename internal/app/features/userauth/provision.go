// internal/app/features/userauth/provision.go
package userauth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	institutionstore "github.com/dalemusser/phonebook/internal/app/store/institutions"
	memberstore "github.com/dalemusser/phonebook/internal/app/store/members"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"go.uber.org/zap"
)

// UnknownCountry is recorded for institutions created from an IdP name.
const UnknownCountry = "Unknown"

// resolveMember finds the member for c or provisions one. A member created
// through the API with the same email and no linked identity is linked to
// c's subject instead of being duplicated.
func (h *Handler) resolveMember(ctx context.Context, r *http.Request, c *Claims) (models.Member, error) {
	m, ok, err := h.Members.GetBySubject(ctx, c.Subject)
	if err != nil || ok {
		return m, err
	}

	m, ok, err = h.Members.GetByEmail(ctx, c.Email)
	if err != nil {
		return models.Member{}, err
	}
	if ok && m.Subject() == "" {
		return h.link(ctx, m, c)
	}

	inst, err := h.resolveInstitution(ctx, r, c)
	if err != nil {
		return models.Member{}, err
	}

	first, last := names(c)
	in := memberstore.Input{
		FirstName:     first,
		LastName:      last,
		Email:         c.Email,
		InstitutionID: inst.ID,
		ExperimentalData: map[string]any{
			models.ExperimentalSubject: c.Subject,
			models.ExperimentalIdPName: c.IdPName,
		},
	}
	if c.ORCID != "" {
		in.ORCID = &c.ORCID
	}

	m, err = h.Members.Create(ctx, in)
	if errors.Is(err, memberstore.ErrDuplicateSubject) {
		// A concurrent callback for the same subject won the insert.
		m, _, err = h.Members.GetBySubject(ctx, c.Subject)
		return m, err
	}
	if err != nil {
		return models.Member{}, err
	}
	h.Metrics.ObserveLogin(outcomeProvisioned)
	h.AuditLog.MemberProvisioned(ctx, r, m.ID, inst.ID, c.Subject, m.Email)
	h.Log.Info("member provisioned from login",
		zap.Int64("member_id", m.ID),
		zap.Int64("institution_id", inst.ID),
		zap.String("sub", c.Subject))
	return m, nil
}

func (h *Handler) link(ctx context.Context, m models.Member, c *Claims) (models.Member, error) {
	data := map[string]any{}
	for k, v := range m.ExperimentalData {
		data[k] = v
	}
	data[models.ExperimentalSubject] = c.Subject
	data[models.ExperimentalIdPName] = c.IdPName

	linked, err := h.Members.Update(ctx, m.ID, memberstore.Patch{ExperimentalData: patch.Set(data)})
	if err != nil {
		return models.Member{}, err
	}
	h.Log.Info("linked identity to existing member",
		zap.Int64("member_id", m.ID), zap.String("sub", c.Subject))
	return linked, nil
}

// resolveInstitution matches the IdP by entity id and then by name, and
// creates an institution when neither matches.
func (h *Handler) resolveInstitution(ctx context.Context, r *http.Request, c *Claims) (models.Institution, error) {
	inst, ok, err := h.Institutions.FindForIdP(ctx, c.IdP, c.IdPName)
	if err != nil || ok {
		return inst, err
	}

	name := truncate(strings.TrimSpace(c.IdPName), models.FullNameMaxLen)
	if name == "" {
		name = institutionstore.DefaultName
		// The default institution is shared, never tied to one IdP.
		inst, ok, err = h.Institutions.FindForIdP(ctx, "", name)
		if err != nil || ok {
			return inst, err
		}
	}

	in := institutionstore.Input{
		FullName:  name,
		ShortName: name,
		Country:   UnknownCountry,
	}
	if name != institutionstore.DefaultName {
		in.EntityID = c.IdP
	}
	inst, err = h.Institutions.Create(ctx, in)
	if err != nil {
		return models.Institution{}, err
	}
	h.AuditLog.InstitutionProvisioned(ctx, r, inst.ID, inst.FullName)
	return inst, nil
}

// names maps the name claims onto first and last name, splitting the
// display name when the given and family names are absent.
func names(c *Claims) (first, last string) {
	first, last = strings.TrimSpace(c.GivenName), strings.TrimSpace(c.FamilyName)
	if first != "" || last != "" {
		return first, last
	}
	parts := strings.Fields(c.Name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
