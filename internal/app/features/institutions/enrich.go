// internal/app/features/institutions/enrich.go
package institutions

import (
	"strings"

	institutionstore "github.com/dalemusser/phonebook/internal/app/store/institutions"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/ror"
	"github.com/dalemusser/phonebook/internal/domain/models"
)

// overlay writes every non-nil registry field into p. Registry values win
// over what the caller sent for the same field; fields the registry leaves
// nil keep the caller's value or stay absent. Registry names longer than
// models.FullNameMaxLen are cut to fit.
func overlay(p *institutionstore.Patch, org *ror.Organization) {
	if org.FullName != nil {
		p.FullName = patch.Set(truncate(*org.FullName, models.FullNameMaxLen))
	}
	set(&p.ShortName, org.ShortName)
	set(&p.Country, org.Country)
	set(&p.Region, org.Region)
	set(&p.City, org.City)
	set(&p.Address, org.Address)
	set(&p.Latitude, org.Latitude)
	set(&p.Longitude, org.Longitude)
}

func set[T any](dst *patch.Field[T], v *T) {
	if v != nil {
		*dst = patch.Set(*v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
