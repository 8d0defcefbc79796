// internal/domain/models/member.go
package models

import "time"

// Keys used inside Member.ExperimentalData by the login flow.
const (
	ExperimentalSubject = "sub"
	ExperimentalIdPName = "idp_name"
)

// Member is a person in the collaboration. A member belongs to exactly one
// current institution; earlier affiliations live in member_institution_history.
//
// ExperimentalData is an open key/value map. The login flow stores the
// identity provider subject id under "sub", and a partial unique index on
// experimental_data.sub keeps it unique across members.
type Member struct {
	ID                  int64          `bson:"_id" json:"id"`
	FirstName           string         `bson:"first_name" json:"first_name"`
	LastName            string         `bson:"last_name" json:"last_name"`
	Email               string         `bson:"email" json:"email"`
	EmailCI             string         `bson:"email_ci" json:"-"`
	ORCID               *string        `bson:"orcid" json:"orcid"`
	PreferredAuthorName *string        `bson:"preferred_author_name" json:"preferred_author_name"`
	InstitutionID       int64          `bson:"institution_id" json:"institution_id"`
	DateJoined          Date           `bson:"date_joined" json:"date_joined"`
	DateLeft            *Date          `bson:"date_left" json:"date_left"`
	IsActive            bool           `bson:"is_active" json:"is_active"`
	ExperimentalData    map[string]any `bson:"experimental_data,omitempty" json:"experimental_data"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// Subject returns the identity provider subject id recorded for the member.
func (m Member) Subject() string {
	s, _ := m.ExperimentalData[ExperimentalSubject].(string)
	return s
}

// DisplayName is "First Last".
func (m Member) DisplayName() string {
	switch {
	case m.FirstName == "":
		return m.LastName
	case m.LastName == "":
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}
