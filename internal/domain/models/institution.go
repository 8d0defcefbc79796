// internal/domain/models/institution.go
package models

import "time"

// Institution is a lab, university or agency taking part in the collaboration.
// Members and institutional board memberships point at it by id.
type Institution struct {
	ID          int64    `bson:"_id" json:"id"`
	FullName    string   `bson:"full_name" json:"full_name"`
	FullNameCI  string   `bson:"full_name_ci" json:"-"`
	ShortName   string   `bson:"short_name" json:"short_name"`
	Country     string   `bson:"country" json:"country"`
	Region      *string  `bson:"region" json:"region"`
	Latitude    *float64 `bson:"latitude" json:"latitude"`
	Longitude   *float64 `bson:"longitude" json:"longitude"`
	City        *string  `bson:"city" json:"city"`
	Address     *string  `bson:"address" json:"address"`
	EntityID    string   `bson:"entityid" json:"entityid"`
	RORID       *string  `bson:"rorid" json:"rorid"`
	IsActive    bool     `bson:"is_active" json:"is_active"`
	DateAdded   Date     `bson:"date_added" json:"date_added"`
	DateRemoved *Date    `bson:"date_removed" json:"date_removed"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// FullNameMaxLen bounds Institution.FullName.
const FullNameMaxLen = 50
