package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Household is the root of the ownership hierarchy.
type Household struct {
	bun.BaseModel `bun:"table:households,alias:h" json:"-"`
	Base

	Name    string `bun:"name,notnull" json:"name"`
	Address string `bun:"address" json:"address"`
	City    string `bun:"city" json:"city"`
	Notes   string `bun:"notes" json:"notes"`
}

// Family returns FamilyHousehold.
func (h *Household) Family() Family { return FamilyHousehold }

// Validate checks the household fields.
func (h *Household) Validate() error {
	return validation.ValidateStruct(h,
		validation.Field(&h.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&h.City, validation.Length(0, 100)),
	)
}

// Member belongs to a household and owns documents and financial holdings.
type Member struct {
	bun.BaseModel `bun:"table:members,alias:m" json:"-"`
	Base

	HouseholdID  uuid.UUID  `bun:"household_id,type:uuid,notnull" json:"household_id"`
	FullName     string     `bun:"full_name,notnull" json:"full_name"`
	Relationship string     `bun:"relationship" json:"relationship"`
	DateOfBirth  *time.Time `bun:"date_of_birth" json:"date_of_birth,omitempty"`
	Email        string     `bun:"email" json:"email"`
	Phone        string     `bun:"phone" json:"phone"`
	PasswordHash string     `bun:"password_hash" json:"-"`
}

// Family returns FamilyMember.
func (m *Member) Family() Family { return FamilyMember }

// ParentID returns the household the member belongs to.
func (m *Member) ParentID() uuid.UUID { return m.HouseholdID }

// Validate checks the member fields.
func (m *Member) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.HouseholdID, requiredID),
		validation.Field(&m.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.Relationship, validation.In(relationships...)),
		validation.Field(&m.Email, is.EmailFormat),
	)
}

var relationships = []any{"self", "spouse", "child", "parent", "sibling", "other"}

// requiredID rejects the zero uuid; ozzo's Required treats fixed-size arrays
// as non-empty.
var requiredID = validation.NotIn(uuid.Nil).Error("cannot be blank")
