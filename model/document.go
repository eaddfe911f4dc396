package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Document types accepted for identity documents.
const (
	DocumentPassport       = "passport"
	DocumentNationalID     = "national_id"
	DocumentTaxID          = "tax_id"
	DocumentDrivingLicence = "driving_licence"
	DocumentVoterID        = "voter_id"
	DocumentOther          = "other"
)

var documentTypes = []any{
	DocumentPassport, DocumentNationalID, DocumentTaxID,
	DocumentDrivingLicence, DocumentVoterID, DocumentOther,
}

// Document is an identity document held by a member.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d" json:"-"`
	Base

	MemberID            uuid.UUID  `bun:"member_id,type:uuid,notnull" json:"member_id"`
	DocumentType        string     `bun:"document_type,notnull" json:"document_type"`
	DocumentNumber      string     `bun:"document_number" json:"document_number"`
	DocumentNumberLast4 string     `bun:"document_number_last4" json:"document_number_last4"`
	IssuingAuthority    string     `bun:"issuing_authority" json:"issuing_authority"`
	IssuedOn            *time.Time `bun:"issued_on" json:"issued_on,omitempty"`
	ExpiresOn           *time.Time `bun:"expires_on" json:"expires_on,omitempty"`
}

// Family returns FamilyDocument.
func (d *Document) Family() Family { return FamilyDocument }

// ParentID returns the member owning the document.
func (d *Document) ParentID() uuid.UUID { return d.MemberID }

// SealedFields lists the identifiers sealed at rest.
func (d *Document) SealedFields() []SealedField {
	return []SealedField{{Name: "DocumentNumber", Value: &d.DocumentNumber, Last4: &d.DocumentNumberLast4}}
}

// Validate checks the document fields.
func (d *Document) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.MemberID, requiredID),
		validation.Field(&d.DocumentType, validation.Required, validation.In(documentTypes...)),
		validation.Field(&d.DocumentNumber, validation.Required),
		validation.Field(&d.ExpiresOn, validation.By(notBefore(d.IssuedOn))),
	)
}

// notBefore rejects a date earlier than start when both are set.
func notBefore(start *time.Time) validation.RuleFunc {
	return func(value any) error {
		end, _ := value.(*time.Time)
		if start == nil || end == nil {
			return nil
		}
		if end.Before(*start) {
			return validation.NewError("validation_date_order", "must not be before the start date")
		}
		return nil
	}
}
