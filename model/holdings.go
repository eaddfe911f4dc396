package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Amounts are stored in minor currency units.

// BankAccount is a savings or current account held by a member.
type BankAccount struct {
	bun.BaseModel `bun:"table:bank_accounts,alias:ba" json:"-"`
	Base

	MemberID           uuid.UUID `bun:"member_id,type:uuid,notnull" json:"member_id"`
	BankName           string    `bun:"bank_name,notnull" json:"bank_name"`
	Branch             string    `bun:"branch" json:"branch"`
	AccountType        string    `bun:"account_type" json:"account_type"`
	AccountNumber      string    `bun:"account_number" json:"account_number"`
	AccountNumberLast4 string    `bun:"account_number_last4" json:"account_number_last4"`
	RoutingCode        string    `bun:"routing_code" json:"routing_code"`
}

// Family returns FamilyBankAccount.
func (a *BankAccount) Family() Family { return FamilyBankAccount }

// ParentID returns the member owning the bank account.
func (a *BankAccount) ParentID() uuid.UUID { return a.MemberID }

// SealedFields lists the identifiers sealed at rest.
func (a *BankAccount) SealedFields() []SealedField {
	return []SealedField{{Name: "AccountNumber", Value: &a.AccountNumber, Last4: &a.AccountNumberLast4}}
}

// Validate checks the bank account fields.
func (a *BankAccount) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.MemberID, requiredID),
		validation.Field(&a.BankName, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.AccountType, validation.In("savings", "current", "salary", "nre", "nro")),
		validation.Field(&a.AccountNumber, validation.Required),
	)
}

// FixedDeposit is a term deposit with a bank.
type FixedDeposit struct {
	bun.BaseModel `bun:"table:fixed_deposits,alias:fd" json:"-"`
	Base

	MemberID           uuid.UUID  `bun:"member_id,type:uuid,notnull" json:"member_id"`
	BankName           string     `bun:"bank_name,notnull" json:"bank_name"`
	AccountNumber      string     `bun:"account_number" json:"account_number"`
	AccountNumberLast4 string     `bun:"account_number_last4" json:"account_number_last4"`
	Principal          int64      `bun:"principal" json:"principal"`
	InterestRate       float64    `bun:"interest_rate" json:"interest_rate"`
	StartDate          *time.Time `bun:"start_date" json:"start_date,omitempty"`
	MaturityDate       *time.Time `bun:"maturity_date" json:"maturity_date,omitempty"`
}

// Family returns FamilyFixedDeposit.
func (f *FixedDeposit) Family() Family { return FamilyFixedDeposit }

// ParentID returns the member owning the fixed deposit.
func (f *FixedDeposit) ParentID() uuid.UUID { return f.MemberID }

// SealedFields lists the identifiers sealed at rest.
func (f *FixedDeposit) SealedFields() []SealedField {
	return []SealedField{{Name: "AccountNumber", Value: &f.AccountNumber, Last4: &f.AccountNumberLast4}}
}

// Validate checks the fixed deposit fields.
func (f *FixedDeposit) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.MemberID, requiredID),
		validation.Field(&f.BankName, validation.Required),
		validation.Field(&f.AccountNumber, validation.Required),
		validation.Field(&f.Principal, validation.Min(int64(0))),
		validation.Field(&f.InterestRate, validation.Min(0.0), validation.Max(100.0)),
		validation.Field(&f.MaturityDate, validation.By(notBefore(f.StartDate))),
	)
}

// LifeInsurancePolicy is a life cover policy where the member is the insured.
type LifeInsurancePolicy struct {
	bun.BaseModel `bun:"table:life_insurance_policies,alias:lip" json:"-"`
	Base

	MemberID          uuid.UUID  `bun:"member_id,type:uuid,notnull" json:"member_id"`
	Insurer           string     `bun:"insurer,notnull" json:"insurer"`
	PlanName          string     `bun:"plan_name" json:"plan_name"`
	PolicyNumber      string     `bun:"policy_number" json:"policy_number"`
	PolicyNumberLast4 string     `bun:"policy_number_last4" json:"policy_number_last4"`
	SumAssured        int64      `bun:"sum_assured" json:"sum_assured"`
	Premium           int64      `bun:"premium" json:"premium"`
	Nominee           string     `bun:"nominee" json:"nominee"`
	MaturityDate      *time.Time `bun:"maturity_date" json:"maturity_date,omitempty"`
}

// Family returns FamilyLifeInsurancePolicy.
func (p *LifeInsurancePolicy) Family() Family { return FamilyLifeInsurancePolicy }

// ParentID returns the member owning the life insurance policy.
func (p *LifeInsurancePolicy) ParentID() uuid.UUID { return p.MemberID }

// SealedFields lists the identifiers sealed at rest.
func (p *LifeInsurancePolicy) SealedFields() []SealedField {
	return []SealedField{{Name: "PolicyNumber", Value: &p.PolicyNumber, Last4: &p.PolicyNumberLast4}}
}

// Validate checks the life insurance policy fields.
func (p *LifeInsurancePolicy) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.MemberID, requiredID),
		validation.Field(&p.Insurer, validation.Required),
		validation.Field(&p.PolicyNumber, validation.Required),
		validation.Field(&p.SumAssured, validation.Min(int64(0))),
		validation.Field(&p.Premium, validation.Min(int64(0))),
	)
}

// MediclaimPolicy is a health policy held by a member. Other members may be
// covered by it through MediclaimCoverage rows.
type MediclaimPolicy struct {
	bun.BaseModel `bun:"table:mediclaim_policies,alias:mp" json:"-"`
	Base

	MemberID          uuid.UUID  `bun:"member_id,type:uuid,notnull" json:"member_id"`
	Insurer           string     `bun:"insurer,notnull" json:"insurer"`
	PolicyNumber      string     `bun:"policy_number" json:"policy_number"`
	PolicyNumberLast4 string     `bun:"policy_number_last4" json:"policy_number_last4"`
	SumInsured        int64      `bun:"sum_insured" json:"sum_insured"`
	Premium           int64      `bun:"premium" json:"premium"`
	RenewalDate       *time.Time `bun:"renewal_date" json:"renewal_date,omitempty"`
}

// Family returns FamilyMediclaimPolicy.
func (p *MediclaimPolicy) Family() Family { return FamilyMediclaimPolicy }

// ParentID returns the member owning the mediclaim policy.
func (p *MediclaimPolicy) ParentID() uuid.UUID { return p.MemberID }

// SealedFields lists the identifiers sealed at rest.
func (p *MediclaimPolicy) SealedFields() []SealedField {
	return []SealedField{{Name: "PolicyNumber", Value: &p.PolicyNumber, Last4: &p.PolicyNumberLast4}}
}

// Validate checks the mediclaim policy fields.
func (p *MediclaimPolicy) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.MemberID, requiredID),
		validation.Field(&p.Insurer, validation.Required),
		validation.Field(&p.PolicyNumber, validation.Required),
		validation.Field(&p.SumInsured, validation.Min(int64(0))),
		validation.Field(&p.Premium, validation.Min(int64(0))),
	)
}

// MediclaimCoverage links a mediclaim policy to a covered member.
type MediclaimCoverage struct {
	bun.BaseModel `bun:"table:mediclaim_coverages,alias:mc" json:"-"`
	Base

	PolicyID uuid.UUID `bun:"policy_id,type:uuid,notnull" json:"policy_id"`
	MemberID uuid.UUID `bun:"member_id,type:uuid,notnull" json:"member_id"`
}

// Family returns FamilyMediclaimCoverage.
func (c *MediclaimCoverage) Family() Family { return FamilyMediclaimCoverage }

// Validate checks the mediclaim coverage fields.
func (c *MediclaimCoverage) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PolicyID, requiredID),
		validation.Field(&c.MemberID, requiredID),
	)
}

// DematAccount is a securities depository account.
type DematAccount struct {
	bun.BaseModel `bun:"table:demat_accounts,alias:da" json:"-"`
	Base

	MemberID   uuid.UUID `bun:"member_id,type:uuid,notnull" json:"member_id"`
	Depository string    `bun:"depository,notnull" json:"depository"`
	BrokerName string    `bun:"broker_name" json:"broker_name"`
	BOID       string    `bun:"boid" json:"boid"`
	BOIDLast4  string    `bun:"boid_last4" json:"boid_last4"`
}

// Family returns FamilyDematAccount.
func (a *DematAccount) Family() Family { return FamilyDematAccount }

// ParentID returns the member owning the demat account.
func (a *DematAccount) ParentID() uuid.UUID { return a.MemberID }

// SealedFields lists the identifiers sealed at rest.
func (a *DematAccount) SealedFields() []SealedField {
	return []SealedField{{Name: "BOID", Value: &a.BOID, Last4: &a.BOIDLast4}}
}

// Validate checks the demat account fields.
func (a *DematAccount) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.MemberID, requiredID),
		validation.Field(&a.Depository, validation.Required, validation.In("NSDL", "CDSL")),
		validation.Field(&a.BOID, validation.Required),
	)
}

// MutualFundHolding is a folio with a fund house.
type MutualFundHolding struct {
	bun.BaseModel `bun:"table:mutual_fund_holdings,alias:mf" json:"-"`
	Base

	MemberID         uuid.UUID `bun:"member_id,type:uuid,notnull" json:"member_id"`
	FundHouse        string    `bun:"fund_house,notnull" json:"fund_house"`
	SchemeName       string    `bun:"scheme_name" json:"scheme_name"`
	FolioNumber      string    `bun:"folio_number" json:"folio_number"`
	FolioNumberLast4 string    `bun:"folio_number_last4" json:"folio_number_last4"`
	Units            float64   `bun:"units" json:"units"`
	Invested         int64     `bun:"invested" json:"invested"`
}

// Family returns FamilyMutualFundHolding.
func (h *MutualFundHolding) Family() Family { return FamilyMutualFundHolding }

// ParentID returns the member owning the mutual fund holding.
func (h *MutualFundHolding) ParentID() uuid.UUID { return h.MemberID }

// SealedFields lists the identifiers sealed at rest.
func (h *MutualFundHolding) SealedFields() []SealedField {
	return []SealedField{{Name: "FolioNumber", Value: &h.FolioNumber, Last4: &h.FolioNumberLast4}}
}

// Validate checks the mutual fund holding fields.
func (h *MutualFundHolding) Validate() error {
	return validation.ValidateStruct(h,
		validation.Field(&h.MemberID, requiredID),
		validation.Field(&h.FundHouse, validation.Required),
		validation.Field(&h.FolioNumber, validation.Required),
		validation.Field(&h.Units, validation.Min(0.0)),
		validation.Field(&h.Invested, validation.Min(int64(0))),
	)
}
