package model

import (
	"sort"

	"github.com/jinzhu/inflection"
)

// Family names a category of persisted records that share one invalidation token.
type Family string

const (
	FamilyHousehold           Family = "Household"
	FamilyMember              Family = "Member"
	FamilyDocument            Family = "Document"
	FamilyBankAccount         Family = "BankAccount"
	FamilyFixedDeposit        Family = "FixedDeposit"
	FamilyLifeInsurancePolicy Family = "LifeInsurancePolicy"
	FamilyMediclaimPolicy     Family = "MediclaimPolicy"
	FamilyMediclaimCoverage   Family = "MediclaimCoverage"
	FamilyDematAccount        Family = "DematAccount"
	FamilyMutualFundHolding   Family = "MutualFundHolding"
)

// String implements fmt.Stringer.
func (f Family) String() string { return string(f) }

// Table returns the SQL table backing the family, e.g. LifeInsurancePolicy
// maps to life_insurance_policies.
func (f Family) Table() string {
	return inflection.Plural(toSnake(string(f)))
}

// Descriptor declares where a family sits in the ownership hierarchy.
// Parent is empty for roots and for sibling relations that must not be
// reached by a cascading delete.
type Descriptor struct {
	Family     Family
	Parent     Family
	ForeignKey string
}

// Owned reports whether the family is deleted together with its parent.
func (d Descriptor) Owned() bool {
	return d.Parent != "" && d.ForeignKey != ""
}

var descriptors = []Descriptor{
	{Family: FamilyHousehold},
	{Family: FamilyMember, Parent: FamilyHousehold, ForeignKey: "household_id"},
	{Family: FamilyDocument, Parent: FamilyMember, ForeignKey: "member_id"},
	{Family: FamilyBankAccount, Parent: FamilyMember, ForeignKey: "member_id"},
	{Family: FamilyFixedDeposit, Parent: FamilyMember, ForeignKey: "member_id"},
	{Family: FamilyLifeInsurancePolicy, Parent: FamilyMember, ForeignKey: "member_id"},
	{Family: FamilyMediclaimPolicy, Parent: FamilyMember, ForeignKey: "member_id"},
	{Family: FamilyDematAccount, Parent: FamilyMember, ForeignKey: "member_id"},
	{Family: FamilyMutualFundHolding, Parent: FamilyMember, ForeignKey: "member_id"},
	// covered members join policies and members side by side; deleting a
	// member leaves the coverage rows to the policy holder's lifecycle.
	{Family: FamilyMediclaimCoverage},
}

// Descriptors returns every known family in declaration order.
func Descriptors() []Descriptor {
	return append([]Descriptor(nil), descriptors...)
}

// Lookup returns the descriptor for family.
func Lookup(family Family) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Family == family {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Families returns the sorted names of every known family.
func Families() []Family {
	out := make([]Family, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d.Family)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var prototypes = map[Family]func() Entity{
	FamilyHousehold:           func() Entity { return &Household{} },
	FamilyMember:              func() Entity { return &Member{} },
	FamilyDocument:            func() Entity { return &Document{} },
	FamilyBankAccount:         func() Entity { return &BankAccount{} },
	FamilyFixedDeposit:        func() Entity { return &FixedDeposit{} },
	FamilyLifeInsurancePolicy: func() Entity { return &LifeInsurancePolicy{} },
	FamilyMediclaimPolicy:     func() Entity { return &MediclaimPolicy{} },
	FamilyMediclaimCoverage:   func() Entity { return &MediclaimCoverage{} },
	FamilyDematAccount:        func() Entity { return &DematAccount{} },
	FamilyMutualFundHolding:   func() Entity { return &MutualFundHolding{} },
}

// NewRecord returns an empty record of family, e.g. for schema creation.
func NewRecord(family Family) (Entity, bool) {
	fn, ok := prototypes[family]
	if !ok {
		return nil, false
	}
	return fn(), true
}
