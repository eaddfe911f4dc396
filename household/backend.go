package household

import (
	"github.com/uptrace/bun"

	"github.com/goliatone/go-household-store/internal/bunstore"
	"github.com/goliatone/go-household-store/internal/memstore"
	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/store"
)

// Backend groups the tables of every family with the transactor that runs
// cascades against the same storage.
type Backend struct {
	Tx store.Transactor

	Households            store.Table[*model.Household]
	Members               store.Table[*model.Member]
	Documents             store.Table[*model.Document]
	BankAccounts          store.Table[*model.BankAccount]
	FixedDeposits         store.Table[*model.FixedDeposit]
	LifeInsurancePolicies store.Table[*model.LifeInsurancePolicy]
	MediclaimPolicies     store.Table[*model.MediclaimPolicy]
	MediclaimCoverages    store.Table[*model.MediclaimCoverage]
	DematAccounts         store.Table[*model.DematAccount]
	MutualFundHoldings    store.Table[*model.MutualFundHolding]
}

// SQLBackend binds every family to db.
func SQLBackend(db *bun.DB) Backend {
	return Backend{
		Tx:                    bunstore.NewTransactor(db),
		Households:            bunstore.NewTable[*model.Household](db),
		Members:               bunstore.NewTable[*model.Member](db),
		Documents:             bunstore.NewTable[*model.Document](db),
		BankAccounts:          bunstore.NewTable[*model.BankAccount](db),
		FixedDeposits:         bunstore.NewTable[*model.FixedDeposit](db),
		LifeInsurancePolicies: bunstore.NewTable[*model.LifeInsurancePolicy](db),
		MediclaimPolicies:     bunstore.NewTable[*model.MediclaimPolicy](db),
		MediclaimCoverages:    bunstore.NewTable[*model.MediclaimCoverage](db),
		DematAccounts:         bunstore.NewTable[*model.DematAccount](db),
		MutualFundHoldings:    bunstore.NewTable[*model.MutualFundHolding](db),
	}
}

// MemoryBackend binds every family to an in-memory store.
func MemoryBackend(s *memstore.Store) Backend {
	return Backend{
		Tx:                    s,
		Households:            memstore.NewTable[*model.Household](s),
		Members:               memstore.NewTable[*model.Member](s),
		Documents:             memstore.NewTable[*model.Document](s),
		BankAccounts:          memstore.NewTable[*model.BankAccount](s),
		FixedDeposits:         memstore.NewTable[*model.FixedDeposit](s),
		LifeInsurancePolicies: memstore.NewTable[*model.LifeInsurancePolicy](s),
		MediclaimPolicies:     memstore.NewTable[*model.MediclaimPolicy](s),
		MediclaimCoverages:    memstore.NewTable[*model.MediclaimCoverage](s),
		DematAccounts:         memstore.NewTable[*model.DematAccount](s),
		MutualFundHoldings:    memstore.NewTable[*model.MutualFundHolding](s),
	}
}
