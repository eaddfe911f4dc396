package household

import (
	"context"

	"github.com/google/uuid"

	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/store"
)

// OwnedRepository serves a family whose rows belong to a member.
type OwnedRepository[T model.Entity] struct {
	*Repository[T]
	table   store.Table[T]
	members store.Table[*model.Member]
}

type (
	DocumentRepository      = OwnedRepository[*model.Document]
	BankAccountRepository   = OwnedRepository[*model.BankAccount]
	FixedDepositRepository  = OwnedRepository[*model.FixedDeposit]
	LifeInsuranceRepository = OwnedRepository[*model.LifeInsurancePolicy]
	DematAccountRepository  = OwnedRepository[*model.DematAccount]
	MutualFundRepository    = OwnedRepository[*model.MutualFundHolding]
)

// ListByMember returns the live rows owned by member memberID.
func (r *OwnedRepository[T]) ListByMember(ctx context.Context, memberID uuid.UUID) ([]T, error) {
	return r.list(r.cached.List(ctx,
		r.cached.Suffix("ByMember", memberID),
		store.Eq("member_id", memberID),
	))
}

// ListByHousehold returns the live rows owned by any live member of
// household householdID. The view follows member changes as well as the
// family's own.
func (r *OwnedRepository[T]) ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]T, error) {
	deps := []model.Family{model.FamilyMember}
	return r.list(r.cached.GetCachedDependent(ctx, r.cached.Suffix("ByHousehold", householdID), deps,
		func(ctx context.Context) ([]T, error) {
			members, err := r.members.Find(ctx, store.Eq("household_id", householdID))
			if err != nil {
				return nil, err
			}
			if len(members) == 0 {
				return []T{}, nil
			}
			ids := make([]any, len(members))
			for i, m := range members {
				ids[i] = m.ID
			}
			return r.table.Find(ctx, store.In("member_id", ids...))
		}))
}
