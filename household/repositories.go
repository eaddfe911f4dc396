package household

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/goliatone/go-household-store/audit"
	"github.com/goliatone/go-household-store/cache"
	"github.com/goliatone/go-household-store/cascade"
	"github.com/goliatone/go-household-store/fieldcrypt"
	"github.com/goliatone/go-household-store/invalidation"
	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/repositorycache"
	"github.com/goliatone/go-household-store/store"
)

// Deps are the collaborators shared by every repository. Backend, Cache
// and Codec are required. Keys defaults to cache.NewDefaultKeySerializer.
type Deps struct {
	Backend Backend
	Cache   cache.CacheService
	Tokens  *invalidation.Registry
	Codec   *fieldcrypt.Codec
	Keys    cache.KeySerializer
	Audit   audit.Recorder
	Metrics *repositorycache.Metrics
	Logger  *slog.Logger
	Clock   func() time.Time
}

// Repositories bundles one repository per family.
type Repositories struct {
	Households    *HouseholdRepository
	Members       *MemberRepository
	Documents     *DocumentRepository
	BankAccounts  *BankAccountRepository
	FixedDeposits *FixedDepositRepository
	LifeInsurance *LifeInsuranceRepository
	Mediclaim     *MediclaimRepository
	DematAccounts *DematAccountRepository
	MutualFunds   *MutualFundRepository

	// Tokens is the registry every repository and the cascade share.
	Tokens *invalidation.Registry
}

// New wires the repositories over deps.
func New(deps Deps) (*Repositories, error) {
	if deps.Backend.Tx == nil {
		return nil, errors.New("household: backend is required")
	}
	if deps.Cache == nil {
		return nil, errors.New("household: cache service is required")
	}
	if deps.Codec == nil {
		return nil, errors.New("household: codec is required")
	}
	if deps.Tokens == nil {
		deps.Tokens = invalidation.NewRegistry()
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	coordinator, err := cascade.NewCoordinator(deps.Backend.Tx, deps.Tokens,
		cascade.WithLogger(deps.Logger),
		cascade.WithClock(deps.Clock),
		cascade.WithInvalidationHook(func(f model.Family) { deps.Metrics.Invalidated(f.String()) }),
	)
	if err != nil {
		return nil, err
	}

	b := deps.Backend
	members := b.Members
	mediclaim := cachedOver(deps, b.MediclaimPolicies)

	return &Repositories{
		Households: &HouseholdRepository{
			Repository: repositoryOver(deps, b.Households, nil),
			cascade:    coordinator,
		},
		Members: &MemberRepository{
			Repository: repositoryOver(deps, b.Members, liveParent[*model.Member](b.Households)),
			cascade:    coordinator,
		},
		Documents:     ownedOver(deps, b.Documents),
		BankAccounts:  ownedOver(deps, b.BankAccounts),
		FixedDeposits: ownedOver(deps, b.FixedDeposits),
		LifeInsurance: ownedOver(deps, b.LifeInsurancePolicies),
		Mediclaim: &MediclaimRepository{
			OwnedRepository: &OwnedRepository[*model.MediclaimPolicy]{
				Repository: newRepository(mediclaim, deps.Codec, deps.Audit, liveParent[*model.MediclaimPolicy](members)),
				table:      b.MediclaimPolicies,
				members:    members,
			},
			coverage:      cachedOver(deps, b.MediclaimCoverages),
			coverageTable: b.MediclaimCoverages,
			coveredView:   cachedOver(deps, members),
		},
		DematAccounts: ownedOver(deps, b.DematAccounts),
		MutualFunds:   ownedOver(deps, b.MutualFundHoldings),
		Tokens:        deps.Tokens,
	}, nil
}

func cachedOver[T model.Entity](deps Deps, table store.Table[T]) *repositorycache.CachedRepository[T] {
	return repositorycache.New(table, deps.Cache, deps.Tokens,
		repositorycache.WithLogger(deps.Logger),
		repositorycache.WithMetrics(deps.Metrics),
		repositorycache.WithClock(deps.Clock),
		repositorycache.WithKeySerializer(deps.Keys),
	)
}

func repositoryOver[T model.Entity](deps Deps, table store.Table[T], parent parentCheck[T]) *Repository[T] {
	return newRepository(cachedOver(deps, table), deps.Codec, deps.Audit, parent)
}

func ownedOver[T model.Entity](deps Deps, table store.Table[T]) *OwnedRepository[T] {
	return &OwnedRepository[T]{
		Repository: repositoryOver(deps, table, liveParent[T](deps.Backend.Members)),
		table:      table,
		members:    deps.Backend.Members,
	}
}
