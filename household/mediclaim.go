package household

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-household-store/audit"
	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/repositorycache"
	"github.com/goliatone/go-household-store/store"
)

// MediclaimRepository serves mediclaim policies and the members they cover.
type MediclaimRepository struct {
	*OwnedRepository[*model.MediclaimPolicy]
	coverage      *repositorycache.CachedRepository[*model.MediclaimCoverage]
	coverageTable store.Table[*model.MediclaimCoverage]
	coveredView   *repositorycache.CachedRepository[*model.Member]
}

// AddCoveredMember covers memberID under policy policyID. Covering a member
// twice returns the existing coverage. Two concurrent calls for the same
// pair may both insert a row; CoveredMembers lists the member once and
// RemoveCoveredMember ends every row of the pair.
func (r *MediclaimRepository) AddCoveredMember(ctx context.Context, policyID, memberID uuid.UUID, actor string) (*model.MediclaimCoverage, error) {
	if _, err := r.cached.GetByID(ctx, policyID); err != nil {
		return nil, err
	}
	if _, err := r.members.FindByID(ctx, memberID); err != nil {
		return nil, err
	}

	existing, err := r.coverageTable.Find(ctx, store.Eq("policy_id", policyID), store.Eq("member_id", memberID))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	created, err := r.coverage.Add(ctx, &model.MediclaimCoverage{PolicyID: policyID, MemberID: memberID}, actor)
	if err != nil {
		return nil, err
	}
	r.record(ctx, actor, audit.ActionCoverageAdd, policyID,
		fmt.Sprintf("covers member %s", memberID), memberID)
	return created, nil
}

// RemoveCoveredMember ends the coverage of memberID under policy policyID.
// It returns a NotFound error when the member is not covered.
func (r *MediclaimRepository) RemoveCoveredMember(ctx context.Context, policyID, memberID uuid.UUID, actor string) error {
	rows, err := r.coverageTable.Find(ctx, store.Eq("policy_id", policyID), store.Eq("member_id", memberID))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return store.NotFound(model.FamilyMediclaimCoverage, memberID)
	}
	for _, row := range rows {
		if err := r.coverage.SoftDelete(ctx, row.ID, actor); err != nil {
			return err
		}
	}
	r.record(ctx, actor, audit.ActionCoverageRemove, policyID,
		fmt.Sprintf("no longer covers member %s", memberID), memberID)
	return nil
}

// CoveredMembers returns the live members covered by policy policyID.
func (r *MediclaimRepository) CoveredMembers(ctx context.Context, policyID uuid.UUID) ([]*model.Member, error) {
	deps := []model.Family{model.FamilyMediclaimCoverage}
	return r.coveredView.GetCachedDependent(ctx, r.coveredView.Suffix("CoveredBy", policyID), deps,
		func(ctx context.Context) ([]*model.Member, error) {
			rows, err := r.coverageTable.Find(ctx, store.Eq("policy_id", policyID))
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				return []*model.Member{}, nil
			}
			ids := make([]uuid.UUID, len(rows))
			for i, row := range rows {
				ids[i] = row.MemberID
			}
			return r.members.Find(ctx, store.In("id", store.IDs(ids)...))
		})
}
