package household

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-household-store/audit"
	"github.com/goliatone/go-household-store/cascade"
	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/store"
)

// HouseholdRepository serves the root family.
type HouseholdRepository struct {
	*Repository[*model.Household]
	cascade *cascade.Coordinator
}

// List returns every live household.
func (r *HouseholdRepository) List(ctx context.Context) ([]*model.Household, error) {
	return r.list(r.cached.List(ctx, "All"))
}

// CascadeDelete soft-deletes household id together with its members and
// everything they own, in one transaction.
func (r *HouseholdRepository) CascadeDelete(ctx context.Context, id uuid.UUID, actor string) (cascade.Result, error) {
	return cascadeDelete(ctx, r.Repository, r.cascade, id, actor)
}

// MemberRepository serves household members and their credentials.
type MemberRepository struct {
	*Repository[*model.Member]
	cascade *cascade.Coordinator
}

// ListByHousehold returns the live members of household householdID.
func (r *MemberRepository) ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*model.Member, error) {
	return r.list(r.cached.List(ctx,
		r.cached.Suffix("ByHousehold", householdID),
		store.Eq("household_id", householdID),
	))
}

// Update overwrites the member's profile. The stored password hash is
// kept; use SetPassword to change it.
func (r *MemberRepository) Update(ctx context.Context, member *model.Member, actor string) (*model.Member, error) {
	existing, err := r.GetByID(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	member = model.Clone(member)
	member.PasswordHash = existing.PasswordHash
	return r.Repository.Update(ctx, member, actor)
}

// SetPassword replaces the member's password hash.
func (r *MemberRepository) SetPassword(ctx context.Context, memberID uuid.UUID, password, actor string) error {
	if password == "" {
		return store.ValidationFailure(model.FamilyMember, fmt.Errorf("password: cannot be blank"))
	}
	member, err := r.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	hash, err := r.codec.HashPassword(password)
	if err != nil {
		return err
	}
	member.PasswordHash = hash

	if _, err := r.cached.Update(ctx, member, actor); err != nil {
		return err
	}
	r.record(ctx, actor, audit.ActionPasswordChange, memberID, "password changed")
	return nil
}

// VerifyPassword reports whether candidate matches the member's password.
// A member without a password never matches.
func (r *MemberRepository) VerifyPassword(ctx context.Context, memberID uuid.UUID, candidate string) (bool, error) {
	member, err := r.GetByID(ctx, memberID)
	if err != nil {
		return false, err
	}
	if member.PasswordHash == "" {
		return false, nil
	}
	return r.codec.VerifyPassword(member.PasswordHash, candidate), nil
}

// CascadeDelete soft-deletes member id together with everything it owns.
func (r *MemberRepository) CascadeDelete(ctx context.Context, id uuid.UUID, actor string) (cascade.Result, error) {
	return cascadeDelete(ctx, r.Repository, r.cascade, id, actor)
}

func cascadeDelete[T model.Entity](ctx context.Context, r *Repository[T], c *cascade.Coordinator, id uuid.UUID, actor string) (cascade.Result, error) {
	result, err := c.CascadeDelete(ctx, r.Family(), id, actor)
	if err != nil {
		return cascade.Result{}, err
	}
	related := result.Related()
	r.record(ctx, actor, audit.ActionCascadeDelete, id,
		fmt.Sprintf("cascade deleted with %d related records", len(related)), related...)
	return result, nil
}
