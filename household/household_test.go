package household

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-household-store/audit"
	"github.com/goliatone/go-household-store/cache"
	"github.com/goliatone/go-household-store/fieldcrypt"
	"github.com/goliatone/go-household-store/internal/bunstore"
	"github.com/goliatone/go-household-store/internal/memstore"
	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/pkg/testsupport"
	"github.com/goliatone/go-household-store/store"
)

type householdFixture struct {
	Household model.Household `json:"household"`
	Members   []model.Member  `json:"members"`
	Document  model.Document  `json:"document"`
}

// syncRecorder writes entries straight to its sink
type syncRecorder struct {
	sink *audit.MemorySink
}

func (r syncRecorder) Record(ctx context.Context, entry audit.Entry) {
	_ = r.sink.Write(ctx, entry)
}

// spyCache remembers every value handed to the cache
type spyCache struct {
	cache.CacheService
	mu     sync.Mutex
	values []any
}

func (s *spyCache) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error) {
	return s.CacheService.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		v, err := fetchFn(ctx)
		if err == nil {
			s.mu.Lock()
			s.values = append(s.values, v)
			s.mu.Unlock()
		}
		return v, err
	})
}

func (s *spyCache) cachedDocuments() []*model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Document
	for _, v := range s.values {
		if docs, ok := v.([]*model.Document); ok {
			out = append(out, docs...)
		}
	}
	return out
}

type harness struct {
	repos *Repositories
	sink  *audit.MemorySink
	cache *spyCache
	clock *testsupport.Clock
	// rawDocumentNumber reads the stored document number bypassing the codec
	rawDocumentNumber func(t *testing.T, id uuid.UUID) string
}

func newHarness(t *testing.T, backend string) *harness {
	t.Helper()

	h := &harness{
		sink:  &audit.MemorySink{},
		clock: testsupport.NewClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
	}

	var b Backend
	switch backend {
	case "memory":
		s := memstore.New()
		b = MemoryBackend(s)
		h.rawDocumentNumber = func(t *testing.T, id uuid.UUID) string {
			t.Helper()
			raw, ok := s.Raw(model.FamilyDocument, id)
			if !ok {
				t.Fatalf("document %s not stored", id)
			}
			return raw.(*model.Document).DocumentNumber
		}
	case "sqlite":
		db := openSQLite(t)
		b = SQLBackend(db)
		h.rawDocumentNumber = func(t *testing.T, id uuid.UUID) string {
			t.Helper()
			var number string
			err := db.NewSelect().Table("documents").Column("document_number").
				Where("id = ?", id).Scan(context.Background(), &number)
			if err != nil {
				t.Fatalf("read raw document: %v", err)
			}
			return number
		}
	default:
		t.Fatalf("unknown backend %q", backend)
	}

	cfg := cache.DefaultConfig()
	cfg.Backend = cache.BackendGoCache
	inner, err := cache.NewCacheService(cfg)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	h.cache = &spyCache{CacheService: inner}

	codec, err := fieldcrypt.NewCodec(testsupport.EncryptionKey(), fieldcrypt.WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	h.repos, err = New(Deps{
		Backend: b,
		Cache:   h.cache,
		Codec:   codec,
		Audit:   syncRecorder{sink: h.sink},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:   h.clock.Now,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func openSQLite(t *testing.T) *bun.DB {
	t.Helper()

	name := fmt.Sprintf("household_%s", uuid.NewString())
	db, err := bunstore.Open(bunstore.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := bunstore.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

// addMember adds a household and one member to it
func (h *harness) addMember(t *testing.T) *model.Member {
	t.Helper()
	ctx := context.Background()

	hh, err := h.repos.Households.Add(ctx, &model.Household{Name: "Sharma"}, "asha")
	if err != nil {
		t.Fatalf("add household: %v", err)
	}
	m, err := h.repos.Members.Add(ctx, &model.Member{HouseholdID: hh.ID, FullName: "Asha Sharma"}, "asha")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	return m
}

func loadFixture(t *testing.T) householdFixture {
	t.Helper()
	var f householdFixture
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("household.json"), &f)
	return f
}

func TestCascadeDeleteHidesOwnedRecords(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, backend)
			f := loadFixture(t)

			hh, err := h.repos.Households.Add(ctx, &f.Household, "asha")
			if err != nil {
				t.Fatalf("add household: %v", err)
			}
			member := f.Members[0]
			member.HouseholdID = hh.ID
			m, err := h.repos.Members.Add(ctx, &member, "asha")
			if err != nil {
				t.Fatalf("add member: %v", err)
			}
			doc := f.Document
			doc.MemberID = m.ID
			d, err := h.repos.Documents.Add(ctx, &doc, "asha")
			if err != nil {
				t.Fatalf("add document: %v", err)
			}

			if d.DocumentNumber != "A1234567Z" || d.DocumentNumberLast4 != "567Z" {
				t.Errorf("unexpected returned document %q/%q", d.DocumentNumber, d.DocumentNumberLast4)
			}
			if raw := h.rawDocumentNumber(t, d.ID); raw == "A1234567Z" || raw == "" {
				t.Errorf("document number stored as %q", raw)
			}

			got, err := h.repos.Documents.GetByID(ctx, d.ID)
			if err != nil {
				t.Fatalf("get document: %v", err)
			}
			if got.DocumentNumber != "A1234567Z" || got.DocumentNumberLast4 != "567Z" {
				t.Errorf("unexpected document %q/%q", got.DocumentNumber, got.DocumentNumberLast4)
			}

			docs, err := h.repos.Documents.ListByMember(ctx, m.ID)
			if err != nil {
				t.Fatalf("list documents: %v", err)
			}
			if len(docs) != 1 || docs[0].DocumentNumber != "A1234567Z" {
				t.Fatalf("unexpected documents %+v", docs)
			}

			result, err := h.repos.Households.CascadeDelete(ctx, hh.ID, "asha")
			if err != nil {
				t.Fatalf("cascade: %v", err)
			}
			if result.Count() != 3 {
				t.Errorf("expected 3 deleted rows, got %d", result.Count())
			}

			docs, err = h.repos.Documents.ListByMember(ctx, m.ID)
			if err != nil {
				t.Fatalf("list documents after cascade: %v", err)
			}
			if len(docs) != 0 {
				t.Errorf("expected no documents after cascade, got %d", len(docs))
			}
			if _, err := h.repos.Documents.GetByID(ctx, d.ID); !store.IsNotFound(err) {
				t.Errorf("expected NotFound for document, got %v", err)
			}
			households, err := h.repos.Households.List(ctx)
			if err != nil {
				t.Fatalf("list households: %v", err)
			}
			if len(households) != 0 {
				t.Errorf("expected no households, got %d", len(households))
			}

			for _, cached := range h.cache.cachedDocuments() {
				if cached.DocumentNumber == "A1234567Z" {
					t.Errorf("cache holds a plaintext document number")
				}
			}

			type auditLine struct {
				Action  audit.Action `json:"action"`
				Family  string       `json:"family"`
				Related int          `json:"related"`
			}
			var lines []auditLine
			for _, e := range h.sink.Entries() {
				lines = append(lines, auditLine{Action: e.Action, Family: e.Family, Related: len(e.RelatedIDs)})
			}
			testsupport.CompareWithGoldenJSON(t, testsupport.GoldenPath("cascade_audit.json"), lines)
		})
	}
}

func TestRepository_RejectsWritesUnderDeletedParent(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, backend)

			m := h.addMember(t)
			kept, err := h.repos.Documents.Add(ctx, &model.Document{
				MemberID: m.ID, DocumentType: model.DocumentPassport, DocumentNumber: "Z9876543K",
			}, "asha")
			if err != nil {
				t.Fatalf("add document: %v", err)
			}
			other := h.addMember(t)
			moved, err := h.repos.Documents.Add(ctx, &model.Document{
				MemberID: other.ID, DocumentType: model.DocumentPassport, DocumentNumber: "K1122334L",
			}, "asha")
			if err != nil {
				t.Fatalf("add document: %v", err)
			}

			if _, err := h.repos.Households.CascadeDelete(ctx, m.HouseholdID, "asha"); err != nil {
				t.Fatalf("cascade: %v", err)
			}
			audited := len(h.sink.Entries())

			_, err = h.repos.Documents.Add(ctx, &model.Document{
				MemberID: m.ID, DocumentType: model.DocumentPassport, DocumentNumber: "A1234567Z",
			}, "asha")
			if !store.IsNotFound(err) {
				t.Errorf("expected NotFound adding under a deleted member, got %v", err)
			}

			moved.MemberID = m.ID
			if _, err := h.repos.Documents.Update(ctx, moved, "asha"); !store.IsNotFound(err) {
				t.Errorf("expected NotFound moving to a deleted member, got %v", err)
			}
			if _, err := h.repos.Mediclaim.Add(ctx, &model.MediclaimPolicy{
				MemberID: m.ID, Insurer: "Star Health", PolicyNumber: "P/1/2",
			}, "asha"); !store.IsNotFound(err) {
				t.Errorf("expected NotFound adding a policy under a deleted member, got %v", err)
			}
			if _, err := h.repos.Members.Add(ctx, &model.Member{
				HouseholdID: m.HouseholdID, FullName: "Late Arrival",
			}, "asha"); !store.IsNotFound(err) {
				t.Errorf("expected NotFound adding under a deleted household, got %v", err)
			}
			if _, err := h.repos.BankAccounts.Add(ctx, &model.BankAccount{
				MemberID: uuid.New(), BankName: "State Bank", AccountNumber: "001122334455",
			}, "asha"); !store.IsNotFound(err) {
				t.Errorf("expected NotFound adding under an unknown member, got %v", err)
			}

			docs, err := h.repos.Documents.ListByMember(ctx, m.ID)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(docs) != 0 {
				t.Errorf("expected no documents under the deleted member, got %d", len(docs))
			}
			if _, err := h.repos.Documents.GetByID(ctx, kept.ID); !store.IsNotFound(err) {
				t.Errorf("expected the cascaded document to stay hidden, got %v", err)
			}
			if n := len(h.sink.Entries()); n != audited {
				t.Errorf("rejected writes were audited: %d entries, want %d", n, audited)
			}
		})
	}
}

func TestRepository_LargeListsAreComplete(t *testing.T) {
	const n = 30
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, backend)

			first := h.addMember(t)
			for i := 1; i < n; i++ {
				m, err := h.repos.Members.Add(ctx, &model.Member{
					HouseholdID: first.HouseholdID, FullName: fmt.Sprintf("Member %02d", i),
				}, "asha")
				if err != nil {
					t.Fatalf("add member: %v", err)
				}
				if _, err := h.repos.BankAccounts.Add(ctx, &model.BankAccount{
					MemberID: m.ID, BankName: "State Bank", AccountNumber: fmt.Sprintf("0011223344%02d", i),
				}, "asha"); err != nil {
					t.Fatalf("add account: %v", err)
				}
			}
			for i := 0; i < n; i++ {
				if _, err := h.repos.Documents.Add(ctx, &model.Document{
					MemberID: first.ID, DocumentType: model.DocumentPassport, DocumentNumber: fmt.Sprintf("P%07d", i),
				}, "asha"); err != nil {
					t.Fatalf("add document: %v", err)
				}
			}

			members, err := h.repos.Members.ListByHousehold(ctx, first.HouseholdID)
			if err != nil {
				t.Fatalf("list members: %v", err)
			}
			if len(members) != n {
				t.Errorf("ListByHousehold() = %d members, want %d", len(members), n)
			}

			docs, err := h.repos.Documents.ListByMember(ctx, first.ID)
			if err != nil {
				t.Fatalf("list documents: %v", err)
			}
			if len(docs) != n {
				t.Errorf("ListByMember() = %d documents, want %d", len(docs), n)
			}

			accounts, err := h.repos.BankAccounts.ListByHousehold(ctx, first.HouseholdID)
			if err != nil {
				t.Fatalf("list accounts: %v", err)
			}
			if len(accounts) != n-1 {
				t.Errorf("ListByHousehold() = %d accounts, want %d", len(accounts), n-1)
			}
		})
	}
}

func TestRepository_ValidationFailureIsNotAudited(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "memory")

	_, err := h.repos.Documents.Add(ctx, &model.Document{MemberID: uuid.New(), DocumentType: model.DocumentPassport}, "asha")
	if !store.IsValidation(err) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if n := len(h.sink.Entries()); n != 0 {
		t.Errorf("expected no audit entries, got %d", n)
	}
}

func TestRepository_AddDoesNotModifyInput(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "memory")

	m := h.addMember(t)
	in := &model.BankAccount{MemberID: m.ID, BankName: "State Bank", AccountNumber: "001122334455"}
	out, err := h.repos.BankAccounts.Add(ctx, in, "asha")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if in.ID != uuid.Nil || in.AccountNumberLast4 != "" || in.AccountNumber != "001122334455" {
		t.Errorf("input modified: %+v", in)
	}
	if out.AccountNumber != "001122334455" || out.AccountNumberLast4 != "4455" {
		t.Errorf("unexpected output %q/%q", out.AccountNumber, out.AccountNumberLast4)
	}
	if !out.CreatedAt.Equal(h.clock.Now()) || out.CreatedBy != "asha" {
		t.Errorf("unexpected stamps %v/%q", out.CreatedAt, out.CreatedBy)
	}
}

func TestRepository_UpdateReseals(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "memory")

	m := h.addMember(t)
	acct, err := h.repos.DematAccounts.Add(ctx, &model.DematAccount{MemberID: m.ID, Depository: "NSDL", BOID: "IN30012345678901"}, "asha")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	h.clock.Advance(time.Hour)
	acct.BOID = "IN30099998888777"
	updated, err := h.repos.DematAccounts.Update(ctx, acct, "ravi")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.BOID != "IN30099998888777" || updated.BOIDLast4 != "8777" {
		t.Errorf("unexpected update %q/%q", updated.BOID, updated.BOIDLast4)
	}
	if updated.CreatedBy != "asha" || updated.UpdatedBy != "ravi" {
		t.Errorf("unexpected stamps %q/%q", updated.CreatedBy, updated.UpdatedBy)
	}

	list, err := h.repos.DematAccounts.ListByMember(ctx, acct.MemberID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].BOID != "IN30099998888777" {
		t.Errorf("stale list %+v", list)
	}

	entries := h.sink.Entries()
	last := entries[len(entries)-1]
	if len(entries) != 4 || last.Action != audit.ActionUpdate || last.Actor != "ravi" {
		t.Errorf("unexpected audit %+v", entries)
	}
}

func TestRepository_SoftDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "memory")

	hh, err := h.repos.Households.Add(ctx, &model.Household{Name: "Iyer"}, "asha")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := h.repos.Households.List(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}

	if err := h.repos.Households.SoftDelete(ctx, hh.ID, "asha"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := h.repos.Households.SoftDelete(ctx, hh.ID, "asha"); !store.IsNotFound(err) {
		t.Errorf("expected NotFound on second delete, got %v", err)
	}

	list, err := h.repos.Households.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}
}

func TestMemberRepository_Passwords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "memory")

	m := h.addMember(t)

	ok, err := h.repos.Members.VerifyPassword(ctx, m.ID, "")
	if err != nil || ok {
		t.Errorf("member without password matched: %v %v", ok, err)
	}

	if err := h.repos.Members.SetPassword(ctx, m.ID, "", "asha"); !store.IsValidation(err) {
		t.Errorf("expected validation failure for blank password, got %v", err)
	}
	if err := h.repos.Members.SetPassword(ctx, m.ID, "s3cret-pass", "asha"); err != nil {
		t.Fatalf("set password: %v", err)
	}

	m.FullName = "Asha R. Sharma"
	m.PasswordHash = ""
	if _, err := h.repos.Members.Update(ctx, m, "asha"); err != nil {
		t.Fatalf("update: %v", err)
	}

	tests := []struct {
		candidate string
		want      bool
	}{
		{"s3cret-pass", true},
		{"wrong", false},
		{"", false},
	}
	for _, tt := range tests {
		ok, err := h.repos.Members.VerifyPassword(ctx, m.ID, tt.candidate)
		if err != nil {
			t.Fatalf("verify %q: %v", tt.candidate, err)
		}
		if ok != tt.want {
			t.Errorf("verify %q: expected %v, got %v", tt.candidate, tt.want, ok)
		}
	}

	if _, err := h.repos.Members.VerifyPassword(ctx, uuid.New(), "x"); !store.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown member, got %v", err)
	}

	var changes int
	for _, e := range h.sink.Entries() {
		if e.Action == audit.ActionPasswordChange {
			changes++
		}
	}
	if changes != 1 {
		t.Errorf("expected one password change entry, got %d", changes)
	}
}

func TestOwnedRepository_ListByHouseholdFollowsMembers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "memory")

	hh, err := h.repos.Households.Add(ctx, &model.Household{Name: "Rao"}, "asha")
	if err != nil {
		t.Fatalf("add household: %v", err)
	}
	other, err := h.repos.Households.Add(ctx, &model.Household{Name: "Nair"}, "asha")
	if err != nil {
		t.Fatalf("add household: %v", err)
	}

	var members []*model.Member
	for _, hid := range []uuid.UUID{hh.ID, hh.ID, other.ID} {
		m, err := h.repos.Members.Add(ctx, &model.Member{HouseholdID: hid, FullName: "Member"}, "asha")
		if err != nil {
			t.Fatalf("add member: %v", err)
		}
		members = append(members, m)
		if _, err := h.repos.FixedDeposits.Add(ctx, &model.FixedDeposit{
			MemberID: m.ID, BankName: "HDFC", AccountNumber: "FD-" + m.ID.String()[:8], Principal: 100000,
		}, "asha"); err != nil {
			t.Fatalf("add deposit: %v", err)
		}
	}

	deposits, err := h.repos.FixedDeposits.ListByHousehold(ctx, hh.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(deposits) != 2 {
		t.Fatalf("expected 2 deposits, got %d", len(deposits))
	}

	// removing a member without cascading leaves the deposit row live
	if err := h.repos.Members.SoftDelete(ctx, members[0].ID, "asha"); err != nil {
		t.Fatalf("soft delete member: %v", err)
	}

	deposits, err = h.repos.FixedDeposits.ListByHousehold(ctx, hh.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(deposits) != 1 || deposits[0].MemberID != members[1].ID {
		t.Errorf("expected only the live member's deposit, got %+v", deposits)
	}

	empty, err := h.repos.FixedDeposits.ListByHousehold(ctx, uuid.New())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected an empty list, got %v", empty)
	}
}

func TestMemberRepository_CascadeDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "memory")

	hh, _ := h.repos.Households.Add(ctx, &model.Household{Name: "Das"}, "asha")
	m, err := h.repos.Members.Add(ctx, &model.Member{HouseholdID: hh.ID, FullName: "Ravi Das"}, "asha")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	fund, err := h.repos.MutualFunds.Add(ctx, &model.MutualFundHolding{
		MemberID: m.ID, FundHouse: "UTI", SchemeName: "Index Fund", FolioNumber: "1234567/89", Units: 10,
	}, "asha")
	if err != nil {
		t.Fatalf("add fund: %v", err)
	}

	result, err := h.repos.Members.CascadeDelete(ctx, m.ID, "asha")
	if err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if ids := result.Deleted[model.FamilyMutualFundHolding]; len(ids) != 1 || ids[0] != fund.ID {
		t.Errorf("unexpected cascade result %+v", result.Deleted)
	}
	if _, err := h.repos.Households.GetByID(ctx, hh.ID); err != nil {
		t.Errorf("household should survive member cascade: %v", err)
	}

	if _, err := h.repos.Members.CascadeDelete(ctx, m.ID, "asha"); !store.IsNotFound(err) {
		t.Errorf("expected NotFound on second cascade, got %v", err)
	}

	entries := h.sink.Entries()
	last := entries[len(entries)-1]
	if last.Action != audit.ActionCascadeDelete || last.EntityID != m.ID || len(last.RelatedIDs) != 1 {
		t.Errorf("unexpected audit entry %+v", last)
	}
}

func TestMediclaimRepository_Coverage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "memory")

	hh, _ := h.repos.Households.Add(ctx, &model.Household{Name: "Menon"}, "asha")
	holder, _ := h.repos.Members.Add(ctx, &model.Member{HouseholdID: hh.ID, FullName: "Asha Menon"}, "asha")
	child, _ := h.repos.Members.Add(ctx, &model.Member{HouseholdID: hh.ID, FullName: "Kiran Menon", Relationship: "child"}, "asha")

	policy, err := h.repos.Mediclaim.Add(ctx, &model.MediclaimPolicy{
		MemberID: holder.ID, Insurer: "Star Health", PolicyNumber: "P/123/456789", SumInsured: 500000,
	}, "asha")
	if err != nil {
		t.Fatalf("add policy: %v", err)
	}

	first, err := h.repos.Mediclaim.AddCoveredMember(ctx, policy.ID, child.ID, "asha")
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	again, err := h.repos.Mediclaim.AddCoveredMember(ctx, policy.ID, child.ID, "asha")
	if err != nil {
		t.Fatalf("cover again: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("expected the existing coverage, got a new one")
	}

	covered, err := h.repos.Mediclaim.CoveredMembers(ctx, policy.ID)
	if err != nil {
		t.Fatalf("covered: %v", err)
	}
	if len(covered) != 1 || covered[0].ID != child.ID {
		t.Fatalf("unexpected covered members %+v", covered)
	}

	if _, err := h.repos.Mediclaim.AddCoveredMember(ctx, policy.ID, uuid.New(), "asha"); !store.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown member, got %v", err)
	}
	if _, err := h.repos.Mediclaim.AddCoveredMember(ctx, uuid.New(), child.ID, "asha"); !store.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown policy, got %v", err)
	}

	if err := h.repos.Mediclaim.RemoveCoveredMember(ctx, policy.ID, child.ID, "asha"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	covered, err = h.repos.Mediclaim.CoveredMembers(ctx, policy.ID)
	if err != nil {
		t.Fatalf("covered: %v", err)
	}
	if len(covered) != 0 {
		t.Errorf("expected no covered members, got %d", len(covered))
	}
	if err := h.repos.Mediclaim.RemoveCoveredMember(ctx, policy.ID, child.ID, "asha"); !store.IsNotFound(err) {
		t.Errorf("expected NotFound on second remove, got %v", err)
	}

	var actions []audit.Action
	for _, e := range h.sink.Entries() {
		if e.Action == audit.ActionCoverageAdd || e.Action == audit.ActionCoverageRemove {
			actions = append(actions, e.Action)
		}
	}
	if len(actions) != 2 || actions[0] != audit.ActionCoverageAdd || actions[1] != audit.ActionCoverageRemove {
		t.Errorf("unexpected coverage audit %v", actions)
	}
}

func TestMediclaimRepository_DuplicateCoverage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "memory")

	holder := h.addMember(t)
	policy, err := h.repos.Mediclaim.Add(ctx, &model.MediclaimPolicy{MemberID: holder.ID, Insurer: "Niva", PolicyNumber: "NB-2024-91"}, "asha")
	if err != nil {
		t.Fatalf("add policy: %v", err)
	}

	// two racing AddCoveredMember calls can both insert
	for i := 0; i < 2; i++ {
		if _, err := h.repos.Mediclaim.coverage.Add(ctx, &model.MediclaimCoverage{PolicyID: policy.ID, MemberID: holder.ID}, "asha"); err != nil {
			t.Fatalf("add coverage row: %v", err)
		}
	}

	covered, err := h.repos.Mediclaim.CoveredMembers(ctx, policy.ID)
	if err != nil {
		t.Fatalf("covered: %v", err)
	}
	if len(covered) != 1 || covered[0].ID != holder.ID {
		t.Errorf("expected the member once, got %+v", covered)
	}

	if err := h.repos.Mediclaim.RemoveCoveredMember(ctx, policy.ID, holder.ID, "asha"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	rows, err := h.repos.Mediclaim.coverageTable.Find(ctx, store.Eq("policy_id", policy.ID))
	if err != nil {
		t.Fatalf("find coverage: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected every coverage row removed, got %d", len(rows))
	}
}

func TestMediclaimRepository_CoveredMembersFollowsCascade(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "memory")

	hh, _ := h.repos.Households.Add(ctx, &model.Household{Name: "Bose"}, "asha")
	holder, _ := h.repos.Members.Add(ctx, &model.Member{HouseholdID: hh.ID, FullName: "Asha Bose"}, "asha")
	spouse, _ := h.repos.Members.Add(ctx, &model.Member{HouseholdID: hh.ID, FullName: "Ravi Bose"}, "asha")
	policy, err := h.repos.Mediclaim.Add(ctx, &model.MediclaimPolicy{MemberID: holder.ID, Insurer: "Niva", PolicyNumber: "NB-2024-77"}, "asha")
	if err != nil {
		t.Fatalf("add policy: %v", err)
	}
	if _, err := h.repos.Mediclaim.AddCoveredMember(ctx, policy.ID, spouse.ID, "asha"); err != nil {
		t.Fatalf("cover: %v", err)
	}
	if covered, _ := h.repos.Mediclaim.CoveredMembers(ctx, policy.ID); len(covered) != 1 {
		t.Fatalf("expected one covered member, got %d", len(covered))
	}

	if _, err := h.repos.Members.CascadeDelete(ctx, spouse.ID, "asha"); err != nil {
		t.Fatalf("cascade: %v", err)
	}

	covered, err := h.repos.Mediclaim.CoveredMembers(ctx, policy.ID)
	if err != nil {
		t.Fatalf("covered: %v", err)
	}
	if len(covered) != 0 {
		t.Errorf("expected the deleted member to drop out, got %d", len(covered))
	}
}

func TestRepository_CacheBackendFaultFallsBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "memory")
	h.cache.CacheService = faultyCache{}

	hh, err := h.repos.Households.Add(ctx, &model.Household{Name: "Khan"}, "asha")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	list, err := h.repos.Households.List(ctx)
	if err != nil {
		t.Fatalf("list with faulty cache: %v", err)
	}
	if len(list) != 1 || list[0].ID != hh.ID {
		t.Errorf("unexpected list %+v", list)
	}
}

type faultyCache struct{}

func (faultyCache) GetOrFetch(context.Context, string, func(context.Context) (any, error)) (any, error) {
	return nil, errors.New("cache unavailable")
}

func (faultyCache) Delete(context.Context, string) error { return nil }

func TestNew_RequiresDeps(t *testing.T) {
	codec, err := fieldcrypt.NewCodec(testsupport.EncryptionKey())
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	backend := MemoryBackend(memstore.New())
	noop, err := cache.NewCacheService(cache.Config{Backend: cache.BackendNone})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}

	tests := []struct {
		name string
		deps Deps
	}{
		{"missing backend", Deps{Cache: noop, Codec: codec}},
		{"missing cache", Deps{Backend: backend, Codec: codec}},
		{"missing codec", Deps{Backend: backend, Cache: noop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("expected an error")
			}
		})
	}

	repos, err := New(Deps{Backend: backend, Cache: noop, Codec: codec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if repos.Tokens == nil {
		t.Error("expected a default registry")
	}
}
