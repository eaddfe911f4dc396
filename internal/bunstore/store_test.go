package bunstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/store"
)

var stamp = store.Stamp{Actor: "tester", At: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)}

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func insert[T model.Entity](t *testing.T, db *bun.DB, record T) T {
	t.Helper()

	record.GetBase().StampCreated(stamp.Actor, stamp.At)
	out, err := NewTable[T](db).Insert(context.Background(), record)
	if err != nil {
		t.Fatalf("insert %s: %v", record.Family(), err)
	}
	return out
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("second CreateSchema() error = %v", err)
	}
}

func TestTable_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	h := insert(t, db, &model.Household{Name: "Rao family", City: "Pune"})
	m := insert(t, db, &model.Member{HouseholdID: h.ID, FullName: "Asha Rao", Relationship: "self"})

	members := NewTable[*model.Member](db)

	got, err := members.FindByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.FullName != "Asha Rao" || got.HouseholdID != h.ID {
		t.Errorf("FindByID() = %+v", got)
	}

	list, err := members.Find(ctx, store.Eq("household_id", h.ID))
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != m.ID {
		t.Errorf("Find() = %+v", list)
	}

	empty, err := members.Find(ctx, store.In("household_id"))
	if err != nil || len(empty) != 0 {
		t.Errorf("empty In: %v, %v", empty, err)
	}
}

func TestTable_FindReturnsEveryRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	h := insert(t, db, &model.Household{Name: "Large family", City: "Delhi"})
	const n = 30
	for i := 0; i < n; i++ {
		insert(t, db, &model.Member{HouseholdID: h.ID, FullName: fmt.Sprintf("Member %02d", i), Relationship: "child"})
	}

	members := NewTable[*model.Member](db)

	all, err := members.Find(ctx)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(all) != n {
		t.Errorf("Find() returned %d rows, want %d", len(all), n)
	}

	byHousehold, err := members.Find(ctx, store.Eq("household_id", h.ID))
	if err != nil {
		t.Fatalf("Find(household) error = %v", err)
	}
	if len(byHousehold) != n {
		t.Errorf("Find(household) returned %d rows, want %d", len(byHousehold), n)
	}
}

func TestTable_UpdateGuards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	households := NewTable[*model.Household](db)

	h := insert(t, db, &model.Household{Name: "a"})

	h.Name = "b"
	if _, err := households.Update(ctx, h); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	h.IsDeleted = true
	if _, err := households.Update(ctx, h); err != nil {
		t.Fatalf("soft delete through Update: %v", err)
	}
	if _, err := households.FindByID(ctx, h.ID); !store.IsNotFound(err) {
		t.Errorf("expected NotFound after soft delete, got %v", err)
	}
	if _, err := households.Update(ctx, h); !store.IsNotFound(err) {
		t.Errorf("expected NotFound for soft-deleted row, got %v", err)
	}

	ghost := &model.Household{Name: "ghost"}
	ghost.ID = uuid.New()
	if _, err := households.Update(ctx, ghost); !store.IsNotFound(err) {
		t.Errorf("expected NotFound for missing row, got %v", err)
	}
}

func TestTransactor_SoftDeleteByParent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	h := insert(t, db, &model.Household{Name: "a"})
	m := insert(t, db, &model.Member{HouseholdID: h.ID, FullName: "m"})
	other := insert(t, db, &model.Member{HouseholdID: uuid.New(), FullName: "other"})
	d := insert(t, db, &model.Document{MemberID: m.ID, DocumentType: model.DocumentPassport, DocumentNumber: "x"})

	var deletedMembers, deletedDocs []uuid.UUID
	err := NewTransactor(db).RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.SoftDeleteByID(ctx, model.FamilyHousehold, h.ID, stamp); err != nil {
			return err
		}
		var err error
		if deletedMembers, err = tx.SoftDeleteByParent(ctx, model.FamilyMember, "household_id", []uuid.UUID{h.ID}, stamp); err != nil {
			return err
		}
		deletedDocs, err = tx.SoftDeleteByParent(ctx, model.FamilyDocument, "member_id", deletedMembers, stamp)
		return err
	})
	if err != nil {
		t.Fatalf("RunInTx() error = %v", err)
	}

	if len(deletedMembers) != 1 || deletedMembers[0] != m.ID {
		t.Errorf("deleted members = %v", deletedMembers)
	}
	if len(deletedDocs) != 1 || deletedDocs[0] != d.ID {
		t.Errorf("deleted documents = %v", deletedDocs)
	}
	if _, err := NewTable[*model.Member](db).FindByID(ctx, other.ID); err != nil {
		t.Errorf("member of another household must stay live: %v", err)
	}
}

func TestTransactor_Rollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	h := insert(t, db, &model.Household{Name: "a"})

	err := NewTransactor(db).RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.SoftDeleteByID(ctx, model.FamilyHousehold, h.ID, stamp); err != nil {
			return err
		}
		return tx.SoftDeleteByID(ctx, model.FamilyMember, uuid.New(), stamp)
	})
	if !store.IsNotFound(err) {
		t.Fatalf("expected NotFound from inside the transaction, got %v", err)
	}

	if _, err := NewTable[*model.Household](db).FindByID(ctx, h.ID); err != nil {
		t.Errorf("household must survive the rollback: %v", err)
	}
}
