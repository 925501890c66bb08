package equipment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/medequip/internal/entity"
	"github.com/Additional-Code/medequip/internal/testutil"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(testutil.NewConnections(t))
}

func newRecord(serial string, createdAt time.Time) *entity.Equipment {
	return &entity.Equipment{
		Name:         "Infusion Pump",
		SerialNumber: serial,
		Category:     "Therapeutic",
		Status:       entity.StatusActive,
		CreatedAt:    createdAt,
	}
}

func TestRepository_InsertAndGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	purchased := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	rec := newRecord("SN-001", created)
	rec.Manufacturer = "Baxter"
	rec.PurchaseDate = &purchased

	require.NoError(t, repo.Insert(ctx, rec))
	require.Greater(t, rec.ID, int64(0), "ID should be assigned after insert")

	found, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "SN-001", found.SerialNumber)
	require.Equal(t, "Baxter", found.Manufacturer)
	require.Empty(t, found.Model)
	require.Equal(t, entity.StatusActive, found.Status)
	require.True(t, created.Equal(found.CreatedAt), "CreatedAt should round-trip")
	require.NotNil(t, found.PurchaseDate)
	require.Equal(t, "2024-06-01", found.PurchaseDate.UTC().Format("2006-01-02"))
	require.Nil(t, found.UpdatedAt)
	require.Nil(t, found.NextMaintenanceDate)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.GetByID(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Insert_DuplicateSerial(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newRecord("SN-001", time.Now().UTC())))

	err := repo.Insert(ctx, newRecord("SN-001", time.Now().UTC()))
	var violation *ConstraintViolationError
	require.True(t, errors.As(err, &violation), "expected constraint violation, got %v", err)
	require.Equal(t, "serial_number", violation.Constraint)

	records, err := repo.ListOrderedByCreatedAtDesc(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1, "rejected insert must not persist")
}

func TestRepository_UpdateByID(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := newRecord("SN-001", created)
	require.NoError(t, repo.Insert(ctx, rec))

	updatedAt := created.Add(time.Hour)
	changed := *rec
	changed.Name = "Syringe Pump"
	changed.Status = entity.StatusUnderRepair
	changed.CreatedAt = created.Add(48 * time.Hour)
	changed.UpdatedAt = &updatedAt

	require.NoError(t, repo.UpdateByID(ctx, rec.ID, &changed))

	found, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "Syringe Pump", found.Name)
	require.Equal(t, entity.StatusUnderRepair, found.Status)
	require.True(t, created.Equal(found.CreatedAt), "CreatedAt must never be written by an update")
	require.NotNil(t, found.UpdatedAt)
	require.True(t, updatedAt.Equal(*found.UpdatedAt))
}

func TestRepository_UpdateByID_Missing(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.UpdateByID(context.Background(), 7, newRecord("SN-404", time.Now().UTC()))
	require.ErrorIs(t, err, ErrNotFound)

	records, err := repo.ListOrderedByCreatedAtDesc(context.Background())
	require.NoError(t, err)
	require.Empty(t, records, "update of a missing record must not create one")
}

func TestRepository_UpdateByID_DuplicateSerial(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first := newRecord("SN-001", time.Now().UTC())
	second := newRecord("SN-002", time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))

	second.SerialNumber = "SN-001"
	err := repo.UpdateByID(ctx, second.ID, second)
	var violation *ConstraintViolationError
	require.ErrorAs(t, err, &violation)
}

func TestRepository_DeleteByID(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec := newRecord("SN-001", time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, rec))

	removed, err := repo.DeleteByID(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, removed)

	_, err = repo.GetByID(ctx, rec.ID)
	require.ErrorIs(t, err, ErrNotFound)

	removed, err = repo.DeleteByID(ctx, rec.ID)
	require.NoError(t, err, "deleting an absent record is not an error")
	require.False(t, removed)
}

func TestRepository_IDsAreNotReused(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first := newRecord("SN-001", time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, first))
	_, err := repo.DeleteByID(ctx, first.ID)
	require.NoError(t, err)

	second := newRecord("SN-002", time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, second))
	require.Greater(t, second.ID, first.ID)
}

func TestRepository_ExistsWhere(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec := newRecord("SN-001", time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, rec))

	exists, err := repo.ExistsWhere(ctx, SerialNumberEquals("SN-001"))
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.ExistsWhere(ctx, SerialNumberEquals("SN-999"))
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = repo.ExistsWhere(ctx, All(SerialNumberEquals("SN-001"), ExcludingID(rec.ID)))
	require.NoError(t, err)
	require.False(t, exists, "a record never collides with itself")
}

func TestRepository_ListOrderedByCreatedAtDesc(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	a := newRecord("SN-A", base)
	b := newRecord("SN-B", base.Add(time.Minute))
	c := newRecord("SN-C", base.Add(time.Minute))
	d := newRecord("SN-D", base.Add(-time.Minute))
	for _, rec := range []*entity.Equipment{a, b, c, d} {
		require.NoError(t, repo.Insert(ctx, rec))
	}

	records, err := repo.ListOrderedByCreatedAtDesc(ctx)
	require.NoError(t, err)

	serials := make([]string, 0, len(records))
	for _, rec := range records {
		serials = append(serials, rec.SerialNumber)
	}
	require.Equal(t, []string{"SN-C", "SN-B", "SN-A", "SN-D"}, serials, "ties resolve to the later insert first")
}
