package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rimworks/rimworks/internal/fault"
)

type memRepo struct {
	records map[int64]*InventoryRecord
	nextID  int64
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[int64]*InventoryRecord)}
}

func (r *memRepo) Create(_ context.Context, rec InventoryRecord) (int64, error) {
	for _, existing := range r.records {
		if existing.Type == rec.Type && existing.RecordDate.Equal(rec.RecordDate) {
			return 0, ErrDuplicate
		}
	}
	r.nextID++
	rec.ID = r.nextID
	r.records[rec.ID] = &rec
	return rec.ID, nil
}

func (r *memRepo) Get(_ context.Context, id int64) (*InventoryRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (r *memRepo) ExistsForDate(_ context.Context, typ RecordType, date time.Time) (bool, error) {
	for _, rec := range r.records {
		if rec.Type == typ && rec.RecordDate.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) LatestEOD(_ context.Context) (*InventoryRecord, error) {
	var latest *InventoryRecord
	for _, rec := range r.records {
		if rec.Type != TypeEOD {
			continue
		}
		if latest == nil || rec.RecordDate.After(latest.RecordDate) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (r *memRepo) List(_ context.Context, req ListRecordsRequest) ([]InventoryRecord, int, error) {
	var list []InventoryRecord
	for _, rec := range r.records {
		if req.Type != nil && rec.Type != *req.Type {
			continue
		}
		list = append(list, *rec)
	}
	return list, len(list), nil
}

type workshopFake struct {
	overnight int
}

func (f *workshopFake) UnfinishedOvernightCount(_ context.Context) (int, error) {
	return f.overnight, nil
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestCreateEODOncePerDate(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &workshopFake{overnight: 3}, nil)

	rec, err := svc.CreateEOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-27"), RimCount: 40, RecordedBy: 2,
	})
	require.NoError(t, err)
	require.Equal(t, TypeEOD, rec.Type)
	require.Equal(t, 40, rec.RimCount)
	require.Equal(t, 3, rec.UnfinishedOvernightJobs)
	require.False(t, rec.HasDiscrepancy)

	_, err = svc.CreateEOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-27"), RimCount: 41, RecordedBy: 2,
	})
	require.ErrorAs(t, err, &fault.EODAlreadyExists{})
	require.Len(t, repo.records, 1)
}

func TestCreateSODRequiresBaseline(t *testing.T) {
	svc := NewService(newMemRepo(), &workshopFake{}, nil)

	_, err := svc.CreateSOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-28"), RimCount: 40, RecordedBy: 2,
	})
	require.ErrorAs(t, err, &fault.EODNotFound{})
}

func TestCreateSODMatchingCountHasNoDiscrepancy(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &workshopFake{}, nil)

	eod, err := svc.CreateEOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-27"), RimCount: 40, RecordedBy: 2,
	})
	require.NoError(t, err)

	sod, err := svc.CreateSOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-28"), RimCount: 40, Notes: "all fine", RecordedBy: 2,
	})
	require.NoError(t, err)
	require.False(t, sod.HasDiscrepancy)
	require.Empty(t, sod.DiscrepancyNotes)
	require.NotNil(t, sod.PreviousEODID)
	require.Equal(t, eod.ID, *sod.PreviousEODID)
}

func TestCreateSODDetectsDiscrepancy(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &workshopFake{overnight: 1}, nil)

	_, err := svc.CreateEOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-27"), RimCount: 40, RecordedBy: 2,
	})
	require.NoError(t, err)

	sod, err := svc.CreateSOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-28"), RimCount: 38, Notes: "two wheels at powder coater", RecordedBy: 2,
	})
	require.NoError(t, err)
	require.True(t, sod.HasDiscrepancy)
	require.Equal(t, "two wheels at powder coater", sod.DiscrepancyNotes)
	require.Equal(t, 1, sod.UnfinishedOvernightJobs)
}

func TestCreateSODOncePerDate(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &workshopFake{}, nil)

	_, err := svc.CreateEOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-27"), RimCount: 40, RecordedBy: 2,
	})
	require.NoError(t, err)

	_, err = svc.CreateSOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-28"), RimCount: 40, RecordedBy: 2,
	})
	require.NoError(t, err)

	_, err = svc.CreateSOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-28"), RimCount: 39, RecordedBy: 2,
	})
	require.ErrorAs(t, err, &fault.SODAlreadyExists{})
}

func TestCreateSODReconcilesAgainstLatestEOD(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &workshopFake{}, nil)

	_, err := svc.CreateEOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-26"), RimCount: 35, RecordedBy: 2,
	})
	require.NoError(t, err)
	latest, err := svc.CreateEOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-27"), RimCount: 42, RecordedBy: 2,
	})
	require.NoError(t, err)

	sod, err := svc.CreateSOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-28"), RimCount: 42, RecordedBy: 2,
	})
	require.NoError(t, err)
	require.False(t, sod.HasDiscrepancy)
	require.Equal(t, latest.ID, *sod.PreviousEODID)
}

func TestHasEODForDate(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &workshopFake{}, nil)

	ok, err := svc.HasEODForDate(context.Background(), day("2026-08-27"))
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.CreateEOD(context.Background(), CreateRecordRequest{
		RecordDate: day("2026-08-27"), RimCount: 40, RecordedBy: 2,
	})
	require.NoError(t, err)

	ok, err = svc.HasEODForDate(context.Background(), day("2026-08-27"))
	require.NoError(t, err)
	require.True(t, ok)
}
