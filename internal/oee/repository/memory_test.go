package repository

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	snap, err := generator.Seed(generator.New(rand.New(rand.NewSource(11))), "2025-10-20", "2025-10-26")
	require.NoError(t, err)
	s := NewMemoryStore()
	require.NoError(t, s.Seed(context.Background(), snap))
	return s
}

func TestMemoryStore_SnapshotIsIndependent(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	snap.Master.Machines[0].Name = "changed"
	snap.Production = nil

	again, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "changed", again.Master.Machines[0].Name)
	assert.NotEmpty(t, again.Production)
}

func TestMemoryStore_RevisionAdvancesOnWrite(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	before, _ := s.Revision(ctx)
	require.NoError(t, s.CreatePurchaseRequest(ctx, &entity.McPartPurchaseRequest{ItemCode: "X"}))
	after, _ := s.Revision(ctx)
	assert.Equal(t, before+1, after)

	// 失败的写入不推进修订号
	_, err := s.UpdateMachine(ctx, 1, func(m *entity.Machine) error { return errors.New("boom") })
	require.Error(t, err)
	unchanged, _ := s.Revision(ctx)
	assert.Equal(t, after, unchanged)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, after, snap.Revision)
}

func TestMemoryStore_Empty(t *testing.T) {
	ctx := context.Background()
	empty, err := NewMemoryStore().Empty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	empty, err = seededStore(t).Empty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestMemoryStore_ReplaceGenerated(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	before, err := s.Snapshot(ctx)
	require.NoError(t, err)

	master := before.Master
	batch, err := generator.New(rand.New(rand.NewSource(5))).Generate(&master, "2025-10-25", "2025-10-26")
	require.NoError(t, err)
	require.NoError(t, s.ReplaceGenerated(ctx, "2025-10-25", "2025-10-26", batch))

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)

	countIn := func(recs []entity.ProductionRecord, start, end string) int {
		n := 0
		for _, p := range recs {
			if inRange(p.Day, start, end) {
				n++
			}
		}
		return n
	}
	// 区间内被替换，区间外保持不变
	assert.Equal(t, len(batch.Production), countIn(after.Production, "2025-10-25", "2025-10-26"))
	assert.Equal(t, countIn(before.Production, "2025-10-20", "2025-10-24"), countIn(after.Production, "2025-10-20", "2025-10-24"))

	defectsIn := 0
	for _, d := range after.Defects {
		if inRange(d.WorkDate, "2025-10-25", "2025-10-26") {
			defectsIn++
		}
	}
	assert.Equal(t, len(batch.Defects), defectsIn)

	// 重复应用同一区间不会累积
	require.NoError(t, s.ReplaceGenerated(ctx, "2025-10-25", "2025-10-26", batch))
	again, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, again.Production, len(after.Production))
	assert.Len(t, again.Downtime, len(after.Downtime))

	ids := make(map[int]bool)
	for _, p := range again.Production {
		assert.False(t, ids[p.ID], "duplicate id %d", p.ID)
		ids[p.ID] = true
	}
}

func TestMemoryStore_ReplaceGeneratedKeepsManualDefects(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	manual := &entity.DefectRecord{WorkDate: "2025-10-22", MachineID: 1, ShiftID: 1, DefectTypeID: 1, Quantity: 3, Status: entity.DefectOpen, ReporterID: 202}
	require.NoError(t, s.CreateDefect(ctx, manual))

	before, err := s.Snapshot(ctx)
	require.NoError(t, err)
	maxProduction, maxDefect := 0, 0
	for _, p := range before.Production {
		maxProduction = max(maxProduction, p.ID)
	}
	for _, d := range before.Defects {
		maxDefect = max(maxDefect, d.ID)
	}

	master := before.Master
	batch, err := generator.New(rand.New(rand.NewSource(5))).Generate(&master, "2025-10-20", "2025-10-26")
	require.NoError(t, err)
	require.NoError(t, s.ReplaceGenerated(ctx, "2025-10-20", "2025-10-26", batch))

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)

	var kept *entity.DefectRecord
	for i := range after.Defects {
		d := after.Defects[i]
		if d.ID == manual.ID {
			kept = &after.Defects[i]
			continue
		}
		// 新批次不复用旧 ID，旧链接不会指向新记录
		assert.Greater(t, d.ID, maxDefect)
		assert.True(t, d.Generated)
	}
	require.NotNil(t, kept)
	assert.False(t, kept.Generated)
	assert.Equal(t, 3, kept.Quantity)
	assert.Len(t, after.Defects, len(batch.Defects)+1)

	for _, p := range after.Production {
		assert.Greater(t, p.ID, maxProduction)
	}
}

func TestMemoryStore_ReplaceGeneratedInvalidRange(t *testing.T) {
	s := seededStore(t)
	err := s.ReplaceGenerated(context.Background(), "2025-10-27", "2025-10-26", &generator.Batch{})
	assert.ErrorIs(t, err, ErrInvalidRange)

	err = s.ReplaceGenerated(context.Background(), "bad", "2025-10-26", &generator.Batch{})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestMemoryStore_ErrorReportLifecycle(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	r := &entity.ErrorReport{MachineID: 1, ShiftID: 1, OperatorID: 201, Status: entity.ErrorReported}
	h := &entity.ErrorHistory{ChangedBy: 201, NewStatus: entity.ErrorReported, Note: "Report created."}
	require.NoError(t, s.CreateErrorReport(ctx, r, h))
	assert.Equal(t, 3, r.ID)
	assert.Equal(t, "ERR-003", r.ReportNo)
	assert.Equal(t, r.ID, h.ErrorID)

	updated, err := s.UpdateErrorReport(ctx, r.ID, func(rep *entity.ErrorReport) (*entity.ErrorHistory, error) {
		rep.Status = entity.ErrorInProgress
		return &entity.ErrorHistory{OldStatus: entity.ErrorReported, NewStatus: entity.ErrorInProgress}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ErrorInProgress, updated.Status)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	var history []entity.ErrorHistory
	for _, x := range snap.ErrorHistory {
		if x.ErrorID == r.ID {
			history = append(history, x)
		}
	}
	require.Len(t, history, 2)
	assert.NotEqual(t, history[0].ID, history[1].ID)

	_, err = s.UpdateErrorReport(ctx, 999, func(*entity.ErrorReport) (*entity.ErrorHistory, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrNotFound)

	img := &entity.ErrorImage{ErrorID: r.ID, ImageURL: "http://img/1.png"}
	require.NoError(t, s.CreateErrorImage(ctx, img))
	assert.Positive(t, img.ID)
	assert.ErrorIs(t, s.CreateErrorImage(ctx, &entity.ErrorImage{ErrorID: 999}), ErrNotFound)
}

func TestMemoryStore_MaintenanceOrderParts(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	o := &entity.MaintenanceOrder{MachineID: 1, Type: entity.OrderTypeIM, Status: entity.OrderOpen}
	require.NoError(t, s.CreateMaintenanceOrder(ctx, o, []entity.MaintenancePartUsage{{PartID: 1, QtyUsed: 2}}))

	// nil 保留原用料
	_, err := s.UpdateMaintenanceOrder(ctx, o.ID, func(x *entity.MaintenanceOrder) ([]entity.MaintenancePartUsage, error) {
		x.Status = entity.OrderInProgress
		return nil, nil
	})
	require.NoError(t, err)
	assert.Len(t, usagesOf(t, s, o.ID), 1)

	// 非 nil 整体替换
	done, err := s.UpdateMaintenanceOrder(ctx, o.ID, func(x *entity.MaintenanceOrder) ([]entity.MaintenancePartUsage, error) {
		x.Status = entity.OrderDone
		return []entity.MaintenancePartUsage{{PartID: 2, QtyUsed: 1}, {PartID: 3, QtyUsed: 4}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderDone, done.Status)
	usages := usagesOf(t, s, o.ID)
	require.Len(t, usages, 2)
	assert.Equal(t, 2, usages[0].PartID)

	_, err = s.UpdateMaintenanceOrder(ctx, o.ID, func(x *entity.MaintenanceOrder) ([]entity.MaintenancePartUsage, error) {
		return []entity.MaintenancePartUsage{}, nil
	})
	require.NoError(t, err)
	assert.Empty(t, usagesOf(t, s, o.ID))
}

func usagesOf(t *testing.T, s *MemoryStore, orderID int) []entity.MaintenancePartUsage {
	t.Helper()
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	var out []entity.MaintenancePartUsage
	for _, u := range snap.PartUsages {
		if u.OrderID == orderID {
			out = append(out, u)
		}
	}
	return out
}

func TestMemoryStore_RenameArea(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	snap, _ := s.Snapshot(ctx)
	area := snap.Master.LineAreas[0].Area

	n, err := s.RenameArea(ctx, area, "Renamed")
	require.NoError(t, err)
	assert.Positive(t, n)

	snap, _ = s.Snapshot(ctx)
	assert.True(t, snap.Master.HasArea("Renamed"))
	assert.False(t, snap.Master.HasArea(area))

	_, err = s.RenameArea(ctx, "nowhere", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CreateAssignsNextID(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	m := &entity.Machine{Code: "M99", Name: "New", LineID: "7", Status: entity.MachineActive}
	require.NoError(t, s.CreateMachine(ctx, m))
	assert.Equal(t, 7, m.ID)

	p := &entity.SparePart{PartCode: "NEW-1", Name: "New part"}
	require.NoError(t, s.CreateSparePart(ctx, p))
	assert.Equal(t, 7, p.ID)

	updated, err := s.UpdateSparePart(ctx, p.ID, func(x *entity.SparePart) error {
		x.FlaggedForOrder = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.FlaggedForOrder)

	_, err = s.UpdateSparePart(ctx, 404, func(*entity.SparePart) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	before, _ := s.Revision(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.CreateDefect(ctx, &entity.DefectRecord{WorkDate: "2025-10-26", MachineID: 1, ShiftID: 1, DefectTypeID: 1, Quantity: 1})
			_, _ = s.Snapshot(ctx)
		}()
	}
	wg.Wait()

	after, _ := s.Revision(ctx)
	assert.Equal(t, before+20, after)

	snap, _ := s.Snapshot(ctx)
	ids := make(map[int]bool)
	for _, d := range snap.Defects {
		assert.False(t, ids[d.ID])
		ids[d.ID] = true
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()

	_, err := s.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.CreatePurchaseRequest(ctx, &entity.McPartPurchaseRequest{}), context.Canceled)
}
