package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"testing"

	"github.com/bitfantasy/nimo-oee/internal/config"
	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 需要 PostgreSQL，未设置 DB_HOST 时跳过
func openTestDB(t *testing.T) *GormStore {
	t.Helper()
	if os.Getenv("DB_HOST") == "" {
		t.Skip("DB_HOST not set")
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		config.GetEnvOrDefault("DB_PORT", "5432"),
		config.GetEnvOrDefault("DB_USER", "postgres"),
		config.GetEnvOrDefault("DB_PASSWORD", "postgres"),
		config.GetEnvOrDefault("DB_NAME", "nimo_oee_test"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	s := NewGormStore(db)
	require.NoError(t, s.AutoMigrate(context.Background()))
	return s
}

func TestGormStore_SeedAndReplace(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	snap, err := generator.Seed(generator.New(rand.New(rand.NewSource(11))), "2025-10-20", "2025-10-26")
	require.NoError(t, err)
	require.NoError(t, s.Seed(ctx, snap))

	empty, err := s.Empty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)

	loaded, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Production, len(snap.Production))
	assert.Len(t, loaded.Master.Machines, 6)

	rev, err := s.Revision(ctx)
	require.NoError(t, err)

	batch, err := generator.New(rand.New(rand.NewSource(5))).Generate(&loaded.Master, "2025-10-26", "2025-10-26")
	require.NoError(t, err)
	require.NoError(t, s.ReplaceGenerated(ctx, "2025-10-26", "2025-10-26", batch))
	require.NoError(t, s.ReplaceGenerated(ctx, "2025-10-26", "2025-10-26", batch))

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	n := 0
	for _, p := range after.Production {
		if p.Day == "2025-10-26" {
			n++
		}
	}
	assert.Equal(t, len(batch.Production), n)
	assert.Equal(t, rev+2, after.Revision)
}

func TestGormStore_ErrorReport(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, generator.Fixtures("2025-10-20", "2025-10-26")))

	r := &entity.ErrorReport{MachineID: 1, ShiftID: 1, OperatorID: 201, Status: entity.ErrorReported}
	require.NoError(t, s.CreateErrorReport(ctx, r, &entity.ErrorHistory{NewStatus: entity.ErrorReported}))
	assert.Equal(t, "ERR-003", r.ReportNo)

	_, err := s.UpdateErrorReport(ctx, 404, func(*entity.ErrorReport) (*entity.ErrorHistory, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotTxOptions(t *testing.T) {
	require.NotNil(t, snapshotTxOptions)
	assert.Equal(t, sql.LevelRepeatableRead, snapshotTxOptions.Isolation)
	assert.True(t, snapshotTxOptions.ReadOnly)
}

func TestGormStore_ReplaceGeneratedKeepsManualDefects(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	snap, err := generator.Seed(generator.New(rand.New(rand.NewSource(11))), "2025-10-20", "2025-10-26")
	require.NoError(t, err)
	require.NoError(t, s.Seed(ctx, snap))

	manual := &entity.DefectRecord{WorkDate: "2025-10-22", MachineID: 1, ShiftID: 1, DefectTypeID: 1, Quantity: 3, Status: entity.DefectOpen, ReporterID: 202}
	require.NoError(t, s.CreateDefect(ctx, manual))

	batch, err := generator.New(rand.New(rand.NewSource(5))).Generate(&snap.Master, "2025-10-20", "2025-10-26")
	require.NoError(t, err)
	require.NoError(t, s.ReplaceGenerated(ctx, "2025-10-20", "2025-10-26", batch))

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, after.Defects, len(batch.Defects)+1)
	for _, d := range after.Defects {
		if d.ID == manual.ID {
			assert.False(t, d.Generated)
			continue
		}
		assert.True(t, d.Generated)
		assert.Greater(t, d.ID, manual.ID)
	}
}

// 并发写入时快照中的修订号与已提交的采购申请数保持一致
func TestGormStore_SnapshotConsistentUnderWrites(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, generator.Fixtures("2025-10-20", "2025-10-26")))

	base, err := s.Revision(ctx)
	require.NoError(t, err)

	const writes = 20
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			r := &entity.McPartPurchaseRequest{ItemCode: "BLT-A300", Quantity: 1, Status: entity.PurchasePending}
			if err := s.CreatePurchaseRequest(ctx, r); err != nil {
				t.Errorf("create purchase request: %v", err)
				return
			}
		}
	}()

	for i := 0; i < writes; i++ {
		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, int(snap.Revision-base), len(snap.PurchaseRequests))
	}
	wg.Wait()
}
