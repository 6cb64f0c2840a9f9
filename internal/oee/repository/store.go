package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/generator"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrInvalidRange 替换区间起始日期晚于结束日期
	ErrInvalidRange = errors.New("invalid date range")
)

// Store 数据存储。读操作返回独立副本，写操作串行执行并推进修订号。
//
// Update* 系列在写锁（或事务）内加载记录并调用 fn，fn 返回错误时不落库。
type Store interface {
	// Snapshot 当前全部数据的深拷贝
	Snapshot(ctx context.Context) (*entity.Snapshot, error)
	// Revision 每次成功写入后递增
	Revision(ctx context.Context) (int64, error)
	// Empty 尚无任何设备主数据
	Empty(ctx context.Context) (bool, error)
	// Seed 用给定快照替换全部数据
	Seed(ctx context.Context, snap *entity.Snapshot) error
	// ReplaceGenerated 删除 [start, end] 内的生产、停机记录与模拟生成的缺陷记录后写入新批次。
	// 批次 ID 从删除前的最大 ID 之后编号，已删除的 ID 不会被复用；人工录入的缺陷保留。
	ReplaceGenerated(ctx context.Context, start, end string, batch *generator.Batch) error

	CreateMachine(ctx context.Context, m *entity.Machine) error
	UpdateMachine(ctx context.Context, id int, fn func(m *entity.Machine) error) (*entity.Machine, error)
	CreateLineArea(ctx context.Context, la entity.LineArea) error
	// RenameArea 返回受影响的产线数
	RenameArea(ctx context.Context, oldName, newName string) (int, error)

	// CreateErrorReport 分配 ID，未指定编号时生成 ERR-xxx，并写入首条历史
	CreateErrorReport(ctx context.Context, r *entity.ErrorReport, history *entity.ErrorHistory) error
	// UpdateErrorReport fn 返回非 nil 历史时追加
	UpdateErrorReport(ctx context.Context, id int, fn func(r *entity.ErrorReport) (*entity.ErrorHistory, error)) (*entity.ErrorReport, error)
	CreateErrorImage(ctx context.Context, img *entity.ErrorImage) error

	CreateMaintenanceOrder(ctx context.Context, o *entity.MaintenanceOrder, parts []entity.MaintenancePartUsage) error
	// UpdateMaintenanceOrder fn 返回非 nil 切片（可为空）时整体替换用料
	UpdateMaintenanceOrder(ctx context.Context, id int, fn func(o *entity.MaintenanceOrder) ([]entity.MaintenancePartUsage, error)) (*entity.MaintenanceOrder, error)

	CreateSparePart(ctx context.Context, p *entity.SparePart) error
	UpdateSparePart(ctx context.Context, id int, fn func(p *entity.SparePart) error) (*entity.SparePart, error)

	CreateDefect(ctx context.Context, d *entity.DefectRecord) error
	CreatePurchaseRequest(ctx context.Context, r *entity.McPartPurchaseRequest) error
	CreateConsumableRequest(ctx context.Context, r *entity.ConsumablePurchaseRequest) error
}

// nextID 当前最大 ID + 1
func nextID[T any](items []T, id func(T) int) int {
	max := 0
	for _, it := range items {
		if v := id(it); v > max {
			max = v
		}
	}
	return max + 1
}

// inRange 闭区间日期比较，格式均为 YYYY-MM-DD
func inRange(day, start, end string) bool {
	return day >= start && day <= end
}

// validateRange 校验替换区间
func validateRange(start, end string) error {
	from, err := time.Parse(entity.DateLayout, start)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	to, err := time.Parse(entity.DateLayout, end)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if from.After(to) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidRange, start, end)
	}
	return nil
}
