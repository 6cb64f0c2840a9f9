package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/generator"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// storeMeta 单行修订号，写事务先锁定该行以串行化写入
type storeMeta struct {
	ID       int `gorm:"primaryKey;autoIncrement:false"`
	Revision int64
}

func (storeMeta) TableName() string {
	return "oee_store_meta"
}

// tables 迁移与清空顺序
var tables = []interface{}{
	&entity.User{},
	&entity.Shift{},
	&entity.DefectType{},
	&entity.DefectCause{},
	&entity.Machine{},
	&entity.LineArea{},
	&entity.SparePart{},
	&entity.PmPartsTemplate{},
	&entity.ProductionRecord{},
	&entity.DowntimeRecord{},
	&entity.DefectRecord{},
	&entity.ErrorReport{},
	&entity.ErrorImage{},
	&entity.ErrorHistory{},
	&entity.MaintenanceOrder{},
	&entity.MaintenancePartUsage{},
	&entity.MaintenanceSchedule{},
	&entity.McPartOrder{},
	&entity.McPartPurchaseRequest{},
	&entity.ConsumablePurchaseRequest{},
	&entity.OeeTarget{},
}

// GormStore PostgreSQL 存储
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// AutoMigrate 建表并初始化修订号行
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(append([]interface{}{&storeMeta{}}, tables...)...); err != nil {
		return fmt.Errorf("迁移数据表失败: %w", err)
	}
	return db.FirstOrCreate(&storeMeta{ID: 1}, storeMeta{ID: 1}).Error
}

// write 事务内锁定修订号行，执行 fn 后递增修订号
func (s *GormStore) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meta storeMeta
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&meta, 1).Error; err != nil {
			return fmt.Errorf("锁定修订号失败: %w", err)
		}
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Model(&meta).UpdateColumn("revision", meta.Revision+1).Error
	})
}

func (s *GormStore) Revision(ctx context.Context) (int64, error) {
	var meta storeMeta
	if err := s.db.WithContext(ctx).First(&meta, 1).Error; err != nil {
		return 0, err
	}
	return meta.Revision, nil
}

func (s *GormStore) Empty(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&entity.Machine{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// snapshotTxOptions 全部表在同一可重复读快照内读取，修订号与数据一致
var snapshotTxOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

func (s *GormStore) Snapshot(ctx context.Context) (*entity.Snapshot, error) {
	snap := &entity.Snapshot{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meta storeMeta
		if err := tx.First(&meta, 1).Error; err != nil {
			return err
		}
		snap.Revision = meta.Revision
		loads := []struct {
			dest  interface{}
			order string
		}{
			{&snap.Master.Users, "id"},
			{&snap.Master.Shifts, "id"},
			{&snap.Master.DefectTypes, "id"},
			{&snap.Master.DefectCauses, "id"},
			{&snap.Master.Machines, "id"},
			{&snap.Master.SpareParts, "id"},
			{&snap.Master.PmPartsTemplates, "id"},
			{&snap.Master.LineAreas, "line_id"},
			{&snap.Production, "id"},
			{&snap.Downtime, "id"},
			{&snap.Defects, "id"},
			{&snap.ErrorReports, "id"},
			{&snap.ErrorImages, "id"},
			{&snap.ErrorHistory, "id"},
			{&snap.MaintenanceOrders, "id"},
			{&snap.PartUsages, "id"},
			{&snap.Schedules, "id"},
			{&snap.McPartOrders, "id"},
			{&snap.PurchaseRequests, "id"},
			{&snap.ConsumableRequests, "id"},
			{&snap.OeeTargets, "id"},
		}
		for _, l := range loads {
			if err := tx.Order(l.order).Find(l.dest).Error; err != nil {
				return err
			}
		}
		return nil
	}, snapshotTxOptions)
	if err != nil {
		return nil, fmt.Errorf("加载快照失败: %w", err)
	}
	return snap, nil
}

// insert 分批写入，空切片直接返回
func insert[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(&rows, 500).Error
}

// maxID 表内当前最大 ID
func maxID(tx *gorm.DB, model interface{}) (int, error) {
	var max int
	err := tx.Model(model).Select("COALESCE(MAX(id), 0)").Scan(&max).Error
	return max, err
}

func (s *GormStore) Seed(ctx context.Context, snap *entity.Snapshot) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for i := len(tables) - 1; i >= 0; i-- {
			if err := all.Delete(tables[i]).Error; err != nil {
				return fmt.Errorf("清空数据失败: %w", err)
			}
		}
		m := snap.Master
		steps := []func() error{
			func() error { return insert(tx, m.Users) },
			func() error { return insert(tx, m.Shifts) },
			func() error { return insert(tx, m.DefectTypes) },
			func() error { return insert(tx, m.DefectCauses) },
			func() error { return insert(tx, m.Machines) },
			func() error { return insert(tx, m.LineAreas) },
			func() error { return insert(tx, m.SpareParts) },
			func() error { return insert(tx, m.PmPartsTemplates) },
			func() error { return insert(tx, snap.Production) },
			func() error { return insert(tx, snap.Downtime) },
			func() error { return insert(tx, snap.Defects) },
			func() error { return insert(tx, snap.ErrorReports) },
			func() error { return insert(tx, snap.ErrorImages) },
			func() error { return insert(tx, snap.ErrorHistory) },
			func() error { return insert(tx, snap.MaintenanceOrders) },
			func() error { return insert(tx, snap.PartUsages) },
			func() error { return insert(tx, snap.Schedules) },
			func() error { return insert(tx, snap.McPartOrders) },
			func() error { return insert(tx, snap.PurchaseRequests) },
			func() error { return insert(tx, snap.ConsumableRequests) },
			func() error { return insert(tx, snap.OeeTargets) },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return fmt.Errorf("写入种子数据失败: %w", err)
			}
		}
		return nil
	})
}

func (s *GormStore) ReplaceGenerated(ctx context.Context, start, end string, batch *generator.Batch) error {
	if err := validateRange(start, end); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB) error {
		// 编号基于删除前的最大 ID
		productionBase, err := maxID(tx, &entity.ProductionRecord{})
		if err != nil {
			return err
		}
		downtimeBase, err := maxID(tx, &entity.DowntimeRecord{})
		if err != nil {
			return err
		}
		defectBase, err := maxID(tx, &entity.DefectRecord{})
		if err != nil {
			return err
		}

		if err := tx.Where("day BETWEEN ? AND ?", start, end).Delete(&entity.ProductionRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("day BETWEEN ? AND ?", start, end).Delete(&entity.DowntimeRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("work_date BETWEEN ? AND ? AND generated = ?", start, end, true).Delete(&entity.DefectRecord{}).Error; err != nil {
			return err
		}

		production := make([]entity.ProductionRecord, len(batch.Production))
		for i, p := range batch.Production {
			p.ID = productionBase + i + 1
			production[i] = p
		}
		downtime := make([]entity.DowntimeRecord, len(batch.Downtime))
		for i, r := range batch.Downtime {
			r.ID = downtimeBase + i + 1
			downtime[i] = r
		}
		defects := make([]entity.DefectRecord, len(batch.Defects))
		for i, r := range batch.Defects {
			r.ID = defectBase + i + 1
			r.Generated = true
			defects[i] = r
		}

		if err := insert(tx, production); err != nil {
			return err
		}
		if err := insert(tx, downtime); err != nil {
			return err
		}
		return insert(tx, defects)
	})
}

// ========== 设备与区域 ==========

func (s *GormStore) CreateMachine(ctx context.Context, m *entity.Machine) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		max, err := maxID(tx, &entity.Machine{})
		if err != nil {
			return err
		}
		m.ID = max + 1
		return tx.Create(m).Error
	})
}

// update 加载记录、调用 fn 并保存
func update[T any](tx *gorm.DB, id int, label string, fn func(*T) error) (*T, error) {
	var row T
	if err := tx.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s %d: %w", label, id, ErrNotFound)
		}
		return nil, err
	}
	if err := fn(&row); err != nil {
		return nil, err
	}
	if err := tx.Save(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *GormStore) UpdateMachine(ctx context.Context, id int, fn func(m *entity.Machine) error) (*entity.Machine, error) {
	var out *entity.Machine
	err := s.write(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = update(tx, id, "设备", fn)
		return err
	})
	return out, err
}

func (s *GormStore) CreateLineArea(ctx context.Context, la entity.LineArea) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		return tx.Create(&la).Error
	})
}

func (s *GormStore) RenameArea(ctx context.Context, oldName, newName string) (int, error) {
	var n int
	err := s.write(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&entity.LineArea{}).Where("LOWER(area) = LOWER(?)", oldName).Update("area", newName)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("区域 %s: %w", oldName, ErrNotFound)
		}
		n = int(res.RowsAffected)
		return nil
	})
	return n, err
}

// ========== 异常报告 ==========

func (s *GormStore) CreateErrorReport(ctx context.Context, r *entity.ErrorReport, history *entity.ErrorHistory) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		max, err := maxID(tx, &entity.ErrorReport{})
		if err != nil {
			return err
		}
		r.ID = max + 1
		if r.ReportNo == "" {
			r.ReportNo = entity.ReportNumber(r.ID)
		}
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		if history == nil {
			return nil
		}
		return createHistory(tx, r.ID, history)
	})
}

func createHistory(tx *gorm.DB, errorID int, h *entity.ErrorHistory) error {
	max, err := maxID(tx, &entity.ErrorHistory{})
	if err != nil {
		return err
	}
	h.ID = max + 1
	h.ErrorID = errorID
	return tx.Create(h).Error
}

func (s *GormStore) UpdateErrorReport(ctx context.Context, id int, fn func(r *entity.ErrorReport) (*entity.ErrorHistory, error)) (*entity.ErrorReport, error) {
	var out *entity.ErrorReport
	err := s.write(ctx, func(tx *gorm.DB) error {
		var history *entity.ErrorHistory
		var err error
		out, err = update(tx, id, "异常报告", func(r *entity.ErrorReport) error {
			history, err = fn(r)
			return err
		})
		if err != nil {
			return err
		}
		if history == nil {
			return nil
		}
		return createHistory(tx, id, history)
	})
	return out, err
}

func (s *GormStore) CreateErrorImage(ctx context.Context, img *entity.ErrorImage) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.ErrorReport{}).Where("id = ?", img.ErrorID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("异常报告 %d: %w", img.ErrorID, ErrNotFound)
		}
		max, err := maxID(tx, &entity.ErrorImage{})
		if err != nil {
			return err
		}
		img.ID = max + 1
		return tx.Create(img).Error
	})
}

// ========== 维修工单 ==========

func createUsages(tx *gorm.DB, orderID int, parts []entity.MaintenancePartUsage) error {
	max, err := maxID(tx, &entity.MaintenancePartUsage{})
	if err != nil {
		return err
	}
	rows := make([]entity.MaintenancePartUsage, len(parts))
	for i, p := range parts {
		p.ID = max + i + 1
		p.OrderID = orderID
		rows[i] = p
	}
	return insert(tx, rows)
}

func (s *GormStore) CreateMaintenanceOrder(ctx context.Context, o *entity.MaintenanceOrder, parts []entity.MaintenancePartUsage) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		max, err := maxID(tx, &entity.MaintenanceOrder{})
		if err != nil {
			return err
		}
		o.ID = max + 1
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		return createUsages(tx, o.ID, parts)
	})
}

func (s *GormStore) UpdateMaintenanceOrder(ctx context.Context, id int, fn func(o *entity.MaintenanceOrder) ([]entity.MaintenancePartUsage, error)) (*entity.MaintenanceOrder, error) {
	var out *entity.MaintenanceOrder
	err := s.write(ctx, func(tx *gorm.DB) error {
		var parts []entity.MaintenancePartUsage
		var err error
		out, err = update(tx, id, "维修工单", func(o *entity.MaintenanceOrder) error {
			parts, err = fn(o)
			return err
		})
		if err != nil {
			return err
		}
		if parts == nil {
			return nil
		}
		if err := tx.Where("order_id = ?", id).Delete(&entity.MaintenancePartUsage{}).Error; err != nil {
			return err
		}
		return createUsages(tx, id, parts)
	})
	return out, err
}

// ========== 备件 ==========

func (s *GormStore) CreateSparePart(ctx context.Context, p *entity.SparePart) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		max, err := maxID(tx, &entity.SparePart{})
		if err != nil {
			return err
		}
		p.ID = max + 1
		return tx.Create(p).Error
	})
}

func (s *GormStore) UpdateSparePart(ctx context.Context, id int, fn func(p *entity.SparePart) error) (*entity.SparePart, error) {
	var out *entity.SparePart
	err := s.write(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = update(tx, id, "备件", fn)
		return err
	})
	return out, err
}

// ========== 缺陷与采购 ==========

func (s *GormStore) CreateDefect(ctx context.Context, d *entity.DefectRecord) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		max, err := maxID(tx, &entity.DefectRecord{})
		if err != nil {
			return err
		}
		d.ID = max + 1
		return tx.Create(d).Error
	})
}

func (s *GormStore) CreatePurchaseRequest(ctx context.Context, r *entity.McPartPurchaseRequest) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		max, err := maxID(tx, &entity.McPartPurchaseRequest{})
		if err != nil {
			return err
		}
		r.ID = max + 1
		return tx.Create(r).Error
	})
}

func (s *GormStore) CreateConsumableRequest(ctx context.Context, r *entity.ConsumablePurchaseRequest) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		max, err := maxID(tx, &entity.ConsumablePurchaseRequest{})
		if err != nil {
			return err
		}
		r.ID = max + 1
		return tx.Create(r).Error
	})
}
