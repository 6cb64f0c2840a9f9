package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/generator"
)

// MemoryStore 进程内存储，读写锁保护全部集合
type MemoryStore struct {
	mu       sync.RWMutex
	data     *entity.Snapshot
	revision atomic.Int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &entity.Snapshot{}}
}

func (s *MemoryStore) Snapshot(ctx context.Context) (*entity.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.data.Clone()
	snap.Revision = s.revision.Load()
	return snap, nil
}

func (s *MemoryStore) Revision(ctx context.Context) (int64, error) {
	return s.revision.Load(), nil
}

func (s *MemoryStore) Empty(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Master.Machines) == 0, nil
}

// write 在写锁内执行 fn，成功后推进修订号
func (s *MemoryStore) write(ctx context.Context, fn func(d *entity.Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.data); err != nil {
		return err
	}
	s.revision.Add(1)
	return nil
}

func (s *MemoryStore) Seed(ctx context.Context, snap *entity.Snapshot) error {
	return s.write(ctx, func(d *entity.Snapshot) error {
		*d = *snap.Clone()
		return nil
	})
}

func (s *MemoryStore) ReplaceGenerated(ctx context.Context, start, end string, batch *generator.Batch) error {
	if err := validateRange(start, end); err != nil {
		return err
	}
	return s.write(ctx, func(d *entity.Snapshot) error {
		// 编号基于删除前的集合
		productionID := nextID(d.Production, func(p entity.ProductionRecord) int { return p.ID })
		downtimeID := nextID(d.Downtime, func(r entity.DowntimeRecord) int { return r.ID })
		defectID := nextID(d.Defects, func(r entity.DefectRecord) int { return r.ID })

		production := d.Production[:0:0]
		for _, p := range d.Production {
			if !inRange(p.Day, start, end) {
				production = append(production, p)
			}
		}
		downtime := d.Downtime[:0:0]
		for _, r := range d.Downtime {
			if !inRange(r.Day, start, end) {
				downtime = append(downtime, r)
			}
		}
		defects := d.Defects[:0:0]
		for _, r := range d.Defects {
			if !r.Generated || !inRange(r.WorkDate, start, end) {
				defects = append(defects, r)
			}
		}

		for _, p := range batch.Production {
			p.ID = productionID
			productionID++
			production = append(production, p)
		}
		for _, r := range batch.Downtime {
			r.ID = downtimeID
			downtimeID++
			downtime = append(downtime, r)
		}
		for _, r := range batch.Defects {
			r.ID = defectID
			defectID++
			r.Generated = true
			r.ImageURLs = append([]string(nil), r.ImageURLs...)
			defects = append(defects, r)
		}

		d.Production, d.Downtime, d.Defects = production, downtime, defects
		return nil
	})
}

// ========== 设备与区域 ==========

func (s *MemoryStore) CreateMachine(ctx context.Context, m *entity.Machine) error {
	return s.write(ctx, func(d *entity.Snapshot) error {
		m.ID = nextID(d.Master.Machines, func(x entity.Machine) int { return x.ID })
		d.Master.Machines = append(d.Master.Machines, *m)
		return nil
	})
}

func (s *MemoryStore) UpdateMachine(ctx context.Context, id int, fn func(m *entity.Machine) error) (*entity.Machine, error) {
	var out entity.Machine
	err := s.write(ctx, func(d *entity.Snapshot) error {
		for i := range d.Master.Machines {
			if d.Master.Machines[i].ID != id {
				continue
			}
			m := d.Master.Machines[i]
			if err := fn(&m); err != nil {
				return err
			}
			d.Master.Machines[i] = m
			out = m
			return nil
		}
		return fmt.Errorf("设备 %d: %w", id, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) CreateLineArea(ctx context.Context, la entity.LineArea) error {
	return s.write(ctx, func(d *entity.Snapshot) error {
		d.Master.LineAreas = append(d.Master.LineAreas, la)
		return nil
	})
}

func (s *MemoryStore) RenameArea(ctx context.Context, oldName, newName string) (int, error) {
	n := 0
	err := s.write(ctx, func(d *entity.Snapshot) error {
		for i := range d.Master.LineAreas {
			if strings.EqualFold(d.Master.LineAreas[i].Area, oldName) {
				d.Master.LineAreas[i].Area = newName
				n++
			}
		}
		if n == 0 {
			return fmt.Errorf("区域 %s: %w", oldName, ErrNotFound)
		}
		return nil
	})
	return n, err
}

// ========== 异常报告 ==========

func (s *MemoryStore) CreateErrorReport(ctx context.Context, r *entity.ErrorReport, history *entity.ErrorHistory) error {
	return s.write(ctx, func(d *entity.Snapshot) error {
		r.ID = nextID(d.ErrorReports, func(x entity.ErrorReport) int { return x.ID })
		if r.ReportNo == "" {
			r.ReportNo = entity.ReportNumber(r.ID)
		}
		d.ErrorReports = append(d.ErrorReports, *r)
		if history != nil {
			history.ID = nextID(d.ErrorHistory, func(x entity.ErrorHistory) int { return x.ID })
			history.ErrorID = r.ID
			d.ErrorHistory = append(d.ErrorHistory, *history)
		}
		return nil
	})
}

func (s *MemoryStore) UpdateErrorReport(ctx context.Context, id int, fn func(r *entity.ErrorReport) (*entity.ErrorHistory, error)) (*entity.ErrorReport, error) {
	var out entity.ErrorReport
	err := s.write(ctx, func(d *entity.Snapshot) error {
		for i := range d.ErrorReports {
			if d.ErrorReports[i].ID != id {
				continue
			}
			r := d.ErrorReports[i]
			h, err := fn(&r)
			if err != nil {
				return err
			}
			d.ErrorReports[i] = r
			if h != nil {
				h.ID = nextID(d.ErrorHistory, func(x entity.ErrorHistory) int { return x.ID })
				h.ErrorID = id
				d.ErrorHistory = append(d.ErrorHistory, *h)
			}
			out = r
			return nil
		}
		return fmt.Errorf("异常报告 %d: %w", id, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) CreateErrorImage(ctx context.Context, img *entity.ErrorImage) error {
	return s.write(ctx, func(d *entity.Snapshot) error {
		found := false
		for _, r := range d.ErrorReports {
			if r.ID == img.ErrorID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("异常报告 %d: %w", img.ErrorID, ErrNotFound)
		}
		img.ID = nextID(d.ErrorImages, func(x entity.ErrorImage) int { return x.ID })
		d.ErrorImages = append(d.ErrorImages, *img)
		return nil
	})
}

// ========== 维修工单 ==========

func (s *MemoryStore) CreateMaintenanceOrder(ctx context.Context, o *entity.MaintenanceOrder, parts []entity.MaintenancePartUsage) error {
	return s.write(ctx, func(d *entity.Snapshot) error {
		o.ID = nextID(d.MaintenanceOrders, func(x entity.MaintenanceOrder) int { return x.ID })
		d.MaintenanceOrders = append(d.MaintenanceOrders, *o)
		d.PartUsages = appendUsages(d.PartUsages, o.ID, parts)
		return nil
	})
}

func (s *MemoryStore) UpdateMaintenanceOrder(ctx context.Context, id int, fn func(o *entity.MaintenanceOrder) ([]entity.MaintenancePartUsage, error)) (*entity.MaintenanceOrder, error) {
	var out entity.MaintenanceOrder
	err := s.write(ctx, func(d *entity.Snapshot) error {
		for i := range d.MaintenanceOrders {
			if d.MaintenanceOrders[i].ID != id {
				continue
			}
			o := d.MaintenanceOrders[i]
			parts, err := fn(&o)
			if err != nil {
				return err
			}
			d.MaintenanceOrders[i] = o
			if parts != nil {
				kept := d.PartUsages[:0:0]
				for _, u := range d.PartUsages {
					if u.OrderID != id {
						kept = append(kept, u)
					}
				}
				d.PartUsages = appendUsages(kept, id, parts)
			}
			out = o
			return nil
		}
		return fmt.Errorf("维修工单 %d: %w", id, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func appendUsages(usages []entity.MaintenancePartUsage, orderID int, parts []entity.MaintenancePartUsage) []entity.MaintenancePartUsage {
	id := nextID(usages, func(x entity.MaintenancePartUsage) int { return x.ID })
	for _, p := range parts {
		p.ID = id
		p.OrderID = orderID
		id++
		usages = append(usages, p)
	}
	return usages
}

// ========== 备件 ==========

func (s *MemoryStore) CreateSparePart(ctx context.Context, p *entity.SparePart) error {
	return s.write(ctx, func(d *entity.Snapshot) error {
		p.ID = nextID(d.Master.SpareParts, func(x entity.SparePart) int { return x.ID })
		d.Master.SpareParts = append(d.Master.SpareParts, *p)
		return nil
	})
}

func (s *MemoryStore) UpdateSparePart(ctx context.Context, id int, fn func(p *entity.SparePart) error) (*entity.SparePart, error) {
	var out entity.SparePart
	err := s.write(ctx, func(d *entity.Snapshot) error {
		for i := range d.Master.SpareParts {
			if d.Master.SpareParts[i].ID != id {
				continue
			}
			p := d.Master.SpareParts[i]
			if err := fn(&p); err != nil {
				return err
			}
			d.Master.SpareParts[i] = p
			out = p
			return nil
		}
		return fmt.Errorf("备件 %d: %w", id, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ========== 缺陷与采购 ==========

func (s *MemoryStore) CreateDefect(ctx context.Context, r *entity.DefectRecord) error {
	return s.write(ctx, func(d *entity.Snapshot) error {
		r.ID = nextID(d.Defects, func(x entity.DefectRecord) int { return x.ID })
		rec := *r
		rec.ImageURLs = append([]string(nil), r.ImageURLs...)
		d.Defects = append(d.Defects, rec)
		return nil
	})
}

func (s *MemoryStore) CreatePurchaseRequest(ctx context.Context, r *entity.McPartPurchaseRequest) error {
	return s.write(ctx, func(d *entity.Snapshot) error {
		r.ID = nextID(d.PurchaseRequests, func(x entity.McPartPurchaseRequest) int { return x.ID })
		d.PurchaseRequests = append(d.PurchaseRequests, *r)
		return nil
	})
}

func (s *MemoryStore) CreateConsumableRequest(ctx context.Context, r *entity.ConsumablePurchaseRequest) error {
	return s.write(ctx, func(d *entity.Snapshot) error {
		r.ID = nextID(d.ConsumableRequests, func(x entity.ConsumablePurchaseRequest) int { return x.ID })
		d.ConsumableRequests = append(d.ConsumableRequests, *r)
		return nil
	})
}
