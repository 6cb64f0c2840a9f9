package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/nimo-oee/internal/oee/analytics"
	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/repository"
)

// SparePartService 备件库存
type SparePartService struct {
	*core
}

// CreateSparePartInput 新增备件
type CreateSparePartInput struct {
	PartCode                string `json:"part_code" binding:"required"`
	Name                    string `json:"name" binding:"required"`
	Location                string `json:"location"`
	Available               int    `json:"available"`
	InTransit               int    `json:"in_transit"`
	Reserved                int    `json:"reserved"`
	UsedInPeriod            int    `json:"used_in_period"`
	SafetyStock             int    `json:"safety_stock"`
	ReorderPoint            int    `json:"reorder_point"`
	MaintenanceIntervalDays *int   `json:"maintenance_interval_days"`
	ImageURL                string `json:"image_url"`
	LifespanDays            *int   `json:"lifespan_days"`
	WearTearStandard        string `json:"wear_tear_standard"`
	ReplacementStandard     string `json:"replacement_standard"`
}

// UpdateSparePartInput 部分更新
type UpdateSparePartInput struct {
	PartCode                *string `json:"part_code"`
	Name                    *string `json:"name"`
	Location                *string `json:"location"`
	Available               *int    `json:"available"`
	InTransit               *int    `json:"in_transit"`
	Reserved                *int    `json:"reserved"`
	UsedInPeriod            *int    `json:"used_in_period"`
	SafetyStock             *int    `json:"safety_stock"`
	ReorderPoint            *int    `json:"reorder_point"`
	MaintenanceIntervalDays *int    `json:"maintenance_interval_days"`
	ImageURL                *string `json:"image_url"`
	LifespanDays            *int    `json:"lifespan_days"`
	WearTearStandard        *string `json:"wear_tear_standard"`
	ReplacementStandard     *string `json:"replacement_standard"`
}

func nonNegative(values map[string]int) error {
	for name, v := range values {
		if v < 0 {
			return validationf("%s 不能为负", name)
		}
	}
	return nil
}

func (s *SparePartService) AddSparePart(ctx context.Context, input *CreateSparePartInput) (*entity.SparePart, error) {
	if err := nonNegative(map[string]int{
		"available":      input.Available,
		"in_transit":     input.InTransit,
		"reserved":       input.Reserved,
		"used_in_period": input.UsedInPeriod,
		"safety_stock":   input.SafetyStock,
		"reorder_point":  input.ReorderPoint,
	}); err != nil {
		return nil, err
	}
	master, err := s.master(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range master.SpareParts {
		if strings.EqualFold(p.PartCode, input.PartCode) {
			return nil, fmt.Errorf("%w: 备件编码 %s 已存在", ErrConflict, input.PartCode)
		}
	}

	p := &entity.SparePart{
		PartCode:                input.PartCode,
		Name:                    input.Name,
		Location:                input.Location,
		Available:               input.Available,
		InTransit:               input.InTransit,
		Reserved:                input.Reserved,
		UsedInPeriod:            input.UsedInPeriod,
		SafetyStock:             input.SafetyStock,
		ReorderPoint:            input.ReorderPoint,
		MaintenanceIntervalDays: input.MaintenanceIntervalDays,
		FlaggedForOrder:         false,
		ImageURL:                input.ImageURL,
		LifespanDays:            input.LifespanDays,
		WearTearStandard:        input.WearTearStandard,
		ReplacementStandard:     input.ReplacementStandard,
	}
	if err := s.store.CreateSparePart(ctx, p); err != nil {
		return nil, fmt.Errorf("创建备件失败: %w", err)
	}
	s.publish(ctx, "spare_part", "created", p.ID)
	return p, nil
}

func (s *SparePartService) UpdateSparePart(ctx context.Context, id int, input *UpdateSparePartInput) (*entity.SparePart, error) {
	counts := map[string]int{}
	for name, v := range map[string]*int{
		"available":      input.Available,
		"in_transit":     input.InTransit,
		"reserved":       input.Reserved,
		"used_in_period": input.UsedInPeriod,
		"safety_stock":   input.SafetyStock,
		"reorder_point":  input.ReorderPoint,
	} {
		if v != nil {
			counts[name] = *v
		}
	}
	if err := nonNegative(counts); err != nil {
		return nil, err
	}

	p, err := s.store.UpdateSparePart(ctx, id, func(p *entity.SparePart) error {
		if input.PartCode != nil {
			p.PartCode = *input.PartCode
		}
		if input.Name != nil {
			p.Name = *input.Name
		}
		if input.Location != nil {
			p.Location = *input.Location
		}
		if input.Available != nil {
			p.Available = *input.Available
		}
		if input.InTransit != nil {
			p.InTransit = *input.InTransit
		}
		if input.Reserved != nil {
			p.Reserved = *input.Reserved
		}
		if input.UsedInPeriod != nil {
			p.UsedInPeriod = *input.UsedInPeriod
		}
		if input.SafetyStock != nil {
			p.SafetyStock = *input.SafetyStock
		}
		if input.ReorderPoint != nil {
			p.ReorderPoint = *input.ReorderPoint
		}
		if input.MaintenanceIntervalDays != nil {
			p.MaintenanceIntervalDays = input.MaintenanceIntervalDays
		}
		if input.ImageURL != nil {
			p.ImageURL = *input.ImageURL
		}
		if input.LifespanDays != nil {
			p.LifespanDays = input.LifespanDays
		}
		if input.WearTearStandard != nil {
			p.WearTearStandard = *input.WearTearStandard
		}
		if input.ReplacementStandard != nil {
			p.ReplacementStandard = *input.ReplacementStandard
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("更新备件失败: %w", err)
	}
	s.publish(ctx, "spare_part", "updated", id)
	return p, nil
}

// ToggleFlagForOrder 切换待采购标记
func (s *SparePartService) ToggleFlagForOrder(ctx context.Context, id int) (*entity.SparePart, error) {
	p, err := s.store.UpdateSparePart(ctx, id, func(p *entity.SparePart) error {
		p.FlaggedForOrder = !p.FlaggedForOrder
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("更新备件失败: %w", err)
	}
	s.publish(ctx, "spare_part", "flag_toggled", id)
	return p, nil
}

// GetSparePartDetails 消耗与采购历史
func (s *SparePartService) GetSparePartDetails(ctx context.Context, id int) (*entity.EnrichedSparePart, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载数据失败: %w", err)
	}
	if _, err := snap.Master.SparePart(id); err != nil {
		return nil, fmt.Errorf("备件 %d: %w", id, repository.ErrNotFound)
	}
	return analytics.SparePartDetails(snap, id)
}
