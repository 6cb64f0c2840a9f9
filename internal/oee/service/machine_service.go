package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
)

// MachineService 设备与区域维护
type MachineService struct {
	*core
}

// CreateMachineInput 新增设备
type CreateMachineInput struct {
	Code           string   `json:"machine_id" binding:"required"`
	Name           string   `json:"machine_name" binding:"required"`
	LineID         string   `json:"line_id" binding:"required"`
	IdealCycleTime float64  `json:"ideal_cycle_time"`
	DesignSpeed    float64  `json:"design_speed"`
	Status         string   `json:"status"`
	X              *float64 `json:"x"`
	Y              *float64 `json:"y"`
}

// UpdateMachineInput 部分更新，包括布局坐标
type UpdateMachineInput struct {
	Code           *string  `json:"machine_id"`
	Name           *string  `json:"machine_name"`
	LineID         *string  `json:"line_id"`
	IdealCycleTime *float64 `json:"ideal_cycle_time"`
	DesignSpeed    *float64 `json:"design_speed"`
	Status         *string  `json:"status"`
	X              *float64 `json:"x"`
	Y              *float64 `json:"y"`
}

func validStatus(status string) bool {
	return status == entity.MachineActive || status == entity.MachineInactive
}

func (s *MachineService) AddMachine(ctx context.Context, input *CreateMachineInput) (*entity.Machine, error) {
	if input.Status == "" {
		input.Status = entity.MachineActive
	}
	if !validStatus(input.Status) {
		return nil, validationf("设备状态无效: %s", input.Status)
	}
	if input.IdealCycleTime < 0 || input.DesignSpeed < 0 {
		return nil, validationf("节拍与设计速度不能为负")
	}
	master, err := s.master(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := master.MachineByCode(input.Code); err == nil {
		return nil, fmt.Errorf("%w: 设备编码 %s 已存在", ErrConflict, input.Code)
	}

	m := &entity.Machine{
		Code:           input.Code,
		Name:           input.Name,
		LineID:         input.LineID,
		IdealCycleTime: input.IdealCycleTime,
		DesignSpeed:    input.DesignSpeed,
		Status:         input.Status,
		X:              input.X,
		Y:              input.Y,
	}
	if err := s.store.CreateMachine(ctx, m); err != nil {
		return nil, fmt.Errorf("创建设备失败: %w", err)
	}
	s.publish(ctx, "machine", "created", m.ID)
	return m, nil
}

func (s *MachineService) UpdateMachine(ctx context.Context, id int, input *UpdateMachineInput) (*entity.Machine, error) {
	if input.Status != nil && !validStatus(*input.Status) {
		return nil, validationf("设备状态无效: %s", *input.Status)
	}
	if input.Code != nil {
		master, err := s.master(ctx)
		if err != nil {
			return nil, err
		}
		if other, err := master.MachineByCode(*input.Code); err == nil && other.ID != id {
			return nil, fmt.Errorf("%w: 设备编码 %s 已存在", ErrConflict, *input.Code)
		}
	}

	m, err := s.store.UpdateMachine(ctx, id, func(m *entity.Machine) error {
		if input.Code != nil {
			m.Code = *input.Code
		}
		if input.Name != nil {
			m.Name = *input.Name
		}
		if input.LineID != nil {
			m.LineID = *input.LineID
		}
		if input.IdealCycleTime != nil {
			m.IdealCycleTime = *input.IdealCycleTime
		}
		if input.DesignSpeed != nil {
			m.DesignSpeed = *input.DesignSpeed
		}
		if input.Status != nil {
			m.Status = *input.Status
		}
		if input.X != nil {
			m.X = input.X
		}
		if input.Y != nil {
			m.Y = input.Y
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("更新设备失败: %w", err)
	}
	s.publish(ctx, "machine", "updated", id)
	return m, nil
}

// AddArea 为产线指定区域，产线已有区域或区域名已存在时冲突
func (s *MachineService) AddArea(ctx context.Context, lineID, area string) (*entity.LineArea, error) {
	lineID, area = strings.TrimSpace(lineID), strings.TrimSpace(area)
	if lineID == "" || area == "" {
		return nil, validationf("产线与区域不能为空")
	}
	if strings.EqualFold(area, entity.FilterAll) {
		return nil, validationf("区域名不能为 %s", entity.FilterAll)
	}
	master, err := s.master(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := master.AreaOf(lineID); ok {
		return nil, fmt.Errorf("%w: 产线 %s 已归属区域", ErrConflict, lineID)
	}
	if master.HasArea(area) {
		return nil, fmt.Errorf("%w: 区域 %s 已存在", ErrConflict, area)
	}

	la := entity.LineArea{LineID: lineID, Area: area}
	if err := s.store.CreateLineArea(ctx, la); err != nil {
		return nil, fmt.Errorf("创建区域失败: %w", err)
	}
	s.publish(ctx, "area", "created", 0)
	return &la, nil
}

// RenameArea 重命名区域，返回受影响的产线数
func (s *MachineService) RenameArea(ctx context.Context, oldName, newName string) (int, error) {
	newName = strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return 0, validationf("区域名不能为空")
	}
	if strings.EqualFold(newName, entity.FilterAll) {
		return 0, validationf("区域名不能为 %s", entity.FilterAll)
	}
	if !strings.EqualFold(oldName, newName) {
		master, err := s.master(ctx)
		if err != nil {
			return 0, err
		}
		if master.HasArea(newName) {
			return 0, fmt.Errorf("%w: 区域 %s 已存在", ErrConflict, newName)
		}
	}
	n, err := s.store.RenameArea(ctx, oldName, newName)
	if err != nil {
		return 0, fmt.Errorf("重命名区域失败: %w", err)
	}
	s.publish(ctx, "area", "renamed", 0)
	return n, nil
}
