package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/oee/analytics"
	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/repository"
)

// MaintenanceService 维修工单
type MaintenanceService struct {
	*core
}

// PartQty 工单用料
type PartQty struct {
	PartID  int `json:"part_id" binding:"required"`
	QtyUsed int `json:"qty_used"`
}

// CreateMaintenanceOrderInput 新建工单
type CreateMaintenanceOrderInput struct {
	MachineID       int       `json:"machine_id" binding:"required"`
	Type            string    `json:"type" binding:"required"`
	Priority        string    `json:"priority"`
	CreatedByID     int       `json:"created_by_id"`
	AssignedToID    *int      `json:"assigned_to_id"`
	TaskDescription string    `json:"task_description" binding:"required"`
	PlanDate        string    `json:"plan_date" binding:"required"`
	PartsUsed       []PartQty `json:"parts_used"`
}

// CompleteMaintenanceOrderInput 完工登记，PartsUsed 非空时整体替换用料
type CompleteMaintenanceOrderInput struct {
	ActualStartDate *string   `json:"actual_start_date"`
	ActualEndDate   string    `json:"actual_end_date"`
	DowntimeMin     *int      `json:"downtime_min"`
	PartsUsed       []PartQty `json:"parts_used"`
}

func validPriority(p string) bool {
	return p == entity.PriorityLow || p == entity.PriorityMedium || p == entity.PriorityHigh
}

func validDate(s string) bool {
	_, err := time.Parse(entity.DateLayout, s)
	return err == nil
}

// usages 校验用料并转换
func usages(master *entity.MasterData, parts []PartQty) ([]entity.MaintenancePartUsage, error) {
	out := make([]entity.MaintenancePartUsage, 0, len(parts))
	for _, p := range parts {
		if p.QtyUsed <= 0 {
			return nil, validationf("备件 %d 数量必须大于0", p.PartID)
		}
		if _, err := master.SparePart(p.PartID); err != nil {
			return nil, err
		}
		out = append(out, entity.MaintenancePartUsage{PartID: p.PartID, QtyUsed: p.QtyUsed})
	}
	return out, nil
}

func (s *MaintenanceService) AddMaintenanceOrder(ctx context.Context, input *CreateMaintenanceOrderInput) (*entity.EnrichedMaintenanceOrder, error) {
	if input.Type != entity.OrderTypePM && input.Type != entity.OrderTypeIM {
		return nil, validationf("工单类型无效: %s", input.Type)
	}
	if input.Priority == "" {
		input.Priority = entity.PriorityMedium
	}
	if !validPriority(input.Priority) {
		return nil, validationf("优先级无效: %s", input.Priority)
	}
	if !validDate(input.PlanDate) {
		return nil, validationf("计划日期格式错误: %s", input.PlanDate)
	}
	master, err := s.master(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := master.Machine(input.MachineID); err != nil {
		return nil, err
	}
	if _, err := master.UserName(input.CreatedByID); err != nil {
		return nil, err
	}
	if _, err := master.OptionalUserName(input.AssignedToID); err != nil {
		return nil, err
	}
	parts, err := usages(master, input.PartsUsed)
	if err != nil {
		return nil, err
	}

	o := &entity.MaintenanceOrder{
		MachineID:       input.MachineID,
		Type:            input.Type,
		Priority:        input.Priority,
		Status:          entity.OrderOpen,
		CreatedByID:     input.CreatedByID,
		AssignedToID:    input.AssignedToID,
		TaskDescription: input.TaskDescription,
		PlanDate:        input.PlanDate,
	}
	if err := s.store.CreateMaintenanceOrder(ctx, o, parts); err != nil {
		return nil, fmt.Errorf("创建维修工单失败: %w", err)
	}
	s.publish(ctx, "maintenance_order", "created", o.ID)
	return s.GetMaintenanceOrder(ctx, o.ID)
}

// transition 校验当前状态后更新工单
func (s *MaintenanceService) transition(ctx context.Context, id int, to string, from []string, apply func(o *entity.MaintenanceOrder) ([]entity.MaintenancePartUsage, error)) (*entity.EnrichedMaintenanceOrder, error) {
	_, err := s.store.UpdateMaintenanceOrder(ctx, id, func(o *entity.MaintenanceOrder) ([]entity.MaintenancePartUsage, error) {
		allowed := false
		for _, st := range from {
			if o.Status == st {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
		}
		o.Status = to
		if apply == nil {
			return nil, nil
		}
		return apply(o)
	})
	if err != nil {
		return nil, fmt.Errorf("更新维修工单失败: %w", err)
	}
	s.publish(ctx, "maintenance_order", "updated", id)
	return s.GetMaintenanceOrder(ctx, id)
}

// StartMaintenanceOrder Open -> InProgress
func (s *MaintenanceService) StartMaintenanceOrder(ctx context.Context, id int) (*entity.EnrichedMaintenanceOrder, error) {
	today := s.todayString()
	return s.transition(ctx, id, entity.OrderInProgress, []string{entity.OrderOpen}, func(o *entity.MaintenanceOrder) ([]entity.MaintenancePartUsage, error) {
		o.ActualStartDate = &today
		return nil, nil
	})
}

// CompleteMaintenanceOrder Open|InProgress -> Done，完工后不再出现在逾期与即将到期列表
func (s *MaintenanceService) CompleteMaintenanceOrder(ctx context.Context, id int, input *CompleteMaintenanceOrderInput) (*entity.EnrichedMaintenanceOrder, error) {
	end := input.ActualEndDate
	if end == "" {
		end = s.todayString()
	}
	if !validDate(end) {
		return nil, validationf("完工日期格式错误: %s", end)
	}
	if input.ActualStartDate != nil && !validDate(*input.ActualStartDate) {
		return nil, validationf("开工日期格式错误: %s", *input.ActualStartDate)
	}
	if input.ActualStartDate != nil && *input.ActualStartDate > end {
		return nil, validationf("开工日期晚于完工日期")
	}
	if input.DowntimeMin != nil && *input.DowntimeMin < 0 {
		return nil, validationf("停机时长不能为负")
	}

	var parts []entity.MaintenancePartUsage
	if input.PartsUsed != nil {
		master, err := s.master(ctx)
		if err != nil {
			return nil, err
		}
		if parts, err = usages(master, input.PartsUsed); err != nil {
			return nil, err
		}
	}

	return s.transition(ctx, id, entity.OrderDone, []string{entity.OrderOpen, entity.OrderInProgress}, func(o *entity.MaintenanceOrder) ([]entity.MaintenancePartUsage, error) {
		if input.ActualStartDate != nil {
			start := *input.ActualStartDate
			o.ActualStartDate = &start
		} else if o.ActualStartDate == nil {
			start := end
			o.ActualStartDate = &start
		}
		o.ActualEndDate = &end
		if input.DowntimeMin != nil {
			dt := *input.DowntimeMin
			o.DowntimeMin = &dt
		}
		return parts, nil
	})
}

// CancelMaintenanceOrder Open|InProgress -> Canceled
func (s *MaintenanceService) CancelMaintenanceOrder(ctx context.Context, id int) (*entity.EnrichedMaintenanceOrder, error) {
	return s.transition(ctx, id, entity.OrderCanceled, []string{entity.OrderOpen, entity.OrderInProgress}, nil)
}

// CreatePmOrderFromSchedule 按PM计划生成工单，优先使用设备专用备件模板
func (s *MaintenanceService) CreatePmOrderFromSchedule(ctx context.Context, scheduleID, createdBy int) (*entity.EnrichedMaintenanceOrder, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载数据失败: %w", err)
	}
	var schedule *entity.MaintenanceSchedule
	for i := range snap.Schedules {
		if snap.Schedules[i].ID == scheduleID {
			schedule = &snap.Schedules[i]
			break
		}
	}
	if schedule == nil {
		return nil, fmt.Errorf("PM计划 %d: %w", scheduleID, repository.ErrNotFound)
	}
	machine, err := snap.Master.Machine(schedule.MachineID)
	if err != nil {
		return nil, err
	}
	next, _, err := analytics.PmScheduleStatus(*schedule, s.today)
	if err != nil {
		return nil, err
	}

	var parts []PartQty
	if tpl := pmTemplate(snap.Master.PmPartsTemplates, schedule.PmType, schedule.MachineID); tpl != nil {
		for _, p := range tpl.Parts {
			parts = append(parts, PartQty{PartID: p.PartID, QtyUsed: p.Qty})
		}
	}

	return s.AddMaintenanceOrder(ctx, &CreateMaintenanceOrderInput{
		MachineID:       schedule.MachineID,
		Type:            entity.OrderTypePM,
		Priority:        entity.PriorityMedium,
		CreatedByID:     createdBy,
		TaskDescription: fmt.Sprintf("PM (%s) for %s", schedule.PmType, machine.Code),
		PlanDate:        next,
		PartsUsed:       parts,
	})
}

// pmTemplate 设备专用模板优先，其次通用模板（machine_id = 0）
func pmTemplate(templates []entity.PmPartsTemplate, pmType string, machineID int) *entity.PmPartsTemplate {
	var generic *entity.PmPartsTemplate
	for i := range templates {
		t := &templates[i]
		if t.PmType != pmType {
			continue
		}
		if t.MachineID == machineID {
			return t
		}
		if t.MachineID == 0 && generic == nil {
			generic = t
		}
	}
	return generic
}

// GetMaintenanceOrder 带设备、人员与用料的工单
func (s *MaintenanceService) GetMaintenanceOrder(ctx context.Context, id int) (*entity.EnrichedMaintenanceOrder, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载数据失败: %w", err)
	}
	for _, o := range snap.MaintenanceOrders {
		if o.ID != id {
			continue
		}
		out, err := snap.Master.EnrichMaintenanceOrder(o, snap.PartUsages)
		if err != nil {
			return nil, err
		}
		return &out, nil
	}
	return nil, fmt.Errorf("维修工单 %d: %w", id, repository.ErrNotFound)
}
