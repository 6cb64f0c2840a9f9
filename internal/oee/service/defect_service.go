package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
)

// DefectService 缺陷登记
type DefectService struct {
	*core
}

// CreateDefectInput 登记缺陷
type CreateDefectInput struct {
	WorkDate                 string   `json:"work_date"`
	MachineID                int      `json:"machine_id"`
	ShiftID                  int      `json:"shift_id"`
	DefectTypeID             int      `json:"defect_type_id"`
	CauseID                  *int     `json:"cause_id"`
	Quantity                 int      `json:"quantity"`
	Note                     string   `json:"note"`
	Severity                 string   `json:"severity"`
	IsAbnormal               bool     `json:"is_abnormal"`
	ReporterID               int      `json:"reporter_id"`
	LinkedMaintenanceOrderID *int     `json:"linked_maintenance_order_id"`
	ImageURLs                []string `json:"image_urls"`
}

func (in *CreateDefectInput) validate() error {
	var missing []string
	if in.MachineID == 0 {
		missing = append(missing, "machine_id")
	}
	if in.ShiftID == 0 {
		missing = append(missing, "shift_id")
	}
	if in.DefectTypeID == 0 {
		missing = append(missing, "defect_type_id")
	}
	if in.ReporterID == 0 {
		missing = append(missing, "reporter_id")
	}
	if len(missing) > 0 {
		return validationf("缺少必填字段: %s", strings.Join(missing, ", "))
	}
	if in.Quantity <= 0 {
		return validationf("数量必须大于0")
	}
	if in.IsAbnormal && strings.TrimSpace(in.Note) == "" {
		return validationf("异常缺陷必须填写备注")
	}
	if in.Severity != "" && !validSeverity(in.Severity) {
		return validationf("严重程度无效: %s", in.Severity)
	}
	if in.WorkDate != "" && !validDate(in.WorkDate) {
		return validationf("日期格式错误: %s", in.WorkDate)
	}
	return nil
}

// AddDefectRecord 登记缺陷并返回关联主数据后的记录
func (s *DefectService) AddDefectRecord(ctx context.Context, input *CreateDefectInput) (*entity.EnrichedDefectRecord, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	master, err := s.master(ctx)
	if err != nil {
		return nil, err
	}

	d := entity.DefectRecord{
		WorkDate:                 input.WorkDate,
		MachineID:                input.MachineID,
		ShiftID:                  input.ShiftID,
		DefectTypeID:             input.DefectTypeID,
		CauseID:                  input.CauseID,
		Quantity:                 input.Quantity,
		Note:                     input.Note,
		Severity:                 input.Severity,
		Status:                   entity.DefectOpen,
		IsAbnormal:               input.IsAbnormal,
		ReporterID:               input.ReporterID,
		LinkedMaintenanceOrderID: input.LinkedMaintenanceOrderID,
		ImageURLs:                append([]string{}, input.ImageURLs...),
	}
	if d.WorkDate == "" {
		d.WorkDate = s.todayString()
	}
	if d.Severity == "" {
		d.Severity = entity.SeverityLow
	}
	// 先校验引用，悬空引用不落库
	if _, err := master.EnrichDefect(d); err != nil {
		return nil, err
	}

	if err := s.store.CreateDefect(ctx, &d); err != nil {
		return nil, fmt.Errorf("登记缺陷失败: %w", err)
	}
	s.publish(ctx, "defect", "created", d.ID)

	out, err := master.EnrichDefect(d)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
