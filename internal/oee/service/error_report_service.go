package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/repository"
)

// 异常报告允许的状态流转
var errorTransitions = map[string][]string{
	entity.ErrorReported:        {entity.ErrorInProgress},
	entity.ErrorInProgress:      {entity.ErrorFixed, entity.ErrorNotMachineIssue},
	entity.ErrorFixed:           {entity.ErrorClosed},
	entity.ErrorNotMachineIssue: {entity.ErrorClosed},
}

func canTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range errorTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func validSeverity(s string) bool {
	return s == entity.SeverityLow || s == entity.SeverityMedium || s == entity.SeverityHigh
}

// ErrorReportService 设备异常报告
type ErrorReportService struct {
	*core
	images ImageStorage
}

// CreateErrorReportInput 上报异常
type CreateErrorReportInput struct {
	MachineID                int    `json:"machine_id" binding:"required"`
	ShiftID                  int    `json:"shift_id" binding:"required"`
	OperatorID               int    `json:"operator_id" binding:"required"`
	DefectType               string `json:"defect_type"`
	DefectDescription        string `json:"defect_description" binding:"required"`
	Severity                 string `json:"severity"`
	LinkedMaintenanceOrderID *int   `json:"linked_maintenance_order_id"`
	LinkedDefectID           *int   `json:"linked_defect_id"`
}

// UpdateErrorReportInput 处理异常，Status 为目标状态
type UpdateErrorReportInput struct {
	Status                   string  `json:"status" binding:"required"`
	RootCause                *string `json:"root_cause"`
	CauseCategory            *string `json:"cause_category"`
	ActionTaken              *string `json:"action_taken"`
	TechnicianID             *int    `json:"technician_id"`
	Note                     *string `json:"note"`
	LinkedMaintenanceOrderID *int    `json:"linked_maintenance_order_id"`
}

// AddErrorImageInput 登记已有地址的图片
type AddErrorImageInput struct {
	ImageURL    string `json:"image_url" binding:"required"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

func (s *ErrorReportService) AddErrorReport(ctx context.Context, input *CreateErrorReportInput) (*entity.EnrichedErrorReport, error) {
	if input.Severity == "" {
		input.Severity = entity.SeverityMedium
	}
	if !validSeverity(input.Severity) {
		return nil, validationf("严重程度无效: %s", input.Severity)
	}
	master, err := s.master(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := master.Machine(input.MachineID); err != nil {
		return nil, err
	}
	if _, err := master.Shift(input.ShiftID); err != nil {
		return nil, err
	}
	if _, err := master.User(input.OperatorID); err != nil {
		return nil, err
	}

	now := s.now()
	r := &entity.ErrorReport{
		MachineID:                input.MachineID,
		ShiftID:                  input.ShiftID,
		OperatorID:               input.OperatorID,
		ReportTime:               now,
		DefectType:               input.DefectType,
		DefectDescription:        input.DefectDescription,
		Severity:                 input.Severity,
		Status:                   entity.ErrorReported,
		CreatedAt:                now,
		UpdatedAt:                now,
		LinkedMaintenanceOrderID: input.LinkedMaintenanceOrderID,
		LinkedDefectID:           input.LinkedDefectID,
	}
	history := &entity.ErrorHistory{
		ChangedBy: input.OperatorID,
		NewStatus: entity.ErrorReported,
		Note:      "Report created.",
		ChangedAt: now,
	}
	if err := s.store.CreateErrorReport(ctx, r, history); err != nil {
		return nil, fmt.Errorf("创建异常报告失败: %w", err)
	}
	s.publish(ctx, "error_report", "created", r.ID)
	return s.GetErrorReport(ctx, r.ID)
}

// UpdateErrorReport 合并字段并流转状态，状态变化时追加历史
func (s *ErrorReportService) UpdateErrorReport(ctx context.Context, id int, input *UpdateErrorReportInput, changedBy int) (*entity.EnrichedErrorReport, error) {
	master, err := s.master(ctx)
	if err != nil {
		return nil, err
	}
	if input.TechnicianID != nil {
		if _, err := master.User(*input.TechnicianID); err != nil {
			return nil, err
		}
	}
	if changedBy != 0 {
		if _, err := master.User(changedBy); err != nil {
			return nil, err
		}
	}

	_, err = s.store.UpdateErrorReport(ctx, id, func(r *entity.ErrorReport) (*entity.ErrorHistory, error) {
		oldStatus := r.Status
		if !canTransition(oldStatus, input.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, oldStatus, input.Status)
		}
		if input.RootCause != nil {
			r.RootCause = *input.RootCause
		}
		if input.CauseCategory != nil {
			r.CauseCategory = *input.CauseCategory
		}
		if input.ActionTaken != nil {
			r.ActionTaken = *input.ActionTaken
		}
		if input.TechnicianID != nil {
			r.TechnicianID = input.TechnicianID
		}
		if input.Note != nil {
			r.Note = *input.Note
		}
		if input.LinkedMaintenanceOrderID != nil {
			r.LinkedMaintenanceOrderID = input.LinkedMaintenanceOrderID
		}
		if input.Status == entity.ErrorFixed && (strings.TrimSpace(r.RootCause) == "" || strings.TrimSpace(r.ActionTaken) == "") {
			return nil, validationf("修复需要填写根本原因与处理措施")
		}

		now := s.now()
		r.Status = input.Status
		r.UpdatedAt = now
		if oldStatus == input.Status {
			return nil, nil
		}
		switch input.Status {
		case entity.ErrorFixed, entity.ErrorNotMachineIssue:
			r.FixTime = &now
		case entity.ErrorClosed:
			verifier := changedBy
			r.VerifyBy = &verifier
			r.VerifyTime = &now
		}
		return &entity.ErrorHistory{
			ChangedBy: changedBy,
			OldStatus: oldStatus,
			NewStatus: input.Status,
			Note:      fmt.Sprintf("Status updated to %s.", input.Status),
			ChangedAt: now,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("更新异常报告失败: %w", err)
	}
	s.publish(ctx, "error_report", "updated", id)
	return s.GetErrorReport(ctx, id)
}

// GetErrorReport 带图片与历史的异常报告
func (s *ErrorReportService) GetErrorReport(ctx context.Context, id int) (*entity.EnrichedErrorReport, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载数据失败: %w", err)
	}
	for _, r := range snap.ErrorReports {
		if r.ID != id {
			continue
		}
		out, err := snap.Master.EnrichErrorReport(r, snap.ErrorImages, snap.ErrorHistory)
		if err != nil {
			return nil, err
		}
		return &out, nil
	}
	return nil, fmt.Errorf("异常报告 %d: %w", id, repository.ErrNotFound)
}

func imageRole(role string) (string, error) {
	switch role {
	case "":
		return entity.RoleOperator, nil
	case entity.RoleOperator, entity.RoleMaintenance:
		return role, nil
	}
	return "", validationf("图片角色无效: %s", role)
}

// AddErrorImage 登记图片地址
func (s *ErrorReportService) AddErrorImage(ctx context.Context, errorID int, input *AddErrorImageInput, uploadedBy int) (*entity.ErrorImage, error) {
	role, err := imageRole(input.Role)
	if err != nil {
		return nil, err
	}
	img := &entity.ErrorImage{
		ErrorID:     errorID,
		UploadedBy:  uploadedBy,
		Role:        role,
		ImageURL:    input.ImageURL,
		Description: input.Description,
		UploadedAt:  s.now(),
	}
	if err := s.store.CreateErrorImage(ctx, img); err != nil {
		return nil, fmt.Errorf("添加图片失败: %w", err)
	}
	s.publish(ctx, "error_report", "image_added", errorID)
	return img, nil
}

// UploadErrorImage 上传图片到对象存储后登记
func (s *ErrorReportService) UploadErrorImage(ctx context.Context, errorID, uploadedBy int, role, description, fileName string, reader io.Reader, size int64, contentType string) (*entity.ErrorImage, error) {
	if s.images == nil {
		return nil, validationf("图片存储未配置")
	}
	if _, err := s.GetErrorReport(ctx, errorID); err != nil {
		return nil, err
	}
	url, err := s.images.Put(ctx, fmt.Sprintf("error-reports/%d", errorID), fileName, reader, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("上传图片失败: %w", err)
	}
	return s.AddErrorImage(ctx, errorID, &AddErrorImageInput{ImageURL: url, Role: role, Description: description}, uploadedBy)
}
