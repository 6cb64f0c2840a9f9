package entity

import (
	"fmt"
	"sort"
	"time"
)

// 异常报告状态
const (
	ErrorReported        = "Reported"
	ErrorInProgress      = "In Progress"
	ErrorFixed           = "Fixed"
	ErrorNotMachineIssue = "Not Machine Issue"
	ErrorClosed          = "Closed"
)

// ErrorReport 操作员上报的设备异常
type ErrorReport struct {
	ID                       int        `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ReportNo                 string     `json:"report_no" gorm:"size:16;not null"`
	MachineID                int        `json:"machine_id" gorm:"not null;index"`
	ShiftID                  int        `json:"shift_id"`
	OperatorID               int        `json:"operator_id"`
	ReportTime               time.Time  `json:"report_time"`
	DefectType               string     `json:"defect_type" gorm:"size:64"`
	DefectDescription        string     `json:"defect_description" gorm:"type:text"`
	Severity                 string     `json:"severity" gorm:"size:8"`
	Status                   string     `json:"status" gorm:"size:20;not null"`
	RootCause                string     `json:"root_cause"`
	CauseCategory            string     `json:"cause_category" gorm:"size:16"`
	ActionTaken              string     `json:"action_taken"`
	TechnicianID             *int       `json:"technician_id"`
	FixTime                  *time.Time `json:"fix_time"`
	VerifyBy                 *int       `json:"verify_by"`
	VerifyTime               *time.Time `json:"verify_time"`
	Note                     string     `json:"note"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
	LinkedMaintenanceOrderID *int       `json:"linked_maintenance_order_id"`
	LinkedDefectID           *int       `json:"linked_defect_id"`
}

func (ErrorReport) TableName() string {
	return "oee_error_reports"
}

// ReportNumber 报告编号 ERR-001
func ReportNumber(id int) string {
	return fmt.Sprintf("ERR-%03d", id)
}

// IsOpen 尚未处理完成
func (r ErrorReport) IsOpen() bool {
	return r.Status == ErrorReported || r.Status == ErrorInProgress
}

// ErrorImage 异常报告图片
type ErrorImage struct {
	ID          int       `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ErrorID     int       `json:"error_id" gorm:"not null;index"`
	UploadedBy  int       `json:"uploaded_by"`
	Role        string    `json:"role" gorm:"size:16"` // Operator / Maintenance
	ImageURL    string    `json:"image_url" gorm:"size:512;not null"`
	Description string    `json:"description"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func (ErrorImage) TableName() string {
	return "oee_error_images"
}

// ErrorHistory 状态变更历史，ChangedBy 为 0 表示系统
type ErrorHistory struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ErrorID   int       `json:"error_id" gorm:"not null;index"`
	ChangedBy int       `json:"changed_by"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status" gorm:"not null"`
	Note      string    `json:"note"`
	ChangedAt time.Time `json:"changed_at"`
}

func (ErrorHistory) TableName() string {
	return "oee_error_history"
}

// EnrichedErrorHistory 带操作人姓名
type EnrichedErrorHistory struct {
	ErrorHistory
	ChangedByName string `json:"changed_by_name"`
}

// EnrichedErrorReport 关联主数据、图片与历史
type EnrichedErrorReport struct {
	ErrorReport
	MachineCode    string                 `json:"machine_code"`
	LineID         string                 `json:"line_id"`
	ShiftCode      string                 `json:"shift_code"`
	OperatorName   string                 `json:"operator_name"`
	TechnicianName *string                `json:"technician_name"`
	VerifierName   *string                `json:"verifier_name"`
	Images         []ErrorImage           `json:"images"`
	History        []EnrichedErrorHistory `json:"history"`
}

// EnrichErrorReport 关联异常报告，历史按时间倒序
func (m *MasterData) EnrichErrorReport(r ErrorReport, images []ErrorImage, history []ErrorHistory) (EnrichedErrorReport, error) {
	machine, err := m.Machine(r.MachineID)
	if err != nil {
		return EnrichedErrorReport{}, err
	}
	shift, err := m.Shift(r.ShiftID)
	if err != nil {
		return EnrichedErrorReport{}, err
	}
	operator, err := m.User(r.OperatorID)
	if err != nil {
		return EnrichedErrorReport{}, err
	}
	technician, err := m.OptionalUserName(r.TechnicianID)
	if err != nil {
		return EnrichedErrorReport{}, err
	}
	verifier, err := m.OptionalUserName(r.VerifyBy)
	if err != nil {
		return EnrichedErrorReport{}, err
	}

	out := EnrichedErrorReport{
		ErrorReport:    r,
		MachineCode:    machine.Code,
		LineID:         machine.LineID,
		ShiftCode:      shift.Code,
		OperatorName:   operator.FullName,
		TechnicianName: technician,
		VerifierName:   verifier,
		Images:         make([]ErrorImage, 0),
		History:        make([]EnrichedErrorHistory, 0),
	}
	for _, img := range images {
		if img.ErrorID == r.ID {
			out.Images = append(out.Images, img)
		}
	}
	for _, h := range history {
		if h.ErrorID != r.ID {
			continue
		}
		name, err := m.UserName(h.ChangedBy)
		if err != nil {
			return EnrichedErrorReport{}, err
		}
		out.History = append(out.History, EnrichedErrorHistory{ErrorHistory: h, ChangedByName: name})
	}
	sort.SliceStable(out.History, func(i, j int) bool {
		return out.History[i].ChangedAt.After(out.History[j].ChangedAt)
	})
	return out, nil
}
