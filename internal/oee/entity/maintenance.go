package entity

// 维修工单类型
const (
	OrderTypePM = "PM"
	OrderTypeIM = "IM"
)

// 维修工单状态
const (
	OrderOpen       = "Open"
	OrderInProgress = "InProgress"
	OrderDone       = "Done"
	OrderCanceled   = "Canceled"
)

// 工单优先级
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// PM 计划状态
const (
	PmOnSchedule = "On schedule"
	PmDueSoon    = "Due soon"
	PmOverdue    = "Overdue"
)

// PmCycleDays PM 类型对应周期
var PmCycleDays = map[string]int{
	"PM-1M":  30,
	"PM-12M": 365,
	"PM-24M": 730,
	"PM-36M": 1095,
	"PM-48M": 1460,
	"PM-60M": 1825,
}

// MaintenanceOrder 维修工单（PM 预防 / IM 改善）
type MaintenanceOrder struct {
	ID              int     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	MachineID       int     `json:"machine_id" gorm:"not null;index"`
	Type            string  `json:"type" gorm:"size:2;not null"`
	Priority        string  `json:"priority" gorm:"size:8"`
	Status          string  `json:"status" gorm:"size:16;not null"`
	CreatedByID     int     `json:"created_by_id"`
	AssignedToID    *int    `json:"assigned_to_id"`
	TaskDescription string  `json:"task_description" gorm:"type:text"`
	DowntimeMin     *int    `json:"downtime_min"`
	PlanDate        string  `json:"plan_date" gorm:"size:10"`
	ActualStartDate *string `json:"actual_start_date" gorm:"size:10"`
	ActualEndDate   *string `json:"actual_end_date" gorm:"size:10"`
}

func (MaintenanceOrder) TableName() string {
	return "oee_maintenance_orders"
}

// MaintenancePartUsage 工单备件消耗
type MaintenancePartUsage struct {
	ID      int `json:"-" gorm:"primaryKey;autoIncrement:false"`
	OrderID int `json:"order_id" gorm:"not null;index"`
	PartID  int `json:"part_id" gorm:"not null"`
	QtyUsed int `json:"qty_used"`
}

func (MaintenancePartUsage) TableName() string {
	return "oee_maintenance_part_usages"
}

// PartUsed 带备件编码与名称的消耗明细
type PartUsed struct {
	MaintenancePartUsage
	PartCode string `json:"part_code"`
	PartName string `json:"part_name"`
}

// EnrichedMaintenanceOrder 关联设备、人员与备件
type EnrichedMaintenanceOrder struct {
	MaintenanceOrder
	MachineCode    string     `json:"machine_code"`
	CreatedByName  string     `json:"created_by_name"`
	AssignedToName *string    `json:"assigned_to_name"`
	PartsUsed      []PartUsed `json:"parts_used"`
}

// EnrichMaintenanceOrder 关联工单
func (m *MasterData) EnrichMaintenanceOrder(o MaintenanceOrder, usages []MaintenancePartUsage) (EnrichedMaintenanceOrder, error) {
	machine, err := m.Machine(o.MachineID)
	if err != nil {
		return EnrichedMaintenanceOrder{}, err
	}
	createdBy, err := m.UserName(o.CreatedByID)
	if err != nil {
		return EnrichedMaintenanceOrder{}, err
	}
	assignedTo, err := m.OptionalUserName(o.AssignedToID)
	if err != nil {
		return EnrichedMaintenanceOrder{}, err
	}
	parts := make([]PartUsed, 0)
	for _, u := range usages {
		if u.OrderID != o.ID {
			continue
		}
		part, err := m.SparePart(u.PartID)
		if err != nil {
			return EnrichedMaintenanceOrder{}, err
		}
		parts = append(parts, PartUsed{MaintenancePartUsage: u, PartCode: part.PartCode, PartName: part.Name})
	}
	return EnrichedMaintenanceOrder{
		MaintenanceOrder: o,
		MachineCode:      machine.Code,
		CreatedByName:    createdBy,
		AssignedToName:   assignedTo,
		PartsUsed:        parts,
	}, nil
}

// SparePart 备件库存
type SparePart struct {
	ID                      int    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	PartCode                string `json:"part_code" gorm:"size:32;not null;index"`
	Name                    string `json:"name" gorm:"size:128;not null"`
	Location                string `json:"location" gorm:"size:64"`
	Available               int    `json:"available"`
	InTransit               int    `json:"in_transit"`
	Reserved                int    `json:"reserved"`
	UsedInPeriod            int    `json:"used_in_period"`
	SafetyStock             int    `json:"safety_stock"`
	ReorderPoint            int    `json:"reorder_point"`
	MaintenanceIntervalDays *int   `json:"maintenance_interval_days,omitempty"`
	FlaggedForOrder         bool   `json:"flagged_for_order"`
	ImageURL                string `json:"image_url,omitempty" gorm:"size:512"`
	LifespanDays            *int   `json:"lifespan_days,omitempty"`
	WearTearStandard        string `json:"wear_tear_standard,omitempty"`
	ReplacementStandard     string `json:"replacement_standard,omitempty"`
}

func (SparePart) TableName() string {
	return "oee_spare_parts"
}

// NeedsReorder 在库 + 在途 低于再订货点
func (p SparePart) NeedsReorder() bool {
	return p.Available+p.InTransit < p.ReorderPoint
}

// SparePartUsageHistory 备件消耗历史
type SparePartUsageHistory struct {
	OrderID     int    `json:"order_id"`
	MachineCode string `json:"machine_code"`
	CompletedAt string `json:"completed_at"`
	QtyUsed     int    `json:"qty_used"`
}

// EnrichedSparePart 备件详情
type EnrichedSparePart struct {
	SparePart
	UsageHistory    []SparePartUsageHistory `json:"usage_history"`
	PurchaseHistory []McPartOrder           `json:"purchase_history"`
}

// MaintenanceSchedule PM 计划
type MaintenanceSchedule struct {
	ID         int    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	MachineID  int    `json:"machine_id" gorm:"not null"`
	PmType     string `json:"pm_type" gorm:"size:8;not null"`
	LastPmDate string `json:"last_pm_date" gorm:"size:10;not null"`
	CycleDays  int    `json:"cycle_days"`
}

func (MaintenanceSchedule) TableName() string {
	return "oee_maintenance_schedules"
}

// EnrichedMaintenanceSchedule 带下次日期与状态
type EnrichedMaintenanceSchedule struct {
	MaintenanceSchedule
	MachineCode string `json:"machine_code"`
	MachineName string `json:"machine_name"`
	NextPmDate  string `json:"next_pm_date"`
	Status      string `json:"status"`
}

// PmPart PM 模板中的备件
type PmPart struct {
	PartID int `json:"part_id"`
	Qty    int `json:"qty"`
}

// PmPartsTemplate PM 备件模板，MachineID 为 0 表示通用
type PmPartsTemplate struct {
	ID        int      `json:"-" gorm:"primaryKey;autoIncrement:false"`
	PmType    string   `json:"pm_type" gorm:"size:8;not null"`
	MachineID int      `json:"machine_id"`
	Parts     []PmPart `json:"parts" gorm:"serializer:json"`
}

func (PmPartsTemplate) TableName() string {
	return "oee_pm_parts_templates"
}
