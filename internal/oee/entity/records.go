package entity

// 缺陷严重度
const (
	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"
)

// 缺陷记录状态
const (
	DefectOpen       = "Open"
	DefectInProgress = "In Progress"
	DefectClosed     = "Closed"
)

// 停机原因
const (
	ReasonSetup      = "Setup"
	ReasonMechanical = "Mechanical"
	ReasonElectrical = "Electrical"
	ReasonWaiting    = "Waiting"
)

// ProductionRecord 每台设备每班每天一条生产记录，比率在生成时固定
type ProductionRecord struct {
	ID             int     `json:"prod_id" gorm:"primaryKey;autoIncrement:false"`
	Day            string  `json:"comp_day" gorm:"size:10;not null;index"`
	LineID         string  `json:"line_id" gorm:"size:16;not null"`
	MachineCode    string  `json:"machine_id" gorm:"size:32;not null;index"`
	ItemCode       string  `json:"item_code" gorm:"size:32"`
	ActualQty      int     `json:"act_pro_qty"`
	DefectQty      int     `json:"defect_qty"`
	RunTimeMin     int     `json:"run_time_min"`
	DowntimeMin    int     `json:"downtime_min"`
	IdealCycleTime float64 `json:"ideal_cycle_time"`
	ShiftID        int     `json:"shift_id"`
	Shift          string  `json:"shift" gorm:"size:1"`
	Availability   float64 `json:"availability"`
	Performance    float64 `json:"performance"`
	Quality        float64 `json:"quality"`
	OEE            float64 `json:"oee" gorm:"column:oee"`
}

func (ProductionRecord) TableName() string {
	return "oee_production_records"
}

// ValidOEE 参与平均值计算的记录：0 < OEE ≤ 1
func (p ProductionRecord) ValidOEE() bool {
	return p.OEE > 0 && p.OEE <= 1
}

// DowntimeRecord 停机记录
type DowntimeRecord struct {
	ID          int    `json:"downtime_id" gorm:"primaryKey;autoIncrement:false"`
	Day         string `json:"comp_day" gorm:"size:10;not null;index"`
	MachineCode string `json:"machine_id" gorm:"size:32;not null;index"`
	Reason      string `json:"downtime_reason" gorm:"size:32;not null"`
	Minutes     int    `json:"downtime_min"`
	StartTime   string `json:"start_time" gorm:"size:5"`
	EndTime     string `json:"end_time" gorm:"size:5"`
}

func (DowntimeRecord) TableName() string {
	return "oee_downtime_records"
}

// IsBreakdown 机械或电气故障
func (d DowntimeRecord) IsBreakdown() bool {
	return d.Reason == ReasonMechanical || d.Reason == ReasonElectrical
}

// DefectRecord 缺陷记录
type DefectRecord struct {
	ID                       int      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	WorkDate                 string   `json:"work_date" gorm:"size:10;not null;index"`
	MachineID                int      `json:"machine_id" gorm:"not null"`
	ShiftID                  int      `json:"shift_id" gorm:"not null"`
	DefectTypeID             int      `json:"defect_type_id" gorm:"not null"`
	CauseID                  *int     `json:"cause_id"`
	Quantity                 int      `json:"quantity"`
	Note                     string   `json:"note"`
	Severity                 string   `json:"severity" gorm:"size:8"`
	Status                   string   `json:"status" gorm:"size:16"`
	IsAbnormal               bool     `json:"is_abnormal"`
	ReporterID               int      `json:"reporter_id"`
	LinkedMaintenanceOrderID *int     `json:"linked_maintenance_order_id"`
	ImageURLs                []string `json:"image_urls" gorm:"serializer:json"`
	Generated                bool     `json:"generated" gorm:"not null;default:false;index"` // 模拟生成，重新生成时替换
}

func (DefectRecord) TableName() string {
	return "oee_defect_records"
}

// EnrichedDefectRecord 关联主数据后的缺陷记录
type EnrichedDefectRecord struct {
	DefectRecord
	MachineCode    string  `json:"machine_code"`
	ShiftCode      string  `json:"shift"`
	DefectTypeName string  `json:"defect_type_name"`
	CauseCategory  *string `json:"cause_category"`
	ReporterName   string  `json:"reporter_name"`
}

// EnrichDefect 关联缺陷记录的设备、班次、类型、原因与上报人
func (m *MasterData) EnrichDefect(d DefectRecord) (EnrichedDefectRecord, error) {
	machine, err := m.Machine(d.MachineID)
	if err != nil {
		return EnrichedDefectRecord{}, err
	}
	shift, err := m.Shift(d.ShiftID)
	if err != nil {
		return EnrichedDefectRecord{}, err
	}
	dt, err := m.DefectType(d.DefectTypeID)
	if err != nil {
		return EnrichedDefectRecord{}, err
	}
	var category *string
	if d.CauseID != nil {
		cause, err := m.DefectCause(*d.CauseID)
		if err != nil {
			return EnrichedDefectRecord{}, err
		}
		c := cause.Category
		category = &c
	}
	reporter, err := m.User(d.ReporterID)
	if err != nil {
		return EnrichedDefectRecord{}, err
	}
	if d.ImageURLs == nil {
		d.ImageURLs = []string{}
	}
	return EnrichedDefectRecord{
		DefectRecord:   d,
		MachineCode:    machine.Code,
		ShiftCode:      shift.Code,
		DefectTypeName: dt.Name,
		CauseCategory:  category,
		ReporterName:   reporter.FullName,
	}, nil
}
