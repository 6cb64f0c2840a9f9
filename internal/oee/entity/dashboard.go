package entity

// 查询过滤的"全部"取值
const FilterAll = "all"

// DashboardQuery 看板查询条件
type DashboardQuery struct {
	StartDate string `form:"start_date" json:"start_date"`
	EndDate   string `form:"end_date" json:"end_date"`
	Area      string `form:"area" json:"area"`
	Shift     string `form:"shift" json:"shift"`   // all / A / B / C
	Status    string `form:"status" json:"status"` // all / active / inactive
}

// Normalize 空值补为 all
func (q DashboardQuery) Normalize() DashboardQuery {
	if q.Area == "" {
		q.Area = FilterAll
	}
	if q.Shift == "" {
		q.Shift = FilterAll
	}
	if q.Status == "" {
		q.Status = FilterAll
	}
	if q.EndDate == "" {
		q.EndDate = q.StartDate
	}
	return q
}

// DataPoint 名称-数值
type DataPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ParetoPoint 帕累托条目，Cumulative 为累计百分比
type ParetoPoint struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Cumulative float64 `json:"cumulative"`
}

// OeeTrendPoint 七日趋势点，无数据时为 null
type OeeTrendPoint struct {
	Date         string   `json:"date"`
	Oee          *float64 `json:"oee"`
	Availability *float64 `json:"availability"`
	Performance  *float64 `json:"performance"`
	Quality      *float64 `json:"quality"`
}

// DefectCountPoint 每日缺陷数
type DefectCountPoint struct {
	Date         string `json:"date"`
	TotalDefects int    `json:"total_defects"`
}

// DefectRatePoint 每日缺陷率
type DefectRatePoint struct {
	Date       string  `json:"date"`
	DefectRate float64 `json:"defect_rate"`
}

// DowntimeTrendPoint 每日停机分钟
type DowntimeTrendPoint struct {
	Date     string `json:"date"`
	Downtime int    `json:"downtime"`
}

// MaintenanceTrendPoint 每日 MTBF / MTTR
type MaintenanceTrendPoint struct {
	Date string   `json:"date"`
	Mtbf *float64 `json:"mtbf"`
	Mttr *float64 `json:"mttr"`
}

// BoxplotPoint 箱线图
type BoxplotPoint struct {
	Name   string  `json:"name"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// HeatmapPoint 产线×班次 平均 OEE
type HeatmapPoint struct {
	Line  string  `json:"line"`
	Shift string  `json:"shift"`
	Value float64 `json:"value"`
}

// StackedBar 按原因堆叠的停机分钟
type StackedBar struct {
	Name     string         `json:"name"`
	Segments map[string]int `json:"segments"`
}

// ScatterPoint 停机与产量散点
type ScatterPoint struct {
	Production  int    `json:"production"`
	Downtime    int    `json:"downtime"`
	MachineCode string `json:"machine_id"`
	LineID      string `json:"line_id"`
}

// TopDefectLine 缺陷率排行
type TopDefectLine struct {
	LineID          string  `json:"line_id"`
	TotalProduction int     `json:"total_production"`
	TotalDefects    int     `json:"total_defects"`
	DefectRate      float64 `json:"defect_rate"`
}

// TopDowntimeMachine 停机排行
type TopDowntimeMachine struct {
	MachineCode   string `json:"machine_id"`
	TotalDowntime int    `json:"total_downtime"`
}

// 车间设备状态
const (
	StatusRunning  = "Running"
	StatusStopped  = "Stopped"
	StatusError    = "Error"
	StatusInactive = "Inactive"
)

// MachineStatus 车间布局设备状态
type MachineStatus struct {
	MachineCode string   `json:"machine_id"`
	Status      string   `json:"status"`
	Oee         *float64 `json:"oee"`
	LineID      string   `json:"line_id"`
}

// 维修健康状态
const (
	HealthAlert   = "Alert"
	HealthWarning = "Warning"
	HealthNormal  = "Normal"
)

// MachineMaintenanceStats 单机 MTBF / MTTR
type MachineMaintenanceStats struct {
	MachineCode    string  `json:"machine_id"`
	Mtbf           float64 `json:"mtbf"`
	Mttr           float64 `json:"mttr"`
	BreakdownCount int     `json:"breakdown_count"`
	TotalDowntime  int     `json:"total_downtime"`
	Status         string  `json:"status"`
}

// DowntimeCauseStats 停机原因分析
type DowntimeCauseStats struct {
	Reason            string `json:"reason"`
	Count             int    `json:"count"`
	TotalMinutes      int    `json:"total_minutes"`
	MainMachineImpact string `json:"main_machine_impact"`
}

// MaintenanceKpis 全厂维修指标
type MaintenanceKpis struct {
	Mtbf            float64     `json:"mtbf"`
	Mttr            float64     `json:"mttr"`
	BreakdownCount  int         `json:"breakdown_count"`
	TopMttrMachines []DataPoint `json:"top_mttr_machines"`
}

// Summary 汇总指标
type Summary struct {
	TotalProduction    int         `json:"total_production"`
	TotalDefects       int         `json:"total_defects"`
	TotalDowntime      int         `json:"total_downtime"`
	MachineUtilization float64     `json:"machine_utilization"`
	AvgOee             float64     `json:"avg_oee"`
	AvgAvailability    float64     `json:"avg_availability"`
	AvgPerformance     float64     `json:"avg_performance"`
	AvgQuality         float64     `json:"avg_quality"`
	DefectRate         float64     `json:"defect_rate"`
	ProductionByLine   []DataPoint `json:"production_by_line"`
	OeeByLine          []DataPoint `json:"oee_by_line"`
	OpenErrorCount     int         `json:"open_error_count"`
}

// PerformanceSection 绩效
type PerformanceSection struct {
	SevenDayTrend     []OeeTrendPoint `json:"seven_day_trend"`
	ProductionBoxplot []BoxplotPoint  `json:"production_boxplot"`
	OeeHeatmap        []HeatmapPoint  `json:"oee_heatmap"`
}

// QualitySection 质量
type QualitySection struct {
	DefectPareto           []ParetoPoint          `json:"defect_pareto"`
	DefectRateTrend        []DefectRatePoint      `json:"defect_rate_trend"`
	DefectTrend            []DefectCountPoint     `json:"defect_trend"`
	Top5DefectLines        []TopDefectLine        `json:"top5_defect_lines"`
	DefectsByRootCause     []DataPoint            `json:"defects_by_root_cause"`
	DefectCausePareto      []ParetoPoint          `json:"defect_cause_pareto"`
	DefectRecordsForPeriod []EnrichedDefectRecord `json:"defect_records_for_period"`
}

// DowntimeSection 停机
type DowntimeSection struct {
	DowntimePareto        []ParetoPoint        `json:"downtime_pareto"`
	DowntimeTrend         []DowntimeTrendPoint `json:"downtime_trend"`
	Top5DowntimeMachines  []TopDowntimeMachine `json:"top5_downtime_machines"`
	DowntimeByLine        []StackedBar         `json:"downtime_by_line"`
	UniqueDowntimeReasons []string             `json:"unique_downtime_reasons"`
	DowntimeVsProduction  []ScatterPoint       `json:"downtime_vs_production"`
}

// OrderBuckets 逾期 / 即将到期的 PM 工单
type OrderBuckets struct {
	Overdue []EnrichedMaintenanceOrder `json:"overdue"`
	DueSoon []EnrichedMaintenanceOrder `json:"due_soon"`
}

// MaintenanceSection 维修
type MaintenanceSection struct {
	Kpis             MaintenanceKpis               `json:"kpis"`
	Schedule         OrderBuckets                  `json:"schedule"`
	PmSchedule       []EnrichedMaintenanceSchedule `json:"pm_schedule"`
	SpareParts       []SparePart                   `json:"spare_parts"`
	LowStockParts    []SparePart                   `json:"low_stock_parts"`
	McPartOrders     []McPartOrder                 `json:"mc_part_orders"`
	MachineStats     []MachineMaintenanceStats     `json:"machine_stats"`
	DowntimeAnalysis []DowntimeCauseStats          `json:"downtime_analysis"`
	Trend            []MaintenanceTrendPoint       `json:"trend"`
}

// BenchmarkingSection 对标
type BenchmarkingSection struct {
	OeeByLine []DataPoint `json:"oee_by_line"`
	Targets   []OeeTarget `json:"targets"`
}

// PurchasingSection 采购
type PurchasingSection struct {
	McPartRequests     []McPartPurchaseRequest     `json:"mc_part_requests"`
	ConsumableRequests []ConsumablePurchaseRequest `json:"consumable_requests"`
}

// DashboardData 看板查询结果
type DashboardData struct {
	ProductionLog     []ProductionRecord         `json:"production_log"`
	DowntimeRecords   []DowntimeRecord           `json:"downtime_records"`
	AllMachineInfo    []Machine                  `json:"all_machine_info"`
	ErrorReports      []EnrichedErrorReport      `json:"error_reports"`
	AllDefectRecords  []EnrichedDefectRecord     `json:"all_defect_records"`
	MaintenanceOrders []EnrichedMaintenanceOrder `json:"maintenance_orders"`
	AvailableLines    []string                   `json:"available_lines"`
	AvailableMachines []string                   `json:"available_machines"`
	MasterData        MasterData                 `json:"master_data"`
	MachineStatus     []MachineStatus            `json:"machine_status"`
	Summary           Summary                    `json:"summary"`
	Performance       PerformanceSection         `json:"performance"`
	Quality           QualitySection             `json:"quality"`
	Downtime          DowntimeSection            `json:"downtime"`
	Maintenance       MaintenanceSection         `json:"maintenance"`
	Benchmarking      BenchmarkingSection        `json:"benchmarking"`
	Purchasing        PurchasingSection          `json:"purchasing"`
}
