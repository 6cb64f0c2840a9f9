package generator

import (
	"time"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

// Master 默认主数据
func Master() entity.MasterData {
	return entity.MasterData{
		Users: []entity.User{
			{ID: 1, Username: "admin", FullName: "Admin", Role: entity.RoleAdmin},
			{ID: 101, Username: "vhung", FullName: "Văn Hùng", Role: entity.RoleMaintenance},
			{ID: 102, Username: "tlan", FullName: "Thị Lan", Role: entity.RoleMaintenance},
			{ID: 103, Username: "mtri", FullName: "Minh Trí", Role: entity.RoleMaintenance},
			{ID: 201, Username: "operatorA", FullName: "Operator Ca A", Role: entity.RoleOperator},
			{ID: 202, Username: "qa_team", FullName: "QA Team", Role: entity.RoleQA},
			{ID: 203, Username: "supervisor.b", FullName: "Supervisor B", Role: entity.RoleSupervisor},
		},
		Shifts: []entity.Shift{
			{ID: 1, Code: "A", Name: "Ca A (06:00 - 14:00)"},
			{ID: 2, Code: "B", Name: "Ca B (14:00 - 22:00)"},
			{ID: 3, Code: "C", Name: "Ca C (22:00 - 06:00)"},
		},
		DefectTypes: []entity.DefectType{
			{ID: 1, Code: "SKIP_STITCH", Name: "Skip stitch"},
			{ID: 2, Code: "TAPE_JAM", Name: "Tape jam"},
			{ID: 3, Code: "COSMETIC", Name: "Cosmetic"},
			{ID: 4, Code: "MISALIGNED", Name: "Misaligned"},
			{ID: 5, Code: "PAINT_DRIP", Name: "Paint Drip"},
			{ID: 6, Code: "SCRATCH", Name: "Scratch"},
			{ID: 7, Code: "PACKAGING", Name: "Packaging"},
			{ID: 8, Code: "TRIM", Name: "Material Trim"},
			{ID: 9, Code: "SENSOR_ERROR", Name: "Sensor Error"},
		},
		DefectCauses: []entity.DefectCause{
			{ID: 1, Category: "Man"},
			{ID: 2, Category: "Machine"},
			{ID: 3, Category: "Material"},
			{ID: 4, Category: "Method"},
			{ID: 5, Category: "Environment"},
		},
		Machines: []entity.Machine{
			{ID: 1, Code: "M01", Name: "Assembler Alpha", LineID: "32", IdealCycleTime: 0.045, DesignSpeed: 22, Status: entity.MachineActive, X: floatPtr(30), Y: floatPtr(20)},
			{ID: 2, Code: "M02", Name: "Assembler Beta", LineID: "32", IdealCycleTime: 0.045, DesignSpeed: 22, Status: entity.MachineActive, X: floatPtr(30), Y: floatPtr(60)},
			{ID: 3, Code: "M03", Name: "Stamping Press 1", LineID: "31", IdealCycleTime: 0.06, DesignSpeed: 17, Status: entity.MachineActive, X: floatPtr(10), Y: floatPtr(30)},
			{ID: 4, Code: "M04", Name: "Paint Booth A", LineID: "41", IdealCycleTime: 0.25, DesignSpeed: 4, Status: entity.MachineInactive, X: floatPtr(55), Y: floatPtr(30)},
			{ID: 5, Code: "M05", Name: "Paint Booth B", LineID: "42", IdealCycleTime: 0.24, DesignSpeed: 4, Status: entity.MachineActive, X: floatPtr(55), Y: floatPtr(70)},
			{ID: 6, Code: "M06", Name: "Finishing Line 1", LineID: "51", IdealCycleTime: 0.08, DesignSpeed: 12, Status: entity.MachineActive, X: floatPtr(80), Y: floatPtr(50)},
		},
		SpareParts: []entity.SparePart{
			{ID: 1, PartCode: "FIL-001", Name: "Air Filter", Location: "Aisle 3, Bin 12",
				Available: 15, InTransit: 0, Reserved: 2, UsedInPeriod: 8, SafetyStock: 8, ReorderPoint: 10,
				MaintenanceIntervalDays: intPtr(30), LifespanDays: intPtr(180),
				WearTearStandard:    "Check for clogging and tears. Airflow reduction > 20% indicates wear.",
				ReplacementStandard: "Replace every 6 months or if torn."},
			{ID: 2, PartCode: "BLT-A300", Name: "Belt A300", Location: "Aisle 3, Bin 5",
				Available: 3, InTransit: 0, Reserved: 0, UsedInPeriod: 8, SafetyStock: 3, ReorderPoint: 5,
				LifespanDays:        intPtr(730),
				WearTearStandard:    "Visible cracks, fraying, or loss of tension.",
				ReplacementStandard: "Replace every 24 months or upon visible wear."},
			{ID: 3, PartCode: "BEAR-210", Name: "Ball Bearing 210mm", Location: "Aisle 3, Bin 5",
				Available: 50, InTransit: 20, Reserved: 5, UsedInPeriod: 15, SafetyStock: 15, ReorderPoint: 20,
				MaintenanceIntervalDays: intPtr(365)},
			{ID: 4, PartCode: "NOZ-PNT-A", Name: "Paint Nozzle Type A", Location: "Aisle 5, Bin 1",
				Available: 4, InTransit: 0, Reserved: 1, UsedInPeriod: 5, SafetyStock: 5, ReorderPoint: 5},
			{ID: 5, PartCode: "CP-F20005", Name: "Coupling F20005", Location: "Aisle 2, Bin 8",
				Available: 1, InTransit: 1, Reserved: 2, UsedInPeriod: 15, SafetyStock: 4, ReorderPoint: 6,
				FlaggedForOrder: true},
			{ID: 6, PartCode: "BRG-6301ZZE", Name: "Bearing 6301ZZE", Location: "Aisle 1, Bin 4",
				Available: 5, InTransit: 2, Reserved: 1, UsedInPeriod: 20, SafetyStock: 3, ReorderPoint: 5},
		},
		PmPartsTemplates: []entity.PmPartsTemplate{
			{ID: 1, PmType: "PM-1M", MachineID: 1, Parts: []entity.PmPart{{PartID: 1, Qty: 1}}},
			{ID: 2, PmType: "PM-12M", MachineID: 2, Parts: []entity.PmPart{{PartID: 3, Qty: 4}, {PartID: 2, Qty: 1}}},
			{ID: 3, PmType: "PM-1M", MachineID: 3, Parts: []entity.PmPart{}},
			{ID: 4, PmType: "PM-12M", MachineID: 5, Parts: []entity.PmPart{{PartID: 4, Qty: 2}}},
		},
		LineAreas: []entity.LineArea{
			{LineID: "31", Area: "Area Stamping"},
			{LineID: "32", Area: "Area Assembly"},
			{LineID: "41", Area: "Area Painting"},
			{LineID: "42", Area: "Area Painting"},
			{LineID: "51", Area: "Area Finishing"},
		},
	}
}

// Fixtures 静态种子数据（不含生成的生产/停机/缺陷记录），异常报告时间取自日期范围
func Fixtures(start, end string) *entity.Snapshot {
	at := func(day, hhmm string) time.Time {
		t, err := time.Parse(entity.DateLayout+"T15:04", day+"T"+hhmm)
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	}

	return &entity.Snapshot{
		Master: Master(),
		ErrorReports: []entity.ErrorReport{
			{ID: 1, ReportNo: "ERR-001", MachineID: 1, ShiftID: 1, OperatorID: 201,
				ReportTime: at(start, "08:00"), DefectType: "Skip stitch", DefectDescription: "Machine is skipping stitches",
				Severity: entity.SeverityMedium, Status: entity.ErrorInProgress, TechnicianID: intPtr(101),
				CreatedAt: at(start, "08:00"), UpdatedAt: at(start, "09:00")},
			{ID: 2, ReportNo: "ERR-002", MachineID: 3, ShiftID: 2, OperatorID: 201,
				ReportTime: at(end, "15:00"), DefectType: "Cosmetic", DefectDescription: "Scratches on surface",
				Severity: entity.SeverityLow, Status: entity.ErrorReported,
				CreatedAt: at(end, "15:00"), UpdatedAt: at(end, "15:00"), LinkedDefectID: intPtr(1)},
		},
		ErrorImages: []entity.ErrorImage{},
		ErrorHistory: []entity.ErrorHistory{
			{ID: 1, ErrorID: 1, ChangedBy: 1, OldStatus: entity.ErrorReported, NewStatus: entity.ErrorInProgress,
				Note: "Technician assigned.", ChangedAt: at(start, "09:00")},
		},
		MaintenanceOrders: []entity.MaintenanceOrder{
			{ID: 1, MachineID: 2, Type: entity.OrderTypePM, Priority: entity.PriorityMedium, Status: entity.OrderDone,
				CreatedByID: 1, AssignedToID: intPtr(101), TaskDescription: "Monthly lubrication and filter change",
				DowntimeMin: intPtr(60), PlanDate: "2025-10-15", ActualStartDate: strPtr("2025-10-15"), ActualEndDate: strPtr("2025-10-15")},
			{ID: 2, MachineID: 5, Type: entity.OrderTypeIM, Priority: entity.PriorityHigh, Status: entity.OrderOpen,
				CreatedByID: 1, TaskDescription: "Upgrade nozzle control system",
				DowntimeMin: intPtr(240), PlanDate: "2025-11-05"},
			{ID: 3, MachineID: 1, Type: entity.OrderTypeIM, Priority: entity.PriorityHigh, Status: entity.OrderDone,
				CreatedByID: 203, AssignedToID: intPtr(102), TaskDescription: "Replaced worn out A300 belt",
				DowntimeMin: intPtr(90), PlanDate: "2025-10-20", ActualStartDate: strPtr("2025-10-20"), ActualEndDate: strPtr("2025-10-20")},
		},
		PartUsages: []entity.MaintenancePartUsage{
			{ID: 1, OrderID: 1, PartID: 1, QtyUsed: 1},
			{ID: 2, OrderID: 3, PartID: 2, QtyUsed: 1},
		},
		Schedules: []entity.MaintenanceSchedule{
			{ID: 1, MachineID: 1, PmType: "PM-1M", LastPmDate: "2025-10-10", CycleDays: 30},
			{ID: 2, MachineID: 2, PmType: "PM-12M", LastPmDate: "2024-11-15", CycleDays: 365},
			{ID: 3, MachineID: 3, PmType: "PM-1M", LastPmDate: "2025-09-28", CycleDays: 30},
			{ID: 4, MachineID: 5, PmType: "PM-12M", LastPmDate: "2024-12-25", CycleDays: 365},
			{ID: 5, MachineID: 1, PmType: "PM-12M", LastPmDate: "2025-01-05", CycleDays: 365},
			{ID: 6, MachineID: 6, PmType: "PM-1M", LastPmDate: "2025-10-25", CycleDays: 30},
		},
		McPartOrders: []entity.McPartOrder{
			{ID: 1, Area: "312", OrderNo: "PO202510A", ItemCode: "BRG-6301ZZE", ItemName: "Bearing 6301ZZE", QtyOrder: 2,
				OrderDate: "2025-10-01", ExpectedDate: "2025-10-28", Supplier: "NSK Vietnam", Status: "In Transit"},
			{ID: 2, Area: "312", OrderNo: "PO202510B", ItemCode: "BLT-A300", ItemName: "Belt A300", QtyOrder: 5,
				OrderDate: "2025-10-05", ExpectedDate: "2025-10-25", Supplier: "Gates Unitta", Status: "Received"},
			{ID: 3, Area: "411", OrderNo: "PO202510C", ItemCode: "NOZ-PNT-A", ItemName: "Paint Nozzle Type A", QtyOrder: 10,
				OrderDate: "2025-09-20", ExpectedDate: "2025-10-15", Supplier: "Graco Inc.", Status: "Delayed"},
		},
		PurchaseRequests:   []entity.McPartPurchaseRequest{},
		ConsumableRequests: []entity.ConsumablePurchaseRequest{},
		OeeTargets: []entity.OeeTarget{
			{ID: 1, Level: "Line", LineID: strPtr("31"), TargetOee: 0.85, TargetOutput: 20000, TargetDefectRate: 0.02, EffectiveFrom: "2025-01-01"},
			{ID: 2, Level: "Line", LineID: strPtr("32"), TargetOee: 0.90, TargetOutput: 45000, TargetDefectRate: 0.015, EffectiveFrom: "2025-01-01"},
			{ID: 3, Level: "Line", LineID: strPtr("51"), TargetOee: 0.88, TargetOutput: 15000, TargetDefectRate: 0.025, EffectiveFrom: "2025-01-01"},
		},
	}
}

// Seed 种子数据加上 [start, end] 内生成的记录
func Seed(g *Generator, start, end string) (*entity.Snapshot, error) {
	snap := Fixtures(start, end)
	batch, err := g.Generate(&snap.Master, start, end)
	if err != nil {
		return nil, err
	}
	snap.Production = batch.Production
	snap.Downtime = batch.Downtime
	snap.Defects = batch.Defects
	return snap, nil
}
