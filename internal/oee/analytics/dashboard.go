package analytics

import (
	"sort"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
)

// Params 注入的计算参数
type Params struct {
	// Today PM 计划与工单分桶使用的参考日期
	Today                 time.Time
	AssumedOperatingHours float64
}

func (p Params) hours() float64 {
	if p.AssumedOperatingHours <= 0 {
		return DefaultAssumedOperatingHours
	}
	return p.AssumedOperatingHours
}

// BuildDashboard 根据快照与查询条件计算完整看板数据，纯函数
func BuildDashboard(snap *entity.Snapshot, q entity.DashboardQuery, p Params) (*entity.DashboardData, error) {
	s, err := newScope(snap, q)
	if err != nil {
		return nil, err
	}
	master := &snap.Master

	pmSchedule, err := EnrichSchedules(master, snap.Schedules, p.Today)
	if err != nil {
		return nil, err
	}

	data := &entity.DashboardData{
		ProductionLog:     s.production,
		DowntimeRecords:   s.downtime,
		AllMachineInfo:    master.Machines,
		ErrorReports:      make([]entity.EnrichedErrorReport, 0),
		AllDefectRecords:  make([]entity.EnrichedDefectRecord, 0),
		MaintenanceOrders: make([]entity.EnrichedMaintenanceOrder, 0),
		AvailableLines:    master.Lines(),
		AvailableMachines: master.MachineCodes(),
		MasterData:        *master,
		MachineStatus:     machineStatuses(master.Machines, s),
	}
	for _, r := range s.allReports {
		if s.machineSet[r.MachineCode] {
			data.ErrorReports = append(data.ErrorReports, r)
		}
	}
	for _, d := range s.allDefects {
		if s.machineSet[d.MachineCode] {
			data.AllDefectRecords = append(data.AllDefectRecords, d)
		}
	}
	for _, o := range s.allOrders {
		if s.machineSet[o.MachineCode] {
			data.MaintenanceOrders = append(data.MaintenanceOrders, o)
		}
	}

	data.Summary = buildSummary(s, data.ErrorReports)
	data.Performance = buildPerformance(s)
	data.Quality = buildQuality(s)
	data.Downtime = buildDowntime(s)

	// 停机按筛选条件过滤，设备统计覆盖全部设备
	buckets, err := ScheduleBuckets(s.allOrders, p.Today)
	if err != nil {
		return nil, err
	}
	machineStats := MachineMaintenanceStats(s.downtime, master.Machines, p.hours())
	data.Maintenance = entity.MaintenanceSection{
		Kpis:             FleetMaintenanceKpis(machineStats),
		Schedule:         buckets,
		PmSchedule:       pmSchedule,
		SpareParts:       master.SpareParts,
		LowStockParts:    LowStockParts(master.SpareParts),
		McPartOrders:     nonNil(snap.McPartOrders),
		MachineStats:     machineStats,
		DowntimeAnalysis: DowntimeCauseAnalysis(s.downtime),
		Trend:            MaintenanceTrend(s.end, s.downtime, master.Machines, p.hours()),
	}
	data.Benchmarking = entity.BenchmarkingSection{
		OeeByLine: data.Summary.OeeByLine,
		Targets:   nonNil(snap.OeeTargets),
	}
	data.Purchasing = entity.PurchasingSection{
		McPartRequests:     nonNil(snap.PurchaseRequests),
		ConsumableRequests: nonNil(snap.ConsumableRequests),
	}
	return data, nil
}

func buildSummary(s *scope, reports []entity.EnrichedErrorReport) entity.Summary {
	var sum entity.Summary
	for _, p := range s.production {
		sum.TotalProduction += p.ActualQty
		sum.TotalDefects += p.DefectQty
		sum.TotalDowntime += p.DowntimeMin
	}
	planned := len(s.production) * entity.ShiftMinutes
	if planned > 0 {
		sum.MachineUtilization = float64(planned-sum.TotalDowntime) / float64(planned)
	}

	if n := len(s.validOEE); n > 0 {
		var oee, a, perf, q float64
		for _, p := range s.validOEE {
			oee += p.OEE
			a += p.Availability
			perf += p.Performance
			q += p.Quality
		}
		cnt := float64(n)
		sum.AvgOee = oee / cnt
		sum.AvgAvailability = a / cnt
		sum.AvgPerformance = perf / cnt
		sum.AvgQuality = q / cnt
	}
	sum.DefectRate = ratio(sum.TotalDefects, sum.TotalProduction+sum.TotalDefects)

	sum.ProductionByLine = make([]entity.DataPoint, 0, len(s.lines))
	sum.OeeByLine = make([]entity.DataPoint, 0, len(s.lines))
	for _, line := range s.lines {
		var qty int
		for _, p := range s.production {
			if p.LineID == line {
				qty += p.ActualQty
			}
		}
		sum.ProductionByLine = append(sum.ProductionByLine, entity.DataPoint{Name: line, Value: float64(qty)})
		sum.OeeByLine = append(sum.OeeByLine, entity.DataPoint{Name: line, Value: avgOEE(s.validOEE, func(p entity.ProductionRecord) bool {
			return p.LineID == line
		})})
	}

	for _, r := range reports {
		if r.IsOpen() {
			sum.OpenErrorCount++
		}
	}
	return sum
}

func buildPerformance(s *scope) entity.PerformanceSection {
	perf := entity.PerformanceSection{
		SevenDayTrend:     SevenDayTrend(s.end, s.production),
		ProductionBoxplot: make([]entity.BoxplotPoint, 0, len(s.lines)),
		OeeHeatmap:        make([]entity.HeatmapPoint, 0, len(s.lines)*3),
	}
	for _, line := range s.lines {
		values := make([]float64, 0)
		for _, p := range s.production {
			if p.LineID == line {
				values = append(values, float64(p.ActualQty))
			}
		}
		box := entity.BoxplotPoint{Name: line}
		if len(values) > 0 {
			sort.Float64s(values)
			box.Min = values[0]
			box.Q1 = quantileSorted(values, 0.25)
			box.Median = quantileSorted(values, 0.5)
			box.Q3 = quantileSorted(values, 0.75)
			box.Max = values[len(values)-1]
		}
		perf.ProductionBoxplot = append(perf.ProductionBoxplot, box)

		for _, shift := range []string{"A", "B", "C"} {
			perf.OeeHeatmap = append(perf.OeeHeatmap, entity.HeatmapPoint{
				Line:  line,
				Shift: shift,
				Value: avgOEE(s.validOEE, func(p entity.ProductionRecord) bool {
					return p.LineID == line && p.Shift == shift
				}),
			})
		}
	}
	return perf
}

func buildQuality(s *scope) entity.QualitySection {
	byType := newGrouper()
	byCause := newGrouper()
	for _, d := range s.defects {
		byType.add(d.DefectTypeName, float64(d.Quantity))
		category := "Unknown"
		if d.CauseCategory != nil {
			category = *d.CauseCategory
		}
		byCause.add(category, float64(d.Quantity))
	}

	counts, rates := DefectTrends(s.production)
	return entity.QualitySection{
		DefectPareto:           Pareto(byType.points()),
		DefectRateTrend:        rates,
		DefectTrend:            counts,
		Top5DefectLines:        topDefectLines(s),
		DefectsByRootCause:     byCause.points(),
		DefectCausePareto:      Pareto(byCause.points()),
		DefectRecordsForPeriod: s.defects,
	}
}

func topDefectLines(s *scope) []entity.TopDefectLine {
	lines := make([]entity.TopDefectLine, 0, len(s.lines))
	for _, line := range s.lines {
		var prod, defects int
		for _, p := range s.production {
			if p.LineID == line {
				prod += p.ActualQty
				defects += p.DefectQty
			}
		}
		lines = append(lines, entity.TopDefectLine{
			LineID:          line,
			TotalProduction: prod,
			TotalDefects:    defects,
			DefectRate:      ratio(defects, prod+defects),
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].DefectRate > lines[j].DefectRate
	})
	return truncate(lines, 5)
}

func buildDowntime(s *scope) entity.DowntimeSection {
	byReason := newGrouper()
	reasonSet := make(map[string]bool)
	reasons := make([]string, 0)
	for _, d := range s.downtime {
		byReason.add(d.Reason, float64(d.Minutes))
		if !reasonSet[d.Reason] {
			reasonSet[d.Reason] = true
			reasons = append(reasons, d.Reason)
		}
	}
	sort.Strings(reasons)

	machineLine := make(map[string]string, len(s.machines))
	for _, m := range s.machines {
		machineLine[m.Code] = m.LineID
	}

	top := make([]entity.TopDowntimeMachine, 0, len(s.machines))
	scatter := make([]entity.ScatterPoint, 0, len(s.machines))
	for _, m := range s.machines {
		var minutes, prod int
		for _, d := range s.downtime {
			if d.MachineCode == m.Code {
				minutes += d.Minutes
			}
		}
		for _, p := range s.production {
			if p.MachineCode == m.Code {
				prod += p.ActualQty
			}
		}
		top = append(top, entity.TopDowntimeMachine{MachineCode: m.Code, TotalDowntime: minutes})
		scatter = append(scatter, entity.ScatterPoint{Production: prod, Downtime: minutes, MachineCode: m.Code, LineID: m.LineID})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].TotalDowntime > top[j].TotalDowntime
	})

	byLine := make([]entity.StackedBar, 0, len(s.lines))
	for _, line := range s.lines {
		bar := entity.StackedBar{Name: line, Segments: make(map[string]int, len(reasons))}
		for _, r := range reasons {
			bar.Segments[r] = 0
		}
		for _, d := range s.downtime {
			if machineLine[d.MachineCode] == line {
				bar.Segments[d.Reason] += d.Minutes
			}
		}
		byLine = append(byLine, bar)
	}

	return entity.DowntimeSection{
		DowntimePareto:        Pareto(byReason.points()),
		DowntimeTrend:         DowntimeTrend(s.downtime),
		Top5DowntimeMachines:  truncate(top, 5),
		DowntimeByLine:        byLine,
		UniqueDowntimeReasons: reasons,
		DowntimeVsProduction:  scatter,
	}
}

// machineStatuses 车间布局状态：停用 / 有未关闭异常 / 单次停机超过 60 分钟 / 运行
func machineStatuses(machines []entity.Machine, s *scope) []entity.MachineStatus {
	out := make([]entity.MachineStatus, 0, len(machines))
	for _, m := range machines {
		var latest *entity.ProductionRecord
		for i := range s.production {
			p := &s.production[i]
			if p.MachineCode == m.Code && (latest == nil || p.Day > latest.Day) {
				latest = p
			}
		}

		status := entity.StatusInactive
		if m.Status == entity.MachineActive {
			status = entity.StatusRunning
			if hasOpenReport(s.allReports, m.Code) {
				status = entity.StatusError
			} else if hasLongStop(s.downtime, m.Code) {
				status = entity.StatusStopped
			}
		}

		ms := entity.MachineStatus{MachineCode: m.Code, Status: status, LineID: m.LineID}
		if latest != nil {
			ms.Oee = floatPtr(latest.OEE)
		}
		out = append(out, ms)
	}
	return out
}

func hasOpenReport(reports []entity.EnrichedErrorReport, code string) bool {
	for _, r := range reports {
		if r.MachineCode == code && r.IsOpen() {
			return true
		}
	}
	return false
}

func hasLongStop(downtime []entity.DowntimeRecord, code string) bool {
	for _, d := range downtime {
		if d.MachineCode == code && d.Minutes > stoppedThreshold {
			return true
		}
	}
	return false
}

func avgOEE(records []entity.ProductionRecord, match func(entity.ProductionRecord) bool) float64 {
	var sum float64
	var n int
	for _, p := range records {
		if match(p) {
			sum += p.OEE
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func truncate[T any](in []T, n int) []T {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
