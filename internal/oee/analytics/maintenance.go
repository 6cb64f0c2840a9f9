package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
)

// DefaultAssumedOperatingHours 20 天 × 8 小时
const DefaultAssumedOperatingHours = 20 * 8

// 健康状态阈值
const (
	alertMttr        = 60
	alertBreakdowns  = 5
	warnMttr         = 30
	warnBreakdowns   = 2
	dueSoonDays      = 7
	stoppedThreshold = 60
)

type machineDowntime struct {
	breakdowns int
	minutes    int
}

// MachineMaintenanceStats 单机 MTBF/MTTR，按故障次数降序（稳定排序）
//
// MTTR 为所有原因的停机分钟 / 故障次数；MTBF 为 (假定运行小时 - 停机小时) / 故障次数，
// 下限为 0，无故障时取假定运行小时。
func MachineMaintenanceStats(downtime []entity.DowntimeRecord, machines []entity.Machine, assumedHours float64) []entity.MachineMaintenanceStats {
	byMachine := make(map[string]*machineDowntime)
	for _, d := range downtime {
		s, ok := byMachine[d.MachineCode]
		if !ok {
			s = &machineDowntime{}
			byMachine[d.MachineCode] = s
		}
		if d.IsBreakdown() {
			s.breakdowns++
		}
		s.minutes += d.Minutes
	}

	out := make([]entity.MachineMaintenanceStats, 0, len(machines))
	for _, m := range machines {
		s := byMachine[m.Code]
		if s == nil {
			s = &machineDowntime{}
		}

		var mttr float64
		mtbf := assumedHours
		if s.breakdowns > 0 {
			mttr = float64(s.minutes) / float64(s.breakdowns)
			mtbf = (assumedHours - float64(s.minutes)/60) / float64(s.breakdowns)
		}
		if mtbf < 0 {
			mtbf = 0
		}

		status := entity.HealthNormal
		if mttr > alertMttr || s.breakdowns > alertBreakdowns {
			status = entity.HealthAlert
		} else if mttr > warnMttr || s.breakdowns > warnBreakdowns {
			status = entity.HealthWarning
		}

		out = append(out, entity.MachineMaintenanceStats{
			MachineCode:    m.Code,
			Mtbf:           mtbf,
			Mttr:           mttr,
			BreakdownCount: s.breakdowns,
			TotalDowntime:  s.minutes,
			Status:         status,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BreakdownCount > out[j].BreakdownCount
	})
	return out
}

// FleetMaintenanceKpis 全厂指标
//
// MTBF 为各机简单平均，MTTR 为总停机/总故障次数的加权值，两者口径不同。
func FleetMaintenanceKpis(stats []entity.MachineMaintenanceStats) entity.MaintenanceKpis {
	var breakdowns, minutes int
	var mtbfSum float64
	for _, s := range stats {
		breakdowns += s.BreakdownCount
		minutes += s.TotalDowntime
		mtbfSum += s.Mtbf
	}

	kpis := entity.MaintenanceKpis{
		BreakdownCount:  breakdowns,
		TopMttrMachines: make([]entity.DataPoint, 0, 5),
	}
	if len(stats) > 0 {
		kpis.Mtbf = mtbfSum / float64(len(stats))
	}
	if breakdowns > 0 {
		kpis.Mttr = float64(minutes) / float64(breakdowns)
	}

	byMttr := make([]entity.MachineMaintenanceStats, len(stats))
	copy(byMttr, stats)
	sort.SliceStable(byMttr, func(i, j int) bool {
		return byMttr[i].Mttr > byMttr[j].Mttr
	})
	for i := 0; i < len(byMttr) && i < 5; i++ {
		kpis.TopMttrMachines = append(kpis.TopMttrMachines, entity.DataPoint{Name: byMttr[i].MachineCode, Value: byMttr[i].Mttr})
	}
	return kpis
}

type causeAccumulator struct {
	count    int
	minutes  int
	machines *grouper
}

// DowntimeCauseAnalysis 各停机原因的次数、时长与影响最大的设备，按时长降序
func DowntimeCauseAnalysis(downtime []entity.DowntimeRecord) []entity.DowntimeCauseStats {
	var reasons []string
	acc := make(map[string]*causeAccumulator)
	for _, d := range downtime {
		a, ok := acc[d.Reason]
		if !ok {
			a = &causeAccumulator{machines: newGrouper()}
			acc[d.Reason] = a
			reasons = append(reasons, d.Reason)
		}
		a.count++
		a.minutes += d.Minutes
		a.machines.add(d.MachineCode, float64(d.Minutes))
	}

	out := make([]entity.DowntimeCauseStats, 0, len(reasons))
	for _, r := range reasons {
		a := acc[r]
		main := "N/A"
		best := -1.0
		for _, p := range a.machines.points() {
			if p.Value > best {
				best = p.Value
				main = p.Name
			}
		}
		out = append(out, entity.DowntimeCauseStats{
			Reason:            r,
			Count:             a.count,
			TotalMinutes:      a.minutes,
			MainMachineImpact: main,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalMinutes > out[j].TotalMinutes
	})
	return out
}

// MaintenanceTrend 截止 end 的 7 天 MTBF/MTTR，非正值为 null
func MaintenanceTrend(end time.Time, downtime []entity.DowntimeRecord, machines []entity.Machine, assumedHours float64) []entity.MaintenanceTrendPoint {
	out := make([]entity.MaintenanceTrendPoint, 0, trendDays)
	for _, day := range trailingDays(end, trendDays) {
		var daily []entity.DowntimeRecord
		for _, d := range downtime {
			if d.Day == day {
				daily = append(daily, d)
			}
		}
		kpis := FleetMaintenanceKpis(MachineMaintenanceStats(daily, machines, assumedHours))
		out = append(out, entity.MaintenanceTrendPoint{
			Date: day,
			Mtbf: positiveOrNil(kpis.Mtbf),
			Mttr: positiveOrNil(kpis.Mttr),
		})
	}
	return out
}

// PmScheduleStatus 下次日期 = 上次 + 周期；早于今天为逾期，7 天内为即将到期
func PmScheduleStatus(s entity.MaintenanceSchedule, today time.Time) (next string, status string, err error) {
	last, err := time.Parse(entity.DateLayout, s.LastPmDate)
	if err != nil {
		return "", "", err
	}
	nextDate := last.AddDate(0, 0, s.CycleDays)
	days := daysBetween(today, nextDate)

	status = entity.PmOnSchedule
	if days < 0 {
		status = entity.PmOverdue
	} else if days <= dueSoonDays {
		status = entity.PmDueSoon
	}
	return nextDate.Format(entity.DateLayout), status, nil
}

// EnrichSchedules 为所有 PM 计划计算下次日期与状态
func EnrichSchedules(master *entity.MasterData, schedules []entity.MaintenanceSchedule, today time.Time) ([]entity.EnrichedMaintenanceSchedule, error) {
	out := make([]entity.EnrichedMaintenanceSchedule, 0, len(schedules))
	for _, s := range schedules {
		machine, err := master.Machine(s.MachineID)
		if err != nil {
			return nil, err
		}
		next, status, err := PmScheduleStatus(s, today)
		if err != nil {
			return nil, err
		}
		out = append(out, entity.EnrichedMaintenanceSchedule{
			MaintenanceSchedule: s,
			MachineCode:         machine.Code,
			MachineName:         machine.Name,
			NextPmDate:          next,
			Status:              status,
		})
	}
	return out, nil
}

// ScheduleBuckets 未开工 PM 工单：计划日早于今天为逾期，7 天内为即将到期
//
// 计划日期无法解析时返回错误，与 PmScheduleStatus 一致。
func ScheduleBuckets(orders []entity.EnrichedMaintenanceOrder, today time.Time) (entity.OrderBuckets, error) {
	buckets := entity.OrderBuckets{
		Overdue: make([]entity.EnrichedMaintenanceOrder, 0),
		DueSoon: make([]entity.EnrichedMaintenanceOrder, 0),
	}
	for _, o := range orders {
		if o.Type != entity.OrderTypePM || o.Status != entity.OrderOpen {
			continue
		}
		plan, err := time.Parse(entity.DateLayout, o.PlanDate)
		if err != nil {
			return entity.OrderBuckets{}, fmt.Errorf("工单 %d 计划日期无效 %q: %w", o.ID, o.PlanDate, err)
		}
		days := daysBetween(today, plan)
		if days < 0 {
			buckets.Overdue = append(buckets.Overdue, o)
		} else if days <= dueSoonDays {
			buckets.DueSoon = append(buckets.DueSoon, o)
		}
	}
	return buckets, nil
}

// LowStockParts 需要补货的备件
func LowStockParts(parts []entity.SparePart) []entity.SparePart {
	out := make([]entity.SparePart, 0)
	for _, p := range parts {
		if p.NeedsReorder() {
			out = append(out, p)
		}
	}
	return out
}

// SparePartDetails 备件消耗历史（已完成工单，按完成日倒序）与采购历史（按下单日倒序）
func SparePartDetails(snap *entity.Snapshot, partID int) (*entity.EnrichedSparePart, error) {
	part, err := snap.Master.SparePart(partID)
	if err != nil {
		return nil, err
	}

	usage := make([]entity.SparePartUsageHistory, 0)
	for _, u := range snap.PartUsages {
		if u.PartID != partID {
			continue
		}
		for _, o := range snap.MaintenanceOrders {
			if o.ID != u.OrderID || o.Status != entity.OrderDone || o.ActualEndDate == nil {
				continue
			}
			machine, err := snap.Master.Machine(o.MachineID)
			if err != nil {
				return nil, err
			}
			usage = append(usage, entity.SparePartUsageHistory{
				OrderID:     o.ID,
				MachineCode: machine.Code,
				CompletedAt: *o.ActualEndDate,
				QtyUsed:     u.QtyUsed,
			})
		}
	}
	sort.SliceStable(usage, func(i, j int) bool {
		return usage[i].CompletedAt > usage[j].CompletedAt
	})

	purchases := make([]entity.McPartOrder, 0)
	for _, po := range snap.McPartOrders {
		if po.ItemCode == part.PartCode {
			purchases = append(purchases, po)
		}
	}
	sort.SliceStable(purchases, func(i, j int) bool {
		return purchases[i].OrderDate > purchases[j].OrderDate
	})

	return &entity.EnrichedSparePart{
		SparePart:       *part,
		UsageHistory:    usage,
		PurchaseHistory: purchases,
	}, nil
}

func positiveOrNil(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

// daysBetween 按日历日计算 to - from
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
