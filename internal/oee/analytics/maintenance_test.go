package analytics

import (
	"testing"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func machines(codes ...string) []entity.Machine {
	out := make([]entity.Machine, 0, len(codes))
	for i, c := range codes {
		out = append(out, entity.Machine{ID: i + 1, Code: c, Status: entity.MachineActive})
	}
	return out
}

func TestMachineMaintenanceStats(t *testing.T) {
	downtime := []entity.DowntimeRecord{
		{MachineCode: "A", Reason: entity.ReasonMechanical, Minutes: 30},
		{MachineCode: "A", Reason: entity.ReasonSetup, Minutes: 60},
		{MachineCode: "A", Reason: entity.ReasonElectrical, Minutes: 30},
		{MachineCode: "C", Reason: entity.ReasonElectrical, Minutes: 10},
	}

	stats := MachineMaintenanceStats(downtime, machines("B", "A", "C"), 160)
	require.Len(t, stats, 3)

	// 按故障次数降序，相同则保持输入顺序
	assert.Equal(t, "A", stats[0].MachineCode)
	assert.Equal(t, "C", stats[1].MachineCode)
	assert.Equal(t, "B", stats[2].MachineCode)

	a := stats[0]
	assert.Equal(t, 2, a.BreakdownCount)
	assert.Equal(t, 120, a.TotalDowntime)
	assert.InDelta(t, 60.0, a.Mttr, 1e-9)
	assert.InDelta(t, 79.0, a.Mtbf, 1e-9)
	assert.Equal(t, entity.HealthWarning, a.Status)

	b := stats[2]
	assert.Equal(t, 0, b.BreakdownCount)
	assert.Equal(t, 0.0, b.Mttr)
	assert.Equal(t, 160.0, b.Mtbf)
	assert.Equal(t, entity.HealthNormal, b.Status)
}

func TestMachineMaintenanceStats_Thresholds(t *testing.T) {
	var downtime []entity.DowntimeRecord
	for i := 0; i < 6; i++ {
		downtime = append(downtime, entity.DowntimeRecord{MachineCode: "X", Reason: entity.ReasonMechanical, Minutes: 5})
	}
	downtime = append(downtime,
		entity.DowntimeRecord{MachineCode: "Y", Reason: entity.ReasonMechanical, Minutes: 61},
		entity.DowntimeRecord{MachineCode: "Z", Reason: entity.ReasonMechanical, Minutes: 10},
		entity.DowntimeRecord{MachineCode: "Z", Reason: entity.ReasonMechanical, Minutes: 10},
		entity.DowntimeRecord{MachineCode: "Z", Reason: entity.ReasonMechanical, Minutes: 10},
	)

	byCode := make(map[string]entity.MachineMaintenanceStats)
	for _, s := range MachineMaintenanceStats(downtime, machines("X", "Y", "Z"), 160) {
		byCode[s.MachineCode] = s
	}
	assert.Equal(t, entity.HealthAlert, byCode["X"].Status)
	assert.Equal(t, entity.HealthAlert, byCode["Y"].Status)
	assert.Equal(t, entity.HealthWarning, byCode["Z"].Status)
}

func TestMachineMaintenanceStats_MtbfClampedAtZero(t *testing.T) {
	downtime := []entity.DowntimeRecord{{MachineCode: "A", Reason: entity.ReasonMechanical, Minutes: 10000}}

	stats := MachineMaintenanceStats(downtime, machines("A"), 160)
	require.Len(t, stats, 1)
	assert.Equal(t, 0.0, stats[0].Mtbf)
}

// 全厂 MTBF 为简单平均，MTTR 为加权值，二者口径不同
func TestFleetMaintenanceKpis_AsymmetricAveraging(t *testing.T) {
	stats := []entity.MachineMaintenanceStats{
		{MachineCode: "A", Mtbf: 79, Mttr: 60, BreakdownCount: 2, TotalDowntime: 120},
		{MachineCode: "B", Mtbf: 160, Mttr: 0, BreakdownCount: 0, TotalDowntime: 0},
		{MachineCode: "C", Mtbf: 100, Mttr: 10, BreakdownCount: 1, TotalDowntime: 10},
	}

	kpis := FleetMaintenanceKpis(stats)
	assert.InDelta(t, (79.0+160+100)/3, kpis.Mtbf, 1e-9)
	assert.InDelta(t, 130.0/3, kpis.Mttr, 1e-9)
	assert.NotEqual(t, (60.0+0+10)/3, kpis.Mttr)
	assert.Equal(t, 3, kpis.BreakdownCount)

	require.Len(t, kpis.TopMttrMachines, 3)
	assert.Equal(t, "A", kpis.TopMttrMachines[0].Name)
	assert.Equal(t, "C", kpis.TopMttrMachines[1].Name)
	// 输入顺序不被修改
	assert.Equal(t, "A", stats[0].MachineCode)
	assert.Equal(t, "B", stats[1].MachineCode)
}

func TestFleetMaintenanceKpis_Empty(t *testing.T) {
	kpis := FleetMaintenanceKpis(nil)
	assert.Equal(t, 0.0, kpis.Mtbf)
	assert.Equal(t, 0.0, kpis.Mttr)
	assert.NotNil(t, kpis.TopMttrMachines)
}

func TestDowntimeCauseAnalysis(t *testing.T) {
	downtime := []entity.DowntimeRecord{
		{MachineCode: "M01", Reason: entity.ReasonSetup, Minutes: 10},
		{MachineCode: "M02", Reason: entity.ReasonMechanical, Minutes: 40},
		{MachineCode: "M03", Reason: entity.ReasonSetup, Minutes: 25},
		{MachineCode: "M01", Reason: entity.ReasonSetup, Minutes: 15},
	}

	out := DowntimeCauseAnalysis(downtime)
	require.Len(t, out, 2)
	assert.Equal(t, entity.DowntimeCauseStats{Reason: "Setup", Count: 3, TotalMinutes: 50, MainMachineImpact: "M01"}, out[0])
	assert.Equal(t, entity.DowntimeCauseStats{Reason: "Mechanical", Count: 1, TotalMinutes: 40, MainMachineImpact: "M02"}, out[1])
}

func TestMaintenanceTrend(t *testing.T) {
	end := time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC)
	downtime := []entity.DowntimeRecord{
		{Day: "2025-10-25", MachineCode: "A", Reason: entity.ReasonMechanical, Minutes: 30},
		{Day: "2025-10-26", MachineCode: "A", Reason: entity.ReasonSetup, Minutes: 30},
	}

	trend := MaintenanceTrend(end, downtime, machines("A"), 160)
	require.Len(t, trend, 7)
	assert.Equal(t, "2025-10-20", trend[0].Date)

	day25 := trend[5]
	require.NotNil(t, day25.Mttr)
	assert.InDelta(t, 30.0, *day25.Mttr, 1e-9)
	require.NotNil(t, day25.Mtbf)
	assert.InDelta(t, 159.5, *day25.Mtbf, 1e-9)

	// 无故障日 MTTR 为 null，MTBF 为假定运行小时
	day26 := trend[6]
	assert.Nil(t, day26.Mttr)
	require.NotNil(t, day26.Mtbf)
	assert.Equal(t, 160.0, *day26.Mtbf)
}

func TestPmScheduleStatus(t *testing.T) {
	last := refToday.AddDate(0, 0, -40).Format(entity.DateLayout)

	_, status, err := PmScheduleStatus(entity.MaintenanceSchedule{LastPmDate: last, CycleDays: 30}, refToday)
	require.NoError(t, err)
	assert.Equal(t, entity.PmOverdue, status)

	_, status, err = PmScheduleStatus(entity.MaintenanceSchedule{LastPmDate: last, CycleDays: 365}, refToday)
	require.NoError(t, err)
	assert.Equal(t, entity.PmOnSchedule, status)

	cases := []struct {
		offset int
		want   string
	}{
		{-1, entity.PmOverdue},
		{0, entity.PmDueSoon},
		{7, entity.PmDueSoon},
		{8, entity.PmOnSchedule},
	}
	for _, c := range cases {
		s := entity.MaintenanceSchedule{LastPmDate: refToday.AddDate(0, 0, c.offset-30).Format(entity.DateLayout), CycleDays: 30}
		next, status, err := PmScheduleStatus(s, refToday)
		require.NoError(t, err)
		assert.Equal(t, c.want, status, "offset %d", c.offset)
		assert.Equal(t, refToday.AddDate(0, 0, c.offset).Format(entity.DateLayout), next)
	}

	_, _, err = PmScheduleStatus(entity.MaintenanceSchedule{LastPmDate: "not-a-date"}, refToday)
	assert.Error(t, err)
}

func TestEnrichSchedules_Fixtures(t *testing.T) {
	snap := generator.Fixtures("2025-10-26", "2025-10-26")

	out, err := EnrichSchedules(&snap.Master, snap.Schedules, refToday)
	require.NoError(t, err)
	require.Len(t, out, 6)

	want := map[int]string{
		1: entity.PmOnSchedule, // 2025-11-09
		3: entity.PmOverdue,    // 2025-10-28
		5: entity.PmOnSchedule, // 2026-01-05
		6: entity.PmOnSchedule, // 2025-11-24
	}
	for _, s := range out {
		if status, ok := want[s.ID]; ok {
			assert.Equal(t, status, s.Status, "schedule %d", s.ID)
		}
	}
	assert.Equal(t, "M03", out[2].MachineCode)
	assert.Equal(t, "2025-10-28", out[2].NextPmDate)
}

func TestSparePartDetails(t *testing.T) {
	snap := generator.Fixtures("2025-10-26", "2025-10-26")

	details, err := SparePartDetails(snap, 2)
	require.NoError(t, err)
	require.Len(t, details.UsageHistory, 1)
	assert.Equal(t, entity.SparePartUsageHistory{OrderID: 3, MachineCode: "M01", CompletedAt: "2025-10-20", QtyUsed: 1}, details.UsageHistory[0])
	require.Len(t, details.PurchaseHistory, 1)
	assert.Equal(t, "PO202510B", details.PurchaseHistory[0].OrderNo)

	details, err = SparePartDetails(snap, 3)
	require.NoError(t, err)
	assert.Empty(t, details.UsageHistory)
	assert.Empty(t, details.PurchaseHistory)

	_, err = SparePartDetails(snap, 404)
	assert.ErrorIs(t, err, entity.ErrReferenceNotFound)
}
