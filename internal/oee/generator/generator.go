package generator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
)

// ErrInvalidRange 起始日期晚于结束日期
var ErrInvalidRange = errors.New("start date after end date")

// 停用设备每班仍有记录的概率
const inactiveRunChance = 0.1

var downtimeReasons = []string{
	entity.ReasonSetup,
	entity.ReasonMechanical,
	entity.ReasonElectrical,
	entity.ReasonWaiting,
}

var severities = []string{entity.SeverityLow, entity.SeverityMedium, entity.SeverityHigh}

// Batch 一次生成的记录
type Batch struct {
	Production []entity.ProductionRecord
	Downtime   []entity.DowntimeRecord
	Defects    []entity.DefectRecord
}

// Generator 模拟生产数据生成器，随机源由调用方注入
type Generator struct {
	rng *rand.Rand
}

// New 创建生成器；rng 为 nil 时按当前时间播种
func New(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// between 闭区间均匀整数
func (g *Generator) between(min, max int) int {
	return min + g.rng.Intn(max-min+1)
}

// Generate 为 [start, end] 内每天 × 每台设备 × 每班生成记录
func (g *Generator) Generate(master *entity.MasterData, start, end string) (*Batch, error) {
	from, err := time.Parse(entity.DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("解析开始日期失败: %w", err)
	}
	to, err := time.Parse(entity.DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("解析结束日期失败: %w", err)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start, end)
	}
	if len(master.DefectTypes) == 0 || len(master.DefectCauses) == 0 {
		return nil, fmt.Errorf("缺少缺陷类型或原因主数据")
	}

	batch := &Batch{}
	var reporterID int
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := d.Format(entity.DateLayout)
		for _, machine := range master.Machines {
			for _, shift := range master.Shifts {
				if machine.Status == entity.MachineInactive && g.rng.Float64() > inactiveRunChance {
					continue
				}

				rec := g.production(machine, shift, day)
				rec.ID = len(batch.Production) + 1
				batch.Production = append(batch.Production, rec)

				if rec.DowntimeMin > 0 {
					startAt := shift.StartTime()
					batch.Downtime = append(batch.Downtime, entity.DowntimeRecord{
						ID:          len(batch.Downtime) + 1,
						Day:         day,
						MachineCode: machine.Code,
						Reason:      downtimeReasons[g.rng.Intn(len(downtimeReasons))],
						Minutes:     rec.DowntimeMin,
						StartTime:   startAt,
						EndTime:     addMinutes(startAt, rec.DowntimeMin),
					})
				}

				if rec.DefectQty > 0 {
					if reporterID == 0 {
						reporter, err := master.FirstUserWithRole(entity.RoleOperator)
						if err != nil {
							return nil, err
						}
						reporterID = reporter.ID
					}
					causeID := master.DefectCauses[g.rng.Intn(len(master.DefectCauses))].ID
					batch.Defects = append(batch.Defects, entity.DefectRecord{
						ID:           len(batch.Defects) + 1,
						WorkDate:     day,
						MachineID:    machine.ID,
						ShiftID:      shift.ID,
						DefectTypeID: master.DefectTypes[g.rng.Intn(len(master.DefectTypes))].ID,
						CauseID:      &causeID,
						Quantity:     rec.DefectQty,
						Note:         fmt.Sprintf("Found %d defects", rec.DefectQty),
						Severity:     severities[g.rng.Intn(len(severities))],
						Status:       entity.DefectClosed,
						IsAbnormal:   g.rng.Float64() > 0.5,
						ReporterID:   reporterID,
						ImageURLs:    []string{},
						Generated:    true,
					})
				}
			}
		}
	}
	return batch, nil
}

// production 单条记录：运行 400–480 分钟，产出为理论产能的 80–100%，缺陷不超过 5%
func (g *Generator) production(machine entity.Machine, shift entity.Shift, day string) entity.ProductionRecord {
	runTime := g.between(400, entity.ShiftMinutes)
	downtime := entity.ShiftMinutes - runTime

	var total int
	if machine.IdealCycleTime > 0 {
		total = int(math.Round(float64(runTime) / machine.IdealCycleTime * (0.8 + g.rng.Float64()*0.2)))
	}
	defects := int(math.Round(float64(total) * g.rng.Float64() * 0.05))
	actual := total - defects

	availability := float64(runTime) / entity.ShiftMinutes
	performance := math.Min(1, float64(actual)*machine.IdealCycleTime/float64(runTime))
	var quality float64
	if total > 0 {
		quality = float64(actual) / float64(total)
	}

	return entity.ProductionRecord{
		Day:            day,
		LineID:         machine.LineID,
		MachineCode:    machine.Code,
		ItemCode:       fmt.Sprintf("ITEM-%d", 100+machine.ID),
		ActualQty:      actual,
		DefectQty:      defects,
		RunTimeMin:     runTime,
		DowntimeMin:    downtime,
		IdealCycleTime: machine.IdealCycleTime,
		ShiftID:        shift.ID,
		Shift:          shift.Code,
		Availability:   availability,
		Performance:    performance,
		Quality:        quality,
		OEE:            availability * performance * quality,
	}
}

// addMinutes HH:MM 加分钟，跨天取模
func addMinutes(hhmm string, minutes int) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format("15:04")
}
