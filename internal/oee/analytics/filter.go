package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
)

// ErrInvalidQuery 查询参数非法
var ErrInvalidQuery = errors.New("invalid dashboard query")

// scope 过滤后的数据集合
type scope struct {
	start, end time.Time
	query      entity.DashboardQuery

	lines      []string
	machines   []entity.Machine
	machineSet map[string]bool
	production []entity.ProductionRecord
	validOEE   []entity.ProductionRecord
	downtime   []entity.DowntimeRecord
	allDefects []entity.EnrichedDefectRecord
	defects    []entity.EnrichedDefectRecord
	allReports []entity.EnrichedErrorReport
	allOrders  []entity.EnrichedMaintenanceOrder
}

// ValidateQuery 校验并规范化查询参数
func ValidateQuery(master *entity.MasterData, q entity.DashboardQuery) (entity.DashboardQuery, time.Time, time.Time, error) {
	q = q.Normalize()
	start, err := time.Parse(entity.DateLayout, q.StartDate)
	if err != nil {
		return q, time.Time{}, time.Time{}, fmt.Errorf("%w: start_date %q", ErrInvalidQuery, q.StartDate)
	}
	end, err := time.Parse(entity.DateLayout, q.EndDate)
	if err != nil {
		return q, time.Time{}, time.Time{}, fmt.Errorf("%w: end_date %q", ErrInvalidQuery, q.EndDate)
	}
	if start.After(end) {
		return q, time.Time{}, time.Time{}, fmt.Errorf("%w: start_date after end_date", ErrInvalidQuery)
	}
	switch q.Shift {
	case entity.FilterAll, "A", "B", "C":
	default:
		return q, time.Time{}, time.Time{}, fmt.Errorf("%w: shift %q", ErrInvalidQuery, q.Shift)
	}
	switch q.Status {
	case entity.FilterAll, entity.MachineActive, entity.MachineInactive:
	default:
		return q, time.Time{}, time.Time{}, fmt.Errorf("%w: status %q", ErrInvalidQuery, q.Status)
	}
	if q.Area != entity.FilterAll && len(master.LinesInArea(q.Area)) == 0 {
		return q, time.Time{}, time.Time{}, fmt.Errorf("%w: unknown area %q", ErrInvalidQuery, q.Area)
	}
	return q, start, end, nil
}

func newScope(snap *entity.Snapshot, q entity.DashboardQuery) (*scope, error) {
	master := &snap.Master
	q, start, end, err := ValidateQuery(master, q)
	if err != nil {
		return nil, err
	}
	s := &scope{
		start:      start,
		end:        end,
		query:      q,
		machineSet: make(map[string]bool),
	}

	if q.Area == entity.FilterAll {
		s.lines = master.Lines()
	} else {
		s.lines = master.LinesInArea(q.Area)
	}
	lineSet := make(map[string]bool, len(s.lines))
	for _, l := range s.lines {
		lineSet[l] = true
	}

	s.machines = make([]entity.Machine, 0)
	for _, m := range master.Machines {
		if lineSet[m.LineID] && (q.Status == entity.FilterAll || m.Status == q.Status) {
			s.machines = append(s.machines, m)
			s.machineSet[m.Code] = true
		}
	}

	s.production = make([]entity.ProductionRecord, 0)
	s.validOEE = make([]entity.ProductionRecord, 0)
	for _, p := range snap.Production {
		if s.inRange(p.Day) && s.machineSet[p.MachineCode] && s.shiftMatch(p.Shift) {
			s.production = append(s.production, p)
			if p.ValidOEE() {
				s.validOEE = append(s.validOEE, p)
			}
		}
	}

	s.downtime = make([]entity.DowntimeRecord, 0)
	for _, d := range snap.Downtime {
		if s.inRange(d.Day) && s.machineSet[d.MachineCode] {
			s.downtime = append(s.downtime, d)
		}
	}

	s.allDefects = make([]entity.EnrichedDefectRecord, 0, len(snap.Defects))
	s.defects = make([]entity.EnrichedDefectRecord, 0)
	for _, d := range snap.Defects {
		ed, err := master.EnrichDefect(d)
		if err != nil {
			return nil, fmt.Errorf("defect record %d: %w", d.ID, err)
		}
		s.allDefects = append(s.allDefects, ed)
		if s.inRange(ed.WorkDate) && s.machineSet[ed.MachineCode] && s.shiftMatch(ed.ShiftCode) {
			s.defects = append(s.defects, ed)
		}
	}

	s.allReports = make([]entity.EnrichedErrorReport, 0, len(snap.ErrorReports))
	for _, r := range snap.ErrorReports {
		er, err := master.EnrichErrorReport(r, snap.ErrorImages, snap.ErrorHistory)
		if err != nil {
			return nil, fmt.Errorf("error report %d: %w", r.ID, err)
		}
		s.allReports = append(s.allReports, er)
	}

	s.allOrders = make([]entity.EnrichedMaintenanceOrder, 0, len(snap.MaintenanceOrders))
	for _, o := range snap.MaintenanceOrders {
		eo, err := master.EnrichMaintenanceOrder(o, snap.PartUsages)
		if err != nil {
			return nil, fmt.Errorf("maintenance order %d: %w", o.ID, err)
		}
		s.allOrders = append(s.allOrders, eo)
	}
	return s, nil
}

// inRange 日期为 YYYY-MM-DD，字符串比较即日期比较
func (s *scope) inRange(day string) bool {
	return day >= s.query.StartDate && day <= s.query.EndDate
}

func (s *scope) shiftMatch(code string) bool {
	return s.query.Shift == entity.FilterAll || s.query.Shift == code
}
