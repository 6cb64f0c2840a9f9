package analytics

import (
	"sort"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
)

const trendDays = 7

// trailingDays 截止 end（含）的 n 天，升序
func trailingDays(end time.Time, n int) []string {
	days := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, end.AddDate(0, 0, -i).Format(entity.DateLayout))
	}
	return days
}

// SevenDayTrend 七日 OEE/A/P/Q 平均值，无记录的日期为 null
func SevenDayTrend(end time.Time, records []entity.ProductionRecord) []entity.OeeTrendPoint {
	out := make([]entity.OeeTrendPoint, 0, trendDays)
	for _, day := range trailingDays(end, trendDays) {
		point := entity.OeeTrendPoint{Date: day}
		var n int
		var oee, a, p, q float64
		for _, r := range records {
			if r.Day != day {
				continue
			}
			n++
			oee += r.OEE
			a += r.Availability
			p += r.Performance
			q += r.Quality
		}
		if n > 0 {
			cnt := float64(n)
			point.Oee = floatPtr(oee / cnt)
			point.Availability = floatPtr(a / cnt)
			point.Performance = floatPtr(p / cnt)
			point.Quality = floatPtr(q / cnt)
		}
		out = append(out, point)
	}
	return out
}

type dayTotals struct {
	defects    int
	production int
}

// DefectTrends 每日缺陷数与缺陷率，仅含有数据的日期，升序
func DefectTrends(records []entity.ProductionRecord) ([]entity.DefectCountPoint, []entity.DefectRatePoint) {
	byDay := make(map[string]*dayTotals)
	days := make([]string, 0)
	for _, r := range records {
		t, ok := byDay[r.Day]
		if !ok {
			t = &dayTotals{}
			byDay[r.Day] = t
			days = append(days, r.Day)
		}
		t.defects += r.DefectQty
		t.production += r.ActualQty
	}
	sort.Strings(days)

	counts := make([]entity.DefectCountPoint, 0, len(days))
	rates := make([]entity.DefectRatePoint, 0, len(days))
	for _, day := range days {
		t := byDay[day]
		counts = append(counts, entity.DefectCountPoint{Date: day, TotalDefects: t.defects})
		rates = append(rates, entity.DefectRatePoint{Date: day, DefectRate: ratio(t.defects, t.production+t.defects)})
	}
	return counts, rates
}

// DowntimeTrend 每日停机分钟，仅含有数据的日期，升序
func DowntimeTrend(records []entity.DowntimeRecord) []entity.DowntimeTrendPoint {
	byDay := make(map[string]int)
	days := make([]string, 0)
	for _, d := range records {
		if _, ok := byDay[d.Day]; !ok {
			days = append(days, d.Day)
		}
		byDay[d.Day] += d.Minutes
	}
	sort.Strings(days)

	out := make([]entity.DowntimeTrendPoint, 0, len(days))
	for _, day := range days {
		out = append(out, entity.DowntimeTrendPoint{Date: day, Downtime: byDay[day]})
	}
	return out
}

func floatPtr(v float64) *float64 {
	return &v
}

func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}
