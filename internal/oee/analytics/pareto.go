package analytics

import (
	"sort"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
)

// grouper 按名称累加，保留首次出现顺序
type grouper struct {
	keys   []string
	values map[string]float64
}

func newGrouper() *grouper {
	return &grouper{values: make(map[string]float64)}
}

func (g *grouper) add(name string, v float64) {
	if _, ok := g.values[name]; !ok {
		g.keys = append(g.keys, name)
	}
	g.values[name] += v
}

func (g *grouper) points() []entity.DataPoint {
	out := make([]entity.DataPoint, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, entity.DataPoint{Name: k, Value: g.values[k]})
	}
	return out
}

// Pareto 降序排列（相等时保持插入顺序）并附加累计百分比
func Pareto(points []entity.DataPoint) []entity.ParetoPoint {
	sorted := make([]entity.DataPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	var total float64
	for _, p := range sorted {
		total += p.Value
	}

	out := make([]entity.ParetoPoint, 0, len(sorted))
	var running float64
	for _, p := range sorted {
		running += p.Value
		cumulative := 0.0
		if total > 0 {
			cumulative = running / total * 100
		}
		out = append(out, entity.ParetoPoint{Name: p.Name, Value: p.Value, Cumulative: cumulative})
	}
	return out
}
