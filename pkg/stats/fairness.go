package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/constraint/builtin"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
)

// TeacherLoad 教师课时负荷
type TeacherLoad struct {
	TeacherID   string      `json:"teacherId"`
	TeacherName string      `json:"teacherName"`
	Weekly      int         `json:"weekly"`
	Daily       map[int]int `json:"daily"`
	MaxPerDay   int         `json:"maxPerDay,omitempty"`  // 硬上限，0 表示不限
	MaxPerWeek  int         `json:"maxPerWeek,omitempty"` // 硬上限，0 表示不限
	SoftDaily   int         `json:"softDaily,omitempty"`
	SoftWeekly  int         `json:"softWeekly,omitempty"`
	GapSlots    int         `json:"gapSlots"` // 首末课之间的空闲时段数
	StdDev      float64     `json:"stdDev"`
	OverDaily   bool        `json:"overDaily"`
	OverWeekly  bool        `json:"overWeekly"`
	Deviation   float64     `json:"deviation"` // 与平均周课时的偏差百分比
}

// BalanceMetrics 每日课时均衡指标
type BalanceMetrics struct {
	Score              float64            `json:"score"`
	AverageStdDev      float64            `json:"averageStdDev"`
	MaxStdDev          float64            `json:"maxStdDev"`
	WorkloadGini       float64            `json:"workloadGini"` // 周课时基尼系数 (0=完全均衡)
	TeacherBalance     map[string]float64 `json:"teacherBalance"`
	UnbalancedTeachers []string           `json:"unbalancedTeachers"`
}

// teacherLoads 按输入顺序统计每位教师的负荷
func teacherLoads(cat *model.Catalog, slots *slot.Index, ectx *constraint.EvalContext, assignments []model.Assignment) []TeacherLoad {
	days := slots.Days()
	loads := make([]TeacherLoad, 0, len(cat.Input.Teachers))

	for i := range cat.Input.Teachers {
		t := &cat.Input.Teachers[i]
		if cat.Teacher(t.ID) != t {
			continue
		}
		load := TeacherLoad{
			TeacherID:   t.ID,
			TeacherName: t.Name,
			Daily:       make(map[int]int, len(days)),
			MaxPerDay:   cat.HardDailyCap(t.ID),
			MaxPerWeek:  cat.HardWeeklyCap(t.ID),
			SoftDaily:   cat.SoftDailyTarget(t.ID),
			SoftWeekly:  cat.SoftWeeklyTarget(t.ID),
		}
		counts := make([]float64, len(days))
		for j, d := range days {
			n := ectx.DayCount(t.ID, d)
			load.Daily[d] = n
			load.Weekly += n
			counts[j] = float64(n)
			load.GapSlots += builtin.CountGaps(ectx, slot.KindTeacher, t.ID, d)
			if load.MaxPerDay > 0 && n > load.MaxPerDay {
				load.OverDaily = true
			}
		}
		load.OverWeekly = load.MaxPerWeek > 0 && load.Weekly > load.MaxPerWeek
		load.StdDev = round2(stdDev(counts))
		loads = append(loads, load)
	}

	weekly := make([]float64, len(loads))
	for i, l := range loads {
		weekly[i] = float64(l.Weekly)
	}
	avg := mean(weekly)
	if avg > 0 {
		for i := range loads {
			loads[i].Deviation = round2((weekly[i] - avg) / avg * 100)
		}
	}
	return loads
}

// balanceMetrics 只统计有课的教师
func (c *Calculator) balanceMetrics(loads []TeacherLoad) BalanceMetrics {
	m := BalanceMetrics{
		TeacherBalance:     make(map[string]float64),
		UnbalancedTeachers: make([]string, 0),
	}

	weekly := make([]float64, 0, len(loads))
	var devs []float64
	for _, l := range loads {
		weekly = append(weekly, float64(l.Weekly))
		if l.Weekly == 0 {
			continue
		}
		m.TeacherBalance[l.TeacherID] = l.StdDev
		devs = append(devs, l.StdDev)
		if l.StdDev > c.targets.DailyBalance {
			m.UnbalancedTeachers = append(m.UnbalancedTeachers, fmt.Sprintf("%s: 标准差 %.2f", displayName(l.TeacherName, l.TeacherID), l.StdDev))
		}
	}
	m.WorkloadGini = round2(gini(weekly))

	if len(devs) == 0 {
		m.Score = 100
		return m
	}
	m.AverageStdDev = round2(mean(devs))
	m.MaxStdDev, _ = valueRange(devs)
	m.MaxStdDev = round2(m.MaxStdDev)
	m.Score = round2(math.Max(0, 100-m.AverageStdDev/3*100))
	return m
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev 总体标准差
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := mean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

// valueRange 计算极值
func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
