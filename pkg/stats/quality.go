// Package stats 提供课表质量统计分析功能
package stats

import (
	"fmt"
	"math"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/slot"
)

// Targets 质量目标阈值
type Targets struct {
	GapMinutes   float64 `json:"gapMinutes" yaml:"gapMinutes"`     // 平均空档上限（分钟）
	Distribution float64 `json:"distribution" yaml:"distribution"` // 分散比例下限（%）
	DailyBalance float64 `json:"dailyBalance" yaml:"dailyBalance"` // 每日课时标准差上限
	Utilization  float64 `json:"utilization" yaml:"utilization"`   // 时段利用率下限（%）
}

// DefaultTargets 返回默认目标
func DefaultTargets() Targets {
	return Targets{
		GapMinutes:   30,
		Distribution: 80,
		DailyBalance: 1.5,
		Utilization:  70,
	}
}

// MetricsReport 课表质量报告
type MetricsReport struct {
	OverallScore             float64 `json:"overallScore"`
	Grade                    string  `json:"grade"`
	HardConstraintsSatisfied bool    `json:"hardConstraintsSatisfied"`
	SoftConstraintPenalty    int64   `json:"softConstraintPenalty"`

	TotalLessons  int `json:"totalLessons"`
	TotalTeachers int `json:"totalTeachers"`
	TotalDays     int `json:"totalDays"`

	Gaps         GapMetrics          `json:"gaps"`
	Distribution DistributionMetrics `json:"distribution"`
	Balance      BalanceMetrics      `json:"balance"`
	Utilization  UtilizationMetrics  `json:"utilization"`
	Teachers     []TeacherLoad       `json:"teachers"`

	ImprovementAreas []string `json:"improvementAreas"`
}

// Calculator 质量指标计算器
type Calculator struct {
	targets Targets
}

// NewCalculator 创建计算器；零值目标取默认值
func NewCalculator(targets *Targets) *Calculator {
	t := DefaultTargets()
	if targets != nil {
		if targets.GapMinutes > 0 {
			t.GapMinutes = targets.GapMinutes
		}
		if targets.Distribution > 0 {
			t.Distribution = targets.Distribution
		}
		if targets.DailyBalance > 0 {
			t.DailyBalance = targets.DailyBalance
		}
		if targets.Utilization > 0 {
			t.Utilization = targets.Utilization
		}
	}
	return &Calculator{targets: t}
}

// Targets 当前使用的目标阈值
func (c *Calculator) Targets() Targets { return c.targets }

// Calculate 基于排课记录计算全部质量指标
// hardSatisfied 与 penalty 来自求解后的约束评估
func (c *Calculator) Calculate(in *model.TimetableInput, assignments []model.Assignment, hardSatisfied bool, penalty int64) *MetricsReport {
	cat := model.NewCatalog(in)
	slots := slot.New(cat)
	ectx := constraint.NewEvalContext(cat, slots, assignments)

	gaps := c.gapMetrics(in, assignments)
	dist := c.distributionMetrics(in, assignments)
	loads := teacherLoads(cat, slots, ectx, assignments)
	balance := c.balanceMetrics(loads)
	util := utilizationMetrics(in, assignments)

	days := make(map[int]bool)
	teachers := make(map[string]bool)
	for _, a := range assignments {
		days[a.Day] = true
		teachers[a.TeacherID] = true
	}

	overall := overallScore(gaps, dist, balance, util)
	return &MetricsReport{
		OverallScore:             overall,
		Grade:                    Grade(overall),
		HardConstraintsSatisfied: hardSatisfied,
		SoftConstraintPenalty:    penalty,
		TotalLessons:             len(assignments),
		TotalTeachers:            len(teachers),
		TotalDays:                len(days),
		Gaps:                     gaps,
		Distribution:             dist,
		Balance:                  balance,
		Utilization:              util,
		Teachers:                 loads,
		ImprovementAreas:         c.improvements(gaps, dist, balance, util),
	}
}

// overallScore 加权综合评分
func overallScore(gap GapMetrics, dist DistributionMetrics, balance BalanceMetrics, util UtilizationMetrics) float64 {
	const (
		gapWeight          = 0.25
		distributionWeight = 0.30
		balanceWeight      = 0.25
		utilizationWeight  = 0.20
	)
	score := gapWeight*gap.Score +
		distributionWeight*dist.Score +
		balanceWeight*balance.Score +
		utilizationWeight*math.Min(100, util.SlotUtilization)
	return math.Round(score*10) / 10
}

// Grade 将分数转换为等级
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func (c *Calculator) improvements(gap GapMetrics, dist DistributionMetrics, balance BalanceMetrics, util UtilizationMetrics) []string {
	out := make([]string, 0)
	if gap.AverageGapMinutes > c.targets.GapMinutes {
		out = append(out, fmt.Sprintf("减少教师空档：平均空档 %.0f 分钟，目标 %.0f 分钟", gap.AverageGapMinutes, c.targets.GapMinutes))
	}
	if dist.PercentWellDistributed < c.targets.Distribution {
		out = append(out, fmt.Sprintf("改善课程分散：分散比例 %.0f%%，目标 %.0f%%", dist.PercentWellDistributed, c.targets.Distribution))
	}
	if balance.AverageStdDev > c.targets.DailyBalance {
		out = append(out, fmt.Sprintf("均衡每日课时：标准差 %.2f，目标 %.1f", balance.AverageStdDev, c.targets.DailyBalance))
	}
	if util.SlotUtilization < c.targets.Utilization {
		out = append(out, fmt.Sprintf("提高时段利用率：%.0f%%，目标 %.0f%%", util.SlotUtilization, c.targets.Utilization))
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
