package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/paiban/kebiao/pkg/model"
)

// GapMetrics 教师空档指标（分钟）
type GapMetrics struct {
	Score               float64            `json:"score"`
	AverageGapMinutes   float64            `json:"averageGapMinutes"`
	MaxGapMinutes       float64            `json:"maxGapMinutes"`
	TotalGapMinutes     float64            `json:"totalGapMinutes"`
	TeacherDaysAnalyzed int                `json:"teacherDaysAnalyzed"`
	GapsByTeacher       map[string]float64 `json:"gapsByTeacher"`
}

// DistributionMetrics 多课时课程在一周内的分散程度
type DistributionMetrics struct {
	Score                  float64  `json:"score"`
	WellDistributed        int      `json:"wellDistributed"`
	TotalMultiLesson       int      `json:"totalMultiLesson"`
	PercentWellDistributed float64  `json:"percentWellDistributed"`
	PoorlyDistributed      []string `json:"poorlyDistributed"`
}

// UtilizationMetrics 资源利用率（%）
type UtilizationMetrics struct {
	RoomUtilization    float64        `json:"roomUtilization"`
	TeacherUtilization float64        `json:"teacherUtilization"`
	SlotUtilization    float64        `json:"slotUtilization"`
	LessonsScheduled   int            `json:"lessonsScheduled"`
	RoomSlotsAvailable int            `json:"roomSlotsAvailable"`
	DailyLessons       map[int]int    `json:"dailyLessons"`
	RoomUsage          map[string]int `json:"roomUsage"`
}

type teacherDay struct {
	teacherID string
	day       int
}

// gapMetrics 每位教师每天：首课开始到末课结束的跨度减去授课时长
func (c *Calculator) gapMetrics(in *model.TimetableInput, assignments []model.Assignment) GapMetrics {
	m := GapMetrics{GapsByTeacher: make(map[string]float64)}

	groups := make(map[teacherDay][]*model.Assignment)
	for i := range assignments {
		a := &assignments[i]
		k := teacherDay{a.TeacherID, a.Day}
		groups[k] = append(groups[k], a)
	}

	for i := range in.Teachers {
		id := in.Teachers[i].ID
		if _, done := m.GapsByTeacher[id]; done {
			continue
		}
		var teacherTotal float64
		teacherDays := 0
		for _, day := range daysOf(groups, id) {
			as := groups[teacherDay{id, day}]
			if len(as) < 2 {
				continue
			}
			first, last, teaching := as[0].StartMinutes, as[0].EndMinutes, 0
			for _, a := range as {
				if a.StartMinutes < first {
					first = a.StartMinutes
				}
				if a.EndMinutes > last {
					last = a.EndMinutes
				}
				teaching += a.EndMinutes - a.StartMinutes
			}
			gap := math.Max(0, float64(last-first-teaching))

			m.TotalGapMinutes += gap
			m.MaxGapMinutes = math.Max(m.MaxGapMinutes, gap)
			m.TeacherDaysAnalyzed++
			teacherTotal += gap
			teacherDays++
		}
		if teacherDays > 0 {
			m.GapsByTeacher[id] = round2(teacherTotal / float64(teacherDays))
		}
	}

	if m.TeacherDaysAnalyzed > 0 {
		m.AverageGapMinutes = round2(m.TotalGapMinutes / float64(m.TeacherDaysAnalyzed))
	}
	m.Score = round2(math.Max(0, 100-m.AverageGapMinutes/60*100))
	return m
}

func daysOf(groups map[teacherDay][]*model.Assignment, teacherID string) []int {
	var days []int
	for k := range groups {
		if k.teacherID == teacherID {
			days = append(days, k.day)
		}
	}
	sort.Ints(days)
	return days
}

// distributionMetrics 实例全部落在不同日期的课程视为分散良好
func (c *Calculator) distributionMetrics(in *model.TimetableInput, assignments []model.Assignment) DistributionMetrics {
	m := DistributionMetrics{PoorlyDistributed: make([]string, 0)}

	byLesson := make(map[string][]int)
	var order []string
	for _, a := range assignments {
		if _, ok := byLesson[a.LessonID]; !ok {
			order = append(order, a.LessonID)
		}
		byLesson[a.LessonID] = append(byLesson[a.LessonID], a.Day)
	}
	subjects := make(map[string]string, len(in.Lessons))
	for _, l := range in.Lessons {
		subjects[l.ID] = l.SubjectID
	}

	for _, id := range order {
		days := byLesson[id]
		if len(days) < 2 {
			continue
		}
		m.TotalMultiLesson++
		distinct := make(map[int]bool)
		for _, d := range days {
			distinct[d] = true
		}
		if len(distinct) == len(days) {
			m.WellDistributed++
			continue
		}
		m.PoorlyDistributed = append(m.PoorlyDistributed,
			fmt.Sprintf("%s (%s): %d 节分布在 %d 天", subjects[id], id, len(days), len(distinct)))
	}

	m.PercentWellDistributed = 100
	if m.TotalMultiLesson > 0 {
		m.PercentWellDistributed = round2(float64(m.WellDistributed) / float64(m.TotalMultiLesson) * 100)
	}
	m.Score = m.PercentWellDistributed
	return m
}

// utilizationMetrics 以可排课节次为分母
func utilizationMetrics(in *model.TimetableInput, assignments []model.Assignment) UtilizationMetrics {
	periods := len(in.SchedulablePeriods())
	m := UtilizationMetrics{
		LessonsScheduled:   len(assignments),
		RoomSlotsAvailable: len(in.Rooms) * periods,
		DailyLessons:       make(map[int]int),
		RoomUsage:          make(map[string]int),
	}

	type dayStart struct{ day, start int }
	used := make(map[dayStart]bool)
	for _, a := range assignments {
		used[dayStart{a.Day, a.StartMinutes}] = true
		m.DailyLessons[a.Day]++
		m.RoomUsage[a.RoomID]++
	}

	if m.RoomSlotsAvailable > 0 {
		m.RoomUtilization = round2(float64(len(assignments)) / float64(m.RoomSlotsAvailable) * 100)
	}
	if teacherSlots := len(in.Teachers) * periods; teacherSlots > 0 {
		m.TeacherUtilization = round2(float64(len(assignments)) / float64(teacherSlots) * 100)
	}
	if periods > 0 {
		m.SlotUtilization = round2(float64(len(used)) / float64(periods) * 100)
	}
	return m
}
