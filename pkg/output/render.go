package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/stats"
	"github.com/paiban/kebiao/pkg/validator"
)

// ViewKind 视图类别
type ViewKind string

const (
	ViewTeacher ViewKind = "teacher"
	ViewClass   ViewKind = "class"
	ViewRoom    ViewKind = "room"
)

type styles struct {
	header lipgloss.Style
	good   lipgloss.Style
	warn   lipgloss.Style
	bad    lipgloss.Style
	dim    lipgloss.Style
	time   lipgloss.Style
	cell   lipgloss.Style
}

// Renderer 终端渲染器
type Renderer struct {
	w        io.Writer
	colorize bool
	st       styles
}

// NewRenderer 创建终端渲染器
func NewRenderer(w io.Writer, colorize bool) *Renderer {
	r := &Renderer{w: w, colorize: colorize}
	if colorize {
		r.st = styles{
			header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
			good:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
			warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
			bad:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
			dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
			time:   lipgloss.NewStyle().Width(13),
			cell:   lipgloss.NewStyle().Width(16),
		}
	} else {
		plain := lipgloss.NewStyle()
		r.st = styles{
			header: plain, good: plain, warn: plain, bad: plain, dim: plain,
			time: lipgloss.NewStyle().Width(13),
			cell: lipgloss.NewStyle().Width(16),
		}
	}
	return r
}

func (r *Renderer) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.w, format, args...)
}

func (r *Renderer) statusStyle(status string) lipgloss.Style {
	switch status {
	case "optimal":
		return r.st.good
	case "feasible":
		return r.st.warn
	}
	return r.st.bad
}

// Summary 输出结果概要
func (r *Renderer) Summary(doc *Document) {
	r.printf("%s %s\n", r.st.header.Render("状态:"), r.statusStyle(doc.Status).Render(strings.ToUpper(doc.Status)))
	r.printf("求解耗时: %.2fs\n", doc.SolveTimeSeconds)
	if doc.RunID != "" {
		r.printf("%s\n", r.st.dim.Render("运行ID: "+doc.RunID))
	}
	r.printf("课时: %d / %d\n", len(doc.Timetable.Lessons), doc.Metadata.Occurrences)

	if doc.HasSolution() {
		hard := r.st.good.Render("满足")
		if !doc.Quality.HardConstraintsSatisfied {
			hard = r.st.bad.Render("违反")
		}
		r.printf("硬约束: %s\n", hard)
		r.printf("软约束惩罚: %d\n", doc.Quality.TotalPenalty)

		keys := make([]string, 0, len(doc.Quality.SoftConstraintScores))
		for k := range doc.Quality.SoftConstraintScores {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			si, sj := doc.Quality.SoftConstraintScores[keys[i]], doc.Quality.SoftConstraintScores[keys[j]]
			if si != sj {
				return si > sj
			}
			return keys[i] < keys[j]
		})
		if len(keys) > 10 {
			keys = keys[:10]
		}
		for _, k := range keys {
			r.printf("  %s %d\n", r.st.cell.Width(48).Render(k), doc.Quality.SoftConstraintScores[k])
		}
	}

	if doc.Diagnostics != nil && len(doc.Diagnostics.Reasons) > 0 {
		r.printf("\n%s\n", r.st.header.Render("不可行原因"))
		for _, reason := range doc.Diagnostics.Reasons {
			r.printf("  %s %s\n", r.st.bad.Render("✗ "+reason.Kind), reason.Message)
		}
	}
}

// Entity 输出单个教师、教学班或教室的周课表
func (r *Renderer) Entity(doc *Document, kind ViewKind, id string) error {
	var views map[string]EntitySchedule
	switch kind {
	case ViewTeacher:
		views = doc.Views.ByTeacher
	case ViewClass:
		views = doc.Views.ByClass
	case ViewRoom:
		views = doc.Views.ByRoom
	default:
		return errors.InvalidInput("view", fmt.Sprintf("未知视图 %q", kind))
	}
	es, ok := views[id]
	if !ok {
		return errors.NotFound(string(kind), id)
	}

	title := es.ID
	if es.Name != "" {
		title = fmt.Sprintf("%s (%s)", es.Name, es.ID)
	}
	r.printf("%s\n", r.st.header.Render(title))
	if len(es.Lessons) == 0 {
		r.printf("%s\n", r.st.dim.Render("  本周无课"))
		return nil
	}
	for _, day := range es.ByDay {
		r.printf("\n%s\n", r.st.header.Render(day.DayName))
		for _, e := range day.Lessons {
			r.row(e, kind)
		}
	}
	return nil
}

// Day 输出某天的全部课程
func (r *Renderer) Day(doc *Document, day int) error {
	for _, d := range doc.Views.ByDay {
		if d.Day != day {
			continue
		}
		r.printf("%s\n", r.st.header.Render(d.DayName))
		for _, e := range d.Lessons {
			r.row(e, "")
		}
		return nil
	}
	return errors.NotFound("day", fmt.Sprintf("%d", day))
}

// row 省略当前视图本身的实体列
func (r *Renderer) row(e LessonEntry, kind ViewKind) {
	cols := []string{r.st.time.Render(e.StartTime + "-" + e.EndTime), r.st.cell.Render(orID(e.SubjectName, e.SubjectID))}
	if kind != ViewClass {
		cols = append(cols, r.st.cell.Render(orID(e.ClassName, e.ClassID)))
	}
	if kind != ViewTeacher {
		cols = append(cols, r.st.cell.Render(orID(e.TeacherName, e.TeacherID)))
	}
	if kind != ViewRoom {
		cols = append(cols, r.st.dim.Render(orID(e.RoomName, e.RoomID)))
	}
	r.printf("  %s\n", strings.TrimRight(strings.Join(cols, " "), " "))
}

// Metrics 输出质量报告
func (r *Renderer) Metrics(report *stats.MetricsReport, targets stats.Targets) {
	gradeStyle := r.st.bad
	switch report.Grade {
	case "A", "B":
		gradeStyle = r.st.good
	case "C":
		gradeStyle = r.st.warn
	}
	r.printf("%s %.1f/100 %s\n", r.st.header.Render("综合评分:"), report.OverallScore, gradeStyle.Render("("+report.Grade+")"))
	hard := r.st.good.Render("满足")
	if !report.HardConstraintsSatisfied {
		hard = r.st.bad.Render("违反")
	}
	r.printf("硬约束: %s  软约束惩罚: %d\n", hard, report.SoftConstraintPenalty)
	r.printf("课时 %d  教师 %d  天数 %d\n", report.TotalLessons, report.TotalTeachers, report.TotalDays)

	r.section("教师空档")
	r.printf("  评分 %.2f  平均 %.1f 分钟  最大 %.0f 分钟  %s\n",
		report.Gaps.Score, report.Gaps.AverageGapMinutes, report.Gaps.MaxGapMinutes,
		r.verdict(report.Gaps.AverageGapMinutes <= targets.GapMinutes))

	r.section("课程分散")
	r.printf("  评分 %.2f  %d/%d 分散良好  %s\n",
		report.Distribution.Score, report.Distribution.WellDistributed, report.Distribution.TotalMultiLesson,
		r.verdict(report.Distribution.PercentWellDistributed >= targets.Distribution))
	for i, p := range report.Distribution.PoorlyDistributed {
		if i == 5 {
			break
		}
		r.printf("  %s\n", r.st.dim.Render("- "+p))
	}

	r.section("每日均衡")
	r.printf("  评分 %.2f  平均标准差 %.2f  最大 %.2f  基尼系数 %.2f  %s\n",
		report.Balance.Score, report.Balance.AverageStdDev, report.Balance.MaxStdDev, report.Balance.WorkloadGini,
		r.verdict(report.Balance.AverageStdDev <= targets.DailyBalance))

	r.section("利用率")
	r.printf("  教室 %.1f%%  教师 %.1f%%  时段 %.1f%%\n",
		report.Utilization.RoomUtilization, report.Utilization.TeacherUtilization, report.Utilization.SlotUtilization)

	r.section("教师负荷")
	for _, t := range report.Teachers {
		load := fmt.Sprintf("%d 节", t.Weekly)
		if t.OverWeekly || t.OverDaily {
			load = r.st.bad.Render(load)
		}
		r.printf("  %s %s  空档 %d  标准差 %.2f\n", r.st.cell.Render(orID(t.TeacherName, t.TeacherID)), load, t.GapSlots, t.StdDev)
	}

	if len(report.ImprovementAreas) > 0 {
		r.section("改进建议")
		for _, a := range report.ImprovementAreas {
			r.printf("  * %s\n", a)
		}
	}
}

// Conflicts 输出冲突列表
func (r *Renderer) Conflicts(conflicts []validator.Conflict) {
	if len(conflicts) == 0 {
		r.printf("%s\n", r.st.good.Bold(r.colorize).Render("✓ 无冲突"))
		return
	}
	for _, c := range conflicts {
		style := r.st.bad
		prefix := "✘"
		if c.Severity == validator.SeverityWarning {
			style, prefix = r.st.warn, "⚠"
		}
		r.printf("  %s %s\n", style.Render(prefix+" "+string(c.Type)), c.Message)
	}
	r.printf("\n%d 个冲突\n", len(conflicts))
}

func (r *Renderer) section(title string) {
	r.printf("\n%s\n", r.st.header.Render(title))
}

func (r *Renderer) verdict(ok bool) string {
	if ok {
		return r.st.good.Render("达标")
	}
	return r.st.warn.Render("待改进")
}

func orID(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
