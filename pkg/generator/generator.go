// Package generator 生成可复现的示例学校数据，用于演示与压力测试
package generator

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

// Size 学校规模
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// ParseSize 解析规模名称
func ParseSize(s string) (Size, error) {
	switch Size(strings.ToLower(s)) {
	case SizeSmall:
		return SizeSmall, nil
	case SizeMedium:
		return SizeMedium, nil
	case SizeLarge:
		return SizeLarge, nil
	}
	return "", errors.InvalidInput("size", fmt.Sprintf("必须为 small/medium/large，实际 %q", s))
}

// Config 生成参数
type Config struct {
	Seed int64

	NumTeachers        int
	NumClasses         int
	LessonsPerClass    int
	SpecialistSubjects int
	YearGroups         []int

	NumDays        int
	PeriodsPerDay  int
	DayStart       int
	PeriodMinutes  int
	BreakAfter     int
	BreakMinutes   int
	LunchAfter     int
	LunchMinutes   int
	MaxUnavailable int

	MinStudents int
	MaxStudents int
}

// DefaultConfig 返回中等规模的默认参数
func DefaultConfig() Config {
	return Config{
		Seed:               1,
		NumTeachers:        12,
		NumClasses:         4,
		LessonsPerClass:    18,
		SpecialistSubjects: 4,
		YearGroups:         []int{7, 8, 9, 10},
		NumDays:            5,
		PeriodsPerDay:      6,
		DayStart:           540,
		PeriodMinutes:      60,
		BreakAfter:         2,
		BreakMinutes:       20,
		LunchAfter:         4,
		LunchMinutes:       60,
		MaxUnavailable:     2,
		MinStudents:        20,
		MaxStudents:        30,
	}
}

// ConfigFor 返回指定规模的参数
// small 为 1 个教学班，medium 为 4 个，large 为 8 个
func ConfigFor(size Size, seed int64) Config {
	cfg := DefaultConfig()
	cfg.Seed = seed
	switch size {
	case SizeSmall:
		cfg.NumTeachers = 5
		cfg.NumClasses = 1
		cfg.LessonsPerClass = 15
		cfg.SpecialistSubjects = 2
		cfg.YearGroups = []int{7}
		cfg.MaxUnavailable = 1
	case SizeLarge:
		cfg.NumTeachers = 22
		cfg.NumClasses = 8
		cfg.SpecialistSubjects = 6
		cfg.YearGroups = []int{7, 8, 9, 10}
	}
	return cfg
}

// subjectTemplate 科目模板
type subjectTemplate struct {
	id, name, code, color, dept string
	perWeek                     int
	room                        model.RoomType
}

var coreSubjects = []subjectTemplate{
	{"eng", "English", "ENG", "#3B82F6", "Languages", 5, ""},
	{"mat", "Mathematics", "MAT", "#10B981", "Mathematics", 5, ""},
	{"sci", "Science", "SCI", "#8B5CF6", "Sciences", 4, model.RoomScienceLab},
	{"his", "History", "HIS", "#F59E0B", "Humanities", 2, ""},
	{"geo", "Geography", "GEO", "#06B6D4", "Humanities", 2, ""},
}

var specialistSubjects = []subjectTemplate{
	{"pe", "Physical Education", "PE", "#EF4444", "Physical Education", 2, model.RoomGym},
	{"art", "Art", "ART", "#EC4899", "Creative Arts", 1, model.RoomArtRoom},
	{"mus", "Music", "MUS", "#A855F7", "Creative Arts", 1, model.RoomMusicRoom},
	{"cmp", "Computing", "CMP", "#6366F1", "Technology", 1, model.RoomComputerLab},
	{"fre", "French", "FRE", "#14B8A6", "Languages", 2, ""},
	{"dra", "Drama", "DRA", "#F97316", "Creative Arts", 1, ""},
	{"rel", "Religious Studies", "RS", "#84CC16", "Humanities", 1, ""},
}

var (
	firstNames = []string{"James", "Sarah", "David", "Emily", "Michael", "Laura", "Daniel", "Grace",
		"Thomas", "Hannah", "Samuel", "Chloe", "Peter", "Lucy", "Nathan", "Zoe"}
	lastNames = []string{"Smith", "Brown", "Wilson", "Taylor", "Clark", "Walker", "Young", "Hill",
		"Green", "Baker", "Carter", "Evans", "Turner", "Cooper", "Reed", "Morgan"}
	unavailableReasons = []string{"Staff meeting", "Professional development", "Part-time schedule", "Department meeting"}
)

var roomPrefixes = map[model.RoomType]string{
	model.RoomScienceLab:  "lab",
	model.RoomGym:         "gym",
	model.RoomArtRoom:     "art",
	model.RoomMusicRoom:   "mus",
	model.RoomComputerLab: "cmp",
}

var roomEquipment = map[model.RoomType][]string{
	model.RoomScienceLab:  {"fume_hood", "microscopes"},
	model.RoomComputerLab: {"computers", "projector"},
	model.RoomGym:         {"mats", "balls"},
	model.RoomArtRoom:     {"easels", "sinks"},
	model.RoomMusicRoom:   {"piano", "audio_equipment"},
}

// Generator 示例学校生成器，同一参数总是生成相同数据
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New 创建生成器
func New(cfg Config) *Generator {
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Generate 按规模与种子生成示例学校
func Generate(size Size, seed int64) *model.TimetableInput {
	return New(ConfigFor(size, seed)).Generate()
}

// Generate 生成完整的排课输入
func (g *Generator) Generate() *model.TimetableInput {
	cfg := g.cfg
	subjects, templates := g.subjects()
	periods := g.periods()
	teachers := g.teachers(subjects)
	classes := g.classes()
	lessons := g.lessons(teachers, classes, templates, periods)
	rooms := g.rooms(classes, lessons, templates)

	return &model.TimetableInput{
		Config: model.SchoolConfig{
			SchoolName:            fmt.Sprintf("Sample School %d", cfg.Seed),
			AcademicYear:          "2024-2025",
			NumDays:               cfg.NumDays,
			DefaultLessonDuration: cfg.PeriodMinutes,
			DayStartMinutes:       cfg.DayStart,
			DayEndMinutes:         g.dayEnd(),
		},
		Teachers: teachers,
		Classes:  classes,
		Subjects: subjects,
		Rooms:    rooms,
		Lessons:  lessons,
		Periods:  periods,
	}
}

func (g *Generator) subjects() ([]model.Subject, map[string]subjectTemplate) {
	chosen := append([]subjectTemplate{}, coreSubjects...)
	n := g.cfg.SpecialistSubjects
	if n > len(specialistSubjects) {
		n = len(specialistSubjects)
	}
	for _, i := range g.rng.Perm(len(specialistSubjects))[:n] {
		chosen = append(chosen, specialistSubjects[i])
	}

	out := make([]model.Subject, 0, len(chosen))
	templates := make(map[string]subjectTemplate, len(chosen))
	for _, s := range chosen {
		out = append(out, model.Subject{
			ID:                     s.id,
			Name:                   s.name,
			Code:                   s.code,
			Color:                  s.color,
			Department:             s.dept,
			RequiresSpecialistRoom: s.room != "",
			RequiredRoomType:       s.room,
		})
		templates[s.id] = s
	}
	return out, templates
}

// periods 每天按节次排列，课间与午休作为不可排节次插入
func (g *Generator) periods() []model.Period {
	cfg := g.cfg
	var out []model.Period
	for d := 0; d < cfg.NumDays; d++ {
		at := cfg.DayStart
		short := model.DayName(d)[:3]
		for p := 1; p <= cfg.PeriodsPerDay; p++ {
			out = append(out, model.Period{
				ID:           fmt.Sprintf("d%dp%d", d, p),
				Name:         fmt.Sprintf("%s P%d", short, p),
				Day:          d,
				StartMinutes: at,
				EndMinutes:   at + cfg.PeriodMinutes,
			})
			at += cfg.PeriodMinutes
			if p == cfg.BreakAfter && cfg.BreakMinutes > 0 {
				out = append(out, model.Period{
					ID: fmt.Sprintf("d%dbreak", d), Name: short + " Break", Day: d,
					StartMinutes: at, EndMinutes: at + cfg.BreakMinutes, IsBreak: true,
				})
				at += cfg.BreakMinutes
			}
			if p == cfg.LunchAfter && cfg.LunchMinutes > 0 {
				out = append(out, model.Period{
					ID: fmt.Sprintf("d%dlunch", d), Name: short + " Lunch", Day: d,
					StartMinutes: at, EndMinutes: at + cfg.LunchMinutes, IsLunch: true,
				})
				at += cfg.LunchMinutes
			}
		}
	}
	return out
}

func (g *Generator) dayEnd() int {
	cfg := g.cfg
	end := cfg.DayStart + cfg.PeriodsPerDay*cfg.PeriodMinutes
	if cfg.BreakAfter > 0 && cfg.BreakAfter <= cfg.PeriodsPerDay {
		end += cfg.BreakMinutes
	}
	if cfg.LunchAfter > 0 && cfg.LunchAfter <= cfg.PeriodsPerDay {
		end += cfg.LunchMinutes
	}
	return end
}

// periodStart 第 p 节（从 1 开始）的开始时间
func (g *Generator) periodStart(p int) int {
	cfg := g.cfg
	at := cfg.DayStart + (p-1)*cfg.PeriodMinutes
	if p > cfg.BreakAfter {
		at += cfg.BreakMinutes
	}
	if p > cfg.LunchAfter {
		at += cfg.LunchMinutes
	}
	return at
}

// teachers 先轮流覆盖每个科目，再随机补充同系科目
func (g *Generator) teachers(subjects []model.Subject) []model.Teacher {
	cfg := g.cfg
	used := make(map[string]bool)
	out := make([]model.Teacher, 0, cfg.NumTeachers)

	for i := 0; i < cfg.NumTeachers; i++ {
		var first, last string
		for {
			first = firstNames[g.rng.Intn(len(firstNames))]
			last = lastNames[g.rng.Intn(len(lastNames))]
			if !used[first+last] || len(used) >= len(firstNames)*len(lastNames) {
				break
			}
		}
		used[first+last] = true

		primary := subjects[i%len(subjects)]
		teaches := []string{primary.ID}
		for _, s := range subjects {
			if s.ID != primary.ID && s.Department == primary.Department && g.rng.Intn(2) == 0 {
				teaches = append(teaches, s.ID)
			}
		}

		perDay := 4 + g.rng.Intn(3)
		perWeek := perDay*cfg.NumDays - g.rng.Intn(4)
		id := fmt.Sprintf("t%d", i+1)
		out = append(out, model.Teacher{
			ID:                id,
			Name:              first + " " + last,
			Code:              fmt.Sprintf("%c%s%d", first[0], strings.ToUpper(last[:1]), i+1),
			Email:             strings.ToLower(fmt.Sprintf("%s.%s%d@school.example", first, last, i+1)),
			Subjects:          teaches,
			Availability:      g.unavailability(),
			MaxPeriodsPerDay:  intPtr(perDay),
			MaxPeriodsPerWeek: intPtr(perWeek),
		})
	}
	return out
}

func (g *Generator) unavailability() []model.Availability {
	cfg := g.cfg
	if cfg.MaxUnavailable <= 0 {
		return nil
	}
	n := g.rng.Intn(cfg.MaxUnavailable + 1)
	out := make([]model.Availability, 0, n)
	for i := 0; i < n; i++ {
		day := g.rng.Intn(cfg.NumDays)
		p := 1 + g.rng.Intn(cfg.PeriodsPerDay)
		start := g.periodStart(p)
		out = append(out, model.Unavailable(day, start, start+cfg.PeriodMinutes, unavailableReasons[g.rng.Intn(len(unavailableReasons))]))
	}
	return out
}

func (g *Generator) classes() []model.Class {
	cfg := g.cfg
	groups := cfg.YearGroups
	if len(groups) == 0 {
		groups = []int{7}
	}
	out := make([]model.Class, 0, cfg.NumClasses)
	for i := 0; i < cfg.NumClasses; i++ {
		year := groups[i%len(groups)]
		set := 'A' + rune(i/len(groups))
		students := cfg.MinStudents
		if cfg.MaxStudents > cfg.MinStudents {
			students += g.rng.Intn(cfg.MaxStudents - cfg.MinStudents + 1)
		}
		out = append(out, model.Class{
			ID:           fmt.Sprintf("%d%c", year, set+('a'-'A')),
			Name:         fmt.Sprintf("Year %d%c", year, set),
			YearGroup:    intPtr(year),
			StudentCount: intPtr(students),
		})
	}
	return out
}

// lessons 为每个教学班按科目顺序分配课程，选择剩余容量内负荷最低的教师
// 教师容量取每周上限与可用节次的较小值
func (g *Generator) lessons(teachers []model.Teacher, classes []model.Class, templates map[string]subjectTemplate, periods []model.Period) []model.Lesson {
	cfg := g.cfg
	capacity := make(map[string]int, len(teachers))
	bySubject := make(map[string][]*model.Teacher)
	for i := range teachers {
		t := &teachers[i]
		free := 0
		for j := range periods {
			p := &periods[j]
			if p.Schedulable() && !model.BlocksInterval(t.Availability, p.Day, p.StartMinutes, p.EndMinutes) {
				free++
			}
		}
		capacity[t.ID] = minInt(free, *t.MaxPeriodsPerWeek)
		for _, sid := range t.Subjects {
			bySubject[sid] = append(bySubject[sid], t)
		}
	}

	order := make([]string, 0, len(templates))
	for _, s := range coreSubjects {
		if _, ok := templates[s.id]; ok {
			order = append(order, s.id)
		}
	}
	for _, s := range specialistSubjects {
		if _, ok := templates[s.id]; ok {
			order = append(order, s.id)
		}
	}

	load := make(map[string]int, len(teachers))
	var out []model.Lesson
	for _, c := range classes {
		total := 0
		for _, sid := range order {
			if total >= cfg.LessonsPerClass {
				break
			}
			tmpl := templates[sid]
			perWeek := minInt(tmpl.perWeek, cfg.LessonsPerClass-total)

			var pick *model.Teacher
			for _, t := range bySubject[sid] {
				if load[t.ID]+perWeek > capacity[t.ID] {
					continue
				}
				if pick == nil || load[t.ID] < load[pick.ID] {
					pick = t
				}
			}
			if pick == nil {
				continue
			}

			l := model.Lesson{
				ID:              fmt.Sprintf("l%d", len(out)+1),
				TeacherID:       pick.ID,
				ClassID:         c.ID,
				SubjectID:       sid,
				DurationMinutes: cfg.PeriodMinutes,
				LessonsPerWeek:  perWeek,
			}
			if tmpl.room != "" {
				l.RoomRequirement = &model.RoomRequirement{RoomType: tmpl.room}
			}
			out = append(out, l)
			load[pick.ID] += perWeek
			total += perWeek
		}
	}
	return out
}

// rooms 每个教学班一间普通教室外加一间备用；专用教室按需求量配置，单间占用不超过六成节次
func (g *Generator) rooms(classes []model.Class, lessons []model.Lesson, templates map[string]subjectTemplate) []model.Room {
	cfg := g.cfg
	maxStudents := cfg.MaxStudents
	for _, c := range classes {
		if c.StudentCount != nil && *c.StudentCount > maxStudents {
			maxStudents = *c.StudentCount
		}
	}

	var out []model.Room
	for i := 0; i <= len(classes); i++ {
		floor := i/4 + 1
		num := floor*100 + i%4 + 1
		out = append(out, model.Room{
			ID:       fmt.Sprintf("r%d", num),
			Name:     fmt.Sprintf("Room %d", num),
			Type:     model.RoomClassroom,
			Capacity: intPtr(maxStudents + g.rng.Intn(6)),
			Building: "Main Building",
			Floor:    intPtr(floor),
		})
	}

	demand := make(map[model.RoomType]int)
	for _, l := range lessons {
		if rt := templates[l.SubjectID].room; rt != "" {
			demand[rt] += l.LessonsPerWeek
		}
	}
	for _, s := range templates {
		if s.room != "" {
			if _, ok := demand[s.room]; !ok {
				demand[s.room] = 0
			}
		}
	}
	types := make([]string, 0, len(demand))
	for rt := range demand {
		types = append(types, string(rt))
	}
	sort.Strings(types)

	limit := cfg.NumDays * cfg.PeriodsPerDay * 6 / 10
	for _, t := range types {
		rt := model.RoomType(t)
		n := 1
		if limit > 0 {
			n = 1 + demand[rt]/limit
		}
		for k := 1; k <= n; k++ {
			out = append(out, model.Room{
				ID:        fmt.Sprintf("%s%d", roomPrefixes[rt], k),
				Name:      fmt.Sprintf("%s %d", specialistName(rt), k),
				Type:      rt,
				Capacity:  intPtr(maxStudents + g.rng.Intn(4)),
				Building:  "Specialist Block",
				Floor:     intPtr(0),
				Equipment: roomEquipment[rt],
			})
		}
	}
	return out
}

func specialistName(rt model.RoomType) string {
	words := strings.Split(string(rt), "_")
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func intPtr(v int) *int { return &v }

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
