package model

import (
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func sampleInput() *TimetableInput {
	return &TimetableInput{
		Teachers: []Teacher{
			{ID: "t1", Name: "张老师", Subjects: []string{"math"}},
			{ID: "t2", Name: "李老师", Subjects: []string{"sci"}},
		},
		Classes:  []Class{{ID: "c1", Name: "七年级1班", StudentCount: intPtr(30)}},
		Subjects: []Subject{{ID: "math", Name: "数学"}, {ID: "sci", Name: "科学", RequiresSpecialistRoom: true, RequiredRoomType: RoomScienceLab}},
		Rooms: []Room{
			{ID: "r1", Name: "101", Type: RoomClassroom, Capacity: intPtr(32)},
			{ID: "lab", Name: "实验室", Type: RoomScienceLab, Capacity: intPtr(30)},
		},
		Lessons: []Lesson{
			{ID: "l1", TeacherID: "t1", ClassID: "c1", SubjectID: "math", LessonsPerWeek: 3},
			{ID: "l2", TeacherID: "t2", ClassID: "c1", SubjectID: "sci", LessonsPerWeek: 2},
		},
		Periods: []Period{
			{ID: "p1", Name: "第1节", Day: 0, StartMinutes: 540, EndMinutes: 600},
			{ID: "p2", Name: "第2节", Day: 0, StartMinutes: 600, EndMinutes: 660},
			{ID: "brk", Name: "午休", Day: 0, StartMinutes: 660, EndMinutes: 720, IsLunch: true},
			{ID: "p3", Name: "第1节", Day: 1, StartMinutes: 540, EndMinutes: 600},
			{ID: "p4", Name: "第2节", Day: 1, StartMinutes: 600, EndMinutes: 660},
			{ID: "p5", Name: "第1节", Day: 2, StartMinutes: 540, EndMinutes: 600},
		},
	}
}

func hasField(report *ValidationReport, field string) bool {
	if report.Errors == nil {
		return false
	}
	for _, e := range report.Errors.Errors {
		if strings.HasPrefix(e.Field, field) {
			return true
		}
	}
	return false
}

func TestValidate_Valid(t *testing.T) {
	report := Validate(sampleInput())
	if !report.OK() {
		t.Fatalf("Expected valid input, got %v", report.Errors)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", report.Warnings)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *TimetableInput)
		field  string
	}{
		{
			name:   "节次时间倒置",
			mutate: func(in *TimetableInput) { in.Periods[0].EndMinutes = 500 },
			field:  "periods[0]",
		},
		{
			name:   "未知教师引用",
			mutate: func(in *TimetableInput) { in.Lessons[0].TeacherID = "ghost" },
			field:  "lesson.l1.teacherId",
		},
		{
			name: "固定时段为午休",
			mutate: func(in *TimetableInput) {
				in.Lessons[0].FixedSlots = []FixedSlot{{Day: 0, PeriodID: "brk"}}
			},
			field: "lesson.l1.fixedSlots",
		},
		{
			name: "固定时段多于课时",
			mutate: func(in *TimetableInput) {
				in.Lessons[1].FixedSlots = []FixedSlot{{Day: 0, PeriodID: "p1"}, {Day: 0, PeriodID: "p2"}, {Day: 1, PeriodID: "p3"}}
			},
			field: "lessons[1].fixedSlots",
		},
		{
			name:   "重复ID",
			mutate: func(in *TimetableInput) { in.Rooms[1].ID = "r1" },
			field:  "room",
		},
		{
			name: "同日窗口重叠",
			mutate: func(in *TimetableInput) {
				in.Teachers[0].Availability = []Availability{
					Unavailable(0, 540, 620, ""),
					Unavailable(0, 600, 660, ""),
				}
			},
			field: "teachers[0].availability",
		},
		{
			name:   "缺少专用教室",
			mutate: func(in *TimetableInput) { in.Rooms = in.Rooms[:1] },
			field:  "subject.sci",
		},
		{
			name:   "教师课时超过节次",
			mutate: func(in *TimetableInput) { in.Lessons[0].LessonsPerWeek = 9 },
			field:  "teacher.t1",
		},
		{
			name:   "专用教室未指定类型",
			mutate: func(in *TimetableInput) { in.Subjects[1].RequiredRoomType = "" },
			field:  "subjects[1].requiredRoomType",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleInput()
			tt.mutate(in)
			report := Validate(in)
			if report.OK() {
				t.Fatal("Expected validation errors")
			}
			if !hasField(report, tt.field) {
				t.Errorf("Expected error on %s, got %v", tt.field, report.Errors.Errors)
			}
		})
	}
}

func TestValidateLogic_Warnings(t *testing.T) {
	in := sampleInput()
	in.Teachers[0].MaxPeriodsPerWeek = intPtr(2)

	errs, warnings := ValidateLogic(in)
	if errs.HasErrors() {
		t.Fatalf("Expected no errors, got %v", errs)
	}
	if len(warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %v", warnings)
	}
	if !strings.Contains(warnings[0], "t1") {
		t.Errorf("Expected warning to cite t1, got %s", warnings[0])
	}
}

func TestTimeConversion(t *testing.T) {
	if got := MinutesToTime(545); got != "09:05" {
		t.Errorf("Expected 09:05, got %s", got)
	}
	m, err := TimeToMinutes("13:30")
	if err != nil || m != 810 {
		t.Errorf("Expected 810, got %d (%v)", m, err)
	}
	if _, err := TimeToMinutes("25:00"); err == nil {
		t.Error("Expected error for 25:00")
	}
	if DayName(4) != "Friday" {
		t.Errorf("Expected Friday, got %s", DayName(4))
	}
}
