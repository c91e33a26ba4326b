package model

import "testing"

func TestCatalog_Lookups(t *testing.T) {
	in := sampleInput()
	c := NewCatalog(in)

	if c.Teacher("t1") == nil || c.Room("lab") == nil || c.Period("p3") == nil {
		t.Fatal("Expected lookups to resolve")
	}
	if c.Lesson("missing") != nil {
		t.Error("Expected nil for unknown lesson")
	}
	if got := c.TeacherLoad("t1"); got != 3 {
		t.Errorf("Expected load 3, got %d", got)
	}
	if got := len(c.ClassLessons("c1")); got != 2 {
		t.Errorf("Expected 2 class lessons, got %d", got)
	}
	if c.Config.NumDays != DefaultDays {
		t.Errorf("Expected default days %d, got %d", DefaultDays, c.Config.NumDays)
	}
}

func TestCatalog_DerivedRules(t *testing.T) {
	in := sampleInput()
	in.Teachers[0].MaxPeriodsPerWeek = intPtr(8)
	in.Teachers[0].MaxPeriodsPerDay = intPtr(4)
	in.Constraints = ConstraintSet{
		TeacherMaxPeriods: []TeacherMaxPeriods{
			{ConstraintBase: ConstraintBase{Weight: 0}, TeacherID: "t1", MaxPerWeek: intPtr(6), MaxPerDay: intPtr(3)},
			{ConstraintBase: ConstraintBase{Weight: 40}, TeacherID: "t1", MaxPerDay: intPtr(2), MaxPerWeek: intPtr(5)},
		},
		RoomType: []RoomTypeRule{
			{ConstraintBase: ConstraintBase{Weight: 0}, SubjectID: "math", RequiredRoomType: RoomClassroom},
		},
		RoomCapacity: []RoomCapacityRule{{ClassID: "c1", MinCapacity: 35}},
		LessonSpread: []LessonSpread{{LessonID: "l1", MinDaysBetween: 2}},
		Availability: []AvailabilityRule{
			{EntityType: "room", EntityID: "r1", Availability: []Availability{Unavailable(1, 540, 600, "维修")}},
		},
	}
	c := NewCatalog(in)

	if got := c.HardWeeklyCap("t1"); got != 6 {
		t.Errorf("Expected hard weekly cap 6, got %d", got)
	}
	if got := c.HardDailyCap("t1"); got != 3 {
		t.Errorf("Expected hard daily cap 3, got %d", got)
	}
	if got := c.SoftDailyTarget("t1"); got != 2 {
		t.Errorf("Expected soft daily target 2, got %d", got)
	}
	if got := c.SoftWeeklyTarget("t1"); got != 5 {
		t.Errorf("Expected soft weekly target 5, got %d", got)
	}
	if rt, ok := c.RequiredRoomType("math"); !ok || rt != RoomClassroom {
		t.Errorf("Expected classroom requirement, got %s %v", rt, ok)
	}
	if rt, ok := c.RequiredRoomType("sci"); !ok || rt != RoomScienceLab {
		t.Errorf("Expected science_lab requirement, got %s %v", rt, ok)
	}
	if got := c.MinCapacity(c.Lesson("l1")); got != 35 {
		t.Errorf("Expected min capacity 35, got %d", got)
	}
	if got := c.MinDaysBetween("l1"); got != 2 {
		t.Errorf("Expected 2 days between, got %d", got)
	}
	if got := c.MinDaysBetween("l2"); got != 1 {
		t.Errorf("Expected default 1, got %d", got)
	}
	if !BlocksInterval(c.RoomWindows("r1"), 1, 570, 630) {
		t.Error("Expected room r1 blocked on day 1")
	}
	if BlocksInterval(c.RoomWindows("r1"), 1, 600, 660) {
		t.Error("Expected room r1 free at 10:00 on day 1")
	}
}
