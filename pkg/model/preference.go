package model

// ConstraintBase 约束偏好的公共字段
// Weight 为 0 表示硬约束，1-100 为软约束优先级
type ConstraintBase struct {
	Enabled     *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Weight      int    `json:"weight" yaml:"weight"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// IsEnabled 未显式关闭即视为启用
func (c ConstraintBase) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsHard 是否硬约束
func (c ConstraintBase) IsHard() bool {
	return c.Weight == 0
}

// Category 返回约束类别
func (c ConstraintBase) Category() ConstraintCategory {
	if c.IsHard() {
		return ConstraintHard
	}
	return ConstraintSoft
}

// TeacherMaxPeriods 教师每日/每周最大节数
type TeacherMaxPeriods struct {
	ConstraintBase `yaml:",inline"`
	TeacherID      string `json:"teacherId" yaml:"teacherId"`
	MaxPerDay      *int   `json:"maxPerDay,omitempty" yaml:"maxPerDay,omitempty"`
	MaxPerWeek     *int   `json:"maxPerWeek,omitempty" yaml:"maxPerWeek,omitempty"`
}

// RoomTypeRule 科目所需教室类型
type RoomTypeRule struct {
	ConstraintBase   `yaml:",inline"`
	SubjectID        string   `json:"subjectId" yaml:"subjectId"`
	RequiredRoomType RoomType `json:"requiredRoomType" yaml:"requiredRoomType"`
}

// AvailabilityRule 实体附加的可用时间
type AvailabilityRule struct {
	ConstraintBase `yaml:",inline"`
	EntityType     string         `json:"entityType" yaml:"entityType"` // teacher/class/room
	EntityID       string         `json:"entityId" yaml:"entityId"`
	Availability   []Availability `json:"availability" yaml:"availability"`
}

// ConsecutiveLessons 同一课程同日连续节数上限
type ConsecutiveLessons struct {
	ConstraintBase    `yaml:",inline"`
	LessonID          string `json:"lessonId" yaml:"lessonId"`
	PreferConsecutive *bool  `json:"preferConsecutive,omitempty" yaml:"preferConsecutive,omitempty"` // 仅为输入兼容保留
	MaxConsecutive    int    `json:"maxConsecutive" yaml:"maxConsecutive"`
}

// LessonSpread 同一课程实例间的最小间隔天数
type LessonSpread struct {
	ConstraintBase `yaml:",inline"`
	LessonID       string `json:"lessonId" yaml:"lessonId"`
	MinDaysBetween int    `json:"minDaysBetween" yaml:"minDaysBetween"`
}

// RoomCapacityRule 教学班所需的最小教室容量
type RoomCapacityRule struct {
	ConstraintBase `yaml:",inline"`
	ClassID        string `json:"classId" yaml:"classId"`
	MinCapacity    int    `json:"minCapacity" yaml:"minCapacity"`
}

// TeacherPreference 教师时段偏好
type TeacherPreference struct {
	ConstraintBase   `yaml:",inline"`
	TeacherID        string   `json:"teacherId" yaml:"teacherId"`
	PreferredPeriods []string `json:"preferredPeriods,omitempty" yaml:"preferredPeriods,omitempty"` // 仅为输入兼容保留，建模不读取
	AvoidedPeriods   []string `json:"avoidedPeriods,omitempty" yaml:"avoidedPeriods,omitempty"`
}

// ConstraintSet 附加约束偏好集合
type ConstraintSet struct {
	TeacherMaxPeriods  []TeacherMaxPeriods  `json:"teacherMaxPeriods,omitempty" yaml:"teacherMaxPeriods,omitempty"`
	RoomType           []RoomTypeRule       `json:"roomType,omitempty" yaml:"roomType,omitempty"`
	Availability       []AvailabilityRule   `json:"availability,omitempty" yaml:"availability,omitempty"`
	ConsecutiveLessons []ConsecutiveLessons `json:"consecutiveLessons,omitempty" yaml:"consecutiveLessons,omitempty"`
	LessonSpread       []LessonSpread       `json:"lessonSpread,omitempty" yaml:"lessonSpread,omitempty"`
	RoomCapacity       []RoomCapacityRule   `json:"roomCapacity,omitempty" yaml:"roomCapacity,omitempty"`
	TeacherPreference  []TeacherPreference  `json:"teacherPreference,omitempty" yaml:"teacherPreference,omitempty"`
}

// Count 返回约束偏好总数
func (cs *ConstraintSet) Count() int {
	return len(cs.TeacherMaxPeriods) + len(cs.RoomType) + len(cs.Availability) +
		len(cs.ConsecutiveLessons) + len(cs.LessonSpread) + len(cs.RoomCapacity) + len(cs.TeacherPreference)
}
