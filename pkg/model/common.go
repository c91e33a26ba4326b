// Package model 定义排课系统的核心数据模型
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// 时间常量
const (
	MinutesPerDay         = 1440
	MaxDays               = 7
	DefaultDays           = 5
	DefaultLessonDuration = 60
	DefaultDayStart       = 540 // 09:00
	DefaultDayEnd         = 960 // 16:00
)

// DayNames 星期名称（0=周一）
var DayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayName 返回星期名称
func DayName(day int) string {
	if day < 0 || day >= len(DayNames) {
		return fmt.Sprintf("Day %d", day)
	}
	return DayNames[day]
}

// MinutesToTime 将分钟数转换为 HH:MM
func MinutesToTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// TimeToMinutes 将 HH:MM 转换为分钟数
func TimeToMinutes(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("时间格式无效: %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("小时无效: %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("分钟无效: %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("时间越界: %q", s)
	}
	return h*60 + m, nil
}

// RoomType 教室类型
type RoomType string

const (
	RoomClassroom   RoomType = "classroom"
	RoomScienceLab  RoomType = "science_lab"
	RoomComputerLab RoomType = "computer_lab"
	RoomGym         RoomType = "gym"
	RoomSportsHall  RoomType = "sports_hall"
	RoomArtRoom     RoomType = "art_room"
	RoomMusicRoom   RoomType = "music_room"
	RoomWorkshop    RoomType = "workshop"
	RoomLibrary     RoomType = "library"
	RoomAuditorium  RoomType = "auditorium"
	RoomOther       RoomType = "other"
)

var validRoomTypes = map[RoomType]bool{
	RoomClassroom: true, RoomScienceLab: true, RoomComputerLab: true, RoomGym: true,
	RoomSportsHall: true, RoomArtRoom: true, RoomMusicRoom: true, RoomWorkshop: true,
	RoomLibrary: true, RoomAuditorium: true, RoomOther: true,
}

// IsValid 检查教室类型是否合法
func (t RoomType) IsValid() bool {
	return validRoomTypes[t]
}

// ConstraintCategory 约束类别
type ConstraintCategory string

const (
	ConstraintHard ConstraintCategory = "hard" // 硬约束（必须满足）
	ConstraintSoft ConstraintCategory = "soft" // 软约束（尽量满足）
)

// Availability 可用时间窗口
type Availability struct {
	Day          int    `json:"day" yaml:"day"`
	StartMinutes int    `json:"startMinutes" yaml:"startMinutes"`
	EndMinutes   int    `json:"endMinutes" yaml:"endMinutes"`
	Available    *bool  `json:"available,omitempty" yaml:"available,omitempty"`
	Reason       string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// IsAvailable 未显式设置时视为可用
func (a Availability) IsAvailable() bool {
	return a.Available == nil || *a.Available
}

// Overlaps 检查窗口是否与同一天的 [start, end) 区间相交
func (a Availability) Overlaps(day, start, end int) bool {
	return a.Day == day && a.StartMinutes < end && start < a.EndMinutes
}

// BlocksInterval 检查是否有不可用窗口覆盖（全部或部分）给定区间
func BlocksInterval(windows []Availability, day, start, end int) bool {
	for _, w := range windows {
		if !w.IsAvailable() && w.Overlaps(day, start, end) {
			return true
		}
	}
	return false
}

// Unavailable 构造不可用窗口
func Unavailable(day, start, end int, reason string) Availability {
	f := false
	return Availability{Day: day, StartMinutes: start, EndMinutes: end, Available: &f, Reason: reason}
}
