// Package decoder 将求解取值还原为排课记录，并对结果做一致性复核
package decoder

import (
	"sort"

	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/builder"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
)

// Decoded 解码结果
type Decoded struct {
	Assignments []model.Assignment
	// Evaluation 按排课记录重新评估的约束结果
	Evaluation *constraint.Result
	// ObjectiveScores 求解取值下按键汇总的目标项
	ObjectiveScores map[string]int64
}

// Decode 还原取值为真的决策变量
// 无解时返回空结果；任何与模型承诺不符的情况都以 INTERNAL_CONSISTENCY 错误返回
func Decode(res *builder.SolveResult) (*Decoded, error) {
	if res == nil || !res.HasSolution() {
		return &Decoded{}, nil
	}
	built := res.Built
	if len(res.Values) != built.Model.NumVars()+1 {
		return nil, errors.InternalConsistency("取值长度 %d 与变量数 %d 不符", len(res.Values)-1, built.Model.NumVars())
	}

	var assignments []model.Assignment
	counts := make(map[model.Occurrence]int)
	for _, v := range built.Vars.Vars() {
		if !v.Lit.Value(res.Values) {
			continue
		}
		counts[v.Occurrence()]++
		assignments = append(assignments, model.Assignment{
			LessonID:     v.Lesson.ID,
			Instance:     v.Key.Instance,
			Day:          v.Slot.Day,
			PeriodID:     v.Slot.Period.ID,
			StartMinutes: v.Slot.Start(),
			EndMinutes:   v.Slot.End(),
			RoomID:       v.Room.ID,
			TeacherID:    v.Lesson.TeacherID,
			ClassID:      v.Lesson.ClassID,
			SubjectID:    v.Lesson.SubjectID,
		})
	}

	for _, occ := range built.Vars.Occurrences() {
		switch n := counts[occ]; {
		case n == 0:
			return nil, errors.InternalConsistency("课程实例 %s 未被安排", occ)
		case n > 1:
			return nil, errors.InternalConsistency("课程实例 %s 被安排了 %d 次", occ, n)
		}
	}
	SortAssignments(assignments)

	ectx := constraint.NewEvalContext(built.Catalog, built.Slots, assignments)
	eval := built.Manager.Evaluate(ectx)
	if !eval.IsValid {
		v := eval.HardViolations[0]
		return nil, errors.InternalConsistency("解码结果违反硬约束 %s: %s", v.Type, v.Message).
			WithField("violations", eval.HardViolations)
	}

	scores := built.Model.ObjectiveByKey(res.Values)
	if err := crossCheck(scores, eval.Scores); err != nil {
		return nil, err
	}
	if total := built.Model.Objective(res.Values); total != eval.TotalPenalty {
		return nil, errors.InternalConsistency("目标值 %d 与重新评估的惩罚 %d 不符", total, eval.TotalPenalty)
	}

	return &Decoded{Assignments: assignments, Evaluation: eval, ObjectiveScores: scores}, nil
}

// crossCheck 模型目标项与重新评估结果须逐键一致
func crossCheck(objective, evaluated map[string]int64) error {
	keys := make(map[string]bool)
	for k := range objective {
		keys[k] = true
	}
	for k := range evaluated {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		if objective[k] != evaluated[k] {
			return errors.InternalConsistency("惩罚项 %s 不一致: 模型 %d, 重新评估 %d", k, objective[k], evaluated[k]).
				WithField("key", k)
		}
	}
	return nil
}

// SortAssignments 按天、开始时间、教学班、课程、实例排序
func SortAssignments(as []model.Assignment) {
	sort.SliceStable(as, func(i, j int) bool {
		a, b := as[i], as[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.StartMinutes != b.StartMinutes {
			return a.StartMinutes < b.StartMinutes
		}
		if a.ClassID != b.ClassID {
			return a.ClassID < b.ClassID
		}
		if a.LessonID != b.LessonID {
			return a.LessonID < b.LessonID
		}
		return a.Instance < b.Instance
	})
}
