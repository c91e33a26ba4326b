package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/output"
	"github.com/paiban/kebiao/pkg/scheduler/solver"
)

func newValidateCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <input>",
		Short: "校验排课输入并做求解前检查",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			in, err := loadInput(args[0])
			if err != nil {
				return err
			}
			report := solver.New(cfg.Solver.Builder()).Check(in)
			printCheck(cmd, report)
			if !report.Feasible() {
				return fmt.Errorf("输入未通过检查")
			}
			return nil
		},
	}
}

func printCheck(cmd *cobra.Command, r *solver.CheckReport) {
	w := cmd.OutOrStdout()
	s := r.Summary
	fmt.Fprintf(w, "学校: %s %s\n", s.SchoolName, s.AcademicYear)
	fmt.Fprintf(w, "教师 %d  班级 %d  科目 %d  教室 %d  课程 %d\n", s.Teachers, s.Classes, s.Subjects, s.Rooms, s.Lessons)
	fmt.Fprintf(w, "可排节次 %d/%d  每周课时 %d  教室节次 %d\n", s.SchedulablePeriods, s.Periods, s.TotalLessonsPerWeek, s.TotalRoomSlots)

	if r.Validation.Errors != nil {
		for _, e := range r.Validation.Errors.Errors {
			fmt.Fprintf(w, "  错误 %s: %s\n", e.Field, e.Message)
		}
	}
	for _, warning := range r.Validation.Warnings {
		fmt.Fprintf(w, "  警告 %s\n", warning)
	}
	if r.Model != nil {
		fmt.Fprintf(w, "模型: %d 个变量, %d 条约束, %d 个惩罚项\n", r.Model.Variables, r.Model.Constraints, r.Model.Penalties)
	}
	if r.PreSolve != nil {
		for _, reason := range r.PreSolve.Reasons {
			fmt.Fprintf(w, "  不可行 [%s] %s %s: %s\n", reason.Kind, reason.EntityType, reason.EntityID, reason.Message)
		}
	}
	if r.Feasible() {
		fmt.Fprintln(w, "检查通过")
	}
}

func loadInput(path string) (*model.TimetableInput, error) {
	return output.LoadInput(path)
}
