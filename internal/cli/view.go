package cli

import (
	"github.com/spf13/cobra"

	"github.com/paiban/kebiao/pkg/output"
)

type viewOptions struct {
	teacher string
	class   string
	room    string
	day     int
}

func newViewCommand(g *globalOptions) *cobra.Command {
	opts := &viewOptions{}
	cmd := &cobra.Command{
		Use:   "view <output>",
		Short: "查看课表文档",
		Long: `按教师、教学班、教室或星期查看已生成的课表文档。
不指定视图时输出摘要；--day 从 0 开始计数。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := output.LoadDocument(args[0])
			if err != nil {
				return err
			}
			r := g.renderer(cmd.OutOrStdout())
			switch {
			case opts.teacher != "":
				return r.Entity(doc, output.ViewTeacher, opts.teacher)
			case opts.class != "":
				return r.Entity(doc, output.ViewClass, opts.class)
			case opts.room != "":
				return r.Entity(doc, output.ViewRoom, opts.room)
			case cmd.Flags().Changed("day"):
				return r.Day(doc, opts.day)
			}
			r.Summary(doc)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.teacher, "teacher", "", "教师ID")
	cmd.Flags().StringVar(&opts.class, "class", "", "教学班ID")
	cmd.Flags().StringVar(&opts.room, "room", "", "教室ID")
	cmd.Flags().IntVar(&opts.day, "day", 0, "星期 (0 起)")
	cmd.MarkFlagsMutuallyExclusive("teacher", "class", "room", "day")
	return cmd
}
