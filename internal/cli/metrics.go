package cli

import (
	"github.com/spf13/cobra"

	"github.com/paiban/kebiao/pkg/output"
	"github.com/paiban/kebiao/pkg/scheduler/solver"
	"github.com/paiban/kebiao/pkg/stats"
)

func newMetricsCommand(g *globalOptions) *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "metrics <output>",
		Short: "评估课表文档的质量与冲突",
		Long: `对已生成的课表文档重新做冲突检测，并计算空闲时间、分布、均衡与利用率指标。
需要通过 --input 提供生成该课表的排课输入。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			doc, err := output.LoadDocument(args[0])
			if err != nil {
				return err
			}
			in, err := loadInput(inputPath)
			if err != nil {
				return err
			}

			p := solver.New(cfg.Solver.Builder())
			report, conflicts, err := p.Evaluate(in, doc)
			if err != nil {
				return err
			}
			r := g.renderer(cmd.OutOrStdout())
			r.Metrics(report, stats.DefaultTargets())
			r.Conflicts(conflicts)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "排课输入文件")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
