package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"job-board-go/internal/logger"
	"job-board-go/internal/processor"
)

func newMatchCmd() *cobra.Command {
	var (
		jd       string
		jdFile   string
		dir      string
		minScore int
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "用岗位描述对上传目录中的简历做一次同步批量匹配，输出JSON报告",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if jdFile != "" {
				data, err := os.ReadFile(jdFile)
				if err != nil {
					return fmt.Errorf("读取岗位描述失败: %w", err)
				}
				jd = string(data)
			}
			if strings.TrimSpace(jd) == "" {
				return fmt.Errorf("需要 --jd 或 --jd-file")
			}
			if !cmd.Flags().Changed("min-score") {
				minScore = cfg.Matcher.DefaultMinScore
			}

			ctx := cmd.Context()
			extractor, err := processor.BuildTextExtractor(ctx, cfg)
			if err != nil {
				return err
			}
			evaluator, err := processor.BuildEvaluator(ctx, cfg)
			if err != nil {
				return err
			}
			scanner := processor.NewDirectoryScanner(cfg.Upload.Root, logger.Component("scanner"))
			matcher := processor.BuildMatcher(cfg, scanner, extractor, evaluator)

			report, err := matcher.Match(ctx, processor.MatchRequest{
				JobDescription: jd,
				MinScore:       minScore,
				RecruiterDir:   dir,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&jd, "jd", "", "岗位描述文本")
	cmd.Flags().StringVar(&jdFile, "jd-file", "", "从文件读取岗位描述")
	cmd.Flags().StringVar(&dir, "dir", "", "只匹配该招聘者子目录，默认全部")
	cmd.Flags().IntVar(&minScore, "min-score", 0, "入选的最低分数 (0-100)")
	return cmd
}
