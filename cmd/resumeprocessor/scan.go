package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"job-board-go/internal/logger"
	"job-board-go/internal/processor"
)

func newScanCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "列出上传目录中的简历文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			files, err := processor.NewDirectoryScanner(cfg.Upload.Root, logger.Component("scanner")).ScanResumes(dir)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSUBDIR\tSIZE")
			for _, f := range files {
				fmt.Fprintf(w, "%s\t%s\t%d\n", f.Name, f.SubdirName(), f.Size)
			}
			fmt.Fprintf(w, "共 %d 个文件\n", len(files))
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "只列出该招聘者子目录")
	return cmd
}
