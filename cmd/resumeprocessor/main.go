package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"job-board-go/internal/config"
	"job-board-go/internal/logger"
)

var (
	configPath string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:   "resumeprocessor",
		Short: "简历文本提取与批量匹配的命令行工具",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := logger.Init(logger.Config{Level: logLevel, Format: "pretty"})
			return err
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "日志级别")

	root.AddCommand(newExtractCmd(), newScanCmd(), newMatchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	return cfg, nil
}
