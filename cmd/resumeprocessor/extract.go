package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"job-board-go/internal/processor"
)

func newExtractCmd() *cobra.Command {
	var (
		maxLen   int
		format   string
		saveFile string
	)
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "提取单个简历文件的纯文本（pdf/docx/doc/txt）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("无法获取文件的绝对路径: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			extractor, err := processor.BuildTextExtractor(ctx, cfg)
			if err != nil {
				return err
			}
			start := time.Now()
			text, err := extractor.ExtractFile(ctx, absPath)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			if saveFile != "" {
				if err := os.WriteFile(saveFile, []byte(text), 0644); err != nil {
					return fmt.Errorf("保存提取内容失败: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"file":      absPath,
					"chars":     utf8.RuneCountInString(text),
					"elapsedMs": elapsed.Milliseconds(),
					"text":      text,
				})
			}

			fmt.Fprintf(out, "===== %s (共 %d 字符，耗时 %v) =====\n", filepath.Base(absPath), utf8.RuneCountInString(text), elapsed)
			fmt.Fprintln(out, clip(text, maxLen))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxLen, "maxlen", 1000, "显示的文本最大字符数，-1 显示全部")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式: text 或 json")
	cmd.Flags().StringVar(&saveFile, "save", "", "把提取内容保存到文件")
	return cmd
}

// clip 截断到 n 个字符，n<0 不截断
func clip(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "\n...(已截断)"
}
