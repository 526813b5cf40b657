package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/submerge/internal/merge"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Build one aggregate and write it out",
	Long:  "Runs the aggregate once with the same settings as the server and writes the document to stdout, or to --output.",
	RunE:  runMerge,
}

var (
	mergeURLs     string
	mergeTemplate string
	mergeName     string
	mergeType     string
	mergeServer   string
	mergeLimit    int
	mergeOutput   string
)

func init() {
	mergeCmd.Flags().StringVarP(&mergeURLs, "url", "u", "", "逗号分隔的订阅地址（默认 DEFAULT_URL）")
	mergeCmd.Flags().StringVarP(&mergeTemplate, "template", "t", "", "模板地址，builtin 表示内置模板")
	mergeCmd.Flags().StringVar(&mergeName, "name", "", "名称过滤正则")
	mergeCmd.Flags().StringVar(&mergeType, "type", "", "类型过滤正则")
	mergeCmd.Flags().StringVar(&mergeServer, "server", "", "服务器过滤：domain、ip 或正则")
	mergeCmd.Flags().IntVar(&mergeLimit, "limit", 0, "使用 DEFAULT_URL 时最多取前几个地址")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "输出文件（默认标准输出）")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	res, err := a.service.Run(cmd.Context(), merge.Request{
		URLs:     mergeURLs,
		Template: mergeTemplate,
		Name:     mergeName,
		Type:     mergeType,
		Server:   mergeServer,
		Limit:    mergeLimit,
		NoCache:  true,
	})
	if err != nil {
		return err
	}

	if mergeOutput == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), res.Output)
		return err
	}
	if dir := filepath.Dir(mergeOutput); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(mergeOutput, []byte(res.Output), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", mergeOutput, err)
	}
	logger.Info("aggregate written", "path", mergeOutput, "nodes", res.Summary.Stats.PostFilter)
	return nil
}
