package main

import (
	"fmt"
	"os"

	"github.com/portfolio/internal/config"
	"github.com/portfolio/internal/db"
	"github.com/portfolio/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configFile string

// rootCmd 作品集站点的命令入口
var rootCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Portfolio site with a sectioned content store",
	Long: `Portfolio serves a personal portfolio site backed by a per-section
document store, together with an admin panel for editing the content.

Available commands:
  serve   - Run the HTTP server
  user    - Manage admin accounts
  content - Export or import site content as YAML`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (environment variables take precedence)")

	userCmd.AddCommand(userCreateCmd)
	contentCmd.AddCommand(contentExportCmd)
	contentCmd.AddCommand(contentImportCmd)
	contentCmd.AddCommand(contentSeedCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(contentCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap 读取配置、构造日志并打开数据库
func bootstrap() (config.AppConfig, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return cfg, nil, nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	gdb, err := db.Open(cfg.DatabasePath)
	if err != nil {
		_ = logger.Sync()
		return cfg, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, logger, gdb, nil
}
