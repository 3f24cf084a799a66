package main

import (
	"github.com/spf13/cobra"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/pkg/logger"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "warbler",
		Short:         "Warbler micro-blogging server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

// bootstrap 加载配置并初始化日志，所有子命令共用
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}
