package main

import (
	"fmt"
	"os"

	"github.com/EndPointCorp/kmlsync/internal/kmlsync"
	"github.com/EndPointCorp/kmlsync/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to kmlsync TOML config (defaults plus KMLSYNC_* env when empty)")
	pflag.Parse()

	logging.ConfigureRuntime()
	gin.SetMode(gin.ReleaseMode)

	cfg, err := loadServiceConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kmlsyncctl: %v\n", err)
		os.Exit(1)
	}
	svc := kmlsync.NewService(cfg)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "kmlsyncctl: %v\n", err)
		os.Exit(1)
	}
}
