package main

import (
	"os"
	"time"

	"go.uber.org/zap"

	"gatekeep/internal/common"
	"gatekeep/internal/dispatch"
	"gatekeep/internal/gate"
	"gatekeep/internal/gate/env"
	"gatekeep/internal/server/dao"
	"gatekeep/internal/worker"
)

func main() {
	common.InitConf()
	common.InitLog()
	config := common.GetConfig()
	logger := common.GetLogger()
	defer logger.Sync()

	if err := dao.Init(); err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}

	cfg, err := gate.LoadConfig(config.GateConfig)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatal("gate config invalid", zap.Error(err))
		}
		logger.Info("no gate config file, using built-in gates",
			zap.String("path", config.GateConfig))
		cfg = gate.DefaultConfig()
	}

	timeout := time.Duration(cfg.JobTimeout)
	if timeout == 0 {
		timeout = config.JobTimeout
	}

	var provisioner gate.Provisioner
	switch config.Engine {
	case "local":
		provisioner = env.NewLocalProvisioner(config.Workdir)
	case "docker":
		provisioner, err = env.NewDockerProvisioner(config.DockerHost, config.Workdir, logger)
		if err != nil {
			logger.Fatal("docker init failed", zap.Error(err))
		}
	default:
		logger.Fatal("unknown gate engine", zap.String("engine", config.Engine))
	}

	runner := gate.NewRunner(provisioner, timeout, logger)
	dispatcher := dispatch.NewDispatcher(cfg.Jobs, runner, logger)

	w := worker.New(config, dispatcher, logger)
	logger.Info("gatekeep worker started",
		zap.Int("jobs", len(cfg.Jobs)),
		zap.Duration("job_timeout", timeout))
	if err := w.Run(); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
