/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hdxloop/internal/config"
	"hdxloop/internal/control"
	"hdxloop/internal/ipc"
	hlog "hdxloop/internal/log"
	"hdxloop/internal/playback"
	"hdxloop/internal/statesync"
	"hdxloop/internal/web"
	"hdxloop/pkg/spec"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[FAIL] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	hlog.Init(cfg.LogLevel)
	logger := hlog.L()

	fmt.Printf("%s V.%d.%d\n", spec.ServerName, spec.VersionMajor, spec.VersionMinor)

	hub := statesync.NewHub(logger, 0)
	svc := playback.NewServices(cfg, nil, hub, logger)

	engine, err := playback.NewEngine(cfg, playback.SpeakerDevice{}, svc)
	if err != nil {
		return err
	}
	defer engine.Close()

	// one empty track so OPEN works straight away
	engine.AddTrack("")

	ctl := control.NewService(engine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ipcSrv := ipc.NewServer(ctl, hub, logger)
	go func() {
		if err := ipcSrv.Listen(cfg.SocketPath); err != nil {
			logger.Error("ipc stopped", "err", err)
			stop()
		}
	}()
	defer os.Remove(cfg.SocketPath)
	defer ipcSrv.Close()

	if cfg.HTTPAddr != "" {
		httpSrv := web.NewServer(ctl, hub, logger)
		go func() {
			if err := httpSrv.Listen(cfg.HTTPAddr); err != nil {
				logger.Error("http stopped", "err", err)
				stop()
			}
		}()
		defer httpSrv.Shutdown()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
