// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the entry point for the logtrail-agent binary:
//
//	logtrail-agent run --config /etc/logtrail-agent/conf.d
//	logtrail-agent validate --config /etc/logtrail-agent/conf.d
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/esteban-alvarez/logtrail-agent/internal/agent"
	"github.com/esteban-alvarez/logtrail-agent/internal/checkpoint"
	"github.com/esteban-alvarez/logtrail-agent/internal/config"
	"github.com/esteban-alvarez/logtrail-agent/internal/metrics"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir string
	var verbose bool

	root := &cobra.Command{
		Use:           "logtrail-agent",
		Short:         "Host-resident log tailing and shipping agent",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&configDir, "config", "c", "/etc/logtrail-agent/conf.d", "directory of pipeline config files (*.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRunCmd(&configDir, &verbose))
	root.AddCommand(newValidateCmd(&configDir))
	return root
}

func newRunCmd(configDir *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load every pipeline under --config and run until signaled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(*configDir, *verbose)
		},
	}
}

func newValidateCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse and structurally validate every pipeline under --config without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipelines, err := loadPipelines(*configDir)
			if err != nil {
				return err
			}
			fmt.Printf("%d pipeline(s) OK\n", len(pipelines))
			return nil
		},
	}
}

func loadPipelines(dir string) ([]*config.Pipeline, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	more, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	matches = append(matches, more...)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no pipeline configs found under %s", dir)
	}

	var out []*config.Pipeline
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		p, err := config.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

func runAgent(configDir string, verbose bool) error {
	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pipelines, err := loadPipelines(configDir)
	if err != nil {
		return err
	}

	vec := metrics.NewCounterVec()
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(vec)

	var agents []*agent.Agent
	var exporters []*metrics.PipelineExporter
	var metricsAddr string

	for _, p := range pipelines {
		if p.Global.MetricsAddr != "" {
			metricsAddr = p.Global.MetricsAddr
		}
		store, err := openStore(p, logger)
		if err != nil {
			return err
		}
		a, err := agent.New(p, store, logger)
		if err != nil {
			return fmt.Errorf("build agent: %w", err)
		}
		agents = append(agents, a)
		exporters = append(exporters, metrics.NewPipelineExporter(a.Registry(), vec, pipelineName(p), 15*time.Second))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, a := range agents {
		a.Start(ctx)
	}
	for _, e := range exporters {
		e.Start()
	}

	var srv *metrics.Server
	if metricsAddr != "" {
		srv = metrics.NewServer(metricsAddr, promReg, func() error { return nil })
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("logtrail-agent started", zap.Int("pipelines", len(agents)))
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, e := range exporters {
		e.Stop()
	}
	for _, a := range agents {
		a.Stop(shutdownCtx)
	}
	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}

func pipelineName(p *config.Pipeline) string {
	if len(p.Inputs) > 0 {
		return p.Inputs[0].Name
	}
	return "default"
}

func openStore(p *config.Pipeline, logger *zap.Logger) (checkpoint.Store, error) {
	if p.Global.CheckpointDir == "" {
		return checkpoint.NewMemStore(), nil
	}
	return checkpoint.NewFileStore(p.Global.CheckpointDir, logger)
}
