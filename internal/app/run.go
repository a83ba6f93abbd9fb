package app

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("execution-mode", a.cfg.ExecutionMode),
		zap.Bool("dry-run", a.cfg.DryRun),
		zap.Int64("min-spread-bps", a.cfg.MinSpreadBps),
		zap.String("log-level", a.cfg.LogLevel))

	// Start all components
	err := a.startComponents()
	if err != nil {
		return err
	}

	// Discovery flips its own readiness bit once the first snapshot
	// lands; the agent is ready as soon as its loop is up.
	a.healthChecker.SetReady("agent", true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.Port),
		zap.Duration("scan-interval", a.cfg.ScanInterval))

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	// Start discovery service
	a.wg.Add(1)
	go a.runDiscovery()

	a.wg.Add(1)
	go a.watchDiscoveryReady()

	// Grant venue allowances before the first order
	err := a.ensureApprovals()
	if err != nil {
		return fmt.Errorf("ensure approvals: %w", err)
	}

	// Start wallet balance tracker
	a.wg.Add(1)
	go a.runTracker()

	// Start trading agent
	a.wg.Add(1)
	go a.runAgent()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runDiscovery() {
	defer a.wg.Done()
	err := a.discovery.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("discovery-service-error", zap.Error(err))
	}
}

// watchDiscoveryReady flips the discovery readiness bit once the first
// snapshot is published. Static maps publish at construction, so in
// that mode this returns on its first check.
func (a *App) watchDiscoveryReady() {
	defer a.wg.Done()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if a.discovery.Snapshot() != nil {
			a.healthChecker.SetReady("discovery", true)
			return
		}

		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ensureApprovals runs the one-time allowance pass against every venue.
// Vault mode trades from pooled contract funds, so the wallet itself
// never needs venue allowances there.
func (a *App) ensureApprovals() error {
	if a.cfg.ExecutionMode == "vault" {
		a.logger.Info("approvals-skipped-vault-mode")
		return nil
	}

	for _, v := range a.venues {
		err := v.EnsureApprovals(a.ctx)
		if err != nil {
			return fmt.Errorf("%s approvals: %w", v.Protocol(), err)
		}
	}

	return nil
}

func (a *App) runTracker() {
	defer a.wg.Done()
	err := a.tracker.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("wallet-tracker-error", zap.Error(err))
	}
}

func (a *App) runAgent() {
	defer a.wg.Done()
	err := a.agent.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("agent-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
