package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/agent"
	"github.com/vaibhav0806/prophit-sub001/internal/discovery"
	"github.com/vaibhav0806/prophit-sub001/internal/storage"
	"github.com/vaibhav0806/prophit-sub001/pkg/config"
	"github.com/vaibhav0806/prophit-sub001/pkg/healthprobe"
	"github.com/vaibhav0806/prophit-sub001/pkg/httpserver"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
	"github.com/vaibhav0806/prophit-sub001/pkg/wallet"
	"github.com/vaibhav0806/prophit-sub001/pkg/websocket"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	hub           *websocket.Hub
	discovery     *discovery.Service
	agent         *agent.Agent
	tracker       *wallet.Tracker
	venues        []venueBootstrap
	archive       storage.Storage
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	DryRun bool // Force simulated order flow regardless of environment
}

// venueBootstrap is the startup surface of one venue client: the
// allowance pass that must land before its orders can settle.
type venueBootstrap interface {
	Protocol() types.Protocol
	EnsureApprovals(ctx context.Context) error
}
