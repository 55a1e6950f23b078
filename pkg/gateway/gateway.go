// Package gateway wires the autoreply service together: config, Redis,
// OAuth handshake routes, provider adapters, and the poll/reply pipeline.
package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apiv1 "github.com/coldreach/autoreply/pkg/api/v1"
	"github.com/coldreach/autoreply/pkg/common"
	"github.com/coldreach/autoreply/pkg/generator"
	"github.com/coldreach/autoreply/pkg/oauth"
	"github.com/coldreach/autoreply/pkg/providers"
	"github.com/coldreach/autoreply/pkg/repository"
	"github.com/coldreach/autoreply/pkg/scheduler"
	"github.com/coldreach/autoreply/pkg/types"
)

type Gateway struct {
	Config      types.AppConfig
	RedisClient *common.RedisClient
	httpServer  *http.Server
	echo        *echo.Echo
	ctx         context.Context
	cancelFunc  context.CancelFunc

	// startTime is the message-eligibility horizon; messages received at
	// or before it are never processed. Not persisted: a restart moves it.
	startTime time.Time

	tokenStore       repository.TokenStore
	ledger           repository.DedupLedger
	queues           map[types.ProviderName]repository.JobQueue
	providerRegistry *providers.Registry
	oauthRegistry    *oauth.Registry
	oauthStates      *oauth.StateStore
	replyGenerator   generator.Generator

	scheduler *scheduler.Scheduler
	worker    *scheduler.Worker
}

func NewGateway() (*Gateway, error) {
	configManager, err := common.NewConfigManager[types.AppConfig]()
	if err != nil {
		return nil, err
	}
	config := configManager.GetConfig()

	// Setup logging
	if config.DebugMode {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}
	if config.PrettyLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	redisClient, err := common.NewRedisClient(config.Database.Redis, common.WithClientName("AutoreplyGateway"))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	gateway := &Gateway{
		Config:      config,
		RedisClient: redisClient,
		ctx:         ctx,
		cancelFunc:  cancel,
		startTime:   time.Now(),
	}

	gateway.initStores()
	gateway.initProviders()
	gateway.initOAuth()
	gateway.initMailer()

	return gateway, nil
}

func (g *Gateway) initStores() {
	g.tokenStore = repository.NewMemoryTokenStore()
	g.ledger = repository.NewRedisDedupLedger(g.RedisClient)
	g.queues = map[types.ProviderName]repository.JobQueue{
		types.ProviderGmail:   repository.NewRedisJobQueue(g.RedisClient, types.ProviderGmail),
		types.ProviderOutlook: repository.NewRedisJobQueue(g.RedisClient, types.ProviderOutlook),
	}
}

func (g *Gateway) initProviders() {
	g.providerRegistry = providers.NewRegistry()
	g.providerRegistry.Register(providers.NewGmailProvider(g.Config.Mailer.GmailAddress, g.Config.Mailer.FetchLimit))
	g.providerRegistry.Register(providers.NewOutlookProvider(g.Config.Mailer.OutlookAddress, g.Config.Mailer.FetchLimit))
}

func (g *Gateway) initOAuth() {
	g.oauthRegistry = oauth.NewRegistry()
	g.oauthRegistry.Register(oauth.NewGoogleClient(g.Config.OAuth.Google))
	g.oauthRegistry.Register(oauth.NewMicrosoftClient(g.Config.OAuth.Microsoft))
	g.oauthStates = oauth.NewStateStore(0)

	if len(g.oauthRegistry.List()) == 0 {
		log.Warn().Msg("no OAuth providers configured, accounts cannot be linked")
	}
}

func (g *Gateway) initMailer() {
	openaiGen := generator.NewOpenAIGenerator(g.Config.Generator)
	if openaiGen.IsConfigured() {
		g.replyGenerator = openaiGen
	} else {
		log.Warn().Msg("no generator API key configured, using canned replies")
		g.replyGenerator = generator.StaticGenerator{}
	}

	g.scheduler = scheduler.NewScheduler(g.tokenStore, g.providerRegistry, g.queues, g.startTime, g.Config.Mailer.PollInterval)
	g.worker = scheduler.NewWorker(g.tokenStore, g.providerRegistry, g.queues, g.ledger, g.replyGenerator, g.RedisClient, g.startTime)
}

func (g *Gateway) initHTTP() error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())

	g.echo = e
	g.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", g.Config.Gateway.Host, g.Config.Gateway.Port),
		Handler: e,
	}

	baseGroup := e.Group(apiv1.HttpServerBaseRoute)
	authGroup := e.Group(apiv1.HttpServerAuthRoute)

	apiv1.NewHealthGroup(baseGroup.Group("/health"), g.RedisClient, g.startTime)
	apiv1.NewStatusGroup(baseGroup.Group("/status"), g.tokenStore, g.ledger, g.queues)
	apiv1.NewOAuthGroup(authGroup, g.oauthRegistry, g.oauthStates, g.tokenStore)

	return nil
}

// StartAsync brings up the HTTP server and the poll/reply pipeline
func (g *Gateway) StartAsync() error {
	if err := g.initHTTP(); err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	go func() {
		lis, err := net.Listen("tcp", g.httpServer.Addr)
		if err != nil {
			log.Error().Err(err).Msg("failed to listen on http")
			return
		}

		if err := g.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	go g.scheduler.Start(g.ctx)
	go g.worker.Start(g.ctx)

	log.Info().
		Str("host", g.Config.Gateway.Host).
		Int("port", g.Config.Gateway.Port).
		Msg("gateway http server running")

	return nil
}

// Start runs the gateway until a termination signal arrives
func (g *Gateway) Start() error {
	if err := g.StartAsync(); err != nil {
		return err
	}

	terminationSignal := make(chan os.Signal, 1)
	signal.Notify(terminationSignal, os.Interrupt, syscall.SIGTERM)
	<-terminationSignal

	log.Info().Msg("termination signal received. shutting down...")
	g.shutdown()

	return nil
}

func (g *Gateway) shutdown() {
	g.cancelFunc()
	g.oauthStates.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := g.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	if err := g.RedisClient.Close(); err != nil {
		log.Error().Err(err).Msg("redis close error")
	}
}
