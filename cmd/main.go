package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"job-board-go/internal/api/handler"
	"job-board-go/internal/api/router"
	"job-board-go/internal/config"
	"job-board-go/internal/logger"
	"job-board-go/internal/outbox"
	"job-board-go/internal/processor"
	"job-board-go/internal/storage"
	"job-board-go/internal/tracing"
)

var version = "1.0.0" //nolint:gochecknoglobals

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	logCloser, err := logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化日志失败")
	}
	defer logCloser.Close()
	logger.Info().Str("version", version).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	store, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer store.Close()
	if store.MySQL == nil || store.Redis == nil {
		logger.Fatal().Msg("MySQL 和 Redis 是必需的依赖")
	}

	extractor, err := processor.BuildTextExtractor(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化文本提取器失败")
	}
	evaluator, err := processor.BuildEvaluator(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化匹配评估器失败")
	}
	if err := os.MkdirAll(cfg.Upload.Root, 0755); err != nil {
		logger.Fatal().Err(err).Str("root", cfg.Upload.Root).Msg("创建上传目录失败")
	}
	scanner := processor.NewDirectoryScanner(cfg.Upload.Root, logger.Component("scanner"))
	matcher := processor.BuildMatcher(cfg, scanner, extractor, evaluator)

	deps := handler.Deps{
		Config:    cfg,
		DB:        store.MySQL,
		Sessions:  store.Redis,
		Dedupe:    store.Redis,
		Extractor: extractor,
		Scanner:   scanner,
		Matcher:   matcher,
		Checks: map[string]handler.HealthCheck{
			"mysql": store.MySQL.Ping,
			"redis": store.Redis.Ping,
		},
	}
	if store.MinIO != nil {
		deps.Objects = store.MinIO
	}

	// 异步匹配依赖 RabbitMQ：outbox 中继负责投递，消费者负责执行
	var relayDone chan struct{}
	if store.RabbitMQ != nil {
		deps.Matches = processor.NewMatchService(matcher, store.MySQL, store.Redis, store.RabbitMQ, processor.MatchServiceConfig{
			Exchange:   cfg.RabbitMQ.MatchEventsExchange,
			RoutingKey: cfg.RabbitMQ.MatchRequestedRoutingKey,
			Queue:      cfg.RabbitMQ.MatchRequestsQueue,
			ReportTTL:  config.GetDuration(cfg.Redis.MatchReportTTL, 24*time.Hour),

			MinJobDescription: cfg.Matcher.MinJobDescription,
		}, logger.Component("match_service"))

		relay := outbox.NewMessageRelay(store.MySQL.DB(), store.RabbitMQ, logger.Component("outbox"),
			outbox.WithPollingInterval(config.GetDuration(cfg.RabbitMQ.RelayPollInterval, 2*time.Second)))
		relayDone = make(chan struct{})
		go func() {
			defer close(relayDone)
			relay.Start(ctx)
		}()

		workers := cfg.RabbitMQ.ConsumerWorkers["match_consumer_workers"]
		if workers < 1 {
			workers = 1
		}
		for i := 0; i < workers; i++ {
			if err := deps.Matches.StartMatchConsumer(ctx, cfg.RabbitMQ.PrefetchCount); err != nil {
				logger.Fatal().Err(err).Msg("启动匹配消费者失败")
			}
		}
		logger.Info().Int("workers", workers).Msg("异步匹配已启用")
	} else {
		logger.Warn().Msg("RabbitMQ 未配置，异步匹配不可用")
	}
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithMaxRequestBodySize(cfg.Server.MaxRequestBodyMB*1024*1024),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		logger.Ctx(c).Info().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
	router.RegisterRoutes(h, deps)

	go func() {
		logger.Info().Str("address", cfg.Server.Address).Msg("HTTP 服务器启动中")
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}

	// 停止中继和消费者
	cancel()
	if relayDone != nil {
		<-relayDone
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("关闭链路追踪失败")
	}
	logger.Info().Msg("优雅退出完成")
}
