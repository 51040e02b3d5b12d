package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"clinic_chat_server/internal/config"
	dao "clinic_chat_server/internal/dao/mysql"
	myredis "clinic_chat_server/internal/dao/redis"
	"clinic_chat_server/internal/handler"
	"clinic_chat_server/internal/https_server"
	"clinic_chat_server/internal/infrastructure/logger"
	"clinic_chat_server/internal/infrastructure/mq"
	"clinic_chat_server/internal/service"
	"clinic_chat_server/internal/service/ai"
	"clinic_chat_server/internal/service/chat"
	"clinic_chat_server/pkg/util/jwt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const membershipGroupID = "chat-membership"

func main() {
	// 1. config and logger
	conf := config.GetConfig()
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer zap.L().Sync()
	if err := handler.InitTrans("en"); err != nil {
		zap.L().Fatal("init validator translations failed", zap.Error(err))
	}

	// 2. storage
	dao.Init()
	myredis.Init()
	defer myredis.Close()

	// a nil *RedisCache must not leak into the interfaces as non-nil
	var cache myredis.AsyncCacheService
	var redisClient *redis.Client
	if rc := myredis.GetCacheService(); rc != nil {
		cache = rc
		redisClient = rc.Client()
	}

	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)

	// 3. services and realtime
	svc := service.NewServices(dao.Repos, cache, conf.ChatConfig)

	chatServer, err := chat.NewChatServer(conf.KafkaConfig, redisClient, dao.Repos, svc.Reads)
	if err != nil {
		zap.L().Fatal("init chat server failed", zap.Error(err))
	}
	svc.Reads.SetPublisher(chatServer.Publisher)
	svc.Message.SetPublisher(chatServer.Publisher)

	var queue ai.Queue = ai.NewMemoryQueue()
	if cache != nil {
		queue = ai.NewRedisQueue(cache)
	}
	scheduler := ai.NewScheduler(dao.Repos, queue, svc.Message, conf.ChatConfig)
	svc.Message.SetScheduler(scheduler)
	svc.Message.SetObserver(ai.NewModerator(dao.Repos, cache))

	// 4. http
	engine := https_server.Init(conf, svc, handler.NewHandlers(svc, chatServer.Gateway))
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. run everything under one group until a signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		chatServer.Start(gctx)
		return nil
	})
	g.Go(func() error { return scheduler.Start(gctx) })
	g.Go(func() error { return svc.Membership.StartReconciler(gctx, conf.ChatConfig.ReconcileSpec) })

	if topic := conf.KafkaConfig.MembershipTopic; topic != "" {
		if err := mq.CreateTopic(conf.KafkaConfig, topic); err != nil {
			zap.L().Warn("create membership topic failed", zap.String("topic", topic), zap.Error(err))
		}
		consumer := mq.NewConsumer(mq.NewReader(conf.KafkaConfig, topic, membershipGroupID), svc.Membership)
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Start(gctx)
		})
	}

	g.Go(func() error {
		zap.L().Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("server stopped with error", zap.Error(err))
	}
	chatServer.Close()
	zap.L().Info("server stopped")
}
