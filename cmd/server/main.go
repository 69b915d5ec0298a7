package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"clinicore/internal/audit"
	auditmetrics "clinicore/internal/audit/metrics"
	auditpublisher "clinicore/internal/audit/publisher"
	auditpg "clinicore/internal/audit/store/postgres"
	"clinicore/internal/channel"
	channelpg "clinicore/internal/channel/store/postgres"
	"clinicore/internal/gate"
	gatemetrics "clinicore/internal/gate/metrics"
	"clinicore/internal/identity"
	identitystore "clinicore/internal/identity/store"
	"clinicore/internal/platform/config"
	"clinicore/internal/platform/httpserver"
	kafkaproducer "clinicore/internal/platform/kafka/producer"
	"clinicore/internal/platform/logger"
	"clinicore/internal/platform/postgres"
	platformredis "clinicore/internal/platform/redis"
	"clinicore/internal/token"
	httptransport "clinicore/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	// Login sessions live in Redis when configured, in memory otherwise.
	var sessions identitystore.SessionStore
	if redisClient != nil {
		defer redisClient.Close()
		sessions = identitystore.NewRedis(redisClient.Client)
	} else {
		log.Warn("redis not configured, login sessions are process-local")
		sessions = identitystore.NewInMemory()
	}

	tokens := token.NewService(cfg.JWTSigningKey, "clinicore", "clinicore-web")
	resolver := identity.NewResolver(tokens, sessions, log)
	directory := identitystore.NewPostgresDirectory(db)

	auditOpts := []audit.Option{}
	var producer *kafkaproducer.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = kafkaproducer.New(cfg.KafkaBrokers)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		auditOpts = append(auditOpts, audit.WithPublisher(auditpublisher.NewKafka(producer, cfg.AuditTopic)))
	}
	auditor := audit.NewService(auditpg.New(db), log, auditmetrics.New(), auditOpts...)

	channelStore := channelpg.New(db, cfg.ChannelID)
	channelManager := channel.NewManager(channelStore, channel.NopConnector{}, auditor, log)

	accessGate := gate.New(
		gate.NewPathSet(cfg.ProtectedPrefixes),
		resolver,
		cfg.LoginPath,
		log,
		gatemetrics.New(),
	)

	health := []httptransport.HealthCheck{db.PingContext}
	if redisClient != nil {
		health = append(health, redisClient.Health)
	}

	handler := httptransport.NewHandler(
		directory,
		directory,
		resolver,
		tokens,
		sessions,
		auditor,
		log,
		cfg.SessionTTL,
		health...,
	)
	router := httptransport.NewRouter(handler, accessGate)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		// Resume the messaging channel before serving; a corrupt session
		// degrades to re-authentication, it never aborts startup.
		if err := channelManager.Start(groupCtx); err != nil {
			log.Error("channel resume failed", "error", err)
		}
		return nil
	})

	group.Go(func() error {
		log.Info("starting clinicore", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
