package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HoldemTable/config"
	"HoldemTable/internal/auth"
	"HoldemTable/internal/game/dealer"
	"HoldemTable/internal/game/engine"
	"HoldemTable/internal/game/manager"
	"HoldemTable/internal/game/round"
	"HoldemTable/internal/game/store"
	"HoldemTable/internal/game/table"
	"HoldemTable/internal/matchmaker"
	"HoldemTable/internal/middleware"
	"HoldemTable/internal/storage"
	"HoldemTable/internal/utils"
	"HoldemTable/internal/websocket"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfgPath := "config/config.yaml"
	if p := os.Getenv("POKER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		utils.Log.Fatal("load config", "err", err)
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	utils.Init(level)
	logger := utils.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//-------------------------------------------------------
	// 1. storage
	//-------------------------------------------------------
	var rdb *redis.Client
	if cfg.Store.Backend != "memory" {
		rdb, err = storage.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("redis init failed", "addr", cfg.Redis.Addr, "err", err)
		}
		defer rdb.Close()
	}

	var games store.Store
	switch cfg.Store.Backend {
	case "memory":
		games = store.NewMemoryStore()
	case "redis":
		games = store.NewRedisStore(rdb)
	case "postgres":
		db, err := storage.OpenPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			logger.Fatal("postgres init failed", "err", err)
		}
		defer db.Close()
		if games, err = store.NewPostgresStore(ctx, db); err != nil {
			logger.Fatal("postgres store", "err", err)
		}
	}
	logger.Info("game store ready", "backend", cfg.Store.Backend)

	//-------------------------------------------------------
	// 2. hub + game engine
	//-------------------------------------------------------
	hub := websocket.NewHub(logger.WithPrefix("hub"))

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	clock := quartz.NewReal()
	trigger := round.NewTrigger(cfg.Game.ReadyTimeout, dealer.NewDealer(seed))
	eng := engine.NewEngine(games, trigger, hub, engine.Options{
		Settings: table.Settings{
			BuyIn:      cfg.Table.BuyIn,
			BigBlind:   cfg.Table.BigBlind,
			MinPlayers: cfg.Table.MinPlayers,
			MaxPlayers: cfg.Table.MaxPlayers,
		},
		MaxRetries: cfg.Game.MaxRetries,
		Clock:      clock,
		Logger:     logger.WithPrefix("engine"),
	})
	gameMgr := manager.NewGameManager(eng, hub, clock, logger.WithPrefix("manager"))
	hub.OnIncoming = gameMgr.HandlePlayerMessage

	//-------------------------------------------------------
	// 3. matchmaker + auth
	//-------------------------------------------------------
	var (
		repo   matchmaker.Repo
		nonces auth.NonceStore
	)
	if rdb != nil {
		repo = matchmaker.NewRedisRepo(rdb)
		nonces = auth.NewRedisNonceStore(rdb)
	} else {
		repo = matchmaker.NewMemoryRepo()
		nonces = auth.NewMemoryNonceStore()
	}
	svc := matchmaker.NewService(repo, cfg.Match.PlayerTTL, hub, logger.WithPrefix("match"))
	svc.OnRoomReady = gameMgr.StartRoom

	secret := []byte(cfg.JWT.Secret)
	authHandler := auth.NewHandler(nonces, secret, logger.WithPrefix("auth"))

	//-------------------------------------------------------
	// 4. routes
	//-------------------------------------------------------
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/nonce", authHandler.Nonce)
		authGroup.POST("/nonce", authHandler.Nonce)
		authGroup.POST("/login", authHandler.Login)
	}

	authed := r.Group("/", middleware.JwtAuthMiddleware(secret))
	{
		authed.GET("/ws", websocket.ServeWS(hub))

		mh := matchmaker.NewHandler(svc)
		authed.POST("/match/join", mh.Join)
		authed.POST("/match/cancel", mh.Cancel)

		th := manager.NewHandler(eng)
		authed.POST("/table/ready", th.Ready)
		authed.POST("/table/wait", th.Wait)
		authed.GET("/table/:id", th.State)
	}

	//-------------------------------------------------------
	// 5. run until signalled
	//-------------------------------------------------------
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run()
		return nil
	})
	g.Go(func() error {
		return gameMgr.RunSweeper(gctx, cfg.Game.SweepInterval)
	})
	g.Go(func() error {
		logger.Info("server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
	logger.Info("server stopped")
}
