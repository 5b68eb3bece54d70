package initialize

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"robot-gateway/backend/app/controllers"
	"robot-gateway/backend/app/db"
	"robot-gateway/backend/app/dispatch"
	jwtutil "robot-gateway/backend/app/jwt"
	"robot-gateway/backend/app/middleware"
	"robot-gateway/backend/app/models"
	"robot-gateway/backend/app/queue"
	"robot-gateway/backend/app/repo"
	"robot-gateway/backend/app/services"
	"robot-gateway/backend/app/socket"
	"robot-gateway/backend/config"
	"robot-gateway/backend/global"
	"robot-gateway/backend/router"
)

type App struct {
	Cfg        *config.Config
	DB         *gorm.DB
	Router     http.Handler
	Hub        *socket.Hub
	Queue      *queue.Queue
	Dispatcher *dispatch.Dispatcher
	Configs    *services.ConfigService
	Stats      *services.StatsService
	Signer     *jwtutil.Signer
}

func Build(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	global.Config = cfg

	gdb, err := db.Connect(db.Config{
		Driver:   cfg.DB.Driver,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Pass,
		DBName:   cfg.DB.Name,
		Path:     cfg.DB.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	global.Mdb = gdb

	if err := gdb.AutoMigrate(&models.RobotCommand{}, &models.RobotConfig{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Redis is optional; without it the presence mirror stays off.
	if cfg.Redis.Addr != "" {
		global.Rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Pass,
			DB:       cfg.Redis.DB,
		})
	}

	cmdRepo := repo.NewRobotCommandRepository(gdb)
	cfgRepo := repo.NewRobotConfigRepository(gdb)

	hub := socket.NewHub(cfg.Dispatch.HeartbeatTimeout)
	if global.Rdb != nil {
		hub.SetPresence(repo.NewPresenceRepository(global.Rdb))
	}

	q := queue.New(cfg.Dispatch.QueueMax)
	disp := dispatch.NewDispatcher(hub, q, cmdRepo, dispatch.Config{
		AckTimeout:    cfg.Dispatch.AckTimeout,
		RetryInterval: cfg.Dispatch.RetryInterval,
		MaxRetries:    cfg.Dispatch.MaxRetries,
	})

	cfgSvc := services.NewConfigService(cfgRepo)
	statsSvc := services.NewStatsService(hub, q, cmdRepo)

	signer := &jwtutil.Signer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, ExpMin: cfg.JWT.ExpMin}
	mw := &middleware.Auth{Signer: signer}

	httpCtrl := controllers.NewHTTPController()
	cmdCtrl := controllers.NewCommandController(disp, cmdRepo)
	cfgCtrl := controllers.NewConfigController(cfgSvc)
	statsCtrl := controllers.NewStatsController(statsSvc)
	socketCtrl := controllers.NewSocketController(hub, disp, signer)

	h := router.NewRouter(httpCtrl, cmdCtrl, cfgCtrl, statsCtrl, socketCtrl, mw)
	h = middleware.Logging(h)

	return &App{
		Cfg:        cfg,
		DB:         gdb,
		Router:     h,
		Hub:        hub,
		Queue:      q,
		Dispatcher: disp,
		Configs:    cfgSvc,
		Stats:      statsSvc,
		Signer:     signer,
	}, nil
}
