package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/loggo/v2"
	"gorm.io/gorm"

	"github.com/stake-plus/solana-dao-radar/src/api/webserver"
	"github.com/stake-plus/solana-dao-radar/src/cache"
	"github.com/stake-plus/solana-dao-radar/src/config"
	"github.com/stake-plus/solana-dao-radar/src/data"
	"github.com/stake-plus/solana-dao-radar/src/logging"
	"github.com/stake-plus/solana-dao-radar/src/radar"
)

var logger = loggo.GetLogger("daoradar.api")

func openSettings() *gorm.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		return nil
	}
	db, err := data.ConnectMySQL(dsn)
	if err != nil {
		logger.Warningf("mysql unavailable, using env only: %v", err)
		return nil
	}
	if err := data.EnsureSettingsTable(db); err != nil {
		logger.Warningf("%v", err)
	}
	return db
}

func main() {
	_ = logging.Configure(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load(openSettings())
	if err != nil {
		logger.Criticalf("config: %v", err)
		os.Exit(1)
	}
	if err := logging.Configure(cfg.LogLevel); err != nil {
		logger.Warningf("log level %q: %v", cfg.LogLevel, err)
	}
	if cfg.JWTSecret == "" {
		logger.Criticalf("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opts []radar.Option
	if cfg.RedisURL != "" {
		rdb, err := data.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Criticalf("redis: %v", err)
			os.Exit(1)
		}
		defer rdb.Close()
		opts = append(opts, radar.WithStore(cache.NewRedisStore(rdb, "daoradar:")))
	}

	services, err := radar.New(cfg, opts...)
	if err != nil {
		logger.Criticalf("services: %v", err)
		os.Exit(1)
	}
	go services.Run(ctx)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           webserver.New(services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.TLSCert != "" {
			reloader, rerr := webserver.NewTLSReloader(cfg.TLSCert, cfg.TLSKey, nil)
			if rerr != nil {
				logger.Criticalf("tls: %v", rerr)
				os.Exit(1)
			}
			go reloader.Watch(ctx)
			httpSrv.TLSConfig = reloader.GetConfig()
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Criticalf("http: %v", err)
			os.Exit(1)
		}
	}()
	logger.Infof("DAO Radar API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
