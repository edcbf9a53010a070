package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hospitalms/scheduling/internal/api"
	"github.com/hospitalms/scheduling/internal/appointment"
	"github.com/hospitalms/scheduling/internal/config"
	"github.com/hospitalms/scheduling/internal/db"
	"github.com/hospitalms/scheduling/internal/directory"
	"github.com/hospitalms/scheduling/internal/lock"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s backend=%s hours=%d..%d",
		cfg.Env, cfg.HTTPPort, cfg.StorageBackend, cfg.WorkStartHour, cfg.WorkEndHour)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo   appointment.Repository
		locker lock.Locker
		pgPool *pgxpool.Pool
		rdb    *redis.Client
	)

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to Postgres")

		rdb, err = lock.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connection error: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		log.Println("connected to Redis")

		repo = appointment.NewPgRepository(pgPool)
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL)

	default:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			log.Fatalf("create data dir %s: %v", cfg.DataDir, err)
		}
		repo = appointment.NewFileRepository(cfg.AppointmentsFile)
		locker = lock.NewMutexLocker()
		log.Printf("using flat files in %s", cfg.DataDir)
	}

	patients := directory.NewFilePatientDirectory(cfg.PatientsFile)
	doctors := directory.NewFileDoctorDirectory(cfg.DoctorsFile)

	svc := appointment.NewService(repo, patients, doctors, locker, cfg.WorkStartHour, cfg.WorkEndHour)

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		Health:  api.NewHealthHandler(pgPool, rdb, cfg.DataDir, cfg.Env, version),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
