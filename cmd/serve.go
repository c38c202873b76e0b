package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/apricityDigital/attendease-backend/internal/auth"
	"github.com/apricityDigital/attendease-backend/internal/db/bunx"
	"github.com/apricityDigital/attendease-backend/internal/face"
	appmiddleware "github.com/apricityDigital/attendease-backend/internal/middleware"
	"github.com/apricityDigital/attendease-backend/internal/messaging"
	"github.com/apricityDigital/attendease-backend/internal/migrations"
	"github.com/apricityDigital/attendease-backend/internal/objectstore"
	"github.com/apricityDigital/attendease-backend/internal/repository"
	"github.com/apricityDigital/attendease-backend/internal/server"
	"github.com/apricityDigital/attendease-backend/internal/services/attendance"
	"github.com/apricityDigital/attendease-backend/internal/services/authz"
	"github.com/apricityDigital/attendease-backend/internal/services/punch"
	"github.com/apricityDigital/attendease-backend/internal/services/rbac"
	"github.com/apricityDigital/attendease-backend/internal/services/report"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long:  `Starts the HTTP server, applying pending database migrations first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		log.Printf("Connected to database")

		// Schema and RBAC seed run idempotently at startup.
		migrator := migrate.NewMigrator(db, migrations.Migrations)
		ctx := cmd.Context()
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize migrator: %w", err)
		}
		if group, err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		} else if group.ID != 0 {
			log.Printf("Applied migration group %d", group.ID)
		}

		// Repositories
		userRepo := repository.NewBunUserRepository(db)
		rbacRepo := repository.NewBunRBACRepository(db)
		locationRepo := repository.NewBunLocationRepository(db)
		employeeRepo := repository.NewBunEmployeeRepository(db)
		attendanceRepo := repository.NewBunAttendanceRepository(db)

		// Authorization
		resolver, err := authz.NewResolver(rbacRepo)
		if err != nil {
			return fmt.Errorf("create permission resolver: %w", err)
		}
		scopes := authz.NewScopeResolver(resolver, rbacRepo)
		tokens := auth.NewTokenIssuer(cfg.JWTSecret)

		// Attendance state machine
		clock, err := attendance.NewClock(cfg.Attendance.Timezone, cfg.Attendance.RolloverHour)
		if err != nil {
			return fmt.Errorf("configure attendance clock: %w", err)
		}
		attendanceSvc := attendance.NewService(attendanceRepo, employeeRepo, userRepo, clock)

		// Object storage: local always; remote stores when configured.
		localStore := objectstore.NewLocalStore(cfg.Storage.UploadsDir)
		var uploadStore objectstore.Store = localStore
		var primaryStore *objectstore.PrimaryStore
		var secondaryStore *objectstore.SecondaryStore
		if cfg.Storage.PrimaryBaseURL != "" {
			primaryStore = objectstore.NewPrimaryStore(cfg.Storage.PrimaryBaseURL, cfg.Storage.PrimaryKey)
			uploadStore = primaryStore
		}
		if cfg.Storage.SecondaryBaseURL != "" {
			secondaryStore = objectstore.NewSecondaryStore(
				cfg.Storage.SecondaryBaseURL,
				cfg.Storage.SecondaryAccessKey,
				cfg.Storage.SecondarySecretKey,
			)
		}
		imageProxy := objectstore.NewProxy(localStore, primaryStore, secondaryStore)

		// Face verification and the punch pipeline
		verifier := face.NewHTTPClient(cfg.Face)
		pipeline := punch.NewPipeline(verifier, uploadStore, imageProxy, attendanceSvc, employeeRepo, cfg.Face.MatchThreshold)

		// Reporting and administration
		reports := report.NewEngine(db)
		rbacSvc := rbac.NewService(rbacRepo, userRepo, resolver)

		var gateway messaging.Gateway
		if cfg.Messaging.BaseURL != "" {
			gateway = messaging.NewHTTPGateway(cfg.Messaging.BaseURL, cfg.Messaging.AuthKey)
		}

		r := server.NewRouter(server.RouterOptions{
			Cfg: cfg,
			AuthDeps: appmiddleware.Dependencies{
				Tokens:   tokens,
				Users:    userRepo,
				Resolver: resolver,
				Scopes:   scopes,
			},
			Users:          userRepo,
			Locations:      locationRepo,
			AttendanceRepo: attendanceRepo,
			Attendance:     attendanceSvc,
			Punch:          pipeline,
			Reports:        reports,
			RBAC:           rbacSvc,
			UploadStore:    uploadStore,
			Images:         imageProxy,
			Messaging:      gateway,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
