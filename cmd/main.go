package main

import (
	"fmt"
	"log"
	"os"

	"CompanyRank/internal/api"
	"CompanyRank/internal/config"
	"CompanyRank/internal/database"
	"CompanyRank/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configDir string

func main() {
	root := &cobra.Command{
		Use:           "companyrank",
		Short:         "Company directory filtering, selection and ranking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.yaml (default ./config)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  func(cmd *cobra.Command, args []string) error { return serve() },
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, _, err := bootstrap()
			return err
		},
	})

	if err := root.Execute(); err != nil {
		log.Printf("companyrank: %v", err)
		os.Exit(1)
	}
}

// bootstrap loads config, builds the logger, connects and migrates
func bootstrap() (*config.Config, *logrus.Logger, *gorm.DB, error) {
	// 1. configuration
	var (
		cfg *config.Config
		err error
	)
	if configDir != "" {
		cfg, err = config.LoadConfigFrom(configDir)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	// 2. logging
	logrusLogger, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logrusLogger.Info("configuration loaded")

	// 3. database (created on first run for postgres)
	db, err := database.Open(cfg.Database, logrusLogger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	logrusLogger.WithFields(logrus.Fields{
		"driver":   cfg.Database.Driver,
		"advisory": database.IsPostgres(db),
	}).Info("database connected")

	// 4. schema
	if err := database.Migrate(db); err != nil {
		return nil, nil, nil, fmt.Errorf("migrate schema: %w", err)
	}
	logrusLogger.Info("schema migration finished")
	return cfg, logrusLogger, db, nil
}

func serve() error {
	cfg, logrusLogger, db, err := bootstrap()
	if err != nil {
		return err
	}

	// 5. gin mode and routes
	gin.SetMode(cfg.Server.Mode)
	r := api.NewRouter(db, logrusLogger, cfg)
	logrusLogger.Infof("gin mode: %s", cfg.Server.Mode)

	// 6. serve
	port := cfg.Server.Port
	logrusLogger.Infof("listening on port %d", port)
	if err := r.Run(fmt.Sprintf(":%d", port)); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}
