package main

import (
	"time"

	"github.com/kabsume/campusfeed/config"
	"github.com/kabsume/campusfeed/models"
	"github.com/kabsume/campusfeed/routes"
	"github.com/kabsume/campusfeed/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Campus{},
		&models.College{},
		&models.Program{},
		&models.Post{},
		&models.PostImage{},
		&models.Follow{},
	)

	r := routes.SetupRouter(db)

	// Drop image rows whose upload descriptor expired unconsumed (best-effort)
	utils.StartImageCleaner(db,
		time.Duration(cfg.StorageCleanupMinute)*time.Minute,
		time.Duration(cfg.StorageTTLMinutes)*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
