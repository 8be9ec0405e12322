package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kabsume/campusfeed/config"
	"github.com/kabsume/campusfeed/controllers"
	"github.com/kabsume/campusfeed/feed"
	"github.com/kabsume/campusfeed/identity"
	"github.com/kabsume/campusfeed/middleware"
	"github.com/kabsume/campusfeed/pipeline"
	"github.com/kabsume/campusfeed/storage"
	"github.com/kabsume/campusfeed/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	directory := identity.NewDirectory(db)
	resolver := feed.NewResolver(db, directory)
	signer := storage.NewSigner(cfg.StorageSecret, cfg.StorageBucket, time.Duration(cfg.StorageTTLMinutes)*time.Minute)
	store := storage.NewDiskStore(cfg.StorageDir)
	pipe := pipeline.New(db, signer)
	mentions := pipeline.NewMentions(directory)

	authController := controllers.NewAuthController(db, directory)
	postController := controllers.NewPostController(db, resolver, pipe, mentions, signer, store, directory)
	userController := controllers.NewUserController(db, resolver, directory, mentions)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public read paths
	api.GET("/posts/:id", postController.GetPost)
	api.GET("/users/:id/posts", postController.ListUserPosts)
	api.GET("/users/:id/followers", userController.ListFollowers)
	api.GET("/users/:id/following", userController.ListFollowing)
	api.GET("/users/search", userController.SearchUsers)
	api.GET("/user/by-username/:username", userController.GetUserByUsername)
	api.GET("/programs", userController.ListPrograms)

	// Signed-descriptor upload: the token is the credential
	api.PUT("/uploads/*path", postController.UploadImage)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/posts", postController.CreatePost)
	protected.GET("/posts", postController.GetFeed)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.GET("/users/to-mention", userController.MentionCandidates)
	protected.POST("/users/:id/follow", userController.FollowUser)
	protected.DELETE("/users/:id/follow", userController.UnfollowUser)
	protected.PATCH("/users/me/program", userController.UpdateProgram)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		if strings.HasPrefix(path, "/static/") {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "static asset not found"})
			return
		}
		ctx.Status(http.StatusOK)
		ctx.File("./static/index.html")
	})

	return r
}
