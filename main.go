package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/moxuan/socialbackend/config"
	"github.com/moxuan/socialbackend/controllers"
	"github.com/moxuan/socialbackend/database"
	"github.com/moxuan/socialbackend/follow"
	"github.com/moxuan/socialbackend/middleware"
	"github.com/moxuan/socialbackend/oauth"
	"github.com/moxuan/socialbackend/session"
	"github.com/moxuan/socialbackend/store"
	"github.com/moxuan/socialbackend/token"
	"github.com/moxuan/socialbackend/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal(err)
	}
	db := client.Database(cfg.DatabaseName)

	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatal(err)
	}

	users := store.NewMongoUserStore(db.Collection("users"))
	follows := store.NewMongoFollowStore(db.Collection("follows"))
	articles := store.NewMongoArticleStore(db.Collection("articles"))

	if err := utils.SeedAdminUser(ctx, users, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal(err)
	}

	codec := token.NewCodec(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	sessions := session.NewManager(codec, users)
	provider := oauth.NewGoogleProvider(oauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	linker := oauth.NewLinker(provider, users, sessions)
	followSvc := follow.NewService(follows, users)

	var gcs *storage.Client
	if cfg.GCSBucket != "" {
		gcs, err = utils.NewGCSClient(ctx, cfg.CredentialsFile)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		log.Println("GCS_BUCKET not set, avatar upload disabled")
	}

	r := setupRouter(cfg, users, articles, sessions, linker, followSvc, gcs)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

// setupRouter builds the full route table. Avatar upload hangs off
// /api/profile rather than /api/users: the users group owns the :id
// wildcard at that position, and gin rejects a static sibling there.
func setupRouter(
	cfg *config.Config,
	users store.UserStore,
	articles store.ArticleStore,
	sessions *session.Manager,
	linker *oauth.Linker,
	followSvc *follow.Service,
	gcs *storage.Client,
) *gin.Engine {
	r := gin.New()
	r.Use(corsMiddleware(cfg.AllowedOrigins))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "success",
			"message":   "API running",
			"timestamp": time.Now().UTC(),
		})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", controllers.Register(users, sessions))
		auth.POST("/login", controllers.Login(users, sessions))
		auth.POST("/refresh-token", controllers.Refresh(sessions))
		auth.POST("/logout", controllers.Logout(sessions))
		auth.GET("/google", controllers.GoogleAuthURL(linker))
		auth.GET("/google/callback", controllers.GoogleCallback(linker))
	}

	requireAuth := middleware.AuthMiddleware(sessions)
	optionalAuth := middleware.OptionalAuthMiddleware(sessions)
	requireAdmin := middleware.AdminMiddleware()

	usersGroup := r.Group("/api/users")
	{
		usersGroup.GET("", requireAuth, requireAdmin, controllers.GetUsers(users))
		usersGroup.GET("/:id", requireAuth, requireAdmin, controllers.GetUser(users))
		usersGroup.PUT("/:id", requireAuth, requireAdmin, controllers.UpdateUser(users))
		usersGroup.PATCH("/:id/status", requireAuth, requireAdmin, controllers.ToggleUserStatus(users))
		usersGroup.PATCH("/:id/role", requireAuth, requireAdmin, controllers.ChangeUserRole(users))
		usersGroup.DELETE("/:id", requireAuth, requireAdmin, controllers.DeleteUser(users))

		usersGroup.POST("/:id/follow", requireAuth, controllers.FollowUser(followSvc))
		usersGroup.DELETE("/:id/follow", requireAuth, controllers.UnfollowUser(followSvc))
		usersGroup.GET("/:id/following", optionalAuth, controllers.GetFollowing(followSvc))
		usersGroup.GET("/:id/followers", optionalAuth, controllers.GetFollowers(followSvc))
		usersGroup.GET("/:id/follow/status", requireAuth, controllers.FollowStatus(followSvc))
		usersGroup.GET("/:id/follow/count", controllers.FollowCounts(followSvc))
	}

	if cfg.GCSBucket != "" {
		r.POST("/api/profile/avatar", requireAuth, controllers.UploadAvatar(users, gcs, cfg.GCSBucket))
	}

	articlesGroup := r.Group("/api/articles")
	{
		articlesGroup.GET("", controllers.GetArticles(articles))
		articlesGroup.GET("/my", requireAuth, controllers.GetMyArticles(articles))
		articlesGroup.GET("/:id", controllers.GetArticle(articles))
		articlesGroup.POST("", requireAuth, controllers.CreateArticle(articles))
		articlesGroup.DELETE("/:id", requireAuth, controllers.DeleteArticle(articles))
	}

	return r
}

func corsMiddleware(origins string) gin.HandlerFunc {
	allowedOrigins := map[string]bool{}
	for _, origin := range strings.Split(origins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}
	log.Printf("Allowed origins: %v", allowedOrigins)

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
