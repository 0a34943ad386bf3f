package api

import (
	"strings" // String manipulation

	"recipe_api/internal/cache"      // Response cache
	"recipe_api/internal/config"     // Configuration
	"recipe_api/internal/middleware" // Middleware
	"recipe_api/internal/storage"    // Image storage
	"recipe_api/internal/utils"      // Validation setup

	"github.com/gin-contrib/cors"                             // CORS middleware
	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"golang.org/x/time/rate"                                  // Rate limiter
	"gorm.io/gorm"                                            // GORM ORM library
)

// Deps are the shared resources handlers close over
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  cache.Cache
	Images storage.ImageStore
}

// NewRouter builds the gin engine with every route and middleware wired
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	utils.UseJSONFieldNames() // Report validation errors by json name

	r := gin.New()
	r.HandleMethodNotAllowed = true // POST /user/me must answer 405, not 404
	r.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.MetricsMiddleware(),
		middleware.LoggerMiddleware(),
		cors.New(corsConfig(cfg.CORSOrigins)),
	)
	if cfg.RateLimit > 0 {
		r.Use(middleware.RateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)))
	}

	r.GET("/healthz", HealthHandler(d.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve locally stored images
	if disk, ok := d.Images.(*storage.DiskStore); ok && strings.HasPrefix(cfg.MediaURL, "/") {
		r.Static(strings.TrimSuffix(cfg.MediaURL, "/"), disk.Root())
	}

	auth := middleware.TokenAuthMiddleware(d.DB, cfg.JWTSecret)

	// User routes
	userGroup := r.Group("/user")
	userGroup.POST("/create", CreateUserHandler(d.DB))                      // Registration endpoint
	userGroup.POST("/token", TokenHandler(d.DB, cfg.JWTSecret, cfg.JWTTTL)) // Token endpoint
	meGroup := userGroup.Group("/me", auth)
	meGroup.GET("", MeHandler)                      // Profile endpoint
	meGroup.PATCH("", UpdateMeHandler(d.DB, false)) // Partial profile update
	meGroup.PUT("", UpdateMeHandler(d.DB, true))    // Full profile update

	// Recipe routes (protected by token auth)
	recipeGroup := r.Group("/recipe", auth)
	for path, kind := range map[string]labelKind{"/ingredients": ingredientLabels, "/tags": tagLabels} {
		recipeGroup.GET(path, ListLabelsHandler(d.DB, d.Cache, cfg.CacheTTL, kind))
		recipeGroup.POST(path, CreateLabelHandler(d.DB, d.Cache, kind))
		recipeGroup.GET(path+"/:id", GetLabelHandler(d.DB, kind))
		recipeGroup.PATCH(path+"/:id", UpdateLabelHandler(d.DB, d.Cache, kind))
		recipeGroup.PUT(path+"/:id", UpdateLabelHandler(d.DB, d.Cache, kind))
		recipeGroup.DELETE(path+"/:id", DeleteLabelHandler(d.DB, d.Cache, kind))
	}
	recipeGroup.GET("/recipes", ListRecipesHandler(d.DB, d.Cache, cfg.CacheTTL))
	recipeGroup.POST("/recipes", CreateRecipeHandler(d.DB, d.Cache))
	recipeGroup.GET("/recipes/:id", GetRecipeHandler(d.DB, d.Images))
	recipeGroup.PATCH("/recipes/:id", UpdateRecipeHandler(d.DB, d.Cache, true))
	recipeGroup.PUT("/recipes/:id", UpdateRecipeHandler(d.DB, d.Cache, false))
	recipeGroup.DELETE("/recipes/:id", DeleteRecipeHandler(d.DB, d.Cache, d.Images))
	recipeGroup.POST("/recipes/:id/upload-image", UploadRecipeImageHandler(d.DB, d.Cache, d.Images))

	// Admin routes (protected, staff only)
	adminGroup := r.Group("/admin", auth, middleware.StaffOnlyMiddleware())
	adminGroup.GET("/users", ListUsersHandler(d.DB, d.Cache, cfg.CacheTTL)) // List users endpoint

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowHeaders("Authorization", middleware.RequestIDHeader)
	cfg.AddExposeHeaders(middleware.RequestIDHeader, "X-Cache")
	return cfg
}
