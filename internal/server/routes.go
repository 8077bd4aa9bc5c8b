package server

import (
	"net/http"
	"time"

	"pm-bot/backend/internal/handlers"
	"pm-bot/backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (a *App) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RecoveryWithLog(a.logger),
		middleware.RequestLogger(a.logger.Named("http")),
		a.monitor.Middleware(),
		cors.New(cors.Config{
			AllowOrigins:     a.config.CORS.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	r.GET("/", handlers.Home(a.config.App.Name))
	r.GET("/health", handlers.Health)
	r.GET("/live", a.monitor.LivenessHandler())
	r.GET("/ready", a.monitor.ReadinessHandler())
	r.GET("/metrics", a.monitor.MetricsHandler())

	r.POST("/slack/events", a.slack.HandleEvents)

	api := r.Group("/")
	if a.config.RateLimit.Enabled {
		api.Use(middleware.NewRateLimiter(a.config.RateLimit.RequestsPerMin, a.config.RateLimit.BurstSize).Middleware())
	}

	var write []gin.HandlerFunc
	if a.config.Auth.JWTSecret != "" {
		write = append(write, middleware.AuthzMiddleware(middleware.AuthzConfig{
			Secret: a.config.Auth.JWTSecret,
			Issuer: a.config.Auth.Issuer,
		}))
	}
	guarded := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, write...), h)
	}

	tasks := handlers.NewTaskHandler(a.tasks)
	api.POST("/tasks", guarded(tasks.CreateTask)...)
	api.GET("/tasks", tasks.ListTasks)
	api.GET("/tasks/:id", tasks.GetTask)
	api.PATCH("/tasks/:id", guarded(tasks.UpdateTask)...)

	projects := handlers.NewProjectHandler(a.projects, a.progress)
	api.POST("/projects", guarded(projects.CreateProject)...)
	api.GET("/projects", projects.ListProjects)
	api.GET("/projects/:id/progress", projects.GetProgress)

	users := handlers.NewUserHandler(a.users)
	api.POST("/users", guarded(users.CreateUser)...)
	api.GET("/users", users.ListUsers)

	ints := handlers.NewIntegrationHandler(a.issues, a.pulls)
	api.GET("/integrations/issues/:key", ints.IssueCounts)
	api.GET("/integrations/pulls/:owner/:repo", ints.PullRequestAges)

	return r
}
