package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"arts/api/internal/config"
	"arts/api/internal/feed"
	"arts/api/internal/middleware"
	"arts/api/internal/models"
	"arts/api/internal/repository"
	"arts/api/internal/service"
	"arts/api/internal/session"
	"arts/api/internal/storage"
	"arts/api/internal/store"
)

type HandlerSet struct {
	log            zerolog.Logger
	cfg            *config.AppConfig
	authService    *service.AuthService
	patientService *service.PatientService
	sessions       *session.Manager
	snapshot       *store.PatientStore
	feed           *feed.Feed
	users          *repository.UserRepository
	db             *pgxpool.Pool
	cache          *redis.Client
}

func NewHandlerSet(
	log zerolog.Logger,
	db *pgxpool.Pool,
	cache *redis.Client,
	objects *storage.ObjectStore,
	sessions *session.Manager,
	snapshot *store.PatientStore,
	notifications *feed.Feed,
	cfg *config.AppConfig,
) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	auth := service.NewAuthService(userRepo, sessions, cfg, log)
	patients := service.NewPatientService(patientRepo, snapshot, objects, cache, notifications, cfg, log)

	return HandlerSet{
		log:            log,
		cfg:            cfg,
		authService:    auth,
		patientService: patients,
		sessions:       sessions,
		snapshot:       snapshot,
		feed:           notifications,
		users:          userRepo,
		db:             db,
		cache:          cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/login", h.Login)

	authed := v1.Group("")
	authed.Use(middleware.Auth(h.cfg, h.sessions))

	authed.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)

	patients := authed.Group("/patients")
	patients.GET("", h.ListPatients)
	patients.GET("/:id", h.GetPatient)
	patients.POST("",
		middleware.RequireRoles(models.UserRoleTechnician, models.UserRoleAdmin),
		h.AddPatient)
	patients.POST("/:id/review",
		middleware.RequireRoles(models.UserRoleOphthalmologist, models.UserRoleAdmin),
		h.SubmitReview)

	authed.GET("/stats", h.Stats)
	authed.GET("/notifications", h.Notifications)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRoles(models.UserRoleAdmin))
	admin.GET("/users", h.AdminListUsers)
}
