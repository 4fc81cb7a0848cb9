package api

import (
	"campus_identity/internal/domain"     // Roles
	"campus_identity/internal/middleware" // Custom package for middleware
	"campus_identity/internal/service"    // Business operations
	"campus_identity/internal/store"      // Persistence
	"campus_identity/internal/utils"      // Token service

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// Deps are the collaborators the HTTP surface is built from
type Deps struct {
	Repo      store.Repository          // Users and profiles
	Registrar *service.Registrar        // Account creation
	Accounts  *service.Accounts         // Login and self-service
	Directory *service.Directory        // Admin user management
	Tokens    *utils.TokenService       // Token verification
	Throttle  *middleware.LoginThrottle // Failed login lockout
	Redis     *redis.Client             // Cache and health
}

// NewRouter wires every route under /api/v1
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())

	r.GET("/healthz", HealthHandler(d.Repo, d.Redis)) // Liveness endpoint

	v1 := r.Group("/api/v1")
	authenticate := middleware.Authenticate(d.Tokens, d.Repo.Users())

	listings := utils.NewJSONCache(d.Redis, UsersCachePrefix, UsersCacheTTL) // Admin listing pages

	// Auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", RegisterHandler(d.Registrar, listings))                 // Registration endpoint
	auth.POST("/login", LoginHandler(d.Accounts, d.Throttle))                      // Login endpoint
	auth.GET("/me", authenticate, MeHandler(d.Accounts))                           // Current identity
	auth.PATCH("/me", authenticate, UpdateMeHandler(d.Accounts, listings))         // Profile update
	auth.POST("/change-password", authenticate, ChangePasswordHandler(d.Accounts)) // Password change

	// Admin routes (protected, admin only)
	admin := v1.Group("/admin", authenticate, middleware.AdminOnly())
	admin.GET("/users", ListUsersHandler(d.Directory, listings))             // List users endpoint
	admin.DELETE("/users/:id", DeactivateUserHandler(d.Directory, listings)) // Soft delete endpoint

	// Role portals
	student := v1.Group("/student", authenticate, middleware.Authorize(domain.RoleStudent))
	student.GET("/attendance", StudentAttendanceHandler(d.Repo.Profiles()))
	teacher := v1.Group("/teacher", authenticate, middleware.Authorize(domain.RoleTeacher))
	teacher.GET("/classes", TeacherClassesHandler(d.Repo.Profiles()))

	return r
}
