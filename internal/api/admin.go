package api

import (
	"context"  // Cache calls
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"campus_identity/internal/apperr"     // Error kinds
	"campus_identity/internal/middleware" // Caller identity
	"campus_identity/internal/service"    // User directory
	"campus_identity/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

const (
	UsersCachePrefix = "admin:users:"   // Every cached listing page
	UsersCacheTTL    = 60 * time.Second // Listing freshness
)

// UserListResponse is one page of the admin listing
type UserListResponse struct {
	*service.UserPage
	TotalPages int  `json:"totalPages"` // Total pages
	Cached     bool `json:"cached"`     // Served from Redis
}

// ListUsersHandler returns active users, cached per page
func ListUsersHandler(dir *service.Directory, listings *utils.JSONCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(service.DefaultPageSize)))
		// Create a cache key based on pagination parameters
		cacheKey := "page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)

		var cached UserListResponse
		found, err := listings.Get(ctx, cacheKey, &cached)
		if err != nil {
			logrus.WithError(err).Warn("user listing cache unavailable") // Fall through to the database
		}
		if err == nil && found {
			cached.Cached = true // Indicate response is from cache
			utils.RespondOK(c, http.StatusOK, cached)
			return
		}

		result, err := dir.ListUsers(ctx, page, pageSize)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		resp := UserListResponse{
			UserPage:   result,
			TotalPages: int((result.Total + int64(result.PageSize) - 1) / int64(result.PageSize)), // Calculate total pages
		}
		// Cache the response for future requests
		if err := listings.Put(ctx, cacheKey, resp); err != nil {
			logrus.WithError(err).Warn("failed to cache user listing")
		}
		utils.RespondOK(c, http.StatusOK, resp)
	}
}

// DeactivateUserHandler soft-deletes a user and drops cached listings
func DeactivateUserHandler(dir *service.Directory, listings *utils.JSONCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			utils.RespondError(c, apperr.Validation("id must be a positive integer"))
			return
		}
		actor, _ := middleware.CurrentIdentity(c)
		ctx := c.Request.Context()
		if err := dir.Deactivate(ctx, actor.ID, uint(id)); err != nil {
			utils.RespondError(c, err)
			return
		}
		invalidateListings(ctx, listings) // The user drops out of every page
		utils.RespondOK(c, http.StatusOK, gin.H{"id": id, "active": false})
	}
}

// invalidateListings drops every cached listing page after a user is added, changed or removed
func invalidateListings(ctx context.Context, listings *utils.JSONCache) {
	n, err := listings.Flush(ctx)
	if err != nil {
		logrus.WithError(err).Warn("failed to invalidate user listing cache") // Pages expire on their own
		return
	}
	if n > 0 {
		logrus.WithField("pages", n).Debug("user listing cache invalidated")
	}
}
