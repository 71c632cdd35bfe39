package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gin-gonic/gin"
	"github.com/moxuan/socialbackend/dto"
	"github.com/moxuan/socialbackend/models"
	"github.com/moxuan/socialbackend/store"
	"github.com/moxuan/socialbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// GET /api/users
func GetUsers(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParseIntDefault(c.Query("page"), 1)
		limit := utils.ParseIntDefault(c.Query("limit"), 10)
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		isActive, err := utils.ParseBoolQuery(c.Query("isActive"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid isActive value"})
			return
		}

		filter := store.ListUsersFilter{
			Search:   strings.TrimSpace(c.Query("search")),
			Role:     c.Query("role"),
			IsActive: isActive,
			Skip:     int64(page-1) * int64(limit),
			Limit:    int64(limit),
		}

		found, total, err := users.List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}

		public := make([]models.PublicUser, 0, len(found))
		for i := range found {
			public = append(public, found[i].Public())
		}

		c.JSON(http.StatusOK, gin.H{
			"users": public,
			"total": total,
			"pagination": gin.H{
				"page":       page,
				"limit":      limit,
				"totalPages": utils.TotalPages(total, limit),
			},
		})
	}
}

// GET /api/users/:id
func GetUser(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := findUserByParam(c, users)
		if err != nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user.Public()})
	}
}

// PUT /api/users/:id
func UpdateUser(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.UpdateUserDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if body.Role != nil && !models.ValidRole(*body.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}

		user, err := findUserByParam(c, users)
		if err != nil {
			return
		}

		if body.Username != nil {
			user.Username = strings.TrimSpace(*body.Username)
		}
		if body.Email != nil {
			user.Email = strings.ToLower(strings.TrimSpace(*body.Email))
		}
		if body.Password != nil {
			hash, err := utils.HashPassword(*body.Password)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
				return
			}
			user.PasswordHash = hash
		}
		if body.Role != nil {
			user.Role = models.Role(*body.Role)
		}
		if body.IsActive != nil {
			user.IsActive = *body.IsActive
		}

		if err := users.Update(c.Request.Context(), user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
				return
			}
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "user updated", "user": user.Public()})
	}
}

// PATCH /api/users/:id/status
func ToggleUserStatus(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user, err := findUserByParam(c, users)
		if err != nil {
			return
		}

		// Deactivating the last active admin would lock everyone out.
		if user.Role == models.RoleAdmin && user.IsActive {
			admins, err := users.CountAdmins(ctx, true)
			if err != nil {
				respondError(c, err)
				return
			}
			if admins <= 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "at least one active admin account is required"})
				return
			}
		}

		user.IsActive = !user.IsActive
		if err := users.Update(ctx, user); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"isActive": user.IsActive})
	}
}

// PATCH /api/users/:id/role
func ChangeUserRole(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ChangeRoleDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !models.ValidRole(body.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}

		ctx := c.Request.Context()
		user, err := findUserByParam(c, users)
		if err != nil {
			return
		}

		if user.Role == models.RoleAdmin && models.Role(body.Role) != models.RoleAdmin {
			admins, err := users.CountAdmins(ctx, false)
			if err != nil {
				respondError(c, err)
				return
			}
			if admins <= 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "at least one admin account is required"})
				return
			}
		}

		user.Role = models.Role(body.Role)
		if err := users.Update(ctx, user); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "role updated", "user": userSummary(user)})
	}
}

// DELETE /api/users/:id. Soft delete: deactivate and tombstone the
// email so it can be registered again.
func DeleteUser(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user, err := findUserByParam(c, users)
		if err != nil {
			return
		}

		if user.Role == models.RoleAdmin {
			admins, err := users.CountAdmins(ctx, false)
			if err != nil {
				respondError(c, err)
				return
			}
			if admins <= 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete the last admin account"})
				return
			}
		}

		user.IsActive = false
		user.Email = fmt.Sprintf("deleted_%d_%s", time.Now().UnixMilli(), user.Email)
		user.RefreshToken = ""
		if err := users.Update(ctx, user); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
	}
}

// POST /api/profile/avatar
func UploadAvatar(users store.UserStore, gcs *storage.Client, bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userVal, ok := c.Get("user")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}
		user := userVal.(*models.User)

		fileHeader, err := c.FormFile("avatar")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
			return
		}

		url, err := utils.UploadAvatarToGCS(c.Request.Context(), gcs, bucket, user.Username, fileHeader)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user.Picture = url
		if err := users.Update(c.Request.Context(), user); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"picture": url})
	}
}

func findUserByParam(c *gin.Context, users store.UserStore) (*models.User, error) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return nil, err
	}

	user, err := users.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		} else {
			respondError(c, err)
		}
		return nil, err
	}
	return user, nil
}
