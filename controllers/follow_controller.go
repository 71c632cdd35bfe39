package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moxuan/socialbackend/follow"
	"github.com/moxuan/socialbackend/utils"
)

// viewerID returns the authenticated account's id when one was set by
// the (optional) auth middleware, otherwise "".
func viewerID(c *gin.Context) string {
	if id, ok := c.Get("userID"); ok {
		return id.(string)
	}
	return ""
}

func FollowUser(svc *follow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		edge, err := svc.Follow(c.Request.Context(), viewerID(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":        edge.ID,
			"following": edge.Following,
		})
	}
}

func UnfollowUser(svc *follow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		removed, err := svc.Unfollow(c.Request.Context(), viewerID(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		message := "unfollowed"
		if !removed {
			message = "was not following"
		}
		c.JSON(http.StatusOK, gin.H{"message": message, "removed": removed})
	}
}

func GetFollowing(svc *follow.Service) gin.HandlerFunc {
	return relationList(svc.Following)
}

func GetFollowers(svc *follow.Service) gin.HandlerFunc {
	return relationList(svc.Followers)
}

func relationList(list func(ctx context.Context, userID string, page, limit int, viewerID string) (*follow.Page, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParseIntDefault(c.Query("page"), 1)
		limit := utils.ParseIntDefault(c.Query("limit"), 20)
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		result, err := list(c.Request.Context(), c.Param("id"), page, limit, viewerID(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"users": result.Users,
			"total": result.Total,
			"pagination": gin.H{
				"page":       page,
				"limit":      limit,
				"totalPages": utils.TotalPages(result.Total, limit),
			},
		})
	}
}

func FollowStatus(svc *follow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := svc.Status(c.Request.Context(), viewerID(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func FollowCounts(svc *follow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := svc.Counts(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, counts)
	}
}
