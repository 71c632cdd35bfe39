package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moxuan/socialbackend/dto"
	"github.com/moxuan/socialbackend/models"
	"github.com/moxuan/socialbackend/store"
	"github.com/moxuan/socialbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// POST /api/articles
func CreateArticle(articles store.ArticleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateArticleDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userVal, ok := c.Get("user")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}
		user := userVal.(*models.User)

		images := body.Images
		if images == nil {
			images = []string{}
		}
		article := &models.Article{
			Title:   body.Title,
			Content: body.Content,
			Images:  images,
			UserID:  user.ID,
		}
		if err := articles.Insert(c.Request.Context(), article); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "article created", "data": article})
	}
}

// GET /api/articles
func GetArticles(articles store.ArticleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit := pageParams(c, 10)
		list, total, err := articles.List(c.Request.Context(), int64(page-1)*int64(limit), int64(limit))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, articlePage(list, total, page, limit))
	}
}

// GET /api/articles/my
func GetMyArticles(articles store.ArticleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userVal, ok := c.Get("user")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}
		user := userVal.(*models.User)

		page, limit := pageParams(c, 10)
		list, total, err := articles.ListByAuthor(c.Request.Context(), user.ID, int64(page-1)*int64(limit), int64(limit))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, articlePage(list, total, page, limit))
	}
}

// GET /api/articles/:id
func GetArticle(articles store.ArticleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
			return
		}

		article, err := articles.FindByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
				return
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": article})
	}
}

// DELETE /api/articles/:id. Authors can only delete their own.
func DeleteArticle(articles store.ArticleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
			return
		}

		userVal, ok := c.Get("user")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}
		user := userVal.(*models.User)

		ctx := c.Request.Context()
		article, err := articles.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
				return
			}
			respondError(c, err)
			return
		}

		if article.UserID != user.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "you cannot delete another user's article"})
			return
		}

		if err := articles.SoftDelete(ctx, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "article deleted"})
	}
}

func pageParams(c *gin.Context, defaultLimit int) (int, int) {
	page := utils.ParseIntDefault(c.Query("page"), 1)
	limit := utils.ParseIntDefault(c.Query("limit"), defaultLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func articlePage(list []models.Article, total int64, page, limit int) gin.H {
	return gin.H{
		"articles": list,
		"total":    total,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"totalPages": utils.TotalPages(total, limit),
		},
	}
}
