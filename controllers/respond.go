package controllers

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/moxuan/socialbackend/apperr"
)

// respondError translates an application error into a JSON body.
// Internal failures are logged and never leak detail to the client.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= 500 {
		log.Print("internal error: ", err.Error())
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}
