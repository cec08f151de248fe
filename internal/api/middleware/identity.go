package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/groupe-jds/doku-seal/internal/models"
)

// Identity headers set by the gateway after it verified the caller's token
const (
	UserIDHeader = "X-User-ID"
	TeamIDHeader = "X-Team-ID"
)

const ownerKey = "owner"

// Identity resolves the acting user and team. Requests without both are rejected with 401.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := positiveID(c.GetHeader(UserIDHeader))
		if !ok {
			unauthorized(c, "Missing or invalid user identity")
			return
		}
		teamID, ok := positiveID(c.GetHeader(TeamIDHeader))
		if !ok {
			unauthorized(c, "Missing or invalid team identity")
			return
		}

		c.Set(ownerKey, models.Owner{UserID: userID, TeamID: teamID})
		c.Next()
	}
}

// OwnerFrom returns the owner resolved by Identity
func OwnerFrom(c *gin.Context) (models.Owner, bool) {
	v, ok := c.Get(ownerKey)
	if !ok {
		return models.Owner{}, false
	}
	owner, ok := v.(models.Owner)
	return owner, ok
}

func positiveID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
