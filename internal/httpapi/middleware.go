package httpapi

import (
	"net/http"
	"time"

	"github.com/isnaaziz/working-permit-dc-sub000/internal/auth"
	"github.com/isnaaziz/working-permit-dc-sub000/pkg/logger"
	"github.com/isnaaziz/working-permit-dc-sub000/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// ScanLimiter caps concurrent in-flight redemption requests per gate
// actor. A stolen credential replayed in a tight loop hits this before
// it hits the permit store; legitimate terminals stay well under the cap.
type ScanLimiter struct {
	RDB    *redis.Client
	Limit  int
	Window time.Duration
}

// LimitGateScans enforces the cap around gate endpoints. Fails open when
// Redis is unavailable: gate availability beats scan throttling.
func (l ScanLimiter) LimitGateScans() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.RDB == nil || l.Limit <= 0 {
			c.Next()
			return
		}
		actor, err := auth.UserID(c.Request.Context())
		if err != nil || actor == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
			return
		}

		key := "gate-scan:" + actor
		ok, err := utils.AcquireConcurrencyCap(c.Request.Context(), l.RDB, key, l.Limit, l.Window)
		if err != nil {
			logger.FromGin(c).Warn("scan cap unavailable", "actor_id", actor, "err", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many concurrent scans"})
			return
		}
		defer func() {
			_ = utils.ReleaseConcurrencyCap(c.Request.Context(), l.RDB, key)
		}()

		c.Next()
	}
}
