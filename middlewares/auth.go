package middlewares

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/albertniderhofer/S3PolicyManager/pkg/apperr"
	"github.com/albertniderhofer/S3PolicyManager/pkg/authctx"
	"github.com/albertniderhofer/S3PolicyManager/pkg/repositories"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
)

// ContextKey is where the auth middleware stores the ExecutionContext in
// the gin context.
const ContextKey = "execution_context"

type AuthConfig struct {
	RedisClient *redis.Client
	DB          *gorm.DB
}

const apiKeyCacheTTL = 10 * time.Minute

// AuthMiddleware resolves X-API-Key to a tenant and actor and stores the
// resulting ExecutionContext for handlers. Lookups are cached in redis;
// on a cache miss the api_keys table is consulted. Token verification
// itself happens upstream, this layer only receives the opaque key.
func AuthMiddleware(cfg *AuthConfig) gin.HandlerFunc {
	tenants := repositories.NewTenantRepository(cfg.DB)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				types.Failure(string(apperr.KindUnauthorized), "missing API key"))
			return
		}

		var (
			tenantID  uuid.UUID
			actorID   string
			actorName string
			groups    []string
		)

		cacheKey := fmt.Sprintf("apikey:%s", apiKey)
		val, err := cfg.RedisClient.HGetAll(ctx, cacheKey).Result()
		if err == nil && len(val) > 0 {
			tenantID, _ = uuid.Parse(val["tenant_id"])
			actorID = val["actor_id"]
			actorName = val["actor_name"]
			if val["groups"] != "" {
				groups = strings.Split(val["groups"], ",")
			}
		} else {
			keyRecord, err := tenants.GetAPIKeyByHash(apiKey)
			if err != nil {
				c.AbortWithStatusJSON(apperr.HTTPStatus(err),
					types.Failure(string(apperr.KindOf(err)), apperr.PublicMessage(err)))
				return
			}
			tenantID = keyRecord.TenantID
			actorID = keyRecord.ActorID
			actorName = keyRecord.ActorName
			groups = keyRecord.Groups

			cfg.RedisClient.HSet(ctx, cacheKey, map[string]interface{}{
				"tenant_id":  tenantID.String(),
				"actor_id":   actorID,
				"actor_name": actorName,
				"groups":     strings.Join(groups, ","),
			})
			cfg.RedisClient.Expire(ctx, cacheKey, apiKeyCacheTTL)
		}

		if tenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				types.Failure(string(apperr.KindUnauthorized), "invalid API key"))
			return
		}

		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.Set(ContextKey, &authctx.ExecutionContext{
			TenantID:      tenantID,
			ActorID:       actorID,
			ActorName:     actorName,
			Groups:        groups,
			CorrelationID: correlationID,
		})
		c.Next()
	}
}

// ExecutionContextFrom fetches the context stored by AuthMiddleware.
func ExecutionContextFrom(c *gin.Context) (*authctx.ExecutionContext, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil, false
	}
	ec, ok := v.(*authctx.ExecutionContext)
	return ec, ok
}
