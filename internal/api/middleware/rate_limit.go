package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Jasper-ops698/HSSM-Services-sub001/pkg/redis"
	"github.com/Jasper-ops698/HSSM-Services-sub001/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件，按（客户端 IP, 路由）计数。
// limit: 窗口内允许的最大请求数
// window: 滑动窗口时长
// rdb 为 nil 或 Redis 出错时降级放行（与导入互斥锁策略一致）
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", c.ClientIP(), c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
