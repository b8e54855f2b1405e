package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit implements a fixed-window per-actor limiter backed by redis, so
// the limit holds across server replicas. Unauthenticated requests fall back
// to the remote address as the key. When redis is unreachable the limiter
// fails open; dropping requests on a cache outage would take calls down with
// it.
func RateLimit(rdb *redis.Client, requestsPerMinute int, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var key string
			if actorID, ok := ActorFromContext(r.Context()); ok {
				key = "rl:actor:" + strconv.FormatInt(actorID, 10)
			} else {
				key = "rl:ip:" + r.RemoteAddr
			}
			key = fmt.Sprintf("%s:%d", key, time.Now().Unix()/60)

			count, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				logger.Warnw("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(r.Context(), key, 2*time.Minute)
			}
			if count > int64(requestsPerMinute) {
				http.Error(w, `{"error": "Rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
