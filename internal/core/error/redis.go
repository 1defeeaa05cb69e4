package errx

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to AppError. A missing key is a 404, a timed
// out call a 504, a closed client a 503 and anything else a 502.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, redis.Nil):
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	case errors.Is(err, context.DeadlineExceeded):
		return New(err, http.StatusGatewayTimeout, RedisTimeoutMessage)
	case errors.Is(err, redis.ErrClosed):
		return New(err, http.StatusServiceUnavailable, RedisErrorMessage)
	default:
		return New(err, http.StatusBadGateway, RedisErrorMessage)
	}
}
