package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CompareAndDelete removes key only if its value is still expected. It reports
// whether the key was deleted. Without a script-capable connection it falls
// back to a non-atomic read then delete.
func (c *Client) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	if c.scripter != nil {
		n, err := releaseScript.Run(ctx, c.scripter, []string{key}, expected).Int64()
		if err != nil {
			return false, fmt.Errorf("release %s: %w", key, err)
		}
		return n == 1, nil
	}
	current, err := c.Get(ctx, key)
	if errors.Is(err, Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if current != expected {
		return false, nil
	}
	if err := c.Del(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}
