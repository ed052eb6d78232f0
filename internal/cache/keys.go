package cache

import "fmt"

// RateLimitKey builds the counter key for one client's request window.
func RateLimitKey(clientID string) string {
	return fmt.Sprintf("ratelimit:%s", clientID)
}
