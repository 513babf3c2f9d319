package cache

import "fmt"

func LatestStatusKey() string {
	return "printer:latest"
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
