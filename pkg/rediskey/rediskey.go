package rediskey

import "fmt"

const (
	RunLockPrefix = "yapper:points:lock"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildRunLockKey returns "yapper:points:lock:{campaign}"
func BuildRunLockKey(campaign string) string {
	return NamespaceKey(RunLockPrefix, campaign)
}
