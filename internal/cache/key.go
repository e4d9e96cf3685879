package cache

import "strings"

// KeyPrefix namespaces response cache entries in the durable store.
const KeyPrefix = "weather_cache_"

// BuildKey composes a cache key from the provider, the request type and the
// request parameters in order. Keys are literal compositions, so equal inputs
// always produce equal keys and distinct inputs never collide.
func BuildKey(provider, requestType string, params ...string) string {
	return KeyPrefix + provider + "_" + requestType + "_" + strings.Join(params, "|")
}
