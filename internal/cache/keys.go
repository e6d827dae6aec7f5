package cache

// AdminStatsKey is the key under which the admin stats response is cached.
func AdminStatsKey() string {
	return "admin:stats"
}
