package askdex

// CacheStats reports result cache effectiveness. Zero values when the
// cache is disabled.
func (c *Client) CacheStats() CacheStats {
	if c.cache == nil {
		return CacheStats{}
	}
	stats := c.cache.Stats()
	return CacheStats{
		Entries: stats.Entries,
		Hits:    stats.Hits,
		Misses:  stats.Misses,
		HitRate: stats.HitRate(),
	}
}

// ClearCache drops every memoized answer.
func (c *Client) ClearCache() {
	if c.cache != nil {
		c.cache.InvalidateAll()
	}
}
