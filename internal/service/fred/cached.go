package fred

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"CrossRisk/internal/domain/models"
	drepo "CrossRisk/internal/domain/repository"
	pkgcache "CrossRisk/pkg/cache"
	applogger "CrossRisk/pkg/logger"
)

// CachedSource decorates a MacroSeriesSource with a cache keyed by
// (series, from, to). Macro series only gain one observation per day, so a
// short TTL removes most repeat FRED traffic between refresh cycles.
type CachedSource struct {
	src    drepo.MacroSeriesSource
	cache  pkgcache.Service
	ttl    time.Duration
	logger *applogger.Logger
}

func NewCachedSource(src drepo.MacroSeriesSource, cache pkgcache.Service, ttl time.Duration, logger *applogger.Logger) drepo.MacroSeriesSource {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedSource{src: src, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedSource) FetchSeries(ctx context.Context, seriesID string, from, to time.Time) (models.Series, error) {
	key := pkgcache.GenerateKeyWithParams("macro", seriesID, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))

	var raw string
	if err := c.cache.Get(ctx, key, &raw); err == nil && raw != "" {
		var s models.Series
		if jerr := json.Unmarshal([]byte(raw), &s); jerr == nil {
			return s, nil
		}
	} else if err != nil && !errors.Is(err, pkgcache.ErrCacheMiss) {
		c.logger.Warn("macro cache read", applogger.String("series", seriesID), applogger.Error(err))
	}

	s, err := c.src.FetchSeries(ctx, seriesID, from, to)
	if err != nil {
		return models.Series{}, err
	}

	if b, jerr := json.Marshal(s); jerr == nil {
		if cerr := c.cache.Set(ctx, key, string(b), c.ttl); cerr != nil {
			c.logger.Warn("macro cache write", applogger.String("series", seriesID), applogger.Error(cerr))
		}
	}
	return s, nil
}
