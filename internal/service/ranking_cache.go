package service

import (
	"sync/atomic"

	"github.com/mathieu-neron/tube301/internal/model"
)

var emptyRankingSet = &model.RankingSet{Videos: []model.RankedVideo{}}

// RankingCache holds the current ranked set. Readers always get a complete
// set: either the one before a swap or the one after it.
type RankingCache struct {
	current atomic.Pointer[model.RankingSet]
}

func NewRankingCache() *RankingCache {
	return &RankingCache{}
}

// Current returns the current set, never nil. Callers must not modify it.
func (c *RankingCache) Current() *model.RankingSet {
	if set := c.current.Load(); set != nil {
		return set
	}
	return emptyRankingSet
}

// Swap replaces the current set.
func (c *RankingCache) Swap(set *model.RankingSet) {
	if set == nil {
		return
	}
	c.current.Store(set)
}

// Top returns at most limit videos from the current set.
func (c *RankingCache) Top(limit int) []model.RankedVideo {
	videos := c.Current().Videos
	if limit > 0 && limit < len(videos) {
		return videos[:limit:limit]
	}
	return videos
}
