package service

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/mathieu-neron/tube301/internal/model"
	"github.com/mathieu-neron/tube301/pkg/regression"
)

const (
	// EpochReference anchors the time component of the score (2015-04-01).
	EpochReference int64 = 1427851426
	// ScoreTimeNormalizer converts elapsed seconds into score points.
	ScoreTimeNormalizer = 45000.0

	LargeChannelSubscribers = 300000
	LargeChannelScaling     = 0.6
	SmallChannelSlope       = 0.4
	AggregatorBonus         = 0.05

	// ExpQualityFloor is the minimum exponential fit quality that can earn a
	// boost, and ExpBoostWeight scales the quality gap into the boost.
	ExpQualityFloor = 0.8
	ExpBoostWeight  = 5.0
)

// Eligibility is the ranking filter applied to persisted records.
type Eligibility struct {
	MinSamples int
	MinLikes   int64
	// Denylist matches titles that are excluded. Nil disables it.
	Denylist *regexp.Regexp
}

// Eligible reports whether v may be ranked.
func (e Eligibility) Eligible(v model.Video) bool {
	if !v.Active || v.Archived {
		return false
	}
	if len(v.HistoricalStatistics) < e.MinSamples || v.Statistics.LikeCount < e.MinLikes {
		return false
	}
	return e.Denylist == nil || !e.Denylist.MatchString(v.Title)
}

// NewDenylist compiles words into one case-insensitive substring pattern.
// An empty list yields nil.
func NewDenylist(words []string) (*regexp.Regexp, error) {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			parts = append(parts, regexp.QuoteMeta(w))
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return regexp.Compile(`(?i)` + strings.Join(parts, "|"))
}

// BaseScalingFactor favours small channels, aggregator sources and penalises
// configured categories.
func BaseScalingFactor(subscribers int64, source model.Source, categoryID string, penalties map[string]float64) float64 {
	var sf float64
	if subscribers > LargeChannelSubscribers {
		sf = LargeChannelScaling
	} else {
		sf = 1 - float64(subscribers)*SmallChannelSlope/LargeChannelSubscribers
	}
	if !source.PlatformNative() {
		sf += AggregatorBonus
	}
	sf -= penalties[categoryID]
	return sf
}

// FitDiagnostics describes how the vote history was modelled.
type FitDiagnostics struct {
	RLin        float64
	RExp        float64
	RDiff       float64
	ExpSelected bool
	// GrowthRate is the exponential fit's rate per second.
	GrowthRate float64
}

// Boost is the scaling-factor increase earned by the fit.
func (d FitDiagnostics) Boost() float64 {
	return d.RDiff * ExpBoostWeight
}

// FitHistory fits linear and exponential curves to the vote score over time.
// The exponential model is selected only when it beats the linear one and
// clears ExpQualityFloor.
func FitHistory(samples []model.HistoricalSample) FitDiagnostics {
	if len(samples) < 2 {
		return FitDiagnostics{}
	}
	first := samples[0].Timestamp
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.Timestamp.Sub(first).Seconds()
		ys[i] = float64(s.VoteScore())
	}

	lin := regression.Linear(xs, ys)
	exp := regression.Exponential(xs, ys)

	d := FitDiagnostics{RLin: lin.R2, RExp: exp.R2, GrowthRate: exp.Slope}
	if d.RExp > d.RLin && d.RExp >= ExpQualityFloor {
		d.RDiff = d.RExp - d.RLin
		d.ExpSelected = true
	}
	return d
}

// Score combines the scaling factor, the vote magnitude and the publish time.
func Score(scalingFactor float64, voteScore int64, publishedAt time.Time) float64 {
	elapsed := float64(publishedAt.Unix() - EpochReference)
	magnitude := math.Log10(math.Max(math.Abs(float64(voteScore)), 1))

	var sign float64
	switch {
	case voteScore > 0:
		sign = 1
	case voteScore < 0:
		sign = -1
	}
	return scalingFactor*magnitude + sign*elapsed/ScoreTimeNormalizer
}

// RankVideo scores one eligible record.
func RankVideo(v model.Video, penalties map[string]float64) model.RankedVideo {
	fit := FitHistory(v.HistoricalStatistics)
	sf := BaseScalingFactor(v.ChannelSubscriberCount, v.Source, v.CategoryID, penalties) + fit.Boost()

	return model.RankedVideo{
		VideoID:                v.VideoID,
		URL:                    v.URL(),
		Title:                  v.Title,
		Description:            v.Description,
		Source:                 v.Source,
		ChannelSubscriberCount: v.ChannelSubscriberCount,
		PublishedAt:            v.PublishedAt,
		Statistics:             v.Statistics,
		Thumbnails:             v.Thumbnails,
		Score:                  Score(sf, v.Statistics.VoteScore(), v.PublishedAt),
		ScalingFactor:          sf,
		RLin:                   fit.RLin,
		RExp:                   fit.RExp,
		RDiff:                  fit.RDiff,
		ExpSelected:            fit.ExpSelected,
		GrowthRate:             fit.GrowthRate,
	}
}
