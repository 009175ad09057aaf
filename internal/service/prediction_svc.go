package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mathieu-neron/tube301/internal/metrics"
	"github.com/mathieu-neron/tube301/internal/model"
)

var (
	urlPattern         = regexp.MustCompile(`(?i)\b(?:https?://|www\d{0,3}\.)\S+`)
	punctuationPattern = regexp.MustCompile(`[!";:,&./?\-()\[\]]`)
	spacePattern       = regexp.MustCompile(`\s+`)
)

// SanitizeText flattens free text into the form the prediction model was
// trained on: one line, links replaced by a marker, no punctuation.
func SanitizeText(s string) string {
	s = urlPattern.ReplaceAllString(s, " URLREMOVED ")
	s = punctuationPattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// FeaturesFor builds the prediction input for v.
func FeaturesFor(v model.Video) model.PredictionFeatures {
	return model.PredictionFeatures{
		CategoryID:             v.CategoryID,
		Title:                  SanitizeText(v.Title),
		Description:            SanitizeText(v.Description),
		ChannelSubscriberCount: v.ChannelSubscriberCount,
	}
}

// PredictionResult summarises one prediction pass.
type PredictionResult struct {
	Candidates int
	Predicted  int
	Failed     int
}

// PredictionService asks the external model for a view-count estimate for
// every eligible record that does not have one yet.
type PredictionService struct {
	store       PredictionStore
	predictor   Predictor
	eligibility Eligibility
	concurrency int
}

func NewPredictionService(store PredictionStore, predictor Predictor, eligibility Eligibility, concurrency int) *PredictionService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PredictionService{
		store:       store,
		predictor:   predictor,
		eligibility: eligibility,
		concurrency: concurrency,
	}
}

// Run predicts every eligible record. Individual failures are logged and the
// first one is returned after all records were tried.
func (s *PredictionService) Run(ctx context.Context) (*PredictionResult, error) {
	videos, err := s.store.FindPredictionCandidates(ctx, s.eligibility.MinSamples, s.eligibility.MinLikes)
	if err != nil {
		return nil, fmt.Errorf("load prediction candidates: %w", err)
	}

	var (
		res      PredictionResult
		mu       sync.Mutex
		firstErr error
		g        errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, v := range videos {
		if !v.Active || (s.eligibility.Denylist != nil && s.eligibility.Denylist.MatchString(v.Title)) {
			continue
		}
		res.Candidates++

		g.Go(func() error {
			err := s.predict(ctx, v)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("video_id", v.VideoID).Msg("prediction failed")
				res.Failed++
				if firstErr == nil {
					firstErr = err
				}
				return nil
			}
			res.Predicted++
			return nil
		})
	}
	_ = g.Wait()

	zerolog.Ctx(ctx).Info().
		Int("candidates", res.Candidates).
		Int("predicted", res.Predicted).
		Int("failed", res.Failed).
		Msg("prediction pass complete")
	return &res, firstErr
}

func (s *PredictionService) predict(ctx context.Context, v model.Video) error {
	estimate, err := s.predictor.PredictViewCount(ctx, FeaturesFor(v))
	if err != nil {
		metrics.FetchErrors.WithLabelValues("predict").Inc()
		return fmt.Errorf("predict: %w", err)
	}
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) {
		return fmt.Errorf("predict: invalid estimate %v", estimate)
	}
	return s.store.SetPredictedViewCount(ctx, v.VideoID, int64(math.Round(estimate)))
}
