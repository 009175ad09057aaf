package service

import "github.com/mathieu-neron/tube301/internal/model"

// Decision is what discovery does with a fetched candidate.
type Decision int

const (
	// DecisionSkip leaves the candidate alone; it may qualify later.
	DecisionSkip Decision = iota
	DecisionPersist
	DecisionBlacklist
)

func (d Decision) String() string {
	switch d {
	case DecisionPersist:
		return "persist"
	case DecisionBlacklist:
		return "blacklist"
	default:
		return "skip"
	}
}

// Classify decides a candidate from its fetched video and channel details.
// A nil argument means the platform returned nothing for it.
//
// Views only grow, so a video already past the target can never qualify and
// is blacklisted. One still below the target is skipped and may be seen again.
func Classify(video *model.VideoDetails, channel *model.ChannelDetails) Decision {
	if video == nil || channel == nil {
		return DecisionBlacklist
	}
	switch views := video.Statistics.ViewCount; {
	case views > model.TargetViewCount:
		return DecisionBlacklist
	case views == model.TargetViewCount:
		return DecisionPersist
	default:
		return DecisionSkip
	}
}
