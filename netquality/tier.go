package netquality

// Tier is a recommended playback quality ceiling, ordered lowest to full.
type Tier int

const (
	TierLowest Tier = iota
	TierLow
	TierSD
	TierHD
	TierFull
)

func (t Tier) String() string {
	switch t {
	case TierLowest:
		return "lowest"
	case TierLow:
		return "low"
	case TierSD:
		return "sd"
	case TierHD:
		return "hd"
	case TierFull:
		return "full"
	default:
		return "unknown"
	}
}

// RecommendTier returns the lower of the tier implied by score and the
// tier the raw bandwidth (bits/sec) can sustain.
func RecommendTier(score, bandwidth float64) Tier {
	return min(scoreTier(score), bandwidthTier(bandwidth/1e6))
}

func scoreTier(score float64) Tier {
	switch {
	case score >= 0.8:
		return TierFull
	case score >= 0.6:
		return TierHD
	case score >= 0.4:
		return TierSD
	case score >= 0.2:
		return TierLow
	default:
		return TierLowest
	}
}

func bandwidthTier(mbps float64) Tier {
	switch {
	case mbps >= 15:
		return TierFull
	case mbps >= 2.5:
		return TierHD
	case mbps >= 1:
		return TierSD
	case mbps >= 0.5:
		return TierLow
	default:
		return TierLowest
	}
}
