package credit

import "lendcore/native/common"

// OnRepayment raises score by ScoreIncreasePerRepayment, saturating at
// MaxScore. Every call applies the full delta; deduplicating events is the
// caller's job.
func OnRepayment(score uint64, p Parameters) uint64 {
	return clampScore(common.SaturatingAdd(score, p.ScoreIncreasePerRepayment, p.MaxScore), p)
}

// OnLatePayment lowers score by ScoreDecreasePerLatePayment, saturating at
// MinScore.
func OnLatePayment(score uint64, p Parameters) uint64 {
	return clampScore(common.SaturatingSub(score, p.ScoreDecreasePerLatePayment, p.MinScore), p)
}

func clampScore(score uint64, p Parameters) uint64 {
	if score < p.MinScore {
		return p.MinScore
	}
	if score > p.MaxScore {
		return p.MaxScore
	}
	return score
}
