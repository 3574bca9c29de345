// Package policy evaluates the trading-policy constraints a delegation
// attaches to an agent actor's mutations: per-intent/per-proposal bounds,
// quiet hours, the daily value cap, and high-value consent (spec.md §4.4).
package policy

import (
	"strconv"
	"strings"
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/engineerr"
)

// EvaluateIntent rejects an intent mutation that violates policy's bounds.
func EvaluateIntent(policyCfg types.DelegationPolicy, intent *types.SwapIntent) error {
	if policyCfg.MaxValuePerSwapUSD > 0 && intent.ValueBand.MaxUSD > policyCfg.MaxValuePerSwapUSD {
		return engineerr.ConstraintViolationf("value_band.max_usd %.2f exceeds policy max_value_per_swap_usd %.2f", intent.ValueBand.MaxUSD, policyCfg.MaxValuePerSwapUSD)
	}
	if policyCfg.MaxCycleLength > 0 && intent.TrustConstraints.MaxCycleLength > policyCfg.MaxCycleLength {
		return engineerr.ConstraintViolationf("trust_constraints.max_cycle_length %d exceeds policy max_cycle_length %d", intent.TrustConstraints.MaxCycleLength, policyCfg.MaxCycleLength)
	}
	if policyCfg.RequireEscrow && !intent.SettlementPreferences.RequireEscrow {
		return engineerr.ConstraintViolationf("policy requires escrow but intent does not")
	}
	return nil
}

// EvaluateProposal rejects a proposal that violates policy's bounds.
func EvaluateProposal(policyCfg types.DelegationPolicy, proposal *types.CycleProposal) error {
	if policyCfg.MaxCycleLength > 0 && len(proposal.Participants) > policyCfg.MaxCycleLength {
		return engineerr.ConstraintViolationf("proposal participants %d exceeds policy max_cycle_length %d", len(proposal.Participants), policyCfg.MaxCycleLength)
	}
	if policyCfg.MinConfidenceScore > 0 && proposal.ConfidenceScore < policyCfg.MinConfidenceScore {
		return engineerr.ConstraintViolationf("proposal confidence_score %.4f below policy min_confidence_score %.4f", proposal.ConfidenceScore, policyCfg.MinConfidenceScore)
	}
	return nil
}

// InQuietHours computes whether now (in tz) falls in [start, end), wrapping
// midnight when start > end and always-in-window when start == end.
func InQuietHours(qh *types.QuietHours, now time.Time) (bool, error) {
	if qh == nil || (qh.Start == "" && qh.End == "") {
		return false, nil
	}
	loc, err := time.LoadLocation(qh.TZ)
	if err != nil {
		return false, engineerr.ConstraintViolationf("invalid quiet_hours.tz %q", qh.TZ)
	}
	startMin, err := parseHHMM(qh.Start)
	if err != nil {
		return false, engineerr.ConstraintViolationf("invalid quiet_hours.start %q", qh.Start)
	}
	endMin, err := parseHHMM(qh.End)
	if err != nil {
		return false, engineerr.ConstraintViolationf("invalid quiet_hours.end %q", qh.End)
	}
	if startMin == endMin {
		return true, nil
	}
	local := now.In(loc)
	nowMin := local.Hour()*60 + local.Minute()
	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin, nil
	}
	// wraps midnight
	return nowMin >= startMin || nowMin < endMin, nil
}

func parseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, engineerr.ConstraintViolationf("malformed HH:MM %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, engineerr.ConstraintViolationf("malformed hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, engineerr.ConstraintViolationf("malformed minute in %q", s)
	}
	return h*60 + m, nil
}

// CheckDailyCap computes delta = active_max(next) - active_max(previous) and
// rejects the mutation if used+delta exceeds the per-day cap. On success it
// updates the running total in snap and returns nil.
func CheckDailyCap(snap *state.Snapshot, subject string, previous, next *types.SwapIntent, maxPerDayUSD float64, now time.Time) error {
	if maxPerDayUSD <= 0 {
		return nil
	}
	day := now.UTC().Format("2006-01-02")
	delta := activeMaxUSD(next) - activeMaxUSD(previous)

	byDay, ok := snap.PolicySpendDaily[subject]
	if !ok {
		byDay = make(map[string]float64)
		snap.PolicySpendDaily[subject] = byDay
	}
	used := byDay[day]
	if used+delta > maxPerDayUSD {
		return engineerr.Forbiddenf("daily_cap_exceeded", "spend_by_actor_day[%s][%s] would reach %.2f, exceeding %.2f", subject, day, used+delta, maxPerDayUSD)
	}
	byDay[day] = used + delta
	return nil
}

func activeMaxUSD(intent *types.SwapIntent) float64 {
	if intent == nil {
		return 0
	}
	return intent.ActiveMaxUSD()
}
