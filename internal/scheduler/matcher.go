// Package scheduler implements the time-windowed recurring budget rule
// scheduler: a pure matcher selecting due rules, an execution engine
// applying them against the marketplace, and the periodic runner.
package scheduler

import (
	"time"

	"shopops/internal/models"
)

// DueRules returns the subset of rules that are due at the given instant.
//
// A rule is a candidate when it is active, the instant's hour falls inside
// its half-open [hour_start, hour_end) window, and its recurrence fires on
// the instant's day. Among candidates for the same campaign, date-specific
// rules take precedence over weekly ones; duplicate rules of the same
// priority are resolved deterministically in favor of the most recently
// created rule, with the higher id winning a created_at tie.
//
// Output order carries no meaning to callers.
func DueRules(rules []models.BudgetScheduleRule, now time.Time) []models.BudgetScheduleRule {
	best := make(map[campaignKey]models.BudgetScheduleRule)
	order := make([]campaignKey, 0, len(rules))

	for _, rule := range rules {
		if !isCandidate(rule, now) {
			continue
		}
		key := campaignKey{shopID: rule.ShopID, campaignID: rule.CampaignID}
		current, seen := best[key]
		if !seen {
			best[key] = rule
			order = append(order, key)
			continue
		}
		if beats(rule, current) {
			best[key] = rule
		}
	}

	due := make([]models.BudgetScheduleRule, 0, len(order))
	for _, key := range order {
		due = append(due, best[key])
	}
	return due
}

// campaignKey scopes duplicate resolution to one shop's campaign; campaign
// ids are not assumed unique across shops.
type campaignKey struct {
	shopID     uint64
	campaignID uint64
}

func isCandidate(rule models.BudgetScheduleRule, now time.Time) bool {
	if !rule.IsActive {
		return false
	}
	hour := now.Hour()
	if hour < rule.HourStart || hour >= rule.HourEnd {
		return false
	}
	return rule.Recurrence.Matches(now)
}

// beats reports whether a should replace b as the authoritative rule for a
// campaign.
func beats(a, b models.BudgetScheduleRule) bool {
	pa, pb := priority(a), priority(b)
	if pa != pb {
		return pa > pb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func priority(rule models.BudgetScheduleRule) int {
	if rule.Recurrence.Kind == models.RecurrenceDates {
		return 1
	}
	return 0
}
