package suggest

import (
	"context"
	"sort"
	"time"

	"github.com/dwrignell/homesynth/internal/entity"
	"github.com/dwrignell/homesynth/internal/infrastructure/config"
)

// triggerDomains are the observation domains whose transitions can act as
// pattern triggers.
var triggerDomains = map[string]bool{
	"binary_sensor": true, "sensor": true, "device_tracker": true, "person": true,
}

// excludedTargetDomains publish state but cannot be commanded, so they
// never appear as pattern effects.
var excludedTargetDomains = map[string]bool{
	"sensor": true, "binary_sensor": true, "sun": true, "weather": true,
}

// PatternKind distinguishes the mined pattern families.
type PatternKind string

const (
	// PatternCoOccurrence links a trigger transition to an effect observed
	// within the lag window.
	PatternCoOccurrence PatternKind = "co_occurrence"

	// PatternDaily is an actionable transition recurring in the same hour
	// of day across distinct days, with no observed trigger.
	PatternDaily PatternKind = "daily"
)

// Pattern is one mined behavioural regularity: either a trigger→effect
// correlation, or a daily schedule (TriggerEntity/TriggerState empty).
type Pattern struct {
	Kind          PatternKind `json:"pattern_kind"`
	TriggerEntity string      `json:"trigger_entity,omitempty"`
	TriggerState  string      `json:"trigger_state,omitempty"`
	TargetEntity  string      `json:"target_entity"`
	TargetState   string      `json:"target_state"`
	Support       int         `json:"support"`
	Confidence    float64     `json:"confidence"`

	// Modal time bucket of the observed occurrences.
	Hour    int          `json:"hour"`
	Weekday time.Weekday `json:"weekday"`
}

// Miner extracts patterns from event log snapshots.
//
// Thread Safety: Mine is pure over its input and safe to run concurrently
// with validation and deployment.
type Miner struct {
	cfg config.SuggestionsConfig
}

// NewMiner creates a miner with the given knobs.
func NewMiner(cfg config.SuggestionsConfig) *Miner {
	return &Miner{cfg: cfg}
}

// pairKey identifies one candidate trigger→effect pair.
type pairKey struct {
	triggerEntity, triggerState string
	targetEntity, targetState   string
}

// bucket is an hour-of-day × day-of-week cell.
type bucket struct {
	hour    int
	weekday time.Weekday
}

type pairStats struct {
	support int
	buckets map[bucket]int
}

// Mine scans the snapshot for trigger→effect co-occurrences within the lag
// window and returns qualifying patterns ranked by confidence, support,
// then entity id. The result is truncated to the configured maximum.
//
// Mining checks for cancellation between trigger entities, never
// mid-entity, so a cancelled run still returns coherent partial counts as
// an error, not a half-counted pattern.
func (m *Miner) Mine(ctx context.Context, events []entity.StateEvent) ([]Pattern, error) {
	ordered := make([]entity.StateEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	// Group each trigger entity's transition positions so the scan can be
	// cancelled cleanly between entities.
	triggerPositions := make(map[string][]int)
	transitions := make(map[string]map[string]int) // entity → state → count
	for i, ev := range ordered {
		if ev.NewState == ev.OldState || ev.NewState == "" {
			continue
		}
		domain := entity.DomainOf(ev.EntityID)
		if !triggerDomains[domain] {
			continue
		}
		triggerPositions[ev.EntityID] = append(triggerPositions[ev.EntityID], i)
		if transitions[ev.EntityID] == nil {
			transitions[ev.EntityID] = make(map[string]int)
		}
		transitions[ev.EntityID][ev.NewState]++
	}

	triggerEntities := make([]string, 0, len(triggerPositions))
	for id := range triggerPositions {
		triggerEntities = append(triggerEntities, id)
	}
	sort.Strings(triggerEntities)

	lag := m.cfg.Lag()
	pairs := make(map[pairKey]*pairStats)

	for _, triggerEntity := range triggerEntities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, pos := range triggerPositions[triggerEntity] {
			trigger := ordered[pos]
			deadline := trigger.Timestamp.Add(lag)

			// One trigger transition supports each target pair at most
			// once, so confidence stays within [0, 1].
			seen := make(map[pairKey]bool)
			for _, effect := range ordered[pos+1:] {
				if effect.Timestamp.After(deadline) {
					break
				}
				if !targetCandidate(effect, triggerEntity) {
					continue
				}
				key := pairKey{
					triggerEntity: triggerEntity,
					triggerState:  trigger.NewState,
					targetEntity:  effect.EntityID,
					targetState:   effect.NewState,
				}
				if seen[key] {
					continue
				}
				seen[key] = true

				stats := pairs[key]
				if stats == nil {
					stats = &pairStats{buckets: make(map[bucket]int)}
					pairs[key] = stats
				}
				stats.support++
				ts := trigger.Timestamp.UTC()
				stats.buckets[bucket{hour: ts.Hour(), weekday: ts.Weekday()}]++
			}
		}
	}

	threshold := m.cfg.Threshold
	if threshold < 1 {
		threshold = 1
	}

	var patterns []Pattern
	for key, stats := range pairs {
		if stats.support < threshold {
			continue
		}
		total := transitions[key.triggerEntity][key.triggerState]
		if total == 0 {
			continue
		}
		hour, weekday := modalBucket(stats.buckets)
		patterns = append(patterns, Pattern{
			Kind:          PatternCoOccurrence,
			TriggerEntity: key.triggerEntity,
			TriggerState:  key.triggerState,
			TargetEntity:  key.targetEntity,
			TargetState:   key.targetState,
			Support:       stats.support,
			Confidence:    float64(stats.support) / float64(total),
			Hour:          hour,
			Weekday:       weekday,
		})
	}

	rankPatterns(patterns)
	return m.truncate(patterns), nil
}

// MineDaily scans the snapshot for actionable transitions that recur in
// the same hour of day across distinct days: a porch light switched on
// around 19:00 every evening, with no sensor transition explaining it.
// Support counts the days the transition landed in its modal hour;
// confidence divides by all days the entity made that transition.
func (m *Miner) MineDaily(ctx context.Context, events []entity.StateEvent) ([]Pattern, error) {
	type transitionKey struct {
		entityID, state string
	}
	type hourStats struct {
		days     map[string]bool
		weekdays map[time.Weekday]int
	}

	hours := make(map[transitionKey]map[int]*hourStats)
	allDays := make(map[transitionKey]map[string]bool)

	for _, ev := range events {
		if ev.NewState == ev.OldState || ev.NewState == "" {
			continue
		}
		domain := entity.DomainOf(ev.EntityID)
		if domain == "" || excludedTargetDomains[domain] || triggerDomains[domain] {
			continue
		}
		ts := ev.Timestamp.UTC()
		key := transitionKey{entityID: ev.EntityID, state: ev.NewState}
		day := ts.Format(time.DateOnly)

		if hours[key] == nil {
			hours[key] = make(map[int]*hourStats)
		}
		hs := hours[key][ts.Hour()]
		if hs == nil {
			hs = &hourStats{days: make(map[string]bool), weekdays: make(map[time.Weekday]int)}
			hours[key][ts.Hour()] = hs
		}
		hs.days[day] = true
		hs.weekdays[ts.Weekday()]++

		if allDays[key] == nil {
			allDays[key] = make(map[string]bool)
		}
		allDays[key][day] = true
	}

	keys := make([]transitionKey, 0, len(hours))
	for key := range hours {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].entityID != keys[j].entityID {
			return keys[i].entityID < keys[j].entityID
		}
		return keys[i].state < keys[j].state
	})

	threshold := m.cfg.Threshold
	if threshold < 1 {
		threshold = 1
	}

	var patterns []Pattern
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Modal hour by distinct-day count; ties go to the earlier hour.
		bestHour, bestDays := -1, 0
		for hour, hs := range hours[key] {
			if len(hs.days) > bestDays || (len(hs.days) == bestDays && hour < bestHour) {
				bestHour, bestDays = hour, len(hs.days)
			}
		}
		if bestDays < threshold {
			continue
		}

		weekday := time.Sunday
		bestCount := -1
		for wd, count := range hours[key][bestHour].weekdays {
			if count > bestCount || (count == bestCount && wd < weekday) {
				weekday, bestCount = wd, count
			}
		}

		patterns = append(patterns, Pattern{
			Kind:         PatternDaily,
			TargetEntity: key.entityID,
			TargetState:  key.state,
			Support:      bestDays,
			Confidence:   float64(bestDays) / float64(len(allDays[key])),
			Hour:         bestHour,
			Weekday:      weekday,
		})
	}

	rankPatterns(patterns)
	return m.truncate(patterns), nil
}

// Merge combines pattern lists into one ranking. Daily patterns whose
// target transition already appears as the effect of a co-occurrence
// pattern are dropped: the event-driven automation subsumes the schedule.
func (m *Miner) Merge(lists ...[]Pattern) []Pattern {
	explained := make(map[string]bool)
	for _, list := range lists {
		for _, p := range list {
			if p.Kind == PatternCoOccurrence {
				explained[p.TargetEntity+"|"+p.TargetState] = true
			}
		}
	}

	var merged []Pattern
	for _, list := range lists {
		for _, p := range list {
			if p.Kind == PatternDaily && explained[p.TargetEntity+"|"+p.TargetState] {
				continue
			}
			merged = append(merged, p)
		}
	}

	rankPatterns(merged)
	return m.truncate(merged)
}

// rankPatterns orders by confidence, support, then entity ids for
// deterministic output.
func rankPatterns(patterns []Pattern) {
	sort.Slice(patterns, func(i, j int) bool {
		a, b := patterns[i], patterns[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Support != b.Support {
			return a.Support > b.Support
		}
		if a.TriggerEntity != b.TriggerEntity {
			return a.TriggerEntity < b.TriggerEntity
		}
		return a.TargetEntity < b.TargetEntity
	})
}

// truncate caps a ranked pattern list at the configured maximum.
func (m *Miner) truncate(patterns []Pattern) []Pattern {
	if limit := m.cfg.MaxSuggestions; limit > 0 && len(patterns) > limit {
		return patterns[:limit]
	}
	return patterns
}

// targetCandidate reports whether an event can act as the effect half of a
// pattern triggered by triggerEntity.
func targetCandidate(ev entity.StateEvent, triggerEntity string) bool {
	if ev.EntityID == triggerEntity {
		return false
	}
	if ev.NewState == ev.OldState || ev.NewState == "" {
		return false
	}
	domain := entity.DomainOf(ev.EntityID)
	if domain == "" || excludedTargetDomains[domain] || triggerDomains[domain] {
		return false
	}
	return true
}

// modalBucket returns the most frequent time bucket, breaking ties by the
// earlier weekday then hour for determinism.
func modalBucket(buckets map[bucket]int) (int, time.Weekday) {
	var best bucket
	bestCount := -1
	for b, count := range buckets {
		if count > bestCount ||
			(count == bestCount && (b.weekday < best.weekday ||
				(b.weekday == best.weekday && b.hour < best.hour))) {
			best, bestCount = b, count
		}
	}
	return best.hour, best.weekday
}
