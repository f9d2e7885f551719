package suggest

import (
	"context"
	"testing"
	"time"

	"github.com/dwrignell/homesynth/internal/entity"
	"github.com/dwrignell/homesynth/internal/infrastructure/config"
)

func testKnobs() config.SuggestionsConfig {
	return config.SuggestionsConfig{
		Threshold:      3,
		MaxSuggestions: 5,
		WindowDays:     7,
		LagSeconds:     60,
	}
}

// motionThenLight emits n motion→light co-occurrences spread over distinct
// days, each effect within 30 seconds of its trigger. The lights-off times
// drift across hours so they form no schedule of their own.
func motionThenLight(n int) []entity.StateEvent {
	base := time.Date(2026, 8, 1, 18, 0, 0, 0, time.UTC)
	var events []entity.StateEvent
	for i := 0; i < n; i++ {
		at := base.AddDate(0, 0, i)
		events = append(events,
			entity.StateEvent{EntityID: "binary_sensor.motion", OldState: "off", NewState: "on", Timestamp: at},
			entity.StateEvent{EntityID: "light.hallway", OldState: "off", NewState: "on", Timestamp: at.Add(30 * time.Second)},
			entity.StateEvent{EntityID: "binary_sensor.motion", OldState: "on", NewState: "off", Timestamp: at.Add(5 * time.Minute)},
			entity.StateEvent{EntityID: "light.hallway", OldState: "on", NewState: "off", Timestamp: at.Add(time.Duration(2+i) * time.Hour)},
		)
	}
	return events
}

func TestMine_MotionLightPattern(t *testing.T) {
	m := NewMiner(testKnobs())

	patterns, err := m.Mine(context.Background(), motionThenLight(5))
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}

	// motion→off is followed by light→off hours later, far outside the lag
	// window, so only the on-transition pair qualifies.
	if len(patterns) != 1 {
		t.Fatalf("patterns = %+v, want exactly one", patterns)
	}
	p := patterns[0]
	if p.Kind != PatternCoOccurrence {
		t.Errorf("Kind = %q, want co_occurrence", p.Kind)
	}
	if p.TriggerEntity != "binary_sensor.motion" || p.TriggerState != "on" {
		t.Errorf("trigger = %s→%s", p.TriggerEntity, p.TriggerState)
	}
	if p.TargetEntity != "light.hallway" || p.TargetState != "on" {
		t.Errorf("target = %s→%s", p.TargetEntity, p.TargetState)
	}
	if p.Support != 5 {
		t.Errorf("Support = %d, want 5", p.Support)
	}
	if p.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", p.Confidence)
	}
	if p.Hour != 18 {
		t.Errorf("Hour = %d, want 18", p.Hour)
	}
}

func TestMine_BelowThreshold(t *testing.T) {
	m := NewMiner(testKnobs())

	patterns, err := m.Mine(context.Background(), motionThenLight(2))
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("patterns = %+v, want none below support threshold", patterns)
	}
}

func TestMine_ThresholdMonotonicity(t *testing.T) {
	// Raising the threshold must never increase the suggestion count.
	events := append(motionThenLight(5),
		entity.StateEvent{EntityID: "binary_sensor.door", OldState: "off", NewState: "on",
			Timestamp: time.Date(2026, 8, 1, 7, 0, 0, 0, time.UTC)},
		entity.StateEvent{EntityID: "switch.coffee", OldState: "off", NewState: "on",
			Timestamp: time.Date(2026, 8, 1, 7, 0, 10, 0, time.UTC)},
		entity.StateEvent{EntityID: "binary_sensor.door", OldState: "on", NewState: "off",
			Timestamp: time.Date(2026, 8, 1, 7, 30, 0, 0, time.UTC)},
		entity.StateEvent{EntityID: "binary_sensor.door", OldState: "off", NewState: "on",
			Timestamp: time.Date(2026, 8, 2, 7, 0, 0, 0, time.UTC)},
		entity.StateEvent{EntityID: "switch.coffee", OldState: "off", NewState: "on",
			Timestamp: time.Date(2026, 8, 2, 7, 0, 10, 0, time.UTC)},
	)

	prev := -1
	for threshold := 1; threshold <= 6; threshold++ {
		cfg := testKnobs()
		cfg.Threshold = threshold
		cfg.MaxSuggestions = 100
		patterns, err := NewMiner(cfg).Mine(context.Background(), events)
		if err != nil {
			t.Fatalf("Mine() error = %v", err)
		}
		if prev >= 0 && len(patterns) > prev {
			t.Errorf("threshold %d yielded %d patterns, more than %d at threshold %d",
				threshold, len(patterns), prev, threshold-1)
		}
		prev = len(patterns)
	}
}

func TestMine_ConfidenceBounds(t *testing.T) {
	// Motion fires 6 times; the light follows only 4 of them.
	base := time.Date(2026, 8, 1, 18, 0, 0, 0, time.UTC)
	var events []entity.StateEvent
	for i := 0; i < 6; i++ {
		at := base.AddDate(0, 0, i)
		events = append(events, entity.StateEvent{
			EntityID: "binary_sensor.motion", OldState: "off", NewState: "on", Timestamp: at,
		})
		if i < 4 {
			events = append(events, entity.StateEvent{
				EntityID: "light.hallway", OldState: "off", NewState: "on", Timestamp: at.Add(20 * time.Second),
			})
		}
	}

	patterns, err := NewMiner(testKnobs()).Mine(context.Background(), events)
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("patterns = %+v, want one", patterns)
	}
	p := patterns[0]
	if p.Support != 4 {
		t.Errorf("Support = %d, want 4", p.Support)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		t.Errorf("Confidence = %v, out of [0, 1]", p.Confidence)
	}
	if want := 4.0 / 6.0; p.Confidence != want {
		t.Errorf("Confidence = %v, want %v", p.Confidence, want)
	}
	if p.Support > 6 {
		t.Errorf("Support = %d exceeds trigger transition count", p.Support)
	}
}

func TestMine_ReadOnlyTargetsExcluded(t *testing.T) {
	// A sensor reacting to motion is an observation, not a controllable
	// effect; no pattern should be mined.
	base := time.Date(2026, 8, 1, 18, 0, 0, 0, time.UTC)
	var events []entity.StateEvent
	for i := 0; i < 5; i++ {
		at := base.AddDate(0, 0, i)
		events = append(events,
			entity.StateEvent{EntityID: "binary_sensor.motion", OldState: "off", NewState: "on", Timestamp: at},
			entity.StateEvent{EntityID: "sensor.luminance", OldState: "10", NewState: "80", Timestamp: at.Add(5 * time.Second)},
		)
	}

	patterns, err := NewMiner(testKnobs()).Mine(context.Background(), events)
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("patterns = %+v, want none for read-only targets", patterns)
	}
}

func TestMine_RankingAndTruncation(t *testing.T) {
	// Two patterns with different confidence; cap the output at one.
	base := time.Date(2026, 8, 1, 18, 0, 0, 0, time.UTC)
	var events []entity.StateEvent
	for i := 0; i < 6; i++ {
		at := base.AddDate(0, 0, i)
		// Perfectly reliable pair.
		events = append(events,
			entity.StateEvent{EntityID: "binary_sensor.motion", OldState: "off", NewState: "on", Timestamp: at},
			entity.StateEvent{EntityID: "light.hallway", OldState: "off", NewState: "on", Timestamp: at.Add(10 * time.Second)},
		)
		// Less reliable pair: door opens 6 times, fan follows 3 times.
		events = append(events, entity.StateEvent{
			EntityID: "binary_sensor.door", OldState: "off", NewState: "on", Timestamp: at.Add(time.Hour),
		})
		if i < 3 {
			events = append(events, entity.StateEvent{
				EntityID: "fan.hallway", OldState: "off", NewState: "on", Timestamp: at.Add(time.Hour + 10*time.Second),
			})
		}
	}

	cfg := testKnobs()
	cfg.MaxSuggestions = 100
	patterns, err := NewMiner(cfg).Mine(context.Background(), events)
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("patterns = %+v, want two", patterns)
	}
	if patterns[0].TargetEntity != "light.hallway" {
		t.Errorf("patterns[0] = %+v, want the higher-confidence pair first", patterns[0])
	}

	cfg.MaxSuggestions = 1
	truncated, err := NewMiner(cfg).Mine(context.Background(), events)
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if len(truncated) != 1 || truncated[0].TargetEntity != "light.hallway" {
		t.Errorf("truncated = %+v, want only the top pattern", truncated)
	}
}

func TestMine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewMiner(testKnobs()).Mine(ctx, motionThenLight(5)); err == nil {
		t.Error("Mine() with cancelled context returned nil error")
	}
}

// porchLightEvenings emits a porch light switched on around 19:00 across n
// distinct days, with no sensor transition explaining it. The off times
// drift across hours.
func porchLightEvenings(n int) []entity.StateEvent {
	base := time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC)
	var events []entity.StateEvent
	for i := 0; i < n; i++ {
		at := base.AddDate(0, 0, i).Add(time.Duration(i) * time.Minute)
		events = append(events,
			entity.StateEvent{EntityID: "light.porch", OldState: "off", NewState: "on", Timestamp: at},
			entity.StateEvent{EntityID: "light.porch", OldState: "on", NewState: "off", Timestamp: at.Add(time.Duration(3+i) * time.Hour)},
		)
	}
	return events
}

func TestMineDaily_EveningLamp(t *testing.T) {
	patterns, err := NewMiner(testKnobs()).MineDaily(context.Background(), porchLightEvenings(5))
	if err != nil {
		t.Fatalf("MineDaily() error = %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("patterns = %+v, want exactly one", patterns)
	}

	p := patterns[0]
	if p.Kind != PatternDaily {
		t.Errorf("Kind = %q, want daily", p.Kind)
	}
	if p.TriggerEntity != "" || p.TriggerState != "" {
		t.Errorf("daily pattern carries a trigger: %s→%s", p.TriggerEntity, p.TriggerState)
	}
	if p.TargetEntity != "light.porch" || p.TargetState != "on" {
		t.Errorf("target = %s→%s", p.TargetEntity, p.TargetState)
	}
	if p.Support != 5 {
		t.Errorf("Support = %d, want 5", p.Support)
	}
	if p.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", p.Confidence)
	}
	if p.Hour != 19 {
		t.Errorf("Hour = %d, want 19", p.Hour)
	}
}

func TestMineDaily_BelowThreshold(t *testing.T) {
	patterns, err := NewMiner(testKnobs()).MineDaily(context.Background(), porchLightEvenings(2))
	if err != nil {
		t.Fatalf("MineDaily() error = %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("patterns = %+v, want none below support threshold", patterns)
	}
}

func TestMineDaily_IrregularTimesExcluded(t *testing.T) {
	// Switched on at a different hour each day: no schedule to find.
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var events []entity.StateEvent
	for i := 0; i < 5; i++ {
		at := base.AddDate(0, 0, i).Add(time.Duration(6+3*i) * time.Hour)
		events = append(events, entity.StateEvent{
			EntityID: "light.porch", OldState: "off", NewState: "on", Timestamp: at,
		})
	}

	patterns, err := NewMiner(testKnobs()).MineDaily(context.Background(), events)
	if err != nil {
		t.Fatalf("MineDaily() error = %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("patterns = %+v, want none for irregular times", patterns)
	}
}

func TestMineDaily_ObservationDomainsExcluded(t *testing.T) {
	// A motion sensor firing every evening is an observation; schedules are
	// only proposed for entities that can be commanded.
	base := time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC)
	var events []entity.StateEvent
	for i := 0; i < 5; i++ {
		events = append(events, entity.StateEvent{
			EntityID: "binary_sensor.motion", OldState: "off", NewState: "on",
			Timestamp: base.AddDate(0, 0, i),
		})
	}

	patterns, err := NewMiner(testKnobs()).MineDaily(context.Background(), events)
	if err != nil {
		t.Fatalf("MineDaily() error = %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("patterns = %+v, want none for observation domains", patterns)
	}
}

func TestMerge_CoOccurrenceSubsumesDaily(t *testing.T) {
	co := []Pattern{{
		Kind:          PatternCoOccurrence,
		TriggerEntity: "binary_sensor.motion", TriggerState: "on",
		TargetEntity: "light.hallway", TargetState: "on",
		Support: 5, Confidence: 1.0, Hour: 18,
	}}
	daily := []Pattern{
		{Kind: PatternDaily, TargetEntity: "light.hallway", TargetState: "on",
			Support: 5, Confidence: 1.0, Hour: 18},
		{Kind: PatternDaily, TargetEntity: "light.porch", TargetState: "on",
			Support: 4, Confidence: 0.8, Hour: 19},
	}

	merged := NewMiner(testKnobs()).Merge(co, daily)
	if len(merged) != 2 {
		t.Fatalf("merged = %+v, want the schedule for the hallway dropped", merged)
	}
	if merged[0].Kind != PatternCoOccurrence {
		t.Errorf("merged[0].Kind = %q, want the co-occurrence ranked first", merged[0].Kind)
	}
	if merged[1].TargetEntity != "light.porch" {
		t.Errorf("merged[1].TargetEntity = %q, want light.porch", merged[1].TargetEntity)
	}
}
