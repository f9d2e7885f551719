package entity

import "testing"

func TestServiceForAction(t *testing.T) {
	tests := []struct {
		domain  string
		action  string
		want    string
		ok      bool
	}{
		{"light", "on", "turn_on", true},
		{"light", "turn_on", "turn_on", true},
		{"light", "off", "turn_off", true},
		{"switch", "toggle", "toggle", true},
		{"fan", "enable", "turn_on", true},
		{"cover", "open", "open_cover", true},
		{"cover", "close", "close_cover", true},
		{"cover", "stop", "stop_cover", true},
		{"climate", "set_temperature", "set_temperature", true},
		{"climate", "set_mode", "set_hvac_mode", true},
		{"media_player", "play", "media_play", true},
		{"media_player", "volume_set", "volume_set", true},
		{"lock", "lock", "lock", true},

		// Unsupported combinations
		{"light", "set_temperature", "", false},
		{"sensor", "turn_on", "", false},
		{"binary_sensor", "toggle", "", false},
		{"sun", "on", "", false},
		{"light", "levitate", "", false},
	}

	for _, tt := range tests {
		got, ok := ServiceForAction(tt.domain, tt.action)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ServiceForAction(%q, %q) = (%q, %v), want (%q, %v)",
				tt.domain, tt.action, got, ok, tt.want, tt.ok)
		}
	}
}

func TestServiceForAction_CoverStopIsNotTurnOff(t *testing.T) {
	// "stop" on a cover must resolve to stop_cover, not the generic turn_off.
	got, ok := ServiceForAction("cover", "stop")
	if !ok || got != "stop_cover" {
		t.Errorf("ServiceForAction(cover, stop) = (%q, %v), want (stop_cover, true)", got, ok)
	}
}
