package entity

// Domain-specific action-to-service mappings. Most domains use the generic
// homeassistant-style verbs; cover, climate and media_player have their own
// service vocabularies.
var domainActions = map[string]map[string]string{
	"cover": {
		"open":  "open_cover",
		"close": "close_cover",
		"stop":  "stop_cover",
	},
	"climate": {
		"set_temperature": "set_temperature",
		"set_mode":        "set_hvac_mode",
		"set_hvac_mode":   "set_hvac_mode",
	},
	"media_player": {
		"play":       "media_play",
		"pause":      "media_pause",
		"stop":       "media_stop",
		"volume_set": "volume_set",
	},
	"lock": {
		"lock":   "lock",
		"unlock": "unlock",
	},
}

// genericActions map high-level verbs onto the turn_on/turn_off/toggle
// services shared by light, switch, fan, and most other domains.
var genericActions = map[string]string{
	"on":       "turn_on",
	"enable":   "turn_on",
	"start":    "turn_on",
	"turn_on":  "turn_on",
	"off":      "turn_off",
	"disable":  "turn_off",
	"stop":     "turn_off",
	"turn_off": "turn_off",
	"toggle":   "toggle",
}

// ServiceForAction resolves a high-level control action to the runtime
// service name for the given domain. The boolean is false when the domain
// does not support the action; this is the supported-action surface the
// Validator checks.
func ServiceForAction(domain, action string) (string, bool) {
	if actions, ok := domainActions[domain]; ok {
		if service, ok := actions[action]; ok {
			return service, true
		}
	}
	if service, ok := genericActions[action]; ok {
		// Read-only domains accept no control actions at all.
		if readOnlyDomain(domain) {
			return "", false
		}
		return service, true
	}
	return "", false
}

// SupportsService reports whether the given runtime service name belongs to
// the domain's service vocabulary, e.g. ("media_player", "media_play") or
// ("light", "turn_on").
func SupportsService(domain, service string) bool {
	if actions, ok := domainActions[domain]; ok {
		for _, s := range actions {
			if s == service {
				return true
			}
		}
	}
	_, ok := ServiceForAction(domain, service)
	return ok
}

// readOnlyDomain reports whether a domain only publishes state and cannot
// be commanded.
func readOnlyDomain(domain string) bool {
	switch domain {
	case "sensor", "binary_sensor", "sun", "weather", "person", "zone", "device_tracker":
		return true
	default:
		return false
	}
}
