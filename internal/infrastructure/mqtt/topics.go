package mqtt

import "fmt"

// Topic prefixes.
//
// Inbound entity state flows over Home Assistant's MQTT Statestream
// integration: {statestream_prefix}/{domain}/{object_id}/state. The prefix
// is configurable (mqtt.statestream_prefix); the builders below take it as
// an argument so the helpers stay config-free.
//
// Outbound topics live under the homesynth/ prefix.
const (
	// TopicPrefix is the base for all topics this service publishes.
	TopicPrefix = "homesynth"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "homesynth/system"

	// TopicPrefixEvent is the base for pipeline event topics.
	TopicPrefixEvent = "homesynth/event"
)

// Topics provides builders for MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	pattern := topics.AllStatestreamStates("homeassistant/statestream")
//	// Returns: "homeassistant/statestream/+/+/state"
type Topics struct{}

// =============================================================================
// Statestream Topics (inbound)
// =============================================================================

// StatestreamState returns the state topic for one entity.
//
// Example: homeassistant/statestream/light/kitchen/state
func (Topics) StatestreamState(prefix, domain, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/state", prefix, domain, objectID)
}

// AllStatestreamStates returns a pattern matching every entity state topic
// under the statestream prefix.
//
// Pattern: homeassistant/statestream/+/+/state
func (Topics) AllStatestreamStates(prefix string) string {
	return fmt.Sprintf("%s/+/+/state", prefix)
}

// DomainStatestreamStates returns a pattern matching state topics for one
// domain.
//
// Pattern: homeassistant/statestream/light/+/state
func (Topics) DomainStatestreamStates(prefix, domain string) string {
	return fmt.Sprintf("%s/%s/+/state", prefix, domain)
}

// =============================================================================
// System Topics (outbound)
// =============================================================================

// SystemStatus returns the service status topic. Online/offline status and
// the LWT are published here, retained.
//
// Example: homesynth/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Event Topics (outbound)
// =============================================================================

// EventDeployment returns the topic for deployment outcomes of one
// document.
//
// Example: homesynth/event/deploy/automation/1f0a9c2d8e7b6a54
func (Topics) EventDeployment(kind, logicalID string) string {
	return fmt.Sprintf("%s/deploy/%s/%s", TopicPrefixEvent, kind, logicalID)
}

// EventSuggestions returns the topic announcing a completed mining run.
//
// Example: homesynth/event/suggestions
func (Topics) EventSuggestions() string {
	return fmt.Sprintf("%s/suggestions", TopicPrefixEvent)
}

// AllEvents returns a pattern matching all pipeline events.
//
// Pattern: homesynth/event/#
func (Topics) AllEvents() string {
	return TopicPrefixEvent + "/#"
}
