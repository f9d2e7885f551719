// Package suggest mines the state event log for recurring behaviour and
// turns qualifying patterns into draft automations.
//
// Mining operates on an immutable point-in-time snapshot of the event log:
// transitions are bucketed by hour-of-day and day-of-week, trigger→effect
// pairs are counted within a short lag window, and pairs that clear the
// support threshold become ranked SuggestionCandidates, each carrying a
// synthesizer-rendered draft automation.
//
// This is a heuristic statistical process; false positives are expected.
// A candidate is never auto-deployed — Accept only hands the draft back to
// the caller, who runs it through validation and deployment testing like
// any other document.
package suggest
