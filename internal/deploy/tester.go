package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dwrignell/homesynth/internal/audit"
	"github.com/dwrignell/homesynth/internal/document"
	"github.com/dwrignell/homesynth/internal/entity"
)

// ErrNotValidated is returned when a document that has not passed
// validation is submitted for deployment testing.
var ErrNotValidated = errors.New("deploy: document has not passed validation")

// ErrTestFailed marks a deployment test that failed and was rolled back.
// The Outcome carries the details.
var ErrTestFailed = errors.New("deploy: deployment test failed")

// defaultCheckTimeout bounds one config-check invocation.
const defaultCheckTimeout = 30 * time.Second

// Checker is the external config-check capability.
type Checker interface {
	CheckConfig(ctx context.Context) (*entity.CheckResult, error)
}

// OutcomeRecorder receives the result of every deployment test cycle.
// Optional; the long-term archive implements it so pass rates can be
// graphed over time.
type OutcomeRecorder interface {
	WriteDeploymentOutcome(kind string, logicalID string, passed bool, rolledBack bool)
}

// Logger is the minimal logging interface the tester needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Outcome is the result of one deployment test. RollbackPerformed reports
// that a failed candidate was discarded and the previously deployed
// revision, if any, kept in place.
type Outcome struct {
	Passed            bool   `json:"passed"`
	RollbackPerformed bool   `json:"rollback_performed"`
	Details           string `json:"details,omitempty"`
}

// Tester runs the stage/check/promote protocol over the document store.
//
// Thread Safety: Test serializes internally; callers may invoke it
// concurrently but only one deployment cycle runs at a time.
type Tester struct {
	docs         document.Repository
	checker      Checker
	audit        audit.Repository
	recorder     OutcomeRecorder
	logger       Logger
	checkTimeout time.Duration

	mu sync.Mutex // single-writer discipline over the deployed tree
}

// NewTester creates a deployment tester.
func NewTester(docs document.Repository, checker Checker, auditRepo audit.Repository) *Tester {
	return &Tester{
		docs:         docs,
		checker:      checker,
		audit:        auditRepo,
		logger:       noopLogger{},
		checkTimeout: defaultCheckTimeout,
	}
}

// SetLogger sets the logger for the tester.
func (t *Tester) SetLogger(logger Logger) {
	t.logger = logger
}

// SetCheckTimeout overrides the config-check timeout.
func (t *Tester) SetCheckTimeout(d time.Duration) {
	t.checkTimeout = d
}

// SetRecorder forwards every test-cycle outcome to the given recorder.
func (t *Tester) SetRecorder(recorder OutcomeRecorder) {
	t.recorder = recorder
}

// Test stages the document, runs the external config check, and promotes or
// rolls back. The document must already carry StatusValid; the tester never
// substitutes for validation — it exists to catch cross-document and
// runtime-level problems validation cannot see in isolation.
//
// Promote is the only write into the deployed tree, so a failed check
// leaves the tree bit-for-bit unchanged, timestamps included; rollback is
// the discarding of the staged candidate. On failure the returned error
// wraps ErrTestFailed and the Outcome is populated either way.
func (t *Tester) Test(ctx context.Context, doc *document.Document) (Outcome, error) {
	if doc.Status != document.StatusValid {
		return Outcome{}, fmt.Errorf("%w: %s/%s has status %q",
			ErrNotValidated, doc.Kind, doc.LogicalID, doc.Status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.logger.Info("deployment test starting",
		"kind", doc.Kind, "logical_id", doc.LogicalID)

	if err := t.docs.Stage(ctx, doc); err != nil {
		return Outcome{}, fmt.Errorf("staging candidate: %w", err)
	}
	// Staged artifacts are cleaned up on every exit path. Promote removes
	// the row itself; DiscardStaged is idempotent, so the defer is safe
	// after either outcome.
	defer func() {
		if err := t.docs.DiscardStaged(context.WithoutCancel(ctx), doc.Kind, doc.LogicalID); err != nil {
			t.logger.Error("discarding staged artifact",
				"kind", doc.Kind, "logical_id", doc.LogicalID, "error", err)
		}
	}()

	checkCtx, cancel := context.WithTimeout(ctx, t.checkTimeout)
	result, err := t.checker.CheckConfig(checkCtx)
	cancel()

	if err != nil || !result.OK {
		details := checkDetails(result, err)
		outcome := Outcome{Passed: false, RollbackPerformed: true, Details: details}

		t.logger.Warn("deployment test failed",
			"kind", doc.Kind, "logical_id", doc.LogicalID, "details", details)
		t.record(ctx, audit.ActionDeploy, doc, map[string]any{
			"passed": false, "details": details,
		})
		t.record(ctx, audit.ActionRollback, doc, map[string]any{"ok": true})
		t.recordOutcome(doc, outcome)
		return outcome, fmt.Errorf("%w: %s", ErrTestFailed, details)
	}

	if err := t.docs.Promote(ctx, doc); err != nil {
		return Outcome{}, fmt.Errorf("promoting staged document: %w", err)
	}

	t.logger.Info("deployment test passed",
		"kind", doc.Kind, "logical_id", doc.LogicalID)
	t.record(ctx, audit.ActionDeploy, doc, map[string]any{"passed": true})
	outcome := Outcome{Passed: true}
	t.recordOutcome(doc, outcome)
	return outcome, nil
}

// recordOutcome forwards the cycle result to the archive, if one is wired.
func (t *Tester) recordOutcome(doc *document.Document, outcome Outcome) {
	if t.recorder == nil {
		return
	}
	t.recorder.WriteDeploymentOutcome(string(doc.Kind), doc.LogicalID,
		outcome.Passed, outcome.RollbackPerformed)
}

// record writes one audit entry; audit failures are logged, never allowed
// to fail a deployment cycle.
func (t *Tester) record(ctx context.Context, action string, doc *document.Document, details map[string]any) {
	if t.audit == nil {
		return
	}
	entry := &audit.AuditLog{
		Action:  action,
		DocKind: string(doc.Kind),
		DocID:   doc.LogicalID,
		Details: details,
	}
	if err := t.audit.Create(context.WithoutCancel(ctx), entry); err != nil {
		t.logger.Error("writing audit record", "action", action, "error", err)
	}
}

// checkDetails flattens a check result and transport error into one
// human-readable line.
func checkDetails(result *entity.CheckResult, err error) string {
	if err != nil {
		if errors.Is(err, entity.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return "config check timed out"
		}
		return "config check unavailable: " + err.Error()
	}
	if len(result.Errors) == 0 {
		return "config check rejected the candidate"
	}
	return strings.Join(result.Errors, "; ")
}
