package ingest

import (
	"errors"
	"fmt"

	"github.com/xpanvictor/annotator/internal/domains/recording"
)

// Action is what the loop does after a message failed.
type Action string

const (
	// Halt stops the loop and returns the error to its caller.
	Halt Action = "halt"
	// Skip records the failure, dead-letters the payload and continues.
	Skip Action = "skip"
)

// ParseAction accepts the config spelling of an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case Halt, Skip:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown failure action %q", s)
}

// FailureKind classifies why a message could not be ingested.
type FailureKind string

const (
	FailureDecode      FailureKind = "decode"
	FailureStorage     FailureKind = "storage"
	FailurePersistence FailureKind = "persistence"
)

// Policy maps each failure class to an action. The zero value halts on
// everything, which is also DefaultPolicy.
type Policy struct {
	OnDecode      Action
	OnStorage     Action
	OnPersistence Action
}

// DefaultPolicy stops at the first failure of any kind.
var DefaultPolicy = Policy{OnDecode: Halt, OnStorage: Halt, OnPersistence: Halt}

// SkipAll keeps consuming regardless of failures.
var SkipAll = Policy{OnDecode: Skip, OnStorage: Skip, OnPersistence: Skip}

func (p Policy) For(kind FailureKind) Action {
	var a Action
	switch kind {
	case FailureDecode:
		a = p.OnDecode
	case FailureStorage:
		a = p.OnStorage
	case FailurePersistence:
		a = p.OnPersistence
	}
	if a == "" {
		return Halt
	}
	return a
}

// Classify maps an ingestion error onto a FailureKind. Errors outside the
// taxonomy count as persistence failures.
func Classify(err error) FailureKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return FailureDecode
	}
	if recording.FailedLayer(err) == recording.LayerAudio {
		return FailureStorage
	}
	return FailurePersistence
}

// HaltError is returned by Loop.Run when the policy stopped the loop.
type HaltError struct {
	Kind FailureKind
	Err  error
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("ingestion halted on %s failure: %v", e.Kind, e.Err)
}

func (e *HaltError) Unwrap() error { return e.Err }

// ReceiveError is returned by Loop.Run when the queue could not be read
// within the retry budget.
type ReceiveError struct {
	Err error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("queue receive failed: %v", e.Err)
}

func (e *ReceiveError) Unwrap() error { return e.Err }
