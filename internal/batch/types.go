package batch

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-kgbuild/internal/enrich"
	"github.com/yungbote/neurobridge-kgbuild/internal/parse"
)

type ItemState string

const (
	ItemPending     ItemState = "pending"
	ItemInProgress  ItemState = "in_progress"
	ItemRateLimited ItemState = "rate_limited"
	ItemSucceeded   ItemState = "succeeded"
	ItemFailed      ItemState = "failed"
)

type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunAborted   RunState = "aborted"
)

// PromptFunc builds the prompt for one key.
type PromptFunc func(key string) (string, error)

// Stage is one use of the driver: how to ask about a key and how to read the answer.
type Stage struct {
	Name    string
	Prompt  PromptFunc
	Parser  parse.Parser
	Options enrich.Options
}

// RetryPolicy bounds rate-limit handling. An item is sent at most
// 1+MaxRetries times; waits grow from BaseBackoff and never exceed MaxBackoff.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Progress is reported on every item state change.
type Progress struct {
	RunID   uuid.UUID
	Stage   string
	Index   int
	Total   int
	Key     string
	State   ItemState
	Attempt int
	Wait    time.Duration
	Raw     string
	Err     error
}

// Report summarizes one run.
type Report struct {
	RunID       uuid.UUID
	Stage       string
	State       RunState
	Universe    int
	AlreadyDone int
	Pending     []string
	Succeeded   []string
	Calls       int
	Started     time.Time
	Finished    time.Time
}

// ErrRetriesExhausted marks a rate limit that outlasted the retry budget.
var ErrRetriesExhausted = errors.New("rate limit retries exhausted")

// AbortError is returned when a run stops on an unrecoverable item error. The
// checkpoint has already been saved with every item completed before Key.
type AbortError struct {
	Stage     string
	Key       string
	Index     int
	Completed int
	Cause     error
	SaveErr   error
}

func (e *AbortError) Error() string {
	if e == nil {
		return "batch aborted"
	}
	msg := fmt.Sprintf("batch %s: aborted at item %d (%q) after %d completed: %v", e.Stage, e.Index+1, e.Key, e.Completed, e.Cause)
	if e.SaveErr != nil {
		msg += fmt.Sprintf("; checkpoint save also failed: %v", e.SaveErr)
	}
	return msg
}

func (e *AbortError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := []error{e.Cause}
	if e.SaveErr != nil {
		errs = append(errs, e.SaveErr)
	}
	return errs
}
