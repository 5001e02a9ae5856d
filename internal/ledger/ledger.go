// Package ledger records per-ID crawl state across runs so failed fetches are
// retried under an explicit policy instead of by blind reruns.
package ledger

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/hevcstat/internal/model"
)

// Ledger stores crawl states keyed by canonical patent ID.
// IDs never recorded read back as model.CrawlUnseen.
type Ledger interface {
	Get(ctx context.Context, id string) (model.CrawlState, error)
	States(ctx context.Context, ids []string) (map[string]model.CrawlState, error)
	Put(ctx context.Context, states ...model.CrawlState) error
	Counts(ctx context.Context) (map[model.CrawlStatus]int, error)
	Close() error
}

// RetryPolicy decides when a failed ID may be fetched again
type RetryPolicy struct {
	MaxAttempts int           // 0 means unlimited
	Base        time.Duration // Delay after the first failure
	Max         time.Duration // Upper bound on the delay
}

// NextAttempt returns when an ID that has failed attempts times may be retried
func (p RetryPolicy) NextAttempt(attempts int, now time.Time) time.Time {
	if attempts <= 0 || p.Base <= 0 {
		return now
	}
	delay := float64(p.Base) * math.Pow(2, float64(attempts-1))
	if p.Max > 0 && delay > float64(p.Max) {
		delay = float64(p.Max)
	}
	return now.Add(time.Duration(delay))
}

// Exhausted reports whether the state has used up its attempts
func (p RetryPolicy) Exhausted(st model.CrawlState) bool {
	return st.Status == model.CrawlFailed && p.MaxAttempts > 0 && st.Attempts >= p.MaxAttempts
}

// Decision is the outcome of checking an ID against the policy
type Decision int

const (
	Admit     Decision = iota // Fetch in this run
	Deferred                  // Failed recently; waiting out the backoff
	Exhausted                 // No attempts left
)

// Decide classifies st at time now
func (p RetryPolicy) Decide(st model.CrawlState, now time.Time) Decision {
	if st.Status != model.CrawlFailed {
		return Admit
	}
	if p.Exhausted(st) {
		return Exhausted
	}
	if now.Before(st.NextAttemptAt) {
		return Deferred
	}
	return Admit
}

func unseen(id string) model.CrawlState {
	return model.CrawlState{PatentID: id, Status: model.CrawlUnseen}
}

// Open returns a SQLite ledger at path, or an in-memory one when path is empty
func Open(path string) (Ledger, error) {
	if path == "" {
		return NewMemory(), nil
	}
	return OpenSQLite(path)
}

// NewRunID returns a fresh identifier for a crawl run
func NewRunID() string {
	return uuid.NewString()
}

// MarkQueued records ids as queued for runID, keeping their attempt history
func MarkQueued(ctx context.Context, l Ledger, ids []string, runID string, now time.Time) error {
	states, err := l.States(ctx, ids)
	if err != nil {
		return err
	}
	updated := make([]model.CrawlState, 0, len(ids))
	for _, id := range ids {
		st := states[id]
		st.Status = model.CrawlQueued
		st.RunID = runID
		st.UpdatedAt = now
		updated = append(updated, st)
	}
	return l.Put(ctx, updated...)
}

// MarkFetched records a successful fetch of id. empty means no inventors were found.
func MarkFetched(ctx context.Context, l Ledger, id, runID string, empty bool, now time.Time) error {
	st, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	st.Status = model.CrawlFetched
	st.Attempts++
	st.Empty = empty
	st.LastError = ""
	st.RunID = runID
	st.UpdatedAt = now
	st.NextAttemptAt = time.Time{}
	return l.Put(ctx, st)
}

// MarkFailed records a failed fetch of id and schedules its next attempt
func MarkFailed(ctx context.Context, l Ledger, id, runID string, cause error, policy RetryPolicy, now time.Time) (model.CrawlState, error) {
	st, err := l.Get(ctx, id)
	if err != nil {
		return model.CrawlState{}, err
	}
	st.Status = model.CrawlFailed
	st.Attempts++
	st.Empty = false
	if cause != nil {
		st.LastError = cause.Error()
	}
	st.RunID = runID
	st.UpdatedAt = now
	st.NextAttemptAt = policy.NextAttempt(st.Attempts, now)
	if err := l.Put(ctx, st); err != nil {
		return model.CrawlState{}, err
	}
	return st, nil
}

// Eligibility splits a list of IDs by what the retry policy allows
type Eligibility struct {
	Admitted  []string
	Deferred  []string
	Exhausted []string
}

// Eligible classifies ids against policy at time now. With retryExhausted,
// IDs that used up their attempts are admitted again.
func Eligible(ctx context.Context, l Ledger, ids []string, policy RetryPolicy, now time.Time, retryExhausted bool) (Eligibility, error) {
	states, err := l.States(ctx, ids)
	if err != nil {
		return Eligibility{}, err
	}

	var e Eligibility
	for _, id := range ids {
		switch policy.Decide(states[id], now) {
		case Deferred:
			e.Deferred = append(e.Deferred, id)
		case Exhausted:
			if retryExhausted {
				e.Admitted = append(e.Admitted, id)
			} else {
				e.Exhausted = append(e.Exhausted, id)
			}
		default:
			e.Admitted = append(e.Admitted, id)
		}
	}
	return e, nil
}
