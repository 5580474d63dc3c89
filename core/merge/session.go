// Package merge implements the glossary merge scheduler. A session owns an
// isolated clone of the dictionary and folds proposals into it: proposals
// without key collisions merge immediately, colliding ones are sent to an
// external arbiter. Arbitrations whose lock sets are disjoint run
// concurrently; ones that share a key are strictly serialized.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/adalundhe/termbase/core/arbiter"
	"github.com/adalundhe/termbase/core/glossary"
)

// ErrSchedulerStalled indicates proposals remain pending with nothing in
// flight and nothing admissible. An unlocked session always admits the
// first pending candidate, so this is a defensive invariant check, not an
// expected condition.
var ErrSchedulerStalled = errors.New("merge scheduler stalled with pending proposals")

// PromptBuilder renders the arbitration request for one proposal and its
// conflict set. Building is synchronous and pure; an error here is a
// programming error and aborts the session.
type PromptBuilder interface {
	Build(conflicts []*glossary.Entry, proposal glossary.Proposal) (string, error)
}

// Transport executes one arbitration request and returns the arbiter's raw
// response text. Retry, backoff, and rate limiting are the transport's own
// concern; the scheduler treats any returned error as a discarded
// arbitration.
type Transport interface {
	Request(ctx context.Context, prompt string) (string, error)
}

// Config tunes a merge session.
type Config struct {
	// MaxInflight bounds concurrently outstanding arbitration calls.
	// Zero or negative means unlimited.
	MaxInflight int64
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{MaxInflight: 4}
}

// Stats summarizes what a session did.
type Stats struct {
	// Immediate counts proposals merged without arbitration.
	Immediate int
	// Arbitrated counts arbitration batches applied.
	Arbitrated int
	// Discarded counts arbitrations dropped for transport or validation
	// failures.
	Discarded int
}

// completion carries the outcome of one arbitration call back into the
// scheduling loop.
type completion struct {
	proposal  glossary.Proposal
	conflicts []*glossary.Entry
	lockSet   []string
	raw       string
	err       error
}

// Session runs one merge. The working dictionary, id allocator, and locked
// key set are owned exclusively by the session and mutated only under its
// mutex, one action batch at a time.
type Session struct {
	id        string
	cfg       Config
	builder   PromptBuilder
	transport Transport
	logger    *slog.Logger

	mu    sync.Mutex
	dict  *glossary.Dictionary
	ids   *glossary.IDAllocator
	locks *KeyLock
	stats Stats

	sem         *semaphore.Weighted
	completions chan *completion
	inflight    int
	pending     []glossary.Proposal
}

// NewSession creates a merge session. The logger must not be nil.
func NewSession(builder PromptBuilder, transport Transport, cfg Config, logger *slog.Logger) *Session {
	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		builder:   builder,
		transport: transport,
		logger:    logger,
		locks:     NewKeyLock(),
	}
	if cfg.MaxInflight > 0 {
		s.sem = semaphore.NewWeighted(cfg.MaxInflight)
	}
	return s
}

// Merge folds the proposals into a clone of the dictionary and returns the
// merged result. The caller's dictionary is never touched. Failed or
// invalid arbitrations are logged and skipped; only a prompt-builder error
// or context cancellation aborts the session.
func (s *Session) Merge(ctx context.Context, dict *glossary.Dictionary, proposals []glossary.Proposal) (*glossary.Dictionary, error) {
	s.dict = dict.Clone()
	s.ids = glossary.NewIDAllocator(s.dict)
	s.pending = append([]glossary.Proposal(nil), proposals...)
	s.completions = make(chan *completion, len(proposals))

	s.logger.Debug("merge session started",
		"session", s.id, "entries", s.dict.Len(), "proposals", len(proposals))

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.admit(ctx); err != nil {
			return nil, err
		}

		done, stalled := s.roundState()
		if done {
			s.logger.Debug("merge session finished",
				"session", s.id, "entries", s.dict.Len(),
				"immediate", s.stats.Immediate, "arbitrated", s.stats.Arbitrated,
				"discarded", s.stats.Discarded)
			return s.dict, nil
		}
		if stalled {
			return nil, ErrSchedulerStalled
		}

		// Wake on the first in-flight arbitration to finish, not the
		// first dispatched.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case c := <-s.completions:
			s.resolve(c)
		}
	}
}

// Stats returns the session's counters. Meaningful once Merge has
// returned.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// roundState reports whether the session is finished or stalled.
func (s *Session) roundState() (done, stalled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 {
		return false, false
	}
	return len(s.pending) == 0, len(s.pending) > 0
}

// admit runs one admission pass: scan pending proposals in order,
// recomputing each conflict set against the current dictionary. Conflict-
// free proposals merge immediately; conflicted ones are dispatched if their
// lock set is free, otherwise they stay pending for the next pass.
func (s *Session) admit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blocked []glossary.Proposal
	for _, p := range s.pending {
		conflicts := glossary.FindConflicts(s.dict, p)
		if len(conflicts) == 0 {
			entry := glossary.AddEntry(s.dict, p, s.ids)
			s.stats.Immediate++
			s.logger.Debug("merged conflict-free proposal",
				"session", s.id, "id", entry.ID, "keys", entry.Keys)
			continue
		}

		admitted, err := s.tryDispatch(ctx, p, conflicts)
		if err != nil {
			return err
		}
		if !admitted {
			blocked = append(blocked, p)
		}
	}
	s.pending = blocked
	return nil
}

// tryDispatch admits one conflicted proposal if capacity and its lock set
// allow, launching its arbitration call. Reports false when the proposal
// must stay pending.
func (s *Session) tryDispatch(ctx context.Context, p glossary.Proposal, conflicts []*glossary.Entry) (bool, error) {
	if s.sem != nil && !s.sem.TryAcquire(1) {
		return false, nil
	}

	lockSet := glossary.LockSet(p, conflicts)
	if !s.locks.TryAcquire(lockSet) {
		if s.sem != nil {
			s.sem.Release(1)
		}
		return false, nil
	}

	// Snapshot the conflicts: the dictionary keeps evolving while the
	// call is outstanding, and the validator must judge the response
	// against the conflict set it was generated for.
	snapshot := make([]*glossary.Entry, len(conflicts))
	for i, c := range conflicts {
		snapshot[i] = c.Clone()
	}

	text, err := s.builder.Build(snapshot, p)
	if err != nil {
		s.locks.Release(lockSet)
		if s.sem != nil {
			s.sem.Release(1)
		}
		return false, fmt.Errorf("build arbitration prompt: %w", err)
	}

	s.inflight++
	s.logger.Debug("dispatched arbitration",
		"session", s.id, "keys", p.Keys, "conflicts", len(conflicts), "locked", lockSet)
	go s.dispatch(ctx, p, snapshot, lockSet, text)
	return true, nil
}

// dispatch runs one arbitration call outside the mutex so sibling calls
// can be admitted while it is pending.
func (s *Session) dispatch(ctx context.Context, p glossary.Proposal, conflicts []*glossary.Entry, lockSet []string, text string) {
	raw, err := s.transport.Request(ctx, text)
	if s.sem != nil {
		s.sem.Release(1)
	}
	s.completions <- &completion{
		proposal:  p,
		conflicts: conflicts,
		lockSet:   lockSet,
		raw:       raw,
		err:       err,
	}
}

// resolve validates and applies one finished arbitration under the mutex,
// then releases its locked keys. Any transport or validation failure
// discards the whole batch, leaving the dictionary untouched for those
// keys, exactly as if the arbiter had answered none.
func (s *Session) resolve(c *completion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inflight--
	defer s.locks.Release(c.lockSet)

	if c.err != nil {
		s.stats.Discarded++
		s.logger.Warn("arbitration transport failed, entries left unchanged",
			"session", s.id, "keys", c.proposal.Keys, "error", c.err)
		return
	}

	actions, err := s.decode(c)
	if err != nil {
		s.stats.Discarded++
		s.logger.Warn("discarding arbitration batch",
			"session", s.id, "keys", c.proposal.Keys, "error", err)
		return
	}

	for _, act := range actions {
		glossary.Apply(s.dict, act, c.proposal, s.ids, s.logger)
	}
	s.stats.Arbitrated++
	s.logger.Debug("applied arbitration batch",
		"session", s.id, "keys", c.proposal.Keys, "actions", len(actions))
}

// decode parses and validates a raw response against its own conflict set.
func (s *Session) decode(c *completion) ([]glossary.Action, error) {
	raws, err := arbiter.Extract(c.raw)
	if err != nil {
		return nil, err
	}
	return arbiter.NewValidator(c.conflicts).Validate(raws)
}
