package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meallog/internal/metrics"
	"meallog/internal/roster"
	"meallog/internal/session"
)

// Status is the terminal outcome of one submission interaction.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusDuplicate      Status = "already_logged"
	StatusNotFound       Status = "not_found"
	StatusNeedsSelection Status = "needs_selection"
	StatusMalformed      Status = "malformed"
	StatusClosed         Status = "closed"
	StatusExpired        Status = "expired"
)

// Result reports the outcome of a submission or confirmation. Record is set
// only on success; Token and Candidates only on StatusNeedsSelection.
type Result struct {
	Status     Status
	Record     *Record
	Token      string
	Candidates []string
}

// Service coordinates one submission end to end: input validation, roster
// resolution, the duplicate rule, housekeeping, and persistence. A single
// mutex serializes the read-modify-write on the store within this process;
// writers in other processes are not protected against.
type Service struct {
	roster  *roster.Roster
	store   LogStore
	pending session.PendingStore
	policy  Policy
	now     func() time.Time

	mu sync.Mutex
}

// NewService wires a service over a roster snapshot and a log store.
func NewService(r *roster.Roster, store LogStore, pending session.PendingStore, policy Policy) *Service {
	return &Service{roster: r, store: store, pending: pending, policy: policy, now: time.Now}
}

// Submit handles a raw identifier as typed by the user.
func (s *Service) Submit(ctx context.Context, raw string) (Result, error) {
	now := s.now()
	if !s.policy.SubmitOpen(now) {
		return s.done(Result{Status: StatusClosed}), nil
	}
	key, err := s.roster.Normalize(raw)
	if err != nil {
		if errors.Is(err, roster.ErrMalformedInput) {
			return s.done(Result{Status: StatusMalformed}), nil
		}
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.housekept(ctx, now)
	if err != nil {
		return Result{}, err
	}

	res := s.roster.Resolve(key)
	switch res.Outcome {
	case roster.NotFound:
		return s.done(Result{Status: StatusNotFound}), nil
	case roster.Ambiguous:
		p := session.Pending{
			Token:        uuid.NewString(),
			SubmittedKey: key,
			Candidates:   candidateNames(res.Entries),
		}
		if err := s.pending.Put(ctx, p); err != nil {
			return Result{}, fmt.Errorf("park disambiguation: %w", err)
		}
		return s.done(Result{Status: StatusNeedsSelection, Token: p.Token, Candidates: p.Candidates}), nil
	}
	return s.append(ctx, l, recordKey(res.Entries[0], key), res.Entries[0].Name, now)
}

// Confirm completes an ambiguous submission with the name the submitter
// picked. The duplicate rule is re-checked here; the pending entry is
// consumed either way.
func (s *Service) Confirm(ctx context.Context, token, name string) (Result, error) {
	p, err := s.pending.Take(ctx, token)
	if err != nil {
		return Result{}, fmt.Errorf("consume disambiguation: %w", err)
	}
	if p == nil {
		return s.done(Result{Status: StatusExpired}), nil
	}
	chosen, ok := pickCandidate(p.Candidates, name)
	if !ok {
		return s.done(Result{Status: StatusMalformed}), nil
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.housekept(ctx, now)
	if err != nil {
		return Result{}, err
	}
	return s.append(ctx, l, p.SubmittedKey, chosen, now)
}

// View returns the admin's time-windowed slice of the log.
func (s *Service) View(ctx context.Context) (Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.housekept(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return PurgeStale(l, s.policy.AdminInterval(s.now())), nil
}

// Count reports the number of records currently in the log.
func (s *Service) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.housekept(ctx, s.now())
	if err != nil {
		return 0, err
	}
	return len(l), nil
}

// Full returns the whole log, post-housekeeping, for export.
func (s *Service) Full(ctx context.Context) (Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.housekept(ctx, s.now())
}

// housekept loads the log and applies the retention purge when the policy
// calls for one, persisting the trimmed log. Callers hold s.mu.
func (s *Service) housekept(ctx context.Context, now time.Time) (Log, error) {
	l, _, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}
	cutoff, ok := s.policy.RetentionCutoff(now)
	if !ok {
		return l, nil
	}
	kept := PurgeStale(l, Interval{From: cutoff})
	if len(kept) == len(l) {
		return kept, nil
	}
	if _, err := s.store.Save(ctx, kept); err != nil {
		metrics.LogSaveFailures.Inc()
		return nil, fmt.Errorf("persist purged log: %w", err)
	}
	metrics.LogSaves.Inc()
	return kept, nil
}

// append runs the duplicate rule and persists on success. On a write failure
// the in-memory append is discarded, not retried. Callers hold s.mu.
func (s *Service) append(ctx context.Context, l Log, key, name string, now time.Time) (Result, error) {
	updated, rec, err := Submit(l, key, name, now)
	if errors.Is(err, ErrDuplicate) {
		return s.done(Result{Status: StatusDuplicate}), nil
	}
	if err != nil {
		return Result{}, err
	}
	if _, err := s.store.Save(ctx, updated); err != nil {
		metrics.LogSaveFailures.Inc()
		return Result{}, fmt.Errorf("persist log: %w", err)
	}
	metrics.LogSaves.Inc()
	return s.done(Result{Status: StatusSuccess, Record: &rec}), nil
}

func (s *Service) done(r Result) Result {
	metrics.Submissions.WithLabelValues(string(r.Status)).Inc()
	return r
}

// candidateNames returns the distinct display names of matched entries,
// preserving roster order.
func candidateNames(entries []roster.Entry) []string {
	seen := make(map[string]bool, len(entries))
	var names []string
	for _, e := range entries {
		k := strings.ToLower(e.Name)
		if !seen[k] {
			seen[k] = true
			names = append(names, e.Name)
		}
	}
	return names
}

// recordKey prefers the roster's canonical ID over the typed text; last-4
// entries keep the digits as submitted.
func recordKey(e roster.Entry, typed string) string {
	if e.ID != "" {
		return e.ID
	}
	return typed
}

// pickCandidate validates the chosen name against the parked candidates.
func pickCandidate(candidates []string, name string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, c := range candidates {
		if strings.ToLower(strings.TrimSpace(c)) == want {
			return c, true
		}
	}
	return "", false
}
