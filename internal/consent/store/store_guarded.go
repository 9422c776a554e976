package store

import (
	"context"
	"errors"
	"fmt"

	"cookiegate/pkg/platform/circuit"
	"cookiegate/pkg/platform/sentinel"
)

// GuardedStore fails fast while its backend is known to be down. Calls are
// rejected with sentinel.ErrUnavailable until the breaker lets a probe through.
type GuardedStore struct {
	next    KeyValue
	breaker *circuit.Breaker
}

// NewGuarded wraps next with breaker.
func NewGuarded(next KeyValue, breaker *circuit.Breaker) *GuardedStore {
	return &GuardedStore{next: next, breaker: breaker}
}

func (s *GuardedStore) Get(ctx context.Context, key string) (string, error) {
	if err := s.allow(); err != nil {
		return "", err
	}
	v, err := s.next.Get(ctx, key)
	s.record(err)
	return v, err
}

func (s *GuardedStore) Set(ctx context.Context, key, value string) error {
	if err := s.allow(); err != nil {
		return err
	}
	err := s.next.Set(ctx, key, value)
	s.record(err)
	return err
}

func (s *GuardedStore) Remove(ctx context.Context, key string) error {
	if err := s.allow(); err != nil {
		return err
	}
	err := s.next.Remove(ctx, key)
	s.record(err)
	return err
}

func (s *GuardedStore) allow() error {
	if s.breaker.Allow() {
		return nil
	}
	return fmt.Errorf("%s circuit open: %w", s.breaker.Name(), sentinel.ErrUnavailable)
}

// A missing key is an answer, not a backend failure.
func (s *GuardedStore) record(err error) {
	if err == nil || errors.Is(err, sentinel.ErrNotFound) {
		s.breaker.RecordSuccess()
		return
	}
	s.breaker.RecordFailure()
}
