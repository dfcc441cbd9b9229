// Package txn runs stock-changing units of work: one database transaction,
// the guards it holds, a deadline, and bounded retries of transient
// conflicts.
package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stockledger/stockledger/internal/lock"
	"github.com/stockledger/stockledger/internal/metrics"
	"github.com/stockledger/stockledger/internal/stock"
	"github.com/stockledger/stockledger/pkg/logger"
)

// Postgres SQLSTATEs after which the whole transaction can simply be re-run.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// Scope is handed to a unit of work. Every read and write must go through Tx.
type Scope struct {
	Ctx context.Context
	Tx  *gorm.DB

	locker      lock.Locker
	held        map[string]bool
	releases    []lock.Release
	afterCommit []func()
}

// Hold takes the guards for keys until the unit of work ends. Guards this
// scope already holds are skipped, so repeating a key is free. Pass every
// new key in one call; guards taken across several calls are not ordered.
func (s *Scope) Hold(keys ...stock.Key) error {
	if s.locker == nil || len(keys) == 0 {
		return nil
	}
	var names []string
	for _, k := range keys {
		name := k.GuardName()
		if !s.held[name] {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	release, err := s.locker.Acquire(s.Ctx, names)
	if err != nil {
		return err
	}
	if s.held == nil {
		s.held = make(map[string]bool)
	}
	for _, name := range names {
		s.held[name] = true
	}
	s.releases = append(s.releases, release)
	return nil
}

// AfterCommit registers fn to run once the transaction has committed.
// It never runs for an attempt that rolled back.
func (s *Scope) AfterCommit(fn func()) {
	s.afterCommit = append(s.afterCommit, fn)
}

func (s *Scope) release() {
	for i := len(s.releases) - 1; i >= 0; i-- {
		s.releases[i]()
	}
	s.releases = nil
	s.held = nil
}

type Options struct {
	Timeout    time.Duration
	MaxRetries uint64
	Locker     lock.Locker
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

type Coordinator struct {
	db         *gorm.DB
	locker     lock.Locker
	timeout    time.Duration
	maxRetries uint64
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func New(db *gorm.DB, opts Options) *Coordinator {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Coordinator{
		db:         db,
		locker:     opts.Locker,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Do runs fn inside a transaction under the operation deadline. fn either
// commits as a whole or leaves no trace. Business errors are returned as-is
// and never retried; transient conflicts are re-run up to MaxRetries times
// and then reported as stock.ErrConflict. Exceeding the deadline aborts and
// reports stock.ErrOperationTimeout.
func (c *Coordinator) Do(ctx context.Context, name string, fn func(*Scope) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log := logger.FromContext(ctx, c.log).With(zap.String("operation", name))
	start := time.Now()
	attempt := 0
	var committed *Scope

	run := func() error {
		attempt++
		scope := &Scope{Ctx: ctx, locker: c.locker}
		err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			scope.Tx = tx
			return fn(scope)
		})
		scope.release()

		switch {
		case err == nil:
			committed = scope
			return nil
		case stock.IsBusiness(err):
			return backoff.Permanent(err)
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case isTransient(err):
			log.Warn("transient conflict, retrying", zap.Int("attempt", attempt), zap.Error(err))
			c.metrics.IncRetry(name)
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 10 * time.Millisecond
	expo.MaxInterval = 500 * time.Millisecond
	err := backoff.Retry(run, backoff.WithContext(backoff.WithMaxRetries(expo, c.maxRetries), ctx))
	err = c.classify(err)

	c.metrics.ObserveUnitOfWork(name, time.Since(start), err)
	if err != nil {
		if errors.Is(err, stock.ErrOperationTimeout) {
			log.Warn("unit of work aborted", zap.Duration("timeout", c.timeout), zap.Int("attempts", attempt))
		} else {
			log.Debug("unit of work failed", zap.Int("attempts", attempt), zap.Error(err))
		}
		return err
	}

	log.Debug("unit of work committed", zap.Int("attempts", attempt), zap.Duration("elapsed", time.Since(start)))
	for _, hook := range committed.afterCommit {
		hook()
	}
	return nil
}

func (c *Coordinator) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case stock.IsBusiness(err):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", stock.ErrOperationTimeout, c.timeout)
	case isTransient(err):
		return fmt.Errorf("%w: %v", stock.ErrConflict, err)
	default:
		return err
	}
}

func isTransient(err error) bool {
	if errors.Is(err, lock.ErrNotObtained) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientCodes[pgErr.Code]
	}
	return false
}
