// Package lock provides named guards held around a unit of work. Names are
// always acquired in sorted order so two holders of overlapping sets cannot
// wait on each other.
package lock

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrNotObtained is returned when a guard is still held by someone else
// after the locker gave up waiting.
var ErrNotObtained = errors.New("lock: not obtained")

// Release frees every guard obtained by a single Acquire call.
type Release func()

type Locker interface {
	Acquire(ctx context.Context, names []string) (Release, error)
}

func normalize(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// KeyedMutex guards names within a single process.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

func (k *KeyedMutex) ref(name string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[name]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		k.entries[name] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) unref(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e := k.entries[name]
	e.refs--
	if e.refs == 0 {
		delete(k.entries, name)
	}
}

// Acquire blocks until every name is held or ctx is done.
func (k *KeyedMutex) Acquire(ctx context.Context, names []string) (Release, error) {
	names = normalize(names)
	held := make([]*entry, 0, len(names))

	for _, name := range names {
		e := k.ref(name)
		if err := e.sem.Acquire(ctx, 1); err != nil {
			k.unref(name)
			k.release(names[:len(held)], held)
			return nil, errors.Join(ErrNotObtained, err)
		}
		held = append(held, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() { k.release(names, held) })
	}, nil
}

func (k *KeyedMutex) release(names []string, held []*entry) {
	for i := len(held) - 1; i >= 0; i-- {
		held[i].sem.Release(1)
		k.unref(names[i])
	}
}
