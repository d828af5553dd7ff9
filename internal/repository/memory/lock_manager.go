package memory

import (
	"context"
	"sync"
	"time"
)

// LockManager hands out named, expiring locks. The index service takes one
// around a reload so two reloads never build in parallel; the TTL frees the
// lock if a reload dies without releasing it.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]time.Time // key -> expiry
	stop  chan struct{}
	once  sync.Once
}

// NewLockManager creates a LockManager and starts a goroutine that sweeps
// expired locks every sweepInterval. Call Stop to end it.
func NewLockManager(sweepInterval time.Duration) *LockManager {
	lm := &LockManager{
		locks: make(map[string]time.Time),
		stop:  make(chan struct{}),
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Second
	}
	go lm.sweep(sweepInterval)
	return lm
}

// AcquireLock takes key for ttl. It returns false if someone else holds an
// unexpired lock on key.
func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if expiresAt, held := lm.locks[key]; held && time.Now().Before(expiresAt) {
		return false, nil
	}
	lm.locks[key] = time.Now().Add(ttl)
	return true, nil
}

// ReleaseLock drops key whether or not it is held.
func (lm *LockManager) ReleaseLock(ctx context.Context, key string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	delete(lm.locks, key)
	return nil
}

// IsLocked reports whether key is held and unexpired.
func (lm *LockManager) IsLocked(ctx context.Context, key string) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	expiresAt, held := lm.locks[key]
	return held && time.Now().Before(expiresAt), nil
}

func (lm *LockManager) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lm.mu.Lock()
			now := time.Now()
			for key, expiresAt := range lm.locks {
				if now.After(expiresAt) {
					delete(lm.locks, key)
				}
			}
			lm.mu.Unlock()
		case <-lm.stop:
			return
		}
	}
}

// Stop ends the sweeper goroutine. It is safe to call more than once.
func (lm *LockManager) Stop() {
	lm.once.Do(func() { close(lm.stop) })
}
