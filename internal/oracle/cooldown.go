package oracle

import (
	"sync"
	"time"

	"github.com/hokieplan/schedule-api/internal/models"
)

const (
	shortCooldown = time.Hour
	longCooldown  = 24 * time.Hour
)

// QuotaGuard is the process-wide quota cooldown state machine. Every oracle
// invocation consults it first; every quota error and every successful
// generation feeds back into it. All access is serialized because concurrent
// requests share one guard.
type QuotaGuard struct {
	mu sync.Mutex

	now      func() time.Time
	keyCount int

	activeKey       int
	lastExhausted   *time.Time
	quotaErrorCount int
	shortDone       bool
	longDone        bool
}

func NewQuotaGuard(keyCount int) *QuotaGuard {
	if keyCount < 1 {
		keyCount = 1
	}
	return &QuotaGuard{now: time.Now, keyCount: keyCount}
}

// OnCooldown reports whether oracle calls are currently suspended. Expired
// windows are marked completed as a side effect, so the first call after a
// window passes flips the corresponding flag and allows traffic again. The
// long window only ever engages after the short one has fully completed and
// further quota errors arrived.
func (g *QuotaGuard) OnCooldown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastExhausted == nil {
		return false
	}
	elapsed := g.now().Sub(*g.lastExhausted)

	if !g.shortDone {
		if elapsed < shortCooldown {
			return true
		}
		g.shortDone = true
		return false
	}

	if g.quotaErrorCount > 1 && !g.longDone {
		if elapsed < longCooldown {
			return true
		}
		g.longDone = true
		return false
	}

	return false
}

// RecordQuotaError registers one quota-kind failure. The first error of a
// cycle restarts both cooldown windows.
func (g *QuotaGuard) RecordQuotaError() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.quotaErrorCount++
	now := g.now()
	g.lastExhausted = &now
	if g.quotaErrorCount == 1 {
		g.shortDone = false
		g.longDone = false
	}
}

// Reset clears all cooldown state after a successful non-empty schedule.
func (g *QuotaGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.quotaErrorCount = 0
	g.lastExhausted = nil
	g.shortDone = false
	g.longDone = false
}

// RotateKey advances to the next configured credential and returns its index.
func (g *QuotaGuard) RotateKey() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.activeKey = (g.activeKey + 1) % g.keyCount
	return g.activeKey
}

// ActiveKey returns the current credential index.
func (g *QuotaGuard) ActiveKey() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeKey
}

// Snapshot exposes the guard state for status endpoints and metrics. The
// OnCooldown field reflects (and may advance) the window flags.
func (g *QuotaGuard) Snapshot() models.QuotaState {
	on := g.OnCooldown()

	g.mu.Lock()
	defer g.mu.Unlock()
	return models.QuotaState{
		ActiveKeyIndex:  g.activeKey,
		LastExhaustedAt: g.lastExhausted,
		QuotaErrorCount: g.quotaErrorCount,
		Cooldown1hDone:  g.shortDone,
		Cooldown24hDone: g.longDone,
		OnCooldown:      on,
	}
}
