package permissions

import (
	"errors"
	"sync"
	"time"
)

// ErrShopNotFound is returned by SwitchShop when the requested shop is not
// in the session's access list. The current selection is left unchanged.
var ErrShopNotFound = errors.New("shop not found in access list")

// DefaultStaleAfter is the population age beyond which Stale reports true
// when no threshold was configured.
const DefaultStaleAfter = 15 * time.Minute

// Engine holds the permission state of one session and answers authorization
// queries against it.
//
// Resolution order is fixed: an org-level set, when present, is authoritative
// and shop accesses are ignored outright; otherwise the currently selected
// shop's set decides; with neither, every query answers false. Queries are
// pure reads, never touch the network and never fail.
type Engine struct {
	staleAfter time.Duration
	nowTime    func() time.Time

	mu            sync.RWMutex
	orgSet        Set
	shopAccesses  []ShopAccess
	currentShopID string
	populatedAt   time.Time
}

// EngineOption modifies an Engine instance.
type EngineOption func(*Engine)

// WithStaleAfter sets the population age after which Stale reports true.
func WithStaleAfter(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.staleAfter = d
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowTime = nowFunc
	}
}

// NewEngine creates an empty engine. Until Populate is called every query
// returns false.
func NewEngine(options ...EngineOption) *Engine {
	e := &Engine{
		staleAfter: DefaultStaleAfter,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Populate replaces the engine's state wholesale from an authentication or
// liveness response and returns the selected shop id ("" when none).
//
// Shop selection is deterministic: preferredShopID is kept when it matches an
// active entry in the new access list, otherwise the first entry is selected,
// and an empty list (or an org-level session) selects nothing.
func (e *Engine) Populate(orgSet Set, accesses []ShopAccess, preferredShopID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.orgSet = orgSet.Clone()
	e.shopAccesses = make([]ShopAccess, len(accesses))
	for i, a := range accesses {
		a.Permissions = a.Permissions.Clone()
		e.shopAccesses[i] = a
	}
	e.populatedAt = e.nowTime()

	e.currentShopID = ""
	if e.orgSet != nil || len(e.shopAccesses) == 0 {
		return ""
	}
	if preferredShopID != "" {
		for _, a := range e.shopAccesses {
			if a.ShopID == preferredShopID && a.IsActive {
				e.currentShopID = preferredShopID
				return e.currentShopID
			}
		}
	}
	e.currentShopID = e.shopAccesses[0].ShopID
	return e.currentShopID
}

// Clear drops all permission state. Called on logout and invalidation.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orgSet = nil
	e.shopAccesses = nil
	e.currentShopID = ""
	e.populatedAt = time.Time{}
}

// SwitchShop changes the current shop selection. The target must be present
// in the access list; otherwise the selection is unchanged and
// ErrShopNotFound is returned.
func (e *Engine) SwitchShop(shopID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.shopAccesses {
		if a.ShopID == shopID {
			e.currentShopID = shopID
			return nil
		}
	}
	return ErrShopNotFound
}

// effective returns the set selected by the resolution rule, or nil.
// Callers must hold at least a read lock.
func (e *Engine) effective() Set {
	if e.orgSet != nil {
		return e.orgSet
	}
	if e.currentShopID == "" {
		return nil
	}
	for _, a := range e.shopAccesses {
		if a.ShopID == e.currentShopID {
			return a.Permissions
		}
	}
	return nil
}

// Has reports whether the effective set grants key.
func (e *Engine) Has(key string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.effective()[key]
}

// HasAny reports whether the effective set grants at least one of keys.
func (e *Engine) HasAny(keys ...string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	set := e.effective()
	for _, k := range keys {
		if set[k] {
			return true
		}
	}
	return false
}

// HasAll reports whether the effective set grants every key. An empty key
// list is trivially satisfied.
func (e *Engine) HasAll(keys ...string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	set := e.effective()
	for _, k := range keys {
		if !set[k] {
			return false
		}
	}
	return true
}

// CurrentShopID returns the selected shop id, or "" when the session is
// org-level or unauthenticated.
func (e *Engine) CurrentShopID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentShopID
}

// ShopAccesses returns a copy of the session's shop access list.
func (e *Engine) ShopAccesses() []ShopAccess {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ShopAccess, len(e.shopAccesses))
	for i, a := range e.shopAccesses {
		a.Permissions = a.Permissions.Clone()
		out[i] = a
	}
	return out
}

// OrgLevel reports whether the session's authority is organization-wide.
func (e *Engine) OrgLevel() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orgSet != nil
}

// PopulatedAt returns the time of the last population, zero when empty.
func (e *Engine) PopulatedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.populatedAt
}

// Stale reports whether the last population is older than the configured
// threshold. It is a hint for the UI to prompt a background re-fetch; it
// never changes what Has answers.
func (e *Engine) Stale() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.populatedAt.IsZero() {
		return false
	}
	return e.nowTime().Sub(e.populatedAt) > e.staleAfter
}
