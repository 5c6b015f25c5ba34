// Package permissions resolves the effective permission set for an
// authenticated session. A session is scoped to exactly one authority level
// at a time: organization-wide, or one of several shops. The engine merges
// whatever the identity service handed back at authentication time and
// answers point, any-of and all-of queries against the single set that is
// currently authoritative.
package permissions

// Set maps a permission key to whether it is granted. Keys are opaque
// strings drawn from an externally defined catalog; the engine never
// interprets them.
type Set map[string]bool

// Clone returns an independent copy of the set. A nil set clones to nil.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	c := make(Set, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// ShopAccess describes the caller's standing in one shop: the role it was
// granted there, the shop-scoped permission set, and whether the access is
// currently usable.
type ShopAccess struct {
	ShopID      string
	Role        string
	Permissions Set
	IsActive    bool
}
