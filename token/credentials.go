package token

// CredentialPair is the access/refresh token pair issued by the identity
// service, together with the id of the refresh-token lineage it belongs to.
// The strings are opaque bearer values; this package never inspects them.
//
// A pair is immutable once issued and is always replaced as a unit, never
// field by field.
type CredentialPair struct {
	AccessToken  string
	RefreshToken string
	TokenID      string
}

// Valid reports whether the pair carries both tokens. A pair missing its
// refresh token cannot be renewed and is treated as absent.
func (p CredentialPair) Valid() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}
