package jwtkit

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Claims is the verified identity of an admin-API caller.
type Claims struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the caller carries role.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Verifier validates RS256 admin tokens against static public keys and/or a
// remote JWKS. The JWKS document is cached and refetched after TTL.
type Verifier struct {
	issuer   string
	audience string
	keys     map[string]*rsa.PublicKey
	jwksURL  string
	jwksTTL  time.Duration

	mu        sync.Mutex
	cachedSet jwk.Set
	fetchedAt time.Time
}

// VerifierOption customizes a Verifier.
type VerifierOption func(*Verifier)

// WithStaticKey pins a public key under kid.
func WithStaticKey(kid string, pub *rsa.PublicKey) VerifierOption {
	return func(v *Verifier) { v.keys[kid] = pub }
}

// WithJWKS enables remote key discovery. ttl 0 defaults to 5 minutes.
func WithJWKS(url string, ttl time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.jwksURL = url
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		v.jwksTTL = ttl
	}
}

// NewVerifier creates a verifier expecting tokens with the given issuer and
// audience.
func NewVerifier(issuer, audience string, opts ...VerifierOption) *Verifier {
	v := &Verifier{issuer: issuer, audience: audience, keys: make(map[string]*rsa.PublicKey)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify parses and validates raw, returning the caller's claims.
func (v *Verifier) Verify(ctx context.Context, raw string) (Claims, error) {
	parsed, err := jwt.Parse(raw,
		func(t *jwt.Token) (any, error) { return v.keyFor(ctx, t) },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, err
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("unexpected claims type")
	}
	out := Claims{}
	if sub, err := mc.GetSubject(); err == nil {
		out.Subject = sub
	}
	if raw, ok := mc["roles"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				out.Roles = append(out.Roles, s)
			}
		}
	}
	return out, nil
}

func (v *Verifier) keyFor(ctx context.Context, t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("token missing kid header")
	}
	if pub, ok := v.keys[kid]; ok {
		return pub, nil
	}
	if v.jwksURL == "" {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	set, err := v.keySet(ctx)
	if err != nil {
		return nil, err
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("kid %q not in jwks", kid)
	}
	var pub rsa.PublicKey
	if err := key.Raw(&pub); err != nil {
		return nil, err
	}
	return &pub, nil
}

func (v *Verifier) keySet(ctx context.Context) (jwk.Set, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cachedSet != nil && time.Since(v.fetchedAt) < v.jwksTTL {
		return v.cachedSet, nil
	}
	set, err := jwk.Fetch(ctx, v.jwksURL)
	if err != nil {
		// Serve the stale set when a refresh fails; signing keys rotate
		// slowly and a degraded JWKS endpoint must not lock admins out.
		if v.cachedSet != nil {
			return v.cachedSet, nil
		}
		return nil, err
	}
	v.cachedSet = set
	v.fetchedAt = time.Now()
	return set, nil
}
