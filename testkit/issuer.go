package testkit

import (
	"context"
	"time"

	jwtkit "github.com/open-rails/paykit/jwt"
)

// AdminIssuer mints admin tokens that validate against its Verifier,
// for exercising the admin endpoints in tests without an IdP.
type AdminIssuer struct {
	signer   *jwtkit.RSASigner
	issuer   string
	audience string
}

// NewAdminIssuer generates a fresh key pair. issuer/audience default to
// "paykit-test" / "paykit-admin" when empty.
func NewAdminIssuer(issuer, audience string) *AdminIssuer {
	if issuer == "" {
		issuer = "paykit-test"
	}
	if audience == "" {
		audience = "paykit-admin"
	}
	signer, err := jwtkit.NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("testkit: rsa signer: " + err.Error())
	}
	return &AdminIssuer{signer: signer, issuer: issuer, audience: audience}
}

// Verifier returns a verifier pinned to this issuer's public key.
func (a *AdminIssuer) Verifier() *jwtkit.Verifier {
	return jwtkit.NewVerifier(a.issuer, a.audience,
		jwtkit.WithStaticKey(a.signer.KID(), a.signer.PublicKey()))
}

// Token mints a signed token carrying roles, valid for an hour.
func (a *AdminIssuer) Token(subject string, roles []string) string {
	claims := jwtkit.AdminClaims(subject, a.issuer, a.audience, roles, time.Hour)
	tok, err := a.signer.Sign(context.Background(), claims)
	if err != nil {
		panic("testkit: sign token: " + err.Error())
	}
	return tok
}

// ExpiredToken mints a token that expired an hour ago.
func (a *AdminIssuer) ExpiredToken(subject string, roles []string) string {
	claims := jwtkit.AdminClaims(subject, a.issuer, a.audience, roles, -time.Hour)
	tok, err := a.signer.Sign(context.Background(), claims)
	if err != nil {
		panic("testkit: sign token: " + err.Error())
	}
	return tok
}
