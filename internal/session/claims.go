package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PeekClaims decodes a JWT's claims without verifying the signature. It
// exists purely for ledger diagnostics when the identity provider rejects a
// token: knowing the subject and expiry of the rejected token makes auth
// incidents debuggable. Never use the result for an authorization decision.
func PeekClaims(token string) map[string]any {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	peek := make(map[string]any, 3)
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		peek["sub"] = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		peek["exp"] = exp.UTC().Format(time.RFC3339)
	}
	if iss, err := claims.GetIssuer(); err == nil && iss != "" {
		peek["iss"] = iss
	}
	if len(peek) == 0 {
		return nil
	}
	return peek
}
