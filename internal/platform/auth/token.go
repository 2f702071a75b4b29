package auth

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the bearer token claims the session gate relies on.
type Claims struct {
	jwt.RegisteredClaims
	AAL string     `json:"aal,omitempty"`
	AMR []AMRClaim `json:"amr,omitempty"`
}

// AMRClaim is one authentication-methods-reference entry. Identity providers
// emit either a bare tag ("otp") or an object ({"method":"otp","timestamp":...}).
type AMRClaim struct {
	Method    string `json:"method"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

func (a *AMRClaim) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.Method)
	}
	type plain AMRClaim
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("amr entry: %w", err)
	}
	*a = AMRClaim(p)
	return nil
}

// Methods returns the bare method tags of the amr claim.
func (c *Claims) Methods() []string {
	out := make([]string, 0, len(c.AMR))
	for _, m := range c.AMR {
		if m.Method != "" {
			out = append(out, m.Method)
		}
	}
	return out
}

// VerifierConfig selects how token signatures are checked. SigningKey
// enables HS256; otherwise RS256 keys are resolved from JWKSURL or, when
// that is empty, from the issuer's discovery document.
type VerifierConfig struct {
	SigningKey []byte
	JWKSURL    string
	Issuer     string
	Audience   string
}

// TokenVerifier checks a bearer token's signature before any claim is
// trusted.
type TokenVerifier struct {
	keyFunc jwt.Keyfunc
	opts    []jwt.ParserOption
}

func NewTokenVerifier(cfg VerifierConfig) (*TokenVerifier, error) {
	opts := []jwt.ParserOption{jwt.WithIssuedAt()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	if len(cfg.SigningKey) > 0 {
		key := cfg.SigningKey
		return &TokenVerifier{
			keyFunc: func(*jwt.Token) (interface{}, error) { return key, nil },
			opts:    append(opts, jwt.WithValidMethods([]string{"HS256"})),
		}, nil
	}

	jwksURL := cfg.JWKSURL
	if jwksURL == "" && cfg.Issuer != "" {
		discovered, err := DiscoverJWKSURL(cfg.Issuer)
		if err != nil {
			return nil, err
		}
		jwksURL = discovered
	}
	if jwksURL == "" {
		return nil, fmt.Errorf("token verifier needs a signing key, a JWKS URL or an issuer")
	}

	return &TokenVerifier{
		keyFunc: jwksKeyFunc(jwksURL),
		opts:    append(opts, jwt.WithValidMethods([]string{"RS256"})),
	}, nil
}

// Verify validates the signature and standard time claims and returns the
// decoded claims. Any failure is reported as ErrInvalidToken.
func (v *TokenVerifier) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.keyFunc, v.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing issued-at", ErrInvalidToken)
	}
	return claims, nil
}

type denyVerifier struct{}

func (denyVerifier) Verify(string) (*Claims, error) {
	return nil, fmt.Errorf("%w: no verification key configured", ErrInvalidToken)
}

// DenyAll returns a Verifier that rejects every token. Development servers
// started without a key source run with it.
func DenyAll() Verifier {
	return denyVerifier{}
}
