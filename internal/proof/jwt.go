// Package proof verifies the cryptographic proofs attached to credentials,
// covering both the compact-token envelope and embedded Linked Data proofs.
package proof

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"badgekeeper/internal/credential"
	"badgekeeper/internal/domain"
	"badgekeeper/pkg/platform/sentinel"
)

const (
	jwtCheckName = "proof.jwt"
	jwtCheckDesc = "compact token signature verification"
)

// KeyResolver resolves a verification method reference to public key material.
type KeyResolver interface {
	ResolveKey(ctx context.Context, verificationMethod string) (crypto.PublicKey, error)
}

// Options tunes proof verification for one call.
type Options struct {
	// Resolver overrides the verifier's key resolver when the caller manages
	// key material itself.
	Resolver KeyResolver

	// MaxProofAge rejects proofs whose iat/created is older than this.
	// Zero means no limit.
	MaxProofAge time.Duration

	// Now pins the clock for age checks; zero means wall clock.
	Now time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Verifier verifies credential proofs. It is stateless apart from its
// injected dependencies and safe for concurrent use.
type Verifier struct {
	resolver KeyResolver
	logger   *slog.Logger
	loader   documentLoader
}

// NewVerifier constructs a Verifier with the default JSON-LD context loader.
func NewVerifier(resolver KeyResolver, logger *slog.Logger) *Verifier {
	return &Verifier{
		resolver: resolver,
		logger:   logger,
		loader:   defaultLoader(),
	}
}

var acceptableTokenTypes = map[string]bool{
	"":          true, // typ is optional
	"JWT":       true,
	"JOSE":      true,
	"vc+jwt":    true,
	"vc+ld+jwt": true,
}

// VerifyJWTProof verifies the signature of a compact credential token against
// the key the verification method resolves to. The declared algorithm is the
// only one accepted during signature verification.
func (v *Verifier) VerifyJWTProof(ctx context.Context, token string, verificationMethod string, opts Options) domain.Check {
	decoded, err := credential.TokenEnvelope{Token: token}.Decode()
	if err != nil {
		return domain.Fail(jwtCheckName, jwtCheckDesc, err.Error())
	}

	alg := decoded.Algorithm()
	if alg == "" {
		return domain.Fail(jwtCheckName, jwtCheckDesc, "protected header declares no algorithm")
	}

	if typ, _ := decoded.Header["typ"].(string); !acceptableTokenTypes[typ] {
		return domain.Fail(jwtCheckName, jwtCheckDesc,
			fmt.Sprintf("token type %q is not acceptable for a verifiable credential", typ)).
			WithDetail("typ", typ)
	}

	resolver := v.resolver
	if opts.Resolver != nil {
		resolver = opts.Resolver
	}
	if resolver == nil {
		return domain.Fail(jwtCheckName, jwtCheckDesc, "no key resolver available")
	}

	pub, err := resolver.ResolveKey(ctx, verificationMethod)
	if err != nil {
		failed := domain.Fail(jwtCheckName, jwtCheckDesc,
			fmt.Sprintf("resolve verification method: %v", err)).
			WithDetail("verificationMethod", verificationMethod)
		if errors.Is(err, sentinel.ErrUnavailable) {
			failed = failed.WithDetail("unreachable", true)
		}
		return failed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{alg}),
		jwt.WithoutClaimsValidation(), // temporal windows are checked separately, with tolerance
	)

	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return pub, nil
	}); err != nil {
		v.logger.DebugContext(ctx, "token signature rejected",
			"verification_method", verificationMethod,
			"alg", alg,
			"error", err,
		)
		return domain.Fail(jwtCheckName, jwtCheckDesc,
			fmt.Sprintf("signature verification failed: %v", err)).
			WithDetail("alg", alg)
	}

	if opts.MaxProofAge > 0 {
		if check, ok := v.checkProofAge(claims, opts); !ok {
			return check
		}
	}

	return domain.Pass(jwtCheckName, jwtCheckDesc).
		WithDetail("alg", alg).
		WithDetail("verificationMethod", verificationMethod)
}

func (v *Verifier) checkProofAge(claims jwt.MapClaims, opts Options) (domain.Check, bool) {
	issuedAt, err := claims.GetIssuedAt()
	if err != nil || issuedAt == nil {
		return domain.Fail(jwtCheckName, jwtCheckDesc,
			"proof age limit requested but token carries no iat claim"), false
	}

	age := opts.now().Sub(issuedAt.Time)
	if age > opts.MaxProofAge {
		return domain.Fail(jwtCheckName, jwtCheckDesc,
			fmt.Sprintf("proof is %s old, exceeding the %s limit", age.Round(time.Second), opts.MaxProofAge)).
			WithDetail("issuedAt", issuedAt.Time), false
	}
	return domain.Check{}, true
}
