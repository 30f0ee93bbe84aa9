package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"golang.org/x/sync/errgroup"

	"badgekeeper/internal/credential"
	"badgekeeper/internal/did"
	"badgekeeper/internal/domain"
	"badgekeeper/internal/issuer"
	"badgekeeper/internal/proof"
	"badgekeeper/internal/status"
	"badgekeeper/internal/verify/metrics"
	"badgekeeper/pkg/platform/sentinel"
	"badgekeeper/pkg/requestcontext"
)

const (
	formatCheckName        = "proof.format"
	presenceCheckName      = "proof.presence"
	policyCheckName        = "proof.policy"
	skippedCheckName       = "proof.skipped"
	issuerResolveCheckName = "issuer.resolution"
	issuerKeysCheckName    = "issuer.keys"
	panicCheckName         = "general.panic"
)

// DIDResolver resolves an issuer identifier to its DID document and key set.
type DIDResolver interface {
	Resolve(ctx context.Context, id string) (*did.Document, error)
	FetchJWKS(ctx context.Context, doc *did.Document) (*jose.JSONWebKeySet, issuer.KeySource, error)
}

// ProofVerifier verifies the two supported proof families.
type ProofVerifier interface {
	VerifyJWTProof(ctx context.Context, token, verificationMethod string, opts proof.Options) domain.Check
	VerifyLinkedDataProof(ctx context.Context, cred *credential.Credential, pf credential.Proof, opts proof.Options) domain.Check
}

// StatusChecker evaluates a credential against its revocation list.
type StatusChecker interface {
	Check(ctx context.Context, cred *credential.Credential, opts status.Options) domain.Check
}

// Service runs the verification pipeline over a parsed envelope.
type Service struct {
	resolver   DIDResolver
	proofs     ProofVerifier
	status     StatusChecker
	logger     *slog.Logger
	metrics    *metrics.Metrics
	loadSchema schemaLoader
}

// Option customizes a Service.
type Option func(*Service)

// WithSchemaLoader substitutes how declared credentialSchema references are
// fetched; the default dereferences them over HTTP.
func WithSchemaLoader(load schemaLoader) Option {
	return func(s *Service) { s.loadSchema = load }
}

// NewService wires the verification pipeline.
func NewService(resolver DIDResolver, proofs ProofVerifier, statusChecker StatusChecker, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		resolver:   resolver,
		proofs:     proofs,
		status:     statusChecker,
		logger:     logger,
		metrics:    m,
		loadSchema: referenceSchemaLoader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify runs every applicable check against the envelope and reports the
// aggregate outcome. It never returns an error: structural failures surface
// as StatusError results, and a panic anywhere in the pipeline is converted
// into a failing general check.
func (s *Service) Verify(ctx context.Context, env credential.Envelope, opts Options) (res *Result) {
	start := time.Now()
	now := requestcontext.Now(ctx)
	res = &Result{VerifiedAt: now, Metadata: Metadata{Envelope: env.Kind()}}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "panic during credential verification",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			res.Checks.General = append(res.Checks.General,
				domain.Fail(panicCheckName, "verification pipeline completed", fmt.Sprintf("internal error: %v", rec)))
			res.Error = "internal verification error"
			res.finalize(StatusError)
		}
		res.Metadata.DurationMS = time.Since(start).Milliseconds()
		s.metrics.ObserveVerification(string(env.Kind()), string(res.Status), time.Since(start))
		for _, check := range res.Checks.All() {
			if !check.Passed {
				s.metrics.IncrementCheckFailure(check.Check)
			}
		}
	}()

	var (
		cred  *credential.Credential
		token string
	)

	switch e := env.(type) {
	case credential.TokenEnvelope:
		decoded, err := e.Decode()
		if err != nil {
			res.Checks.Proof = append(res.Checks.Proof,
				domain.Fail(formatCheckName, "compact token decodes into header, payload, and signature", err.Error()))
			res.Error = err.Error()
			return res.finalize(StatusError)
		}
		res.Checks.Proof = append(res.Checks.Proof,
			domain.Pass(formatCheckName, "compact token decodes into header, payload, and signature").
				WithDetail("alg", decoded.Algorithm()))
		cred = decoded.Credential
		token = e.Token
		res.ProofType = "jwt"
		res.VerificationMethod = decoded.KeyID()
	case credential.DocumentEnvelope:
		cred = e.Credential
	default:
		res.Error = fmt.Sprintf("unsupported envelope kind %q", env.Kind())
		return res.finalize(StatusError)
	}

	typeCheck := checkBaseType(cred)
	res.Checks.Schema = append(res.Checks.Schema, typeCheck)
	if !typeCheck.Passed {
		res.Error = typeCheck.Error
		return res.finalize(StatusError)
	}

	if cred.Issuer.ID == "" {
		// Structural defect, not a failed verification: no issuer means
		// nothing downstream can run, so no check lists are populated.
		res.Error = "credential has no issuer"
		return res.finalize(StatusError)
	}

	res.CredentialID = cred.ID
	res.Issuer = cred.Issuer.ID
	if token != "" && res.VerificationMethod == "" {
		// No kid in the protected header: resolve keys through the issuer DID.
		res.VerificationMethod = res.Issuer
	}

	popts := proof.Options{
		MaxProofAge: time.Duration(opts.MaxProofAgeSeconds) * time.Second,
		Now:         now,
	}
	switch {
	case opts.SkipProofVerification:
		res.Checks.Proof = append(res.Checks.Proof,
			domain.Pass(skippedCheckName, "proof verification skipped by request").
				WithDetail("skipped", true))
	case token != "":
		check := s.proofs.VerifyJWTProof(ctx, token, res.VerificationMethod, popts)
		res.Checks.Proof = append(res.Checks.Proof, check)
		res.TotalProofs = 1
		if check.Passed {
			res.PassedProofs = 1
		}
	default:
		s.verifyEmbeddedProofs(ctx, cred, opts, popts, res)
	}

	tolerance := time.Duration(opts.ClockToleranceSeconds) * time.Second

	var (
		issuerChecks   []domain.Check
		temporalChecks []domain.Check
		statusCheck    domain.Check
		schemaChecks   []domain.Check
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		issuerChecks = s.checkIssuer(gctx, cred.Issuer.ID)
		return nil
	})
	g.Go(func() error {
		temporalChecks = []domain.Check{
			checkIssuance(cred, now, tolerance),
			checkExpiration(cred, now, tolerance, opts.AllowExpired),
		}
		return nil
	})
	g.Go(func() error {
		statusCheck = s.status.Check(gctx, cred, status.Options{AllowRevoked: opts.AllowRevoked})
		return nil
	})
	if opts.ValidateSchema {
		g.Go(func() error {
			schemaChecks = checkDeclaredSchemas(cred, s.loadSchema)
			return nil
		})
	}
	_ = g.Wait()

	res.Checks.Issuer = append(res.Checks.Issuer, issuerChecks...)
	res.Checks.Temporal = temporalChecks
	res.Checks.Status = append(res.Checks.Status, statusCheck)
	res.Checks.Schema = append(res.Checks.Schema, schemaChecks...)

	return res.finalize(decide(&res.Checks))
}

// verifyEmbeddedProofs verifies every embedded proof and records the policy
// verdict. With a single proof its check stands alone; with several, the
// per-proof outcomes live in ProofResults and a summary check carries the
// combined verdict under the requested policy.
func (s *Service) verifyEmbeddedProofs(ctx context.Context, cred *credential.Credential, opts Options, popts proof.Options, res *Result) {
	if len(cred.Proofs) == 0 {
		res.Checks.Proof = append(res.Checks.Proof,
			domain.Fail(presenceCheckName, "credential carries at least one proof", "credential document has no proof"))
		return
	}

	res.TotalProofs = len(cred.Proofs)
	res.ProofType = cred.Proofs[0].Type
	res.VerificationMethod = cred.Proofs[0].VerificationMethod

	for i, pf := range cred.Proofs {
		check := s.proofs.VerifyLinkedDataProof(ctx, cred, pf, popts)
		res.ProofResults = append(res.ProofResults, ProofResult{
			Index:              i,
			Type:               pf.Type,
			VerificationMethod: pf.VerificationMethod,
			Check:              check,
		})
		if check.Passed {
			res.PassedProofs++
		}
	}

	if res.TotalProofs == 1 {
		res.Checks.Proof = append(res.Checks.Proof, res.ProofResults[0].Check)
		return
	}

	policy := opts.policy()
	passed := res.PassedProofs == res.TotalProofs
	desc := fmt.Sprintf("all of %d proofs verify", res.TotalProofs)
	if policy == PolicyAny {
		passed = res.PassedProofs > 0
		desc = fmt.Sprintf("at least one of %d proofs verifies", res.TotalProofs)
	}

	summary := domain.Pass(policyCheckName, desc)
	if !passed {
		summary = domain.Fail(policyCheckName, desc,
			fmt.Sprintf("%d of %d proofs verified under policy %q", res.PassedProofs, res.TotalProofs, policy))
	}
	res.Checks.Proof = append(res.Checks.Proof, summary.
		WithDetail("policy", string(policy)).
		WithDetail("passed", res.PassedProofs).
		WithDetail("total", res.TotalProofs))
}

func (s *Service) checkIssuer(ctx context.Context, id string) []domain.Check {
	resolveDesc := "issuer identifier resolves to a DID document"
	doc, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		failed := domain.Fail(issuerResolveCheckName, resolveDesc, err.Error())
		switch {
		case errors.Is(err, sentinel.ErrUnavailable):
			failed = failed.WithDetail("unreachable", true)
		case errors.Is(err, sentinel.ErrUnsupported):
			failed = failed.WithDetail("unsupportedMethod", true)
		}
		return []domain.Check{failed}
	}
	checks := []domain.Check{domain.Pass(issuerResolveCheckName, resolveDesc).WithDetail("did", doc.ID)}

	keysDesc := "issuer publishes at least one verification key"
	keys, source, err := s.resolver.FetchJWKS(ctx, doc)
	if err != nil {
		failed := domain.Fail(issuerKeysCheckName, keysDesc, err.Error())
		if errors.Is(err, sentinel.ErrUnavailable) {
			failed = failed.WithDetail("unreachable", true)
		}
		return append(checks, failed)
	}
	return append(checks, domain.Pass(issuerKeysCheckName, keysDesc).
		WithDetail("source", string(source)).
		WithDetail("keys", len(keys.Keys)))
}

// decide maps the recorded checks to a final status. Any completed failure
// is invalid; failures caused only by unreachable endpoints downgrade to
// indeterminate rather than invalid.
func decide(checks *Checks) Status {
	unreachable := false
	for _, check := range checks.All() {
		if check.Passed {
			continue
		}
		if v, ok := check.Details["unreachable"].(bool); ok && v {
			unreachable = true
			continue
		}
		return StatusInvalid
	}
	if unreachable {
		return StatusIndeterminate
	}
	return StatusValid
}
