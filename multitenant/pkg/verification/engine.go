package verification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/internal/monitor"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

const (
	DefaultCheckTimeout = 5 * time.Second
	// DefaultThrottleTTL is how long a not_verified result is reused before the external proof is checked again.
	DefaultThrottleTTL       = 10 * time.Second
	defaultThrottleCacheSize = 10_000
)

const (
	ReasonTimeout          = "lookup timed out"
	ReasonRecordNotFound   = "record not found"
	ReasonValueMismatch    = "published value does not match the challenge"
	ReasonFileNotFound     = "challenge file not found"
	ReasonFileFetchFailure = "challenge file could not be fetched"
	ReasonTokenRotated     = "verification was reset while checking"
)

var (
	ErrNoVerificationMethod = errors.New("verification has not been started for this binding")
	ErrManualVerification   = errors.New("manually verified bindings have no challenge to check")
	ErrBindingChanged       = errors.New("binding was revoked while it was being verified")
)

type Status string

const (
	VerifiedStatus    Status = "verified"
	NotVerifiedStatus Status = "not_verified"
)

// Result is the outcome of a verification check. A not_verified result is expected while DNS propagates and can be
// retried at any time.
type Result struct {
	BindingID string                    `json:"binding_id"`
	Hostname  string                    `json:"hostname"`
	Method    schema.VerificationMethod `json:"method"`
	Status    Status                    `json:"status"`
	Reason    string                    `json:"reason,omitempty"`
	CheckedAt time.Time                 `json:"checked_at"`
}

func (r Result) IsVerified() bool {
	return r.Status == VerifiedStatus
}

// BindingStore is the storage used by the engine. Implementations must keep SetBindingVerified monotonic, and must
// only verify a binding whose current token is the one given.
type BindingStore interface {
	GetBinding(ctx context.Context, id string) (*schema.DomainBinding, error)
	SetBindingVerificationMethod(ctx context.Context, id string, method schema.VerificationMethod) (*schema.DomainBinding, error)
	SetBindingVerified(ctx context.Context, id, token string, method schema.VerificationMethod, verifiedAt time.Time) (*schema.DomainBinding, error)
	RevokeBinding(ctx context.Context, id string) (*schema.DomainBinding, error)
}

type EngineOptions struct {
	Store          BindingStore
	PlatformDomain string
	DNSResolver    DNSResolver
	FileFetcher    FileFetcher
	CheckTimeout   time.Duration
	ThrottleTTL    time.Duration
	MonitorService monitor.MonitorServiceInterface
}

func (o EngineOptions) Validate() error {
	if o.Store == nil {
		return errors.New("store cannot be nil")
	}
	if o.PlatformDomain == "" {
		return errors.New("platform domain cannot be empty")
	}
	if o.CheckTimeout < 0 {
		return fmt.Errorf("check timeout cannot be negative, got %s", o.CheckTimeout)
	}
	if o.ThrottleTTL < 0 {
		return fmt.Errorf("throttle ttl cannot be negative, got %s", o.ThrottleTTL)
	}
	return nil
}

// Engine issues ownership challenges and checks them against DNS or the claimed host.
type Engine struct {
	store          BindingStore
	platformDomain string
	dnsResolver    DNSResolver
	fileFetcher    FileFetcher
	checkTimeout   time.Duration
	throttle       *expirable.LRU[string, Result]
	monitorService monitor.MonitorServiceInterface
	now            func() time.Time
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validating engine options: %w", err)
	}

	engine := &Engine{
		store:          opts.Store,
		platformDomain: opts.PlatformDomain,
		dnsResolver:    opts.DNSResolver,
		fileFetcher:    opts.FileFetcher,
		checkTimeout:   opts.CheckTimeout,
		monitorService: opts.MonitorService,
		now:            time.Now,
	}
	if engine.dnsResolver == nil {
		engine.dnsResolver = net.DefaultResolver
	}
	if engine.fileFetcher == nil {
		engine.fileFetcher = NewHTTPFileFetcher(nil)
	}
	if engine.checkTimeout == 0 {
		engine.checkTimeout = DefaultCheckTimeout
	}
	if opts.ThrottleTTL > 0 {
		engine.throttle = expirable.NewLRU[string, Result](defaultThrottleCacheSize, nil, opts.ThrottleTTL)
	}

	return engine, nil
}

// BeginVerification records the method the studio chose and returns the challenge to publish. Calling it again returns
// the same challenge as long as the binding token is unchanged.
func (e *Engine) BeginVerification(ctx context.Context, bindingID string, method schema.VerificationMethod) (*Challenge, error) {
	if !method.IsChallengeMethod() {
		return nil, fmt.Errorf("%q is not a challenge verification method", method)
	}

	binding, err := e.store.SetBindingVerificationMethod(ctx, bindingID, method)
	if err != nil {
		return nil, fmt.Errorf("setting verification method: %w", err)
	}

	return NewChallenge(*binding, method, e.platformDomain)
}

// Challenge returns the challenge for a binding whose verification already started.
func (e *Engine) Challenge(ctx context.Context, bindingID string) (*Challenge, error) {
	binding, err := e.store.GetBinding(ctx, bindingID)
	if err != nil {
		return nil, fmt.Errorf("getting binding: %w", err)
	}
	if binding.VerificationMethod == nil {
		return nil, ErrNoVerificationMethod
	}
	if !binding.VerificationMethod.IsChallengeMethod() {
		return nil, ErrManualVerification
	}
	return NewChallenge(*binding, *binding.VerificationMethod, e.platformDomain)
}

// CheckVerification checks the published proof and marks the binding verified on an exact token match. Missing,
// mismatched or slow proofs produce a not_verified result and leave the binding untouched. Already verified bindings
// are reported as verified without any external lookup.
func (e *Engine) CheckVerification(ctx context.Context, bindingID string) (Result, error) {
	binding, err := e.store.GetBinding(ctx, bindingID)
	if err != nil {
		return Result{}, fmt.Errorf("getting binding: %w", err)
	}

	if binding.IsVerified() {
		result := e.newResult(*binding)
		result.Status = VerifiedStatus
		if binding.VerifiedAt != nil {
			result.CheckedAt = *binding.VerifiedAt
		}
		return result, nil
	}
	if binding.VerificationMethod == nil {
		return Result{}, ErrNoVerificationMethod
	}
	if !binding.VerificationMethod.IsChallengeMethod() {
		return Result{}, ErrManualVerification
	}

	throttleKey := fmt.Sprintf("%s:%s:%s", binding.ID, *binding.VerificationMethod, binding.VerificationToken)
	if e.throttle != nil {
		if cached, ok := e.throttle.Get(throttleKey); ok {
			return cached, nil
		}
	}

	challenge, err := NewChallenge(*binding, *binding.VerificationMethod, e.platformDomain)
	if err != nil {
		return Result{}, fmt.Errorf("building challenge: %w", err)
	}

	result := e.newResult(*binding)
	matched, reason := e.checkChallenge(ctx, *challenge)
	if !matched {
		result.Status = NotVerifiedStatus
		result.Reason = reason
		if e.throttle != nil {
			e.throttle.Add(throttleKey, result)
		}
		e.recordCheck(ctx, result)
		log.Ctx(ctx).Infof("binding %s for %s is not verified yet: %s", binding.ID, binding.Hostname, reason)
		return result, nil
	}

	verified, err := e.store.SetBindingVerified(ctx, binding.ID, binding.VerificationToken, *binding.VerificationMethod, result.CheckedAt)
	if err != nil {
		return Result{}, fmt.Errorf("marking binding as verified: %w", err)
	}
	if !verified.IsVerified() {
		// The binding was revoked during the lookup, so the proof was checked against a token that is gone.
		result.Status = NotVerifiedStatus
		result.Reason = ReasonTokenRotated
		e.recordCheck(ctx, result)
		log.Ctx(ctx).Warnf("binding %s for %s was revoked while being checked", binding.ID, binding.Hostname)
		return result, nil
	}
	result.Status = VerifiedStatus
	if verified.VerifiedAt != nil {
		result.CheckedAt = *verified.VerifiedAt
	}
	e.recordCheck(ctx, result)
	log.Ctx(ctx).Infof("binding %s for %s was verified with %s", binding.ID, binding.Hostname, result.Method)
	return result, nil
}

// ForceVerify marks a binding verified without a challenge. It is reserved to platform administrators.
func (e *Engine) ForceVerify(ctx context.Context, bindingID string) (*schema.DomainBinding, error) {
	current, err := e.store.GetBinding(ctx, bindingID)
	if err != nil {
		return nil, fmt.Errorf("getting binding: %w", err)
	}
	if current.IsVerified() {
		return current, nil
	}

	binding, err := e.store.SetBindingVerified(ctx, bindingID, current.VerificationToken, schema.ManualVerificationMethod, e.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("force verifying binding: %w", err)
	}
	if !binding.IsVerified() {
		return nil, ErrBindingChanged
	}
	e.recordCheck(ctx, Result{Method: schema.ManualVerificationMethod, Status: VerifiedStatus})
	return binding, nil
}

// Revoke un-verifies a binding. The binding gets a new token, so any proof still published for the old one is ignored.
func (e *Engine) Revoke(ctx context.Context, bindingID string) (*schema.DomainBinding, error) {
	binding, err := e.store.RevokeBinding(ctx, bindingID)
	if err != nil {
		return nil, fmt.Errorf("revoking binding: %w", err)
	}
	return binding, nil
}

func (e *Engine) checkChallenge(ctx context.Context, challenge Challenge) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, e.checkTimeout)
	defer cancel()

	type outcome struct {
		matched bool
		reason  string
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		switch challenge.Method {
		case schema.DNSTXTVerificationMethod:
			o.matched, o.reason = checkTXTRecord(ctx, e.dnsResolver, challenge)
		case schema.DNSCNAMEVerificationMethod:
			o.matched, o.reason = checkCNAMERecord(ctx, e.dnsResolver, challenge)
		case schema.FileVerificationMethod:
			o.matched, o.reason = e.checkFile(ctx, challenge)
		default:
			o.reason = fmt.Sprintf("unsupported method %q", challenge.Method)
		}
		done <- o
	}()

	// Collaborators that ignore the context must not hold the check past its timeout.
	select {
	case o := <-done:
		return o.matched, o.reason
	case <-ctx.Done():
		return false, ReasonTimeout
	}
}

func (e *Engine) checkFile(ctx context.Context, challenge Challenge) (bool, string) {
	body, err := e.fileFetcher.Fetch(ctx, challenge.URL)
	switch {
	case errors.Is(err, ErrChallengeFileNotFound):
		return false, ReasonFileNotFound
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return false, ReasonTimeout
	case err != nil:
		return false, fmt.Sprintf("%s: %v", ReasonFileFetchFailure, err)
	}

	if string(bytes.TrimSpace(body)) == challenge.FileContent {
		return true, ""
	}
	return false, ReasonValueMismatch
}

func (e *Engine) newResult(binding schema.DomainBinding) Result {
	result := Result{
		BindingID: binding.ID,
		Hostname:  binding.Hostname,
		CheckedAt: e.now().UTC(),
	}
	if binding.VerificationMethod != nil {
		result.Method = *binding.VerificationMethod
	}
	return result
}

func (e *Engine) recordCheck(ctx context.Context, result Result) {
	if e.monitorService == nil {
		return
	}
	labels := monitor.VerificationLabels{Method: string(result.Method), Status: string(result.Status)}
	if err := e.monitorService.MonitorCounters(monitor.VerificationChecksCounterTag, labels.ToMap()); err != nil {
		log.Ctx(ctx).Errorf("monitoring verification check: %v", err)
	}
}
