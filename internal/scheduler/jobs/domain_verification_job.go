package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/multitenant/pkg/verification"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

const (
	DomainVerificationJobName = "domain_verification_job"
	// DefaultDomainVerificationJobIntervalSeconds is the pace at which pending domains are re-checked.
	DefaultDomainVerificationJobIntervalSeconds = 300
	DefaultDomainVerificationBatchSize          = 100
)

// PendingBindingsReader pages through pending bindings ordered by ID, starting after afterID. An empty afterID starts
// from the beginning.
type PendingBindingsReader interface {
	GetPendingBindings(ctx context.Context, afterID string, limit int) ([]schema.DomainBinding, error)
}

type BindingVerifier interface {
	CheckVerification(ctx context.Context, bindingID string) (verification.Result, error)
}

type ResolutionCache interface {
	Clear()
}

type DomainVerificationJobOptions struct {
	Store              PendingBindingsReader
	Verifier           BindingVerifier
	ResolutionCache    ResolutionCache
	JobIntervalSeconds int
	BatchSize          int
}

func (o DomainVerificationJobOptions) Validate() error {
	if o.Store == nil {
		return errors.New("store cannot be nil")
	}
	if o.Verifier == nil {
		return errors.New("verifier cannot be nil")
	}
	if o.JobIntervalSeconds < DefaultMinimumJobIntervalSeconds {
		return fmt.Errorf("job interval must be at least %d seconds, got %d", DefaultMinimumJobIntervalSeconds, o.JobIntervalSeconds)
	}
	if o.BatchSize < 0 {
		return fmt.Errorf("batch size cannot be negative, got %d", o.BatchSize)
	}
	return nil
}

// domainVerificationJob re-checks the bindings whose verification started but has not succeeded yet. Each check is
// bounded by the verifier timeout, and a binding that is still not verified is simply retried on the next run.
// Every run resumes after the last binding checked by the previous one and wraps around, so all pending bindings get
// checked even when there are more than a batch of them.
type domainVerificationJob struct {
	store              PendingBindingsReader
	verifier           BindingVerifier
	resolutionCache    ResolutionCache
	jobIntervalSeconds int
	batchSize          int

	mu     sync.Mutex
	cursor string
}

func NewDomainVerificationJob(opts DomainVerificationJobOptions) (Job, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s options: %w", DomainVerificationJobName, err)
	}

	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = DefaultDomainVerificationBatchSize
	}

	return &domainVerificationJob{
		store:              opts.Store,
		verifier:           opts.Verifier,
		resolutionCache:    opts.ResolutionCache,
		jobIntervalSeconds: opts.JobIntervalSeconds,
		batchSize:          batchSize,
	}, nil
}

func (j *domainVerificationJob) GetName() string {
	return DomainVerificationJobName
}

func (j *domainVerificationJob) GetInterval() time.Duration {
	return time.Duration(j.jobIntervalSeconds) * time.Second
}

func (j *domainVerificationJob) Execute(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	bindings, err := j.nextBatch(ctx)
	if err != nil {
		return fmt.Errorf("getting pending bindings: %w", err)
	}
	if len(bindings) == 0 {
		j.cursor = ""
		log.Ctx(ctx).Debug("no pending domain verification")
		return nil
	}

	var verified int
	var errs []error
	for _, binding := range bindings {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		j.cursor = binding.ID

		result, checkErr := j.verifier.CheckVerification(ctx, binding.ID)
		if checkErr != nil {
			errs = append(errs, fmt.Errorf("checking binding %s for %s: %w", binding.ID, binding.Hostname, checkErr))
			continue
		}
		if result.IsVerified() {
			verified++
		}
	}

	if verified > 0 && j.resolutionCache != nil {
		j.resolutionCache.Clear()
	}
	log.Ctx(ctx).Infof("[%s] checked %d pending domains, %d verified", DomainVerificationJobName, len(bindings), verified)

	return errors.Join(errs...)
}

// nextBatch returns up to batchSize pending bindings after the cursor. When the end of the list is reached the batch is
// filled from the beginning, without repeating bindings already in it.
func (j *domainVerificationJob) nextBatch(ctx context.Context) ([]schema.DomainBinding, error) {
	bindings, err := j.store.GetPendingBindings(ctx, j.cursor, j.batchSize)
	if err != nil {
		return nil, err
	}
	if j.cursor == "" || len(bindings) >= j.batchSize {
		return bindings, nil
	}

	wrapped, err := j.store.GetPendingBindings(ctx, "", j.batchSize-len(bindings))
	if err != nil {
		return nil, err
	}
	for _, binding := range wrapped {
		if binding.ID > j.cursor {
			break
		}
		bindings = append(bindings, binding)
	}
	return bindings, nil
}

var _ Job = (*domainVerificationJob)(nil)
