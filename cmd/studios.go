package cmd

import (
	"context"
	"errors"
	"fmt"
	"go/types"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/photoproof/photoproof-backend/cmd/utils"
	"github.com/photoproof/photoproof-backend/db"
	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/provisioning"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/verification"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

type StudioOnboarder interface {
	OnboardStudio(ctx context.Context, input provisioning.OnboardingInput) (*provisioning.OnboardingResult, error)
}

type StudioFeatureChecker interface {
	IsEnabled(ctx context.Context, studio schema.Studio, key data.FeatureKey) (bool, error)
}

type DomainVerifier interface {
	BeginVerification(ctx context.Context, bindingID string, method schema.VerificationMethod) (*verification.Challenge, error)
	CheckVerification(ctx context.Context, bindingID string) (verification.Result, error)
	ForceVerify(ctx context.Context, bindingID string) (*schema.DomainBinding, error)
	Revoke(ctx context.Context, bindingID string) (*schema.DomainBinding, error)
}

// StudiosCmdService holds the dependencies of the studio administration commands.
type StudiosCmdService struct {
	Studios   tenant.Store
	Features  StudioFeatureChecker
	Onboarder StudioOnboarder
	Verifier  DomainVerifier
}

// AddDomain registers an unverified custom domain for a studio whose plan allows it.
func (s *StudiosCmdService) AddDomain(ctx context.Context, studioID, hostname string, isPrimary bool) (*schema.Studio, *schema.DomainBinding, error) {
	studio, err := s.Studios.GetStudio(ctx, studioID)
	if err != nil {
		return nil, nil, fmt.Errorf("getting studio %s: %w", studioID, err)
	}

	enabled, err := s.Features.IsEnabled(ctx, *studio, data.CustomDomainFeature)
	if err != nil {
		return nil, nil, fmt.Errorf("getting features of studio %s: %w", studioID, err)
	}
	if !enabled {
		return nil, nil, fmt.Errorf("registering a custom domain for studio %s: %w", studioID, data.ErrFeatureNotEnabled)
	}

	binding, err := s.Studios.CreateBinding(ctx, tenant.BindingInsert{StudioID: studio.ID, Hostname: hostname, IsPrimary: isPrimary})
	if err != nil {
		return nil, nil, fmt.Errorf("registering domain %q: %w", hostname, err)
	}
	return studio, binding, nil
}

// StudiosServiceFactory builds the service used by the studios commands and returns a function releasing its
// resources.
type StudiosServiceFactory func(ctx context.Context, globalOptions cmdUtils.GlobalOptionsType) (*StudiosCmdService, func(), error)

// NewDatabaseStudiosCmdService wires the commands to the database configured in the global options.
func NewDatabaseStudiosCmdService(_ context.Context, globalOptions cmdUtils.GlobalOptionsType) (*StudiosCmdService, func(), error) {
	dbConnectionPool, err := db.OpenDBConnectionPool(globalOptions.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database connection: %w", err)
	}
	closeFn := func() {
		if closeErr := dbConnectionPool.Close(); closeErr != nil {
			log.Errorf("closing database connection: %v", closeErr)
		}
	}

	models, err := data.NewModels(dbConnectionPool)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("creating models: %w", err)
	}

	studioManager := tenant.NewManager(
		tenant.WithDatabase(dbConnectionPool),
		tenant.WithPlatformDomain(globalOptions.PlatformDomain),
	)

	// no throttle: an operator running the command expects a fresh lookup
	engine, err := verification.NewEngine(verification.EngineOptions{
		Store:          studioManager,
		PlatformDomain: globalOptions.PlatformDomain,
	})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("creating verification engine: %w", err)
	}

	return &StudiosCmdService{
		Studios:  studioManager,
		Features: models.Features,
		Onboarder: provisioning.NewManager(
			provisioning.WithDatabase(dbConnectionPool),
			provisioning.WithStudioManager(studioManager),
			provisioning.WithModels(models),
		),
		Verifier: engine,
	}, closeFn, nil
}

// StudiosCommand groups the studio administration commands used by platform operators.
type StudiosCommand struct {
	ServiceFactory StudiosServiceFactory
	Confirmer      cmdUtils.Confirmer
}

func (c *StudiosCommand) Command(globalOptions *cmdUtils.GlobalOptionsType) *cobra.Command {
	if c.ServiceFactory == nil {
		c.ServiceFactory = NewDatabaseStudiosCmdService
	}
	if c.Confirmer == nil {
		c.Confirmer = cmdUtils.PromptConfirmer{}
	}

	cmd := &cobra.Command{
		Use:              "studios",
		Short:            "Studio and custom domain administration",
		PersistentPreRun: cmdUtils.PropagatePersistentPreRun,
		RunE:             cmdUtils.CallHelpCommand,
	}

	cmd.AddCommand(c.addCmd(globalOptions))
	cmd.AddCommand(c.listCmd(globalOptions))
	cmd.AddCommand(c.setActiveCmd(globalOptions, true))
	cmd.AddCommand(c.setActiveCmd(globalOptions, false))
	cmd.AddCommand(c.addDomainCmd(globalOptions))
	cmd.AddCommand(c.verifyDomainCmd(globalOptions))
	cmd.AddCommand(c.revokeDomainCmd(globalOptions))

	return cmd
}

// withService runs fn with a service built by the factory and releases it afterwards.
func (c *StudiosCommand) withService(cmd *cobra.Command, globalOptions *cmdUtils.GlobalOptionsType, fn func(ctx context.Context, service *StudiosCmdService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	service, closeFn, err := c.ServiceFactory(ctx, *globalOptions)
	if err != nil {
		return fmt.Errorf("setting up studios service: %w", err)
	}
	defer closeFn()

	return fn(ctx, service)
}

func (c *StudiosCommand) addCmd(globalOptions *cmdUtils.GlobalOptionsType) *cobra.Command {
	input := provisioning.OnboardingInput{}
	var subdomain, phone, plan string

	configOpts := config.ConfigOptions{
		{
			Name:      "studio-name",
			Usage:     "Display name of the studio",
			OptType:   types.String,
			ConfigKey: &input.StudioName,
			Required:  true,
		},
		{
			Name:      "studio-email",
			Usage:     "Contact email of the studio. It is also the owner login unless --owner-email is set.",
			OptType:   types.String,
			ConfigKey: &input.Email,
			Required:  true,
		},
		{
			Name:      "studio-phone",
			Usage:     "Contact phone of the studio, in E.164 format",
			OptType:   types.String,
			ConfigKey: &phone,
			Required:  false,
		},
		{
			Name:      "studio-subdomain",
			Usage:     "Platform subdomain label of the studio, e.g. lumen for lumen.<platform-domain>",
			OptType:   types.String,
			ConfigKey: &subdomain,
			Required:  false,
		},
		{
			Name:        "studio-plan",
			Usage:       `Subscription plan. Options: "starter", "professional", "enterprise"`,
			OptType:     types.String,
			ConfigKey:   &plan,
			FlagDefault: string(schema.StarterPlan),
			Required:    false,
		},
		{
			Name:      "owner-email",
			Usage:     "Login email of the studio owner",
			OptType:   types.String,
			ConfigKey: &input.OwnerEmail,
			Required:  false,
		},
		{
			Name:      "owner-first-name",
			Usage:     "First name of the studio owner",
			OptType:   types.String,
			ConfigKey: &input.OwnerFirstName,
			Required:  false,
		},
		{
			Name:      "owner-last-name",
			Usage:     "Last name of the studio owner",
			OptType:   types.String,
			ConfigKey: &input.OwnerLastName,
			Required:  false,
		},
		{
			Name:      "owner-password",
			Usage:     "Initial password of the studio owner",
			OptType:   types.String,
			ConfigKey: &input.OwnerPassword,
			Required:  false,
		},
		{
			Name:      "custom-domain",
			Usage:     "Custom domain to register as the unverified primary domain of the studio",
			OptType:   types.String,
			ConfigKey: &input.CustomDomain,
			Required:  false,
		},
	}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Onboard a studio with its owner and, optionally, its custom domain",
		Args:  cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmdUtils.PropagatePersistentPreRun(cmd, args)
			configOpts.Require()
			if err := configOpts.SetValues(); err != nil {
				log.Ctx(cmd.Context()).Fatalf("Error setting values of config options: %v", err)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			onboardingInput := input
			onboardingInput.Plan = schema.Plan(strings.ToLower(plan))
			if subdomain != "" {
				onboardingInput.Subdomain = &subdomain
			}
			if phone != "" {
				onboardingInput.Phone = &phone
			}

			return c.withService(cmd, globalOptions, func(ctx context.Context, service *StudiosCmdService) error {
				result, err := service.Onboarder.OnboardStudio(ctx, onboardingInput)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Studio %q created with id %s\n", result.Studio.Name, result.Studio.ID)
				fmt.Fprintf(out, "Owner %s created with id %s\n", result.Owner.Email, result.Owner.ID)
				if result.Binding != nil {
					fmt.Fprintf(out, "Custom domain %s registered with id %s. It is served once verified: photoproof studios verify-domain %s --method %s\n",
						result.Binding.Hostname, result.Binding.ID, result.Binding.ID, schema.DNSTXTVerificationMethod)
				}
				return nil
			})
		},
	}

	if err := configOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}
	return cmd
}

func (c *StudiosCommand) listCmd(globalOptions *cmdUtils.GlobalOptionsType) *cobra.Command {
	var status, query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List studios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statusFilter, err := tenant.ParseStatusFilter(status)
			if err != nil {
				return err
			}

			return c.withService(cmd, globalOptions, func(ctx context.Context, service *StudiosCmdService) error {
				studios, err := service.Studios.GetAllStudios(ctx, &tenant.QueryParams{Query: query, Status: statusFilter})
				if err != nil {
					return fmt.Errorf("listing studios: %w", err)
				}
				return printStudios(cmd.OutOrStdout(), studios)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", string(tenant.StatusFilterAll), `Filter by status. Options: "active", "inactive", "all"`)
	cmd.Flags().StringVar(&query, "q", "", "Case-insensitive match on the studio name, email or subdomain")
	return cmd
}

func printStudios(out io.Writer, studios []schema.Studio) error {
	if len(studios) == 0 {
		_, err := fmt.Fprintln(out, "No studios found")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSUBDOMAIN\tPLAN\tACTIVE")
	for _, studio := range studios {
		subdomain := "-"
		if studio.Subdomain != nil {
			subdomain = *studio.Subdomain
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", studio.ID, studio.Name, subdomain, studio.Plan, studio.IsActive)
	}
	return w.Flush()
}

func (c *StudiosCommand) setActiveCmd(globalOptions *cmdUtils.GlobalOptionsType, active bool) *cobra.Command {
	use, short := "activate", "Activate a studio so its hostnames resolve again"
	if !active {
		use, short = "deactivate", "Deactivate a studio. Its hostnames stop resolving and its data is kept."
	}
	var yes bool

	cmd := &cobra.Command{
		Use:   use + " studio-id",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, globalOptions, func(ctx context.Context, service *StudiosCmdService) error {
				studio, err := service.Studios.GetStudio(ctx, args[0])
				if err != nil {
					return fmt.Errorf("getting studio %s: %w", args[0], err)
				}

				if !active && !yes {
					if err = c.Confirmer.Confirm(fmt.Sprintf("Deactivate studio %q", studio.Name)); err != nil {
						return err
					}
				}

				studio, err = service.Studios.SetStudioActive(ctx, studio.ID, active)
				if err != nil {
					return fmt.Errorf("updating studio %s: %w", args[0], err)
				}

				state := "active"
				if !studio.IsActive {
					state = "inactive"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Studio %q (%s) is now %s\n", studio.Name, studio.ID, state)
				return nil
			})
		},
	}
	if !active {
		cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	}
	return cmd
}

func (c *StudiosCommand) addDomainCmd(globalOptions *cmdUtils.GlobalOptionsType) *cobra.Command {
	var primary bool

	cmd := &cobra.Command{
		Use:   "add-domain studio-id hostname",
		Short: "Register an unverified custom domain for a studio",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, globalOptions, func(ctx context.Context, service *StudiosCmdService) error {
				studio, binding, err := service.AddDomain(ctx, args[0], args[1], primary)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Domain %s registered for studio %q with id %s\n", binding.Hostname, studio.Name, binding.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&primary, "primary", false, "Make it the primary domain of the studio")
	return cmd
}

func (c *StudiosCommand) verifyDomainCmd(globalOptions *cmdUtils.GlobalOptionsType) *cobra.Command {
	var method string
	var force, yes bool

	cmd := &cobra.Command{
		Use:   "verify-domain domain-id",
		Short: "Start or check the verification of a custom domain",
		Long: "Start or check the verification of a custom domain. With --method the verification starts (or switches) " +
			"to that method and the challenge to publish is printed before checking it. With --force the domain is " +
			"marked verified without any challenge.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindingID := args[0]
			if force && method != "" {
				return errors.New("--force and --method cannot be used together")
			}
			if method != "" && !schema.VerificationMethod(method).IsChallengeMethod() {
				return fmt.Errorf("invalid --method %q, options: %s, %s, %s", method,
					schema.DNSTXTVerificationMethod, schema.DNSCNAMEVerificationMethod, schema.FileVerificationMethod)
			}

			return c.withService(cmd, globalOptions, func(ctx context.Context, service *StudiosCmdService) error {
				out := cmd.OutOrStdout()

				if force {
					binding, err := service.Studios.GetBinding(ctx, bindingID)
					if err != nil {
						return fmt.Errorf("getting domain %s: %w", bindingID, err)
					}
					if !yes {
						if err = c.Confirmer.Confirm(fmt.Sprintf("Mark %s as verified without a challenge", binding.Hostname)); err != nil {
							return err
						}
					}
					binding, err = service.Verifier.ForceVerify(ctx, bindingID)
					if err != nil {
						return fmt.Errorf("force verifying domain %s: %w", bindingID, err)
					}
					fmt.Fprintf(out, "Domain %s is verified (%s)\n", binding.Hostname, schema.ManualVerificationMethod)
					return nil
				}

				if method != "" {
					challenge, err := service.Verifier.BeginVerification(ctx, bindingID, schema.VerificationMethod(method))
					if err != nil {
						return fmt.Errorf("starting verification of domain %s: %w", bindingID, err)
					}
					fmt.Fprintln(out, challenge.Instructions)
				}

				result, err := service.Verifier.CheckVerification(ctx, bindingID)
				if err != nil {
					return fmt.Errorf("checking domain %s: %w", bindingID, err)
				}
				if result.IsVerified() {
					fmt.Fprintf(out, "Domain %s is verified (%s)\n", result.Hostname, result.Method)
				} else {
					fmt.Fprintf(out, "Domain %s is not verified yet: %s\n", result.Hostname, result.Reason)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", "", `Verification method to start. Options: "dns_txt", "dns_cname", "file"`)
	cmd.Flags().BoolVar(&force, "force", false, "Mark the domain as verified without a challenge")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func (c *StudiosCommand) revokeDomainCmd(globalOptions *cmdUtils.GlobalOptionsType) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "revoke-domain domain-id",
		Short: "Revoke the verification of a custom domain. It stops resolving and needs a new challenge.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, globalOptions, func(ctx context.Context, service *StudiosCmdService) error {
				binding, err := service.Studios.GetBinding(ctx, args[0])
				if err != nil {
					return fmt.Errorf("getting domain %s: %w", args[0], err)
				}

				if !yes {
					if err = c.Confirmer.Confirm(fmt.Sprintf("Revoke the verification of %s", binding.Hostname)); err != nil {
						return err
					}
				}

				if _, err = service.Verifier.Revoke(ctx, binding.ID); err != nil {
					return fmt.Errorf("revoking domain %s: %w", binding.ID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Verification of %s revoked\n", binding.Hostname)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
