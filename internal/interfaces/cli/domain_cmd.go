package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lite-lake/infra-regsync/internal/application/registrar"
	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

// withProvider opens a session, picks the provider for domainName and
// always logs the session out afterwards.
func (c *Context) withProvider(cmd *cobra.Command, domainName string, fn func(ctx context.Context, s *Session, p *registrar.Provider) error) error {
	ctx := cmd.Context()
	s, err := c.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("closing registry sessions failed", "error", err)
		}
	}()

	p, err := s.Provider(c, domainName)
	if err != nil {
		return err
	}
	return fn(ctx, s, p)
}

func newCheckCommand(ctx *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "check <domain>...",
		Short: "Check domain availability",
		Long:  "Check whether domains can be registered or transferred in. Names are routed to their registries and checked in parallel.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close(context.WithoutCancel(cmd.Context()))

			var results []entity.Availability
			if ctx.Registry != "" {
				p, err := s.Registrar.Provider(ctx.Registry)
				if err != nil {
					return err
				}
				results, err = p.CheckAvailability(cmd.Context(), args)
				if err != nil {
					return err
				}
			} else {
				results, err = s.Registrar.CheckAvailability(cmd.Context(), args)
				if err != nil {
					return err
				}
			}
			return ctx.render(results, func(w io.Writer) {
				for _, a := range results {
					printAvailability(w, a)
				}
			})
		},
	}
}

func printAvailability(w io.Writer, a entity.Availability) {
	var state string
	switch {
	case a.CanRegister:
		state = SuccessStyle.Render("available")
	case a.CanTransfer:
		state = WarningStyle.Render("transferable")
	default:
		state = NoopStyle.Render("taken")
	}
	if a.IsPremium {
		state += " " + WarningStyle.Render("premium")
	}
	line := fmt.Sprintf("%-32s %s", a.Domain, state)
	if a.Description != "" {
		line += " " + HelpStyle.Render(a.Description)
	}
	fmt.Fprintln(w, line)
}

type contactFlags struct {
	registrant string
	admin      string
	tech       string
	billing    string
}

func (f *contactFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.registrant, "registrant", "", "Registrant contact (contacts.yaml name or registry id)")
	cmd.Flags().StringVar(&f.admin, "admin", "", "Admin contact, defaults to the registrant")
	cmd.Flags().StringVar(&f.tech, "tech", "", "Tech contact, defaults to the registrant")
	cmd.Flags().StringVar(&f.billing, "billing", "", "Billing contact, defaults to the registrant")
}

func (f *contactFlags) set(cfg *entity.Config) (entity.ContactSet, error) {
	if f.registrant == "" {
		return entity.ContactSet{}, domain.RequiredField("--registrant")
	}
	ref := func(v string) entity.ContactRef {
		if v == "" {
			return entity.ContactRef{}
		}
		return cfg.ContactRef(v)
	}
	return entity.ContactSet{
		Registrant: ref(f.registrant),
		Admin:      ref(f.admin),
		Tech:       ref(f.tech),
		Billing:    ref(f.billing),
	}, nil
}

func newRegisterCommand(ctx *Context) *cobra.Command {
	var contacts contactFlags
	var nameservers []string
	var period int
	var authCode string
	var yes bool

	cmd := &cobra.Command{
		Use:   "register <domain>",
		Short: "Register a domain",
		Long:  "Register a domain, creating missing contacts and nameserver hosts first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProvider(cmd, args[0], func(c context.Context, s *Session, p *registrar.Provider) error {
				set, err := contacts.set(s.Config)
				if err != nil {
					return err
				}
				hosts, err := entity.ParseNameserverSet(nameservers)
				if err != nil {
					return err
				}
				if !yes && !Confirm(ctx.In, ctx.Out, fmt.Sprintf("Register %s for %d year(s) at %s?", args[0], period, p.Name()), false) {
					fmt.Fprintln(ctx.Out, "Cancelled.")
					return nil
				}
				rec, err := p.Register(c, registrar.RegisterParams{
					Domain:      args[0],
					Period:      period,
					AuthCode:    authCode,
					Contacts:    set,
					Nameservers: hosts,
				})
				if err != nil {
					return err
				}
				return ctx.render(rec, func(w io.Writer) {
					printDomainRecord(w, rec, p.Profile().LockedStatuses)
				})
			})
		},
	}
	contacts.bind(cmd)
	cmd.Flags().StringSliceVar(&nameservers, "ns", nil, "Nameserver as host or host=ip (repeatable)")
	cmd.Flags().IntVar(&period, "period", domain.DefaultPeriodYears, "Registration period in years")
	cmd.Flags().StringVar(&authCode, "auth-code", "", "Auth code to set, generated by the registry when empty")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func newInfoCommand(ctx *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "info <domain>",
		Short: "Show domain details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProvider(cmd, args[0], func(c context.Context, _ *Session, p *registrar.Provider) error {
				rec, err := p.GetInfo(c, args[0])
				if err != nil {
					return err
				}
				return ctx.render(rec, func(w io.Writer) {
					printDomainRecord(w, rec, p.Profile().LockedStatuses)
				})
			})
		},
	}
}

func newRenewCommand(ctx *Context) *cobra.Command {
	var years int
	cmd := &cobra.Command{
		Use:   "renew <domain>",
		Short: "Renew a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProvider(cmd, args[0], func(c context.Context, _ *Session, p *registrar.Provider) error {
				rec, err := p.Renew(c, args[0], years)
				if err != nil {
					return err
				}
				return ctx.render(rec, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s renewed, expires %s\n", changeMark(true), rec.Name, formatTime(rec.ExpiresAt))
				})
			})
		},
	}
	cmd.Flags().IntVar(&years, "years", 1, "Years to add")
	return cmd
}

func newNSCommand(ctx *Context) *cobra.Command {
	nsCmd := &cobra.Command{
		Use:   "ns",
		Short: "Manage nameservers",
	}
	setCmd := &cobra.Command{
		Use:   "set <domain> <host[=ip]>...",
		Short: "Set the nameservers of a domain",
		Long:  "Make the nameservers attached to a domain equal to the given set. Applying the same set again changes nothing.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			desired, err := entity.ParseNameserverSet(args[1:])
			if err != nil {
				return err
			}
			return ctx.withProvider(cmd, args[0], func(c context.Context, _ *Session, p *registrar.Provider) error {
				res, err := p.UpdateNameservers(c, args[0], desired)
				if err != nil {
					return err
				}
				return ctx.render(res, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s: %s\n", changeMark(res.Changed), res.Domain, res.Message)
					for _, h := range res.Added {
						fmt.Fprintln(w, SuccessStyle.Render("  + "+h))
					}
					for _, h := range res.Removed {
						fmt.Fprintln(w, ErrorStyle.Render("  - "+h))
					}
				})
			})
		},
	}
	nsCmd.AddCommand(setCmd)
	return nsCmd
}

func newContactCommand(ctx *Context) *cobra.Command {
	contactCmd := &cobra.Command{
		Use:   "contact",
		Short: "Manage domain contacts",
	}
	setRegistrantCmd := &cobra.Command{
		Use:   "set-registrant <domain> <contact>",
		Short: "Change the registrant of a domain",
		Long:  "Point the domain at a contacts.yaml entry or a registry contact id. Contacts described by fields are created first.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProvider(cmd, args[0], func(c context.Context, s *Session, p *registrar.Provider) error {
				contact, err := p.UpdateRegistrantContact(c, args[0], s.Config.ContactRef(args[1]))
				if err != nil {
					return err
				}
				return ctx.render(contact, func(w io.Writer) {
					printContact(w, contact)
				})
			})
		},
	}
	contactCmd.AddCommand(setRegistrantCmd)
	return contactCmd
}

func newLockCommand(ctx *Context, lock bool) *cobra.Command {
	use, short := "unlock <domain>", "Remove the registry lock from a domain"
	if lock {
		use, short = "lock <domain>", "Lock a domain at the registry"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProvider(cmd, args[0], func(c context.Context, _ *Session, p *registrar.Provider) error {
				res, err := p.SetLock(c, args[0], lock)
				if err != nil {
					return err
				}
				return ctx.render(res, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s: %s\n", changeMark(res.Changed), res.Domain.Name, res.Message)
				})
			})
		},
	}
}

func newAuthCodeCommand(ctx *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "auth-code <domain>",
		Short: "Print the transfer auth code of a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProvider(cmd, args[0], func(c context.Context, _ *Session, p *registrar.Provider) error {
				code, err := p.GetAuthCode(c, args[0])
				if err != nil {
					return err
				}
				return ctx.render(map[string]string{"domain": args[0], "auth_code": code}, func(w io.Writer) {
					fmt.Fprintln(w, code)
				})
			})
		},
	}
}
