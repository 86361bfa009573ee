package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/registry"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/secrets"
)

type sandboxAccount struct {
	sandbox *registry.Sandbox
	creds   contract.Credentials
}

// sandboxFor returns the local registry behind a sandbox account together
// with the account's resolved credentials.
func (c *Context) sandboxFor(cmd *cobra.Command, name string) (*sandboxAccount, error) {
	cfg, err := c.LoadConfig(cmd.Context())
	if err != nil {
		return nil, err
	}
	reg, ok := cfg.GetRegistryMap()[name]
	if !ok {
		return nil, fmt.Errorf("%w: registry %s", domain.ErrMissingReference, name)
	}
	if reg.Type != entity.RegistryTypeSandbox {
		return nil, fmt.Errorf("%w: registry %s is %s, not sandbox", domain.ErrInvalidType, name, reg.Type)
	}
	profile, err := registry.ProfileFor(reg)
	if err != nil {
		return nil, err
	}
	creds, err := secrets.NewSecretResolver(cfg.Secrets).RegistryCredentials(reg)
	if err != nil {
		return nil, err
	}
	return &sandboxAccount{
		sandbox: registry.NewSandbox(registry.SandboxPath(reg.Endpoint, c.ConfigDir), profile),
		creds:   creds,
	}, nil
}

func newSandboxCommand(ctx *Context) *cobra.Command {
	sandboxCmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Manage the local sandbox registry",
		Long:  "Prepare the file-backed registry used for rehearsals and tests.",
	}

	initCmd := &cobra.Command{
		Use:   "init [registry]...",
		Short: "Create sandbox accounts from registries.yaml",
		Long:  "Create or re-key the sandbox account of every sandbox registry (or the named ones) using its configured credentials.",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				cfg, err := ctx.LoadConfig(cmd.Context())
				if err != nil {
					return err
				}
				for _, r := range cfg.Registries {
					if r.Type == entity.RegistryTypeSandbox {
						names = append(names, r.Name)
					}
				}
			}
			if len(names) == 0 {
				fmt.Fprintln(ctx.Out, NoopStyle.Render("No sandbox registries configured."))
				return nil
			}
			for _, name := range names {
				acct, err := ctx.sandboxFor(cmd, name)
				if err != nil {
					return err
				}
				if err := acct.sandbox.AddAccount(cmd.Context(), acct.creds.Username, acct.creds.Password); err != nil {
					return domain.WrapEntity("registry", name, err)
				}
				fmt.Fprintf(ctx.Out, "%s %s: account %s ready\n", SuccessStyle.Render("✓"), name, acct.creds.Username)
			}
			return nil
		},
	}

	var owner, authCode string
	seedCmd := &cobra.Command{
		Use:   "seed <domain>",
		Short: "Create a domain owned by a sandbox account",
		Long:  "Create a domain directly in the sandbox, bypassing contact checks. Use it to prepare transfers.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.Registry == "" {
				return domain.RequiredField("--registry")
			}
			acct, err := ctx.sandboxFor(cmd, ctx.Registry)
			if err != nil {
				return err
			}
			if owner == "" {
				owner = acct.creds.Username
			}
			if err := acct.sandbox.SeedDomain(cmd.Context(), owner, args[0], authCode); err != nil {
				return err
			}
			fmt.Fprintf(ctx.Out, "%s %s seeded for %s\n", SuccessStyle.Render("✓"), args[0], owner)
			return nil
		},
	}
	seedCmd.Flags().StringVar(&owner, "owner", "", "Owning sandbox account (default: the --registry account)")
	seedCmd.Flags().StringVar(&authCode, "auth-code", "", "Auth code to set, random when empty")

	sandboxCmd.AddCommand(initCmd, seedCmd)
	return sandboxCmd
}
