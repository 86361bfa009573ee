package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/secrets"
)

const (
	configSecrets    = "secrets"
	configISPs       = "isps"
	configRegistries = "registries"
	configContacts   = "contacts"
)

var configTypes = []string{configSecrets, configISPs, configRegistries, configContacts}

func newConfigCommand(ctx *Context) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long:  "Validate and list the secrets, ISPs, registries and contacts of an environment.",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and secret references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if err := secrets.NewSecretResolver(cfg.Secrets).ResolveAll(cfg); err != nil {
				return err
			}
			fmt.Fprintf(ctx.Out, "%s %s: %d registries, %d ISPs, %d contacts\n",
				SuccessStyle.Render("✓"), ctx.Env, len(cfg.Registries), len(cfg.ISPs), len(cfg.Contacts))
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list [" + strings.Join(configTypes, "|") + "]",
		Short: "List configuration items",
		Long:  "List configuration items. Lists everything when no type is given. Secret values are never printed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgType := ""
			if len(args) > 0 {
				cfgType = strings.ToLower(args[0])
				if !isConfigType(cfgType) {
					return fmt.Errorf("%w: config type %q (valid: %s)", domain.ErrInvalidType, cfgType, strings.Join(configTypes, ", "))
				}
			}
			cfg, err := ctx.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}
			show := func(t string) bool { return cfgType == "" || cfgType == t }
			section := func(w io.Writer, name string) {
				if cfgType == "" {
					fmt.Fprintln(w, TitleStyle.Render(title(name)+":"))
				}
			}

			w := ctx.Out
			if show(configSecrets) {
				section(w, configSecrets)
				for _, s := range cfg.Secrets {
					fmt.Fprintf(w, "  - %s\n", s.Name)
				}
			}
			if show(configISPs) {
				section(w, configISPs)
				for _, i := range cfg.ISPs {
					zones := "all zones"
					if len(i.Zones) > 0 {
						zones = strings.Join(i.Zones, ", ")
					}
					fmt.Fprintf(w, "  - %s (type: %s, %s)\n", i.Name, i.Type, zones)
				}
			}
			if show(configRegistries) {
				section(w, configRegistries)
				for _, r := range cfg.Registries {
					fmt.Fprintf(w, "  - %s (type: %s, tlds: %s, endpoint: %s)\n", r.Name, r.Type, strings.Join(r.TLDs, ", "), r.Endpoint)
				}
			}
			if show(configContacts) {
				section(w, configContacts)
				for _, c := range cfg.Contacts {
					kind := "registry id " + c.ID
					if c.ID == "" {
						kind = "created on demand"
					}
					fmt.Fprintf(w, "  - %s (%s)\n", c.Name, kind)
				}
			}
			return nil
		},
	}

	configCmd.AddCommand(validateCmd, listCmd)
	return configCmd
}

func isConfigType(t string) bool {
	for _, v := range configTypes {
		if v == t {
			return true
		}
	}
	return false
}
