package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/lite-lake/infra-regsync/internal/application/registrar"
	"github.com/lite-lake/infra-regsync/internal/domain"
)

func newTransferCommand(ctx *Context) *cobra.Command {
	transferCmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer domains into an account",
		Long:  "Request a transfer with the auth code from the losing registrar, then run finish until the registry settles it.",
	}

	var contacts contactFlags
	var authCode string
	var period int
	startCmd := &cobra.Command{
		Use:   "start <domain>",
		Short: "Request a transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProvider(cmd, args[0], func(c context.Context, s *Session, p *registrar.Provider) error {
				if authCode == "" {
					return domain.RequiredField("--auth-code")
				}
				params := registrar.TransferParams{
					Domain:   args[0],
					AuthCode: authCode,
					Period:   period,
				}
				if contacts.registrant != "" {
					set, err := contacts.set(s.Config)
					if err != nil {
						return err
					}
					params.Contacts = set
				}
				st, err := p.InitiateTransfer(c, params)
				if err != nil {
					return err
				}
				return ctx.render(st, func(w io.Writer) {
					printTransferStatus(w, st)
				})
			})
		},
	}
	contacts.bind(startCmd)
	startCmd.Flags().StringVar(&authCode, "auth-code", "", "Auth code issued by the losing registrar")
	startCmd.Flags().IntVar(&period, "period", domain.DefaultPeriodYears, "Years added on completion")

	finishCmd := &cobra.Command{
		Use:   "finish <domain>",
		Short: "Check whether a requested transfer has completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProvider(cmd, args[0], func(c context.Context, _ *Session, p *registrar.Provider) error {
				st, err := p.FinishTransfer(c, args[0])
				if err != nil {
					return err
				}
				return ctx.render(st, func(w io.Writer) {
					printTransferStatus(w, st)
				})
			})
		},
	}

	transferCmd.AddCommand(startCmd, finishCmd)
	return transferCmd
}
