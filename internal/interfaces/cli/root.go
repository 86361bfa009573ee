package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

func NewRootCommand(ctx *Context) *cobra.Command {
	var showVersion bool

	rootCmd := &cobra.Command{
		Use:           "regsync",
		Short:         "Domain registry session tool",
		Long:          "Regsync manages domains at registries: registration, nameservers, locks, transfers and the notification queue.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintln(ctx.Out, Version)
				return nil
			}
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.Env, "env", "e", ctx.Env, "Environment (prod/staging/dev)")
	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigDir, "config", "c", ctx.ConfigDir, "Configuration directory")
	rootCmd.PersistentFlags().StringVarP(&ctx.Registry, "registry", "r", "", "Registry account to use instead of routing by TLD")
	rootCmd.PersistentFlags().StringVarP(&ctx.Output, "output", "o", OutputText, "Output format (text/yaml/json)")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")

	rootCmd.SetOut(ctx.Out)
	rootCmd.SetErr(ctx.Err)

	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newRegisterCommand(ctx))
	rootCmd.AddCommand(newInfoCommand(ctx))
	rootCmd.AddCommand(newRenewCommand(ctx))
	rootCmd.AddCommand(newNSCommand(ctx))
	rootCmd.AddCommand(newContactCommand(ctx))
	rootCmd.AddCommand(newLockCommand(ctx, true))
	rootCmd.AddCommand(newLockCommand(ctx, false))
	rootCmd.AddCommand(newAuthCodeCommand(ctx))
	rootCmd.AddCommand(newTransferCommand(ctx))
	rootCmd.AddCommand(newPollCommand(ctx))
	rootCmd.AddCommand(newNotificationsCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newSandboxCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

func Execute() {
	ctx := NewContext()
	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(ctx).ExecuteContext(signalCtx); err != nil {
		fmt.Fprintln(ctx.Err, ErrorStyle.Render("Error:"), err)
		stop()
		os.Exit(1)
	}
}
