// Command creditctl is the operator tool for a creditline deployment. It reads
// the same environment as the server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/davidbz/creditline/internal/auth"
	"github.com/davidbz/creditline/internal/config"
	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/observability"
	"github.com/davidbz/creditline/internal/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "creditctl",
		Short:        "Operate a creditline deployment",
		SilenceUsage: true,
	}

	root.AddCommand(newTokenCommand(), newBalanceCommand(), newQuoteCommand())

	return root
}

func newTokenCommand() *cobra.Command {
	var email, subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if subject == "" {
				subject = email
			}

			token, err := auth.NewAuthenticator(&cfg.Auth).IssueToken(subject, email)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email claim of the token")
	cmd.Flags().StringVar(&subject, "subject", "", "subject claim (defaults to the email)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newBalanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Inspect or adjust user balances",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get EMAIL",
			Short: "Print a user's balance",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLedger(cmd.Context(), func(ctx context.Context, ledger *domain.Ledger) error {
					balance, err := ledger.Peek(ctx, args[0])
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), balance.String())
					return err
				})
			},
		},
		newProvisionCommand(),
		newBalanceChangeCommand("set EMAIL AMOUNT", "Overwrite a user's balance", (*domain.Ledger).Set),
		newBalanceChangeCommand("credit EMAIL AMOUNT", "Add credits to a user's balance", (*domain.Ledger).Credit),
	)

	return cmd
}

func newProvisionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "provision EMAIL [AMOUNT]",
		Short: "Create an account unless it exists (amount defaults to LEDGER_DEFAULT_BALANCE)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			initial := config.Load().Ledger.DefaultBalance
			if len(args) == 2 {
				initial = args[1]
			}

			amount, err := domain.ParseAmount(initial)
			if err != nil {
				return err
			}

			return withLedger(cmd.Context(), func(ctx context.Context, ledger *domain.Ledger) error {
				if errProvision := ledger.Provision(ctx, args[0], amount); errProvision != nil {
					return errProvision
				}
				balance, errPeek := ledger.Peek(ctx, args[0])
				if errPeek != nil {
					return errPeek
				}
				_, errPeek = fmt.Fprintln(cmd.OutOrStdout(), balance.String())
				return errPeek
			})
		},
	}
}

type ledgerChange func(*domain.Ledger, context.Context, string, decimal.Decimal) (domain.BalanceChange, error)

func newBalanceChangeCommand(use, short string, change ledgerChange) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := domain.ParseAmount(args[1])
			if err != nil {
				return err
			}

			return withLedger(cmd.Context(), func(ctx context.Context, ledger *domain.Ledger) error {
				result, errChange := change(ledger, ctx, args[0], amount)
				if errChange != nil {
					return errChange
				}
				_, errChange = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n",
					result.Previous.String(), result.New.String())
				return errChange
			})
		},
	}
}

func withLedger(ctx context.Context, fn func(context.Context, *domain.Ledger) error) error {
	cfg := config.Load()

	stores, err := store.Open(&cfg.Ledger)
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	return fn(ctx, domain.NewLedger(stores.Balances, observability.NewEventBus()))
}

func newQuoteCommand() *cobra.Command {
	var (
		model                    string
		promptTokens, completion int64
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a completion with the configured rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()

			registry, err := config.NewPricingRegistry(&cfg.Pricing)
			if err != nil {
				return err
			}

			cost, err := domain.NewStandardCostCalculator(registry).Calculate(cmd.Context(), model, domain.Usage{
				PromptTokens:     promptTokens,
				CompletionTokens: completion,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cost.String())
			return err
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "namespaced model identifier")
	cmd.Flags().Int64Var(&promptTokens, "prompt", 0, "prompt tokens")
	cmd.Flags().Int64Var(&completion, "completion", 0, "completion tokens")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}
