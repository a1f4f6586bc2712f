package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/membership"
	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/types"
)

const day = 24 * time.Hour

const timeLayout = "2006-01-02 15:04:05Z07:00"

// ──────────────────────────────────────────────────
// Catalog
// ──────────────────────────────────────────────────

func (a *app) plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the tier plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIER\tFEE\tDAYS\tACTIVE")
				for _, p := range l.ListTierPlans(ctx) {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", p.Tier, p.Fee, int(p.Duration/day), p.Active)
				}
				return tw.Flush()
			})
		},
	}
}

func (a *app) setFeeCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "set-fee <tier> <fee>",
		Short: "Change the fee and period of a tier (owner only)",
		Example: `  # Basic costs 12.00 per 90 days
  membershipctl set-fee basic 1200 --days 90 --as 0xowner`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			t, err := tier.Parse(args[0])
			if err != nil {
				return err
			}
			fee, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("fee: %w", err)
			}
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				duration := time.Duration(days) * day
				if err := l.ChangeMembershipFee(ctx, caller, t, types.New(fee, l.Currency()), duration); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now costs %s per %d days\n", t, types.New(fee, l.Currency()), days)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "length of one period in days")
	return cmd
}

func (a *app) setActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-active <tier> <true|false>",
		Short: "Open or close a tier to new business (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			t, err := tier.Parse(args[0])
			if err != nil {
				return err
			}
			active, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("active: %w", err)
			}
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				if err := l.SetTierActive(ctx, caller, t, active); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", t, active)
				return nil
			})
		},
	}
}

// ──────────────────────────────────────────────────
// Membership
// ──────────────────────────────────────────────────

func (a *app) purchaseCmd() *cobra.Command {
	var (
		periods int
		pay     int64
		details member.Details
	)
	cmd := &cobra.Command{
		Use:   "purchase <tier>",
		Short: "Buy a membership",
		Example: `  # Two quarters of Basic at 10.00 each
  membershipctl purchase basic --periods 2 --pay 2000 --name Alice --email alice@example.com --as 0xalice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			t, err := tier.Parse(args[0])
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				if err := l.Purchase(ctx, caller, t, periods, details, types.New(pay, l.Currency())); err != nil {
					return err
				}
				return printRecord(ctx, cmd, l, caller)
			})
		},
	}
	cmd.Flags().IntVar(&periods, "periods", 1, "number of periods to buy")
	cmd.Flags().Int64Var(&pay, "pay", 0, "payment in minor units")
	cmd.Flags().StringVar(&details.Name, "name", "", "member name")
	cmd.Flags().StringVar(&details.Email, "email", "", "member email")
	return cmd
}

func (a *app) renewCmd() *cobra.Command {
	var pay int64
	cmd := &cobra.Command{
		Use:   "renew",
		Short: "Extend the caller's membership by one period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				if err := l.RenewMembership(ctx, caller, types.New(pay, l.Currency())); err != nil {
					return err
				}
				return printRecord(ctx, cmd, l, caller)
			})
		},
	}
	cmd.Flags().Int64Var(&pay, "pay", 0, "payment in minor units")
	return cmd
}

func (a *app) upgradeCmd() *cobra.Command {
	var (
		periods int
		pay     int64
	)
	cmd := &cobra.Command{
		Use:   "upgrade <tier>",
		Short: "Move the caller to a higher tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			t, err := tier.Parse(args[0])
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				if err := l.UpgradeMembership(ctx, caller, t, periods, types.New(pay, l.Currency())); err != nil {
					return err
				}
				return printRecord(ctx, cmd, l, caller)
			})
		},
	}
	cmd.Flags().IntVar(&periods, "periods", 1, "number of periods of the new tier to buy")
	cmd.Flags().Int64Var(&pay, "pay", 0, "payment in minor units")
	return cmd
}

func (a *app) detailsCmd() *cobra.Command {
	var details member.Details
	cmd := &cobra.Command{
		Use:   "details",
		Short: "Change the caller's name and email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				if err := l.ChangeDetails(ctx, caller, details); err != nil {
					return err
				}
				return printRecord(ctx, cmd, l, caller)
			})
		},
	}
	cmd.Flags().StringVar(&details.Name, "name", "", "member name")
	cmd.Flags().StringVar(&details.Email, "email", "", "member email")
	return cmd
}

func (a *app) revokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <address>",
		Short: "Revoke a membership (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			target, err := member.ParseAddress(args[0])
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				if err := l.RevokeMembership(ctx, caller, target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", target)
				return nil
			})
		},
	}
}

// ──────────────────────────────────────────────────
// Treasury
// ──────────────────────────────────────────────────

func (a *app) withdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw",
		Short: "Transfer the treasury balance to the owner (owner only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				w, err := l.WithdrawFunds(ctx, caller)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "withdrew %s to %s (entry %d)\n", w.Amount, w.To, w.Sequence)
				return nil
			})
		},
	}
}

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the treasury balance and lifetime totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				acct := l.Treasury(ctx)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "balance:   %s\n", acct.Balance)
				fmt.Fprintf(out, "collected: %s\n", acct.Collected)
				fmt.Fprintf(out, "withdrawn: %s\n", acct.Withdrawn)
				return nil
			})
		},
	}
}

// ──────────────────────────────────────────────────
// Directory
// ──────────────────────────────────────────────────

func (a *app) memberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "member [address]",
		Short: "Show a member record (defaults to --as)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				addr member.Address
				err  error
			)
			if len(args) == 1 {
				addr, err = member.ParseAddress(args[0])
			} else {
				addr, err = a.caller()
			}
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				return printRecord(ctx, cmd, l, addr)
			})
		},
	}
}

func (a *app) membersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List every address that ever purchased",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ADDRESS\tTIER\tEXPIRY\tSTATUS")
				for _, addr := range l.ListAllMembers(ctx) {
					rec, err := l.GetMemberRecord(ctx, addr)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", addr, rec.Tier, rec.Expiry.Format(timeLayout), status(ctx, l, rec))
				}
				return tw.Flush()
			})
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var (
		subject string
		after   uint64
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journal entries, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd, func(ctx context.Context, l *membership.Ledger) error {
				entries, err := l.History(ctx, member.Address(subject), after, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SEQ\tKIND\tCALLER\tSUBJECT\tAMOUNT\tRECORDED")
				for _, e := range entries {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
						e.Sequence, e.Kind, e.Caller, e.Subject, entryAmount(e), e.RecordedAt.Format(timeLayout))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&subject, "member", "", "only entries for this address")
	cmd.Flags().Uint64Var(&after, "after", 0, "only entries after this sequence")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries (0 for all)")
	return cmd
}

// ──────────────────────────────────────────────────
// Maintenance
// ──────────────────────────────────────────────────

func (a *app) compactCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Delete all but the newest snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep < 1 {
				return fmt.Errorf("--keep must be at least 1, got %d", keep)
			}
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Migrate(cmd.Context()); err != nil {
				return err
			}
			n, err := s.PruneSnapshots(cmd.Context(), keep)
			if err != nil {
				return err
			}
			a.logger.Info("pruned snapshots", "deleted", n, "kept", keep)
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d snapshots\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 3, "number of snapshots to keep")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config or database needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "membershipctl %s\n", Version)
			if GitCommit != "unknown" {
				fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", GitCommit)
			}
		},
	}
}

// ──────────────────────────────────────────────────
// Output helpers
// ──────────────────────────────────────────────────

func printRecord(ctx context.Context, cmd *cobra.Command, l *membership.Ledger, addr member.Address) error {
	rec, err := l.GetMemberRecord(ctx, addr)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "address: %s\n", rec.Address)
	fmt.Fprintf(out, "tier:    %s\n", rec.Tier)
	fmt.Fprintf(out, "expiry:  %s\n", rec.Expiry.Format(timeLayout))
	fmt.Fprintf(out, "status:  %s\n", status(ctx, l, rec))
	if rec.Name != "" || rec.Email != "" {
		fmt.Fprintf(out, "contact: %s <%s>\n", rec.Name, rec.Email)
	}
	return nil
}

func status(ctx context.Context, l *membership.Ledger, rec member.Record) string {
	switch {
	case !rec.IsMember:
		return "revoked"
	case l.IsActiveMember(ctx, rec.Address):
		return "active"
	default:
		return "expired"
	}
}

func entryAmount(e *journal.Entry) string {
	switch e.Kind {
	case journal.KindFeeChanged:
		return e.Fee.String()
	case journal.KindPurchase, journal.KindRenewal, journal.KindUpgrade, journal.KindWithdrawal:
		return e.Amount.String()
	default:
		return "-"
	}
}
