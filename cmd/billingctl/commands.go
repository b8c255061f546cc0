package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"billingengine/internal/billing"
)

func newWordsCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "words <amount>",
		Short: "Spell an amount in words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := o.aggregateOptions()
			if err != nil {
				return err
			}
			m, err := billing.ParseMoney(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), billing.AmountInWords(m, opts.Words))
			return nil
		},
	}
}

type totalsOutput struct {
	Kind            billing.DocumentKind `json:"kind"`
	ID              int64                `json:"id"`
	Status          string               `json:"status"`
	EffectiveStatus string               `json:"effective_status"`
	Totals          billing.Totals       `json:"totals"`
	Drift           []billing.Drift      `json:"drift,omitempty"`
}

func newTotalsCmd(o *cliOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "totals <document.json>",
		Short: "Recompute a quote or invoice and compare with its stored totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := o.aggregateOptions()
			if err != nil {
				return err
			}
			today, err := o.todayDate()
			if err != nil {
				return err
			}
			log := o.logger()
			defer log.Sync()

			var out totalsOutput
			switch billing.DocumentKind(kind) {
			case billing.KindQuote:
				var q billing.Quote
				if err := readJSON(args[0], &q); err != nil {
					return err
				}
				if err := billing.ValidateItems(q.Items, opts.Classifier); err != nil {
					return err
				}
				t := billing.AggregateQuote(q, opts)
				out = totalsOutput{
					Kind:            billing.KindQuote,
					ID:              q.ID,
					Status:          string(q.Status),
					EffectiveStatus: string(billing.EffectiveQuoteStatus(q, today)),
					Totals:          t,
					Drift:           billing.VerifyStoredTotals(q.Subtotal, q.TaxAmount, q.Total, t),
				}
			case billing.KindInvoice:
				var inv billing.Invoice
				if err := readJSON(args[0], &inv); err != nil {
					return err
				}
				if err := billing.ValidateItems(inv.Items, opts.Classifier); err != nil {
					return err
				}
				t := billing.AggregateInvoice(inv, opts)
				out = totalsOutput{
					Kind:            billing.KindInvoice,
					ID:              inv.ID,
					Status:          string(inv.Status),
					EffectiveStatus: string(billing.EffectiveInvoiceStatus(inv, today)),
					Totals:          t,
					Drift:           billing.VerifyStoredTotals(inv.Subtotal, inv.TaxAmount, inv.Total, t),
				}
			default:
				return fmt.Errorf("--kind must be quote or invoice, got %q", kind)
			}

			for _, d := range out.Drift {
				log.Warn("Stored total differs",
					zap.String("field", d.Field),
					zap.String("stored", d.Stored.String()),
					zap.String("computed", d.Computed.String()),
				)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(billing.KindQuote), "quote or invoice")
	return cmd
}

// snapshot is the input of the reconcile command.
type snapshot struct {
	Project    billing.Project     `json:"project"`
	Timesheets []billing.Timesheet `json:"timesheets"`
	Quotes     []billing.Quote     `json:"quotes"`
	Invoices   []billing.Invoice   `json:"invoices"`
}

func newReconcileCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <snapshot.json>",
		Short: "Compute unbilled hours, unbilled amount and progress for one project",
		Long: `Compute unbilled hours, unbilled amount and progress for one project.

The snapshot holds "project", "timesheets", "quotes" and "invoices". Date fields accept
YYYY-MM-DD or RFC 3339 timestamps.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := o.aggregateOptions()
			if err != nil {
				return err
			}
			today, err := o.todayDate()
			if err != nil {
				return err
			}
			var s snapshot
			if err := readJSON(args[0], &s); err != nil {
				return err
			}
			pb := billing.ReconcileProject(s.Project, s.Timesheets, s.Quotes, s.Invoices, opts.Classifier, today)
			o.logger().Debug("Project reconciled", zap.Int64("project_id", pb.ProjectID))
			return writeJSON(cmd.OutOrStdout(), pb)
		},
	}
}
