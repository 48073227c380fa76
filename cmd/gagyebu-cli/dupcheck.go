package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gagyebu/internal/core"
	"gagyebu/internal/duplicate"
	"gagyebu/internal/services"
)

type dupcheckFlags struct {
	household   string
	txType      string
	amount      string
	description string
	date        string
	payment     string
	personID    string
	strict      bool
}

func dupcheckCmd(a *app) *cobra.Command {
	var f dupcheckFlags
	cmd := &cobra.Command{
		Use:   "dupcheck",
		Short: "Check a transaction against the household history",
		Long: `Score a transaction against the recorded history without saving it.

Every flag except --household is optional; missing fields simply do not
contribute to the score.`,
		Example: `  gagyebu-cli dupcheck --household 1f0e... --amount 15,000 --description "스타벅스 강남점" --date 2024-03-10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDupcheck(cmd, a, f)
		},
	}
	cmd.Flags().StringVar(&f.household, "household", "", "household ID (required)")
	cmd.Flags().StringVar(&f.txType, "type", string(core.Expense), "transaction type (expense or income)")
	cmd.Flags().StringVar(&f.amount, "amount", "", `amount in won, e.g. 15000 or "15,000원"`)
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.date, "date", "", "date as YYYY-MM-DD")
	cmd.Flags().StringVar(&f.payment, "payment", "", "payment method")
	cmd.Flags().StringVar(&f.personID, "person-id", "", "member ID; empty means the whole household")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "use the strict tolerances of the save-time gate")
	_ = cmd.MarkFlagRequired("household")
	return cmd
}

func (f dupcheckFlags) transaction() (core.Transaction, error) {
	tx := core.Transaction{
		HouseholdID:   f.household,
		Type:          core.TransactionType(strings.ToLower(f.txType)),
		Description:   f.description,
		PaymentMethod: f.payment,
		PersonType:    core.PersonHousehold,
	}
	if f.personID != "" {
		tx.PersonType = core.PersonMember
		tx.PersonID = f.personID
	}
	if f.amount != "" {
		won, err := core.ParseWon(f.amount)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("--amount %q: %w", f.amount, err)
		}
		tx.Amount = core.Money{Won: won}
	}
	if f.date != "" {
		d, err := core.ParseDate(f.date)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("--date %q: %w", f.date, err)
		}
		tx.Date = d
	}
	return tx, nil
}

func runDupcheck(cmd *cobra.Command, a *app, f dupcheckFlags) error {
	tx, err := f.transaction()
	if err != nil {
		return err
	}

	res, err := a.openBackend(cmd)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	opts := a.cfg.DuplicateOptions()
	if f.strict {
		opts = duplicate.StrictOptions()
	}
	svc := services.NewTransactionService(res.Store,
		services.WithDuplicateOptions(opts),
		services.WithLookbackDays(a.cfg.DuplicateLookbackDays))

	report, err := svc.CheckDuplicates(cmd.Context(), tx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(report.Matches) == 0 {
		fmt.Fprintln(out, "No similar transactions found.")
		return nil
	}
	fmt.Fprintln(out, report.Warning)
	if report.Likely {
		fmt.Fprintln(out, "Saving this transaction would require confirmation.")
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIMILARITY\tDATE\tAMOUNT\tDESCRIPTION\tREASONS\tRECORDED")
	for _, m := range report.Matches {
		fmt.Fprintf(w, "%.0f%%\t%s\t%s\t%s\t%s\t%s\n",
			m.Similarity*100,
			m.Transaction.Date,
			m.Transaction.Amount,
			m.Transaction.Description,
			strings.Join(m.Reasons, ", "),
			humanize.Time(m.Transaction.CreatedAt))
	}
	return w.Flush()
}
