package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gagyebu/internal/ledger"
	"gagyebu/internal/report"
)

func exportCmd(a *app) *cobra.Command {
	var (
		household string
		year      int
		month     int
		outPath   string
	)
	now := time.Now()
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a month of transactions as CSV",
		Long: `Write a month's transactions followed by the month summary as CSV.

The file starts with a UTF-8 byte order mark so spreadsheet applications
show Hangul correctly. Use --out - to write to stdout.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if month < 1 || month > 12 {
				return fmt.Errorf("--month %d: must be between 1 and 12", month)
			}
			res, err := a.openBackend(cmd)
			if err != nil {
				return err
			}
			defer res.Cleanup()
			ctx := cmd.Context()

			if _, err := res.Store.GetHousehold(ctx, household); err != nil {
				return err
			}
			from, to := report.MonthRange(year, month)
			txs, err := res.Store.ListTransactions(ctx, household, ledger.TransactionFilter{From: from, To: to})
			if err != nil {
				return err
			}
			ov, err := res.Store.ReadMonthOverview(ctx, household, year, month)
			if err != nil {
				return err
			}
			members, err := res.Store.ListMembers(ctx, household)
			if err != nil {
				return err
			}
			names := make(map[string]string, len(members))
			for _, m := range members {
				names[m.ID] = m.Name
			}
			rep := report.MonthReport{Year: year, Month: month, Transactions: txs, Overview: ov, MemberNames: names}

			if outPath == "-" {
				return report.WriteCSV(cmd.OutOrStdout(), rep)
			}
			if outPath == "" {
				outPath = rep.Filename()
			}
			n, err := writeFile(outPath, func(w io.Writer) error { return report.WriteCSV(w, rep) })
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d transactions to %s (%s)\n",
				len(txs), outPath, humanize.Bytes(uint64(n)))
			return nil
		},
	}
	cmd.Flags().StringVar(&household, "household", "", "household ID (required)")
	cmd.Flags().IntVar(&year, "year", now.Year(), "year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "month (1-12)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file; defaults to 가계부_YYYY-MM.csv, - for stdout")
	_ = cmd.MarkFlagRequired("household")
	return cmd
}

// countingWriter tracks how many bytes were written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func writeFile(path string, write func(io.Writer) error) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	cw := &countingWriter{w: f}
	werr := write(cw)
	if err := errors.Join(werr, f.Close()); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return cw.n, nil
}
