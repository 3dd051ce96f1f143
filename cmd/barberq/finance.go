package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Beto0829/Barber-ticket/internal/config"
	"github.com/Beto0829/Barber-ticket/internal/ledger"

	"github.com/spf13/cobra"
)

var financeCmd = &cobra.Command{
	Use:   "finance",
	Short: "Print revenue and customer summaries from the ledgers",
}

var financeDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Per-day revenue and customers served",
	RunE:  runFinanceDaily,
}

var financeMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Per-month revenue and customers served for a year",
	RunE:  runFinanceMonthly,
}

func init() {
	rootCmd.AddCommand(financeCmd)
	financeCmd.AddCommand(financeDailyCmd)
	financeCmd.AddCommand(financeMonthlyCmd)

	financeDailyCmd.Flags().String("from", "", "first day, YYYY-MM-DD (default: six days before --to)")
	financeDailyCmd.Flags().String("to", "", "last day, YYYY-MM-DD (default: today)")
	financeMonthlyCmd.Flags().Int("year", 0, "calendar year (default: current year)")
}

var errEphemeralStore = errors.New("finance reports read the shared ledgers: set STORE_BACKEND to postgres or firestore")

// newFinanceApp refuses the memory backend, which would start empty in this
// process and report zeros.
func newFinanceApp(ctx context.Context) (*app, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, err
	}
	if a.cfg.StoreBackend == config.BackendMemory {
		a.close()
		return nil, errEphemeralStore
	}
	return a, nil
}

func runFinanceDaily(cmd *cobra.Command, args []string) error {
	a, err := newFinanceApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")

	to := time.Now().In(a.ledger.Location())
	if toFlag != "" {
		if to, err = a.ledger.ParseDate(toFlag); err != nil {
			return err
		}
	}
	from := to.AddDate(0, 0, -6)
	if fromFlag != "" {
		if from, err = a.ledger.ParseDate(fromFlag); err != nil {
			return err
		}
	}

	days, err := a.ledger.DailyRange(cmd.Context(), from, to)
	if err != nil {
		return err
	}
	return printDaily(cmd.OutOrStdout(), days)
}

func runFinanceMonthly(cmd *cobra.Command, args []string) error {
	a, err := newFinanceApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	year, _ := cmd.Flags().GetInt("year")
	if year == 0 {
		year = time.Now().In(a.ledger.Location()).Year()
	}
	months, err := a.ledger.Monthly(cmd.Context(), year)
	if err != nil {
		return err
	}
	return printMonthly(cmd.OutOrStdout(), months)
}

func printDaily(out io.Writer, days []ledger.DaySummary) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "DATE\tCUSTOMERS\tREVENUE\t")
	var customers int
	var revenue float64
	for _, day := range days {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t\n", day.Date, day.Customers, day.Revenue)
		customers += day.Customers
		revenue += day.Revenue
	}
	fmt.Fprintf(w, "TOTAL\t%d\t%.2f\t\n", customers, revenue)
	return w.Flush()
}

func printMonthly(out io.Writer, months []ledger.MonthSummary) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "MONTH\tCUSTOMERS\tREVENUE\t")
	var customers int
	var revenue float64
	for _, month := range months {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t\n", month.Month, month.Customers, month.Revenue)
		customers += month.Customers
		revenue += month.Revenue
	}
	fmt.Fprintf(w, "TOTAL\t%d\t%.2f\t\n", customers, revenue)
	return w.Flush()
}
