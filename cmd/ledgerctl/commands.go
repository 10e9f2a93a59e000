package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/ledger"
	"expenses/internal/report"
)

const usage = `Usage: ledgerctl <command> [flags]

Commands:
  list      print the ledger (--category, --month, --json)
  add       append an expense (--date, --category, --amount, --description)
  delete    remove an expense (--id or --index)
  summary   print total, average and per-category/per-month totals
  export    write the filtered ledger as CSV (--out, default stdout)
  watch     print ledger change events from the message broker
`

var errUsage = errors.New("usage")

// consumer is the part of the AMQP client used by watch.
type consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.EventMessage) error) error
	Close() error
}

type app struct {
	svc      *ledger.Service
	out      io.Writer
	currency string
	today    func() core.Date
	// events opens the broker subscription for watch.
	events func() (consumer, error)
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return a.list(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "summary":
		return a.summary(ctx, rest)
	case "export":
		return a.export(ctx, rest)
	case "watch":
		return a.watch(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// filterFlags registers --category and --month on fs.
func filterFlags(fs *flag.FlagSet) func() (report.Filter, error) {
	category := fs.String("category", "", "only this category")
	month := fs.String("month", "", "only this YYYY-MM month")
	return func() (report.Filter, error) {
		return report.NewFilter(*category, *month)
	}
}

func (a *app) filtered(ctx context.Context, filter func() (report.Filter, error)) ([]core.Expense, error) {
	f, err := filter()
	if err != nil {
		return nil, err
	}
	records, err := a.svc.List(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(records), nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := a.flags("list")
	filter := filterFlags(fs)
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := a.filtered(ctx, filter)
	if err != nil {
		return err
	}
	if *asJSON {
		if records == nil {
			records = []core.Expense{}
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No expenses yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCATEGORY\tAMOUNT\tDESCRIPTION\tID")
	for _, e := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Date, e.Category, e.Amount.Format(a.currency), e.Description, e.ID)
	}
	return tw.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flags("add")
	date := fs.String("date", "", "expense date, YYYY-MM-DD (default today)")
	category := fs.String("category", "", "one of Food, Transport, Bills, Shopping, Other")
	amount := fs.String("amount", "", "non-negative amount, e.g. 12.50")
	description := fs.String("description", "", "optional note")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e := core.Expense{Date: a.today(), Description: core.CleanDescription(*description)}
	if *date != "" {
		d, err := core.ParseDate(*date)
		if err != nil {
			return err
		}
		e.Date = d
	}
	c, err := core.ParseCategory(*category)
	if err != nil {
		return err
	}
	e.Category = c
	m, err := core.ParseAmount(*amount)
	if err != nil {
		return err
	}
	e.Amount = m

	records, err := a.svc.Add(ctx, e)
	if err != nil {
		return err
	}
	added := records[len(records)-1]
	fmt.Fprintf(a.out, "Added: %s on %s (%s%s) id=%s\n", added.Category, added.Date, a.currency, added.Amount.Plain(), added.ID)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := a.flags("delete")
	id := fs.String("id", "", "ID of the expense to delete")
	index := fs.Int("index", -1, "ledger position of the expense to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		removed core.Expense
		err     error
	)
	switch {
	case *id != "":
		removed, err = a.svc.Delete(ctx, *id)
	case *index >= 0:
		removed, err = a.svc.RemoveAt(ctx, *index)
	default:
		return fmt.Errorf("%w: delete needs --id or --index", errUsage)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted: %s on %s (%s%s)\n", removed.Category, removed.Date, a.currency, removed.Amount.Plain())
	return nil
}

func (a *app) summary(ctx context.Context, args []string) error {
	fs := a.flags("summary")
	filter := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := a.filtered(ctx, filter)
	if err != nil {
		return err
	}
	sum := report.Summarize(records)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Expenses\t%d\n", sum.Count)
	fmt.Fprintf(tw, "Total\t%s\n", sum.Total.Format(a.currency))
	fmt.Fprintf(tw, "Average\t%s\n", sum.Average.Format(a.currency))
	if len(records) > 0 {
		fmt.Fprintln(tw, "\nBy category\t")
		for _, ca := range report.CategoryTotals(records) {
			fmt.Fprintf(tw, "  %s\t%s\t%.1f%%\n", ca.Category, ca.Amount.Format(a.currency), ca.Share)
		}
		fmt.Fprintln(tw, "\nBy month\t")
		for _, ma := range report.MonthTotals(records) {
			fmt.Fprintf(tw, "  %s\t%s\n", ma.Month, ma.Amount.Format(a.currency))
		}
	}
	return tw.Flush()
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := a.flags("export")
	filter := filterFlags(fs)
	out := fs.String("out", "-", "output file, - for stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := a.filtered(ctx, filter)
	if err != nil {
		return err
	}
	if *out == "-" {
		return report.ExportCSV(a.out, records)
	}

	body, err := report.CSV(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(a.out, "Exported %d expenses to %s\n", len(records), *out)
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := a.flags("watch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.events == nil {
		return errors.New("watch needs AMQP_URL to be set")
	}
	c, err := a.events()
	if err != nil {
		return err
	}
	defer c.Close()

	enc := json.NewEncoder(a.out)
	err = c.Consume(ctx, func(_ context.Context, msg *amqp.EventMessage) error {
		return enc.Encode(msg.Event)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
