// Command fintrack-view lists, adds and deletes expenses through the API and
// prints the derived view with its per-category breakdown.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/client"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

const usage = `usage: fintrack-view <command> [flags]

commands:
  list    [-filter All|<category>] [-sort latest|low-to-high]
  add     -name <name> -amount <amount> -category <category> -date YYYY-MM-DD
  delete  <id>
`

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentClient, os.Stderr)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg.APIURL, os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, apiURL string, args []string, out io.Writer, logger *log.Logger) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	api, err := client.NewClient(apiURL, client.WithLogger(logger))
	if err != nil {
		return err
	}
	s := client.NewSession(api, logger)
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return runList(ctx, s, rest, out)
	case "add":
		return runAdd(ctx, s, rest, out)
	case "delete":
		return runDelete(ctx, s, rest, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runList(ctx context.Context, s *client.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(out)
	filter := fs.String("filter", core.FilterAll, "category to show, or All")
	sort := fs.String("sort", string(core.SortLatest), "latest or low-to-high")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := s.Load().Wait(ctx); err != nil {
		return err
	}
	if err := s.SetFilter(*filter); err != nil {
		return err
	}
	if err := setSort(s, core.SortOrder(*sort)); err != nil {
		return err
	}
	return render(s, out)
}

func runAdd(ctx context.Context, s *client.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(out)
	var d client.Draft
	fs.StringVar(&d.Name, "name", "", "expense name")
	fs.StringVar(&d.Amount, "amount", "", "amount, e.g. 12.50")
	fs.StringVar(&d.Category, "category", "", "one of the known categories")
	fs.StringVar(&d.Date, "date", time.Now().Format(time.DateOnly), "date as YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := s.Load().Wait(ctx); err != nil {
		return err
	}
	e, err := s.Add(d).Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "added %s\n\n", e.ID)
	return render(s, out)
}

func runDelete(ctx context.Context, s *client.Session, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("delete takes exactly one id")
	}
	if _, err := s.Load().Wait(ctx); err != nil {
		return err
	}
	if _, err := s.Remove(args[0]).Wait(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %s\n\n", args[0])
	return render(s, out)
}

func setSort(s *client.Session, want core.SortOrder) error {
	if want != core.SortLatest && want != core.SortLowToHigh {
		return core.E(core.KindInvalidArgument, "set sort", fmt.Errorf("unknown sort order %q", want))
	}
	st, err := s.State()
	if err != nil {
		return err
	}
	if st.Sort != want {
		_, err = s.ToggleSort()
	}
	return err
}

func render(s *client.Session, out io.Writer) error {
	v, err := s.View()
	if err != nil {
		return err
	}
	st, err := s.State()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Expenses (filter: %s, sort: %s)\n", st.Filter, st.Sort)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tNAME\tCATEGORY\tAMOUNT\tID")
	for _, e := range v.Items {
		date := "-"
		if e.Date.Valid() {
			date = e.Date.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", date, e.Name, e.Category, e.Amount.StringFixed(), e.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(v.Items) == 0 {
		fmt.Fprintln(out, "(no expenses)")
	}

	fmt.Fprintln(out, "\nBy category")
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, ct := range v.Totals {
		fmt.Fprintf(tw, "%s\t%s\t\n", ct.Category, ct.Total.StringFixed())
	}
	return tw.Flush()
}
