// Command parklinectl administers a parkline database: operator keys and rates.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rpggio/parkline/internal/config"
	"github.com/rpggio/parkline/internal/domain/operator"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/storage"
)

const usage = `usage: parklinectl <command> [flags]

commands:
  add-operator    -name NAME [-role operator|admin]   create an operator and print its API token
  list-operators                                      list operators and when their key was last used
  seed-rates                                          install default rates for missing vehicle types
  list-rates                                          print the rate table
  set-rate        -type car|motorcycle -first N -next N [-max N]
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "parklinectl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	stores, err := storage.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer stores.Close()

	cmd := &commands{
		operators: operator.NewService(stores.Operators, logger),
		rates:     rate.NewService(stores.Rates, logger),
		out:       out,
	}
	return cmd.dispatch(ctx, args[0], args[1:])
}

type commands struct {
	operators *operator.Service
	rates     *rate.Service
	out       io.Writer
}

func (c *commands) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "add-operator":
		return c.addOperator(ctx, args)
	case "list-operators":
		return c.listOperators(ctx)
	case "seed-rates":
		return c.seedRates(ctx)
	case "list-rates":
		return c.listRates(ctx)
	case "set-rate":
		return c.setRate(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(c.out, usage)
		return nil
	default:
		fmt.Fprint(c.out, usage)
		return fmt.Errorf("unknown command %q", name)
	}
}

func (c *commands) addOperator(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-operator", flag.ContinueOnError)
	fs.SetOutput(c.out)
	name := fs.String("name", "", "operator display name")
	role := fs.String("role", string(operator.RoleOperator), "operator or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	op, token, err := c.operators.Create(ctx, *name, operator.Role(*role))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "operator %s (%s) created\n", op.ID, op.Role)
	fmt.Fprintf(c.out, "token: %s\n", token)
	fmt.Fprintln(c.out, "store the token now, it cannot be shown again")
	return nil
}

func (c *commands) listOperators(ctx context.Context) error {
	ops, err := c.operators.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tLAST USED")
	for _, op := range ops {
		lastUsed := "never"
		if op.LastUsed != nil {
			lastUsed = op.LastUsed.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", op.ID, op.Name, op.Role, lastUsed)
	}
	return w.Flush()
}

func (c *commands) seedRates(ctx context.Context) error {
	created, err := c.rates.SeedDefaults(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d rate(s) created\n", created)
	return nil
}

func (c *commands) listRates(ctx context.Context) error {
	rules, err := c.rates.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tFIRST HOUR\tNEXT HOUR\tDAILY MAX")
	for _, r := range rules {
		daily := "-"
		if r.DailyMaxRate != nil {
			daily = fmt.Sprint(*r.DailyMaxRate)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", r.VehicleType, r.FirstHourRate, r.NextHourRate, daily)
	}
	return w.Flush()
}

func (c *commands) setRate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-rate", flag.ContinueOnError)
	fs.SetOutput(c.out)
	vehicleType := fs.String("type", "", "car or motorcycle")
	first := fs.Int64("first", -1, "first hour rate")
	next := fs.Int64("next", -1, "rate per further started hour")
	daily := fs.Int64("max", -1, "daily maximum, omit for none")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := rate.UpdateRequest{
		VehicleType:   rate.VehicleType(*vehicleType),
		FirstHourRate: *first,
		NextHourRate:  *next,
	}
	if *daily >= 0 {
		req.DailyMaxRate = daily
	}
	rule, err := c.rates.Update(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: first %d, next %d\n", rule.VehicleType, rule.FirstHourRate, rule.NextHourRate)
	return nil
}
