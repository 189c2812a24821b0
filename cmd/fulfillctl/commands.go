package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func commands(svc *services) []*cli.Command {
	fileFlag := &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "CSV file to import, - for stdin",
		Required: true,
	}
	actorFlag := &cli.StringFlag{
		Name:    "actor",
		Usage:   "Operator recorded on ledger entries",
		Value:   "fulfillctl",
		EnvVars: []string{"FULFILLMENT_ACTOR"},
	}

	cmds := []*cli.Command{
		{
			Name:  "import-batches",
			Usage: "Upsert batch stock from an ERP CSV export",
			Flags: []cli.Flag{fileFlag, actorFlag,
				&cli.StringFlag{Name: "reference", Usage: "Ledger reference (defaults to the file name)"},
			},
			Action: func(c *cli.Context) error {
				r, name, err := openInput(c.String("file"))
				if err != nil {
					return err
				}
				defer r.Close()
				reference := c.String("reference")
				if reference == "" {
					reference = name
				}
				result, err := svc.batchImports.Import(c.Context, r, c.String("actor"), reference)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, result)
			},
		},
		{
			Name:  "import-orders",
			Usage: "Create draft orders from an ERP CSV export",
			Flags: []cli.Flag{fileFlag},
			Action: func(c *cli.Context) error {
				r, _, err := openInput(c.String("file"))
				if err != nil {
					return err
				}
				defer r.Close()
				result, err := svc.orderImports.Import(c.Context, r)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, result)
			},
		},
		{
			Name:  "import-invoices",
			Usage: "Record courier invoice lines from a CSV file",
			Flags: []cli.Flag{fileFlag},
			Action: func(c *cli.Context) error {
				r, _, err := openInput(c.String("file"))
				if err != nil {
					return err
				}
				defer r.Close()
				result, err := svc.invoices.ImportInvoices(c.Context, r)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, result)
			},
		},
		{
			Name:      "evaluate-stock-take",
			Usage:     "Reconcile a completed stock-take session against batch stock",
			ArgsUsage: "<session-id>",
			Flags:     []cli.Flag{actorFlag},
			Action: func(c *cli.Context) error {
				id, err := uuidArg(c)
				if err != nil {
					return err
				}
				findings, err := svc.stockTakes.Evaluate(c.Context, id, c.String("actor"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, findings)
			},
		},
		{
			Name:      "evaluate-erp-check",
			Usage:     "Compare an uploaded ERP stock snapshot with system stock",
			ArgsUsage: "<check-id>",
			Flags:     []cli.Flag{actorFlag},
			Action: func(c *cli.Context) error {
				id, err := uuidArg(c)
				if err != nil {
					return err
				}
				findings, err := svc.erpChecks.Evaluate(c.Context, id, c.String("actor"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, findings)
			},
		},
		{
			Name:      "verify-ledger",
			Usage:     "Check a warehouse product's ledger against its batches",
			ArgsUsage: "<warehouse-product-id>",
			Action: func(c *cli.Context) error {
				id, err := uuidArg(c)
				if err != nil {
					return err
				}
				v, err := svc.inventory.VerifyLedger(c.Context, id)
				if err != nil {
					return err
				}
				if err := printJSON(c.App.Writer, v); err != nil {
					return err
				}
				if !v.Consistent {
					return cli.Exit(fmt.Sprintf("ledger drift of %d", v.Drift), 2)
				}
				return nil
			},
		},
		{
			Name:  "flag-stale",
			Usage: "Mark parcels in transit too long as failed deliveries",
			Flags: []cli.Flag{
				&cli.TimestampFlag{Name: "now", Usage: "Reference time (RFC 3339)", Layout: time.RFC3339},
			},
			Action: func(c *cli.Context) error {
				now := time.Now()
				if ts := c.Timestamp("now"); ts != nil {
					now = *ts
				}
				ids, err := svc.tracking.FlagStaleParcels(c.Context, now)
				if err != nil {
					return err
				}
				svc.log.Info("stale parcels flagged", zap.Int("count", len(ids)))
				return printJSON(c.App.Writer, ids)
			},
		},
	}
	for _, cmd := range cmds {
		cmd.Before = svc.open
		cmd.After = svc.close
	}
	return cmds
}

func openInput(path string) (io.ReadCloser, string, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), "stdin", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	return f, filepath.Base(path), nil
}

func uuidArg(c *cli.Context) (uuid.UUID, error) {
	if c.NArg() != 1 {
		return uuid.Nil, cli.Exit("expected exactly one id argument", 1)
	}
	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return uuid.Nil, cli.Exit("invalid id: "+err.Error(), 1)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
