package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stocklens/internal/config"
	"github.com/andresuchdata/stocklens/internal/dataset"
	"github.com/andresuchdata/stocklens/internal/repository/postgres"
	"github.com/andresuchdata/stocklens/internal/service"
)

// loadConfig is replaced in tests.
var loadConfig = config.Load

type fileAnalysis struct {
	File string `json:"file"`
	*service.AnalyticsResult
	Upload *service.UploadResult `json:"upload"`
}

// loadFile uploads path into a fresh in-memory service.
func loadFile(ctx context.Context, cfg *config.Config, path string) (*service.InventoryService, *service.UploadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	svc := service.NewInventoryService(dataset.NewMemoryStore(), nil, nil, cfg)
	res, err := svc.Upload(ctx, filepath.Base(path), data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return svc, res, nil
}

func singleArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(fmt.Sprintf("%s expects exactly one FILE argument", c.Command.Name), 2)
	}
	return c.Args().First(), nil
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runAnalyze(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit("analyze expects at least one FILE argument", 2)
	}

	cfg := loadConfig()
	// unset flag falls back to ANALYTICS_OVERSTOCK_MULTIPLIER
	var multiplier *float64
	if c.IsSet("overstock-multiplier") {
		m := c.Float64("overstock-multiplier")
		multiplier = &m
	}
	top := c.Int("top")
	workers := c.Int("workers")
	if workers < 1 {
		workers = 1
	}

	results := make([]fileAnalysis, len(paths))
	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			svc, upload, err := loadFile(ctx, cfg, path)
			if err != nil {
				return err
			}
			res, err := svc.Analytics(ctx, multiplier, top)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = fileAnalysis{File: path, AnalyticsResult: res, Upload: upload}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return printJSON(c, results)
}

func runDemand(c *cli.Context) error {
	path, err := singleArg(c)
	if err != nil {
		return err
	}
	svc, _, err := loadFile(c.Context, loadConfig(), path)
	if err != nil {
		return err
	}
	plan, err := svc.Demand(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c, plan)
}

func runExport(c *cli.Context) error {
	path, err := singleArg(c)
	if err != nil {
		return err
	}
	svc, _, err := loadFile(c.Context, loadConfig(), path)
	if err != nil {
		return err
	}
	out, err := svc.Export(c.Context)
	if err != nil {
		return err
	}

	target := c.String("output")
	if target == "" {
		target = out.Name
	}
	if err := os.WriteFile(target, out.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	fmt.Fprintf(c.App.Writer, "wrote %s (%d bytes)\n", target, len(out.Data))
	return nil
}

func runIngest(c *cli.Context) error {
	path, err := singleArg(c)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	db, err := postgres.Open("pgx", c.String("db-url"))
	if err != nil {
		return err
	}
	repo := postgres.NewSnapshotRepository(db)
	defer repo.Close()

	if err := repo.EnsureSchema(c.Context); err != nil {
		return err
	}

	svc := service.NewInventoryService(repo, nil, nil, loadConfig())
	res, err := svc.Upload(c.Context, filepath.Base(path), data)
	if err != nil {
		return err
	}
	return printJSON(c, res)
}
