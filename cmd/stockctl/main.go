package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stocklens/pkg/logger"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "stockctl",
		Usage: "Analyze inventory spreadsheets and plan demand from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(c.String("log-level"), "console")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "Print the analytics summary and overstock findings of one or more files",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  "overstock-multiplier",
						Usage: "Flag brands whose stock value exceeds this many months of sales (default: ANALYTICS_OVERSTOCK_MULTIPLIER)",
					},
					&cli.IntFlag{
						Name:  "top",
						Usage: "Number of brands in the sales ranking",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of files analyzed concurrently",
						Value: 4,
					},
				},
				Action: runAnalyze,
			},
			{
				Name:      "demand",
				Usage:     "Print demand recommendations for a file",
				ArgsUsage: "FILE",
				Action:    runDemand,
			},
			{
				Name:      "export",
				Usage:     "Write the demand forecast workbook for a file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path; defaults to demand_forecast_YYYYMMDD.xlsx",
					},
				},
				Action: runExport,
			},
			{
				Name:      "ingest",
				Usage:     "Load a file into the Postgres snapshot store",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db-url",
						Usage:    "Database connection string",
						Required: true,
						EnvVars:  []string{"DATABASE_URL"},
					},
				},
				Action: runIngest,
			},
		},
	}
}

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("stockctl failed")
	}
}
