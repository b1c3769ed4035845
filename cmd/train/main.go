// Command train populates the retrieval corpus from files or from the target
// database's columns catalog.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"querypilot/ai"
	"querypilot/config"
	"querypilot/db"
	"querypilot/models"
	"querypilot/observability"
	"querypilot/service"
	"querypilot/training"
	"querypilot/vectorstore"
)

var (
	trainingFile string
	ddlDir       string
	fromCatalog  bool
	listItems    bool
	removeID     string
)

func main() {
	app := &cli.App{
		Name:  "querypilot-train",
		Usage: "Add DDL, documentation and example questions to the querypilot vector store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Usage:       "YAML file with ddl, documentation and examples lists",
				Destination: &trainingFile,
			},
			&cli.StringFlag{
				Name:        "ddl-dir",
				Usage:       "Directory of .sql files, each trained as DDL",
				EnvVars:     []string{"DDL_DIR"},
				Destination: &ddlDir,
			},
			&cli.BoolFlag{
				Name:        "plan",
				Usage:       "Train one documentation item per table from the target database's columns catalog",
				Destination: &fromCatalog,
			},
			&cli.BoolFlag{
				Name:        "list",
				Usage:       "List trained items and exit",
				Destination: &listItems,
			},
			&cli.StringFlag{
				Name:        "remove",
				Usage:       "Remove the trained item with this id and exit",
				Destination: &removeID,
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.Context)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	slog.SetDefault(observability.NewLogger(cfg, os.Stderr))

	ledger, err := db.New(cfg.BadgerPath)
	if err != nil {
		return fmt.Errorf("open training ledger: %w", err)
	}
	defer ledger.Close()

	if listItems {
		items, err := ledger.GetTrainingItems()
		if err != nil {
			return err
		}
		printItems(items)
		return nil
	}

	httpClient, err := ai.NewHTTPClient(ctx, cfg.VertexAI.Timeout)
	if err != nil {
		return err
	}
	embedder, err := ai.New(ctx, cfg.VertexAI, httpClient)
	if err != nil {
		return err
	}
	store, err := vectorstore.New(cfg.Qdrant, cfg.VertexAI.EmbeddingDim, embedder)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureCollections(ctx); err != nil {
		return err
	}

	trainer := training.NewTrainer(store, ledger)

	if removeID != "" {
		removed, err := trainer.Remove(ctx, removeID)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("no training item with id %q", removeID)
		}
		fmt.Printf("removed %s\n", removeID)
		return nil
	}

	items, err := collect(ctx, cfg)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("nothing to train: pass --file, --ddl-dir or --plan")
	}

	trained, err := trainer.TrainAll(ctx, items)
	printItems(trained)
	if err != nil {
		return fmt.Errorf("trained %d of %d items: %w", len(trained), len(items), err)
	}
	return nil
}

func collect(ctx context.Context, cfg config.Config) ([]models.TrainingItem, error) {
	var items []models.TrainingItem

	if trainingFile != "" {
		f, err := training.LoadFile(trainingFile)
		if err != nil {
			return nil, err
		}
		items = append(items, f.Items()...)
	}

	if ddlDir != "" {
		ddl, err := db.LoadDDLFilesFromDir(ddlDir)
		if err != nil {
			return nil, fmt.Errorf("read ddl directory: %w", err)
		}
		items = append(items, ddl...)
	}

	if fromCatalog {
		pool, err := service.OpenPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		columns, err := service.NewRunner(pool).SchemaColumns(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, training.Plan(columns)...)
	}

	return items, nil
}

func printItems(items []models.TrainingItem) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"id", "kind", "created", "content"})
	table.SetAutoWrapText(false)
	for _, item := range items {
		content := item.Content
		if item.Kind == models.TrainingKindSQL {
			content = item.Question
		}
		if len(content) > 60 {
			content = content[:57] + "..."
		}
		table.Append([]string{item.ID, item.Kind, item.CreatedAt.Format("2006-01-02 15:04"), content})
	}
	table.Render()
}
