package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/blog-cms-migrator/internal/assets"
	"github.com/blog-cms-migrator/internal/cms"
	"github.com/blog-cms-migrator/internal/collate"
	"github.com/blog-cms-migrator/internal/config"
	"github.com/blog-cms-migrator/internal/importer"
	"github.com/blog-cms-migrator/internal/models"
	"github.com/blog-cms-migrator/internal/sync"
	"github.com/blog-cms-migrator/pkg/logger"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	var (
		sourceFormat string
		sourcePath   string
		dryRun       bool
	)

	root := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate legacy blog exports into the headless CMS",
		Long: "Reads a legacy blog export (XML export file or directory of static\n" +
			"HTML pages), rehosts embedded media, and synchronizes articles, tags,\n" +
			"collections and redirects against the destination CMS.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), sourceFormat, sourcePath, dryRun)
		},
	}

	root.Flags().StringVar(&sourceFormat, "format", "", `source format: "xml" or "html" (overrides SOURCE_FORMAT)`)
	root.Flags().StringVar(&sourcePath, "source", "", "path to the export file or directory (overrides SOURCE_PATH)")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "import and collate but do not touch the CMS")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, formatFlag, sourceFlag string, dryRun bool) error {
	// .env is optional; real environments set variables directly.
	godotenv.Load()

	log := logger.New()
	log = log.With().Str("run_id", uuid.New().String()).Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	if formatFlag != "" {
		cfg.Source.Format = formatFlag
	}
	if sourceFlag != "" {
		cfg.Source.Path = sourceFlag
	}
	if cfg.Source.Path == "" {
		err := fmt.Errorf("no source: set --source or SOURCE_PATH")
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("format", cfg.Source.Format).
		Str("source", cfg.Source.Path).
		Str("cms", cfg.CMS.BaseURL).
		Msg("Starting migration")

	client := cms.NewClient(cfg.CMS.BaseURL, cfg.CMS.Token, cfg.CMS.Timeout, log)

	records, err := importRecords(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Import failed")
		return err
	}
	log.Info().Int("records", len(records)).Msg("Source imported")

	migrator := assets.NewMigrator(client, cfg.Assets.CacheDir, cfg.Assets.LegacyHosts, cfg.Assets.Timeout, log)
	if !dryRun {
		for i := range records {
			if err := migrator.Rewrite(ctx, &records[i]); err != nil {
				log.Error().Err(err).Str("slug", records[i].Article.Slug).Msg("Asset migration failed")
				return err
			}
		}
	}

	col := collate.Collate(records)
	log.Info().
		Int("articles", len(col.Articles)).
		Int("tags", len(col.Tags)).
		Int("collections", len(col.Collections)).
		Int("redirects", len(col.Redirects)).
		Msg("Collation completed")

	if dryRun {
		log.Info().Msg("Dry run: skipping synchronization")
		return nil
	}

	result, err := sync.New(client, cfg.Sync.Concurrency, log).Synchronize(ctx, col)
	if err != nil {
		log.Error().Err(err).Msg("Synchronization failed")
		return err
	}

	log.Info().Int("entities", result.Total()).Msg("Migration completed")
	return nil
}

func importRecords(ctx context.Context, cfg *config.Config, log zerolog.Logger) ([]models.IntermediateRecord, error) {
	defaultCollection := models.CollectionAttributes{
		Name: cfg.Source.DefaultCollectionName,
		Slug: cfg.Source.DefaultCollectionSlug,
	}

	var im importer.Importer
	switch cfg.Source.Format {
	case "xml":
		im = importer.NewXMLImporter(cfg.Source.Path, defaultCollection, log)
	case "html":
		im = importer.NewHTMLImporter(cfg.Source.Path, defaultCollection, log)
	default:
		return nil, fmt.Errorf("unknown source format: %s", cfg.Source.Format)
	}

	return im.Import(ctx)
}
