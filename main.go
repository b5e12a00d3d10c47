package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"bds_scraper/config"
	"bds_scraper/geocode"
	"bds_scraper/httputil"
	"bds_scraper/images"
	"bds_scraper/input"
	"bds_scraper/logging"
	"bds_scraper/scheduler"
	"bds_scraper/scraper"
	"bds_scraper/storage"
)

var (
	scrapeNow  = flag.Bool("scrape", false, "Run a full scrape once and exit")
	imagesOnly = flag.Bool("images", false, "Download property images for the given targets and exit")
	siteID     = flag.String("site", "batdongsan", "Site to scrape")
	urlsFile   = flag.String("urls", "", "Text file with one listing URL per line")
	csvFile    = flag.String("csv", "", "CSV file with a Link column")
	jsonFile   = flag.String("json", "", "Previously exported dataset to re-scrape")
	importFile = flag.String("import", "", "Previously exported dataset to upsert directly, without refetching")
	limit      = flag.Int("limit", 0, "Process at most N targets from the input file")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting bds_scraper...")
	log.Printf("Loaded %d site configs", len(cfg.Sites))
	for id, site := range cfg.Sites {
		log.Printf("  - %s (%s)", site.Name, id)
	}

	clients := httputil.NewClients(cfg.Scraper.ProxyURL)

	// Ctrl+C stops submitting new work in every mode, not just the
	// daemon; in-flight requests finish under their own timeouts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	targets, err := loadTargets()
	if err != nil {
		log.Fatalf("Failed to load targets: %v", err)
	}
	if *limit > 0 {
		targets = input.Limit(targets, *limit)
	}

	if *imagesOnly {
		runImages(ctx, cfg, clients, targets)
		return
	}

	mongoStore, err := storage.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoStore.Close(ctx)
	log.Printf("Connected to MongoDB: %s/%s", cfg.Mongo.Database, cfg.Mongo.Collection)

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	orchestrator := scraper.NewOrchestrator(cfg, sqliteStore, mongoStore, clients)
	orchestrator.SetGeocoder(geocode.NewNominatim(clients.Geocode))
	defer orchestrator.CloseHandlers()

	if *importFile != "" {
		if err := orchestrator.RunImport(ctx, *importFile); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		log.Println("Import complete!")
		return
	}

	if len(targets) > 0 {
		log.Printf("Processing %d targets from input file...", len(targets))
		if err := orchestrator.RunTargets(ctx, *siteID, targets); err != nil {
			log.Fatalf("Target run failed: %v", err)
		}
		log.Println("Done!")
		return
	}

	if *scrapeNow {
		log.Println("Running scrape...")
		if err := orchestrator.RunSite(ctx, *siteID); err != nil {
			log.Fatalf("Scrape failed: %v", err)
		}
		log.Println("Scrape complete!")
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg, orchestrator, sqliteStore)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")
	<-ctx.Done()

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

func loadTargets() ([]input.Target, error) {
	switch {
	case *urlsFile != "":
		return input.URLFile(*urlsFile)
	case *csvFile != "":
		return input.CSVFile(*csvFile)
	case *jsonFile != "":
		return input.JSONDataset(*jsonFile)
	}
	return nil, nil
}

func runImages(ctx context.Context, cfg *config.Config, clients *httputil.Clients, targets []input.Target) {
	if len(targets) == 0 {
		log.Fatal("Image mode needs an input file (-urls, -csv or -json)")
	}

	opts := []images.Option{}
	if cfg.S3.Enabled {
		uploader, err := storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			KeyPrefix:       cfg.S3.KeyPrefix,
		})
		if err != nil {
			log.Fatalf("Failed to set up S3 uploader: %v", err)
		}
		opts = append(opts, images.WithUploader(uploader))
		log.Printf("Mirroring images to s3://%s", cfg.S3.Bucket)
	}

	sc := images.NewScraper(clients.Images, cfg.Output.ImagesDir, opts...)
	report, err := sc.Run(ctx, targets)
	if err != nil {
		log.Fatalf("Image scrape failed: %v", err)
	}
	log.Printf("Image scrape complete: %d ok, %d failed, %d images",
		report.Success, report.Failed, report.TotalImages)
}
