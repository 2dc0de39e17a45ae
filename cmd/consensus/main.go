package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/benthic-data/consensus.report/internal/agg"
	"github.com/benthic-data/consensus.report/internal/api"
	"github.com/benthic-data/consensus.report/internal/config"
	"github.com/benthic-data/consensus.report/internal/db"
	"github.com/benthic-data/consensus.report/internal/ingest"
	"github.com/benthic-data/consensus.report/internal/report"
	"github.com/benthic-data/consensus.report/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "migrate":
		handleMigrate(args)
	case "import":
		handleImport(args)
	case "ingest":
		handleIngest(args)
	case "aggregate":
		handleAggregate(args)
	case "duplicates":
		handleDuplicates(args)
	case "serve":
		handleServe(args)
	case "version":
		fmt.Printf("consensus %s\n", version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`consensus - Citizen-science annotation aggregation for underwater imagery

Usage: consensus <command> [options]

Commands:
  migrate     Manage the SQLite schema (up, down, status, version, force, baseline)
  import      Load sites, movies, species, or subjects from a CSV file
  ingest      Load a platform classification export into the store
  aggregate   Run consensus aggregation and write report files
  duplicates  List clip subjects sharing a (movie, start time) slot
  serve       Serve the catalogue and aggregation API over HTTP
  version     Show version information
  help        Show this help message

Common Flags:
  -config <file>   JSON config file with thresholds and paths
  -db <path>       SQLite database path (overrides config)

Run 'consensus <command> -h' for command-specific flags.`)
}

// loadConfig reads the JSON config when a path was given, otherwise starts
// from an empty config whose accessors fall back to package defaults.
func loadConfig(path string) *config.AggregationConfig {
	if path == "" {
		return config.EmptyAggregationConfig()
	}
	cfg, err := config.LoadAggregationConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", path, err)
	}
	return cfg
}

func resolveDBPath(flagValue string, cfg *config.AggregationConfig) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.GetDBPath()
}

// openStore opens the SQLite store and brings the schema up to date.
func openStore(path string) *db.DB {
	store, err := db.OpenDB(path)
	if err != nil {
		log.Fatalf("Failed to open database %s: %v", path, err)
	}
	fsys, err := db.MigrationsFS()
	if err != nil {
		store.Close()
		log.Fatalf("Failed to load migrations: %v", err)
	}
	if err := store.MigrateUp(fsys); err != nil {
		store.Close()
		log.Fatalf("Failed to migrate database %s: %v", path, err)
	}
	return store
}

func handleMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "JSON config file")
	dbPath := fs.String("db", "", "SQLite database path (overrides config)")
	fs.Parse(args)

	cfg := loadConfig(*cfgPath)
	db.RunMigrateCommand(fs.Args(), resolveDBPath(*dbPath, cfg))
}

func handleImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "", "JSON config file")
	dbPath := fs.String("db", "", "SQLite database path (overrides config)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: consensus import [flags] <sites|movies|species|subjects> <file.csv>")
		os.Exit(1)
	}
	kind, path := fs.Arg(0), fs.Arg(1)

	cfg := loadConfig(*cfgPath)
	store := openStore(resolveDBPath(*dbPath, cfg))
	defer store.Close()

	var count int
	var err error
	switch kind {
	case "sites":
		count, err = store.ImportSitesCSV(path)
	case "movies":
		count, err = store.ImportMoviesCSV(path)
	case "species":
		count, err = store.ImportSpeciesCSV(path)
	case "subjects":
		count, err = store.ImportSubjectsCSV(path)
	default:
		fmt.Fprintf(os.Stderr, "Unknown import kind: %s (must be sites, movies, species, or subjects)\n", kind)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	log.Printf("Imported %d %s from %s", count, kind, path)
}

func handleIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	cfgPath := fs.String("config", "", "JSON config file")
	dbPath := fs.String("db", "", "SQLite database path (overrides config)")
	workflow := fs.Int64("workflow", 0, "Workflow id to keep (overrides config)")
	minVersion := fs.Float64("min-version", 0, "Minimum workflow version to keep (overrides config)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: consensus ingest [flags] <export.csv>")
		os.Exit(1)
	}

	cfg := loadConfig(*cfgPath)

	workflowID := *workflow
	if workflowID == 0 {
		workflowID = cfg.GetWorkflowID()
	}
	if workflowID == 0 {
		log.Fatal("Workflow id required: pass -workflow or set workflow_id in the config")
	}
	ver := *minVersion
	if ver == 0 {
		ver = cfg.GetMinWorkflowVersion()
	}

	store := openStore(resolveDBPath(*dbPath, cfg))
	defer store.Close()

	res, err := ingest.ImportExportCSV(store, fs.Arg(0), ingest.Options{
		WorkflowID: workflowID,
		MinVersion: ver,
	})
	if err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}
	log.Printf("Read %d rows: %d inserted, %d duplicates, %d outside workflow %d (version >= %v)",
		res.Read, res.Inserted, res.Duplicates, res.Skipped, workflowID, ver)
}

func handleDuplicates(args []string) {
	fs := flag.NewFlagSet("duplicates", flag.ExitOnError)
	cfgPath := fs.String("config", "", "JSON config file")
	dbPath := fs.String("db", "", "SQLite database path (overrides config)")
	fs.Parse(args)

	cfg := loadConfig(*cfgPath)
	store := openStore(resolveDBPath(*dbPath, cfg))
	defer store.Close()

	dups, err := store.DuplicateClips()
	if err != nil {
		log.Fatalf("Failed to list duplicate clips: %v", err)
	}
	if len(dups) == 0 {
		fmt.Println("No duplicate clips found")
		return
	}
	for _, d := range dups {
		fmt.Printf("movie=%d start=%gs subjects=%v\n", d.MovieID, d.ClipStartTime, d.SubjectIDs)
	}
	fmt.Printf("%d duplicate group(s)\n", len(dups))
}

func handleAggregate(args []string) {
	fs := flag.NewFlagSet("aggregate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "JSON config file")
	dbPath := fs.String("db", "", "SQLite database path (overrides config)")
	subjectType := fs.String("type", "frame", "Subject type to aggregate: 'frame' or 'clip'")
	workflow := fs.Int64("workflow", 0, "Workflow id (overrides config)")
	minVersion := fs.Float64("min-version", 0, "Minimum workflow version (overrides config)")
	extractorName := fs.String("extractor", "", "Clip payload extractor (overrides config)")
	minUsers := fs.Int("min-users", agg.DefaultMinUsers, "Participation threshold: distinct users per subject")
	aggUsers := fs.Float64("agg-users", agg.DefaultAggUsers, "Agreement threshold: fraction of a subject's users sharing a label")
	aggObj := fs.Float64("agg-obj", agg.DefaultAggObj, "Box threshold: fraction of a subject's users in a cluster")
	aggIoU := fs.Float64("agg-iou", agg.DefaultAggIoU, "Box threshold: minimum pairwise IoU within a cluster")
	aggIUA := fs.Float64("agg-iua", agg.DefaultAggIUA, "Box threshold: minimum mean IoU per clustered box")
	foldDuplicates := fs.Bool("fold-duplicates", false, "Fold duplicate clip uploads onto their first subject id")
	output := fs.String("output", "", "Output CSV filename (defaults to consensus-<type>-<timestamp>.csv)")
	noCharts := fs.Bool("no-charts", false, "Skip the HTML chart and PNG plot outputs")
	fs.Parse(args)

	cfg := loadConfig(*cfgPath)

	st := agg.SubjectType(*subjectType)
	if st != agg.SubjectFrame && st != agg.SubjectClip {
		log.Fatalf("Invalid subject type: %s (must be frame or clip)", *subjectType)
	}

	workflowID := *workflow
	if workflowID == 0 {
		workflowID = cfg.GetWorkflowID()
	}
	if workflowID == 0 {
		log.Fatal("Workflow id required: pass -workflow or set workflow_id in the config")
	}
	ver := *minVersion
	if ver == 0 {
		ver = cfg.GetMinWorkflowVersion()
	}

	// Config supplies the thresholds; flags the operator actually passed
	// override it.
	params := cfg.Params()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-users":
			params.MinUsers = *minUsers
		case "agg-users":
			params.AggUsers = *aggUsers
		case "agg-obj":
			params.AggObj = *aggObj
		case "agg-iou":
			params.AggIoU = *aggIoU
		case "agg-iua":
			params.AggIUA = *aggIUA
		}
	})
	if err := params.Validate(st); err != nil {
		log.Fatalf("Invalid thresholds: %v", err)
	}

	store := openStore(resolveDBPath(*dbPath, cfg))
	defer store.Close()

	cls, err := store.Classifications(workflowID, ver)
	if err != nil {
		log.Fatalf("Failed to load classifications: %v", err)
	}
	log.Printf("Loaded %d classifications for workflow %d (version >= %v)", len(cls), workflowID, ver)

	if *foldDuplicates {
		folded, err := foldDuplicateSubjects(store, cls)
		if err != nil {
			log.Fatalf("Failed to fold duplicate clips: %v", err)
		}
		log.Printf("Folded %d classifications onto first-sibling subjects", folded)
	}

	filename := *output
	if filename == "" {
		filename = fmt.Sprintf("consensus-%s-%s.csv", st, time.Now().Format("20060102-150405"))
	}
	base := strings.TrimSuffix(filename, ".csv")

	switch st {
	case agg.SubjectFrame:
		res, err := agg.AggregateFrames(cls, store, params)
		if err != nil {
			log.Fatalf("Aggregation failed: %v", err)
		}
		if err := store.SaveRunSummary(&res.Summary); err != nil {
			log.Fatalf("Failed to save run summary: %v", err)
		}
		logSummary(res.Summary)

		if err := report.WriteFrameResultFiles(filename, res); err != nil {
			log.Fatalf("Failed to write CSV files: %v", err)
		}
		log.Printf("Wrote %d consensus rows to %s (raw table alongside)", len(res.Rows), filename)

		if !*noCharts {
			if err := writeChart(base+".html", func(w io.Writer) error {
				return report.RenderFrameChart(w, res)
			}); err != nil {
				log.Fatalf("Failed to write chart: %v", err)
			}
			if err := writeChart(base+"-summary.html", func(w io.Writer) error {
				return report.RenderSummaryChart(w, res.Summary)
			}); err != nil {
				log.Fatalf("Failed to write summary chart: %v", err)
			}
			if err := report.SaveCentroidPlot(base+".png", res); err != nil {
				log.Fatalf("Failed to save centroid plot: %v", err)
			}
		}

		if err := writeStatsJSON(base+"-stats.json", report.ComputeFrameStats(res)); err != nil {
			log.Fatalf("Failed to write stats: %v", err)
		}

	case agg.SubjectClip:
		name := *extractorName
		if name == "" {
			name = cfg.GetExtractor()
		}
		extractor, err := agg.LookupExtractor(name)
		if err != nil {
			log.Fatalf("Unknown extractor: %v", err)
		}

		res, err := agg.AggregateClips(cls, extractor, store, params)
		if err != nil {
			log.Fatalf("Aggregation failed: %v", err)
		}
		if err := store.SaveRunSummary(&res.Summary); err != nil {
			log.Fatalf("Failed to save run summary: %v", err)
		}
		logSummary(res.Summary)

		if err := report.WriteClipResultFiles(filename, res); err != nil {
			log.Fatalf("Failed to write CSV files: %v", err)
		}
		log.Printf("Wrote %d consensus rows to %s (raw table alongside)", len(res.Rows), filename)

		if !*noCharts {
			if err := writeChart(base+".html", func(w io.Writer) error {
				return report.RenderClipChart(w, res)
			}); err != nil {
				log.Fatalf("Failed to write chart: %v", err)
			}
			if err := writeChart(base+"-summary.html", func(w io.Writer) error {
				return report.RenderSummaryChart(w, res.Summary)
			}); err != nil {
				log.Fatalf("Failed to write summary chart: %v", err)
			}
		}

		if err := writeStatsJSON(base+"-stats.json", report.ComputeClipStats(res)); err != nil {
			log.Fatalf("Failed to write stats: %v", err)
		}
	}
}

// foldDuplicateSubjects remaps classifications recorded against duplicate
// clip uploads onto the lowest subject id of each duplicate group.
func foldDuplicateSubjects(store *db.DB, cls []agg.Classification) (int, error) {
	dups, err := store.DuplicateClips()
	if err != nil {
		return 0, err
	}

	remap := map[int64]int64{}
	for _, d := range dups {
		first := d.SubjectIDs[0]
		for _, id := range d.SubjectIDs {
			if id < first {
				first = id
			}
		}
		for _, id := range d.SubjectIDs {
			if id != first {
				remap[id] = first
			}
		}
	}

	folded := 0
	for i := range cls {
		if to, ok := remap[cls[i].SubjectID]; ok {
			cls[i].SubjectID = to
			folded++
		}
	}
	return folded, nil
}

func logSummary(s agg.Summary) {
	log.Printf("Run %s: %d classifications (%d malformed, %d missing subjects, %d wrong type)",
		s.RunID, s.Classifications, s.Malformed, s.MissingSubjects, s.TypeMismatched)
	log.Printf("Rows: %d flattened, %d retained, %d consensus", s.RowsFlattened, s.RowsRetained, s.RowsOut)
	if len(s.MissingSubjectIDs) > 0 {
		log.Printf("Missing subject ids: %v", s.MissingSubjectIDs)
	}
}

func writeChart(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return render(f)
}

func writeStatsJSON(path string, stats any) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "JSON config file")
	dbPath := fs.String("db", "", "SQLite database path (overrides config)")
	listen := fs.String("listen", "", "Listen address (overrides config)")
	fs.Parse(args)

	cfg := loadConfig(*cfgPath)

	addr := *listen
	if addr == "" {
		addr = cfg.GetListenAddr()
	}

	store := openStore(resolveDBPath(*dbPath, cfg))
	defer store.Close()

	timeout := cfg.GetHTTPTimeout()
	server := &http.Server{
		Addr:         addr,
		Handler:      api.LoggingMiddleware(api.NewServer(store, cfg).ServeMux()),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}
