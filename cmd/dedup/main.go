package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/DeanIA/deduplication-faiss/internal/catalog"
	"github.com/DeanIA/deduplication-faiss/internal/config"
	"github.com/DeanIA/deduplication-faiss/internal/dedup"
	neo4jstore "github.com/DeanIA/deduplication-faiss/internal/graph/neo4j"
	"github.com/DeanIA/deduplication-faiss/internal/metrics"
	"github.com/DeanIA/deduplication-faiss/internal/observability"
	"github.com/DeanIA/deduplication-faiss/internal/tui"
	"github.com/DeanIA/deduplication-faiss/internal/vector"
)

func main() {
	var (
		descriptionsPath string
		embeddingsPath   string
		groupsPath       string
		pairsPath        string
		configPath       string
		radius           float32
		workers          int
		retainSingletons bool
		markDuplicates   bool
		exportGraph      bool
		jsonReport       bool
	)

	rootCmd := &cobra.Command{
		Use:   "dedup",
		Short: "Near-duplicate media grouping over embedding similarity",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full grouping pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{
				descriptions:     descriptionsPath,
				embeddings:       embeddingsPath,
				groupsOut:        groupsPath,
				pairsOut:         pairsPath,
				radius:           radius,
				radiusSet:        cmd.Flags().Changed("radius"),
				workers:          workers,
				retainSingletons: retainSingletons,
				retainSet:        cmd.Flags().Changed("retain-singletons"),
				markDuplicates:   markDuplicates,
				exportGraph:      exportGraph,
				jsonReport:       jsonReport,
			}
			return runPipeline(configPath, opts)
		},
	}

	runCmd.Flags().StringVar(&descriptionsPath, "descriptions", "", "Descriptions JSONL path")
	runCmd.Flags().StringVar(&embeddingsPath, "embeddings", "", "Embeddings JSONL path")
	runCmd.Flags().StringVar(&groupsPath, "groups-out", "groups.jsonl", "Output path for duplicate groups")
	runCmd.Flags().StringVar(&pairsPath, "pairs-out", "", "Output path for file-pair records (optional)")
	runCmd.Flags().StringVar(&configPath, "config", "configs/dedup.yaml", "Config file path")
	runCmd.Flags().Float32Var(&radius, "radius", 0.9999, "Similarity threshold in (0,1]")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Retrieval workers (0 = GOMAXPROCS)")
	runCmd.Flags().BoolVar(&retainSingletons, "retain-singletons", false, "Keep single-member groups in output")
	runCmd.Flags().BoolVar(&markDuplicates, "mark", false, "Rewrite duplicate flags in the descriptions file")
	runCmd.Flags().BoolVar(&exportGraph, "export-graph", false, "Export duplicate relations to Neo4j")
	runCmd.Flags().BoolVar(&jsonReport, "json", false, "Output metrics as JSON")
	_ = runCmd.MarkFlagRequired("descriptions")
	_ = runCmd.MarkFlagRequired("embeddings")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Load embeddings into the vector backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(configPath, embeddingsPath)
		},
	}
	indexCmd.Flags().StringVar(&embeddingsPath, "embeddings", "", "Embeddings JSONL path")
	indexCmd.Flags().StringVar(&configPath, "config", "configs/dedup.yaml", "Config file path")
	_ = indexCmd.MarkFlagRequired("embeddings")

	markCmd := &cobra.Command{
		Use:   "mark",
		Short: "Rewrite duplicate flags from an existing groups file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMark(descriptionsPath, groupsPath)
		},
	}
	markCmd.Flags().StringVar(&descriptionsPath, "descriptions", "", "Descriptions JSONL path")
	markCmd.Flags().StringVar(&groupsPath, "groups", "", "Groups JSONL path")
	_ = markCmd.MarkFlagRequired("descriptions")
	_ = markCmd.MarkFlagRequired("groups")

	var reviewReportPath, reviewOutPath string
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Interactively review duplicate groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(groupsPath, reviewOutPath, reviewReportPath)
		},
	}
	reviewCmd.Flags().StringVar(&groupsPath, "groups", "", "Groups JSONL path")
	reviewCmd.Flags().StringVar(&reviewOutPath, "out", "", "Write confirmed groups here (optional)")
	reviewCmd.Flags().StringVar(&reviewReportPath, "report", "", "Write a JSON decision report here (optional)")
	_ = reviewCmd.MarkFlagRequired("groups")

	var fileID uint64
	duplicatesCmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Query recorded duplicates of a file from the Neo4j export",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuplicates(configPath, fileID)
		},
	}
	duplicatesCmd.Flags().Uint64Var(&fileID, "file-id", 0, "File ID to query")
	duplicatesCmd.Flags().StringVar(&configPath, "config", "configs/dedup.yaml", "Config file path")
	_ = duplicatesCmd.MarkFlagRequired("file-id")

	backendsCmd := &cobra.Command{
		Use:   "backends",
		Short: "List available vector backends",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available vector backends:")
			fmt.Println()
			fmt.Println("  qdrant   gRPC range search against a Qdrant collection")
			fmt.Println("  memory   exact in-process search (default, no server needed)")
			fmt.Println()
			fmt.Println("Configure in dedup.yaml or via environment:")
			fmt.Println("  DEDUP_VECTOR_BACKEND=qdrant")
			fmt.Println("  DEDUP_VECTOR_HOST=localhost")
			fmt.Println("  DEDUP_VECTOR_PORT=6334")
			fmt.Println("  DEDUP_VECTOR_COLLECTION=media_embeddings")
		},
	}

	rootCmd.AddCommand(runCmd, indexCmd, markCmd, reviewCmd, duplicatesCmd, backendsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type runOptions struct {
	descriptions     string
	embeddings       string
	groupsOut        string
	pairsOut         string
	radius           float32
	radiusSet        bool
	workers          int
	retainSingletons bool
	retainSet        bool
	markDuplicates   bool
	exportGraph      bool
	jsonReport       bool
}

// loadConfig falls back to defaults when the config file is absent.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = &config.Config{}
	}
	return cfg
}

// openIndex builds the configured similarity index.
func openIndex(ctx context.Context, cfg *config.Config) (vector.Index, string, error) {
	if cfg.Vector.Backend == "qdrant" {
		idx, err := vector.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection, cfg.Vector.SearchLimit)
		if err != nil {
			return nil, "", fmt.Errorf("qdrant backend: %w", err)
		}
		return idx, "qdrant", nil
	}
	return vector.NewMemory(), "memory", nil
}

func runPipeline(configPath string, opts runOptions) error {
	m := metrics.New()
	cfg := loadConfig(configPath)
	ctx := context.Background()

	// Config supplies grouping knobs unless flags override them.
	if !opts.radiusSet && cfg.Dedup.Radius != 0 {
		opts.radius = cfg.Dedup.Radius
	}
	if !opts.retainSet {
		opts.retainSingletons = cfg.Dedup.RetainSingletons
	}
	if opts.workers == 0 {
		opts.workers = cfg.Dedup.Workers
	}
	weights := dedup.DefaultWeights
	if cfg.Dedup.QualityWeight != 0 || cfg.Dedup.SizeWeight != 0 {
		weights = dedup.Weights{Quality: cfg.Dedup.QualityWeight, Size: cfg.Dedup.SizeWeight}
	}
	m.Radius = opts.radius

	sampleRate := cfg.Observability.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}
	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:  "dedup",
		OTLPEndpoint: cfg.Observability.OTLPEndpoint,
		SampleRate:   sampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer tp.Shutdown(context.Background())

	audit := observability.NewAuditLogger(nil, "")
	if cfg.Observability.AuditLog != "" {
		audit, err = observability.NewAuditFileLogger(cfg.Observability.AuditLog, fmt.Sprintf("run-%d", time.Now().Unix()))
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer audit.Close()
	}
	audit.Log(observability.AuditEventRunStart, true, "pipeline started", map[string]any{
		"descriptions": opts.descriptions,
		"embeddings":   opts.embeddings,
		"radius":       opts.radius,
	})

	// Step 1: catalog
	fmt.Println("\n=== Catalog: Parsing descriptions ===")
	start := time.Now()
	entries, err := catalog.LoadDescriptions(opts.descriptions)
	if err != nil {
		audit.LogError(observability.AuditEventRunError, err, nil)
		return fmt.Errorf("load descriptions: %w", err)
	}
	cat := catalog.Build(entries)
	videos, images := 0, 0
	for _, e := range entries {
		switch e.MediaType {
		case "video":
			videos++
		case "image":
			images++
		}
	}
	m.CollectCatalog(len(entries), videos, images, cat.Len())
	m.AddStage("catalog", time.Since(start), 0)
	fmt.Printf("  Parsed %d entries, %d embeddings\n", len(entries), cat.Len())

	// Step 2: index
	fmt.Println("\n=== Index: Loading embeddings ===")
	start = time.Now()
	points, err := vector.LoadEmbeddings(opts.embeddings)
	if err != nil {
		audit.LogError(observability.AuditEventRunError, err, nil)
		return fmt.Errorf("load embeddings: %w", err)
	}
	index, backend, err := openIndex(ctx, cfg)
	if err != nil {
		audit.LogError(observability.AuditEventRunError, err, nil)
		return err
	}
	defer index.Close()
	m.Backend = backend
	if err := vector.NewIndexer(index).IndexEmbeddings(ctx, points); err != nil {
		audit.LogError(observability.AuditEventRunError, err, nil)
		return fmt.Errorf("index embeddings: %w", err)
	}
	audit.Log(observability.AuditEventIndexUpsert, true, "", map[string]any{"points": len(points), "backend": backend})
	m.AddStage("index", time.Since(start), 0)
	fmt.Printf("  Indexed %d points [%s]\n", len(points), backend)

	// Step 3 + 4: retrieve and group
	fmt.Printf("\n=== Group: Range search at radius %v ===\n", opts.radius)
	runner := &dedup.Runner{
		Catalog: cat,
		Index:   index,
		Opts: dedup.Options{
			Radius:           opts.radius,
			Weights:          weights,
			RetainSingletons: opts.retainSingletons,
			TieBreak:         cfg.Dedup.TieBreak,
			Workers:          opts.workers,
			MediaRadius:      cfg.Dedup.RadiusByMediaType(),
		},
	}
	res, err := runner.Run(ctx, points)
	if err != nil {
		audit.LogError(observability.AuditEventRunError, err, nil)
		return fmt.Errorf("grouping run: %w", err)
	}
	m.CollectGrouping(res.Stats.Points, res.Stats.Edges, res.Stats.Groups,
		res.Stats.NonTrivialGroups, res.Stats.Singletons, res.Stats.LargestGroup)
	m.Grouping.FilePairs = len(res.Pairs)
	m.AddStage("retrieve", res.Stats.RetrieveDuration, 0)
	m.AddStage("group", res.Stats.GroupDuration, 0)
	fmt.Printf("  %d groups (%d non-trivial, largest %d)\n",
		res.Stats.Groups, res.Stats.NonTrivialGroups, res.Stats.LargestGroup)

	// Step 5: emit
	fmt.Println("\n=== Emit: Writing outputs ===")
	start = time.Now()
	if err := writeGroups(opts.groupsOut, res.Records); err != nil {
		audit.LogError(observability.AuditEventRunError, err, nil)
		return err
	}
	if info, err := os.Stat(opts.groupsOut); err == nil {
		m.Grouping.OutputBytes += int(info.Size())
	}
	fmt.Printf("  Groups written to %s\n", opts.groupsOut)
	if opts.pairsOut != "" {
		if err := writePairs(opts.pairsOut, res.Pairs); err != nil {
			audit.LogError(observability.AuditEventRunError, err, nil)
			return err
		}
		if info, err := os.Stat(opts.pairsOut); err == nil {
			m.Grouping.OutputBytes += int(info.Size())
		}
		fmt.Printf("  Pairs written to %s\n", opts.pairsOut)
	}

	if opts.markDuplicates {
		updates := dedup.DuplicateFlagUpdates(res.Records)
		if _, err := catalog.UpdateDuplicateFlags(opts.descriptions, updates); err != nil {
			audit.LogError(observability.AuditEventRunError, err, nil)
			return fmt.Errorf("mark duplicates: %w", err)
		}
		audit.Log(observability.AuditEventFlagsUpdate, true, "", map[string]any{"files": len(updates)})
		fmt.Printf("  Duplicate flags updated for %d files\n", len(updates))
	}

	if opts.exportGraph {
		if cfg.Graph.URI == "" {
			return fmt.Errorf("export-graph requires graph.uri in config")
		}
		// Password resolution (secrets backend, env) happened in config.Load.
		store, err := neo4jstore.NewNeo4j(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
		if err != nil {
			audit.LogError(observability.AuditEventRunError, err, nil)
			return fmt.Errorf("connect neo4j: %w", err)
		}
		defer store.Close(ctx)
		if err := store.StoreGroups(ctx, res.Records); err != nil {
			audit.LogError(observability.AuditEventRunError, err, nil)
			return fmt.Errorf("export graph: %w", err)
		}
		audit.Log(observability.AuditEventGraphExport, true, "", map[string]any{"groups": len(res.Records)})
		fmt.Println("  Duplicate relations exported to Neo4j")
	}
	m.AddStage("emit", time.Since(start), 0)

	m.Finish(nil)
	audit.Log(observability.AuditEventRunComplete, true, "", map[string]any{
		"groups":     res.Stats.Groups,
		"singletons": res.Stats.Singletons,
	})

	if opts.jsonReport {
		data, _ := m.JSON()
		fmt.Println(string(data))
	} else {
		m.PrintSummary(os.Stdout)
	}
	return nil
}

func writeGroups(path string, records []dedup.GroupRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create groups output: %w", err)
	}
	if err := dedup.WriteGroupsJSONL(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writePairs(path string, pairs []dedup.FilePairRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pairs output: %w", err)
	}
	if err := dedup.WritePairsJSONL(f, pairs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// runIndex loads embeddings into the configured backend and stops there.
func runIndex(configPath, embeddingsPath string) error {
	ctx := context.Background()
	cfg := loadConfig(configPath)

	points, err := vector.LoadEmbeddings(embeddingsPath)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}

	index, backend, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer index.Close()
	if backend == "memory" {
		return fmt.Errorf("standalone indexing needs a persistent backend; configure vector.backend=qdrant")
	}

	if err := vector.NewIndexer(index).IndexEmbeddings(ctx, points); err != nil {
		return fmt.Errorf("index embeddings: %w", err)
	}
	fmt.Printf("Indexed %d points into %s\n", len(points), cfg.Vector.Collection)
	return nil
}

// runMark replays duplicate flags from a previously written groups file.
func runMark(descriptionsPath, groupsPath string) error {
	f, err := os.Open(groupsPath)
	if err != nil {
		return fmt.Errorf("open groups: %w", err)
	}
	defer f.Close()

	records, err := dedup.ReadGroupsJSONL(f)
	if err != nil {
		return fmt.Errorf("read groups: %w", err)
	}

	updates := dedup.DuplicateFlagUpdates(records)
	if _, err := catalog.UpdateDuplicateFlags(descriptionsPath, updates); err != nil {
		return fmt.Errorf("mark duplicates: %w", err)
	}

	flagged := 0
	for _, dup := range updates {
		if dup {
			flagged++
		}
	}
	fmt.Printf("Updated %d files, %d flagged duplicate\n", len(updates), flagged)
	return nil
}

// runDuplicates reads back the duplicate relations a previous run exported.
func runDuplicates(configPath string, fileID uint64) error {
	ctx := context.Background()
	cfg := loadConfig(configPath)
	if cfg.Graph.URI == "" {
		return fmt.Errorf("duplicates query requires graph.uri in config")
	}

	store, err := neo4jstore.NewNeo4j(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
	if err != nil {
		return fmt.Errorf("connect neo4j: %w", err)
	}
	defer store.Close(ctx)

	ids, err := store.QueryDuplicates(ctx, fileID)
	if err != nil {
		return fmt.Errorf("query duplicates: %w", err)
	}
	if len(ids) == 0 {
		fmt.Printf("No duplicates recorded for file %d\n", fileID)
		return nil
	}
	fmt.Printf("Duplicates of file %d:\n", fileID)
	for _, id := range ids {
		fmt.Printf("  %d\n", id)
	}
	return nil
}

// runReview walks the reviewer through each group and applies the outcome.
func runReview(groupsPath, outPath, reportPath string) error {
	f, err := os.Open(groupsPath)
	if err != nil {
		return fmt.Errorf("open groups: %w", err)
	}
	records, err := dedup.ReadGroupsJSONL(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read groups: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No duplicate groups to review")
		return nil
	}

	session, err := tui.RunReview(tui.NewReviewSession(records))
	if err != nil {
		return err
	}

	if reportPath != "" {
		if err := tui.SaveReviewReport(session, reportPath); err != nil {
			return err
		}
		fmt.Printf("Review report written to %s\n", reportPath)
	}
	if outPath != "" {
		kept := session.ConfirmedRecords()
		if err := writeGroups(outPath, kept); err != nil {
			return err
		}
		fmt.Printf("Kept %d of %d groups, written to %s\n", len(kept), len(records), outPath)
	}
	return nil
}
