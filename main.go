package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dfarias/incident-insights/api"
	"github.com/dfarias/incident-insights/chat"
	"github.com/dfarias/incident-insights/config"
	"github.com/dfarias/incident-insights/database"
	"github.com/dfarias/incident-insights/dataset"
	"github.com/dfarias/incident-insights/embeddings"
	"github.com/dfarias/incident-insights/index"
	"github.com/dfarias/incident-insights/knowledge"
	"github.com/dfarias/incident-insights/llm"
	"github.com/dfarias/incident-insights/summary"
	"github.com/dfarias/incident-insights/viz"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "chat":
		chatCmd(cfg, logger, os.Args[2:])
	case "synopsis":
		synopsisCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// session bundles the once-built dependencies every command shares.
type session struct {
	view      dataset.View
	aggregate []dataset.StreetVehicleTotals
	index     *index.Index
	engine    *chat.Engine
	cleanup   func(context.Context)
}

func buildSession(ctx context.Context, cfg config.Config, logger *log.Logger) (*session, error) {
	ds, err := dataset.Load(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	view := dataset.FilterByYearRange(ds, cfg.YearStart, cfg.YearEnd)
	aggregate := dataset.AggregateByStreet(view, dataset.VehicleColumns)
	logger.Printf("loaded %d records, %d in the %d-%d window", len(ds.Records), len(view), cfg.YearStart, cfg.YearEnd)

	// An empty window is a warning, not a startup failure: the API serves
	// empty payloads and chat reports that there is nothing to answer from.
	if len(view) == 0 {
		logger.Printf("no records in the %d-%d window; serving empty state", cfg.YearStart, cfg.YearEnd)
		return &session{
			view:      view,
			aggregate: aggregate,
			cleanup:   func(context.Context) {},
		}, nil
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedder setup: %w", err)
	}

	cleanups := make([]func(context.Context), 0, 2)
	cleanup := func(cctx context.Context) {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i](cctx)
		}
	}

	var store index.VectorStore = index.NewMemoryStore()
	if cfg.PostgresDSN != "" {
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		cleanups = append(cleanups, func(context.Context) { pool.Close() })

		if err := database.EnsureIncidentSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		store = index.NewPostgresStore(pool)
	}

	builder := index.NewBuilder(store, embedder, logger, cfg.ChunkSize, cfg.ChunkOverlap)
	ix, err := builder.Build(ctx, view)
	if err != nil {
		cleanup(ctx)
		return nil, err
	}

	var graph chat.GraphStore
	if cfg.Neo4jURI != "" {
		driver, err := database.NewNeo4jDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass)
		if err != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("neo4j connection: %w", err)
		}
		cleanups = append(cleanups, func(cctx context.Context) { _ = driver.Close(cctx) })

		if err := knowledge.SyncStreets(ctx, driver, streetSnapshot(aggregate)); err != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("sync street graph: %w", err)
		}
		graph = chat.NewNeo4jGraphStore(driver)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("llm setup: %w", err)
	}

	streets := make([]string, 0, len(aggregate))
	for _, totals := range aggregate {
		streets = append(streets, totals.Street)
	}

	return &session{
		view:      view,
		aggregate: aggregate,
		index:     ix,
		engine:    chat.NewEngine(ix, graph, llmClient, streets, logger),
		cleanup:   cleanup,
	}, nil
}

func streetSnapshot(aggregate []dataset.StreetVehicleTotals) knowledge.StreetSnapshot {
	snapshot := knowledge.StreetSnapshot{Corridor: "Rodovia Raposo Tavares"}
	for _, totals := range aggregate {
		snapshot.Streets = append(snapshot.Streets, knowledge.StreetTotals{
			Name:      totals.Street,
			Total:     totals.Total,
			ByVehicle: totals.ByVehicle,
		})
	}
	return snapshot
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "HTTP listen address")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := buildSession(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("build session: %v", err)
	}
	defer sess.cleanup(context.Background())

	server := api.New(sess.view, sess.aggregate, sess.index, sess.engine, cfg.RetrievalLimit, logger)
	httpServer := &http.Server{Addr: *addr, Handler: server.Handler()}

	go func() {
		logger.Printf("listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

func chatCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	question := flags.String("question", "", "question to ask about the incident dataset")
	limit := flags.Int("limit", cfg.RetrievalLimit, "number of context chunks to retrieve")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse chat flags: %v", err)
	}

	if strings.TrimSpace(*question) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatalf("read question: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := buildSession(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("build session: %v", err)
	}
	defer sess.cleanup(context.Background())

	if sess.engine == nil {
		fmt.Println("Nenhum registro no período selecionado.")
		return
	}

	answer, _, err := sess.engine.Ask(ctx, chat.Conversation{}, *question, chat.Config{RetrievalLimit: *limit})
	if err != nil {
		logger.Fatalf("chat failed: %v", err)
	}

	fmt.Println(answer.Text)

	if routed := viz.Route(*question); !routed.IsZero() {
		fmt.Println()
		if routed.Category == viz.CategoryMap {
			layer, err := viz.BuildHeatMap(sess.view, routed.Motorcycle)
			if err != nil {
				logger.Printf("heatmap skipped: %v", err)
				return
			}
			fmt.Printf("Visualization: %s (%d points, center %.4f, %.4f)\n",
				layer.Title, len(layer.Points), layer.CenterLatitude, layer.CenterLongitude)
			return
		}

		chart, err := viz.BuildChart(sess.view, routed.Category)
		if err != nil {
			logger.Printf("chart skipped: %v", err)
			return
		}
		fmt.Printf("Visualization: %s\n", chart.Title)
		for _, point := range chart.Points {
			fmt.Printf("  %s: %d\n", point.Label, point.Value)
		}
	}
}

func synopsisCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("synopsis", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse synopsis flags: %v", err)
	}

	ds, err := dataset.Load(cfg.DataPath)
	if err != nil {
		logger.Fatalf("load dataset: %v", err)
	}

	view := dataset.FilterByYearRange(ds, cfg.YearStart, cfg.YearEnd)
	synopsis, err := summary.BuildSynopsis(view)
	if errors.Is(err, summary.ErrEmptyDataset) {
		fmt.Println("Nenhum registro no período selecionado.")
		return
	}
	if err != nil {
		logger.Fatalf("build synopsis: %v", err)
	}

	fmt.Println(synopsis)
}

func printUsage() {
	fmt.Println("Usage: incident-insights <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve     Serve the dashboard API and the chat assistant over HTTP")
	fmt.Println("  chat      Ask a one-shot question about the incident dataset")
	fmt.Println("  synopsis  Print the generated dataset synopsis")
}
