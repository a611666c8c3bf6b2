package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/DeanIA/deduplication-faiss/internal/config"
	neo4jstore "github.com/DeanIA/deduplication-faiss/internal/graph/neo4j"
	"github.com/DeanIA/deduplication-faiss/internal/observability"
	"github.com/DeanIA/deduplication-faiss/internal/server"
	temporalmod "github.com/DeanIA/deduplication-faiss/internal/temporal"
	"github.com/DeanIA/deduplication-faiss/internal/vector"
)

func main() {
	configPath := "configs/dedup.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var memory *vector.MemoryIndex
	if cfg.Vector.Backend != "qdrant" {
		memory = vector.NewMemory()
	}
	temporalmod.SetDependencies(&temporalmod.Dependencies{Cfg: cfg, Memory: memory})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	fmt.Printf("Worker started on task queue: %s\n", cfg.Temporal.TaskQueue)

	// Health endpoints plus graceful teardown of worker and client.
	g := server.NewGracefulServer(&server.HealthConfig{Version: "0.1.0"}, nil)
	g.Health.RegisterCheck("temporal", server.TemporalHealthChecker(func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
		return err
	}))
	g.Health.RegisterCheck("vector", server.VectorHealthChecker(cfg.Vector.Backend, nil))
	g.Shutdown.RegisterHook("temporal-worker", 20, func(ctx context.Context) error {
		w.Stop()
		return nil
	})
	if memory != nil {
		hook := server.VectorIndexShutdownHook(memory.Close)
		g.Shutdown.RegisterHook(hook.Name, hook.Priority, hook.Fn)
	}

	// Graph export is configured; surface its connectivity on /health and
	// close the driver after the worker drains.
	if cfg.Graph.URI != "" {
		store, err := neo4jstore.NewNeo4j(context.Background(), cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
		if err != nil {
			log.Fatalf("neo4j: %v", err)
		}
		g.Health.RegisterCheck("neo4j", server.Neo4jHealthChecker(store.Verify))
		hook := server.Neo4jShutdownHook(store.Close)
		g.Shutdown.RegisterHook(hook.Name, hook.Priority, hook.Fn)
	}

	if cfg.Observability.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Metrics().Handler())
			if err := http.ListenAndServe(cfg.Observability.MetricsAddr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	if err := g.Start(":8080"); err != nil {
		log.Fatalf("health server: %v", err)
	}
	g.Wait()
	fmt.Println("Worker stopped")
}
