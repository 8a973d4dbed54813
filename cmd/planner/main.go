package main

import (
	"context"
	"encoding/json"
	"flag"
	"fleet-routing-pipeline/internal/adapters/cache"
	"fleet-routing-pipeline/internal/adapters/csvrepo"
	"fleet-routing-pipeline/internal/adapters/milp"
	"fleet-routing-pipeline/internal/config"
	"fleet-routing-pipeline/internal/platform/db"
	"fleet-routing-pipeline/internal/ports"
	"fleet-routing-pipeline/internal/services"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"
)

// main is the application composition root.
// It wires concrete adapters (CSV ingestion, SQL arc cache, MILP solver)
// behind ports and runs the planning pipeline once.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	configPath := flag.String("config", "planner.yaml", "path to the optional YAML run configuration")
	diagnose := flag.Bool("diagnose", false, "probe constraint relaxations instead of a plain solve")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	arcCache, closeCache, err := openArcCache(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if closeCache != nil {
		defer closeCache()
	}

	solver, fallback := buildSolvers(cfg)

	p := &services.Pipeline{
		Instances:    csvrepo.NewInstanceRepository(cfg.InputsDir()),
		ArcCache:     arcCache,
		Solver:       solver,
		Fallback:     fallback,
		Tables:       csvrepo.NewTableDir(cfg.TablesDir()),
		Verification: csvrepo.NewTableDir(cfg.VerificationDir()),
	}

	req := ports.SolveRequest{
		TimeLimit:   cfg.TimeLimit(),
		MIPGap:      cfg.MIPGap,
		FlowEpsilon: cfg.FlowEpsilon,
	}

	ctx := context.Background()

	if *diagnose {
		results, err := p.Diagnose(ctx, req)
		if err != nil {
			log.Fatal(err)
		}
		for _, r := range results {
			switch {
			case r.Err != nil:
				log.Printf("diagnose %-36s status=%s err=%v", r.Scenario, r.Status, r.Err)
			case r.Status == ports.StatusInfeasible:
				log.Printf("diagnose %-36s status=%s", r.Scenario, r.Status)
			default:
				log.Printf("diagnose %-36s status=%s objective=%.4f", r.Scenario, r.Status, r.Objective)
			}
		}
		return
	}

	summary, err := p.Run(ctx, req)
	if err != nil {
		log.Fatal(err)
	}
	if err := writeSummary(cfg.OutDir, summary); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run %s finished status=%s provider=%s objective=%.4f",
		summary.RunID, summary.Status, summary.Provider, summary.Objective)
}

// openArcCache selects the cache backend: postgres when DATABASE_URL is
// set, otherwise the local sqlite file. An empty cache path disables
// caching entirely.
func openArcCache(cfg config.Config) (ports.ArcCostCache, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitPostgresSchema(pg); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		return cache.NewSQLArcCache(pg), func() { _ = pg.Close() }, nil
	}

	if cfg.CachePath == "" {
		return nil, nil, nil
	}
	if dir := filepath.Dir(cfg.CachePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create cache dir %q: %w", dir, err)
		}
	}
	lite, err := db.OpenSQLite(cfg.CachePath)
	if err != nil {
		return nil, nil, err
	}
	if err := cache.InitSqliteSchema(lite); err != nil {
		_ = lite.Close()
		return nil, nil, err
	}
	return cache.NewSqliteArcCache(lite), func() { _ = lite.Close() }, nil
}

// buildSolvers splits the configured backend list into the MILP
// provider order plus the exhaustive fallback. Listing "exhaustive"
// alone forces the brute-force path; listing it next to MILP backends
// enables it as the fallback.
func buildSolvers(cfg config.Config) (ports.RouteSolver, ports.RouteSolver) {
	providers := make([]string, 0, len(cfg.Solvers))
	listed := false
	for _, s := range cfg.Solvers {
		if s == "exhaustive" {
			listed = true
			continue
		}
		providers = append(providers, s)
	}

	exhaustive := services.NewExhaustiveSolver(cfg.ExhaustiveMaxClients)
	if len(providers) == 0 {
		return exhaustive, nil
	}
	if listed || cfg.ExhaustiveFallback {
		return milp.NewSolver(providers), exhaustive
	}
	return milp.NewSolver(providers), nil
}

// writeSummary records the run next to the output tables.
func writeSummary(outDir string, summary *services.RunSummary) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("write run summary: create %q: %w", outDir, err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("write run summary: marshal: %w", err)
	}

	path := filepath.Join(outDir, "run_summary.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	return nil
}
