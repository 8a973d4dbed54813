package main

import (
	"flag"
	"fleet-routing-pipeline/internal/adapters/csvrepo"
	"fleet-routing-pipeline/internal/config"
	"fleet-routing-pipeline/internal/domain"
	"fleet-routing-pipeline/internal/services"
	"log"
	"path/filepath"

	"github.com/joho/godotenv"
)

// verifytool rebuilds the verification tables from the selected-arcs
// table of a previous run, without re-solving. Useful when inspecting
// or re-checking an existing solution.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	configPath := flag.String("config", "planner.yaml", "path to the optional YAML run configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	repo := csvrepo.NewInstanceRepository(cfg.InputsDir())
	inst, err := repo.LoadInstance()
	if err != nil {
		log.Fatal(err)
	}

	arcsPath := filepath.Join(cfg.TablesDir(), "selected_arcs.csv")
	log.Printf("Rebuilding verification tables from %s ...", arcsPath)
	selected, err := csvrepo.LoadArcTable(arcsPath)
	if err != nil {
		log.Fatal(err)
	}

	traces := services.TraceRoutes(inst, selected)
	for _, tr := range traces {
		if tr.Outcome != domain.WalkComplete {
			log.Printf("route for vehicle %s did not close cleanly: outcome=%s", tr.VehicleID, tr.Outcome)
		}
	}

	w := csvrepo.NewTableDir(cfg.VerificationDir())
	rows := services.BuildVerificationRows(traces)
	if err := services.WriteVerificationTable(w, "route_verification", rows, false); err != nil {
		log.Fatal(err)
	}
	timed := services.BuildTimedVerificationRows(inst, traces, selected)
	if err := services.WriteVerificationTable(w, "route_verification_timed", timed, true); err != nil {
		log.Fatal(err)
	}

	log.Printf("Verification tables rebuilt: %d routes, %d with client visits.", len(rows), len(timed))
}
