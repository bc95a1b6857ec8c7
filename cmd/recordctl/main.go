// recordctl carga un registro de producción desde la API y muestra sus totales y la
// asignación de costos de cada salida.
//
// Uso: go run ./cmd/recordctl -record <id> [-submit <outputId>]
// Si REMOTE_TOKEN está vacío se firma un token con JWT_SECRET para REMOTE_COMPANY_ID.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/produccion-pesquera/internal/application/recordstate"
	"github.com/jhoicas/produccion-pesquera/internal/infrastructure/remote"
	"github.com/jhoicas/produccion-pesquera/pkg/config"
	"github.com/jhoicas/produccion-pesquera/pkg/jwt"
	"github.com/jhoicas/produccion-pesquera/pkg/logger"
)

func main() {
	recordID := flag.String("record", "", "ID del registro de producción")
	submit := flag.String("submit", "", "ID de la salida cuya asignación de costos se envía al servidor")
	flag.Parse()
	if *recordID == "" {
		fmt.Fprintln(os.Stderr, "Uso: recordctl -record <id> [-submit <outputId>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Output: os.Stderr})

	loc, err := cfg.Production.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("zona horaria")
	}

	token := cfg.Remote.Token
	if token == "" && cfg.JWT.Secret != "" {
		token, err = jwt.Generate(cfg.JWT.Secret, "recordctl", cfg.Remote.CompanyID, jwt.RoleProduccion, cfg.JWT.Issuer, 15*time.Minute)
		if err != nil {
			log.Fatal().Err(err).Msg("firmar token")
		}
	}

	client := remote.NewClient(cfg.Remote, token)
	store := recordstate.NewStore(client,
		recordstate.WithLogger(log.Component("recordstate")),
		recordstate.WithLocation(loc),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Remote.Timeout+5*time.Second)
	defer cancel()

	if err := store.Load(ctx, *recordID); err != nil {
		log.Fatal().Err(err).Msg("cargar registro")
	}
	printRecord(store)

	if *submit == "" {
		return
	}
	res, err := store.SubmitCostAllocation(ctx, *submit)
	if err != nil {
		log.Fatal().Err(err).Str("output_id", *submit).Msg("asignación de costos rechazada")
	}
	if err := res.Wait(); err != nil {
		log.Fatal().Err(err).Str("output_id", *submit).Msg("el servidor rechazó la asignación")
	}
	fmt.Printf("asignación de %s confirmada (versión %d)\n", *submit, store.Version())
}

func printRecord(store *recordstate.Store) {
	rec := store.Record()
	totals := store.Totals()
	parent := "(raíz)"
	if rec.ParentRecordID != nil {
		parent = *rec.ParentRecordID
	}
	fmt.Printf("registro %s  proceso %s  padre %s\n", rec.ID, rec.ProcessID, parent)
	fmt.Printf("entrada %s kg  salida %s kg  rendimiento %s\n",
		totals.TotalInputWeightKg.StringFixed(2), totals.TotalOutputWeightKg.StringFixed(2), totals.YieldRatio.StringFixed(4))

	for _, out := range rec.Outputs {
		st, err := store.CostAllocationState(out.ID)
		if err != nil {
			fmt.Printf("  salida %s: %v\n", out.ID, err)
			continue
		}
		mode := "explícita"
		if st.Automatic {
			mode = "automática"
		}
		fmt.Printf("  salida %s  %s kg  asignación %s  completa=%t\n", out.ID, st.TotalWeightKg.StringFixed(2), mode, st.IsComplete)
		for _, src := range st.Sources {
			w, pct := "-", "-"
			if src.ContributedWeightKg.Valid {
				w = src.ContributedWeightKg.Decimal.StringFixed(2)
			}
			if src.ContributionPercentage.Valid {
				pct = src.ContributionPercentage.Decimal.StringFixed(2)
			}
			fmt.Printf("    %-14s %-36s %10s kg %8s %%\n", src.SourceType, src.ReferenceID, w, pct)
		}
	}
}
