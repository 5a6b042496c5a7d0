package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/matchdayhq/matchday/go/internal/dbconfig"
)

// SeedMatch mirrors the JSON fixture layout
type SeedMatch struct {
	ID        string `json:"id"`
	Team1ID   string `json:"team1_id"`
	Team2ID   string `json:"team2_id"`
	Division  int    `json:"division"`
	Date      string `json:"date"`
	TimeSlot  int    `json:"time_slot"`
	Status    string `json:"status"`
	Cancelled bool   `json:"cancelled"`
	CreatedAt string `json:"created_at"`
}

func main() {
	ctx := context.Background()

	// 1) Load the JSON fixture
	data, err := os.ReadFile("go/internal/assets/matches.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var matches []SeedMatch
	if err := json.Unmarshal(data, &matches); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert and count
	var (
		total    = len(matches)
		inserted int
		skipped  int
		errs     int
	)

	for _, m := range matches {
		cmdTag, err := pool.Exec(ctx, `
            INSERT INTO matches (
              id, team1_id, team2_id, division, date, time_slot,
              status, cancelled, created_at
            ) VALUES (
              $1,$2,$3,$4,$5,$6,$7,$8,$9
            )
            ON CONFLICT (id) DO NOTHING
        `,
			m.ID, m.Team1ID, m.Team2ID, m.Division, m.Date, m.TimeSlot,
			m.Status, m.Cancelled, m.CreatedAt,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting match %s: %v\n", m.ID, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Matches seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
