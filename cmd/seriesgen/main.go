// seriesgen prints a generated series as JSON lines, one record per line,
// for offline inspection. With -seed-db it writes the reference tables to a
// SQLite file instead.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"agrimarket/internal/bargen"
	"agrimarket/internal/model"
	"agrimarket/internal/refdata"
	"agrimarket/internal/series"
	sqlitestore "agrimarket/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	rangeName := flag.String("range", "day", "Time range: day|week|month|year")
	seed := flag.Int64("seed", 0, "Random seed (0 = time based)")
	strict := flag.Bool("strict", false, "Withhold moving averages until their window is full")
	dbPath := flag.String("db", "", "Load reference data from this SQLite file")
	seedDB := flag.String("seed-db", "", "Write the built-in reference data to this SQLite file and exit")
	summary := flag.Bool("summary", false, "Print per-commodity statistics instead of records")
	flag.Parse()

	if *seedDB != "" {
		w, err := sqlitestore.NewWriter(*seedDB)
		if err != nil {
			log.Fatalf("[seriesgen] %v", err)
		}
		defer w.Close()
		if err := w.Seed(refdata.Default()); err != nil {
			log.Fatalf("[seriesgen] seed: %v", err)
		}
		log.Printf("[seriesgen] reference data written to %s", *seedDB)
		return
	}

	r, err := model.ParseTimeRange(*rangeName)
	if err != nil {
		log.Fatalf("[seriesgen] %v", err)
	}

	table := refdata.Default()
	if *dbPath != "" {
		rd, err := sqlitestore.NewReader(*dbPath)
		if err != nil {
			log.Fatalf("[seriesgen] %v", err)
		}
		table, err = rd.LoadTable()
		rd.Close()
		if err != nil {
			log.Fatalf("[seriesgen] %v", err)
		}
	}

	var genOpts []bargen.Option
	if *seed != 0 {
		genOpts = append(genOpts, bargen.WithSeed(*seed))
	}
	b := series.NewBuilder(bargen.New(genOpts...), series.WithStrictWarmup(*strict))

	start := time.Now()
	s, err := b.Build(context.Background(), table.Commodities(), r.Window(time.Now()))
	if err != nil {
		log.Fatalf("[seriesgen] build: %v", err)
	}
	s.Range = r

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	enc := json.NewEncoder(out)

	if *summary {
		for _, st := range series.SummarizeAll(s) {
			if err := enc.Encode(st); err != nil {
				log.Fatalf("[seriesgen] write: %v", err)
			}
		}
	} else {
		for _, rec := range s.Records {
			if err := enc.Encode(rec); err != nil {
				log.Fatalf("[seriesgen] write: %v", err)
			}
		}
	}
	log.Printf("[seriesgen] %s: %d records for %v in %v", r, s.Len(), s.Commodities, time.Since(start))
}
