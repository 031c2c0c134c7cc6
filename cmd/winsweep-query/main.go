package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"

	"winsweep/internal/database"
	"winsweep/internal/exitcodes"
)

func main() {
	dbPath := flag.String("db", defaultDBPath(), "Path to step audit database")
	recent := flag.Int("recent", 0, "Show N most recent steps")
	stats := flag.Bool("stats", false, "Show step statistics")
	outcome := flag.String("outcome", "", "Filter by outcome (removed, absent, failed, dry-run)")
	kind := flag.String("kind", "", "Filter by step kind")
	target := flag.String("target", "", "Filter by target pattern (SQL LIKE syntax)")
	days := flag.Int("days", 30, "Number of days for statistics (default: 30)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	db, err := database.NewStepDB(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	switch {
	case *stats:
		showStats(db, *days, *jsonOutput)
	case *recent > 0:
		records, err := db.GetRecentSteps(*recent)
		showRecords(records, err, *jsonOutput)
	case *outcome != "":
		records, err := db.GetStepsByOutcome(*outcome)
		showRecords(records, err, *jsonOutput)
	case *kind != "":
		records, err := db.GetStepsByKind(*kind)
		showRecords(records, err, *jsonOutput)
	case *target != "":
		records, err := db.GetStepsByTarget(*target)
		showRecords(records, err, *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  winsweep-query --recent 20              # Show 20 most recent steps")
		fmt.Println("  winsweep-query --stats                  # Show step statistics")
		fmt.Println("  winsweep-query --outcome failed         # Show only failed steps")
		fmt.Println("  winsweep-query --kind delete-folder     # Show folder deletions")
		fmt.Println("  winsweep-query --target 'C:\\Program%'   # Show steps under C:\\Program...")
		os.Exit(exitcodes.InvalidPlan)
	}
}

func showStats(db *database.StepDB, days int, jsonOutput bool) {
	stats, err := db.GetRunStats(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to get statistics: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Step Statistics (Last %d days)\n", days)
	fmt.Printf("Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Printf("Total Steps: %d\n\n", stats.Total)

	if len(stats.ByOutcome) > 0 {
		fmt.Println("By Outcome:")
		for outcome, count := range stats.ByOutcome {
			fmt.Printf("  %-15s %d\n", outcome, count)
		}
		fmt.Println()
	}

	if len(stats.ByKind) > 0 {
		fmt.Println("By Kind:")
		for kind, count := range stats.ByKind {
			fmt.Printf("  %-18s %d\n", kind, count)
		}
	}
}

func showRecords(records []database.StepRecord, err error, jsonOutput bool) {
	if err != nil {
		log.Fatalf("ERROR: Query failed: %v", err)
	}
	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}
	printRecords(records)
}

func printRecords(records []database.StepRecord) {
	if len(records) == 0 {
		fmt.Println("No matching steps")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tKIND\tTARGET\tOUTCOME\tDETAIL\tERROR")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Kind,
			r.Target,
			r.Outcome,
			r.Detail,
			r.ErrorMsg,
		)
	}
	w.Flush()
}

func defaultDBPath() string {
	base := os.Getenv("ProgramData")
	if base == "" {
		base = "."
	}
	return filepath.Join(base, "winsweep", "steps.db")
}
