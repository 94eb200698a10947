package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// dbCmd queries a sqlite structure registry directly:
// structures (counts per structure), regions (counts per region) or
// placements (most recent first).
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite registry path (optional; defaults to <data>/registry.sqlite)")
	limit := fs.Int("limit", 20, "result limit")
	structure := fs.String("structure", "", "structure filter (placements)")
	_ = fs.Parse(args)

	q := "structures"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "registry.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()
	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "structures":
		rows, err := db.Query(`SELECT structure, COUNT(*) FROM placements GROUP BY structure ORDER BY COUNT(*) DESC, structure`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Structure string `json:"structure"`
				Count     int    `json:"count"`
			}
			if err := rows.Scan(&r.Structure, &r.Count); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "regions":
		rows, err := db.Query(`SELECT rx, rz, COUNT(*) FROM placements GROUP BY rx, rz ORDER BY rx, rz LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				RX    int `json:"rx"`
				RZ    int `json:"rz"`
				Count int `json:"count"`
			}
			if err := rows.Scan(&r.RX, &r.RZ, &r.Count); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "placements":
		query := `SELECT id, structure, x, y, z, cx, cz, created_at FROM placements`
		var qargs []any
		if s := strings.TrimSpace(*structure); s != "" {
			query += ` WHERE structure = ?`
			qargs = append(qargs, s)
		}
		query += ` ORDER BY seq DESC LIMIT ?`
		qargs = append(qargs, *limit)
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ID        string `json:"id"`
				Structure string `json:"structure"`
				X         int    `json:"x"`
				Y         int    `json:"y"`
				Z         int    `json:"z"`
				CX        int    `json:"cx"`
				CZ        int    `json:"cz"`
				CreatedAt string `json:"created_at"`
			}
			if err := rows.Scan(&r.ID, &r.Structure, &r.X, &r.Y, &r.Z, &r.CX, &r.CZ, &r.CreatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(structures|regions|placements)")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
