package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/runnerr0/nclock/internal/stopwatch"
	"github.com/runnerr0/nclock/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string `json:"version"`
	DatabasePath      string `json:"database_path,omitempty"`
	DatabaseSizeBytes int64  `json:"database_size_bytes"`
	InMemory          bool   `json:"in_memory"`
	StoredKeys        int64  `json:"stored_keys"`
	TotalFirings      int64  `json:"total_firings"`
	LastFiring        string `json:"last_firing,omitempty"`
	RetentionDays     int    `json:"retention_days"`
	Mode              string `json:"mode"`
	Clock             string `json:"clock"`
	Alarms            int    `json:"alarms"`
	AlarmsEnabled     int    `json:"alarms_enabled"`
	Stopwatch         string `json:"stopwatch"`
	Laps              int    `json:"laps"`
	Language          string `json:"language"`
	ServeRunning      bool   `json:"serve_running"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	stats, err := e.store.Stats(ctx, e.cfg.Storage.KeyPrefix)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	w := e.widget
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      e.dbPath,
		DatabaseSizeBytes: getDatabaseSize(e.dbPath),
		InMemory:          e.dbPath == "",
		StoredKeys:        stats.TotalKeys,
		TotalFirings:      stats.TotalFirings,
		RetentionDays:     e.cfg.History.RetentionDays,
		Mode:              string(w.Mode()),
		Clock:             w.Transform().Label(),
		Alarms:            len(w.Alarms()),
		Stopwatch:         stopwatch.Format(w.Stopwatch().Elapsed()),
		Laps:              len(w.Stopwatch().Laps()),
		Language:          w.Language(),
		ServeRunning:      checkServe(e.cfg.Offline.Host, e.cfg.Offline.Port),
	}
	for _, a := range w.Alarms() {
		if a.Enabled {
			out.AlarmsEnabled++
		}
	}
	if stats.TotalFirings > 0 {
		out.LastFiring = stats.LastFiring.UTC().Format(time.RFC3339)
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(out)
	}
	return c.printStatusHuman(out, stats)
}

func (c *StatusCommand) printStatusHuman(out statusJSON, stats *storage.Stats) error {
	fmt.Println("nclock Status")
	fmt.Println("=============")
	fmt.Printf("Version:       %s\n", out.Version)
	if out.InMemory {
		fmt.Println("Database:      in memory (state is not persisted)")
	} else {
		fmt.Printf("Database:      %s (%s)\n", out.DatabasePath, formatBytes(out.DatabaseSizeBytes))
	}
	fmt.Printf("Stored keys:   %s\n", formatNumber(out.StoredKeys))
	fmt.Printf("Firings:       %s\n", formatNumber(out.TotalFirings))
	if stats.TotalFirings > 0 {
		fmt.Printf("Last firing:   %s\n", stats.LastFiring.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("Retention:     %d days\n", out.RetentionDays)

	fmt.Println()
	fmt.Printf("Mode:          %s\n", out.Mode)
	fmt.Printf("Clock:         %s\n", out.Clock)
	fmt.Printf("Alarms:        %d (%d enabled)\n", out.Alarms, out.AlarmsEnabled)
	fmt.Printf("Stopwatch:     %s (%d laps)\n", out.Stopwatch, out.Laps)
	fmt.Printf("Language:      %s\n", out.Language)

	fmt.Println()
	if out.ServeRunning {
		fmt.Println("Serve:         running")
	} else {
		fmt.Println("Serve:         not running")
	}
	return nil
}

// getDatabaseSize returns the database file size in bytes, or 0 when the
// file cannot be read.
func getDatabaseSize(dbPath string) int64 {
	if dbPath == "" {
		return 0
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return 0
	}
	return info.Size()
}

// checkServe reports whether the offline server answers within 1 second.
func checkServe(host string, port int) bool {
	if port <= 0 {
		return false
	}
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get("http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/manifest.json")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		if len(s) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
