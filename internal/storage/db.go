package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cptspacemanspiff/device-monitor/internal/monitor"
)

const schema = `
CREATE TABLE IF NOT EXISTS metric_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	cpu_pct REAL NOT NULL,
	mem_pct REAL NOT NULL,
	mem_used_kb INTEGER NOT NULL,
	mem_total_kb INTEGER NOT NULL,
	rx_bps REAL NOT NULL,
	tx_bps REAL NOT NULL,
	disk_pct REAL NOT NULL,
	disk_used_kb INTEGER NOT NULL,
	disk_total_kb INTEGER NOT NULL,
	stale TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_metric_ts ON metric_samples(timestamp);

CREATE TABLE IF NOT EXISTS process_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	pid INTEGER NOT NULL,
	user TEXT NOT NULL,
	name TEXT NOT NULL,
	cpu_pct REAL NOT NULL,
	mem_pct REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_process_ts ON process_samples(timestamp);

CREATE TABLE IF NOT EXISTS terminate_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	task_id TEXT NOT NULL,
	pid INTEGER NOT NULL,
	force INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_terminate_ts ON terminate_events(timestamp);
`

// MetricSample is one persisted snapshot of the scalar metrics.
type MetricSample struct {
	Timestamp     int64   `json:"timestamp"`
	CPUPercent    float64 `json:"cpu_pct"`
	MemPercent    float64 `json:"mem_pct"`
	MemUsedKB     int64   `json:"mem_used_kb"`
	MemTotalKB    int64   `json:"mem_total_kb"`
	RxBytesPerSec float64 `json:"rx_bps"`
	TxBytesPerSec float64 `json:"tx_bps"`
	DiskPercent   float64 `json:"disk_pct"`
	DiskUsedKB    int64   `json:"disk_used_kb"`
	DiskTotalKB   int64   `json:"disk_total_kb"`
	// Stale lists the metrics, comma separated, whose values were carried
	// over from an earlier cycle.
	Stale string `json:"stale,omitempty"`
}

// ProcessSample is one process row recorded alongside a metric sample.
type ProcessSample struct {
	Timestamp  int64   `json:"timestamp"`
	PID        int     `json:"pid"`
	User       string  `json:"user"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_pct"`
	MemPercent float64 `json:"mem_pct"`
}

// TerminateEvent records one termination request and its outcome.
type TerminateEvent struct {
	Timestamp int64  `json:"timestamp"`
	TaskID    string `json:"task_id"`
	PID       int    `json:"pid"`
	Force     bool   `json:"force"`
	Err       string `json:"error,omitempty"`
}

// DB wraps a SQLite database for device monitor data.
type DB struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// FromSnapshot converts snap into rows, keeping at most topN processes.
func FromSnapshot(snap *monitor.Snapshot, topN int) (MetricSample, []ProcessSample) {
	ts := snap.CapturedAt.Unix()
	var stale []byte
	for _, m := range monitor.Metrics {
		if snap.Status[m].Stale() {
			if len(stale) > 0 {
				stale = append(stale, ',')
			}
			stale = append(stale, m...)
		}
	}
	sample := MetricSample{
		Timestamp:     ts,
		CPUPercent:    snap.CPUPercent,
		MemPercent:    snap.MemPercent,
		MemUsedKB:     int64(snap.MemUsedKB),
		MemTotalKB:    int64(snap.MemTotalKB),
		RxBytesPerSec: snap.RxBytesPerSec,
		TxBytesPerSec: snap.TxBytesPerSec,
		DiskPercent:   snap.DiskPercent,
		DiskUsedKB:    int64(snap.DiskUsedKB),
		DiskTotalKB:   int64(snap.DiskTotalKB),
		Stale:         string(stale),
	}

	procs := snap.Processes
	if topN > 0 && len(procs) > topN {
		procs = procs[:topN]
	}
	rows := make([]ProcessSample, 0, len(procs))
	for _, p := range procs {
		rows = append(rows, ProcessSample{
			Timestamp:  ts,
			PID:        p.PID,
			User:       p.User,
			Name:       p.Name,
			CPUPercent: p.CPUPercent,
			MemPercent: p.MemPercent,
		})
	}
	return sample, rows
}

// InsertMetricSample inserts a metric sample.
func (d *DB) InsertMetricSample(s MetricSample) error {
	_, err := d.db.Exec(
		`INSERT INTO metric_samples (timestamp, cpu_pct, mem_pct, mem_used_kb, mem_total_kb, rx_bps, tx_bps, disk_pct, disk_used_kb, disk_total_kb, stale)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Timestamp, s.CPUPercent, s.MemPercent, s.MemUsedKB, s.MemTotalKB, s.RxBytesPerSec, s.TxBytesPerSec,
		s.DiskPercent, s.DiskUsedKB, s.DiskTotalKB, s.Stale,
	)
	return err
}

const metricColumns = "timestamp, cpu_pct, mem_pct, mem_used_kb, mem_total_kb, rx_bps, tx_bps, disk_pct, disk_used_kb, disk_total_kb, stale"

type scanner interface {
	Scan(dest ...any) error
}

func scanMetric(row scanner) (MetricSample, error) {
	var s MetricSample
	err := row.Scan(&s.Timestamp, &s.CPUPercent, &s.MemPercent, &s.MemUsedKB, &s.MemTotalKB,
		&s.RxBytesPerSec, &s.TxBytesPerSec, &s.DiskPercent, &s.DiskUsedKB, &s.DiskTotalKB, &s.Stale)
	return s, err
}

// LatestMetricSample returns the most recent metric sample, or nil if none.
func (d *DB) LatestMetricSample() (*MetricSample, error) {
	row := d.db.QueryRow("SELECT " + metricColumns + " FROM metric_samples ORDER BY timestamp DESC, id DESC LIMIT 1")
	s, err := scanMetric(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// MetricSamplesInRange returns metric samples within the given time range.
func (d *DB) MetricSamplesInRange(from, to int64) ([]MetricSample, error) {
	rows, err := d.db.Query(
		"SELECT "+metricColumns+" FROM metric_samples WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp, id",
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var samples []MetricSample
	for rows.Next() {
		s, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// InsertProcessSamples batch-inserts process samples in a single transaction.
func (d *DB) InsertProcessSamples(samples []ProcessSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO process_samples (timestamp, pid, user, name, cpu_pct, mem_pct) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, s := range samples {
		if _, err := stmt.Exec(s.Timestamp, s.PID, s.User, s.Name, s.CPUPercent, s.MemPercent); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ProcessSamplesInRange returns process samples within the given time range,
// highest CPU first within each timestamp.
func (d *DB) ProcessSamplesInRange(from, to int64) ([]ProcessSample, error) {
	rows, err := d.db.Query(
		"SELECT timestamp, pid, user, name, cpu_pct, mem_pct FROM process_samples WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp, cpu_pct DESC, id",
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var samples []ProcessSample
	for rows.Next() {
		var s ProcessSample
		if err := rows.Scan(&s.Timestamp, &s.PID, &s.User, &s.Name, &s.CPUPercent, &s.MemPercent); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// InsertTerminateEvent records a finished termination request.
func (d *DB) InsertTerminateEvent(e TerminateEvent) error {
	force := 0
	if e.Force {
		force = 1
	}
	_, err := d.db.Exec(
		"INSERT INTO terminate_events (timestamp, task_id, pid, force, error) VALUES (?, ?, ?, ?, ?)",
		e.Timestamp, e.TaskID, e.PID, force, e.Err,
	)
	return err
}

// TerminateEventsInRange returns termination requests within the given time range.
func (d *DB) TerminateEventsInRange(from, to int64) ([]TerminateEvent, error) {
	rows, err := d.db.Query(
		"SELECT timestamp, task_id, pid, force, error FROM terminate_events WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp, id",
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []TerminateEvent
	for rows.Next() {
		var e TerminateEvent
		var force int
		if err := rows.Scan(&e.Timestamp, &e.TaskID, &e.PID, &force, &e.Err); err != nil {
			return nil, err
		}
		e.Force = force != 0
		events = append(events, e)
	}
	return events, rows.Err()
}
