package usecase

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/matchwatch/livealert/internal/platform/logging"
)

// ExportRow is one alert's lifecycle in the export spreadsheet. Rows are
// keyed by alert id so follow-up writes update in place.
type ExportRow struct {
	AlertID    int64
	RuleName   string
	League     string
	HomeTeam   string
	AwayTeam   string
	ScoreAtHit string
	MinuteHit  string
	Status     string
	Reversed   bool
	ResultTime string
	FinalScore string
	CreatedAt  string
}

var exportHeader = []string{
	"alert_id", "rule", "league", "home", "away",
	"score_at_hit", "minute_hit", "status", "reversed",
	"result_time", "final_score", "created_at",
}

// CSVExporter keeps a per-day spreadsheet of alerts on local disk. Every
// upsert rewrites the file; alert volume is tens of rows per day, so the
// simplicity beats an append log that would need compaction.
type CSVExporter struct {
	dir    string
	name   string
	logger *logging.Logger
	mu     sync.Mutex
}

func NewCSVExporter(dir, name string, logger *logging.Logger) *CSVExporter {
	if logger == nil {
		logger = logging.Default()
	}
	if name == "" {
		name = "alerts.csv"
	}
	return &CSVExporter{dir: dir, name: name, logger: logger}
}

func (e *CSVExporter) Path() string {
	return filepath.Join(e.dir, e.name)
}

// UpsertAlert replaces the row with the same alert id, or appends one.
func (e *CSVExporter) UpsertAlert(row ExportRow) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := e.readRows()
	if err != nil {
		return err
	}

	record := encodeExportRow(row)
	replaced := false
	for i, existing := range rows {
		if len(existing) > 0 && existing[0] == record[0] {
			rows[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		rows = append(rows, record)
	}

	return e.writeRows(rows)
}

func (e *CSVExporter) readRows() ([][]string, error) {
	f, err := os.Open(e.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, crerr.Wrap(err, "open export file")
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, crerr.Wrap(err, "read export file")
	}
	if len(all) > 0 {
		all = all[1:] // header
	}
	return all, nil
}

func (e *CSVExporter) writeRows(rows [][]string) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return crerr.Wrap(err, "create export dir")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	writer := csv.NewWriter(buf)
	if err := writer.Write(exportHeader); err != nil {
		return crerr.Wrap(err, "write export header")
	}
	if err := writer.WriteAll(rows); err != nil {
		return crerr.Wrap(err, "write export rows")
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return crerr.Wrap(err, "flush export rows")
	}

	tmp := e.Path() + ".tmp"
	if err := os.WriteFile(tmp, buf.B, 0o644); err != nil {
		return crerr.Wrap(err, "write export temp file")
	}
	if err := os.Rename(tmp, e.Path()); err != nil {
		return crerr.Wrap(err, "replace export file")
	}
	return nil
}

func encodeExportRow(row ExportRow) []string {
	return []string{
		strconv.FormatInt(row.AlertID, 10),
		row.RuleName,
		row.League,
		row.HomeTeam,
		row.AwayTeam,
		row.ScoreAtHit,
		row.MinuteHit,
		row.Status,
		strconv.FormatBool(row.Reversed),
		row.ResultTime,
		row.FinalScore,
		row.CreatedAt,
	}
}
