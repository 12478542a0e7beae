package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pulseplan/pulseplan/internal/models"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string
	db   *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{
		path: ExpandPath(path),
	}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS slots (
	id TEXT PRIMARY KEY,
	date TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	kind TEXT NOT NULL,
	platform TEXT NOT NULL,
	config TEXT NOT NULL,
	priority INTEGER NOT NULL,
	flexible INTEGER NOT NULL,
	status TEXT NOT NULL,
	result TEXT,
	log TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_slots_date ON slots(date, start_time);
CREATE TABLE IF NOT EXISTS schedules (
	date TEXT PRIMARY KEY,
	focus TEXT NOT NULL,
	goals TEXT NOT NULL,
	targets TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS templates (
	name TEXT PRIMARY KEY,
	active INTEGER NOT NULL,
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS rules (
	id TEXT PRIMARY KEY,
	priority INTEGER NOT NULL,
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS analyses (
	date TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
`

func (s *SQLiteStore) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// Initialize default settings if not present
	if _, err := s.GetSettings(); err != nil {
		if err := s.SaveSettings(DefaultSettings()); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'pulseplan init' first")
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) GetConfigPath() string {
	return s.path
}

// Settings

func (s *SQLiteStore) GetSettings() (models.Settings, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM settings WHERE id = 1").Scan(&data)
	if err == sql.ErrNoRows {
		return models.Settings{}, ErrNotFound
	}
	if err != nil {
		return models.Settings{}, err
	}
	var settings models.Settings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return models.Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

func (s *SQLiteStore) SaveSettings(settings models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		"INSERT INTO settings (id, data) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET data = excluded.data",
		string(data),
	)
	return err
}

// Slots

func (s *SQLiteStore) SaveSlot(slot models.ScheduleSlot) error {
	config, err := json.Marshal(slot.Config)
	if err != nil {
		return err
	}
	logData, err := json.Marshal(slot.Log)
	if err != nil {
		return err
	}
	var result sql.NullString
	if slot.Result != nil {
		data, err := json.Marshal(slot.Result)
		if err != nil {
			return err
		}
		result = sql.NullString{String: string(data), Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO slots (id, date, start_time, end_time, kind, platform, config, priority, flexible, status, result, log, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			kind = excluded.kind,
			platform = excluded.platform,
			config = excluded.config,
			priority = excluded.priority,
			flexible = excluded.flexible,
			status = excluded.status,
			result = excluded.result,
			log = excluded.log,
			updated_at = excluded.updated_at`,
		slot.ID, slot.Date, slot.Start, slot.End, string(slot.Kind), string(slot.Platform),
		string(config), slot.Priority, boolToInt(slot.Flexible), string(slot.Status),
		result, string(logData), slot.CreatedAt, slot.UpdatedAt,
	)
	return err
}

func (s *SQLiteStore) GetSlot(id string) (models.ScheduleSlot, error) {
	row := s.db.QueryRow(`
		SELECT id, date, start_time, end_time, kind, platform, config, priority, flexible, status, result, log, created_at, updated_at
		FROM slots WHERE id = ?`, id)
	return scanSlot(row)
}

func (s *SQLiteStore) GetSlotsForDate(date string) ([]models.ScheduleSlot, error) {
	rows, err := s.db.Query(`
		SELECT id, date, start_time, end_time, kind, platform, config, priority, flexible, status, result, log, created_at, updated_at
		FROM slots WHERE date = ? ORDER BY start_time`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []models.ScheduleSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *SQLiteStore) DeleteSlot(id string) error {
	_, err := s.db.Exec("DELETE FROM slots WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) DeleteSlotsForDate(date string) error {
	_, err := s.db.Exec("DELETE FROM slots WHERE date = ?", date)
	return err
}

func (s *SQLiteStore) DeleteSlotsForPlatform(date string, platform models.Platform) error {
	_, err := s.db.Exec("DELETE FROM slots WHERE date = ? AND platform = ?", date, string(platform))
	return err
}

func (s *SQLiteStore) UpdateSlotStatus(id string, status models.SlotStatus, result *models.ActivityResult, entry models.LogEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var logData string
	err = tx.QueryRow("SELECT log FROM slots WHERE id = ?", id).Scan(&logData)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var entries []models.LogEntry
	if err := json.Unmarshal([]byte(logData), &entries); err != nil {
		return fmt.Errorf("failed to decode slot log: %w", err)
	}
	entries = append(entries, entry)
	newLog, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	var resultData sql.NullString
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		resultData = sql.NullString{String: string(data), Valid: true}
	}

	if resultData.Valid {
		_, err = tx.Exec(
			"UPDATE slots SET status = ?, result = ?, log = ?, updated_at = ? WHERE id = ?",
			string(status), resultData, string(newLog), time.Now().Format(time.RFC3339), id,
		)
	} else {
		_, err = tx.Exec(
			"UPDATE slots SET status = ?, log = ?, updated_at = ? WHERE id = ?",
			string(status), string(newLog), time.Now().Format(time.RFC3339), id,
		)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Schedules

func (s *SQLiteStore) SaveSchedule(schedule models.DailySchedule) error {
	goals, err := json.Marshal(schedule.DailyGoals)
	if err != nil {
		return err
	}
	targets, err := json.Marshal(schedule.Targets)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO schedules (date, focus, goals, targets, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			focus = excluded.focus,
			goals = excluded.goals,
			targets = excluded.targets,
			updated_at = excluded.updated_at`,
		schedule.Date, schedule.Focus, string(goals), string(targets),
		schedule.CreatedAt, schedule.UpdatedAt,
	)
	return err
}

func (s *SQLiteStore) GetSchedule(date string) (models.DailySchedule, error) {
	var schedule models.DailySchedule
	var goals, targets string
	err := s.db.QueryRow(
		"SELECT date, focus, goals, targets, created_at, updated_at FROM schedules WHERE date = ?", date,
	).Scan(&schedule.Date, &schedule.Focus, &goals, &targets, &schedule.CreatedAt, &schedule.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.DailySchedule{}, ErrNotFound
	}
	if err != nil {
		return models.DailySchedule{}, err
	}
	if err := json.Unmarshal([]byte(goals), &schedule.DailyGoals); err != nil {
		return models.DailySchedule{}, fmt.Errorf("failed to decode schedule goals: %w", err)
	}
	if err := json.Unmarshal([]byte(targets), &schedule.Targets); err != nil {
		return models.DailySchedule{}, fmt.Errorf("failed to decode schedule targets: %w", err)
	}

	slots, err := s.GetSlotsForDate(date)
	if err != nil {
		return models.DailySchedule{}, err
	}
	schedule.Slots = slots
	return schedule, nil
}

func (s *SQLiteStore) DeleteSchedule(date string) error {
	_, err := s.db.Exec("DELETE FROM schedules WHERE date = ?", date)
	return err
}

// Strategy templates

func (s *SQLiteStore) GetActiveTemplate() (models.StrategyTemplate, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM templates WHERE active = 1 LIMIT 1").Scan(&data)
	if err == sql.ErrNoRows {
		return models.StrategyTemplate{}, ErrNotFound
	}
	if err != nil {
		return models.StrategyTemplate{}, err
	}
	return decodeTemplate(data)
}

func (s *SQLiteStore) GetTemplate(name string) (models.StrategyTemplate, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM templates WHERE name = ?", name).Scan(&data)
	if err == sql.ErrNoRows {
		return models.StrategyTemplate{}, ErrNotFound
	}
	if err != nil {
		return models.StrategyTemplate{}, err
	}
	return decodeTemplate(data)
}

func (s *SQLiteStore) SaveTemplate(tpl models.StrategyTemplate) error {
	data, err := json.Marshal(tpl)
	if err != nil {
		return err
	}

	// Single transaction keeps the "exactly one active template" invariant
	// and makes the whole-template write atomic for concurrent readers.
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if tpl.Active {
		if _, err := tx.Exec("UPDATE templates SET active = 0 WHERE name != ?", tpl.Name); err != nil {
			return err
		}
	}
	_, err = tx.Exec(`
		INSERT INTO templates (name, active, data) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET active = excluded.active, data = excluded.data`,
		tpl.Name, boolToInt(tpl.Active), string(data),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Optimization rules

func (s *SQLiteStore) GetRules() ([]models.OptimizationRule, error) {
	rows, err := s.db.Query("SELECT data FROM rules ORDER BY priority")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.OptimizationRule
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rule models.OptimizationRule
		if err := json.Unmarshal([]byte(data), &rule); err != nil {
			return nil, fmt.Errorf("failed to decode rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (s *SQLiteStore) SaveRule(rule models.OptimizationRule) error {
	data, err := json.Marshal(rule)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO rules (id, priority, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET priority = excluded.priority, data = excluded.data`,
		rule.ID, rule.Priority, string(data),
	)
	return err
}

// Performance analyses

func (s *SQLiteStore) SaveAnalysis(analysis models.PerformanceAnalysis) error {
	var exists int
	err := s.db.QueryRow("SELECT COUNT(*) FROM analyses WHERE date = ?", analysis.Date).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrAnalysisExists
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("INSERT INTO analyses (date, data) VALUES (?, ?)", analysis.Date, string(data))
	return err
}

func (s *SQLiteStore) GetAnalysis(date string) (models.PerformanceAnalysis, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM analyses WHERE date = ?", date).Scan(&data)
	if err == sql.ErrNoRows {
		return models.PerformanceAnalysis{}, ErrNotFound
	}
	if err != nil {
		return models.PerformanceAnalysis{}, err
	}
	var analysis models.PerformanceAnalysis
	if err := json.Unmarshal([]byte(data), &analysis); err != nil {
		return models.PerformanceAnalysis{}, fmt.Errorf("failed to decode analysis: %w", err)
	}
	return analysis, nil
}

func (s *SQLiteStore) GetAnalysesRange(fromDate, toDate string) ([]models.PerformanceAnalysis, error) {
	rows, err := s.db.Query(
		"SELECT data FROM analyses WHERE date >= ? AND date <= ? ORDER BY date", fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []models.PerformanceAnalysis
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var analysis models.PerformanceAnalysis
		if err := json.Unmarshal([]byte(data), &analysis); err != nil {
			return nil, fmt.Errorf("failed to decode analysis: %w", err)
		}
		analyses = append(analyses, analysis)
	}
	return analyses, rows.Err()
}

// helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (models.ScheduleSlot, error) {
	var slot models.ScheduleSlot
	var kind, platform, config, logData string
	var flexible int
	var status string
	var result sql.NullString

	err := row.Scan(&slot.ID, &slot.Date, &slot.Start, &slot.End, &kind, &platform,
		&config, &slot.Priority, &flexible, &status, &result, &logData,
		&slot.CreatedAt, &slot.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.ScheduleSlot{}, ErrNotFound
	}
	if err != nil {
		return models.ScheduleSlot{}, err
	}

	slot.Kind = models.ActivityKind(kind)
	slot.Platform = models.Platform(platform)
	slot.Flexible = flexible != 0
	slot.Status = models.SlotStatus(status)
	if err := json.Unmarshal([]byte(config), &slot.Config); err != nil {
		return models.ScheduleSlot{}, fmt.Errorf("failed to decode slot config: %w", err)
	}
	if err := json.Unmarshal([]byte(logData), &slot.Log); err != nil {
		return models.ScheduleSlot{}, fmt.Errorf("failed to decode slot log: %w", err)
	}
	if result.Valid {
		var r models.ActivityResult
		if err := json.Unmarshal([]byte(result.String), &r); err != nil {
			return models.ScheduleSlot{}, fmt.Errorf("failed to decode slot result: %w", err)
		}
		slot.Result = &r
	}
	return slot, nil
}

func decodeTemplate(data string) (models.StrategyTemplate, error) {
	var tpl models.StrategyTemplate
	if err := json.Unmarshal([]byte(data), &tpl); err != nil {
		return models.StrategyTemplate{}, fmt.Errorf("failed to decode template: %w", err)
	}
	return tpl, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
