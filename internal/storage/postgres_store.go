package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/pulseplan/pulseplan/internal/models"
)

// PostgresStore backs a multi-host deployment where the schedule owner's
// store must outlive any single machine. Connection strings must not embed
// credentials; see HasEmbeddedCredentials.
type PostgresStore struct {
	connStr string
	db      *sql.DB
}

func NewPostgresStore(connStr string) *PostgresStore {
	return &PostgresStore{
		connStr: connStr,
	}
}

const postgresSchema = `
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

func (s *PostgresStore) Init() error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := s.db.Exec(postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := s.GetSettings(); err != nil {
		if err := s.SaveSettings(DefaultSettings()); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) Load() error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresStore) GetConfigPath() string {
	return s.connStr
}

// Settings

func (s *PostgresStore) GetSettings() (models.Settings, error) {
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

func (s *PostgresStore) SaveSettings(settings models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		"INSERT INTO settings (id, data) VALUES (1, $1) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data",
		string(data),
	)
	return err
}

// Slots

func (s *PostgresStore) SaveSlot(slot models.ScheduleSlot) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			kind = EXCLUDED.kind,
			platform = EXCLUDED.platform,
			config = EXCLUDED.config,
			priority = EXCLUDED.priority,
			flexible = EXCLUDED.flexible,
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			log = EXCLUDED.log,
			updated_at = EXCLUDED.updated_at`,
		slot.ID, slot.Date, slot.Start, slot.End, string(slot.Kind), string(slot.Platform),
		string(config), slot.Priority, boolToInt(slot.Flexible), string(slot.Status),
		result, string(logData), slot.CreatedAt, slot.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetSlot(id string) (models.ScheduleSlot, error) {
	row := s.db.QueryRow(`
		SELECT id, date, start_time, end_time, kind, platform, config, priority, flexible, status, result, log, created_at, updated_at
		FROM slots WHERE id = $1`, id)
	return scanSlot(row)
}

func (s *PostgresStore) GetSlotsForDate(date string) ([]models.ScheduleSlot, error) {
	rows, err := s.db.Query(`
		SELECT id, date, start_time, end_time, kind, platform, config, priority, flexible, status, result, log, created_at, updated_at
		FROM slots WHERE date = $1 ORDER BY start_time`, date)
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

func (s *PostgresStore) DeleteSlot(id string) error {
	_, err := s.db.Exec("DELETE FROM slots WHERE id = $1", id)
	return err
}

func (s *PostgresStore) DeleteSlotsForDate(date string) error {
	_, err := s.db.Exec("DELETE FROM slots WHERE date = $1", date)
	return err
}

func (s *PostgresStore) DeleteSlotsForPlatform(date string, platform models.Platform) error {
	_, err := s.db.Exec("DELETE FROM slots WHERE date = $1 AND platform = $2", date, string(platform))
	return err
}

func (s *PostgresStore) UpdateSlotStatus(id string, status models.SlotStatus, result *models.ActivityResult, entry models.LogEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var logData string
	err = tx.QueryRow("SELECT log FROM slots WHERE id = $1 FOR UPDATE", id).Scan(&logData)
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
			"UPDATE slots SET status = $1, result = $2, log = $3, updated_at = $4 WHERE id = $5",
			string(status), resultData, string(newLog), time.Now().Format(time.RFC3339), id,
		)
	} else {
		_, err = tx.Exec(
			"UPDATE slots SET status = $1, log = $2, updated_at = $3 WHERE id = $4",
			string(status), string(newLog), time.Now().Format(time.RFC3339), id,
		)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Schedules

func (s *PostgresStore) SaveSchedule(schedule models.DailySchedule) error {
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
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (date) DO UPDATE SET
			focus = EXCLUDED.focus,
			goals = EXCLUDED.goals,
			targets = EXCLUDED.targets,
			updated_at = EXCLUDED.updated_at`,
		schedule.Date, schedule.Focus, string(goals), string(targets),
		schedule.CreatedAt, schedule.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetSchedule(date string) (models.DailySchedule, error) {
	var schedule models.DailySchedule
	var goals, targets string
	err := s.db.QueryRow(
		"SELECT date, focus, goals, targets, created_at, updated_at FROM schedules WHERE date = $1", date,
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

func (s *PostgresStore) DeleteSchedule(date string) error {
	_, err := s.db.Exec("DELETE FROM schedules WHERE date = $1", date)
	return err
}

// Strategy templates

func (s *PostgresStore) GetActiveTemplate() (models.StrategyTemplate, error) {
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

func (s *PostgresStore) GetTemplate(name string) (models.StrategyTemplate, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM templates WHERE name = $1", name).Scan(&data)
	if err == sql.ErrNoRows {
		return models.StrategyTemplate{}, ErrNotFound
	}
	if err != nil {
		return models.StrategyTemplate{}, err
	}
	return decodeTemplate(data)
}

func (s *PostgresStore) SaveTemplate(tpl models.StrategyTemplate) error {
	data, err := json.Marshal(tpl)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if tpl.Active {
		if _, err := tx.Exec("UPDATE templates SET active = 0 WHERE name != $1", tpl.Name); err != nil {
			return err
		}
	}
	_, err = tx.Exec(`
		INSERT INTO templates (name, active, data) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET active = EXCLUDED.active, data = EXCLUDED.data`,
		tpl.Name, boolToInt(tpl.Active), string(data),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Optimization rules

func (s *PostgresStore) GetRules() ([]models.OptimizationRule, error) {
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

func (s *PostgresStore) SaveRule(rule models.OptimizationRule) error {
	data, err := json.Marshal(rule)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO rules (id, priority, data) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET priority = EXCLUDED.priority, data = EXCLUDED.data`,
		rule.ID, rule.Priority, string(data),
	)
	return err
}

// Performance analyses

func (s *PostgresStore) SaveAnalysis(analysis models.PerformanceAnalysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		"INSERT INTO analyses (date, data) VALUES ($1, $2) ON CONFLICT (date) DO NOTHING",
		analysis.Date, string(data),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAnalysisExists
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(date string) (models.PerformanceAnalysis, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM analyses WHERE date = $1", date).Scan(&data)
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

func (s *PostgresStore) GetAnalysesRange(fromDate, toDate string) ([]models.PerformanceAnalysis, error) {
	rows, err := s.db.Query(
		"SELECT data FROM analyses WHERE date >= $1 AND date <= $2 ORDER BY date", fromDate, toDate)
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
