package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name             TEXT        NOT NULL,
  is_active        BOOLEAN     NOT NULL DEFAULT TRUE,
  max_loans        INT         NOT NULL DEFAULT 5 CHECK (max_loans >= 0),
  max_reservations INT         NOT NULL DEFAULT 3 CHECK (max_reservations >= 0),
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id               UUID        NOT NULL DEFAULT uuid_generate_v4(),
  kind             TEXT        NOT NULL CHECK (kind IN ('book','thesis','memoir','stage_report')),
  title            TEXT        NOT NULL,
  author           TEXT        NOT NULL,
  total_copies     INT         NOT NULL CHECK (total_copies >= 1),
  available_copies INT         NOT NULL DEFAULT 0,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (id, kind)
);`,
	},
	{
		Name: "create_table_loans",
		SQL: `CREATE TABLE IF NOT EXISTS loans (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id       UUID        NOT NULL REFERENCES users (id),
  document_id   UUID        NOT NULL,
  document_kind TEXT        NOT NULL,
  loan_date     TIMESTAMPTZ NOT NULL,
  due_date      TIMESTAMPTZ NOT NULL,
  return_date   TIMESTAMPTZ,
  status        TEXT        NOT NULL CHECK (status IN ('active','overdue','returned')),
  FOREIGN KEY (document_id, document_kind) REFERENCES documents (id, kind)
);`,
	},
	{
		Name: "create_unique_index_loans_open_per_user_document",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_loans_open_user_document
  ON loans (user_id, document_id, document_kind)
  WHERE status IN ('active','overdue');`,
	},
	{
		Name: "create_index_loans_document_status",
		SQL: `CREATE INDEX IF NOT EXISTS idx_loans_document_status
  ON loans (document_id, document_kind, status);`,
	},
	{
		Name: "create_table_reservations",
		SQL: `CREATE TABLE IF NOT EXISTS reservations (
  id             UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id        UUID        NOT NULL REFERENCES users (id),
  document_id    UUID        NOT NULL,
  document_kind  TEXT        NOT NULL,
  priority_order INT         NOT NULL CHECK (priority_order >= 1),
  status         TEXT        NOT NULL CHECK (status IN ('active','fulfilled','expired','cancelled')),
  expiry_date    TIMESTAMPTZ NOT NULL,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  FOREIGN KEY (document_id, document_kind) REFERENCES documents (id, kind)
);`,
	},
	{
		Name: "create_unique_index_reservations_active_per_user_document",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_reservations_active_user_document
  ON reservations (user_id, document_id, document_kind)
  WHERE status = 'active';`,
	},
	{
		Name: "create_unique_index_reservations_active_priority_slot",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_reservations_active_priority
  ON reservations (document_id, document_kind, priority_order)
  WHERE status = 'active';`,
	},
	{
		Name: "create_table_consultations",
		SQL: `CREATE TABLE IF NOT EXISTS consultations (
  id                UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id           UUID        NOT NULL REFERENCES users (id),
  document_id       UUID        NOT NULL,
  document_kind     TEXT        NOT NULL,
  location          TEXT        NOT NULL,
  consultation_date DATE        NOT NULL,
  start_time        TIMESTAMPTZ NOT NULL,
  end_time          TIMESTAMPTZ,
  status            TEXT        NOT NULL CHECK (status IN ('active','completed','cancelled')),
  FOREIGN KEY (document_id, document_kind) REFERENCES documents (id, kind)
);`,
	},
	{
		Name: "create_unique_index_consultations_active_per_user_document",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_consultations_active_user_document
  ON consultations (user_id, document_id, document_kind)
  WHERE status = 'active';`,
	},
	{
		Name: "create_table_penalties",
		SQL: `CREATE TABLE IF NOT EXISTS penalties (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id      UUID        NOT NULL REFERENCES users (id),
  loan_id      UUID        REFERENCES loans (id),
  amount_cents BIGINT      NOT NULL CHECK (amount_cents >= 0),
  status       TEXT        NOT NULL CHECK (status IN ('unpaid','paid')),
  penalty_date TIMESTAMPTZ NOT NULL
);`,
	},
	{
		Name: "create_index_penalties_user_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_penalties_user_status ON penalties (user_id, status);`,
	},
}

// EnsureMigrated checks if the 'loans' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.loans') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
