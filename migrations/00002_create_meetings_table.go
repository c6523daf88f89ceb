package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateMeetingsTable, downCreateMeetingsTable)
}

func upCreateMeetingsTable(ctx context.Context, tx *sql.Tx) error {
	// created_by carries no FK: a creator's profile row may be deleted
	// while their meetings stay visible to the remaining participants.
	query := `
	CREATE TABLE meetings (
	  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	  title TEXT NOT NULL,
	  description TEXT NOT NULL DEFAULT '',
	  date TEXT NOT NULL,
	  start_time TEXT NOT NULL,
	  end_time TEXT NOT NULL,
	  status TEXT NOT NULL DEFAULT 'scheduled' CHECK (status IN ('scheduled', 'canceled')),
	  created_by UUID NOT NULL,
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE INDEX idx_meetings_date ON meetings (date, start_time);
	`

	_, err := tx.ExecContext(ctx, query)

	if err != nil {
		return err
	}

	return nil
}

func downCreateMeetingsTable(ctx context.Context, tx *sql.Tx) error {
	query := `DROP TABLE IF EXISTS meetings;`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}
	return nil
}
