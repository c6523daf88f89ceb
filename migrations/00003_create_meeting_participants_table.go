package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateMeetingParticipantsTable, downCreateMeetingParticipantsTable)
}

func upCreateMeetingParticipantsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE meeting_participants (
	  meeting_id UUID NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	  email TEXT NOT NULL,
	  PRIMARY KEY (meeting_id, email)
	);

	CREATE INDEX idx_meeting_participants_email ON meeting_participants (lower(email));
	`

	_, err := tx.ExecContext(ctx, query)

	if err != nil {
		return err
	}

	return nil
}

func downCreateMeetingParticipantsTable(ctx context.Context, tx *sql.Tx) error {
	query := `DROP TABLE IF EXISTS meeting_participants;`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}
	return nil
}
