// Package postgres stores and loads vehicle positions in PostgreSQL.
package postgres

import (
	"context"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"vehiclefinder/internal/domain/entities"
)

const schema = `
CREATE TABLE IF NOT EXISTS vehicle_positions (
	id                   BIGSERIAL PRIMARY KEY,
	vehicle_id           INTEGER          NOT NULL,
	vehicle_registration TEXT             NOT NULL,
	latitude             DOUBLE PRECISION NOT NULL,
	longitude            DOUBLE PRECISION NOT NULL,
	recorded_time_utc    BIGINT           NOT NULL
)`

const selectPositions = `
SELECT vehicle_id, vehicle_registration, latitude, longitude, recorded_time_utc
FROM vehicle_positions
ORDER BY id`

const insertPosition = `
INSERT INTO vehicle_positions (vehicle_id, vehicle_registration, latitude, longitude, recorded_time_utc)
VALUES (:vehicle_id, :vehicle_registration, :latitude, :longitude, :recorded_time_utc)`

// insertBatchSize keeps each multi-row insert well below the 65535
// bind-parameter limit (5 parameters per row).
const insertBatchSize = 5000

// PositionRepository is a PositionSource backed by the vehicle_positions table.
type PositionRepository struct {
	db  *sqlx.DB
	dsn string
}

// Open connects to the database at dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*PositionRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect to postgres")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return &PositionRepository{db: db, dsn: dsn}, nil
}

func (r *PositionRepository) Close() error {
	return r.db.Close()
}

func (r *PositionRepository) Describe() string {
	return "postgres:" + RedactDSN(r.dsn)
}

// EnsureSchema creates the positions table if it does not exist.
func (r *PositionRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "create vehicle_positions")
}

// Load returns every stored position in insertion order.
func (r *PositionRepository) Load(ctx context.Context) ([]*entities.VehiclePosition, error) {
	var positions []*entities.VehiclePosition
	if err := r.db.SelectContext(ctx, &positions, selectPositions); err != nil {
		return nil, errors.Wrap(err, "select vehicle positions")
	}
	return positions, nil
}

// Insert appends positions in batches inside one transaction.
func (r *PositionRepository) Insert(ctx context.Context, positions []*entities.VehiclePosition) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin insert")
	}
	defer tx.Rollback()

	for start := 0; start < len(positions); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(positions) {
			end = len(positions)
		}
		if _, err := tx.NamedExecContext(ctx, insertPosition, positions[start:end]); err != nil {
			return errors.Wrapf(err, "insert positions %d-%d", start, end)
		}
	}
	return errors.Wrap(tx.Commit(), "commit insert")
}

// RedactDSN hides the password of a URL-style DSN. Key/value DSNs are not
// parsed and come back as a placeholder.
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "<dsn>"
	}
	return u.Redacted()
}
