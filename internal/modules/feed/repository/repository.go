package repository

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ushasricpu/paper/internal/db"
	"github.com/Ushasricpu/paper/internal/modules/feed/types"
	"github.com/Ushasricpu/paper/internal/telemetry"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-readings.sql
var getReadingsSQL string

// ErrDuplicate is returned by InsertReading when (bus_no, ts) already exists.
var ErrDuplicate = errors.New("duplicate reading")

type ReadingRepository interface {
	GetReadings(q types.Query) ([]telemetry.Reading, error)
	InsertReading(t telemetry.Telemetry) error
}

type repositoryImpl struct {
	db          *sql.DB
	insertSQL   string
	readingsSQL string
}

func NewRepository(conn *sql.DB, dialect db.Dialect) ReadingRepository {
	return &repositoryImpl{
		db:          conn,
		insertSQL:   dialect.Rebind(insertReadingSQL),
		readingsSQL: dialect.Rebind(getReadingsSQL),
	}
}

func (r *repositoryImpl) GetReadings(q types.Query) ([]telemetry.Reading, error) {
	rows, err := r.db.Query(r.readingsSQL,
		q.StartDate, q.StartDate,
		q.EndDate, q.EndDate,
		q.StartTime, q.StartTime,
		q.EndTime, q.EndTime,
		q.BusNo, q.BusNo,
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()

	out := []telemetry.Reading{}
	for rows.Next() {
		var rec telemetry.Reading
		var lat, lng, temp sql.NullFloat64
		if err := rows.Scan(&rec.BusNo, &rec.Datestamp, &rec.Timestamp, &lat, &lng, &temp); err != nil {
			return nil, err
		}
		rec.Latitude = nullableFloat(lat)
		rec.Longitude = nullableFloat(lng)
		rec.Temperature = nullableFloat(temp)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InsertReading stores t keyed by (bus_no, ts). The datestamp and time of day
// are taken from the timestamp's own offset, i.e. the bus's wall clock.
func (r *repositoryImpl) InsertReading(t telemetry.Telemetry) error {
	if t.BusNo == "" {
		return errors.New("bus_no is required")
	}
	if t.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}

	res, err := r.db.Exec(r.insertSQL,
		t.BusNo,
		t.Timestamp.UTC().Format(time.RFC3339Nano),
		t.Timestamp.Format(telemetry.DateLayout),
		t.Timestamp.Format(telemetry.TimeLayout),
		floatOrNil(t.Latitude),
		floatOrNil(t.Longitude),
		floatOrNil(t.Temperature),
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
