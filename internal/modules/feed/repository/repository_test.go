package repository

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ushasricpu/paper/internal/db"
	"github.com/Ushasricpu/paper/internal/migrate"
	"github.com/Ushasricpu/paper/internal/modules/feed/types"
	"github.com/Ushasricpu/paper/internal/telemetry"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if closeErr := conn.Close(); closeErr != nil {
			t.Errorf("close db: %v", closeErr)
		}
	})
	if err := migrate.Run(conn, db.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func f64(v float64) *float64 { return &v }

func tele(bus string, ts time.Time, lat, lng, temp float64) telemetry.Telemetry {
	return telemetry.Telemetry{BusNo: bus, Timestamp: ts, Latitude: f64(lat), Longitude: f64(lng), Temperature: f64(temp)}
}

func seed(t *testing.T, repo ReadingRepository) {
	t.Helper()
	ist := time.FixedZone("IST", 5*3600+1800)
	rows := []telemetry.Telemetry{
		tele("bus2", time.Date(2024, 7, 1, 9, 0, 0, 0, ist), 17.40, 78.40, 31),
		tele("bus1", time.Date(2024, 7, 1, 9, 0, 0, 0, ist), 17.39, 78.41, 30),
		tele("bus1", time.Date(2024, 7, 1, 14, 30, 0, 0, ist), 17.38, 78.42, 35.5),
		tele("bus1", time.Date(2024, 7, 2, 8, 15, 0, 0, ist), 17.37, 78.43, 28),
		tele("bus3", time.Date(2024, 7, 3, 23, 59, 59, 0, ist), 17.36, 78.44, 26),
	}
	for _, r := range rows {
		if err := repo.InsertReading(r); err != nil {
			t.Fatalf("InsertReading(%s, %s): %v", r.BusNo, r.Timestamp, err)
		}
	}
}

func TestGetReadings_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t), db.DriverSQLite)

	readings, err := repo.GetReadings(types.Query{})
	if err != nil {
		t.Fatalf("GetReadings: %v", err)
	}
	if readings == nil || len(readings) != 0 {
		t.Fatalf("GetReadings: got %v, want empty non-nil slice", readings)
	}
}

func TestGetReadings_OrderedByDateTimeBus(t *testing.T) {
	repo := NewRepository(setupTestDB(t), db.DriverSQLite)
	seed(t, repo)

	readings, err := repo.GetReadings(types.Query{})
	if err != nil {
		t.Fatalf("GetReadings: %v", err)
	}
	want := []struct{ bus, date, tod string }{
		{"bus1", "2024-07-01", "09:00:00"},
		{"bus2", "2024-07-01", "09:00:00"},
		{"bus1", "2024-07-01", "14:30:00"},
		{"bus1", "2024-07-02", "08:15:00"},
		{"bus3", "2024-07-03", "23:59:59"},
	}
	if len(readings) != len(want) {
		t.Fatalf("GetReadings: got %d readings, want %d", len(readings), len(want))
	}
	for i, w := range want {
		r := readings[i]
		if r.BusNo != w.bus || r.Datestamp != w.date || r.Timestamp != w.tod {
			t.Errorf("reading[%d] = %s %s %s; want %s %s %s", i, r.BusNo, r.Datestamp, r.Timestamp, w.bus, w.date, w.tod)
		}
	}
	if readings[2].Temperature == nil || *readings[2].Temperature != 35.5 {
		t.Errorf("reading[2].Temperature = %v; want 35.5", readings[2].Temperature)
	}
}

func TestGetReadings_Filters(t *testing.T) {
	repo := NewRepository(setupTestDB(t), db.DriverSQLite)
	seed(t, repo)

	tests := []struct {
		name string
		q    types.Query
		want int
	}{
		{"start date", types.Query{StartDate: "2024-07-02"}, 2},
		{"end date", types.Query{EndDate: "2024-07-01"}, 3},
		{"date range", types.Query{StartDate: "2024-07-02", EndDate: "2024-07-02"}, 1},
		{"start time", types.Query{StartTime: "09:00:00"}, 4},
		{"end time", types.Query{EndTime: "09:00:00"}, 3},
		{"time window", types.Query{StartTime: "09:00:01", EndTime: "15:00:00"}, 1},
		{"bus", types.Query{BusNo: "bus1"}, 3},
		{"bus and date", types.Query{BusNo: "bus1", StartDate: "2024-07-02"}, 1},
		{"unknown bus", types.Query{BusNo: "bus9"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readings, err := repo.GetReadings(tt.q)
			if err != nil {
				t.Fatalf("GetReadings: %v", err)
			}
			if len(readings) != tt.want {
				t.Errorf("GetReadings(%+v): got %d readings, want %d", tt.q, len(readings), tt.want)
			}
		})
	}
}

func TestGetReadings_NullValues(t *testing.T) {
	repo := NewRepository(setupTestDB(t), db.DriverSQLite)
	err := repo.InsertReading(telemetry.Telemetry{
		BusNo:     "bus1",
		Timestamp: time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC),
		Latitude:  f64(17.1),
	})
	if err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	readings, err := repo.GetReadings(types.Query{})
	if err != nil {
		t.Fatalf("GetReadings: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("GetReadings: got %d readings, want 1", len(readings))
	}
	r := readings[0]
	if r.Latitude == nil || *r.Latitude != 17.1 {
		t.Errorf("Latitude = %v; want 17.1", r.Latitude)
	}
	if r.Longitude != nil || r.Temperature != nil {
		t.Errorf("Longitude = %v, Temperature = %v; want nil, nil", r.Longitude, r.Temperature)
	}
}

func TestInsertReading_Duplicate(t *testing.T) {
	repo := NewRepository(setupTestDB(t), db.DriverSQLite)
	ts := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.InsertReading(tele("bus1", ts, 1, 1, 20)); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}
	// Same instant in another zone is the same key.
	err := repo.InsertReading(tele("bus1", ts.In(time.FixedZone("X", 3600)), 2, 2, 21))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second InsertReading err = %v; want ErrDuplicate", err)
	}

	readings, _ := repo.GetReadings(types.Query{})
	if len(readings) != 1 || *readings[0].Temperature != 20 {
		t.Errorf("readings = %+v; want the first insert only", readings)
	}
}

func TestInsertReading_RequiredFields(t *testing.T) {
	repo := NewRepository(setupTestDB(t), db.DriverSQLite)

	if err := repo.InsertReading(telemetry.Telemetry{Timestamp: time.Now()}); err == nil {
		t.Error("InsertReading without bus_no: expected error")
	}
	if err := repo.InsertReading(telemetry.Telemetry{BusNo: "bus1"}); err == nil {
		t.Error("InsertReading without timestamp: expected error")
	}
}

func TestNewRepository_RebindsForPostgres(t *testing.T) {
	r := NewRepository(nil, db.DriverPostgres).(*repositoryImpl)
	if want := "VALUES ($1, $2, $3, $4, $5, $6, $7)"; !strings.Contains(r.insertSQL, want) {
		t.Errorf("insertSQL = %q; want it to contain %q", r.insertSQL, want)
	}
	if !strings.Contains(r.readingsSQL, "$10") {
		t.Errorf("readingsSQL = %q; want ten numbered placeholders", r.readingsSQL)
	}
}

var _ ReadingRepository = (*repositoryImpl)(nil)
