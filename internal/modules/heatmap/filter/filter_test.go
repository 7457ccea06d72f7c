package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Ushasricpu/paper/internal/telemetry"
)

func rec(bus, date, ts string, temp float64) telemetry.Record {
	return telemetry.Record{BusNo: bus, Latitude: 17.1, Longitude: 78.1, Temperature: temp, Datestamp: date, Timestamp: ts}
}

func group(recs ...telemetry.Record) telemetry.Grouped {
	b := telemetry.NewBuilder()
	for _, r := range recs {
		b.Add(r)
	}
	return b.Grouped()
}

func temps(g telemetry.Grouped, bus string) []float64 {
	var out []float64
	for _, r := range g.Records(bus) {
		out = append(out, r.Temperature)
	}
	return out
}

func TestState_Set(t *testing.T) {
	s := State{BusNo: "bus1", StartTime: "10:00:00"}

	got, err := s.Set(FieldEndDate, "08-07-2024")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	want := State{BusNo: "bus1", StartTime: "10:00:00", EndDate: "08-07-2024"}
	if got != want {
		t.Errorf("Set() = %+v; want %+v", got, want)
	}
	if s.EndDate != "" {
		t.Error("Set modified the receiver")
	}
}

func TestState_SetEachField(t *testing.T) {
	for _, f := range Fields {
		t.Run(string(f), func(t *testing.T) {
			s, err := State{}.Set(f, "x")
			if err != nil {
				t.Fatalf("Set(%q): %v", f, err)
			}
			v, err := s.Get(f)
			if err != nil {
				t.Fatalf("Get(%q): %v", f, err)
			}
			if v != "x" {
				t.Errorf("Get(%q) = %q; want x", f, v)
			}
		})
	}
}

func TestState_SetUnknownField(t *testing.T) {
	s := State{BusNo: "bus1"}
	got, err := s.Set("route", "12")
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("Set(route) error = %v; want ErrUnknownField", err)
	}
	if got != s {
		t.Errorf("Set(route) changed state to %+v", got)
	}
	if _, err := s.Get("route"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Get(route) error = %v; want ErrUnknownField", err)
	}
}

func TestApply_NoFilters(t *testing.T) {
	g := group(rec("bus1", "01-07-2024", "10:00:00", 30))
	out := Apply(g, State{})
	if !reflect.DeepEqual(out, g) {
		t.Errorf("Apply(empty state) = %+v; want input unchanged", out)
	}
}

func TestApply_BusExactMatch(t *testing.T) {
	g := group(
		rec("bus1", "01-07-2024", "10:00:00", 30),
		rec("bus10", "01-07-2024", "10:00:00", 31),
		rec("bus2", "02-07-2024", "11:00:00", 32),
	)

	out := Apply(g, State{BusNo: "bus1"})

	if got := out.Buses(); !reflect.DeepEqual(got, []string{"bus1"}) {
		t.Errorf("Buses() = %v; want [bus1]", got)
	}

	none := Apply(g, State{BusNo: "bus"})
	if none.Len() != 0 {
		t.Errorf("partial bus id matched %v", none.Buses())
	}
}

func TestApply_BusIdempotent(t *testing.T) {
	g := group(
		rec("bus1", "01-07-2024", "10:00:00", 30),
		rec("bus2", "02-07-2024", "11:00:00", 32),
		rec("bus1", "03-07-2024", "12:00:00", 33),
	)
	s := State{BusNo: "bus1"}

	once := Apply(g, s)
	twice := Apply(once, s)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second application changed result:\nonce  = %+v\ntwice = %+v", once, twice)
	}
}

func TestApply_DateBoundsInclusive(t *testing.T) {
	g := group(
		rec("bus1", "30-06-2024", "10:00:00", 1),
		rec("bus1", "01-07-2024", "10:00:00", 2),
		rec("bus1", "02-07-2024", "10:00:00", 3),
		rec("bus1", "03-07-2024", "10:00:00", 4),
		rec("bus1", "04-07-2024", "10:00:00", 5),
	)

	out := Apply(g, State{StartDate: "01-07-2024", EndDate: "03-07-2024"})

	if got, want := temps(out, "bus1"), []float64{2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("temps = %v; want %v", got, want)
	}
}

func TestApply_DateMixedLayouts(t *testing.T) {
	g := group(
		rec("bus1", "2024-07-01", "10:00:00", 1),
		rec("bus1", "02-07-2024", "10:00:00", 2),
	)

	out := Apply(g, State{StartDate: "2024-07-02"})

	if got, want := temps(out, "bus1"), []float64{2}; !reflect.DeepEqual(got, want) {
		t.Errorf("temps = %v; want %v", got, want)
	}
}

func TestApply_DateUnsetBoundIsOpen(t *testing.T) {
	g := group(
		rec("bus1", "01-01-2020", "10:00:00", 1),
		rec("bus1", "01-07-2024", "10:00:00", 2),
		rec("bus1", "31-12-2030", "10:00:00", 3),
	)

	onlyStart := Apply(g, State{StartDate: "01-07-2024"})
	if got, want := temps(onlyStart, "bus1"), []float64{2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("start only: temps = %v; want %v", got, want)
	}

	onlyEnd := Apply(g, State{EndDate: "01-07-2024"})
	if got, want := temps(onlyEnd, "bus1"), []float64{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("end only: temps = %v; want %v", got, want)
	}
}

func TestApply_InvalidDateYieldsEmpty(t *testing.T) {
	g := group(
		rec("bus1", "01-07-2024", "10:00:00", 1),
		rec("bus1", "not a date", "10:00:00", 2),
	)

	out := Apply(g, State{StartDate: "yesterday"})
	if n := len(out.Records("bus1")); n != 0 {
		t.Errorf("invalid start bound kept %d records; want 0", n)
	}

	out = Apply(g, State{EndDate: "31-12-2024"})
	if got, want := temps(out, "bus1"), []float64{1}; !reflect.DeepEqual(got, want) {
		t.Errorf("unparseable datestamp kept: temps = %v; want %v", got, want)
	}
}

func TestApply_TimeStartOnlyIsOpen(t *testing.T) {
	g := group(
		rec("bus1", "01-07-2024", "09:59:59", 1),
		rec("bus1", "01-07-2024", "10:00:00", 2),
		rec("bus1", "01-07-2024", "23:59:59", 3),
	)

	out := Apply(g, State{StartTime: "10:00:00"})

	if got, want := temps(out, "bus1"), []float64{2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("temps = %v; want %v", got, want)
	}
}

func TestApply_TimeRangeInclusive(t *testing.T) {
	g := group(
		rec("bus1", "01-07-2024", "07:00:00", 1),
		rec("bus1", "01-07-2024", "08:00:00", 2),
		rec("bus1", "01-07-2024", "2024-07-01T12:00:00Z", 3),
		rec("bus1", "01-07-2024", "18:00:00", 4),
		rec("bus1", "01-07-2024", "18:00:01", 5),
	)

	out := Apply(g, State{StartTime: "08:00:00", EndTime: "18:00:00"})

	if got, want := temps(out, "bus1"), []float64{2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("temps = %v; want %v", got, want)
	}
}

func TestApply_StagesCompose(t *testing.T) {
	g := group(
		rec("bus1", "01-07-2024", "10:00:00", 1),
		rec("bus1", "02-07-2024", "10:00:00", 2),
		rec("bus1", "02-07-2024", "20:00:00", 3),
		rec("bus2", "02-07-2024", "10:00:00", 4),
	)

	out := Apply(g, State{BusNo: "bus1", StartDate: "02-07-2024", EndTime: "12:00:00"})

	if got := out.Buses(); !reflect.DeepEqual(got, []string{"bus1"}) {
		t.Fatalf("Buses() = %v; want [bus1]", got)
	}
	if got, want := temps(out, "bus1"), []float64{2}; !reflect.DeepEqual(got, want) {
		t.Errorf("temps = %v; want %v", got, want)
	}
}

func TestApply_EndToEndScenario(t *testing.T) {
	lat1, lng1, t1 := 17.1, 78.1, 30.0
	lat2, lng2, t2 := 17.2, 78.2, 32.0
	g := telemetry.Group([]telemetry.Reading{
		{BusNo: "bus1", Latitude: &lat1, Longitude: &lng1, Temperature: &t1, Datestamp: "01-07-2024", Timestamp: "10:00:00"},
		{BusNo: "bus2", Latitude: &lat2, Longitude: &lng2, Temperature: &t2, Datestamp: "02-07-2024", Timestamp: "11:00:00"},
	}, telemetry.PresenceStrict)

	out := Apply(g, State{BusNo: "bus1"})

	if got := out.Buses(); !reflect.DeepEqual(got, []string{"bus1"}) {
		t.Fatalf("Buses() = %v; want [bus1]", got)
	}
	recs := out.Records("bus1")
	if len(recs) != 1 {
		t.Fatalf("len(bus1) = %d; want 1", len(recs))
	}
	if recs[0].Latitude != 17.1 || recs[0].Longitude != 78.1 || recs[0].Temperature != 30 {
		t.Errorf("bus1[0] = %+v; want lat 17.1 lng 78.1 temp 30", recs[0])
	}
}
