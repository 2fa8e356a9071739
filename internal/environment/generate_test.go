package environment

import (
	"testing"

	"github.com/talgya/homesim/internal/home"
)

func TestGenerate_ExhaustiveAndInRange(t *testing.T) {
	rooms := home.DefaultLayout().Rooms()
	rows := Generate(rooms, 42)

	table := NewTable(rows)
	if missing := table.Missing(rooms); len(missing) != 0 {
		t.Fatalf("expected exhaustive table, %d keys missing", len(missing))
	}
	if table.Duplicates() != 0 {
		t.Errorf("expected no duplicates, got %d", table.Duplicates())
	}

	for _, r := range rows {
		s := r.Settings
		if s.Temperature < MinTemperature || s.Temperature > MaxTemperature {
			t.Errorf("%v: temperature %v out of range", r.Key, s.Temperature)
		}
		if s.Lighting < MinLighting || s.Lighting > MaxLighting {
			t.Errorf("%v: lighting %v out of range", r.Key, s.Lighting)
		}
		if !s.Music.Valid() {
			t.Errorf("%v: music %d out of range", r.Key, s.Music)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	rooms := home.DefaultLayout().Rooms()
	a := Generate(rooms, 7)
	b := Generate(rooms, 7)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerate_HotterOutsideMeansCoolerInside(t *testing.T) {
	rooms := []home.Room{home.LivingRoom}
	table := NewTable(Generate(rooms, 3))

	var lowSum, highSum float64
	for _, l := range Levels() {
		for _, n := range Levels() {
			low, _ := table.Lookup(key(home.LivingRoom, Low, l, n))
			high, _ := table.Lookup(key(home.LivingRoom, High, l, n))
			lowSum += low.Temperature
			highSum += high.Temperature
		}
	}
	if highSum >= lowSum {
		t.Errorf("expected cooler setpoints for hot exterior: low=%v high=%v", lowSum/9, highSum/9)
	}
}
