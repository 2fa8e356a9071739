package home

import (
	"errors"
	"testing"
)

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()

	if l.Len() != 5 {
		t.Fatalf("expected 5 rooms, got %d", l.Len())
	}

	tests := []struct {
		room Room
		want Point
	}{
		{LivingRoom, Point{1, 1}},
		{Bedroom, Point{5, 1}},
		{Kitchen, Point{1, 5}},
		{Bathroom, Point{5, 5}},
		{WorkoutArea, Point{3, 3}},
	}
	for _, tt := range tests {
		got, err := l.Position(tt.room)
		if err != nil {
			t.Errorf("Position(%q): unexpected error %v", tt.room, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Position(%q) = %v, want %v", tt.room, got, tt.want)
		}
	}
}

func TestPosition_UnknownRoom(t *testing.T) {
	l := DefaultLayout()

	_, err := l.Position("Garage")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Room != "Garage" {
		t.Errorf("expected room Garage, got %q", cfgErr.Room)
	}
}

func TestNewLayout_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		specs []RoomSpec
	}{
		{"empty", nil},
		{"single room", []RoomSpec{{Name: "Hall"}}},
		{"duplicate", []RoomSpec{{Name: "Hall"}, {Name: "Hall", X: 1}}},
		{"empty name", []RoomSpec{{Name: "Hall"}, {Name: ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayout(tt.specs)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestOthers_ExcludesRoomAndKeepsOrder(t *testing.T) {
	l := DefaultLayout()

	got := l.Others(LivingRoom)
	want := []Room{Bedroom, Kitchen, Bathroom, WorkoutArea}
	if len(got) != len(want) {
		t.Fatalf("expected %d rooms, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Others[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRooms_ReturnsCopy(t *testing.T) {
	l := DefaultLayout()

	rooms := l.Rooms()
	rooms[0] = "Attic"
	if l.Rooms()[0] != LivingRoom {
		t.Error("mutating Rooms() result changed the layout")
	}
}

func TestBounds(t *testing.T) {
	min, max := DefaultLayout().Bounds(1)

	if min != (Point{0, 0}) {
		t.Errorf("expected min (0,0), got %v", min)
	}
	if max != (Point{6, 6}) {
		t.Errorf("expected max (6,6), got %v", max)
	}
}

func TestMidpoint(t *testing.T) {
	got := Midpoint(Point{1, 1}, Point{5, 5})
	if got != (Point{3, 3}) {
		t.Errorf("expected (3,3), got %v", got)
	}
}
