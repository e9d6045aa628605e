package occupancy

import (
	"errors"
	"testing"
)

func TestParseRaw_ValidLine(t *testing.T) {
	reading, err := ParseRaw("0001,0001,39,22,true")
	if err != nil {
		t.Fatalf("Expected valid reading, got error: %v", err)
	}

	expected := Reading{
		LotID:        "0001",
		ControllerID: "0001",
		EchoPin:      39,
		TrigPin:      22,
		Occupied:     true,
	}
	if reading != expected {
		t.Errorf("Expected %+v, got %+v", expected, reading)
	}
}

func TestParseRaw_OccupiedFlagIsCaseInsensitive(t *testing.T) {
	reading, err := ParseRaw("1,1,5,6,TRUE")
	if err != nil {
		t.Fatalf("Expected valid reading, got error: %v", err)
	}
	if !reading.Occupied {
		t.Error("Expected occupied true for TRUE")
	}

	reading, err = ParseRaw("1,1,5,6,False")
	if err != nil {
		t.Fatalf("Expected valid reading, got error: %v", err)
	}
	if reading.Occupied {
		t.Error("Expected occupied false for False")
	}
}

func TestParseRaw_WrongFieldCount(t *testing.T) {
	_, err := ParseRaw("invalid,format")
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

func TestParseRaw_NonNumericPin(t *testing.T) {
	_, err := ParseRaw("1,1,abc,22,true")
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for bad echo pin, got %v", err)
	}

	_, err = ParseRaw("1,1,39,xy,true")
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for bad trig pin, got %v", err)
	}
}

func TestParseRaw_BadOccupiedFlag(t *testing.T) {
	_, err := ParseRaw("1,1,39,22,maybe")
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for bad occupied flag, got %v", err)
	}
}
