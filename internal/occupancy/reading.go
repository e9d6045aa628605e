// Package occupancy turns raw sensor readings into persisted spot
// state changes and realtime broadcasts.
package occupancy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrFormat is returned when a raw sensor line does not match the
// expected wire format.
var ErrFormat = errors.New("malformed sensor reading")

// Reading is one occupancy report from a device.
type Reading struct {
	LotID        string `json:"lotId"`
	ControllerID string `json:"controllerId"`
	EchoPin      int    `json:"echoPin"`
	TrigPin      int    `json:"trigPin"`
	Occupied     bool   `json:"occupied"`
}

// ParseRaw parses the single-line wire form
// "lotId,controllerId,echoPin,trigPin,occupied", e.g.
// "0001,0001,39,22,true". Exactly five comma-separated fields are
// required; the occupied flag is matched case-insensitively against
// true/false.
func ParseRaw(line string) (Reading, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 5 {
		return Reading{}, fmt.Errorf("%w: expected 5 fields, got %d", ErrFormat, len(fields))
	}
	for i, field := range fields {
		fields[i] = strings.TrimSpace(field)
	}

	echoPin, err := strconv.Atoi(fields[2])
	if err != nil {
		return Reading{}, fmt.Errorf("%w: echo pin %q is not numeric", ErrFormat, fields[2])
	}
	trigPin, err := strconv.Atoi(fields[3])
	if err != nil {
		return Reading{}, fmt.Errorf("%w: trig pin %q is not numeric", ErrFormat, fields[3])
	}

	var occupied bool
	switch strings.ToLower(fields[4]) {
	case "true":
		occupied = true
	case "false":
		occupied = false
	default:
		return Reading{}, fmt.Errorf("%w: occupied flag %q is not true/false", ErrFormat, fields[4])
	}

	return Reading{
		LotID:        fields[0],
		ControllerID: fields[1],
		EchoPin:      echoPin,
		TrigPin:      trigPin,
		Occupied:     occupied,
	}, nil
}
