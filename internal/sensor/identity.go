// Package sensor derives the stable identity string that joins a
// physical sensor's provisioning record to its telemetry readings.
package sensor

import (
	"fmt"
	"strconv"
)

// Resolve derives the sensor id for a sensor wired to the given echo
// and trigger pins on a controller in a lot. The same inputs always
// produce the same id, so device registration and telemetry ingestion
// can both compute it independently and meet on the result.
//
// Numeric lot and controller ids are zero-padded to 4 digits; pins are
// zero-padded to 2. Non-numeric ids are passed through verbatim, which
// means "12" and "0012" collide while "ABC" never meets the numeric id
// space. That asymmetry is inherited behavior; callers relying on
// collision-freedom must stay within one id style.
func Resolve(lotID, controllerID string, echoPin, trigPin int) string {
	return padID(lotID) + padID(controllerID) + fmt.Sprintf("%02d%02d", echoPin, trigPin)
}

func padID(id string) string {
	n, err := strconv.Atoi(id)
	if err != nil {
		return id
	}
	return fmt.Sprintf("%04d", n)
}
