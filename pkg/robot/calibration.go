package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

// MotorCalibration holds calibration data for the arm servo.
type MotorCalibration struct {
	ID       int `json:"id"`
	RangeMin int `json:"range_min"`
	RangeMax int `json:"range_max"`
	// Inverted swaps which end of the range counts as raised.
	Inverted bool `json:"inverted,omitempty"`
}

// LoadCalibration loads arm calibration data from a JSON file.
func LoadCalibration(path string) (MotorCalibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MotorCalibration{}, fmt.Errorf("read calibration file: %w", err)
	}

	var cal MotorCalibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return MotorCalibration{}, fmt.Errorf("parse calibration JSON: %w", err)
	}
	return cal, nil
}

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c MotorCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	norm := (float64(raw-c.RangeMin)/rangeSize)*200 - 100
	if c.Inverted {
		return -norm
	}
	return norm
}

// Denormalize converts a normalized value [-100, 100] to a raw servo position.
func (c MotorCalibration) Denormalize(norm float64) int {
	if c.Inverted {
		norm = -norm
	}
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+100)/200*rangeSize) + c.RangeMin
}

// Span returns the number of raw steps between the range ends.
func (c MotorCalibration) Span() int {
	if c.RangeMax < c.RangeMin {
		return c.RangeMin - c.RangeMax
	}
	return c.RangeMax - c.RangeMin
}

// Raised returns the raw position of a fully raised arm.
func (c MotorCalibration) Raised() int {
	return c.Denormalize(100)
}

// Lowered returns the raw position of a fully lowered arm.
func (c MotorCalibration) Lowered() int {
	return c.Denormalize(-100)
}
