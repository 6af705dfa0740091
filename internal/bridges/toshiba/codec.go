package toshiba

import (
	"encoding/hex"
	"fmt"
	"math"
)

// Raw state layout constants.
const (
	// MinRawStateLength is the shortest wire-form raw state accepted, in hex
	// characters. It guarantees the indoor temperature byte is present.
	MinRawStateLength = 20

	// paddingOffset is the wire position where the first padding nibble is
	// re-inserted. A second nibble goes in after the following character.
	paddingOffset = 12

	// NoneValSigned is the signed value the unit uses for "no value".
	NoneValSigned = -1

	// TemperatureUnspecified is the logical value for a temperature the unit
	// did not report (or that could not be represented).
	TemperatureUnspecified = -256

	// temperatureReserved is the signed byte the unit uses to carry a real
	// reading of -1, since -1 itself means "no value".
	temperatureReserved = 126

	// noneValByte is NoneValSigned as a two's-complement byte.
	noneValByte byte = 0xFF
)

// Byte positions within the de-interleaved raw state.
const (
	PositionStatus            = 0
	PositionMode              = 1
	PositionTargetTemperature = 2
	PositionFanMode           = 3
	PositionSwingMode         = 4
	PositionIndoorTemperature = 9
)

// Raw byte values.
const (
	statusOn  byte = 0x30
	statusOff byte = 0x31

	modeAuto byte = 0x41
	modeCool byte = 0x43
	modeHeat byte = 0x42

	fanAuto     byte = 0x41
	fanBandBase byte = 0x31 // first of six consecutive speed bytes

	swingOff byte = 0x31
	swingOn  byte = 0x42
)

// Logical capability values.
const (
	StatusOff = 0
	StatusOn  = 1

	ModeAuto = 0
	ModeCool = 1
	ModeHeat = 2

	FanAuto = 0

	SwingOff = 0
	SwingOn  = 1
)

// fan speed bands: byte fanBandBase+i maps to round(100/7 * (i+2)).
const (
	fanBandCount  = 6
	fanBandOffset = 2
	fanBandSteps  = 7
)

// RawState is the vendor wire form of a unit's physical state: a hex string
// with the padding nibbles at positions 12 and 14 stripped.
type RawState string

// LogicalState is the normalised capability view of a unit.
type LogicalState struct {
	Status            int `json:"status"`
	Mode              int `json:"mode"`
	FanMode           int `json:"fan_mode"`
	SwingMode         int `json:"swing_mode"`
	TargetTemperature int `json:"target_temperature"`
	IndoorTemperature int `json:"indoor_temperature"`
}

// UnspecifiedState returns the state of a unit that has not reported yet.
func UnspecifiedState() LogicalState {
	return LogicalState{
		TargetTemperature: TemperatureUnspecified,
		IndoorTemperature: TemperatureUnspecified,
	}
}

// AsMap returns the state keyed by field name, for state messages.
func (s LogicalState) AsMap() map[string]any {
	return map[string]any{
		string(FieldStatus):            s.Status,
		string(FieldMode):              s.Mode,
		string(FieldFanMode):           s.FanMode,
		string(FieldSwingMode):         s.SwingMode,
		string(FieldTargetTemperature): s.TargetTemperature,
		string(FieldIndoorTemperature): s.IndoorTemperature,
	}
}

// Decode converts a raw state into its logical capabilities.
//
// Unknown byte values never fail; they resolve to the field default.
//
// Parameters:
//   - raw: Wire-form raw state (at least MinRawStateLength hex characters)
//
// Returns:
//   - LogicalState: Decoded capabilities
//   - error: ErrInvalidRawState if raw is malformed
func Decode(raw RawState) (LogicalState, error) {
	buf, err := unpack(raw)
	if err != nil {
		return LogicalState{}, err
	}

	return LogicalState{
		Status:            decodeStatus(buf[PositionStatus]),
		Mode:              decodeMode(buf[PositionMode]),
		FanMode:           decodeFanMode(buf[PositionFanMode]),
		SwingMode:         decodeSwingMode(buf[PositionSwingMode]),
		TargetTemperature: DecodeTemperature(buf[PositionTargetTemperature]),
		IndoorTemperature: DecodeTemperature(buf[PositionIndoorTemperature]),
	}, nil
}

// Encode writes the writable capabilities of s into a copy of prev.
//
// Bytes not owned by a writable capability (including indoor temperature)
// are carried over from prev unchanged. Out-of-domain values are written as
// the field default.
//
// Parameters:
//   - prev: Current raw state used as the byte template
//   - s: Desired logical state
//
// Returns:
//   - RawState: New raw state, same length as prev, lower-case hex
//   - error: ErrInvalidRawState if prev is malformed
func Encode(prev RawState, s LogicalState) (RawState, error) {
	buf, err := unpack(prev)
	if err != nil {
		return "", err
	}

	buf[PositionStatus] = encodeStatus(s.Status)
	buf[PositionMode] = encodeMode(s.Mode)
	buf[PositionTargetTemperature] = EncodeTemperature(s.TargetTemperature)
	buf[PositionFanMode] = encodeFanMode(s.FanMode)
	buf[PositionSwingMode] = encodeSwingMode(s.SwingMode)

	return pack(buf), nil
}

// Validate checks that raw is a well-formed raw state.
func Validate(raw RawState) error {
	_, err := unpack(raw)
	return err
}

// unpack re-inserts the two padding nibbles and hex-decodes the result.
func unpack(raw RawState) ([]byte, error) {
	s := string(raw)
	if len(s) < MinRawStateLength {
		return nil, fmt.Errorf("%w: length %d, need at least %d", ErrInvalidRawState, len(s), MinRawStateLength)
	}
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrInvalidRawState, len(s))
	}

	padded := s[:paddingOffset] + "0" + s[paddingOffset:paddingOffset+1] + "0" + s[paddingOffset+1:]
	buf, err := hex.DecodeString(padded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRawState, err)
	}
	return buf, nil
}

// pack hex-encodes buf and strips the padding nibbles unpack inserted.
func pack(buf []byte) RawState {
	h := hex.EncodeToString(buf)
	return RawState(h[:paddingOffset] + h[paddingOffset+1:paddingOffset+2] + h[paddingOffset+3:])
}

func decodeStatus(b byte) int {
	switch b {
	case statusOn:
		return StatusOn
	case statusOff:
		return StatusOff
	default:
		return StatusOff
	}
}

func encodeStatus(v int) byte {
	if v == StatusOn {
		return statusOn
	}
	return statusOff
}

func decodeMode(b byte) int {
	switch b {
	case modeAuto:
		return ModeAuto
	case modeCool:
		return ModeCool
	case modeHeat:
		return ModeHeat
	default:
		return ModeAuto
	}
}

func encodeMode(v int) byte {
	switch v {
	case ModeCool:
		return modeCool
	case ModeHeat:
		return modeHeat
	default:
		return modeAuto
	}
}

func decodeSwingMode(b byte) int {
	switch b {
	case swingOn:
		return SwingOn
	default:
		return SwingOff
	}
}

func encodeSwingMode(v int) byte {
	if v == SwingOn {
		return swingOn
	}
	return swingOff
}

// fanBand returns the logical speed for band index i (0..5).
func fanBand(i int) int {
	return int(math.Round(100 / float64(fanBandSteps) * float64(i+fanBandOffset)))
}

// FanBands returns the logical fan speeds the unit supports besides auto,
// slowest first.
func FanBands() []int {
	bands := make([]int, fanBandCount)
	for i := range bands {
		bands[i] = fanBand(i)
	}
	return bands
}

func decodeFanMode(b byte) int {
	if b == fanAuto {
		return FanAuto
	}
	if b >= fanBandBase && b < fanBandBase+fanBandCount {
		return fanBand(int(b - fanBandBase))
	}
	return FanAuto
}

func encodeFanMode(v int) byte {
	for i := 0; i < fanBandCount; i++ {
		if fanBand(i) == v {
			return fanBandBase + byte(i)
		}
	}
	return fanAuto
}

// DecodeTemperature converts a temperature byte to degrees.
//
// The byte is read as a signed 8-bit value. 127, -128 and NoneValSigned mean
// "no reading" and decode to TemperatureUnspecified. 126 carries a real -1.
func DecodeTemperature(b byte) int {
	v := int(int8(b))
	switch v {
	case math.MaxInt8, math.MinInt8, NoneValSigned:
		return TemperatureUnspecified
	case temperatureReserved:
		return NoneValSigned
	default:
		return v
	}
}

// EncodeTemperature converts degrees to a temperature byte. It inverts
// DecodeTemperature; values outside the signed byte range encode as
// NoneValSigned.
func EncodeTemperature(v int) byte {
	switch {
	case v == TemperatureUnspecified:
		return noneValByte
	case v == NoneValSigned:
		return temperatureReserved
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return byte(int8(v))
	default:
		return noneValByte
	}
}
