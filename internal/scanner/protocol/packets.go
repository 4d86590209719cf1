package protocol

import (
	"fmt"
)

// Command is the generic outgoing-frame builder: STX, body, ETX, then a
// trailing CRC-8 of the body. Every Outgoing variant below builds one.
type Command struct {
	body []byte
}

// NewCommand wraps an already-built body in a Command.
func NewCommand(body []byte) Command {
	return Command{body: body}
}

// ToBytes renders the full outgoing frame.
func (c Command) ToBytes() []byte {
	buf := make([]byte, 0, len(c.body)+3)
	buf = append(buf, STX)
	buf = append(buf, c.body...)
	buf = append(buf, ETX)
	buf = append(buf, CRC8(c.body))
	return buf
}

// Outgoing is any message the host can send to the scanner.
type Outgoing interface {
	// Body returns the frame body (without STX/ETX/CRC).
	Body() []byte
}

// ToBytes frames any Outgoing value into the bytes that cross the wire.
func ToBytes(o Outgoing) []byte {
	return NewCommand(o.Body()).ToBytes()
}

// Status family.

type GetTestStringRequest struct{}

func (GetTestStringRequest) Body() []byte { return []byte{'D'} }

type GetFirmwareVersionRequest struct{}

func (GetFirmwareVersionRequest) Body() []byte { return []byte{'V'} }

type GetScannerStatusRequest struct{}

func (GetScannerStatusRequest) Body() []byte { return []byte{'Q'} }

type GetScannerSettingsRequest struct{}

func (GetScannerSettingsRequest) Body() []byte { return []byte{'I'} }

type GetSerialNumberRequest struct{}

func (GetSerialNumberRequest) Body() []byte { return []byte{'*'} }

type GetInputSensorsRequest struct{}

func (GetInputSensorsRequest) Body() []byte { return []byte{0x1b, 's'} }

type GetCalibrationStatusRequest struct{}

func (GetCalibrationStatusRequest) Body() []byte { return []byte{'W'} }

type GetCalibrationTableRequest struct{ Table int } // 0 or 1

func (r GetCalibrationTableRequest) Body() []byte {
	if r.Table == 0 {
		return []byte{'W', '0'}
	}
	return []byte{'W', '1'}
}

type GetDoubleFeedCalibrationValuesRequest struct {
	Type DoubleFeedDetectionCalibrationType
}

func (r GetDoubleFeedCalibrationValuesRequest) Body() []byte {
	switch r.Type {
	case CalibrationType10:
		return []byte("n3a10")
	case CalibrationType20:
		return []byte("n3a20")
	case CalibrationType30:
		return []byte("n3a30")
	default:
		return []byte("n3a90")
	}
}

// Control modes.

type SetHalfResolutionRequest struct{}

func (SetHalfResolutionRequest) Body() []byte { return []byte{'A'} }

type SetNativeResolutionRequest struct{}

func (SetNativeResolutionRequest) Body() []byte { return []byte{'B'} }

type SetScanSideRequest struct{ Side ScanSide }

func (r SetScanSideRequest) Body() []byte {
	switch r.Side {
	case ScanSideSimplexTop:
		return []byte{'G'}
	case ScanSideSimplexBottom:
		return []byte{'H'}
	default:
		return []byte{'J'}
	}
}

type SetPickOnCommandRequest struct{ Enabled bool }

func (r SetPickOnCommandRequest) Body() []byte {
	if r.Enabled {
		return []byte{0x1b, 'X'}
	}
	return []byte{0x1b, 'Y'}
}

type SetEjectPauseRequest struct{ Mode EjectPauseMode }

func (r SetEjectPauseRequest) Body() []byte {
	if r.Mode == EjectPauseEnabled {
		return []byte{'M'}
	}
	return []byte{'N'}
}

type SetBitDepthRequest struct{ Mode ColorMode }

func (r SetBitDepthRequest) Body() []byte {
	if r.Mode == ColorModeNative {
		return []byte{'y'}
	}
	return []byte{'z'}
}

type SetAutoRunoutRequest struct{ Mode AutoRunoutMode }

func (r SetAutoRunoutRequest) Body() []byte {
	if r.Mode == AutoRunoutEnabled {
		return []byte{0x1b, 'e'}
	}
	return []byte{0x1b, 'd'}
}

type SetMotorSpeedRequest struct{ Speed MotorSpeed }

func (r SetMotorSpeedRequest) Body() []byte {
	if r.Speed == MotorSpeedFull {
		return []byte{'k'}
	}
	return []byte{'j'}
}

// Thresholds.

type AdjustThresholdRequest struct{ Adjustment BitonalAdjustment }

func (r AdjustThresholdRequest) Body() []byte {
	switch {
	case r.Adjustment.Side == SideTop && r.Adjustment.Direction == Increase:
		return []byte{0x1b, '+'}
	case r.Adjustment.Side == SideTop && r.Adjustment.Direction == Decrease:
		return []byte{0x1b, '-'}
	case r.Adjustment.Side == SideBottom && r.Adjustment.Direction == Increase:
		return []byte{0x1b, '>'}
	default:
		return []byte{0x1b, '<'}
	}
}

// SetThresholdToANewValueRequest sets one side's bitonal threshold to an
// absolute value (a raw byte, not ASCII text): ESC '%' side-char value.
type SetThresholdToANewValueRequest struct {
	Side         Side
	NewThreshold ClampedPercentage
}

func (r SetThresholdToANewValueRequest) Body() []byte {
	sideByte := byte('T')
	if r.Side == SideBottom {
		sideByte = 'B'
	}
	return []byte{0x1b, '%', sideByte, byte(r.NewThreshold)}
}

// Document handling.

type SetMaxDocumentLengthRequest struct {
	HundredthsOfInch uint16
}

func (r SetMaxDocumentLengthRequest) Body() []byte {
	return []byte{0x1b, 'D', byte(r.HundredthsOfInch >> 8), byte(r.HundredthsOfInch)}
}

type SetFeedDelayRequest struct{ Delay byte }

func (r SetFeedDelayRequest) Body() []byte { return []byte{0x1b, 'j', r.Delay} }

type EjectDocumentRequest struct{ Motion EjectMotion }

func (r EjectDocumentRequest) Body() []byte {
	switch r.Motion {
	case EjectToRear:
		return []byte{'1'}
	case EjectToFront:
		return []byte{'3'}
	case EjectToFrontAndHold:
		return []byte{'4'}
	default:
		return []byte{'7'}
	}
}

// EjectEscrowDocumentRequest rescans a sheet already held in escrow rather
// than performing a fresh eject motion. Its tag ('[') was unassigned in
// the distilled source; this is a deliberate open-question decision, not a
// field-verified value.
type EjectEscrowDocumentRequest struct{}

func (EjectEscrowDocumentRequest) Body() []byte { return []byte{'['} }

type SetLightSourceRequest struct{ Bright bool }

func (r SetLightSourceRequest) Body() []byte {
	if r.Bright {
		return []byte{'5'}
	}
	return []byte{'6'}
}

// Double-feed detection.

type SetDoubleFeedDetectionRequest struct{ Mode DoubleFeedDetectionMode }

func (r SetDoubleFeedDetectionRequest) Body() []byte {
	if r.Mode == DoubleFeedDetectionEnabled {
		return []byte{'n'}
	}
	return []byte{'o'}
}

type CalibrateDoubleFeedDetectionRequest struct {
	Type DoubleFeedDetectionCalibrationType
}

func (r CalibrateDoubleFeedDetectionRequest) Body() []byte {
	digit := byte('0' + int(r.Type))
	return []byte{'n', '1', digit}
}

type SetDoubleFeedSensitivityRequest struct{ Percent ClampedPercentage }

func (r SetDoubleFeedSensitivityRequest) Body() []byte {
	return append([]byte("n3A"), []byte(fmt.Sprintf("%03d", int(r.Percent)))...)
}

type SetMinDoubleFeedLengthRequest struct{ HundredthsOfInch int } // 10..250

func (r SetMinDoubleFeedLengthRequest) Body() []byte {
	return append([]byte("n3B"), []byte(fmt.Sprintf("%03d", r.HundredthsOfInch))...)
}

type SetRequiredInputSensorsRequest struct{ Count byte }

func (r SetRequiredInputSensorsRequest) Body() []byte { return []byte{0x1b, 'r', r.Count} }

// Feeder.

type SetFeederRequest struct{ Mode FeederMode }

func (r SetFeederRequest) Body() []byte {
	if r.Mode == FeederEnabled {
		return []byte{'#', '1'}
	}
	return []byte{'#', '0'}
}
