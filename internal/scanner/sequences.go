package scanner

import (
	"time"

	"ballotscan/internal/scanner/protocol"
)

// defaultTimeout bounds every command/response round trip in these
// sequences; a real caller can build the same steps with a longer
// deadline for a slow or heavily loaded device.
const defaultTimeout = 2 * time.Second

// rawCommand lets a sequence send a byte string that has no corresponding
// named request type, such as the undocumented probes replayed below.
type rawCommand []byte

func (r rawCommand) Body() []byte { return []byte(r) }

func (c *Client) sendRaw(body []byte, deadline time.Time) error {
	id := c.allocSeq()
	c.transport.Send(id, rawCommand(body))
	return c.awaitAck(id, deadline)
}

func matchTestString(p protocol.Incoming) (any, bool) {
	resp, ok := p.(protocol.TestStringResponse)
	return resp, ok
}

// Connect replays the fixed command sequence a freshly attached scanner
// expects before it will accept scan requests: a liveness probe, feeder
// reset, and the CRC-checking toggle, in the order the vendor-reference
// client issues them. Some of the probes (like the flow-control escape)
// are deliberately left unsent, matching the reference implementation's
// own commented-out status.
func (c *Client) Connect() error {
	deadline := time.Now().Add(defaultTimeout)

	if _, err := c.Call(protocol.GetTestStringRequest{}, matchTestString, deadline); err != nil {
		return err
	}

	if err := c.SetFeeder(false, deadline); err != nil {
		return err
	}

	// Turns on CRC checking on the scanner side of the link.
	if err := c.sendRaw([]byte{0x1b, 'K'}, deadline); err != nil {
		return err
	}

	return nil
}

// SetFeeder enables or disables pick-on-command feeding.
func (c *Client) SetFeeder(enabled bool, deadline time.Time) error {
	mode := protocol.FeederDisabled
	if enabled {
		mode = protocol.FeederEnabled
	}
	id := c.allocSeq()
	c.transport.Send(id, protocol.SetFeederRequest{Mode: mode})
	return c.awaitAck(id, deadline)
}

// EnableScanCommands reproduces the full arm-the-scanner sequence: duplex
// half-resolution scanning, manual feed start, a conservative double-feed
// profile, low color mode, full motor speed, both thresholds, and finally the
// feeder enable that actually lets paper move.
func (c *Client) EnableScanCommands(threshold protocol.ClampedPercentage, doubleFeed protocol.DoubleFeedDetectionMode, paperLengthInches float64) error {
	deadline := time.Now().Add(defaultTimeout)
	send := func(o protocol.Outgoing) error {
		id := c.allocSeq()
		c.transport.Send(id, o)
		return c.awaitAck(id, deadline)
	}

	steps := []protocol.Outgoing{
		protocol.SetHalfResolutionRequest{},
		protocol.SetScanSideRequest{Side: protocol.ScanSideDuplex},
		rawCommand("g"), // enable AutoScanStart
		protocol.SetPickOnCommandRequest{Enabled: true},
		protocol.SetDoubleFeedSensitivityRequest{Percent: 50},
		// A full inch of overlap tolerance so thick timing-mark ink doesn't
		// trip the sensor.
		protocol.SetMinDoubleFeedLengthRequest{HundredthsOfInch: 100},
		protocol.SetDoubleFeedDetectionRequest{Mode: doubleFeed},
		protocol.SetBitDepthRequest{Mode: protocol.ColorModeLow},
		protocol.SetAutoRunoutRequest{Mode: protocol.AutoRunoutDisabled},
		protocol.SetMotorSpeedRequest{Speed: protocol.MotorSpeedFull},
	}
	for _, s := range steps {
		if err := send(s); err != nil {
			return err
		}
	}

	if err := c.setThreshold(protocol.SideTop, threshold, deadline); err != nil {
		return err
	}
	if err := c.setThreshold(protocol.SideBottom, threshold, deadline); err != nil {
		return err
	}

	if err := send(protocol.SetRequiredInputSensorsRequest{Count: 2}); err != nil {
		return err
	}

	// Stop half an inch short of the true paper length: long enough to
	// finish a legitimate single sheet, short enough to reject a second
	// sheet fed back to back before it clears the rear.
	hundredths := uint16((paperLengthInches - 0.5) * 100)
	if err := send(protocol.SetMaxDocumentLengthRequest{HundredthsOfInch: hundredths}); err != nil {
		return err
	}
	if err := send(protocol.SetFeedDelayRequest{Delay: 0}); err != nil {
		return err
	}

	return c.SetFeeder(true, deadline)
}

func (c *Client) setThreshold(side protocol.Side, value protocol.ClampedPercentage, deadline time.Time) error {
	match := func(p protocol.Incoming) (any, bool) {
		resp, ok := p.(protocol.SetThresholdResponse)
		return resp, ok && resp.Side == side
	}
	_, err := c.Call(protocol.SetThresholdToANewValueRequest{Side: side, NewThreshold: value}, match, deadline)
	return err
}

// EjectDocument performs one eject motion. The feeder is always disabled
// again afterward, even on a send failure for the motion itself, so a
// second sheet can never sneak into the feed path unattended.
func (c *Client) EjectDocument(motion protocol.EjectMotion) error {
	deadline := time.Now().Add(defaultTimeout)

	pauseMode := protocol.EjectPauseDisabled
	if motion == protocol.EjectToRear {
		pauseMode = protocol.EjectPauseEnabled
	}
	if err := c.sendAndAck(protocol.SetEjectPauseRequest{Mode: pauseMode}, deadline); err != nil {
		return err
	}

	// The eject command only works while the feeder is enabled.
	if err := c.SetFeeder(true, deadline); err != nil {
		return err
	}

	var motionErr error
	if motion == protocol.EjectToFrontAndRescan {
		motionErr = c.sendAndAck(protocol.EjectEscrowDocumentRequest{}, deadline)
	} else {
		motionErr = c.sendAndAck(protocol.EjectDocumentRequest{Motion: motion}, deadline)
	}

	if err := c.SetFeeder(false, deadline); err != nil {
		if motionErr == nil {
			return err
		}
	}
	return motionErr
}

func (c *Client) sendAndAck(o protocol.Outgoing, deadline time.Time) error {
	id := c.allocSeq()
	c.transport.Send(id, o)
	return c.awaitAck(id, deadline)
}
