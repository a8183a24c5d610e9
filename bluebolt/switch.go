package bluebolt

import (
	"context"
	"fmt"
)

// Switch controls the outlet of a single device
type Switch struct {
	*Connection
	deviceID ID
	onoff    bool
}

func NewSwitch(conn *Connection, deviceID ID) *Switch {
	res := &Switch{
		Connection: conn,
		deviceID:   deviceID,
	}

	return res
}

// Enabled returns the last successfully switched state
func (sh *Switch) Enabled() bool {
	return sh.onoff
}

// Enable switches the outlet on or off
func (sh *Switch) Enable(ctx context.Context, enable bool) error {
	var err error
	if enable {
		err = sh.TurnOutletOn(ctx, sh.deviceID)
	} else {
		err = sh.TurnOutletOff(ctx, sh.deviceID)
	}

	if err != nil {
		onoff := map[bool]string{true: "on", false: "off"}
		return fmt.Errorf("switch %s failed: %w", onoff[enable], err)
	}

	sh.onoff = enable
	sh.log.DEBUG.Printf("device %s switched %v", sh.deviceID, enable)

	return nil
}
