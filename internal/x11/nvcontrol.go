package x11

import (
	"errors"
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/nerrad567/vibrant/internal/display"
)

// NV-CONTROL protocol constants.
const (
	nvExtensionName = "NV-CONTROL"

	// Minor request opcodes.
	nvReqIsNv            = 1
	nvReqQueryAttribute  = 2
	nvReqSetAttribute    = 3
	nvReqQueryBinaryData = 20

	// Target types.
	nvTargetXScreen = 0
	nvTargetDisplay = 8

	// Attributes.
	nvAttrDigitalVibrance = 261
	nvAttrRandROutputID   = 391

	// Binary data attributes.
	nvBinaryDisplaysEnabledOnXScreen = 17

	// Request sizes in bytes.
	nvIsNvLen        = 8
	nvQueryAttrLen   = 16
	nvSetAttrLen     = 20
	nvQueryBinaryLen = 16

	// Reply layout.
	nvReplyHeaderLen = 32
	nvReplyFlagsOff  = 8
	nvReplyValueOff  = 12
)

// NVControl speaks the NV-CONTROL extension over an existing connection.
type NVControl struct {
	conn    *xgb.Conn
	opcode  byte
	screens int

	// exchange sends one request and waits for its reply.
	exchange func(buf []byte) ([]byte, error)
}

// detectNVControl returns nil, nil when the server lacks NV-CONTROL.
func detectNVControl(conn *xgb.Conn, screens int) (*NVControl, error) {
	reply, err := xproto.QueryExtension(conn, uint16(len(nvExtensionName)), nvExtensionName).Reply()
	if err != nil {
		return nil, err
	}
	if !reply.Present {
		return nil, nil
	}
	n := &NVControl{conn: conn, opcode: reply.MajorOpcode, screens: screens}
	n.exchange = n.connRoundTrip
	return n, nil
}

// DisplayIDs maps RandR outputs to NV display targets across every X screen
// the NVIDIA driver manages. Only displays enabled on a screen are mapped.
// A display without a RandR output id is left out of the map.
func (n *NVControl) DisplayIDs() (map[display.OutputID]int, error) {
	ids := make(map[display.OutputID]int)

	for screen := 0; screen < n.screens; screen++ {
		isNv, err := n.isNvScreen(screen)
		if err != nil {
			return nil, err
		}
		if !isNv {
			continue
		}

		data, err := n.queryBinaryData(nvTargetXScreen, uint16(screen), nvBinaryDisplaysEnabledOnXScreen)
		if err != nil {
			return nil, fmt.Errorf("enabled displays on screen %d: %w", screen, err)
		}
		displays, err := parseDisplayList(data)
		if err != nil {
			return nil, err
		}

		for _, id := range displays {
			output, err := n.queryAttribute(nvTargetDisplay, uint16(id), nvAttrRandROutputID)
			if errors.Is(err, display.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("RandR output of display %d: %w", id, err)
			}
			ids[display.OutputID(output)] = id
		}
	}
	return ids, nil
}

// GetAttribute returns the digital vibrance of a display target.
func (n *NVControl) GetAttribute(displayID int) (int, error) {
	v, err := n.queryAttribute(nvTargetDisplay, uint16(displayID), nvAttrDigitalVibrance)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// SetAttribute writes the digital vibrance of a display target.
func (n *NVControl) SetAttribute(displayID, value int) error {
	buf := setAttributeRequest(n.opcode, nvTargetDisplay, uint16(displayID), nvAttrDigitalVibrance, int32(value))
	cookie := n.conn.NewCookie(true, false)
	n.conn.NewRequest(buf, cookie)
	if err := cookie.Check(); err != nil {
		return fmt.Errorf("%w: NV-CONTROL SetAttribute: %w", display.ErrTransport, err)
	}
	return nil
}

func (n *NVControl) isNvScreen(screen int) (bool, error) {
	reply, err := n.roundTrip(isNvRequest(n.opcode, uint32(screen)))
	if err != nil {
		return false, fmt.Errorf("%w: NV-CONTROL IsNv: %w", display.ErrTransport, err)
	}
	return parseIsNvReply(reply)
}

func (n *NVControl) queryAttribute(targetType, targetID uint16, attr uint32) (int32, error) {
	reply, err := n.roundTrip(queryAttributeRequest(n.opcode, targetType, targetID, attr))
	if err != nil {
		return 0, fmt.Errorf("%w: NV-CONTROL QueryAttribute: %w", display.ErrTransport, err)
	}
	return parseAttributeReply(reply, attr)
}

func (n *NVControl) queryBinaryData(targetType, targetID uint16, attr uint32) ([]byte, error) {
	reply, err := n.roundTrip(queryBinaryDataRequest(n.opcode, targetType, targetID, attr))
	if err != nil {
		return nil, fmt.Errorf("%w: NV-CONTROL QueryBinaryData: %w", display.ErrTransport, err)
	}
	return parseBinaryDataReply(reply, attr)
}

func (n *NVControl) roundTrip(buf []byte) ([]byte, error) {
	return n.exchange(buf)
}

func (n *NVControl) connRoundTrip(buf []byte) ([]byte, error) {
	cookie := n.conn.NewCookie(true, true)
	n.conn.NewRequest(buf, cookie)
	return cookie.Reply()
}

// ─── Request encoding ──────────────────────────────────────────────

// requestHeader writes the major opcode, minor opcode and length (in
// 4-byte units) of a request of size bytes.
func requestHeader(opcode, minor byte, size int) []byte {
	buf := make([]byte, size)
	buf[0] = opcode
	buf[1] = minor
	xgb.Put16(buf[2:], uint16(size/4))
	return buf
}

func isNvRequest(opcode byte, screen uint32) []byte {
	buf := requestHeader(opcode, nvReqIsNv, nvIsNvLen)
	xgb.Put32(buf[4:], screen)
	return buf
}

// targetRequest encodes the body shared by attribute requests:
// target id, target type, display mask (always 0) and attribute.
func targetRequest(opcode, minor byte, size int, targetType, targetID uint16, attr uint32) []byte {
	buf := requestHeader(opcode, minor, size)
	xgb.Put16(buf[4:], targetID)
	xgb.Put16(buf[6:], targetType)
	xgb.Put32(buf[8:], 0)
	xgb.Put32(buf[12:], attr)
	return buf
}

func queryAttributeRequest(opcode byte, targetType, targetID uint16, attr uint32) []byte {
	return targetRequest(opcode, nvReqQueryAttribute, nvQueryAttrLen, targetType, targetID, attr)
}

func setAttributeRequest(opcode byte, targetType, targetID uint16, attr uint32, value int32) []byte {
	buf := targetRequest(opcode, nvReqSetAttribute, nvSetAttrLen, targetType, targetID, attr)
	xgb.Put32(buf[16:], uint32(value))
	return buf
}

func queryBinaryDataRequest(opcode byte, targetType, targetID uint16, attr uint32) []byte {
	return targetRequest(opcode, nvReqQueryBinaryData, nvQueryBinaryLen, targetType, targetID, attr)
}

// ─── Reply parsing ─────────────────────────────────────────────────

func checkReplyLen(reply []byte, min int) error {
	if len(reply) < min {
		return fmt.Errorf("%w: NV-CONTROL reply is %d bytes, need %d", display.ErrTransport, len(reply), min)
	}
	return nil
}

func parseIsNvReply(reply []byte) (bool, error) {
	if err := checkReplyLen(reply, nvReplyHeaderLen); err != nil {
		return false, err
	}
	return xgb.Get32(reply[nvReplyFlagsOff:]) != 0, nil
}

// parseAttributeReply returns display.ErrNotFound when the driver reports
// the attribute as unavailable for the target.
func parseAttributeReply(reply []byte, attr uint32) (int32, error) {
	if err := checkReplyLen(reply, nvReplyHeaderLen); err != nil {
		return 0, err
	}
	if xgb.Get32(reply[nvReplyFlagsOff:]) == 0 {
		return 0, fmt.Errorf("%w: NV-CONTROL attribute %d", display.ErrNotFound, attr)
	}
	return int32(xgb.Get32(reply[nvReplyValueOff:])), nil
}

func parseBinaryDataReply(reply []byte, attr uint32) ([]byte, error) {
	if err := checkReplyLen(reply, nvReplyHeaderLen); err != nil {
		return nil, err
	}
	if xgb.Get32(reply[nvReplyFlagsOff:]) == 0 {
		return nil, fmt.Errorf("%w: NV-CONTROL binary data %d", display.ErrNotFound, attr)
	}
	n := int(xgb.Get32(reply[nvReplyValueOff:]))
	if err := checkReplyLen(reply, nvReplyHeaderLen+n); err != nil {
		return nil, err
	}
	return reply[nvReplyHeaderLen : nvReplyHeaderLen+n], nil
}

// parseDisplayList decodes a count-prefixed list of 32-bit display ids.
func parseDisplayList(data []byte) ([]int, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: empty NV-CONTROL display list", display.ErrTransport)
	}
	count := int(xgb.Get32(data))
	if len(data) < 4*(count+1) {
		return nil, fmt.Errorf("%w: NV-CONTROL display list claims %d entries in %d bytes",
			display.ErrTransport, count, len(data))
	}

	ids := make([]int, count)
	for i := range ids {
		ids[i] = int(int32(xgb.Get32(data[4*(i+1):])))
	}
	return ids, nil
}
