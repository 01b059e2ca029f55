// internal/protocol/dpa/codec.go

// Package dpa is the IQRF DPA wire format.
//
// Request:  NADR(2,LE) PNUM PCMD HWPID(2,LE) PDATA
// Response: NADR(2,LE) PNUM PCMD|0x80 HWPID(2,LE) ErrN DpaValue PDATA
package dpa

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tamzrod/simply/internal/asyncmsg"
	"github.com/tamzrod/simply/internal/call"
	"github.com/tamzrod/simply/internal/network"
	"github.com/tamzrod/simply/internal/protocol"
)

const (
	// DefaultHWProfile disables the HW profile check on the node.
	DefaultHWProfile uint16 = 0xFFFF

	// MaxPDataLen is the largest PDATA a frame can carry.
	MaxPDataLen = 56

	// AsyncKind is the asyncmsg.Message kind of unsolicited DPA responses.
	AsyncKind = "DPA"

	headerLen   = 6
	responseLen = 8
	pcmdResp    = 0x80
)

var errShortFrame = errors.New("dpa: frame too short")

// AdditionalInfo accompanies every decoded DPA response.
type AdditionalInfo struct {
	HWProfile    uint16
	ResponseCode ResponseCode
	DPAValue     uint8
}

// ConfirmationInfo is carried by confirmation frames.
type ConfirmationInfo struct {
	DPAValue     uint8
	Hops         uint8
	Timeslot     uint8
	HopsResponse uint8
}

// Codec implements protocol.Codec for DPA.
type Codec struct {
	hwProfile   uint16
	peripherals map[string]uint8
}

// NewCodec builds a codec. peripherals is merged over StandardPeripherals;
// names are case-insensitive.
func NewCodec(hwProfile uint16, peripherals map[string]uint8) *Codec {
	table := make(map[string]uint8, len(StandardPeripherals)+len(peripherals))
	for name, pnum := range StandardPeripherals {
		table[name] = pnum
	}
	for name, pnum := range peripherals {
		table[strings.ToLower(name)] = pnum
	}
	return &Codec{hwProfile: hwProfile, peripherals: table}
}

func matchKey(networkID string, nadr uint16, pnum, pcmd uint8) string {
	return fmt.Sprintf("%s/%04x/%02x/%02x", networkID, nadr, pnum, pcmd)
}

func encodingError(format string, args ...any) error {
	return fmt.Errorf("%w: dpa: %s", protocol.ErrEncoding, fmt.Sprintf(format, args...))
}

// Encode implements protocol.Codec.
func (c *Codec) Encode(req *call.Request) (string, []byte, error) {
	var nadr uint16 = BroadcastAddress
	if !req.Broadcast {
		n, err := strconv.ParseUint(req.NodeID, 0, 16)
		if err != nil {
			return "", nil, encodingError("bad node id %q", req.NodeID)
		}
		if n == BroadcastAddress {
			return "", nil, encodingError("unicast request to broadcast address")
		}
		nadr = uint16(n)
	}

	pnum, err := c.peripheral(req.DeviceInterface)
	if err != nil {
		return "", nil, err
	}

	m, err := strconv.ParseUint(req.MethodID, 0, 8)
	if err != nil || m >= pcmdResp {
		return "", nil, encodingError("bad method id %q", req.MethodID)
	}
	pcmd := uint8(m)

	frame := make([]byte, headerLen, headerLen+MaxPDataLen)
	binary.LittleEndian.PutUint16(frame[0:], nadr)
	frame[2] = pnum
	frame[3] = pcmd
	binary.LittleEndian.PutUint16(frame[4:], c.hwProfile)

	for i, a := range req.Args {
		frame, err = appendArg(frame, a)
		if err != nil {
			return "", nil, encodingError("arg %d: %v", i, err)
		}
	}
	if len(frame)-headerLen > MaxPDataLen {
		return "", nil, encodingError("pdata length %d exceeds %d", len(frame)-headerLen, MaxPDataLen)
	}

	return matchKey(req.NetworkID, nadr, pnum, pcmd), frame, nil
}

func (c *Codec) peripheral(iface string) (uint8, error) {
	if pnum, ok := c.peripherals[strings.ToLower(iface)]; ok {
		return pnum, nil
	}
	n, err := strconv.ParseUint(iface, 0, 8)
	if err != nil {
		return 0, encodingError("unknown device interface %q", iface)
	}
	return uint8(n), nil
}

func appendArg(buf []byte, a any) ([]byte, error) {
	switch v := a.(type) {
	case []byte:
		return append(buf, v...), nil
	case byte:
		return append(buf, v), nil
	case uint16:
		return binary.LittleEndian.AppendUint16(buf, v), nil
	case int:
		if v < 0 || v > 0xFF {
			return nil, fmt.Errorf("int %d out of byte range", v)
		}
		return append(buf, byte(v)), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", a)
	}
}

// Decode implements protocol.Codec.
func (c *Codec) Decode(d network.Data) (protocol.Frame, error) {
	p := d.Payload
	if len(p) < headerLen {
		return protocol.Frame{}, fmt.Errorf("%w: %d bytes", errShortFrame, len(p))
	}

	nadr := binary.LittleEndian.Uint16(p[0:])
	pnum := p[2]
	pcmd := p[3]
	hwpid := binary.LittleEndian.Uint16(p[4:])

	if pcmd&pcmdResp == 0 {
		return protocol.Frame{}, fmt.Errorf("dpa: request frame on inbound path (pcmd 0x%02x)", pcmd)
	}
	key := matchKey(d.NetworkID, nadr, pnum, pcmd&^pcmdResp)

	if len(p) < responseLen {
		return protocol.Frame{Key: key}, fmt.Errorf("%w: %d bytes", errShortFrame, len(p))
	}
	code := ResponseCode(p[6])
	dpaValue := p[7]
	pdata := make([]byte, len(p)-responseLen)
	copy(pdata, p[responseLen:])

	if code == StatusConfirmation {
		info := ConfirmationInfo{DPAValue: dpaValue}
		if len(pdata) >= 3 {
			info.Hops, info.Timeslot, info.HopsResponse = pdata[0], pdata[1], pdata[2]
		}
		return protocol.Frame{Kind: protocol.FrameConfirmation, Key: key, AdditionalInfo: info}, nil
	}

	info := AdditionalInfo{HWProfile: hwpid, ResponseCode: code &^ asyncFlag, DPAValue: dpaValue}

	if code&asyncFlag != 0 {
		return protocol.Frame{
			Kind: protocol.FrameAsync,
			Async: asyncmsg.Message{
				Kind:           AsyncKind,
				MainData:       pdata,
				AdditionalData: info,
				Source: asyncmsg.Source{
					NetworkID:  d.NetworkID,
					NodeID:     strconv.Itoa(int(nadr)),
					Peripheral: int(pnum),
				},
			},
		}, nil
	}

	frame := protocol.Frame{Kind: protocol.FrameResponse, Key: key, AdditionalInfo: info}
	if code != StatusNoError {
		perr := call.NewError(call.KindNetworkInternal, "node %d: %s", nadr, code)
		perr.Code = int(code)
		frame.Err = perr
		return frame, nil
	}
	frame.Value = pdata
	return frame, nil
}
