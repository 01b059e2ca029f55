// internal/network/udp/packet.go
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Packet layout, big endian:
//
//	GW_ADR CMD SUBCMD RES(2) PACID(2) DLEN(2) DATA CRC16(2)
const (
	headerLen = 9
	crcLen    = 2

	// GatewayAddress is the GW_ADR of an Ethernet gateway.
	GatewayAddress = 0x20

	cmdDataFromTR = 0x04
	cmdSendToTR   = 0x06
	cmdResponse   = 0x80

	subcmdOK  = 0x50
	subcmdErr = 0x60

	maxDataLen = 1024
)

var errBadPacket = errors.New("udp: malformed packet")

type packet struct {
	gwAddr byte
	cmd    byte
	subcmd byte
	pacID  uint16
	data   []byte
}

// crc16 is CRC-16/CCITT-FALSE.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func (p packet) marshal() []byte {
	out := make([]byte, headerLen, headerLen+len(p.data)+crcLen)
	out[0] = p.gwAddr
	out[1] = p.cmd
	out[2] = p.subcmd
	binary.BigEndian.PutUint16(out[5:], p.pacID)
	binary.BigEndian.PutUint16(out[7:], uint16(len(p.data)))
	out = append(out, p.data...)
	return binary.BigEndian.AppendUint16(out, crc16(out))
}

func parsePacket(b []byte) (packet, error) {
	if len(b) < headerLen+crcLen {
		return packet{}, fmt.Errorf("%w: %d bytes", errBadPacket, len(b))
	}
	dlen := int(binary.BigEndian.Uint16(b[7:]))
	if len(b) != headerLen+dlen+crcLen {
		return packet{}, fmt.Errorf("%w: length %d, dlen %d", errBadPacket, len(b), dlen)
	}
	body := b[:headerLen+dlen]
	if crc16(body) != binary.BigEndian.Uint16(b[headerLen+dlen:]) {
		return packet{}, fmt.Errorf("%w: crc mismatch", errBadPacket)
	}
	return packet{
		gwAddr: b[0],
		cmd:    b[1],
		subcmd: b[2],
		pacID:  binary.BigEndian.Uint16(b[5:]),
		data:   append([]byte(nil), b[headerLen:headerLen+dlen]...),
	}, nil
}
