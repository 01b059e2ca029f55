// internal/network/serial/framing.go
package serial

import "errors"

const (
	flagByte   = 0x7E
	escapeByte = 0x7D
	escapeXOR  = 0x20

	crcInit = 0xFF

	// maxFrameLen bounds a frame in progress; longer input is discarded.
	maxFrameLen = 128
)

var errCRC = errors.New("serial: frame crc mismatch")

// crc8 is CRC-8 Dallas/Maxim (reflected polynomial 0x8C).
func crc8(init byte, data []byte) byte {
	crc := init
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x01 != 0 {
				crc = crc>>1 ^ 0x8C
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func appendEscaped(dst []byte, b byte) []byte {
	if b == flagByte || b == escapeByte {
		return append(dst, escapeByte, b^escapeXOR)
	}
	return append(dst, b)
}

// encodeFrame wraps payload as FLAG escaped(payload CRC) FLAG.
func encodeFrame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)*2+4)
	out = append(out, flagByte)
	for _, b := range payload {
		out = appendEscaped(out, b)
	}
	out = appendEscaped(out, crc8(crcInit, payload))
	return append(out, flagByte)
}

// deframer reassembles frames from a byte stream.
type deframer struct {
	buf     []byte
	inFrame bool
	escaped bool
}

// feed consumes p and calls emit for every complete frame. Frames that fail
// the CRC check are reported through bad.
func (d *deframer) feed(p []byte, emit func([]byte), bad func(error)) {
	for _, b := range p {
		switch {
		case b == flagByte:
			if d.inFrame && len(d.buf) > 0 {
				d.finish(emit, bad)
			}
			// A flag both ends a frame and may start the next one.
			d.inFrame = true
			d.escaped = false
			d.buf = d.buf[:0]
		case !d.inFrame:
		case b == escapeByte:
			d.escaped = true
		default:
			if d.escaped {
				b ^= escapeXOR
				d.escaped = false
			}
			if len(d.buf) >= maxFrameLen {
				d.inFrame = false
				d.buf = d.buf[:0]
				continue
			}
			d.buf = append(d.buf, b)
		}
	}
}

func (d *deframer) finish(emit func([]byte), bad func(error)) {
	if len(d.buf) < 2 {
		bad(errors.New("serial: frame too short"))
		return
	}
	payload := d.buf[:len(d.buf)-1]
	if crc8(crcInit, payload) != d.buf[len(d.buf)-1] {
		bad(errCRC)
		return
	}
	emit(append([]byte(nil), payload...))
}
