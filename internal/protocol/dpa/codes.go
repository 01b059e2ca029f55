// internal/protocol/dpa/codes.go
package dpa

import "fmt"

// Addresses with a fixed meaning in an IQMESH network.
const (
	CoordinatorAddress = 0x00
	LocalAddress       = 0xFC
	TemporaryAddress   = 0xFE
	BroadcastAddress   = 0xFF
)

// Standard peripheral numbers.
const (
	PerCoordinator = 0x00
	PerNode        = 0x01
	PerOS          = 0x02
	PerEEPROM      = 0x03
	PerEEEPROM     = 0x04
	PerRAM         = 0x05
	PerLEDR        = 0x06
	PerLEDG        = 0x07
	PerSPI         = 0x08
	PerIO          = 0x09
	PerThermometer = 0x0A
	PerPWM         = 0x0B
	PerUART        = 0x0C
	PerFRC         = 0x0D
)

// StandardPeripherals maps interface names to peripheral numbers.
// Configured tables are merged over it.
var StandardPeripherals = map[string]uint8{
	"coordinator": PerCoordinator,
	"node":        PerNode,
	"os":          PerOS,
	"eeprom":      PerEEPROM,
	"eeeprom":     PerEEEPROM,
	"ram":         PerRAM,
	"ledr":        PerLEDR,
	"ledg":        PerLEDG,
	"spi":         PerSPI,
	"io":          PerIO,
	"thermometer": PerThermometer,
	"pwm":         PerPWM,
	"uart":        PerUART,
	"frc":         PerFRC,
}

// ResponseCode is the ErrN byte of a DPA response.
type ResponseCode uint8

const (
	StatusNoError             ResponseCode = 0x00
	ErrorFail                 ResponseCode = 0x01
	ErrorPCMD                 ResponseCode = 0x02
	ErrorPNUM                 ResponseCode = 0x03
	ErrorAddr                 ResponseCode = 0x04
	ErrorDataLen              ResponseCode = 0x05
	ErrorData                 ResponseCode = 0x06
	ErrorHWPID                ResponseCode = 0x07
	ErrorNADR                 ResponseCode = 0x08
	ErrorIfaceCustomHandler   ResponseCode = 0x09
	ErrorMissingCustomHandler ResponseCode = 0x0A
	ErrorUserFrom             ResponseCode = 0x20
	ErrorUserTo               ResponseCode = 0x3F
	StatusConfirmation        ResponseCode = 0xFF
)

// asyncFlag marks an unsolicited response in ErrN.
const asyncFlag = 0x80

func (c ResponseCode) String() string {
	switch c {
	case StatusNoError:
		return "STATUS_NO_ERROR"
	case ErrorFail:
		return "ERROR_FAIL"
	case ErrorPCMD:
		return "ERROR_PCMD"
	case ErrorPNUM:
		return "ERROR_PNUM"
	case ErrorAddr:
		return "ERROR_ADDR"
	case ErrorDataLen:
		return "ERROR_DATA_LEN"
	case ErrorData:
		return "ERROR_DATA"
	case ErrorHWPID:
		return "ERROR_HWPID"
	case ErrorNADR:
		return "ERROR_NADR"
	case ErrorIfaceCustomHandler:
		return "ERROR_IFACE_CUSTOM_HANDLER"
	case ErrorMissingCustomHandler:
		return "ERROR_MISSING_CUSTOM_DPA_HANDLER"
	case StatusConfirmation:
		return "STATUS_CONFIRMATION"
	}
	if c >= ErrorUserFrom && c <= ErrorUserTo {
		return fmt.Sprintf("ERROR_USER(0x%02X)", uint8(c))
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(c))
}
