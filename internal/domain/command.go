package domain

import "fmt"

// Command identifies a host adapter operation.
type Command uint16

const (
	CmdGetUSBString Command = iota + 1
	CmdSetBusVoltage
	CmdI2CSetParameters
	CmdI2CWrite
	CmdI2CWriteNonStop
	CmdI2CRead
	CmdI2CReadFrom

	// CmdNotification marks unsolicited frames (GPIO interrupt, bus events).
	CmdNotification Command = 0xFF
)

// String returns a human-readable representation of the command.
func (c Command) String() string {
	switch c {
	case CmdGetUSBString:
		return "GetUSBString"
	case CmdSetBusVoltage:
		return "SetBusVoltage"
	case CmdI2CSetParameters:
		return "I2CSetParameters"
	case CmdI2CWrite:
		return "I2CWrite"
	case CmdI2CWriteNonStop:
		return "I2CWriteNonStop"
	case CmdI2CRead:
		return "I2CRead"
	case CmdI2CReadFrom:
		return "I2CReadFrom"
	case CmdNotification:
		return "Notification"
	default:
		return fmt.Sprintf("Command(%d)", uint16(c))
	}
}

// Opcode is the status carried by an immediate ack.
type Opcode uint8

const (
	OpcodeAccepted Opcode = iota
	OpcodeUnknownCommand
	OpcodeInvalidParameters
	OpcodeNotOpen
)

// String returns a human-readable representation of the opcode.
func (o Opcode) String() string {
	switch o {
	case OpcodeAccepted:
		return "ACCEPTED"
	case OpcodeUnknownCommand:
		return "UNKNOWN_COMMAND"
	case OpcodeInvalidParameters:
		return "INVALID_PARAMETERS"
	case OpcodeNotOpen:
		return "NOT_OPEN"
	default:
		return fmt.Sprintf("OPCODE_%d", uint8(o))
	}
}

// ResultCode is the device-side outcome of a command.
type ResultCode uint8

const (
	ResultSuccess ResultCode = iota
	ResultInvalidParameter
	ResultNack
	ResultBusError
)

// String returns a human-readable representation of the result.
func (r ResultCode) String() string {
	switch r {
	case ResultSuccess:
		return "SUCCESS"
	case ResultInvalidParameter:
		return "INVALID_PARAMETER"
	case ResultNack:
		return "NACK"
	case ResultBusError:
		return "BUS_ERROR"
	default:
		return fmt.Sprintf("RESULT_%d", uint8(r))
	}
}
