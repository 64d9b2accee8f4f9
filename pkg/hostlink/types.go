package hostlink

import (
	"github.com/bft-labs/hostlink/internal/app"
	"github.com/bft-labs/hostlink/internal/domain"
	"github.com/bft-labs/hostlink/internal/ports"
)

// Re-exported domain types.
type (
	Transport  = ports.Transport
	TransferID = domain.TransferID
	SequenceID = domain.SequenceID
	Frame      = domain.Frame
	Ack        = domain.Ack
	Request    = domain.Request
	Response   = domain.Response
	Command    = domain.Command
	Opcode     = domain.Opcode
	ResultCode = domain.ResultCode
	USBString  = domain.USBString

	USBStringParams   = domain.USBStringParams
	BusVoltageParams  = domain.BusVoltageParams
	I2CConfigParams   = domain.I2CConfigParams
	I2CTransferParams = domain.I2CTransferParams

	// Step is one operation of a sequence; build it with Hostlink.Step.
	Step = app.Step

	// Stats is a snapshot of the dispatcher counters.
	Stats = app.Stats
)

const (
	NotificationID = domain.NotificationID

	CmdGetUSBString     = domain.CmdGetUSBString
	CmdSetBusVoltage    = domain.CmdSetBusVoltage
	CmdI2CSetParameters = domain.CmdI2CSetParameters
	CmdI2CWrite         = domain.CmdI2CWrite
	CmdI2CWriteNonStop  = domain.CmdI2CWriteNonStop
	CmdI2CRead          = domain.CmdI2CRead
	CmdI2CReadFrom      = domain.CmdI2CReadFrom
	CmdNotification     = domain.CmdNotification

	OpcodeAccepted          = domain.OpcodeAccepted
	OpcodeUnknownCommand    = domain.OpcodeUnknownCommand
	OpcodeInvalidParameters = domain.OpcodeInvalidParameters
	OpcodeNotOpen           = domain.OpcodeNotOpen

	ResultSuccess          = domain.ResultSuccess
	ResultInvalidParameter = domain.ResultInvalidParameter
	ResultNack             = domain.ResultNack
	ResultBusError         = domain.ResultBusError

	USBStringManufacturer    = domain.USBStringManufacturer
	USBStringProductName     = domain.USBStringProductName
	USBStringSerialNumber    = domain.USBStringSerialNumber
	USBStringFirmwareVersion = domain.USBStringFirmwareVersion
	USBStringHardwareVersion = domain.USBStringHardwareVersion
)

// Errors returned by Hostlink. Check them with errors.Is.
var (
	ErrAlreadyRunning   = domain.ErrAlreadyRunning
	ErrNotRunning       = domain.ErrNotRunning
	ErrShutdownTimeout  = domain.ErrShutdownTimeout
	ErrInvalidConfig    = domain.ErrInvalidConfig
	ErrTimeout          = domain.ErrTimeout
	ErrUnknownSequence  = domain.ErrUnknownSequence
	ErrUnknownOperation = domain.ErrUnknownOperation
)
