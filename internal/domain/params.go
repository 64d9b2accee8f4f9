package domain

// USBString selects which descriptor string GetUSBString returns.
type USBString uint8

const (
	USBStringManufacturer USBString = iota + 1
	USBStringProductName
	USBStringSerialNumber
	USBStringFirmwareVersion
	USBStringHardwareVersion
)

// String returns the descriptor name.
func (s USBString) String() string {
	switch s {
	case USBStringManufacturer:
		return "manufacturer"
	case USBStringProductName:
		return "product_name"
	case USBStringSerialNumber:
		return "serial_number"
	case USBStringFirmwareVersion:
		return "fw_version"
	case USBStringHardwareVersion:
		return "hw_version"
	default:
		return "unknown"
	}
}

// USBStringParams are the parameters of CmdGetUSBString.
type USBStringParams struct {
	Kind USBString
}

// BusVoltageParams are the parameters of CmdSetBusVoltage.
type BusVoltageParams struct {
	MilliVolts uint16
}

// I2CConfigParams are the parameters of CmdI2CSetParameters.
type I2CConfigParams struct {
	Baudrate uint32
}

// I2CTransferParams are the parameters of every I2C data command.
// Register is sent before Data (writes) or before the read (ReadFrom);
// Length is the number of bytes to read.
type I2CTransferParams struct {
	Address  uint8
	Register []byte
	Data     []byte
	Length   uint16
}
