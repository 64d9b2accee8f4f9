package sim

import (
	"encoding/binary"

	"github.com/bft-labs/hostlink/internal/domain"
)

// execute applies req to the device state. A nonzero opcode rejects the
// request synchronously; otherwise result and payload form the reply.
// Must hold d.mu.
func (d *Device) execute(req domain.Request) (domain.ResultCode, []byte, domain.Opcode) {
	switch req.Command {
	case domain.CmdGetUSBString:
		p, ok := req.Params.(domain.USBStringParams)
		if !ok {
			return 0, nil, domain.OpcodeInvalidParameters
		}
		s, ok := d.cfg.Strings[p.Kind]
		if !ok {
			return 0, nil, domain.OpcodeInvalidParameters
		}
		return domain.ResultSuccess, []byte(s), domain.OpcodeAccepted

	case domain.CmdSetBusVoltage:
		p, ok := req.Params.(domain.BusVoltageParams)
		if !ok {
			return 0, nil, domain.OpcodeInvalidParameters
		}
		if p.MilliVolts < MinBusVoltage || p.MilliVolts > MaxBusVoltage {
			return domain.ResultInvalidParameter, nil, domain.OpcodeAccepted
		}
		d.voltage = p.MilliVolts
		return domain.ResultSuccess, nil, domain.OpcodeAccepted

	case domain.CmdI2CSetParameters:
		p, ok := req.Params.(domain.I2CConfigParams)
		if !ok || p.Baudrate < MinBaudrate || p.Baudrate > MaxBaudrate {
			return 0, nil, domain.OpcodeInvalidParameters
		}
		d.baudrate = p.Baudrate
		return domain.ResultSuccess, nil, domain.OpcodeAccepted

	case domain.CmdI2CWrite, domain.CmdI2CWriteNonStop, domain.CmdI2CRead, domain.CmdI2CReadFrom:
		p, ok := req.Params.(domain.I2CTransferParams)
		if !ok || len(p.Register)+len(p.Data) > MaxTransferSize || int(p.Length) > MaxTransferSize {
			return 0, nil, domain.OpcodeInvalidParameters
		}
		result, payload := d.transfer(req.Command, p)
		return result, payload, domain.OpcodeAccepted

	default:
		return 0, nil, domain.OpcodeUnknownCommand
	}
}

// transfer runs one I2C transaction against the EEPROM. The register is a
// big-endian memory address; writes and reads advance the address pointer
// and wrap at the end of the array.
func (d *Device) transfer(cmd domain.Command, p domain.I2CTransferParams) (domain.ResultCode, []byte) {
	if p.Address != d.cfg.I2CAddress {
		return domain.ResultNack, nil
	}

	switch len(p.Register) {
	case 0:
		if cmd == domain.CmdI2CReadFrom {
			return domain.ResultInvalidParameter, nil
		}
	case 2:
		d.pointer = binary.BigEndian.Uint16(p.Register) % EEPROMSize
	default:
		return domain.ResultInvalidParameter, nil
	}

	switch cmd {
	case domain.CmdI2CWrite, domain.CmdI2CWriteNonStop:
		for _, b := range p.Data {
			d.eeprom[d.pointer] = b
			d.advance()
		}
		return domain.ResultSuccess, nil

	default:
		out := make([]byte, p.Length)
		for i := range out {
			out[i] = d.eeprom[d.pointer]
			d.advance()
		}
		return domain.ResultSuccess, out
	}
}

func (d *Device) advance() {
	d.pointer = (d.pointer + 1) % EEPROMSize
}
