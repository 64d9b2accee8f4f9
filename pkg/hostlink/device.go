package hostlink

import (
	"context"
	"fmt"
)

// ResponseError reports a request that was rejected by its ack or that the
// device answered with a non-success result.
type ResponseError struct {
	Response Response
}

func (e *ResponseError) Error() string {
	r := e.Response
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s: %v", r.Command, r.Err)
	case r.Opcode != OpcodeAccepted:
		return fmt.Sprintf("%s rejected: %s", r.Command, r.Opcode)
	default:
		return fmt.Sprintf("%s failed: %s", r.Command, r.Result)
	}
}

func (e *ResponseError) Unwrap() error {
	return e.Response.Err
}

// Check returns a *ResponseError unless r succeeded.
func Check(r Response) error {
	if r.OK() {
		return nil
	}
	return &ResponseError{Response: r}
}

// DeviceInfo holds the USB descriptor strings of a host adapter.
type DeviceInfo struct {
	Manufacturer    string `json:"manufacturer" yaml:"manufacturer"`
	ProductName     string `json:"product_name" yaml:"product_name"`
	SerialNumber    string `json:"serial_number" yaml:"serial_number"`
	FirmwareVersion string `json:"fw_version" yaml:"fw_version"`
	HardwareVersion string `json:"hw_version" yaml:"hw_version"`
}

// Device exposes one typed method per host adapter capability on top of a
// running Hostlink. Every method blocks until the device answers.
type Device struct {
	h *Hostlink
}

// NewDevice returns the typed view of h.
func NewDevice(h *Hostlink) *Device {
	return &Device{h: h}
}

func (d *Device) call(ctx context.Context, req Request) (Response, error) {
	resp, err := d.h.Call(ctx, req, 0)
	if err != nil {
		return Response{}, err
	}
	return resp, Check(resp)
}

// USBString reads one USB descriptor string.
func (d *Device) USBString(ctx context.Context, kind USBString) (string, error) {
	resp, err := d.call(ctx, Request{Command: CmdGetUSBString, Params: USBStringParams{Kind: kind}})
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// DeviceInfo reads every descriptor string as one sequence.
func (d *Device) DeviceInfo(ctx context.Context) (DeviceInfo, error) {
	kinds := []USBString{
		USBStringManufacturer,
		USBStringProductName,
		USBStringSerialNumber,
		USBStringFirmwareVersion,
		USBStringHardwareVersion,
	}
	steps := make([]Step, len(kinds))
	for i, k := range kinds {
		steps[i] = d.h.Step(Request{Command: CmdGetUSBString, Params: USBStringParams{Kind: k}})
	}

	resps, err := d.h.Invoke(ctx, steps, 0)
	if err != nil {
		return DeviceInfo{}, err
	}
	for _, r := range resps {
		if err := Check(r); err != nil {
			return DeviceInfo{}, err
		}
	}
	return DeviceInfo{
		Manufacturer:    string(resps[0].Payload),
		ProductName:     string(resps[1].Payload),
		SerialNumber:    string(resps[2].Payload),
		FirmwareVersion: string(resps[3].Payload),
		HardwareVersion: string(resps[4].Payload),
	}, nil
}

// SetBusVoltage sets the I2C/SPI/UART I/O voltage in millivolts.
func (d *Device) SetBusVoltage(ctx context.Context, milliVolts uint16) error {
	_, err := d.call(ctx, Request{Command: CmdSetBusVoltage, Params: BusVoltageParams{MilliVolts: milliVolts}})
	return err
}

// I2CSetParameters configures the I2C clock.
func (d *Device) I2CSetParameters(ctx context.Context, baudrate uint32) error {
	_, err := d.call(ctx, Request{Command: CmdI2CSetParameters, Params: I2CConfigParams{Baudrate: baudrate}})
	return err
}

// I2CWrite writes register followed by data and ends with a stop condition.
func (d *Device) I2CWrite(ctx context.Context, addr uint8, register, data []byte) error {
	_, err := d.call(ctx, Request{Command: CmdI2CWrite, Params: I2CTransferParams{Address: addr, Register: register, Data: data}})
	return err
}

// I2CWriteNonStop writes without a stop condition, typically to set the
// register pointer before a read.
func (d *Device) I2CWriteNonStop(ctx context.Context, addr uint8, register, data []byte) error {
	_, err := d.call(ctx, Request{Command: CmdI2CWriteNonStop, Params: I2CTransferParams{Address: addr, Register: register, Data: data}})
	return err
}

// I2CRead reads length bytes from the current register pointer.
func (d *Device) I2CRead(ctx context.Context, addr uint8, length uint16) ([]byte, error) {
	resp, err := d.call(ctx, Request{Command: CmdI2CRead, Params: I2CTransferParams{Address: addr, Length: length}})
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// I2CReadFrom writes register with a repeated start, then reads length bytes.
func (d *Device) I2CReadFrom(ctx context.Context, addr uint8, register []byte, length uint16) ([]byte, error) {
	resp, err := d.call(ctx, Request{Command: CmdI2CReadFrom, Params: I2CTransferParams{Address: addr, Register: register, Length: length}})
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}
