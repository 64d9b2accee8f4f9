package hostlink

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/bft-labs/hostlink/internal/domain"
)

// Args are the loosely typed parameters of a named operation, as received
// from the command line or the JSON-RPC bridge. Register and Data are hex.
type Args struct {
	String     string `json:"string,omitempty"`
	MilliVolts uint16 `json:"millivolts,omitempty"`
	Baudrate   uint32 `json:"baudrate,omitempty"`
	Address    uint8  `json:"address,omitempty"`
	Register   string `json:"register,omitempty"`
	Data       string `json:"data,omitempty"`
	Length     uint16 `json:"length,omitempty"`
}

// Operation builds typed requests for one named host adapter command.
type Operation struct {
	Name    string
	Command Command
	build   func(Args) (any, error)
}

// Request converts args into a request for the operation.
func (o Operation) Request(args Args) (Request, error) {
	params, err := o.build(args)
	if err != nil {
		return Request{}, fmt.Errorf("%s: %w", o.Name, err)
	}
	return Request{Command: o.Command, Params: params}, nil
}

var operations = map[string]Operation{}

func register(name string, cmd Command, build func(Args) (any, error)) {
	operations[name] = Operation{Name: name, Command: cmd, build: build}
}

func init() {
	register("get_usb_string", CmdGetUSBString, func(a Args) (any, error) {
		kind, err := ParseUSBString(a.String)
		if err != nil {
			return nil, err
		}
		return USBStringParams{Kind: kind}, nil
	})
	register("set_bus_voltage", CmdSetBusVoltage, func(a Args) (any, error) {
		return BusVoltageParams{MilliVolts: a.MilliVolts}, nil
	})
	register("i2c_set_parameters", CmdI2CSetParameters, func(a Args) (any, error) {
		return I2CConfigParams{Baudrate: a.Baudrate}, nil
	})
	register("i2c_write", CmdI2CWrite, transferParams)
	register("i2c_write_non_stop", CmdI2CWriteNonStop, transferParams)
	register("i2c_read", CmdI2CRead, transferParams)
	register("i2c_read_from", CmdI2CReadFrom, transferParams)
}

func transferParams(a Args) (any, error) {
	reg, err := hex.DecodeString(a.Register)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	data, err := hex.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return I2CTransferParams{Address: a.Address, Register: reg, Data: data, Length: a.Length}, nil
}

// LookupOperation returns the operation registered under name.
func LookupOperation(name string) (Operation, error) {
	op, ok := operations[name]
	if !ok {
		return Operation{}, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return op, nil
}

// Operations returns the registered operation names in sorted order.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseUSBString parses a descriptor name such as "serial_number".
func ParseUSBString(name string) (USBString, error) {
	for k := domain.USBStringManufacturer; k <= domain.USBStringHardwareVersion; k++ {
		if strings.EqualFold(k.String(), name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown usb string %q", name)
}
