package domain

// TransferID tags an outgoing request so its asynchronous reply can be
// correlated. 0 is reserved for unsolicited notifications and is never
// allocated to a request.
type TransferID uint16

// NotificationID is the transfer id carried by unsolicited frames.
const NotificationID TransferID = 0

// SequenceID identifies one submitted sequence of operations.
type SequenceID uint64

// Frame is a single inbound unit delivered by the transport.
// A frame with ID 0 is a notification; any other ID is a response
// correlated to a prior request.
type Frame struct {
	// ID is the transfer id echoed by the device
	ID TransferID

	// Command is the command the frame answers (or the notification kind)
	Command Command

	// Result is the device-side outcome of the command
	Result ResultCode

	// Payload carries command-specific data
	Payload []byte
}

// IsNotification reports whether the frame is unsolicited.
func (f Frame) IsNotification() bool {
	return f.ID == NotificationID
}

// Ack is the synchronous acknowledgement returned by Transport.Send.
// Opcode 0 means the request was accepted and the final result arrives
// asynchronously. Any other opcode means the request was rejected before
// transmission and the ack is itself the final result.
type Ack struct {
	Opcode  Opcode
	Result  ResultCode
	Payload []byte
}

// Accepted reports whether an asynchronous reply will follow.
func (a Ack) Accepted() bool {
	return a.Opcode == OpcodeAccepted
}

// Request is one operation addressed to the host adapter.
// Params holds one of the typed parameter structs in params.go.
type Request struct {
	Command Command
	Params  any
}

// Response is the final result of one request, either the correlated
// reply frame or the rejecting ack.
type Response struct {
	ID      TransferID
	Command Command
	Result  ResultCode
	Payload []byte

	// Opcode is the immediate-ack opcode. Nonzero means the request never
	// reached the device and Result/Payload come from the ack.
	Opcode Opcode

	// Err is set when the transport failed to send a sequence step.
	Err error
}

// Rejected reports whether the request was refused before transmission.
func (r Response) Rejected() bool {
	return r.Opcode != OpcodeAccepted || r.Err != nil
}

// OK reports whether the request reached the device and succeeded.
func (r Response) OK() bool {
	return !r.Rejected() && r.Result == ResultSuccess
}

// ResponseFromFrame converts a correlated reply frame into a Response.
func ResponseFromFrame(f Frame) Response {
	return Response{
		ID:      f.ID,
		Command: f.Command,
		Result:  f.Result,
		Payload: f.Payload,
	}
}

// ResponseFromAck converts a rejecting ack into a Response.
func ResponseFromAck(id TransferID, cmd Command, a Ack) Response {
	return Response{
		ID:      id,
		Command: cmd,
		Result:  a.Result,
		Payload: a.Payload,
		Opcode:  a.Opcode,
	}
}
