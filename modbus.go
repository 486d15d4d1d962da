/*
Package modbus provides a Modbus TCP server that simulates a single unit exposing a bank of holding registers.

The simulator stands in for a real device when testing a Modbus client. It is built from three pieces:

A RegisterBank holds the register values. All access to it is serialized, and every successful write is reported to a
HoldingObserver, one call per written address in ascending order:

	labels := modbus.DefaultLabels()
	bank, _ := modbus.NewRegisterBank(120, modbus.NewChangeLogger(labels, logger))

A Server answers the requests addressed to one unit id, using the bank for the holding register functions (0x03, 0x06,
0x10, 0x16 and 0x17) and answering the diagnostic and identification functions from its own state:

	server, _ := modbus.NewServer(modbus.ServerConfig{UnitID: 1, Bank: bank, Identity: modbus.DefaultIdentity()})

A TCPServer accepts connections and runs one session per connection against the Server:

	tcpserv, _ := modbus.NewTCPServer(":5020", server, logger)
	defer tcpserv.Shutdown(ctx)

Requests for another unit id, unsupported function codes and out of range addresses are answered with exception
responses, and the connection stays open. A frame that cannot be decoded closes the connection without a response.

The Modbus protocol relies heavily on 8-bit byte and 16-bit word values to communicate data. Internally the request
handlers work with Go `int` values; where converting to the valid Modbus type is not possible due to out-of-range values,
a panic will be generated. Register values crossing the public interface are uint16.
*/
package modbus

// pdu is the function and data sent on the Modbus.
type pdu struct {
	function byte
	data     []byte
}

// adu is a pdu with its Modbus TCP addressing: the transaction it belongs to and the unit it targets.
type adu struct {
	txid uint16
	unit byte
	pdu  pdu
}
