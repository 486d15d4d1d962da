package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goburrow/modbus"
)

// connection is an open client handler for one unit, keyed by its access string.
type connection struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

var connections = make(map[string]*connection)

// parseAccess splits a tcp:host:port:unit access string.
func parseAccess(access string) (string, byte, error) {
	parts := strings.Split(access, ":")
	if parts[0] != "tcp" {
		return "", 0, fmt.Errorf("unknown modbus connection type %v (expect tcp)", parts[0])
	}
	if len(parts) != 4 {
		return "", 0, fmt.Errorf("expect exactly 4 parts for TCP client access tcp:host:port:unit - not: %v", access)
	}
	if _, err := strconv.Atoi(parts[2]); err != nil {
		return "", 0, fmt.Errorf("illegal port %v: %w", parts[2], err)
	}
	unit, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, err
	}
	if unit < 0 || unit > 255 {
		return "", 0, fmt.Errorf("illegal unit %v", unit)
	}
	return strings.Join(parts[1:3], ":"), byte(unit), nil
}

func client(access string, timeout time.Duration) (*connection, error) {
	if c, ok := connections[access]; ok {
		return c, nil
	}
	host, unit, err := parseAccess(access)
	if err != nil {
		return nil, err
	}
	handler := modbus.NewTCPClientHandler(host)
	handler.SlaveId = unit
	handler.Timeout = timeout
	if err := handler.Connect(); err != nil {
		return nil, err
	}
	c := &connection{handler, modbus.NewClient(handler)}
	connections[access] = c
	return c, nil
}

func closeConnections() {
	for access, c := range connections {
		c.handler.Close()
		delete(connections, access)
	}
}

// rawRequest sends a PDU the goburrow client has no method for and returns the response data.
func rawRequest(handler modbus.ClientHandler, function byte, data []byte) ([]byte, error) {
	request := modbus.ProtocolDataUnit{FunctionCode: function, Data: data}
	aduRequest, err := handler.Encode(&request)
	if err != nil {
		return nil, err
	}
	aduResponse, err := handler.Send(aduRequest)
	if err != nil {
		return nil, err
	}
	if err = handler.Verify(aduRequest, aduResponse); err != nil {
		return nil, err
	}
	response, err := handler.Decode(aduResponse)
	if err != nil {
		return nil, err
	}
	if response.FunctionCode == function|0x80 && len(response.Data) == 1 {
		return nil, &modbus.ModbusError{FunctionCode: response.FunctionCode, ExceptionCode: response.Data[0]}
	}
	if response.FunctionCode != function {
		return nil, fmt.Errorf("response function 0x%02x does not match request 0x%02x", response.FunctionCode, function)
	}
	return response.Data, nil
}
