package main

import (
	"encoding/binary"
	"fmt"
	"time"
)

// diagnostic sub functions of function 0x08 that return a counter
var diagnosticCounts = []struct {
	name  string
	subfn uint16
}{
	{"Bus Messages", 0x0b},
	{"Bus Errors", 0x0c},
	{"Bus Exceptions", 0x0d},
	{"Server Messages", 0x0e},
	{"Bus Overruns", 0x12},
}

type DiagnosticCommands struct {
	ServerID bool     `short:"s" long:"serverid" description:"Return the ServerID value"`
	DeviceID bool     `short:"d" long:"deviceid" description:"Return the DeviceID values"`
	Counts   bool     `short:"c" long:"counts" description:"Return the Diagnostic counter values"`
	Events   bool     `short:"e" long:"events" description:"Return the Event counter value"`
	Clear    bool     `short:"C" long:"clear" description:"Reset the Diagnostic counter values"`
	Timeout  int      `short:"t" long:"timeout" default:"5" description:"Timeout (in seconds)"`
	Units    []string `short:"u" long:"unit" description:"Unit(s) to contact" required:"true" env:"MBCLI_UNIT" env-delim:","`
}

func (c *DiagnosticCommands) Execute(args []string) error {
	timeout := time.Second * time.Duration(c.Timeout)
	if err := initializeConnections(c.Units, timeout); err != nil {
		return err
	}
	defer closeConnections()

	for _, sys := range c.Units {
		conn, _ := client(sys, timeout)
		if c.ServerID {
			if data, err := rawRequest(conn.handler, 0x11, nil); err != nil {
				fmt.Printf("ServerID: Failed: %v\n", err)
			} else {
				id, running := decodeServerID(data)
				fmt.Printf("ServerID: %q Running %v\n", id, running)
			}
		}
		if c.DeviceID {
			if data, err := rawRequest(conn.handler, 0x2b, []byte{0x0e, 0x01, 0x00}); err != nil {
				fmt.Printf("DeviceID: Failed: %v\n", err)
			} else if objs, err := decodeDeviceID(data); err != nil {
				fmt.Printf("DeviceID: Failed: %v\n", err)
			} else {
				for _, obj := range objs {
					fmt.Printf("DeviceID 0x%02x: %v\n", obj.oid, obj.value)
				}
			}
		}
		if c.Counts {
			for _, count := range diagnosticCounts {
				if cnt, err := diagnostic(conn, count.subfn); err != nil {
					fmt.Printf("Count %v: Failed: %v\n", count.name, err)
				} else {
					fmt.Printf("Count %v: %v\n", count.name, cnt)
				}
			}
		}
		if c.Events {
			if data, err := rawRequest(conn.handler, 0x0b, nil); err != nil {
				fmt.Printf("Event Counter: Failed: %v\n", err)
			} else if len(data) != 4 {
				fmt.Printf("Event Counter: Failed: expected 4 bytes, got %v\n", len(data))
			} else {
				fmt.Printf("Event Counter: %v\n", binary.BigEndian.Uint16(data[2:]))
			}
		}
		if c.Clear {
			if _, err := diagnostic(conn, 0x0a); err != nil {
				fmt.Printf("Diagnostic Reset: Failed: %v\n", err)
			} else {
				fmt.Printf("Diagnostic counters reset\n")
			}
		}
	}
	return nil
}

func diagnostic(conn *connection, subfn uint16) (uint16, error) {
	req := []byte{byte(subfn >> 8), byte(subfn), 0, 0}
	data, err := rawRequest(conn.handler, 0x08, req)
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("expected 4 bytes of diagnostic response, got %v", len(data))
	}
	return binary.BigEndian.Uint16(data[2:]), nil
}

func decodeServerID(data []byte) (string, bool) {
	if len(data) < 2 {
		return "", false
	}
	n := int(data[0])
	if n < 1 || n >= len(data) {
		return "", false
	}
	// the id is followed by the run indicator
	return string(data[1:n]), data[n] == 0xff
}

type deviceObject struct {
	oid   int
	value string
}

// decodeDeviceID returns the objects of a Read Device Identification response, in the order sent.
func decodeDeviceID(data []byte) ([]deviceObject, error) {
	if len(data) < 6 || data[0] != 0x0e {
		return nil, fmt.Errorf("malformed device identification response % x", data)
	}
	count := int(data[5])
	objs := make([]deviceObject, 0, count)
	pos := 6
	for i := 0; i < count; i++ {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("device identification truncated at object %v", i)
		}
		oid := int(data[pos])
		size := int(data[pos+1])
		pos += 2
		if pos+size > len(data) {
			return nil, fmt.Errorf("device identification object 0x%02x truncated", oid)
		}
		objs = append(objs, deviceObject{oid, string(data[pos : pos+size])})
		pos += size
	}
	return objs, nil
}
