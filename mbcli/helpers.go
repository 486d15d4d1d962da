package main

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type addressedRange struct {
	address int
	count   int
}

func addressRanges(refs []string) ([]addressedRange, error) {
	ret := []addressedRange{}
	for _, ref := range refs {
		parts := strings.Split(ref, ":")
		add, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, err
		}
		cnt := 1
		if len(parts) > 1 {
			cnt, err = strconv.Atoi(parts[1])
			if err != nil {
				return nil, err
			}
		}
		if add < 0 || add > 65535 {
			return nil, fmt.Errorf("illegal address %v", parts[0])
		}
		if cnt < 1 || cnt > 125 {
			return nil, fmt.Errorf("illegal count %v (expect 1 to 125)", cnt)
		}
		ret = append(ret, addressedRange{add, cnt})
	}
	return ret, nil
}

type addressedValues struct {
	address int
	values  []uint16
}

func addressValues(refs []string) ([]addressedValues, error) {
	ret := []addressedValues{}
	for _, ref := range refs {
		parts := strings.Split(ref, ":")
		add, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, err
		}
		if add < 0 || add > 65535 {
			return nil, fmt.Errorf("illegal address %v", parts[0])
		}
		vals := []uint16{}
		for _, piece := range parts[1:] {
			valstrs := strings.Split(piece, ",")
			for _, sval := range valstrs {
				val, err := strconv.Atoi(sval)
				if err != nil {
					return nil, err
				}
				if val < 0 || val > 65535 {
					return nil, fmt.Errorf("illegal value %v", sval)
				}
				vals = append(vals, uint16(val))
			}
		}
		if len(vals) == 0 {
			return nil, fmt.Errorf("no values given for address %v", add)
		}
		ret = append(ret, addressedValues{add, vals})
	}
	return ret, nil
}

// registerValues decodes the big-endian register bytes returned by the client.
func registerValues(data []byte) []uint16 {
	vals := make([]uint16, len(data)/2)
	for i := range vals {
		vals[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return vals
}

func registerBytes(values []uint16) []byte {
	data := make([]byte, len(values)*2)
	for i, v := range values {
		binary.BigEndian.PutUint16(data[i*2:], v)
	}
	return data
}

func initializeConnections(units []string, timeout time.Duration) error {
	for _, sys := range units {
		_, err := client(sys, timeout)
		if err != nil {
			return err
		}
	}
	return nil
}
