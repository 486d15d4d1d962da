package modbus

/*
this file contains some utility functions
*/

import "fmt"

func wordClamp(val int) int {
	if val < 0 {
		return 0
	}
	if val > 65535 {
		return 65535
	}
	return val
}

func checkPanic(to string, val int, max int) {
	if val < 0 {
		panic(fmt.Sprintf("Unable to convert %v to %v - negative", val, to))
	}
	if val > max {
		panic(fmt.Sprintf("Unable to convert %v to %v - exceeds max value %v", val, to, max))
	}
}

func wordPanic(val int) uint16 {
	checkPanic("uint16", val, 65535)
	return uint16(val)
}

func bytePanic(val int) byte {
	checkPanic("byte", val, 255)
	return byte(val)
}

// getWord retrieves a 16-bit word in standard Modbus layout (bigendian) from a byte slice.
func getWord(data []byte, index int) uint16 {
	return uint16(data[index])<<8 | uint16(data[index+1])
}

// setWord sets a 16-bit word in standard Modbus layout (bigendian) in a byte slice.
func setWord(data []byte, index int, value uint16) {
	data[index] = byte(value >> 8)
	data[index+1] = byte(value & 0xFF)
}

func wordsToInts(words []uint16) []int {
	ints := make([]int, len(words))
	for i, w := range words {
		ints[i] = int(w)
	}
	return ints
}

func intsToWords(ints []int) []uint16 {
	w := make([]uint16, len(ints))
	for i, v := range ints {
		w[i] = wordPanic(v)
	}
	return w
}

// checkAddress validates that an address and length is covered by the available data.
// Out of range requests are rejected, never clamped.
func checkAddress(name string, address, count, limit int) error {
	if address >= 0 && count >= 0 && address+count <= limit {
		return nil
	}
	plural := "s"
	if count == 1 {
		plural = ""
	}
	return IllegalAddressErrorF("%v: unable to get %v item%v from %v with limit of %v", name, count, plural, address, limit)
}

// checkQuantity validates the register quantity of a request against the protocol limit.
func checkQuantity(name string, count, max int) error {
	if count < 1 || count > max {
		return IllegalValueErrorF("%v: quantity %v outside 1..%v", name, count, max)
	}
	return nil
}
