package modbus

import (
	"errors"
	"fmt"
)

// Modbus exception codes carried in exception responses.
const (
	ExceptionIllegalFunction    = 0x01
	ExceptionIllegalDataAddress = 0x02
	ExceptionIllegalDataValue   = 0x03
	ExceptionServerFailure      = 0x04
	ExceptionGatewayTarget      = 0x0B
)

// ErrTruncatedPDU is returned when a request PDU is shorter than its function code requires.
// The session that received it is closed, since frame boundaries can no longer be trusted.
var ErrTruncatedPDU = errors.New("truncated PDU")

// ErrMalformedHeader is returned when an MBAP header carries a protocol id other than 0 or a length outside 2..254.
var ErrMalformedHeader = errors.New("malformed MBAP header")

// Error is a custom type for Modbus errors
type Error struct {
	msg  string
	code uint8
}

func (err *Error) Error() string {
	return err.msg
}

// Code is the Modbus code used to identify the type of modbus error
func (err *Error) Code() uint8 {
	return err.code
}

// asPDU returns the error in the form of a Modbus exception response PDU
func (err *Error) asPDU(function uint8) pdu {
	return pdu{function | 0x80, []byte{err.code}}
}

// IllegalFunctionErrorF represents an invalid function code - Modbus error code 1
func IllegalFunctionErrorF(format string, args ...interface{}) *Error {
	return &Error{fmt.Sprintf(format, args...), ExceptionIllegalFunction}
}

// IllegalAddressErrorF represents an invalid address - Modbus error code 2
func IllegalAddressErrorF(format string, args ...interface{}) *Error {
	return &Error{fmt.Sprintf(format, args...), ExceptionIllegalDataAddress}
}

// IllegalValueErrorF represents an illegal data value - Modbus error code 3
func IllegalValueErrorF(format string, args ...interface{}) *Error {
	return &Error{fmt.Sprintf(format, args...), ExceptionIllegalDataValue}
}

// ServerFailureErrorF represents an error that is not represented by the above types  - Modbus error code 4
func ServerFailureErrorF(format string, args ...interface{}) *Error {
	return &Error{fmt.Sprintf(format, args...), ExceptionServerFailure}
}

// GatewayTargetErrorF represents a request for a unit id this server does not answer for - Modbus error code 11
func GatewayTargetErrorF(format string, args ...interface{}) *Error {
	return &Error{fmt.Sprintf(format, args...), ExceptionGatewayTarget}
}

// IsException reports whether err carries the given Modbus exception code.
func IsException(err error, code uint8) bool {
	var mError *Error
	return errors.As(err, &mError) && mError.code == code
}
