// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

import (
	"errors"
	"fmt"
)

var (
	ErrPayloadTooLong = errors.New("rd2: payload longer than 8 bytes")
	ErrShortPayload   = errors.New("rd2: payload too short")
	ErrStateIndex     = errors.New("rd2: vehicle state index out of range")
	ErrChannelRange   = errors.New("rd2: controller channel out of range")
)

// ErrorKind classifies a decode failure
type ErrorKind int

const (
	KindPayloadTooLong ErrorKind = iota
	KindShortPayload
	KindStateIndex
	KindChannelRange
)

func (k ErrorKind) String() string {
	switch k {
	case KindPayloadTooLong:
		return "PAYLOAD_TOO_LONG"
	case KindShortPayload:
		return "SHORT_PAYLOAD"
	case KindStateIndex:
		return "STATE_INDEX"
	case KindChannelRange:
		return "CHANNEL_RANGE"
	default:
		return "UNKNOWN"
	}
}

// DecodeError reports a frame that could not be fully decoded. Whatever the
// handler managed to decode before the failure stays applied.
type DecodeError struct {
	Kind    ErrorKind
	Address uint16
	Route   Route
	Err     error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s @%d: %v", e.Route, e.Address, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func shortPayload(route Route, addr uint16, need, got int) error {
	return &DecodeError{
		Kind:    KindShortPayload,
		Address: addr,
		Route:   route,
		Err:     fmt.Errorf("%w: need %d bytes, got %d", ErrShortPayload, need, got),
	}
}
