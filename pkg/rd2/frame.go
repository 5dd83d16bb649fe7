// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Frame is one raw bus frame as handed over by a frame source
type Frame struct {
	Identifier uint32
	Data       []byte
}

// NewFrame creates a new Frame and copies the data slice
func NewFrame(identifier uint32, data []byte) Frame {
	d := make([]byte, len(data))
	copy(d, data)
	return Frame{Identifier: identifier, Data: d}
}

// Address returns the 11-bit logical address packed in the identifier
func (f Frame) Address() uint16 {
	return uint16(f.Identifier & AddressMask)
}

// DLC returns the payload length
func (f Frame) DLC() int {
	return len(f.Data)
}

// Validate returns an error if the payload does not fit a classical frame
func (f Frame) Validate() error {
	if len(f.Data) > MaxPayloadSize {
		return &DecodeError{
			Kind:    KindPayloadTooLong,
			Address: f.Address(),
			Route:   Classify(f.Address()),
			Err:     fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(f.Data)),
		}
	}
	return nil
}

var (
	blue  = color.New(color.FgHiBlue).SprintfFunc()
	red   = color.New(color.FgRed).SprintfFunc()
	green = color.New(color.FgGreen).SprintfFunc()
)

func (f Frame) hexView() string {
	var hexView strings.Builder
	for i, b := range f.Data {
		hexView.WriteString(fmt.Sprintf("%02X", b))
		if i != len(f.Data)-1 {
			hexView.WriteString(" ")
		}
	}
	return fmt.Sprintf("%-23s", hexView.String())
}

func (f Frame) binView() string {
	var binView strings.Builder
	for i, b := range f.Data {
		binView.WriteString(fmt.Sprintf("%08b", b))
		if i != len(f.Data)-1 {
			binView.WriteString(" ")
		}
	}
	return fmt.Sprintf("%-71s", binView.String())
}

func (f Frame) String() string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("0x%08X @%4d || %d || ", f.Identifier, f.Address(), len(f.Data)))
	out.WriteString(f.hexView())
	out.WriteString(" || ")
	out.WriteString(f.binView())
	return out.String()
}

// ColorString is String with the identifier, payload and route highlighted
func (f Frame) ColorString() string {
	var out strings.Builder
	out.WriteString(green("0x%08X", f.Identifier))
	out.WriteString(blue(" @%4d", f.Address()))
	out.WriteString(fmt.Sprintf(" || %d || ", len(f.Data)))
	out.WriteString(f.hexView())
	out.WriteString(" || ")
	out.WriteString(red("%s", f.binView()))
	return out.String()
}
