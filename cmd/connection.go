// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/gorilla/websocket"
	"github.com/manifoldco/promptui"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// Connection provides a common interface for reading/writing bytes from serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	// Take the adapter off the bus before releasing the port
	if _, err := s.port.Write([]byte("C\r")); err != nil {
		logger.Error("Failed to close SLCAN channel: %v", err)
	}
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConnection wraps a WebSocket connection for byte-level reading.
// The bridge forwards the adapter's SLCAN text either as text or binary
// messages.
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	// Return immediately if connection is known to be closed
	if w.closed {
		return 0, ErrConnectionClosed
	}

	// If we have buffered data, return it first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	// Read next message from WebSocket (non-recursive loop to avoid stack overflow)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			// Mark connection as closed to prevent further read attempts
			w.closed = true
			return 0, err
		}
		// SLCAN text arrives as either message type; skip control and empty messages
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			continue
		}
		if len(data) == 0 {
			continue
		}

		// Buffer the message and return what fits
		w.buf = data
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	err := w.conn.WriteMessage(websocket.TextMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// slcanBitrateCommand returns the SLCAN command selecting a standard bitrate
func slcanBitrateCommand(bitrate int) (string, error) {
	switch bitrate {
	case 10000:
		return "S0", nil
	case 20000:
		return "S1", nil
	case 50000:
		return "S2", nil
	case 100000:
		return "S3", nil
	case 125000:
		return "S4", nil
	case 250000:
		return "S5", nil
	case 500000:
		return "S6", nil
	case 750000:
		return "S7", nil
	case 1000000:
		return "S8", nil
	default:
		return "", fmt.Errorf("unsupported CAN bitrate %d", bitrate)
	}
}

// openSLCAN closes the channel, sets the bitrate and reopens it in listen
// only mode so the stand never sees an acknowledgement from us
func openSLCAN(w io.Writer, bitrate int) error {
	rate, err := slcanBitrateCommand(bitrate)
	if err != nil {
		return err
	}
	for _, c := range []string{"C", rate, "L"} {
		if _, err := w.Write([]byte(c + "\r")); err != nil {
			return fmt.Errorf("slcan %s: %w", c, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

// OpenSerialConnection opens a serial port connection and brings the SLCAN
// adapter on the bus. Opening is retried since USB adapters often show up
// a moment after they are plugged in.
func OpenSerialConnection(ctx context.Context, portName string, baudRate, bitrate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	var port serial.Port
	err := retry.Do(func() error {
		p, err := serial.Open(portName, mode)
		if err != nil {
			return err
		}
		port = p
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			logger.Verbose("retry #%d opening %s: %v", n+1, portName, err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	port.ResetInputBuffer()
	port.ResetOutputBuffer()

	if err := openSLCAN(port, bitrate); err != nil {
		port.Close()
		return nil, err
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(ctx context.Context, wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("STANDCAN_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// selectPort asks the user to pick one of the serial ports on the system
func selectPort() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to list serial ports: %w", err)
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}
	if len(ports) == 1 {
		return ports[0], nil
	}

	prompt := promptui.Select{
		Label:    "Select SLCAN adapter",
		HideHelp: true,
		Items:    ports,
	}
	_, result, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("port selection: %w", err)
	}
	return result, nil
}

// OpenConnection opens either a serial or WebSocket connection based on flags.
// Without either flag an interactive terminal is asked for a serial port.
func OpenConnection(ctx context.Context) (Connection, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(ctx, wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, "", errors.New("either --port or --url must be specified")
		}
		p, err := selectPort()
		if err != nil {
			return nil, "", err
		}
		portName = p
	}

	conn, err := OpenSerialConnection(ctx, portName, baudRate, canBitrate)
	if err != nil {
		return nil, "", err
	}

	return conn, fmt.Sprintf("Serial: %s @ %d baud, CAN %d bit/s", portName, baudRate, canBitrate), nil
}
