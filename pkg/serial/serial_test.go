package serial

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.bug.st/serial"

	"lcd-translator/pkg/retry"
)

func validConfig() SerialConfig {
	return SerialConfig{
		Port:     "/dev/ttyUSB0",
		BaudRate: 115200,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
		Timeout:  time.Millisecond * 200,
	}
}

func TestSerialConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *SerialConfig)
		wantErr bool
	}{
		{"valid config", func(c *SerialConfig) {}, false},
		{"empty port", func(c *SerialConfig) { c.Port = "" }, true},
		{"invalid baud rate", func(c *SerialConfig) { c.BaudRate = 12345 }, true},
		{"invalid data bits", func(c *SerialConfig) { c.DataBits = 9 }, true},
		{"invalid stop bits", func(c *SerialConfig) { c.StopBits = 3 }, true},
		{"invalid parity", func(c *SerialConfig) { c.Parity = "invalid" }, true},
		{"negative timeout", func(c *SerialConfig) { c.Timeout = -time.Second }, true},
		{"no timeout", func(c *SerialConfig) { c.Timeout = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.modify(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("SerialConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig() returned invalid config: %v", err)
	}

	if config.BaudRate != 115200 {
		t.Errorf("DefaultConfig() BaudRate = %d, want 115200", config.BaudRate)
	}

	if config.String() != "115200 8N1" {
		t.Errorf("DefaultConfig().String() = %s, want 115200 8N1", config.String())
	}

	if config.Timeout <= 0 {
		t.Errorf("DefaultConfig() Timeout = %v, want a positive read timeout", config.Timeout)
	}
}

func TestSerialConfig_String(t *testing.T) {
	config := validConfig()
	config.BaudRate = 9600
	config.DataBits = 7
	config.Parity = "even"
	config.StopBits = 2

	if got := config.String(); got != "9600 7E2" {
		t.Errorf("SerialConfig.String() = %s, want 9600 7E2", got)
	}
}

func TestSerialConfig_ValidBaudRates(t *testing.T) {
	for _, rate := range validBaudRates {
		config := validConfig()
		config.BaudRate = rate

		if err := config.Validate(); err != nil {
			t.Errorf("Valid baud rate %d should not cause validation error: %v", rate, err)
		}
	}
}

func TestSerialConfig_ValidParityValues(t *testing.T) {
	for _, parity := range validParity {
		config := validConfig()
		config.Parity = parity

		if err := config.Validate(); err != nil {
			t.Errorf("Valid parity %s should not cause validation error: %v", parity, err)
		}
	}
}

func TestNewCrossPlatformSerialPort(t *testing.T) {
	port := NewCrossPlatformSerialPort()

	if port.IsOpen() {
		t.Error("New serial port should not be open")
	}

	if port.GetConfig().Port != "" {
		t.Error("New serial port should have empty config")
	}
}

func TestCrossPlatformSerialPort_OpenInvalidConfig(t *testing.T) {
	port := NewCrossPlatformSerialPort()

	invalid := validConfig()
	invalid.Port = ""

	if err := port.Open(invalid); err == nil {
		t.Error("Opening with invalid config should return error")
	}

	if port.IsOpen() {
		t.Error("Port should not be open after failed open")
	}
}

func TestCrossPlatformSerialPort_DoubleOpen(t *testing.T) {
	port := NewCrossPlatformSerialPort()
	port.isOpen = true
	defer func() { port.isOpen = false }()

	if err := port.Open(validConfig()); err == nil {
		t.Error("Opening already open port should return error")
	}
}

func TestCrossPlatformSerialPort_NotOpen(t *testing.T) {
	port := NewCrossPlatformSerialPort()

	if err := port.Close(); err == nil {
		t.Error("Closing not open port should return error")
	}
	if _, err := port.Read(make([]byte, 10)); err == nil {
		t.Error("Reading from not open port should return error")
	}
	if _, err := port.Write([]byte("test")); err == nil {
		t.Error("Writing to not open port should return error")
	}
	if err := port.SetReadTimeout(time.Second); err == nil {
		t.Error("Setting timeout on not open port should return error")
	}
}

func TestConvertStopBits(t *testing.T) {
	tests := []struct {
		input int
		want  serial.StopBits
	}{
		{1, serial.OneStopBit},
		{2, serial.TwoStopBits},
		{3, serial.OneStopBit},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("stopbits_%d", tt.input), func(t *testing.T) {
			if got := convertStopBits(tt.input); got != tt.want {
				t.Errorf("convertStopBits(%d) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConvertParity(t *testing.T) {
	tests := []struct {
		input string
		want  serial.Parity
	}{
		{"none", serial.NoParity},
		{"odd", serial.OddParity},
		{"even", serial.EvenParity},
		{"mark", serial.MarkParity},
		{"space", serial.SpaceParity},
		{"bogus", serial.NoParity},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := convertParity(tt.input); got != tt.want {
				t.Errorf("convertParity(%s) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSerialError_Error(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		port      string
		cause     error
		expected  string
	}{
		{
			name:      "error with cause",
			operation: "open",
			port:      "/dev/ttyUSB0",
			cause:     fmt.Errorf("device not found"),
			expected:  "serial open operation failed on port /dev/ttyUSB0: device not found",
		},
		{
			name:      "error without cause",
			operation: "read",
			port:      "/dev/ttyS1",
			cause:     nil,
			expected:  "serial read operation failed on port /dev/ttyS1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSerialError(tt.operation, tt.port, tt.cause)

			if got := err.Error(); got != tt.expected {
				t.Errorf("SerialError.Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSerialError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	var err error = NewSerialError("read", "/dev/ttyUSB0", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is(SerialError, cause) = false, want true")
	}

	var se *SerialError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &se) || se.Operation != "read" {
		t.Errorf("errors.As() = %v, want SerialError with operation read", se)
	}
}

func TestConnectionState_String(t *testing.T) {
	tests := []struct {
		state    ConnectionState
		expected string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateError, "error"},
		{ConnectionState(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("ConnectionState.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewResilientSerialPort(t *testing.T) {
	port := NewResilientSerialPort(retry.DefaultConfig())

	if port.GetState() != StateDisconnected {
		t.Errorf("NewResilientSerialPort() state = %v, want %v", port.GetState(), StateDisconnected)
	}

	if port.GetLastError() != nil {
		t.Errorf("NewResilientSerialPort() should have no last error, got: %v", port.GetLastError())
	}
}

func TestResilientSerialPort_OpenWithRetryInvalidConfig(t *testing.T) {
	port := NewResilientSerialPort(retry.DefaultConfig())

	invalid := validConfig()
	invalid.Port = ""

	if err := port.OpenWithRetry(context.Background(), invalid); err == nil {
		t.Error("OpenWithRetry() should fail with invalid config")
	}

	if port.GetState() != StateDisconnected {
		t.Errorf("State should remain disconnected after invalid config, got: %v", port.GetState())
	}
}

func TestResilientSerialPort_ReconnectNoConfig(t *testing.T) {
	port := NewResilientSerialPort(retry.DefaultConfig())

	if err := port.Reconnect(context.Background()); err == nil {
		t.Error("Reconnect() should fail when no previous configuration exists")
	}
}

func TestIsRecoverableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"device busy error", fmt.Errorf("device busy"), true},
		{"timeout error", fmt.Errorf("operation timeout"), true},
		{"resource unavailable", fmt.Errorf("resource temporarily unavailable"), true},
		{"no such device", fmt.Errorf("no such device"), true},
		{"connection refused", fmt.Errorf("connection refused"), true},
		{"port busy", NewSerialError("open", "/dev/ttyUSB0", fmt.Errorf("Serial port busy")), true},
		{"non-recoverable error", fmt.Errorf("permission denied"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRecoverableError(tt.err); got != tt.want {
				t.Errorf("isRecoverableError() = %v, want %v", got, tt.want)
			}
		})
	}
}
