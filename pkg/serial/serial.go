// Package serial opens the upstream serial port the host LCD stream arrives on
package serial

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"lcd-translator/pkg/retry"
)

// SerialConfig defines the configuration for serial port communication
type SerialConfig struct {
	Port     string        `json:"port" yaml:"port"`
	BaudRate int           `json:"baud_rate" yaml:"baud_rate"`
	DataBits int           `json:"data_bits" yaml:"data_bits"`
	StopBits int           `json:"stop_bits" yaml:"stop_bits"`
	Parity   string        `json:"parity" yaml:"parity"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

var validParity = []string{"none", "odd", "even", "mark", "space"}

// Validate checks if the serial configuration is valid
func (c SerialConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}

	validBaud := false
	for _, rate := range validBaudRates {
		if c.BaudRate == rate {
			validBaud = true
			break
		}
	}
	if !validBaud {
		return fmt.Errorf("invalid baud rate: %d", c.BaudRate)
	}

	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("data bits must be between 5 and 8, got: %d", c.DataBits)
	}

	if c.StopBits < 1 || c.StopBits > 2 {
		return fmt.Errorf("stop bits must be 1 or 2, got: %d", c.StopBits)
	}

	validParityFound := false
	for _, p := range validParity {
		if c.Parity == p {
			validParityFound = true
			break
		}
	}
	if !validParityFound {
		return fmt.Errorf("invalid parity: %s", c.Parity)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	return nil
}

// String formats the line settings as "115200 8N1"
func (c SerialConfig) String() string {
	parity := "N"
	if c.Parity != "" {
		parity = strings.ToUpper(c.Parity[:1])
	}
	return fmt.Sprintf("%d %d%s%d", c.BaudRate, c.DataBits, parity, c.StopBits)
}

// DefaultConfig returns 115200 8N1 on the first USB serial adapter. The read
// timeout lets the session notice cancellation while the host is silent.
func DefaultConfig() SerialConfig {
	return SerialConfig{
		Port:     "/dev/ttyUSB0",
		BaudRate: 115200,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
		Timeout:  time.Millisecond * 200,
	}
}

// SerialPort interface defines the contract for serial port operations
type SerialPort interface {
	Open(config SerialConfig) error
	Close() error
	Read(buffer []byte) (int, error)
	Write(data []byte) (int, error)
	IsOpen() bool
	GetConfig() SerialConfig
	SetReadTimeout(timeout time.Duration) error
}

// CrossPlatformSerialPort implements SerialPort interface using go.bug.st/serial
type CrossPlatformSerialPort struct {
	port   serial.Port
	config SerialConfig
	isOpen bool
}

// NewCrossPlatformSerialPort creates a new cross-platform serial port instance
func NewCrossPlatformSerialPort() *CrossPlatformSerialPort {
	return &CrossPlatformSerialPort{}
}

// Open opens the serial port with the given configuration
func (sp *CrossPlatformSerialPort) Open(config SerialConfig) error {
	if sp.isOpen {
		return fmt.Errorf("serial port is already open")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		StopBits: convertStopBits(config.StopBits),
		Parity:   convertParity(config.Parity),
	}

	port, err := serial.Open(config.Port, mode)
	if err != nil {
		return NewSerialError("open", config.Port, err)
	}

	if config.Timeout > 0 {
		if err := port.SetReadTimeout(config.Timeout); err != nil {
			port.Close()
			return NewSerialError("set read timeout", config.Port, err)
		}
	}

	sp.port = port
	sp.config = config
	sp.isOpen = true

	return nil
}

// Close closes the serial port
func (sp *CrossPlatformSerialPort) Close() error {
	if !sp.isOpen {
		return fmt.Errorf("serial port is not open")
	}

	err := sp.port.Close()
	sp.port = nil
	sp.isOpen = false

	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	return nil
}

// Read reads data from the serial port. It returns 0, nil when the read
// timeout expires without data.
func (sp *CrossPlatformSerialPort) Read(buffer []byte) (int, error) {
	if !sp.isOpen {
		return 0, fmt.Errorf("serial port is not open")
	}

	n, err := sp.port.Read(buffer)
	if err != nil {
		return n, NewSerialError("read", sp.config.Port, err)
	}

	return n, nil
}

// Write writes data to the serial port
func (sp *CrossPlatformSerialPort) Write(data []byte) (int, error) {
	if !sp.isOpen {
		return 0, fmt.Errorf("serial port is not open")
	}

	n, err := sp.port.Write(data)
	if err != nil {
		return n, NewSerialError("write", sp.config.Port, err)
	}

	return n, nil
}

// IsOpen returns true if the serial port is open
func (sp *CrossPlatformSerialPort) IsOpen() bool {
	return sp.isOpen
}

// GetConfig returns the current serial port configuration
func (sp *CrossPlatformSerialPort) GetConfig() SerialConfig {
	return sp.config
}

// SetReadTimeout sets the read timeout for the serial port
func (sp *CrossPlatformSerialPort) SetReadTimeout(timeout time.Duration) error {
	if !sp.isOpen {
		return fmt.Errorf("serial port is not open")
	}

	if err := sp.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	sp.config.Timeout = timeout
	return nil
}

// convertStopBits converts our stop bits format to go.bug.st/serial format
func convertStopBits(stopBits int) serial.StopBits {
	switch stopBits {
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

// convertParity converts our parity format to go.bug.st/serial format
func convertParity(parity string) serial.Parity {
	switch parity {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	case "mark":
		return serial.MarkParity
	case "space":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

// PortInfo contains information about a serial port
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// GetDetailedPortsList returns detailed information about available serial ports
func GetDetailedPortsList() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get ports list: %w", err)
	}

	portInfos := make([]PortInfo, 0, len(details))
	for _, d := range details {
		portInfos = append(portInfos, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}

	return portInfos, nil
}

// ListPorts returns a list of available serial ports on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get available ports: %w", err)
	}
	return ports, nil
}

// IsPortAvailable checks if a specific port is available
func IsPortAvailable(portName string) bool {
	ports, err := ListPorts()
	if err != nil {
		return false
	}

	for _, port := range ports {
		if port == portName {
			return true
		}
	}

	return false
}

// SerialError represents a serial port specific error
type SerialError struct {
	Operation string
	Port      string
	Cause     error
}

// Error implements the error interface
func (e *SerialError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("serial %s operation failed on port %s: %v", e.Operation, e.Port, e.Cause)
	}
	return fmt.Sprintf("serial %s operation failed on port %s", e.Operation, e.Port)
}

// Unwrap returns the underlying cause
func (e *SerialError) Unwrap() error {
	return e.Cause
}

// NewSerialError creates a new serial error
func NewSerialError(operation, port string, cause error) *SerialError {
	return &SerialError{
		Operation: operation,
		Port:      port,
		Cause:     cause,
	}
}

// ConnectionState represents the state of a serial connection
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateError
)

// String returns the string representation of ConnectionState
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ResilientSerialPort extends CrossPlatformSerialPort with retry and recovery capabilities
type ResilientSerialPort struct {
	*CrossPlatformSerialPort
	retryConfig retry.Config
	lastError   error
	state       ConnectionState
}

// NewResilientSerialPort creates a new resilient serial port with retry capabilities
func NewResilientSerialPort(retryConfig retry.Config) *ResilientSerialPort {
	return &ResilientSerialPort{
		CrossPlatformSerialPort: NewCrossPlatformSerialPort(),
		retryConfig:             retryConfig,
		state:                   StateDisconnected,
	}
}

// OpenWithRetry opens the serial port, backing off between recoverable failures
func (rsp *ResilientSerialPort) OpenWithRetry(ctx context.Context, config SerialConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rsp.state = StateConnecting

	err := retry.Do(ctx, rsp.retryConfig, func() error {
		return rsp.CrossPlatformSerialPort.Open(config)
	}, isRecoverableError)
	if err != nil {
		rsp.state = StateError
		rsp.lastError = err
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	rsp.state = StateConnected
	rsp.lastError = nil
	return nil
}

// Close closes the serial port and updates state
func (rsp *ResilientSerialPort) Close() error {
	err := rsp.CrossPlatformSerialPort.Close()
	if err != nil {
		rsp.state = StateError
		rsp.lastError = err
		return err
	}

	rsp.state = StateDisconnected
	rsp.lastError = nil
	return nil
}

// GetState returns the current connection state
func (rsp *ResilientSerialPort) GetState() ConnectionState {
	return rsp.state
}

// GetLastError returns the last error that occurred
func (rsp *ResilientSerialPort) GetLastError() error {
	return rsp.lastError
}

// Reconnect attempts to reconnect using the last known configuration
func (rsp *ResilientSerialPort) Reconnect(ctx context.Context) error {
	if rsp.config.Port == "" {
		return fmt.Errorf("no previous configuration available for reconnection")
	}

	config := rsp.config
	if rsp.IsOpen() {
		if err := rsp.Close(); err != nil {
			return fmt.Errorf("failed to close existing connection: %w", err)
		}
	}

	return rsp.OpenWithRetry(ctx, config)
}

// isRecoverableError determines if an error is recoverable and retry should be attempted
func isRecoverableError(err error) bool {
	if err == nil {
		return false
	}

	errorStr := strings.ToLower(err.Error())

	recoverablePatterns := []string{
		"device busy",
		"resource temporarily unavailable",
		"timeout",
		"connection refused",
		"no such device", // USB adapters disappear while re-enumerating
		"port busy",
		"port not found",
	}

	for _, pattern := range recoverablePatterns {
		if strings.Contains(errorStr, pattern) {
			return true
		}
	}

	return false
}
