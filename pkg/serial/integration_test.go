//go:build integration

package serial

import (
	"context"
	"testing"
	"time"

	"lcd-translator/pkg/retry"
)

// TestListPorts tests the actual port enumeration
func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Errorf("ListPorts() failed: %v", err)
	}

	// We can't guarantee any specific ports exist, but the function should not error
	t.Logf("Available ports: %v", ports)
}

// TestGetDetailedPortsList tests the detailed port information
func TestGetDetailedPortsList(t *testing.T) {
	portInfos, err := GetDetailedPortsList()
	if err != nil {
		t.Errorf("GetDetailedPortsList() failed: %v", err)
	}

	for _, portInfo := range portInfos {
		t.Logf("Port: %s, USB: %v, VID: %s, PID: %s, Serial: %s, Product: %s",
			portInfo.Name, portInfo.IsUSB, portInfo.VID, portInfo.PID, portInfo.SerialNumber, portInfo.Product)
	}
}

// TestIsPortAvailable tests port availability checking
func TestIsPortAvailable(t *testing.T) {
	if IsPortAvailable("/dev/ttyDOESNOTEXIST") {
		t.Error("/dev/ttyDOESNOTEXIST should not be available")
	}
}

// TestOpenWithRetryNonExistent gives up on a port that never appears
func TestOpenWithRetryNonExistent(t *testing.T) {
	port := NewResilientSerialPort(retry.Config{
		MaxRetries:    2,
		RetryInterval: 10 * time.Millisecond,
		BackoffFactor: 2,
		MaxInterval:   50 * time.Millisecond,
	})

	config := DefaultConfig()
	config.Port = "/dev/ttyDOESNOTEXIST"

	if err := port.OpenWithRetry(context.Background(), config); err == nil {
		port.Close()
		t.Fatal("OpenWithRetry() succeeded on a missing port")
	}
	if port.GetState() != StateError {
		t.Errorf("GetState() = %v, want %v", port.GetState(), StateError)
	}
}
