// SPDX-License-Identifier: MIT
package transport

import (
	applog "musicpainter/internal/log"
)

// LoggingTransport implements the Transport interface by logging frames at
// debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data. Logging never fails to "send".
func (lt *LoggingTransport) Send(data any) error {
	switch f := data.(type) {
	case Frame:
		applog.Debugf("Transport: chunk %d/%d freqs=%v capped=%v drawn=%d", f.Index+1, f.Total, f.Frequencies, f.Capped, f.Drawn)
	default:
		applog.Debugf("Transport: Received (%T): %+v", data, data)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
