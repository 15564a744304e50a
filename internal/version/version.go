// ABOUTME: Build identification for the visualizer
// ABOUTME: Reported to sources in client/hello and in metrics resources
package version

import "github.com/Resonate-Protocol/resonate-visualizer/pkg/protocol"

const (
	// Version is the software version
	Version = "0.3.0"
	// Product is the product name
	Product = "Resonate Visualizer"
	// Manufacturer identifies the maker
	Manufacturer = "Resonate"
)

// DeviceInfo returns the device block sent during the handshake
func DeviceInfo() protocol.DeviceInfo {
	return protocol.DeviceInfo{
		ProductName:     Product,
		Manufacturer:    Manufacturer,
		SoftwareVersion: Version,
	}
}
