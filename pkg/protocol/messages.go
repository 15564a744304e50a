// ABOUTME: Handshake message type definitions
// ABOUTME: Structs exchanged before the event and chunk streams begin
package protocol

// Handshake message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
)

// ProtocolVersion is the handshake version this package speaks
const ProtocolVersion = 1

// Message is the top-level wrapper for handshake messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by the receiver to open a session
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	Channels   int         `json:"channels"`
	SampleRate int         `json:"sample_rate"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the source's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}
