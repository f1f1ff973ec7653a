package device

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"
)

// Device types.
const (
	TypeCamera = "camera"
	TypeUSB    = "usb"
	TypeMobile = "mobile"
)

// USBSentinelID identifies the single USB HID reader slot of a station.
const USBSentinelID = "usb-reader"

// Domain errors.
var (
	ErrInvalidType = errors.New("invalid device type")
	ErrMissingID   = errors.New("device id required")
)

// Device is a scanning station presence record.
type Device struct {
	ID       string    `json:"id"`
	DeviceID string    `json:"device_id"`
	Label    string    `json:"label"`
	Type     string    `json:"type"`
	LastSeen time.Time `json:"last_seen"`
	Active   bool      `json:"active"`
}

// ValidType reports whether t is a known device type.
func ValidType(t string) bool {
	switch t {
	case TypeCamera, TypeUSB, TypeMobile:
		return true
	}
	return false
}

// DeriveID builds a stable device identifier. Cameras carry their enumerated
// hardware id, USB readers share a fixed sentinel, and mobile browsers hash
// their user-agent string.
func DeriveID(deviceType, hardwareID, userAgent string) string {
	switch deviceType {
	case TypeUSB:
		return USBSentinelID
	case TypeMobile:
		sum := sha1.Sum([]byte(userAgent))
		return "mobile-" + hex.EncodeToString(sum[:6])
	default:
		return hardwareID
	}
}
