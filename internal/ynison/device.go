package ynison

import "math/rand"

const (
	deviceIDLength = 16
	appName        = "Chrome"
	appType        = 1
)

// NewDeviceID generates an ephemeral device fingerprint: a random string of
// lowercase letters. A fresh id is required per discovery call; reusing one
// risks colliding with a real device's session state on the remote service.
func NewDeviceID() string {
	b := make([]byte, deviceIDLength)
	for i := range b {
		b[i] = byte('a' + rand.Intn(26))
	}
	return string(b)
}
