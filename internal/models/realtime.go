package models

// Realtime frame discriminators.
const (
	MessagePistonUpdate = "piston_update"
	MessageDeviceStatus = "device_status"
)

// PistonUpdate is pushed when a valve changes state.
type PistonUpdate struct {
	Type         string `json:"type"`
	DeviceID     string `json:"device_id"`
	PistonNumber int    `json:"piston_number"`
	State        string `json:"state"`
	Timestamp    string `json:"timestamp"`
}

// DeviceStatus is pushed when a device goes online or offline.
type DeviceStatus struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
