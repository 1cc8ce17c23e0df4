package models

// DeviceContext is the device information the HTTP layer supplies on every
// credentialed call. StableID and Fingerprint are optional; requests without
// either simply never match a trusted device.
type DeviceContext struct {
	UserAgent   string `json:"user_agent"`
	ClientIP    string `json:"client_ip"`
	ScreenSize  string `json:"screen_size,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	StableID    string `json:"stable_device_id,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Key extracts the composite device key from the context.
func (c DeviceContext) Key() DeviceKey {
	return DeviceKey{StableID: c.StableID, Fingerprint: c.Fingerprint}
}
