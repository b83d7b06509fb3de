package bridge

import (
	_ "embed"
	"encoding/base64"
)

//go:embed icon.png
var icon []byte

// Registration is the payload of Gateway.registerDevice, sent first on
// every connection.
type Registration struct {
	AppName       string `json:"app_name"`
	AppIconBase64 string `json:"app_icon_base64"`
	DeviceID      string `json:"device_id"`
	DeviceName    string `json:"device_name"`
	DeviceModel   string `json:"device_model"`
}

func (c *Client) registration() Registration {
	return Registration{
		AppName:       c.device.AppName,
		AppIconBase64: base64.StdEncoding.EncodeToString(icon),
		DeviceID:      c.device.DeviceID,
		DeviceName:    c.device.Name,
		DeviceModel:   c.device.Model,
	}
}
