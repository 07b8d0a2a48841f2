package interfaces

import (
	"context"

	"github.com/ternarybob/solder/internal/models"
)

// DeviceService talks to a running device over its local HTTP surface
type DeviceService interface {
	// TriggerOTA asks the device to pull and flash the firmware at url
	TriggerOTA(ctx context.Context, deviceAddr, firmwareURL string) error

	// SetVariables mutates firmware globals through the generated dispatch
	// function on the device, one result per requested name
	SetVariables(ctx context.Context, deviceAddr string, vars map[string]string) ([]models.VariableUpdateResult, error)

	// Ping probes device reachability
	Ping(ctx context.Context, deviceAddr string) *models.DeviceStatus
}
