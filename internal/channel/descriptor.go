package channel

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
)

// apiVersion is the protocol version announced in the MQTT username.
const apiVersion = "2018-06-30"

// Descriptor identifies the device and the hub it connects to.
type Descriptor struct {
	// HostName is the cloud hub host name.
	HostName string
	// GatewayHostName is the local edge gateway, when connecting through one.
	GatewayHostName string
	// DeviceID is the device identity.
	DeviceID string
	// ModuleID is the module identity inside the device, optional.
	ModuleID string
	// SharedAccessKey is the base64-encoded symmetric key.
	SharedAccessKey string
}

var (
	// errMalformedSegment is wrapped for segments without "=".
	errMalformedSegment = errors.New("malformed connection string segment")
	// errMissingField is wrapped when a required field is absent.
	errMissingField = errors.New("connection string field is required")
)

// ParseConnectionString parses "HostName=...;DeviceId=...;SharedAccessKey=..."
// with optional ModuleId and GatewayHostName. Unknown keys are ignored.
func ParseConnectionString(s string) (Descriptor, error) {
	var d Descriptor

	for _, segment := range strings.Split(s, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			return Descriptor{}, fmt.Errorf("%w: %w: %q", telemetry.ErrConfig, errMalformedSegment, segment)
		}

		switch strings.TrimSpace(key) {
		case "HostName":
			d.HostName = value
		case "GatewayHostName":
			d.GatewayHostName = value
		case "DeviceId":
			d.DeviceID = value
		case "ModuleId":
			d.ModuleID = value
		case "SharedAccessKey":
			d.SharedAccessKey = value
		}
	}

	required := []struct {
		name  string
		value string
	}{
		{"HostName", d.HostName},
		{"DeviceId", d.DeviceID},
		{"SharedAccessKey", d.SharedAccessKey},
	}

	for _, field := range required {
		if field.value == "" {
			return Descriptor{}, fmt.Errorf("%w: %w: %s", telemetry.ErrConfig, errMissingField, field.name)
		}
	}

	if _, err := base64.StdEncoding.DecodeString(d.SharedAccessKey); err != nil {
		return Descriptor{}, fmt.Errorf("%w: shared access key is not base64: %w", telemetry.ErrConfig, err)
	}

	return d, nil
}

// BrokerHost is the host the channel connects to: the gateway when present.
func (d Descriptor) BrokerHost() string {
	if d.GatewayHostName != "" {
		return d.GatewayHostName
	}

	return d.HostName
}

// ClientID is the MQTT client identifier.
func (d Descriptor) ClientID() string {
	if d.ModuleID == "" {
		return d.DeviceID
	}

	return d.DeviceID + "/" + d.ModuleID
}

// Username is the MQTT username expected by the hub.
func (d Descriptor) Username() string {
	return d.HostName + "/" + d.ClientID() + "/?api-version=" + apiVersion
}

// ResourceURI is the resource a shared access signature is scoped to.
func (d Descriptor) ResourceURI() string {
	uri := d.HostName + "/devices/" + d.DeviceID
	if d.ModuleID != "" {
		uri += "/modules/" + d.ModuleID
	}

	return uri
}

// EventsTopic returns the device-to-cloud topic for one message.
func (d Descriptor) EventsTopic(route, messageID string) string {
	var b strings.Builder

	b.WriteString("devices/")
	b.WriteString(d.DeviceID)

	if d.ModuleID != "" {
		b.WriteString("/modules/")
		b.WriteString(d.ModuleID)
	}

	b.WriteString("/messages/events/")

	props := make([]string, 0, 4)
	if route != "" {
		props = append(props, "$.on="+url.QueryEscape(route))
	}

	if messageID != "" {
		props = append(props, "$.mid="+url.QueryEscape(messageID))
	}

	props = append(props, "$.ct="+url.QueryEscape("application/json"), "$.ce=utf-8")
	b.WriteString(strings.Join(props, "&"))

	return b.String()
}

// String hides the shared key.
func (d Descriptor) String() string {
	return fmt.Sprintf("HostName=%s;GatewayHostName=%s;DeviceId=%s;ModuleId=%s;SharedAccessKey=***",
		d.HostName, d.GatewayHostName, d.DeviceID, d.ModuleID)
}
