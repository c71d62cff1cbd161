package telemetry

import "time"

// Machine carries the machine part of an outbound message.
type Machine struct {
	BatteryVoltage float64 `json:"batteryVoltage"`
	ResponseTime   float64 `json:"responseTime"`
}

// Ambient carries the environment part of an outbound message.
type Ambient struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// OutboundMessage is the payload published once per tick.
type OutboundMessage struct {
	MessageID      string                `json:"messageId"`
	CapturedAt     time.Time             `json:"capturedAt"`
	Machine        Machine               `json:"machine"`
	Ambient        Ambient               `json:"ambient"`
	Classification *ClassificationResult `json:"classification,omitempty"`
}

// Merge builds the outbound message for a tick. It never fails: an absent or
// empty classification is simply left out of the message.
func Merge(sample Sample, result *ClassificationResult, messageID string) OutboundMessage {
	msg := OutboundMessage{
		MessageID:  messageID,
		CapturedAt: sample.CapturedAt,
		Machine: Machine{
			BatteryVoltage: sample.BatteryVoltage,
			ResponseTime:   sample.ResponseTime,
		},
		Ambient: Ambient{
			Temperature: sample.AmbientTemperature,
			Humidity:    sample.Humidity,
		},
	}

	if !result.IsEmpty() {
		msg.Classification = result.Clone()
	}

	return msg
}
