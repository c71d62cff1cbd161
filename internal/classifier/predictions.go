package classifier

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
)

const (
	// HappyTag is the tag name mapped to the happy probability.
	HappyTag = "happy"
	// SadTag is the tag name mapped to the sad probability.
	SadTag = "sad"
)

// errPredictionsMissing is wrapped when the response has no predictions array.
var errPredictionsMissing = errors.New("predictions field is missing")

// prediction is one entry of the endpoint's predictions array.
type prediction struct {
	TagName     string  `json:"tagName"`
	Probability float64 `json:"probability"`
}

// response is the body returned by the prediction endpoint.
type response struct {
	Predictions *[]prediction `json:"predictions"`
}

// ParsePredictions extracts the happy and sad scores from a response body.
// Tags are matched exactly; unknown tags are ignored.
func ParsePredictions(body []byte) (*telemetry.ClassificationResult, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", telemetry.ErrParse, err)
	}

	if resp.Predictions == nil {
		return nil, fmt.Errorf("%w: %w", telemetry.ErrParse, errPredictionsMissing)
	}

	result := new(telemetry.ClassificationResult)

	for _, p := range *resp.Predictions {
		probability := p.Probability

		switch p.TagName {
		case HappyTag:
			result.HappyProbability = &probability
		case SadTag:
			result.SadProbability = &probability
		}
	}

	return result, nil
}
