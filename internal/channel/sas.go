package channel

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// SharedAccessSignature builds a token granting access to resourceURI until
// expiry. key is the base64-encoded shared access key.
func SharedAccessSignature(resourceURI, key string, expiry time.Time) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", fmt.Errorf("decode shared access key: %w", err)
	}

	var (
		resource = url.QueryEscape(resourceURI)
		expires  = strconv.FormatInt(expiry.Unix(), 10)
		mac      = hmac.New(sha256.New, decoded)
	)

	mac.Write([]byte(resource + "\n" + expires))

	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("SharedAccessSignature sr=%s&sig=%s&se=%s",
		resource, url.QueryEscape(signature), expires), nil
}
