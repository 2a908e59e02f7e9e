package providers

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("no JSON object in response")

// decodeEmbeddedJSON decodes the outermost JSON object found in a model
// response, which is often wrapped in prose or a code fence.
func decodeEmbeddedJSON(text string, out any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return errNoJSON
	}
	return json.Unmarshal([]byte(text[start:end+1]), out)
}
