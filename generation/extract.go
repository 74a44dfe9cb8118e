package generation

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Extracted holds whichever image form a response carried.
type Extracted struct {
	URL    string
	Base64 string
}

// Extractor looks for an image at one place in a JSON body.
type Extractor func(body []byte) (Extracted, bool)

func URLAt(path string) Extractor {
	return func(body []byte) (Extracted, bool) {
		if v, ok := stringAt(body, path); ok {
			return Extracted{URL: v}, true
		}
		return Extracted{}, false
	}
}

func Base64At(path string) Extractor {
	return func(body []byte) (Extracted, bool) {
		if v, ok := stringAt(body, path); ok {
			return Extracted{Base64: v}, true
		}
		return Extracted{}, false
	}
}

func stringAt(body []byte, path string) (string, bool) {
	r := gjson.GetBytes(body, path)
	if r.Type != gjson.String {
		return "", false
	}
	v := strings.TrimSpace(r.String())
	return v, v != ""
}

// ExtractImage applies extractors in order and returns the first hit.
func ExtractImage(body []byte, extractors ...Extractor) (Extracted, bool) {
	if !gjson.ValidBytes(body) {
		return Extracted{}, false
	}
	for _, extract := range extractors {
		if found, ok := extract(body); ok {
			return found, true
		}
	}
	return Extracted{}, false
}

var (
	genericExtractors = []Extractor{
		URLAt("image_url"),
		URLAt("output.image_url"),
		URLAt("data.image_url"),
		Base64At("image_base64"),
		Base64At("output.image_base64"),
		Base64At("data.image_base64"),
	}
	jobQueueExtractors = []Extractor{
		URLAt("modelOutputs.0.image_url"),
		URLAt("image_url"),
		Base64At("modelOutputs.0.image_base64"),
		Base64At("image_base64"),
	}
	proxyExtractors = []Extractor{
		Base64At("image_base64"),
	}
)
