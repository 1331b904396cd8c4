package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Viper folds map keys to lower case, which would rewrite structured
// payloads. Payloads are therefore read from the raw file.

// readRawPayloads extracts the payload list from a config file, preserving
// the original encoding of structured entries. ok is false when the file has
// no payloads key.
func readRawPayloads(path string) (payloads []string, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlPayloads(data)
	default:
		return jsonPayloads(data)
	}
}

func jsonPayloads(data []byte) ([]string, bool, error) {
	if !gjson.ValidBytes(data) {
		return nil, false, fmt.Errorf("config is not valid JSON")
	}
	list := gjson.GetBytes(data, "payloads")
	if !list.Exists() {
		return nil, false, nil
	}
	if !list.IsArray() {
		return []string{payloadText(list)}, true, nil
	}
	var out []string
	list.ForEach(func(_, value gjson.Result) bool {
		out = append(out, payloadText(value))
		return true
	})
	return out, true, nil
}

func payloadText(value gjson.Result) string {
	switch value.Type {
	case gjson.String:
		return value.String()
	case gjson.JSON:
		return value.Get("@ugly").Raw
	default:
		return value.Raw
	}
}

func yamlPayloads(data []byte) ([]string, bool, error) {
	var doc struct {
		Payloads interface{} `yaml:"payloads"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false, err
	}
	if doc.Payloads == nil {
		return nil, false, nil
	}
	items, err := toInterfaceSlice(doc.Payloads)
	if err != nil {
		items = []interface{}{doc.Payloads}
	}
	out := make([]string, 0, len(items))
	for idx, item := range items {
		text, err := encodePayload(item)
		if err != nil {
			return nil, false, fmt.Errorf("index %d: %w", idx, err)
		}
		out = append(out, text)
	}
	return out, true, nil
}

// encodePayload renders a decoded payload as request body text. Strings are
// used verbatim; everything else is serialized as JSON.
func encodePayload(value interface{}) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func parsePayloads(value interface{}) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	items, err := toInterfaceSlice(value)
	if err != nil {
		items = []interface{}{value}
	}
	out := make([]string, 0, len(items))
	for idx, item := range items {
		text, err := encodePayload(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		out = append(out, text)
	}
	return out, nil
}
