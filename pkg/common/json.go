/** Copyright 2025-2026 The devmem Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package common

import (
	"bytes"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Profile documents are decoded with UseNumber so integer parameters survive
// untouched by float64 round-tripping.

func ParseJson(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func ParseJsonString(data string, v any) error {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func EncodeJson(v any) ([]byte, error) {
	return json.Marshal(v)
}

func GetInt64(data map[string]any, key string) (int64, error) {
	if item, ok := data[key]; ok {
		if n, ok := item.(json.Number); ok {
			if v, err := strconv.ParseInt(string(n), 10, 64); err == nil {
				return v, nil
			}
		}
		return 0, errors.Errorf("Key '%s' is not a number type", key)
	}
	return 0, errors.Errorf("Key '%s' not found", key)
}

func GetUint64(data map[string]any, key string) (uint64, error) {
	if item, ok := data[key]; ok {
		if n, ok := item.(json.Number); ok {
			if v, err := strconv.ParseUint(string(n), 10, 64); err == nil {
				return v, nil
			}
		}
		return 0, errors.Errorf("Key '%s' is not a number type", key)
	}
	return 0, errors.Errorf("Key '%s' not found", key)
}

func GetInt(data map[string]any, key string) (int, error) {
	if v, err := GetInt64(data, key); err != nil {
		return 0, err
	} else {
		return int(v), nil
	}
}

func GetInt32Slice(data map[string]any, key string) ([]int32, error) {
	item, ok := data[key]
	if !ok {
		return nil, errors.Errorf("Key '%s' not found", key)
	}
	items, ok := item.([]any)
	if !ok {
		return nil, errors.Errorf("Key '%s' is not an array type", key)
	}
	values := make([]int32, 0, len(items))
	for i, elem := range items {
		n, ok := elem.(json.Number)
		if !ok {
			return nil, errors.Errorf("Key '%s' element %d is not a number type", key, i)
		}
		v, err := strconv.ParseInt(string(n), 10, 32)
		if err != nil {
			return nil, errors.Errorf("Key '%s' element %d is not a number type", key, i)
		}
		values = append(values, int32(v))
	}
	return values, nil
}

func GetString(data map[string]any, key string) (string, error) {
	if item, ok := data[key]; ok {
		if s, ok := item.(string); ok {
			return s, nil
		}
		return "", errors.Errorf("Key '%s' is not a string type", key)
	}
	return "", errors.Errorf("Key '%s' not found", key)
}
