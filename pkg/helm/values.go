/*
 * Copyright (c) 2024 Huawei Technologies Co., Ltd.
 * openFuyao is licensed under Mulan PSL v2.
 * You can use this software according to the terms and conditions of the Mulan PSL v2.
 * You may obtain a copy of Mulan PSL v2 at:
 *          http://license.coscl.org.cn/MulanPSL2
 * THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
 * EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
 * MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
 * See the Mulan PSL v2 for more details.
 */

package helm

import (
	"encoding/json"
)

// MergeConcat deep-merges two or more value mappings together.
// Maps are merged key by key, lists are concatenated and scalars are
// replaced by the override unless the override is nil.
// 注意：对列表重复合并会再次拼接，这是预期行为
func MergeConcat(defaults map[string]interface{}, overrides ...map[string]interface{}) map[string]interface{} {
	merged := interface{}(defaults)
	if merged == nil {
		merged = map[string]interface{}{}
	}
	for _, override := range overrides {
		merged = mergeconcat2(merged, override)
	}
	result, ok := merged.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return result
}

func mergeconcat2(defaults, overrides interface{}) interface{} {
	switch base := defaults.(type) {
	case map[string]interface{}:
		if override, ok := overrides.(map[string]interface{}); ok {
			merged := make(map[string]interface{}, len(base)+len(override))
			for key, value := range base {
				merged[key] = value
			}
			for key, value := range override {
				if existing, found := base[key]; found {
					merged[key] = mergeconcat2(existing, value)
				} else {
					merged[key] = value
				}
			}
			return merged
		}
	case []interface{}:
		if override, ok := overrides.([]interface{}); ok {
			merged := make([]interface{}, 0, len(base)+len(override))
			merged = append(merged, base...)
			merged = append(merged, override...)
			return merged
		}
	}
	if overrides != nil {
		return overrides
	}
	return defaults
}

// NormalizeValues round-trips the mapping through JSON so that numeric and
// collection types match the shapes that come back from "helm get values".
// Without this an integer value from a caller would never compare equal to
// the float64 the CLI output decodes to.
func NormalizeValues(values map[string]interface{}) (map[string]interface{}, error) {
	if values == nil {
		return map[string]interface{}{}, nil
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	normalized := map[string]interface{}{}
	if err := json.Unmarshal(payload, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}
