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
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/cli-utils/pkg/kstatus/status"

	helmModel "release-service/pkg/models/helm"
	"release-service/pkg/zlog"
)

// GetResourceSummaries flattens rendered manifest objects into resource
// summaries with a computed kstatus result. Objects whose status cannot be
// computed keep a nil status rather than failing the whole listing.
func GetResourceSummaries(objects []*unstructured.Unstructured) []helmModel.ReleaseResource {
	result := make([]helmModel.ReleaseResource, 0, len(objects))
	for _, obj := range objects {
		if obj == nil {
			continue
		}
		resource := helmModel.ReleaseResource{
			Name:      obj.GetName(),
			Namespace: obj.GetNamespace(),
		}
		gvk := obj.GroupVersionKind()
		resource.APIVersion, resource.Kind = gvk.ToAPIVersionAndKind()
		computed, err := status.Compute(obj)
		if err != nil {
			zlog.Warnf("compute status for %s/%s failed, %v", resource.Kind, resource.Name, err)
		} else {
			resource.Status = computed
		}
		result = append(result, resource)
	}
	return result
}
