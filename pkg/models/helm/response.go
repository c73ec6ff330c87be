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
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/release"
	helmtime "helm.sh/helm/v3/pkg/time"
	"sigs.k8s.io/cli-utils/pkg/kstatus/status"
)

// Chart a resolved chart reference with its eagerly loaded metadata
type Chart struct {
	Ref      string          `json:"ref"`
	Repo     string          `json:"repo,omitempty"`
	Metadata *chart.Metadata `json:"metadata"`
}

// HistoryEntry one row of "helm history" output
type HistoryEntry struct {
	Revision    int            `json:"revision"`
	Updated     helmtime.Time  `json:"updated"`
	Status      release.Status `json:"status"`
	Chart       string         `json:"chart"`
	AppVersion  string         `json:"app_version"`
	Description string         `json:"description,omitempty"`
}

// ChartSpec the desired chart identity in an ensure request
type ChartSpec struct {
	// Ref can be a chart name, a local path or an archive URL
	Ref string `json:"ref"`
	// Repo the repository URL when Ref is a bare chart name
	Repo string `json:"repo,omitempty"`
	// Version the chart version constraint; empty means latest
	Version string `json:"version,omitempty"`
	// Devel include development versions when resolving
	Devel bool `json:"devel,omitempty"`
}

// EnsureRequest restful request body for release reconciliation
type EnsureRequest struct {
	Chart ChartSpec `json:"chart"`
	// Values value layers merged left to right before deployment
	Values []map[string]interface{} `json:"values,omitempty"`

	Atomic          bool   `json:"atomic,omitempty"`
	CleanupOnFail   bool   `json:"cleanupOnFail,omitempty"`
	CreateNamespace *bool  `json:"createNamespace,omitempty"`
	Description     string `json:"description,omitempty"`
	DryRun          bool   `json:"dryRun,omitempty"`
	Force           bool   `json:"force,omitempty"`
	NoHooks         bool   `json:"noHooks,omitempty"`
	ResetValues     bool   `json:"resetValues,omitempty"`
	ReuseValues     bool   `json:"reuseValues,omitempty"`
	SkipCRDs        bool   `json:"skipCrds,omitempty"`
	// Timeout per-operation deadline passed through to helm, e.g. "5m"
	Timeout string `json:"timeout,omitempty"`
	Wait    bool   `json:"wait,omitempty"`
}

// UninstallRequest restful request body for release removal
type UninstallRequest struct {
	DryRun      bool   `json:"dryRun,omitempty"`
	KeepHistory bool   `json:"keepHistory,omitempty"`
	NoHooks     bool   `json:"noHooks,omitempty"`
	Timeout     string `json:"timeout,omitempty"`
	Wait        bool   `json:"wait,omitempty"`
}

// RevisionResponse restful response revision snapshot fields
type RevisionResponse struct {
	Name        string          `json:"name"`
	Namespace   string          `json:"namespace"`
	Revision    int             `json:"revision"`
	Status      string          `json:"status"`
	Updated     helmtime.Time   `json:"updated,omitempty"`
	Description string          `json:"description,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Chart       *chart.Metadata `json:"chart,omitempty"`
}

// EnsureResponse restful response for release reconciliation
type EnsureResponse struct {
	Revision *RevisionResponse `json:"revision"`
	// Upgraded whether a mutating install or upgrade was issued
	Upgraded bool `json:"upgraded"`
}

// ReleaseResource restful response release resource fields
type ReleaseResource struct {
	APIVersion string         `json:"apiVersion"`
	Kind       string         `json:"kind"`
	Name       string         `json:"name"`
	Namespace  string         `json:"namespace"`
	Status     *status.Result `json:"status"`
}

// VersionResponse helm client and service version info
type VersionResponse struct {
	HelmVersion    string `json:"helmVersion"`
	ServiceVersion string `json:"serviceVersion"`
}

// ListResponse restful response for list response
type ListResponse struct {
	Items       []interface{} `json:"items"`
	TotalItems  int           `json:"totalItems"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPage"`
}

// NewRevisionResponse flattens a revision snapshot for the restful surface.
// The chart field is filled only when the snapshot already resolved it.
func NewRevisionResponse(revision *Revision) *RevisionResponse {
	if revision == nil {
		return nil
	}
	return &RevisionResponse{
		Name:        revision.Release.Name,
		Namespace:   revision.Release.Namespace,
		Revision:    revision.Revision,
		Status:      string(revision.Status),
		Updated:     revision.Updated,
		Description: revision.Description,
		Notes:       revision.Notes,
		Chart:       revision.ResolvedChartMetadata(),
	}
}
