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

/*
Package helm
contains the release and revision snapshot models
*/
package helm

import (
	"bytes"
	"context"
	"io"
	"sync"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/release"
	helmtime "helm.sh/helm/v3/pkg/time"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	k8syaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	"release-service/pkg/zlog"
)

const manifestReadBufferSize = 4096

// StatusReader is the narrow read contract a revision needs to resolve
// its lazy fields. *helm.Command satisfies it.
type StatusReader interface {
	Status(ctx context.Context, releaseName, namespace string, revision int) (*release.Release, error)
	GetChartMetadata(ctx context.Context, releaseName, namespace string, revision int) (*chart.Metadata, error)
	GetValues(ctx context.Context, releaseName, namespace string, revision int, computed bool) (map[string]interface{}, error)
}

// Release identifies a named deployment in a namespace
type Release struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// Hook one lifecycle hook executed as part of a revision
type Hook struct {
	Name           string                     `json:"name"`
	Phase          release.HookPhase          `json:"phase"`
	Kind           string                     `json:"kind"`
	Path           string                     `json:"path"`
	Resource       map[string]interface{}     `json:"resource"`
	Events         []release.HookEvent        `json:"events,omitempty"`
	DeletePolicies []release.HookDeletePolicy `json:"deletePolicies,omitempty"`
}

// Revision is a point-in-time snapshot of one numbered deployment of a
// release. Identity and status fields are fixed at construction; chart
// metadata, hooks, rendered resources and applied values resolve at most
// once and are cached for the snapshot's lifetime.
type Revision struct {
	Release     *Release       `json:"release"`
	Revision    int            `json:"revision"`
	Status      release.Status `json:"status"`
	Updated     helmtime.Time  `json:"updated"`
	Description string         `json:"description,omitempty"`
	Notes       string         `json:"notes,omitempty"`

	mu              sync.Mutex
	chartMetadata   *chart.Metadata
	hooks           []*Hook
	resources       []*unstructured.Unstructured
	values          map[string]interface{}
	contentResolved bool
	reader          StatusReader
}

// NewRevisionFromStatus builds a revision snapshot from a status document.
// Hooks and resources embedded in the document are captured eagerly, as is
// chart metadata when present (mutating operations always embed it).
func NewRevisionFromStatus(status *release.Release, reader StatusReader) *Revision {
	revision := &Revision{
		Release: &Release{
			Name:      status.Name,
			Namespace: status.Namespace,
		},
		Revision: status.Version,
		reader:   reader,
	}
	if status.Info != nil {
		revision.Status = status.Info.Status
		revision.Updated = status.Info.LastDeployed
		revision.Description = status.Info.Description
		revision.Notes = status.Info.Notes
	}
	revision.setFromStatus(status)
	return revision
}

// NewHistoryRevision builds a revision snapshot from a history row. All
// content fields are left for lazy resolution.
func NewHistoryRevision(releaseName, namespace string, entry *HistoryEntry, reader StatusReader) *Revision {
	return &Revision{
		Release: &Release{
			Name:      releaseName,
			Namespace: namespace,
		},
		Revision:    entry.Revision,
		Status:      entry.Status,
		Updated:     entry.Updated,
		Description: entry.Description,
		reader:      reader,
	}
}

func (r *Revision) setFromStatus(status *release.Release) {
	if status.Chart != nil && status.Chart.Metadata != nil {
		r.chartMetadata = status.Chart.Metadata
	}
	hooks := make([]*Hook, 0, len(status.Hooks))
	for _, hook := range status.Hooks {
		if hook == nil {
			continue
		}
		hooks = append(hooks, convertHook(hook))
	}
	r.hooks = hooks
	r.resources = parseManifest(status.Manifest)
	r.contentResolved = true
}

func convertHook(hook *release.Hook) *Hook {
	phase := hook.LastRun.Phase
	if phase == "" {
		phase = release.HookPhaseUnknown
	}
	resource := map[string]interface{}{}
	if err := yaml.Unmarshal([]byte(hook.Manifest), &resource); err != nil {
		zlog.Warnf("parse hook %s manifest failed, %v", hook.Name, err)
	}
	return &Hook{
		Name:           hook.Name,
		Phase:          phase,
		Kind:           hook.Kind,
		Path:           hook.Path,
		Resource:       resource,
		Events:         hook.Events,
		DeletePolicies: hook.DeletePolicies,
	}
}

// parseManifest splits rendered multi-document manifest text into
// unstructured objects, skipping empty documents
func parseManifest(manifest string) []*unstructured.Unstructured {
	objects := make([]*unstructured.Unstructured, 0)
	if manifest == "" {
		return objects
	}
	decoder := k8syaml.NewYAMLOrJSONDecoder(bytes.NewBufferString(manifest), manifestReadBufferSize)
	for {
		object := map[string]interface{}{}
		err := decoder.Decode(&object)
		if err == io.EOF {
			break
		}
		if err != nil {
			zlog.Warnf("parse manifest document failed, %v", err)
			break
		}
		if len(object) == 0 {
			continue
		}
		objects = append(objects, &unstructured.Unstructured{Object: object})
	}
	return objects
}

// ChartMetadata returns the metadata of the chart this revision was
// deployed from, resolving it via a dedicated query on first access.
func (r *Revision) ChartMetadata(ctx context.Context) (*chart.Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chartMetadata != nil {
		return r.chartMetadata, nil
	}
	metadata, err := r.reader.GetChartMetadata(ctx, r.Release.Name, r.Release.Namespace, r.Revision)
	if err != nil {
		return nil, err
	}
	r.chartMetadata = metadata
	return metadata, nil
}

// ResolvedChartMetadata returns the chart metadata only when it has
// already been resolved, without triggering a query
func (r *Revision) ResolvedChartMetadata() *chart.Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chartMetadata
}

// Hooks returns the lifecycle hooks executed for this revision
func (r *Revision) Hooks(ctx context.Context) ([]*Hook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.resolveContent(ctx); err != nil {
		return nil, err
	}
	return r.hooks, nil
}

// Resources returns the rendered resources of this revision
func (r *Revision) Resources(ctx context.Context) ([]*unstructured.Unstructured, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.resolveContent(ctx); err != nil {
		return nil, err
	}
	return r.resources, nil
}

// caller must hold r.mu
func (r *Revision) resolveContent(ctx context.Context) error {
	if r.contentResolved {
		return nil
	}
	status, err := r.reader.Status(ctx, r.Release.Name, r.Release.Namespace, r.Revision)
	if err != nil {
		return err
	}
	r.setFromStatus(status)
	return nil
}

// Values returns the user-supplied values recorded for this revision
func (r *Revision) Values(ctx context.Context) (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values != nil {
		return r.values, nil
	}
	values, err := r.reader.GetValues(ctx, r.Release.Name, r.Release.Namespace, r.Revision, false)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = map[string]interface{}{}
	}
	r.values = values
	return values, nil
}

// Refresh returns a brand-new snapshot of the same revision from a fresh
// status query. The receiver is never mutated.
func (r *Revision) Refresh(ctx context.Context) (*Revision, error) {
	status, err := r.reader.Status(ctx, r.Release.Name, r.Release.Namespace, r.Revision)
	if err != nil {
		return nil, err
	}
	return NewRevisionFromStatus(status, r.reader), nil
}
