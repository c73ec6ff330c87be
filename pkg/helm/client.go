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
	"context"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/pkg/errors"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/release"
	"sigs.k8s.io/yaml"

	helmErrors "release-service/pkg/errors"
	helmModel "release-service/pkg/models/helm"
	"release-service/pkg/utils/util"
	"release-service/pkg/zlog"
)

// Commander is the typed subprocess contract the engine drives.
// *Command satisfies it.
type Commander interface {
	Status(ctx context.Context, releaseName, namespace string, revision int) (*release.Release, error)
	History(ctx context.Context, releaseName, namespace string, maxRevisions int) ([]*helmModel.HistoryEntry, error)
	InstallOrUpgrade(ctx context.Context, releaseName, namespace, chartRef string,
		values map[string]interface{}, opts *UpgradeOptions) (*release.Release, error)
	Rollback(ctx context.Context, releaseName, namespace string, revision int, opts *RollbackOptions) error
	Uninstall(ctx context.Context, releaseName, namespace string, opts *UninstallOptions) error
	GetChartMetadata(ctx context.Context, releaseName, namespace string, revision int) (*chart.Metadata, error)
	GetValues(ctx context.Context, releaseName, namespace string, revision int, computed bool) (map[string]interface{}, error)
	ShowChart(ctx context.Context, chartRef, repo, version string, devel bool) (*chart.Metadata, error)
	Pull(ctx context.Context, chartRef, repo, version string, devel bool) (string, error)
	Version(ctx context.Context) (string, error)
}

// Operation is the release reconciliation surface exposed to handlers
type Operation interface {
	GetCurrentRevision(ctx context.Context, releaseName, namespace string) (*helmModel.Revision, error)
	GetRevision(ctx context.Context, releaseName, namespace string, revision int) (*helmModel.Revision, error)
	History(ctx context.Context, releaseName, namespace string, maxRevisions int) ([]*helmModel.Revision, error)
	GetChart(ctx context.Context, spec *helmModel.ChartSpec) (*helmModel.Chart, error)
	PullChart(ctx context.Context, spec *helmModel.ChartSpec) (*helmModel.Chart, func(), error)
	GetReleaseValues(ctx context.Context, releaseName, namespace string, revision int,
		computed bool) (map[string]interface{}, error)
	EnsureRelease(ctx context.Context, releaseName, namespace string, chartRef string,
		values map[string]interface{}, opts *UpgradeOptions) (*helmModel.Revision, bool, error)
	UninstallRelease(ctx context.Context, releaseName, namespace string, opts *UninstallOptions) error
	Version(ctx context.Context) (string, error)
}

// interim statuses that block new mutations on a release
var (
	uninstallFirstStatuses = []string{
		string(release.StatusPendingInstall),
		string(release.StatusUninstalling),
	}
	rollbackFirstStatuses = []string{
		string(release.StatusPendingUpgrade),
		string(release.StatusPendingRollback),
	}
)

type helmClient struct {
	command Commander
	reader  helmModel.StatusReader
}

// NewHelmOperation creates the reconciliation engine on top of a command
// runner. The runner must also satisfy the revision StatusReader contract.
func NewHelmOperation(command Commander) Operation {
	reader, ok := command.(helmModel.StatusReader)
	if !ok {
		// Commander 方法集合覆盖 StatusReader，断言失败说明实现不完整
		zlog.Panicf("commander %T does not satisfy the status reader contract", command)
	}
	return &helmClient{command: command, reader: reader}
}

// GetCurrentRevision returns a snapshot of the latest revision of a release
func (h *helmClient) GetCurrentRevision(ctx context.Context, releaseName, namespace string) (*helmModel.Revision, error) {
	return h.GetRevision(ctx, releaseName, namespace, 0)
}

// GetRevision returns a snapshot of a specific revision, 0 meaning latest
func (h *helmClient) GetRevision(ctx context.Context, releaseName, namespace string, revision int) (*helmModel.Revision, error) {
	status, err := h.command.Status(ctx, releaseName, namespace, revision)
	if err != nil {
		return nil, err
	}
	return helmModel.NewRevisionFromStatus(status, h.reader), nil
}

// History returns revision snapshots for a release, newest first. The
// snapshots resolve chart metadata, hooks and values lazily.
func (h *helmClient) History(ctx context.Context, releaseName, namespace string, maxRevisions int) ([]*helmModel.Revision, error) {
	entries, err := h.command.History(ctx, releaseName, namespace, maxRevisions)
	if err != nil {
		return nil, err
	}
	revisions := make([]*helmModel.Revision, 0, len(entries))
	for _, entry := range entries {
		revisions = append(revisions, helmModel.NewHistoryRevision(releaseName, namespace, entry, h.reader))
	}
	return revisions, nil
}

// GetChart resolves a chart reference to its metadata without fetching
// the chart contents
func (h *helmClient) GetChart(ctx context.Context, spec *helmModel.ChartSpec) (*helmModel.Chart, error) {
	metadata, err := h.command.ShowChart(ctx, spec.Ref, spec.Repo, spec.Version, spec.Devel)
	if err != nil {
		return nil, err
	}
	return &helmModel.Chart{Ref: spec.Ref, Repo: spec.Repo, Metadata: metadata}, nil
}

// PullChart fetches and unpacks a chart, returning its metadata read from
// the unpacked Chart.yaml and a cleanup func removing the unpack directory.
// The returned chart's Ref points at the local unpacked directory.
func (h *helmClient) PullChart(ctx context.Context, spec *helmModel.ChartSpec) (*helmModel.Chart, func(), error) {
	destination, err := h.command.Pull(ctx, spec.Ref, spec.Repo, spec.Version, spec.Devel)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if removeErr := os.RemoveAll(destination); removeErr != nil {
			zlog.Warnf("remove unpack directory %s failed, %v", destination, removeErr)
		}
	}
	chartDir, err := findChartDirectory(destination)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	contents, err := os.ReadFile(filepath.Join(chartDir, "Chart.yaml"))
	if err != nil {
		zlog.Errorf("read Chart.yaml failed, %v", err)
		cleanup()
		return nil, nil, err
	}
	metadata := &chart.Metadata{}
	if err := yaml.Unmarshal(contents, metadata); err != nil {
		zlog.Errorf("decode Chart.yaml failed, %v", err)
		cleanup()
		return nil, nil, err
	}
	return &helmModel.Chart{Ref: chartDir, Repo: spec.Repo, Metadata: metadata}, cleanup, nil
}

// findChartDirectory locates the single unpacked chart directory below
// the pull destination
func findChartDirectory(destination string) (string, error) {
	var chartDir string
	err := filepath.WalkDir(destination, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && entry.Name() == "Chart.yaml" && chartDir == "" {
			chartDir = filepath.Dir(path)
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		zlog.Errorf("walk unpack directory %s failed, %v", destination, err)
		return "", err
	}
	if chartDir == "" {
		return "", errors.Errorf("no Chart.yaml found under %s", destination)
	}
	return chartDir, nil
}

// GetReleaseValues returns the values recorded for a revision, 0 meaning
// latest. With computed the fully computed values are returned instead of
// the user-supplied ones.
func (h *helmClient) GetReleaseValues(ctx context.Context, releaseName, namespace string, revision int,
	computed bool) (map[string]interface{}, error) {
	return h.command.GetValues(ctx, releaseName, namespace, revision, computed)
}

// getProceedableRevision drives the release out of interim states and
// returns the revision new operations can proceed from, or nil when the
// release does not exist. The caller's timeout applies to the corrective
// uninstall or rollback as well.
func (h *helmClient) getProceedableRevision(ctx context.Context, releaseName, namespace string,
	timeout time.Duration) (*helmModel.Revision, error) {
	revision, err := h.GetCurrentRevision(ctx, releaseName, namespace)
	if err != nil {
		if helmErrors.IsReleaseNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	switch {
	case util.Contains(uninstallFirstStatuses, string(revision.Status)):
		// 中断的安装或卸载没有可回滚的目标，只能清理后重装
		zlog.Infof("release %s/%s stuck in %s, uninstalling before proceeding",
			namespace, zlog.CleanSpecialChar(releaseName), revision.Status)
		if err := h.command.Uninstall(ctx, releaseName, namespace,
			&UninstallOptions{Timeout: timeout, Wait: true}); err != nil {
			return nil, err
		}
		return nil, nil
	case util.Contains(rollbackFirstStatuses, string(revision.Status)):
		zlog.Infof("release %s/%s stuck in %s, rolling back before proceeding",
			namespace, zlog.CleanSpecialChar(releaseName), revision.Status)
		if err := h.command.Rollback(ctx, releaseName, namespace, 0,
			&RollbackOptions{CleanupOnFail: true, Timeout: timeout, Wait: true}); err != nil {
			return nil, err
		}
		return h.GetCurrentRevision(ctx, releaseName, namespace)
	default:
		return revision, nil
	}
}

// shouldInstallOrUpgrade reports whether the desired chart and values
// differ from what the proceedable revision already deployed
func (h *helmClient) shouldInstallOrUpgrade(ctx context.Context, revision *helmModel.Revision,
	chartMetadata *chart.Metadata, values map[string]interface{}) (bool, error) {
	if revision == nil {
		return true, nil
	}
	if revision.Status != release.StatusDeployed {
		return true, nil
	}
	deployedChart, err := revision.ChartMetadata(ctx)
	if err != nil {
		return false, err
	}
	if deployedChart.Name != chartMetadata.Name || deployedChart.Version != chartMetadata.Version {
		return true, nil
	}
	desired, err := NormalizeValues(values)
	if err != nil {
		return false, err
	}
	deployedValues, err := revision.Values(ctx)
	if err != nil {
		return false, err
	}
	return !reflect.DeepEqual(desired, deployedValues), nil
}

// EnsureRelease reconciles a release to the desired chart and values. It is
// idempotent: when the current revision already matches, no mutation is
// issued and the current snapshot is returned with upgraded false. Interim
// states are remediated first, then at most one install or upgrade runs.
func (h *helmClient) EnsureRelease(ctx context.Context, releaseName, namespace string, chartRef string,
	values map[string]interface{}, opts *UpgradeOptions) (*helmModel.Revision, bool, error) {
	if opts == nil {
		opts = &UpgradeOptions{}
	}
	chartMetadata, err := h.command.ShowChart(ctx, chartRef, opts.Repo, opts.Version, opts.Devel)
	if err != nil {
		return nil, false, err
	}
	revision, err := h.getProceedableRevision(ctx, releaseName, namespace, opts.Timeout)
	if err != nil {
		return nil, false, err
	}
	proceed, err := h.shouldInstallOrUpgrade(ctx, revision, chartMetadata, values)
	if err != nil {
		return nil, false, err
	}
	if !proceed {
		zlog.Infof("release %s/%s already converged at revision %d",
			namespace, zlog.CleanSpecialChar(releaseName), revision.Revision)
		return revision, false, nil
	}
	status, err := h.command.InstallOrUpgrade(ctx, releaseName, namespace, chartRef, values, opts)
	if err != nil {
		return nil, false, err
	}
	return helmModel.NewRevisionFromStatus(status, h.reader), true, nil
}

// UninstallRelease removes a release. Removing an absent release succeeds.
func (h *helmClient) UninstallRelease(ctx context.Context, releaseName, namespace string, opts *UninstallOptions) error {
	err := h.command.Uninstall(ctx, releaseName, namespace, opts)
	if err != nil && helmErrors.IsReleaseNotFound(err) {
		zlog.Infof("release %s/%s already absent", namespace, zlog.CleanSpecialChar(releaseName))
		return nil
	}
	return err
}

// Version returns the helm client version
func (h *helmClient) Version(ctx context.Context) (string, error) {
	return h.command.Version(ctx)
}
