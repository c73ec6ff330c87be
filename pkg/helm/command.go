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
wraps the helm executable behind a typed command runner and the
release reconciliation engine built on top of it
*/
package helm

import (
	"bytes"
	"context"
	"encoding/json"
	goErrors "errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/release"
	"sigs.k8s.io/yaml"

	helmErrors "release-service/pkg/errors"
	helmModel "release-service/pkg/models/helm"
	"release-service/pkg/zlog"
)

const (
	defaultExecutable          = "helm"
	defaultTimeout             = 5 * time.Minute
	defaultHistoryMaxRevisions = 10

	// DefaultHistoryMax default number of history rows returned by History
	DefaultHistoryMax = 256
)

// chartMetadataTemplate templates the chart metadata of a deployed release
// out of "helm get all". There is no native helm command for this.
const chartMetadataTemplate = `
{{- with .Release.Chart.Metadata }}
apiVersion: {{ .APIVersion }}
name: {{ printf "%q" .Name }}
version: {{ printf "%q" .Version }}
{{- with .KubeVersion }}
kubeVersion: {{ printf "%q" . }}
{{- end }}
{{- with .Description }}
description: {{ printf "%q" . }}
{{- end }}
{{- with .Type }}
type: {{ printf "%q" . }}
{{- end }}
{{- with .Keywords }}
keywords:
  {{- range . }}
  - {{ printf "%q" . }}
  {{- end }}
{{- end }}
{{- with .Home }}
home: {{ printf "%q" . }}
{{- end }}
{{- with .Sources }}
sources:
  {{- range . }}
  - {{ printf "%q" . }}
  {{- end }}
{{- end }}
{{- with .Maintainers }}
maintainers:
  {{- range . }}
  - name: {{ printf "%q" .Name }}
    {{- with .Email }}
    email: {{ printf "%q" . }}
    {{- end }}
    {{- with .URL }}
    url: {{ printf "%q" . }}
    {{- end }}
  {{- end }}
{{- end }}
{{- with .Icon }}
icon: {{ printf "%q" . }}
{{- end }}
{{- with .AppVersion }}
appVersion: {{ printf "%q" . }}
{{- end }}
{{- if .Deprecated }}
deprecated: true
{{- end }}
{{- with .Annotations }}
annotations:
  {{- range $k, $v := . }}
  {{ $k }}: {{ printf "%q" $v }}
  {{- end }}
{{- end }}
{{- end }}
`

// CommandConfig settings shared by every helm invocation
type CommandConfig struct {
	// Executable the helm binary, defaults to "helm" on PATH
	Executable string
	// DefaultTimeout deadline passed to mutating operations without an override
	DefaultTimeout time.Duration
	// HistoryMaxRevisions value of --history-max on install/upgrade/rollback
	HistoryMaxRevisions int
	// InsecureSkipTLSVerify skip tls verification for the kubernetes api
	InsecureSkipTLSVerify bool
	// Kubeconfig path of the kubeconfig file, empty uses helm defaults
	Kubeconfig string
	// Kubecontext the kubeconfig context to use
	Kubecontext string
	// KubeAPIServer address and port of the kubernetes api server
	KubeAPIServer string
	// KubeToken bearer token for the kubernetes api
	KubeToken string
	// UnpackDirectory parent directory for chart pull temp directories
	UnpackDirectory string
}

// Command invokes the helm executable as a subprocess. It holds no shared
// mutable state, concurrent invocations need no coordination.
type Command struct {
	executable            string
	defaultTimeout        time.Duration
	historyMaxRevisions   int
	insecureSkipTLSVerify bool
	kubeconfig            string
	kubecontext           string
	kubeAPIServer         string
	kubeToken             string
	unpackDirectory       string
}

// NewCommand creates a command runner from the given config
func NewCommand(cfg CommandConfig) *Command {
	command := &Command{
		executable:            cfg.Executable,
		defaultTimeout:        cfg.DefaultTimeout,
		historyMaxRevisions:   cfg.HistoryMaxRevisions,
		insecureSkipTLSVerify: cfg.InsecureSkipTLSVerify,
		kubeconfig:            cfg.Kubeconfig,
		kubecontext:           cfg.Kubecontext,
		kubeAPIServer:         cfg.KubeAPIServer,
		kubeToken:             cfg.KubeToken,
		unpackDirectory:       cfg.UnpackDirectory,
	}
	if command.executable == "" {
		command.executable = defaultExecutable
	}
	if command.defaultTimeout <= 0 {
		command.defaultTimeout = defaultTimeout
	}
	if command.historyMaxRevisions <= 0 {
		command.historyMaxRevisions = defaultHistoryMaxRevisions
	}
	return command
}

// logFormatArg 日志中隐藏 stdin 占位符与多行载荷
func logFormatArg(arg string) string {
	if arg == "-" {
		return "<stdin>"
	}
	if strings.Contains(arg, "\n") {
		return "<multi-line string>"
	}
	return arg
}

func (c *Command) logFormatCommand(args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, c.executable)
	for _, arg := range args {
		parts = append(parts, logFormatArg(arg))
	}
	return zlog.CleanSpecialChar(strings.Join(parts, " "))
}

// connectionArgs appends the global connection flags to every invocation
func (c *Command) connectionArgs(args []string) []string {
	if c.kubeconfig != "" {
		args = append(args, "--kubeconfig", c.kubeconfig)
	}
	if c.kubecontext != "" {
		args = append(args, "--kube-context", c.kubecontext)
	}
	if c.kubeAPIServer != "" {
		args = append(args, "--kube-apiserver", c.kubeAPIServer)
	}
	if c.kubeToken != "" {
		args = append(args, "--kube-token", c.kubeToken)
	}
	if c.insecureSkipTLSVerify {
		args = append(args, "--kube-insecure-skip-tls-verify")
	}
	return args
}

func (c *Command) timeoutArg(timeout time.Duration) string {
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	return timeout.String()
}

// Run executes helm with the given arguments and optional stdin payload,
// returning the captured stdout. A nonzero exit comes back as a classified
// error carrying exit code and both output streams. If ctx is cancelled
// while the subprocess runs, the child is sent SIGTERM, reaped, and the
// context's error is returned unchanged.
func (c *Command) Run(ctx context.Context, args []string, input []byte) ([]byte, error) {
	argv := c.connectionArgs(args)
	logCommand := c.logFormatCommand(argv)
	zlog.Infof("running command: %s", logCommand)

	cmd := exec.Command(c.executable, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(input) > 0 {
		cmd.Stdin = bytes.NewReader(input)
	}
	if err := cmd.Start(); err != nil {
		zlog.Errorf("start command failed: %s, %v", logCommand, err)
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		// 终止子进程后必须等待其退出，进程可能已经自行结束
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !goErrors.Is(err, os.ErrProcessDone) {
			zlog.Warnf("terminate command failed: %s, %v", logCommand, err)
		}
		<-done
		return nil, ctx.Err()
	case err := <-done:
		if err == nil {
			zlog.Infof("command succeeded: %s", logCommand)
			return stdout.Bytes(), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if !goErrors.As(err, &exitErr) {
			zlog.Errorf("command failed without exit status: %s, %v", logCommand, err)
			return nil, err
		}
		zlog.Warnf("command failed: %s", logCommand)
		return nil, helmErrors.Classify(exitErr.ExitCode(), stdout.Bytes(), stderr.Bytes())
	}
}

// Status returns the status document of the release. A revision of 0
// queries the latest revision.
func (c *Command) Status(ctx context.Context, releaseName, namespace string, revision int) (*release.Release, error) {
	args := []string{"status", releaseName, "--output", "json"}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	if revision > 0 {
		args = append(args, "--revision", strconv.Itoa(revision))
	}
	output, err := c.Run(ctx, args, nil)
	if err != nil {
		return nil, err
	}
	status := &release.Release{}
	if err := json.Unmarshal(output, status); err != nil {
		zlog.Errorf("decode status output failed, %v", err)
		return nil, err
	}
	return status, nil
}

// History returns up to maxRevisions historical revisions, newest first
func (c *Command) History(ctx context.Context, releaseName, namespace string, maxRevisions int) ([]*helmModel.HistoryEntry, error) {
	if maxRevisions <= 0 {
		maxRevisions = DefaultHistoryMax
	}
	args := []string{"history", releaseName, "--output", "json", "--max", strconv.Itoa(maxRevisions)}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	output, err := c.Run(ctx, args, nil)
	if err != nil {
		return nil, err
	}
	entries := make([]*helmModel.HistoryEntry, 0)
	if err := json.Unmarshal(output, &entries); err != nil {
		zlog.Errorf("decode history output failed, %v", err)
		return nil, err
	}
	// helm prints oldest first
	for left, right := 0, len(entries)-1; left < right; left, right = left+1, right-1 {
		entries[left], entries[right] = entries[right], entries[left]
	}
	return entries, nil
}

// UpgradeOptions optional flags for InstallOrUpgrade
type UpgradeOptions struct {
	Atomic          bool
	CleanupOnFail   bool
	CreateNamespace bool
	Description     string
	Devel           bool
	DryRun          bool
	Force           bool
	NoHooks         bool
	Repo            string
	ResetValues     bool
	ReuseValues     bool
	SkipCRDs        bool
	Timeout         time.Duration
	Version         string
	Wait            bool
}

// InstallOrUpgrade installs or upgrades the release with the given chart
// and values and returns the resulting status document. Values travel to
// helm on stdin.
func (c *Command) InstallOrUpgrade(ctx context.Context, releaseName, namespace, chartRef string,
	values map[string]interface{}, opts *UpgradeOptions) (*release.Release, error) {
	if opts == nil {
		opts = &UpgradeOptions{}
	}
	args := []string{
		"upgrade", releaseName, chartRef,
		"--history-max", strconv.Itoa(c.historyMaxRevisions),
		"--install",
		"--output", "json",
		"--timeout", c.timeoutArg(opts.Timeout),
		"--values", "-",
	}
	if opts.Atomic {
		args = append(args, "--atomic")
	}
	if opts.CleanupOnFail {
		args = append(args, "--cleanup-on-fail")
	}
	if opts.CreateNamespace {
		args = append(args, "--create-namespace")
	}
	if opts.Description != "" {
		args = append(args, "--description", opts.Description)
	}
	if opts.Devel {
		args = append(args, "--devel")
	}
	if opts.DryRun {
		args = append(args, "--dry-run")
	}
	if opts.Force {
		args = append(args, "--force")
	}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	if opts.NoHooks {
		args = append(args, "--no-hooks")
	}
	if opts.Repo != "" {
		args = append(args, "--repo", opts.Repo)
	}
	if opts.ResetValues {
		args = append(args, "--reset-values")
	}
	if opts.ReuseValues {
		args = append(args, "--reuse-values")
	}
	if opts.SkipCRDs {
		args = append(args, "--skip-crds")
	}
	if opts.Version != "" {
		args = append(args, "--version", opts.Version)
	}
	if opts.Wait {
		args = append(args, "--wait", "--wait-for-jobs")
	}

	if values == nil {
		values = map[string]interface{}{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		zlog.Errorf("encode values failed, %v", err)
		return nil, err
	}
	output, err := c.Run(ctx, args, payload)
	if err != nil {
		return nil, err
	}
	status := &release.Release{}
	if err := json.Unmarshal(output, status); err != nil {
		zlog.Errorf("decode upgrade output failed, %v", err)
		return nil, err
	}
	return status, nil
}

// RollbackOptions optional flags for Rollback
type RollbackOptions struct {
	CleanupOnFail bool
	DryRun        bool
	Force         bool
	NoHooks       bool
	RecreatePods  bool
	Timeout       time.Duration
	Wait          bool
}

// Rollback rolls the release back to the given revision. A revision of 0
// rolls back to the previous revision. There is no output document, the
// caller must re-query status.
func (c *Command) Rollback(ctx context.Context, releaseName, namespace string, revision int, opts *RollbackOptions) error {
	if opts == nil {
		opts = &RollbackOptions{}
	}
	args := []string{"rollback", releaseName}
	if revision > 0 {
		args = append(args, strconv.Itoa(revision))
	}
	args = append(args,
		"--history-max", strconv.Itoa(c.historyMaxRevisions),
		"--timeout", c.timeoutArg(opts.Timeout),
	)
	if opts.CleanupOnFail {
		args = append(args, "--cleanup-on-fail")
	}
	if opts.DryRun {
		args = append(args, "--dry-run")
	}
	if opts.Force {
		args = append(args, "--force")
	}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	if opts.NoHooks {
		args = append(args, "--no-hooks")
	}
	if opts.RecreatePods {
		args = append(args, "--recreate-pods")
	}
	if opts.Wait {
		args = append(args, "--wait", "--wait-for-jobs")
	}
	_, err := c.Run(ctx, args, nil)
	return err
}

// UninstallOptions optional flags for Uninstall
type UninstallOptions struct {
	DryRun      bool
	KeepHistory bool
	NoHooks     bool
	Timeout     time.Duration
	Wait        bool
}

// Uninstall removes the release. Fails with ReleaseNotFoundError when the
// release is already absent.
func (c *Command) Uninstall(ctx context.Context, releaseName, namespace string, opts *UninstallOptions) error {
	if opts == nil {
		opts = &UninstallOptions{}
	}
	args := []string{
		"uninstall", releaseName,
		"--timeout", c.timeoutArg(opts.Timeout),
	}
	if opts.DryRun {
		args = append(args, "--dry-run")
	}
	if opts.KeepHistory {
		args = append(args, "--keep-history")
	}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	if opts.NoHooks {
		args = append(args, "--no-hooks")
	}
	if opts.Wait {
		args = append(args, "--wait")
	}
	_, err := c.Run(ctx, args, nil)
	return err
}

// GetChartMetadata returns the metadata of the chart a revision was
// deployed from, templated out of "helm get all"
func (c *Command) GetChartMetadata(ctx context.Context, releaseName, namespace string, revision int) (*chart.Metadata, error) {
	args := []string{"get", "all", releaseName, "--template", chartMetadataTemplate}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	if revision > 0 {
		args = append(args, "--revision", strconv.Itoa(revision))
	}
	output, err := c.Run(ctx, args, nil)
	if err != nil {
		return nil, err
	}
	metadata := &chart.Metadata{}
	if err := yaml.Unmarshal(output, metadata); err != nil {
		zlog.Errorf("decode chart metadata failed, %v", err)
		return nil, err
	}
	return metadata, nil
}

// GetValues returns the values recorded for a revision. With computed the
// full computed values are returned instead of the user-supplied ones.
func (c *Command) GetValues(ctx context.Context, releaseName, namespace string, revision int, computed bool) (map[string]interface{}, error) {
	args := []string{"get", "values", releaseName, "--output", "json"}
	if computed {
		args = append(args, "--all")
	}
	if revision > 0 {
		args = append(args, "--revision", strconv.Itoa(revision))
	}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	output, err := c.Run(ctx, args, nil)
	if err != nil {
		return nil, err
	}
	// helm prints "null" for a release deployed without values
	values := map[string]interface{}{}
	if err := json.Unmarshal(output, &values); err != nil {
		var null interface{}
		if jsonErr := json.Unmarshal(output, &null); jsonErr == nil && null == nil {
			return map[string]interface{}{}, nil
		}
		zlog.Errorf("decode values output failed, %v", err)
		return nil, err
	}
	return values, nil
}

// ShowChart returns the Chart.yaml contents for the given chart reference
func (c *Command) ShowChart(ctx context.Context, chartRef, repo, version string, devel bool) (*chart.Metadata, error) {
	args := []string{"show", "chart", chartRef}
	if devel {
		args = append(args, "--devel")
	}
	if repo != "" {
		args = append(args, "--repo", repo)
	}
	if version != "" {
		args = append(args, "--version", version)
	}
	output, err := c.Run(ctx, args, nil)
	if err != nil {
		return nil, err
	}
	metadata := &chart.Metadata{}
	if err := yaml.Unmarshal(output, metadata); err != nil {
		zlog.Errorf("decode show chart output failed, %v", err)
		return nil, err
	}
	return metadata, nil
}

// Pull fetches a chart and unpacks it into a fresh temp directory below
// the configured unpack directory. The caller owns the directory.
func (c *Command) Pull(ctx context.Context, chartRef, repo, version string, devel bool) (string, error) {
	destination, err := os.MkdirTemp(c.unpackDirectory, "helm.")
	if err != nil {
		zlog.Errorf("create unpack directory failed, %v", err)
		return "", err
	}
	args := []string{"pull", chartRef, "--destination", destination, "--untar"}
	if devel {
		args = append(args, "--devel")
	}
	if repo != "" {
		args = append(args, "--repo", repo)
	}
	if version != "" {
		args = append(args, "--version", version)
	}
	if _, err := c.Run(ctx, args, nil); err != nil {
		if removeErr := os.RemoveAll(destination); removeErr != nil {
			zlog.Warnf("remove unpack directory %s failed, %v", destination, removeErr)
		}
		return "", err
	}
	return destination, nil
}

// Version returns the helm client version
func (c *Command) Version(ctx context.Context) (string, error) {
	output, err := c.Run(ctx, []string{"version", "--template", "{{ .Version }}"}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
