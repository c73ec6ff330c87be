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
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/agiledragon/gomonkey/v2"
	"github.com/stretchr/testify/assert"

	helmErrors "release-service/pkg/errors"
)

// TestNewCommandDefaults 测试默认配置填充
func TestNewCommandDefaults(t *testing.T) {
	command := NewCommand(CommandConfig{})
	assert.Equal(t, "helm", command.executable)
	assert.Equal(t, 5*time.Minute, command.defaultTimeout)
	assert.Equal(t, 10, command.historyMaxRevisions)
}

// TestConnectionArgsOrder 测试全局连接参数的追加顺序
func TestConnectionArgsOrder(t *testing.T) {
	command := NewCommand(CommandConfig{
		Kubeconfig:            "/tmp/kubeconfig",
		Kubecontext:           "dev",
		KubeAPIServer:         "https://10.0.0.1:6443",
		KubeToken:             "token",
		InsecureSkipTLSVerify: true,
	})
	args := command.connectionArgs([]string{"status", "demo"})
	assert.Equal(t, []string{
		"status", "demo",
		"--kubeconfig", "/tmp/kubeconfig",
		"--kube-context", "dev",
		"--kube-apiserver", "https://10.0.0.1:6443",
		"--kube-token", "token",
		"--kube-insecure-skip-tls-verify",
	}, args)
}

// TestRunSuccess 测试子进程成功时返回 stdout
func TestRunSuccess(t *testing.T) {
	command := NewCommand(CommandConfig{Executable: "sh"})
	output, err := command.Run(context.Background(), []string{"-c", "printf hello"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(output))
}

// TestRunStdin 测试 stdin 载荷透传
func TestRunStdin(t *testing.T) {
	command := NewCommand(CommandConfig{Executable: "sh"})
	output, err := command.Run(context.Background(), []string{"-c", "cat"}, []byte("payload"))
	assert.NoError(t, err)
	assert.Equal(t, "payload", string(output))
}

// TestRunFailureClassified 测试非零退出时按 stderr 分类错误
func TestRunFailureClassified(t *testing.T) {
	command := NewCommand(CommandConfig{Executable: "sh"})
	_, err := command.Run(context.Background(),
		[]string{"-c", "echo partial; echo 'Error: release: not found' >&2; exit 1"}, nil)
	assert.Error(t, err)
	assert.True(t, helmErrors.IsReleaseNotFound(err))

	var commandErr *helmErrors.ReleaseNotFoundError
	assert.ErrorAs(t, err, &commandErr)
	assert.Equal(t, 1, commandErr.ExitCode)
	assert.Equal(t, "partial\n", string(commandErr.Stdout))
	assert.Contains(t, string(commandErr.Stderr), "release: not found")
}

// TestRunCancellation 测试取消后终止子进程并返回 context 错误
func TestRunCancellation(t *testing.T) {
	command := NewCommand(CommandConfig{Executable: "sh"})
	ctx, cancel := context.WithCancel(context.Background())

	started := time.Now()
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := command.Run(ctx, []string{"-c", "sleep 30"}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, helmErrors.IsCancelled(err))
	// SIGTERM 生效则远早于 sleep 结束
	assert.Less(t, time.Since(started), 5*time.Second)
}

// TestLogFormatArg 测试日志参数脱敏格式
func TestLogFormatArg(t *testing.T) {
	assert.Equal(t, "<stdin>", logFormatArg("-"))
	assert.Equal(t, "<multi-line string>", logFormatArg("line1\nline2"))
	assert.Equal(t, "--output", logFormatArg("--output"))
}

func captureArgs(command *Command, output []byte) (*[]string, *[]byte, *gomonkey.Patches) {
	var captured []string
	var capturedInput []byte
	patches := gomonkey.ApplyMethod(reflect.TypeOf(command), "Run",
		func(_ *Command, _ context.Context, args []string, input []byte) ([]byte, error) {
			captured = append([]string{}, args...)
			capturedInput = input
			return output, nil
		})
	return &captured, &capturedInput, patches
}

// TestStatusArgs 测试 status 子命令参数与解码
func TestStatusArgs(t *testing.T) {
	command := NewCommand(CommandConfig{})
	statusJSON := []byte(`{"name":"demo","namespace":"default","version":3,"info":{"status":"deployed"}}`)
	captured, _, patches := captureArgs(command, statusJSON)
	defer patches.Reset()

	status, err := command.Status(context.Background(), "demo", "default", 3)
	assert.NoError(t, err)
	assert.Equal(t, []string{"status", "demo", "--output", "json", "--namespace", "default", "--revision", "3"},
		*captured)
	assert.Equal(t, "demo", status.Name)
	assert.Equal(t, 3, status.Version)
}

// TestHistoryArgsAndOrder 测试 history 参数与倒序输出
func TestHistoryArgsAndOrder(t *testing.T) {
	command := NewCommand(CommandConfig{})
	historyJSON := []byte(`[{"revision":1,"status":"superseded"},{"revision":2,"status":"deployed"}]`)
	captured, _, patches := captureArgs(command, historyJSON)
	defer patches.Reset()

	entries, err := command.History(context.Background(), "demo", "default", 0)
	assert.NoError(t, err)
	assert.Equal(t, []string{"history", "demo", "--output", "json", "--max", "256", "--namespace", "default"},
		*captured)
	assert.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].Revision)
	assert.Equal(t, 1, entries[1].Revision)
}

// TestInstallOrUpgradeArgs 测试 upgrade 参数布局与 stdin values
func TestInstallOrUpgradeArgs(t *testing.T) {
	command := NewCommand(CommandConfig{HistoryMaxRevisions: 7})
	statusJSON := []byte(`{"name":"demo","namespace":"default","version":1}`)
	captured, capturedInput, patches := captureArgs(command, statusJSON)
	defer patches.Reset()

	values := map[string]interface{}{"replicas": 2}
	_, err := command.InstallOrUpgrade(context.Background(), "demo", "default", "repo/app", values,
		&UpgradeOptions{
			CreateNamespace: true,
			Timeout:         time.Minute,
			Version:         "1.2.3",
			Wait:            true,
		})
	assert.NoError(t, err)

	args := *captured
	assert.Equal(t, []string{
		"upgrade", "demo", "repo/app",
		"--history-max", "7",
		"--install",
		"--output", "json",
		"--timeout", "1m0s",
		"--values", "-",
	}, args[:12])
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "--create-namespace")
	assert.Contains(t, joined, "--namespace default")
	assert.Contains(t, joined, "--version 1.2.3")
	assert.Contains(t, joined, "--wait --wait-for-jobs")
	assert.NotContains(t, joined, "--atomic")

	decoded := map[string]interface{}{}
	assert.NoError(t, json.Unmarshal(*capturedInput, &decoded))
	assert.Equal(t, float64(2), decoded["replicas"])
}

// TestRollbackArgs 测试 rollback 参数布局
func TestRollbackArgs(t *testing.T) {
	command := NewCommand(CommandConfig{})
	captured, _, patches := captureArgs(command, nil)
	defer patches.Reset()

	err := command.Rollback(context.Background(), "demo", "default", 0,
		&RollbackOptions{CleanupOnFail: true, Wait: true})
	assert.NoError(t, err)

	args := *captured
	assert.Equal(t, []string{"rollback", "demo", "--history-max", "10", "--timeout", "5m0s"}, args[:6])
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "--cleanup-on-fail")
	assert.Contains(t, joined, "--namespace default")
	assert.Contains(t, joined, "--wait --wait-for-jobs")
}

// TestRollbackRevisionArg 指定修订号时作为位置参数传入
func TestRollbackRevisionArg(t *testing.T) {
	command := NewCommand(CommandConfig{})
	captured, _, patches := captureArgs(command, nil)
	defer patches.Reset()

	err := command.Rollback(context.Background(), "demo", "", 4, nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"rollback", "demo", "4"}, (*captured)[:3])
}

// TestUninstallArgs 测试 uninstall 参数布局
func TestUninstallArgs(t *testing.T) {
	command := NewCommand(CommandConfig{})
	captured, _, patches := captureArgs(command, nil)
	defer patches.Reset()

	err := command.Uninstall(context.Background(), "demo", "default", &UninstallOptions{Wait: true})
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"uninstall", "demo",
		"--timeout", "5m0s",
		"--namespace", "default",
		"--wait",
	}, *captured)
}

// TestGetValuesArgs 测试 get values 参数与 null 输出处理
func TestGetValuesArgs(t *testing.T) {
	command := NewCommand(CommandConfig{})
	captured, _, patches := captureArgs(command, []byte(`{"replicas":2}`))
	defer patches.Reset()

	values, err := command.GetValues(context.Background(), "demo", "default", 2, true)
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"get", "values", "demo", "--output", "json",
		"--all", "--revision", "2", "--namespace", "default",
	}, *captured)
	assert.Equal(t, float64(2), values["replicas"])
}

// TestGetValuesNull 无 values 的发布输出 null 时返回空 map
func TestGetValuesNull(t *testing.T) {
	command := NewCommand(CommandConfig{})
	_, _, patches := captureArgs(command, []byte("null\n"))
	defer patches.Reset()

	values, err := command.GetValues(context.Background(), "demo", "", 0, false)
	assert.NoError(t, err)
	assert.NotNil(t, values)
	assert.Empty(t, values)
}

// TestGetChartMetadataArgs 测试 get all 模板参数与 YAML 解码
func TestGetChartMetadataArgs(t *testing.T) {
	command := NewCommand(CommandConfig{})
	metadataYAML := []byte("apiVersion: v2\nname: \"app\"\nversion: \"1.2.3\"\n")
	captured, _, patches := captureArgs(command, metadataYAML)
	defer patches.Reset()

	metadata, err := command.GetChartMetadata(context.Background(), "demo", "default", 2)
	assert.NoError(t, err)
	args := *captured
	assert.Equal(t, []string{"get", "all", "demo", "--template"}, args[:4])
	assert.Equal(t, chartMetadataTemplate, args[4])
	assert.Equal(t, []string{"--namespace", "default", "--revision", "2"}, args[5:])
	assert.Equal(t, "app", metadata.Name)
	assert.Equal(t, "1.2.3", metadata.Version)
}

// TestShowChartArgs 测试 show chart 参数布局
func TestShowChartArgs(t *testing.T) {
	command := NewCommand(CommandConfig{})
	captured, _, patches := captureArgs(command, []byte("apiVersion: v2\nname: app\nversion: 0.1.0\n"))
	defer patches.Reset()

	metadata, err := command.ShowChart(context.Background(), "app", "https://charts.example.com", "0.1.0", true)
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"show", "chart", "app",
		"--devel",
		"--repo", "https://charts.example.com",
		"--version", "0.1.0",
	}, *captured)
	assert.Equal(t, "app", metadata.Name)
}

// TestVersion 测试 version 输出裁剪
func TestVersion(t *testing.T) {
	command := NewCommand(CommandConfig{})
	captured, _, patches := captureArgs(command, []byte("v3.18.5\n"))
	defer patches.Reset()

	version, err := command.Version(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"version", "--template", "{{ .Version }}"}, *captured)
	assert.Equal(t, "v3.18.5", version)
}
