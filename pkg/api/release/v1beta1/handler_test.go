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

package v1beta1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/emicklei/go-restful/v3"
	"github.com/stretchr/testify/assert"
	"helm.sh/helm/v3/pkg/release"

	helmErrors "release-service/pkg/errors"
	"release-service/pkg/helm"
	helmModel "release-service/pkg/models/helm"
	"release-service/pkg/server/runtime"
	"release-service/pkg/utils/httputil"
)

// fakeOperation scripts the reconciliation engine for handler tests
type fakeOperation struct {
	revision    *helmModel.Revision
	revisionErr error

	history    []*helmModel.Revision
	historyErr error

	values    map[string]interface{}
	valuesErr error

	chart    *helmModel.Chart
	chartErr error

	ensureRevision *helmModel.Revision
	ensureUpgraded bool
	ensureErr      error
	ensureValues   map[string]interface{}
	ensureOpts     *helm.UpgradeOptions

	uninstallErr  error
	uninstallOpts *helm.UninstallOptions

	helmVersion string
}

func (f *fakeOperation) GetCurrentRevision(_ context.Context, _, _ string) (*helmModel.Revision, error) {
	return f.revision, f.revisionErr
}

func (f *fakeOperation) GetRevision(_ context.Context, _, _ string, _ int) (*helmModel.Revision, error) {
	return f.revision, f.revisionErr
}

func (f *fakeOperation) History(_ context.Context, _, _ string, _ int) ([]*helmModel.Revision, error) {
	return f.history, f.historyErr
}

func (f *fakeOperation) GetChart(_ context.Context, _ *helmModel.ChartSpec) (*helmModel.Chart, error) {
	return f.chart, f.chartErr
}

func (f *fakeOperation) PullChart(_ context.Context, _ *helmModel.ChartSpec) (*helmModel.Chart, func(), error) {
	return f.chart, func() {}, f.chartErr
}

func (f *fakeOperation) GetReleaseValues(_ context.Context, _, _ string, _ int,
	_ bool) (map[string]interface{}, error) {
	return f.values, f.valuesErr
}

func (f *fakeOperation) EnsureRelease(_ context.Context, _, _ string, _ string,
	values map[string]interface{}, opts *helm.UpgradeOptions) (*helmModel.Revision, bool, error) {
	f.ensureValues = values
	f.ensureOpts = opts
	return f.ensureRevision, f.ensureUpgraded, f.ensureErr
}

func (f *fakeOperation) UninstallRelease(_ context.Context, _, _ string, opts *helm.UninstallOptions) error {
	f.uninstallOpts = opts
	return f.uninstallErr
}

func (f *fakeOperation) Version(_ context.Context) (string, error) {
	return f.helmVersion, nil
}

func newTestContainer(operation helm.Operation) *restful.Container {
	container := restful.NewContainer()
	webService := runtime.GetReleaseWebService()
	BindReleaseRoute(webService, operation)
	container.Add(webService)
	return container
}

func doRequest(container *restful.Container, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", restful.MIME_JSON)
	}
	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, req)
	return recorder
}

const apiRoot = "/apis/release.openfuyao.com/v1beta1"

func testRevision() *helmModel.Revision {
	return helmModel.NewRevisionFromStatus(&release.Release{
		Name:      "demo",
		Namespace: "default",
		Version:   3,
		Info:      &release.Info{Status: release.StatusDeployed},
	}, nil)
}

// TestGetRelease 测试查询发布状态
func TestGetRelease(t *testing.T) {
	operation := &fakeOperation{revision: testRevision()}
	container := newTestContainer(operation)

	recorder := doRequest(container, "GET", apiRoot+"/namespaces/default/releases/demo", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	body := &httputil.ResponseJson{}
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), body))
	assert.Equal(t, int32(200), body.Code)
}

// TestGetReleaseNotFound 发布不存在返回404
func TestGetReleaseNotFound(t *testing.T) {
	operation := &fakeOperation{revisionErr: &helmErrors.ReleaseNotFoundError{
		CommandError: helmErrors.CommandError{Stderr: []byte("Error: release: not found")},
	}}
	container := newTestContainer(operation)

	recorder := doRequest(container, "GET", apiRoot+"/namespaces/default/releases/demo", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

// TestGetReleaseBadGateway 集群不可达返回502
func TestGetReleaseBadGateway(t *testing.T) {
	operation := &fakeOperation{revisionErr: &helmErrors.ConnectionError{
		CommandError: helmErrors.CommandError{Stderr: []byte("etcdserver: request timed out")},
	}}
	container := newTestContainer(operation)

	recorder := doRequest(container, "GET", apiRoot+"/namespaces/default/releases/demo", "")
	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}

// TestGetReleaseServerError 其他失败返回500与默认失败响应体
func TestGetReleaseServerError(t *testing.T) {
	operation := &fakeOperation{revisionErr: &helmErrors.ChartRenderError{
		CommandError: helmErrors.CommandError{Stderr: []byte("Error: failed to render chart")},
	}}
	container := newTestContainer(operation)

	recorder := doRequest(container, "GET", apiRoot+"/namespaces/default/releases/demo", "")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	body := &httputil.ResponseJson{}
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), body))
	assert.Equal(t, int32(500), body.Code)
	assert.Equal(t, "remote server busy", body.Msg)
}

// TestGetReleaseInvalidName 非法名称返回400
func TestGetReleaseInvalidName(t *testing.T) {
	container := newTestContainer(&fakeOperation{})

	recorder := doRequest(container, "GET", apiRoot+"/namespaces/default/releases/Bad_Name", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// TestGetReleaseInvalidRevision 非法修订号返回400
func TestGetReleaseInvalidRevision(t *testing.T) {
	container := newTestContainer(&fakeOperation{revision: testRevision()})

	recorder := doRequest(container, "GET",
		apiRoot+"/namespaces/default/releases/demo?revision=abc", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// TestEnsureRelease 测试发布调和请求
func TestEnsureRelease(t *testing.T) {
	operation := &fakeOperation{
		ensureRevision: testRevision(),
		ensureUpgraded: true,
	}
	container := newTestContainer(operation)

	body := `{
		"chart": {"ref": "repo/app", "version": "1.0.0"},
		"values": [{"replicas": 2}, {"replicas": 3}],
		"timeout": "2m",
		"wait": true
	}`
	recorder := doRequest(container, "PUT", apiRoot+"/namespaces/default/releases/demo", body)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(3), operation.ensureValues["replicas"])
	assert.Equal(t, "1.0.0", operation.ensureOpts.Version)
	assert.True(t, operation.ensureOpts.Wait)
	assert.True(t, operation.ensureOpts.CreateNamespace)
	assert.Equal(t, "2m0s", operation.ensureOpts.Timeout.String())
}

// TestEnsureReleaseMissingChart 缺少 chart 引用返回400
func TestEnsureReleaseMissingChart(t *testing.T) {
	container := newTestContainer(&fakeOperation{})

	recorder := doRequest(container, "PUT", apiRoot+"/namespaces/default/releases/demo",
		`{"values": [{"a": 1}]}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// TestEnsureReleaseInvalidTimeout 非法超时格式返回400
func TestEnsureReleaseInvalidTimeout(t *testing.T) {
	container := newTestContainer(&fakeOperation{})

	recorder := doRequest(container, "PUT", apiRoot+"/namespaces/default/releases/demo",
		`{"chart": {"ref": "repo/app"}, "timeout": "not-a-duration"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// TestUninstallRelease 测试卸载发布
func TestUninstallRelease(t *testing.T) {
	operation := &fakeOperation{}
	container := newTestContainer(operation)

	recorder := doRequest(container, "DELETE", apiRoot+"/namespaces/default/releases/demo",
		`{"wait": true, "keepHistory": true}`)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, operation.uninstallOpts.Wait)
	assert.True(t, operation.uninstallOpts.KeepHistory)
}

// TestUninstallReleaseNoBody 无请求体使用默认卸载选项
func TestUninstallReleaseNoBody(t *testing.T) {
	operation := &fakeOperation{}
	container := newTestContainer(operation)

	recorder := doRequest(container, "DELETE", apiRoot+"/namespaces/default/releases/demo", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotNil(t, operation.uninstallOpts)
	assert.False(t, operation.uninstallOpts.Wait)
}

// TestGetHistoryPaginated 测试历史修订分页
func TestGetHistoryPaginated(t *testing.T) {
	history := make([]*helmModel.Revision, 0, 5)
	for i := 5; i >= 1; i-- {
		history = append(history, helmModel.NewHistoryRevision("demo", "default",
			&helmModel.HistoryEntry{Revision: i, Status: release.StatusSuperseded}, nil))
	}
	operation := &fakeOperation{history: history}
	container := newTestContainer(operation)

	recorder := doRequest(container, "GET",
		apiRoot+"/namespaces/default/releases/demo/history?limit=2&page=2", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	body := &httputil.ResponseJson{}
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), body))
	data, ok := body.Data.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, float64(5), data["totalItems"])
	assert.Equal(t, float64(3), data["totalPage"])
	items, ok := data["items"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, items, 2)
}

// TestGetValues 测试查询发布 values
func TestGetValues(t *testing.T) {
	operation := &fakeOperation{values: map[string]interface{}{"replicas": float64(2)}}
	container := newTestContainer(operation)

	recorder := doRequest(container, "GET",
		apiRoot+"/namespaces/default/releases/demo/values?computed=true", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	body := &httputil.ResponseJson{}
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), body))
	data, ok := body.Data.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, float64(2), data["replicas"])
}

// TestGetChartMissingRef 缺少 ref 参数返回400
func TestGetChartMissingRef(t *testing.T) {
	container := newTestContainer(&fakeOperation{})

	recorder := doRequest(container, "GET", apiRoot+"/charts", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// TestVersion 测试版本查询
func TestVersion(t *testing.T) {
	operation := &fakeOperation{helmVersion: "v3.18.5"}
	container := newTestContainer(operation)

	recorder := doRequest(container, "GET", apiRoot+"/version", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	body := &httputil.ResponseJson{}
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), body))
	data, ok := body.Data.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "v3.18.5", data["helmVersion"])
}

// TestNewHandler 构造函数测试（无Mock，仅测对象创建）
func TestNewHandler(t *testing.T) {
	handler := newHandler(nil)
	if handler == nil {
		t.Error("NewHandler创建对象失败，期望非nil")
	}
	if handler.HelmHandler != nil {
		t.Error("NewHandler初始化HelmHandler错误，期望nil")
	}
}
