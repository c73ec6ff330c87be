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
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/emicklei/go-restful/v3"

	"release-service/pkg/constant"
	helmErrors "release-service/pkg/errors"
	"release-service/pkg/helm"
	helmModel "release-service/pkg/models/helm"
	"release-service/pkg/server/param"
	"release-service/pkg/utils/httputil"
	"release-service/pkg/utils/util"
	"release-service/pkg/zlog"
)

var releaseNamePattern = regexp.MustCompile(constant.MetadataNameRegExPattern)

// Handler helm handler that contains all the release operations
type Handler struct {
	HelmHandler helm.Operation
}

func newHandler(handler helm.Operation) *Handler {
	return &Handler{HelmHandler: handler}
}

// releaseIdentity extracts and validates the release path parameters,
// answering 400 itself when they are invalid
func releaseIdentity(request *restful.Request, response *restful.Response) (releaseName, namespace string, ok bool) {
	releaseName = request.PathParameter(param.Release)
	namespace = request.PathParameter(param.Namespace)
	if !releaseNamePattern.MatchString(releaseName) || !releaseNamePattern.MatchString(namespace) {
		zlog.Warnf("invalid release identity %s/%s",
			util.EscapeSpecialChars(namespace), util.EscapeSpecialChars(releaseName))
		_ = response.WriteHeaderAndEntity(http.StatusBadRequest, httputil.GetDefaultClientFailureResponseJson())
		return "", "", false
	}
	return releaseName, namespace, true
}

// parseRevision reads the optional revision query parameter, 0 meaning latest
func parseRevision(request *restful.Request, response *restful.Response) (int, bool) {
	raw := request.QueryParameter(param.Revision)
	if raw == "" {
		return 0, true
	}
	revision, err := strconv.Atoi(raw)
	if err != nil || revision < 1 {
		_ = response.WriteHeaderAndEntity(http.StatusBadRequest, httputil.ResponseJson{
			Code: constant.ClientError,
			Msg:  "revision must be a positive integer",
		})
		return 0, false
	}
	return revision, true
}

// writeOperationError maps typed helm failures onto restful status codes
func writeOperationError(response *restful.Response, err error) {
	switch {
	case helmErrors.IsReleaseNotFound(err):
		_ = response.WriteHeaderAndEntity(http.StatusNotFound, httputil.GetNotFoundResponseJson())
	case helmErrors.IsConnection(err):
		_ = response.WriteHeaderAndEntity(http.StatusBadGateway, httputil.GetBadGatewayResponseJson())
	default:
		zlog.Errorf("operation failed, %v", err)
		_ = response.WriteHeaderAndEntity(http.StatusInternalServerError,
			httputil.GetDefaultServerFailureResponseJson())
	}
}

func writeSuccess(response *restful.Response, data any) {
	if data == nil {
		_ = response.WriteHeaderAndEntity(http.StatusOK, httputil.GetDefaultSuccessResponseJson())
		return
	}
	_ = response.WriteHeaderAndEntity(http.StatusOK,
		httputil.GetResponseJson(constant.Success, "success", data))
}

func (h *Handler) getRelease(request *restful.Request, response *restful.Response) {
	releaseName, namespace, ok := releaseIdentity(request, response)
	if !ok {
		return
	}
	revisionNumber, ok := parseRevision(request, response)
	if !ok {
		return
	}
	revision, err := h.HelmHandler.GetRevision(request.Request.Context(), releaseName, namespace, revisionNumber)
	if err != nil {
		writeOperationError(response, err)
		return
	}
	writeSuccess(response, helmModel.NewRevisionResponse(revision))
}

func (h *Handler) ensureRelease(request *restful.Request, response *restful.Response) {
	releaseName, namespace, ok := releaseIdentity(request, response)
	if !ok {
		return
	}
	ensureRequest := &helmModel.EnsureRequest{}
	if err := request.ReadEntity(ensureRequest); err != nil {
		zlog.Warnf("invalid input, %v", err)
		_ = response.WriteHeaderAndEntity(http.StatusBadRequest, httputil.ResponseJson{
			Code: constant.ClientError,
			Msg:  "please provide proper input",
		})
		return
	}
	if ensureRequest.Chart.Ref == "" {
		_ = response.WriteHeaderAndEntity(http.StatusBadRequest, httputil.ResponseJson{
			Code: constant.ClientError,
			Msg:  "chart ref is required",
		})
		return
	}
	opts, err := upgradeOptions(ensureRequest)
	if err != nil {
		_ = response.WriteHeaderAndEntity(http.StatusBadRequest, httputil.ResponseJson{
			Code: constant.ClientError,
			Msg:  "invalid timeout format",
		})
		return
	}

	values := helm.MergeConcat(nil, ensureRequest.Values...)
	revision, upgraded, err := h.HelmHandler.EnsureRelease(request.Request.Context(),
		releaseName, namespace, ensureRequest.Chart.Ref, values, opts)
	if err != nil {
		writeOperationError(response, err)
		return
	}
	writeSuccess(response, &helmModel.EnsureResponse{
		Revision: helmModel.NewRevisionResponse(revision),
		Upgraded: upgraded,
	})
}

func upgradeOptions(ensureRequest *helmModel.EnsureRequest) (*helm.UpgradeOptions, error) {
	var timeout time.Duration
	if ensureRequest.Timeout != "" {
		var err error
		timeout, err = time.ParseDuration(ensureRequest.Timeout)
		if err != nil {
			return nil, err
		}
	}
	// 未显式指定时默认创建命名空间
	createNamespace := true
	if ensureRequest.CreateNamespace != nil {
		createNamespace = *ensureRequest.CreateNamespace
	}
	return &helm.UpgradeOptions{
		Atomic:          ensureRequest.Atomic,
		CleanupOnFail:   ensureRequest.CleanupOnFail,
		CreateNamespace: createNamespace,
		Description:     ensureRequest.Description,
		Devel:           ensureRequest.Chart.Devel,
		DryRun:          ensureRequest.DryRun,
		Force:           ensureRequest.Force,
		NoHooks:         ensureRequest.NoHooks,
		Repo:            ensureRequest.Chart.Repo,
		ResetValues:     ensureRequest.ResetValues,
		ReuseValues:     ensureRequest.ReuseValues,
		SkipCRDs:        ensureRequest.SkipCRDs,
		Timeout:         timeout,
		Version:         ensureRequest.Chart.Version,
		Wait:            ensureRequest.Wait,
	}, nil
}

func (h *Handler) uninstallRelease(request *restful.Request, response *restful.Response) {
	releaseName, namespace, ok := releaseIdentity(request, response)
	if !ok {
		return
	}
	uninstallRequest := &helmModel.UninstallRequest{}
	if request.Request.ContentLength > 0 {
		if err := request.ReadEntity(uninstallRequest); err != nil {
			zlog.Warnf("invalid input, %v", err)
			_ = response.WriteHeaderAndEntity(http.StatusBadRequest, httputil.ResponseJson{
				Code: constant.ClientError,
				Msg:  "please provide proper input",
			})
			return
		}
	}
	var timeout time.Duration
	if uninstallRequest.Timeout != "" {
		var err error
		timeout, err = time.ParseDuration(uninstallRequest.Timeout)
		if err != nil {
			_ = response.WriteHeaderAndEntity(http.StatusBadRequest, httputil.ResponseJson{
				Code: constant.ClientError,
				Msg:  "invalid timeout format",
			})
			return
		}
	}
	err := h.HelmHandler.UninstallRelease(request.Request.Context(), releaseName, namespace,
		&helm.UninstallOptions{
			DryRun:      uninstallRequest.DryRun,
			KeepHistory: uninstallRequest.KeepHistory,
			NoHooks:     uninstallRequest.NoHooks,
			Timeout:     timeout,
			Wait:        uninstallRequest.Wait,
		})
	if err != nil {
		writeOperationError(response, err)
		return
	}
	writeSuccess(response, nil)
}

func (h *Handler) getHistory(request *restful.Request, response *restful.Response) {
	releaseName, namespace, ok := releaseIdentity(request, response)
	if !ok {
		return
	}
	query := param.ParseQueryParameter(request)
	revisions, err := h.HelmHandler.History(request.Request.Context(), releaseName, namespace,
		helm.DefaultHistoryMax)
	if err != nil {
		writeOperationError(response, err)
		return
	}
	start, end, totalPages := query.Pagination.GetPaginationResult(len(revisions))
	items := make([]interface{}, 0, end-start)
	for _, revision := range revisions[start:end] {
		items = append(items, helmModel.NewRevisionResponse(revision))
	}
	writeSuccess(response, &helmModel.ListResponse{
		Items:       items,
		TotalItems:  len(revisions),
		CurrentPage: query.Pagination.CurrentPage,
		TotalPages:  totalPages,
	})
}

func (h *Handler) getValues(request *restful.Request, response *restful.Response) {
	releaseName, namespace, ok := releaseIdentity(request, response)
	if !ok {
		return
	}
	revisionNumber, ok := parseRevision(request, response)
	if !ok {
		return
	}
	computed := request.QueryParameter(param.Computed) == "true"
	values, err := h.HelmHandler.GetReleaseValues(request.Request.Context(),
		releaseName, namespace, revisionNumber, computed)
	if err != nil {
		writeOperationError(response, err)
		return
	}
	writeSuccess(response, values)
}

func (h *Handler) getHooks(request *restful.Request, response *restful.Response) {
	releaseName, namespace, ok := releaseIdentity(request, response)
	if !ok {
		return
	}
	revisionNumber, ok := parseRevision(request, response)
	if !ok {
		return
	}
	revision, err := h.HelmHandler.GetRevision(request.Request.Context(), releaseName, namespace, revisionNumber)
	if err != nil {
		writeOperationError(response, err)
		return
	}
	hooks, err := revision.Hooks(request.Request.Context())
	if err != nil {
		writeOperationError(response, err)
		return
	}
	writeSuccess(response, hooks)
}

func (h *Handler) getResources(request *restful.Request, response *restful.Response) {
	releaseName, namespace, ok := releaseIdentity(request, response)
	if !ok {
		return
	}
	revisionNumber, ok := parseRevision(request, response)
	if !ok {
		return
	}
	revision, err := h.HelmHandler.GetRevision(request.Request.Context(), releaseName, namespace, revisionNumber)
	if err != nil {
		writeOperationError(response, err)
		return
	}
	objects, err := revision.Resources(request.Request.Context())
	if err != nil {
		writeOperationError(response, err)
		return
	}
	writeSuccess(response, helm.GetResourceSummaries(objects))
}

func (h *Handler) getChartMetadata(request *restful.Request, response *restful.Response) {
	releaseName, namespace, ok := releaseIdentity(request, response)
	if !ok {
		return
	}
	revisionNumber, ok := parseRevision(request, response)
	if !ok {
		return
	}
	revision, err := h.HelmHandler.GetRevision(request.Request.Context(), releaseName, namespace, revisionNumber)
	if err != nil {
		writeOperationError(response, err)
		return
	}
	metadata, err := revision.ChartMetadata(request.Request.Context())
	if err != nil {
		writeOperationError(response, err)
		return
	}
	writeSuccess(response, metadata)
}

func (h *Handler) getChart(request *restful.Request, response *restful.Response) {
	spec := &helmModel.ChartSpec{
		Ref:     request.QueryParameter("ref"),
		Repo:    request.QueryParameter("repo"),
		Version: util.EscapeSpecialChars(request.QueryParameter(param.Version)),
		Devel:   request.QueryParameter("devel") == "true",
	}
	if spec.Ref == "" {
		_ = response.WriteHeaderAndEntity(http.StatusBadRequest, httputil.GetParamsEmptyErrorResponseJson())
		return
	}
	result, err := h.HelmHandler.GetChart(request.Request.Context(), spec)
	if err != nil {
		writeOperationError(response, err)
		return
	}
	writeSuccess(response, result)
}

func (h *Handler) version(request *restful.Request, response *restful.Response) {
	helmVersion, err := h.HelmHandler.Version(request.Request.Context())
	if err != nil {
		writeOperationError(response, err)
		return
	}
	writeSuccess(response, &helmModel.VersionResponse{
		HelmVersion:    helmVersion,
		ServiceVersion: constant.ReleaseServiceVersion,
	})
}
