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
Package v1beta1
contains all the endpoint and handler logic
*/
package v1beta1

import (
	"github.com/emicklei/go-restful/v3"

	"release-service/pkg/helm"
	"release-service/pkg/server/param"
)

// BindReleaseRoute bind webservice route to container
func BindReleaseRoute(webService *restful.WebService, operation helm.Operation) *Handler {
	handler := newHandler(operation)

	bindReleaseRoutes(webService, handler)
	bindRevisionContentRoutes(webService, handler)
	bindChartRoutes(webService, handler)
	return handler
}

func bindReleaseRoutes(webService *restful.WebService, handler *Handler) {
	webService.Route(webService.GET("/namespaces/{namespace}/releases/{release}").
		Doc("get current or specific release revision").
		Param(webService.PathParameter(param.Namespace, "release namespace").Required(true)).
		Param(webService.PathParameter(param.Release, "release name").Required(true)).
		Param(webService.QueryParameter(param.Revision, "revision number, latest when omitted").Required(false)).
		To(handler.getRelease))

	webService.Route(webService.PUT("/namespaces/{namespace}/releases/{release}").
		Doc("reconcile release to the requested chart and values").
		Param(webService.PathParameter(param.Namespace, "release namespace").Required(true)).
		Param(webService.PathParameter(param.Release, "release name").Required(true)).
		To(handler.ensureRelease))

	webService.Route(webService.DELETE("/namespaces/{namespace}/releases/{release}").
		Doc("uninstall release").
		Param(webService.PathParameter(param.Namespace, "release namespace").Required(true)).
		Param(webService.PathParameter(param.Release, "release name").Required(true)).
		To(handler.uninstallRelease))

	webService.Route(webService.GET("/namespaces/{namespace}/releases/{release}/history").
		Doc("get release revision history").
		Param(webService.PathParameter(param.Namespace, "release namespace").Required(true)).
		Param(webService.PathParameter(param.Release, "release name").Required(true)).
		Param(webService.QueryParameter(param.Page, "page").Required(false).
			DataFormat("page=%d").DefaultValue("page=1")).
		Param(webService.QueryParameter(param.Limit, "limit").Required(false)).
		To(handler.getHistory))
}

func bindRevisionContentRoutes(webService *restful.WebService, handler *Handler) {
	webService.Route(webService.GET("/namespaces/{namespace}/releases/{release}/values").
		Doc("get release revision values").
		Param(webService.PathParameter(param.Namespace, "release namespace").Required(true)).
		Param(webService.PathParameter(param.Release, "release name").Required(true)).
		Param(webService.QueryParameter(param.Revision, "revision number, latest when omitted").Required(false)).
		Param(webService.QueryParameter(param.Computed, "return fully computed values").Required(false)).
		To(handler.getValues))

	webService.Route(webService.GET("/namespaces/{namespace}/releases/{release}/hooks").
		Doc("get release revision lifecycle hooks").
		Param(webService.PathParameter(param.Namespace, "release namespace").Required(true)).
		Param(webService.PathParameter(param.Release, "release name").Required(true)).
		Param(webService.QueryParameter(param.Revision, "revision number, latest when omitted").Required(false)).
		To(handler.getHooks))

	webService.Route(webService.GET("/namespaces/{namespace}/releases/{release}/resources").
		Doc("get release revision rendered resources").
		Param(webService.PathParameter(param.Namespace, "release namespace").Required(true)).
		Param(webService.PathParameter(param.Release, "release name").Required(true)).
		Param(webService.QueryParameter(param.Revision, "revision number, latest when omitted").Required(false)).
		To(handler.getResources))

	webService.Route(webService.GET("/namespaces/{namespace}/releases/{release}/chart").
		Doc("get metadata of the chart a revision was deployed from").
		Param(webService.PathParameter(param.Namespace, "release namespace").Required(true)).
		Param(webService.PathParameter(param.Release, "release name").Required(true)).
		Param(webService.QueryParameter(param.Revision, "revision number, latest when omitted").Required(false)).
		To(handler.getChartMetadata))
}

func bindChartRoutes(webService *restful.WebService, handler *Handler) {
	webService.Route(webService.GET("/charts").
		Doc("resolve chart reference to its metadata").
		Param(webService.QueryParameter("ref", "chart reference").Required(true)).
		Param(webService.QueryParameter("repo", "chart repository URL").Required(false)).
		Param(webService.QueryParameter(param.Version, "chart version").Required(false)).
		To(handler.getChart))

	webService.Route(webService.GET("/version").
		Doc("get helm client version").
		To(handler.version))
}
