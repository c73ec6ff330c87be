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
Package runtime
contains server config and restful webservice factory
*/
package runtime

import (
	"fmt"

	"github.com/emicklei/go-restful/v3"

	"release-service/pkg/constant"
)

// GetReleaseWebService creates the webservice rooted at the release api group
func GetReleaseWebService() *restful.WebService {
	webservice := restful.WebService{}

	webservice.Path(fmt.Sprintf("/apis/%s.%s/%s",
		constant.ReleaseServiceDefaultHost,
		constant.ReleaseServiceDefaultOrgName,
		constant.ReleaseServiceDefaultAPIVersion)).
		Produces(restful.MIME_JSON)

	return &webservice
}
