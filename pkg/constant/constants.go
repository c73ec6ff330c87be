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
Package constant
contains constant for release-service
*/
package constant

// release-service host constant
const (
	ReleaseServiceDefaultHost       = "release"
	ReleaseServiceDefaultAPIVersion = "v1beta1"
	ReleaseServiceDefaultOrgName    = "openfuyao.com"
	ReleaseServiceVersion           = "v1.0.0"
)

// regular expression constant
const (
	MetadataNameRegExPattern = "^[a-z0-9]([-a-z0-9]*[a-z0-9])?(\\.[a-z0-9]([-a-z0-9]*[a-z0-9])?)*$"
)

// restful response code
const (
	Success          = 200
	ClientError      = 400
	ResourceNotFound = 404
	ServerError      = 500
	BadGateway       = 502
)

// cert path constant
const (
	CAPath      = "/ssl/ca.pem"
	TLSCertPath = "/ssl/server.crt"
	TLSKeyPath  = "/ssl/server.key"
)

// config path constant
const (
	ConfigDirectory = "/etc/release-service"
)
