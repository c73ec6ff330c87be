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

package httputil

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"release-service/pkg/constant"
	"release-service/pkg/zlog"
)

// ResponseJson Http Response
type ResponseJson struct {
	Code int32  `json:"code,omitempty"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

// GetResponseJson get restful response struct
func GetResponseJson(code int32, msg string, data any) *ResponseJson {
	return &ResponseJson{
		Code: code,
		Msg:  msg,
		Data: data,
	}
}

// GetDefaultSuccessResponseJson get default success response json
func GetDefaultSuccessResponseJson() *ResponseJson {
	return &ResponseJson{
		Code: constant.Success,
		Msg:  "success",
		Data: nil,
	}
}

// GetDefaultClientFailureResponseJson get default failure response json
func GetDefaultClientFailureResponseJson() *ResponseJson {
	return &ResponseJson{
		Code: constant.ClientError,
		Msg:  "bad request",
		Data: nil,
	}
}

// GetDefaultServerFailureResponseJson get default failure response json
func GetDefaultServerFailureResponseJson() *ResponseJson {
	return &ResponseJson{
		Code: constant.ServerError,
		Msg:  "remote server busy",
		Data: nil,
	}
}

// GetNotFoundResponseJson get default resource not found response json
func GetNotFoundResponseJson() *ResponseJson {
	return &ResponseJson{
		Code: constant.ResourceNotFound,
		Msg:  "resource not found",
		Data: nil,
	}
}

// GetBadGatewayResponseJson get default cluster unreachable response json
func GetBadGatewayResponseJson() *ResponseJson {
	return &ResponseJson{
		Code: constant.BadGateway,
		Msg:  "cluster unreachable",
		Data: nil,
	}
}

// GetParamsEmptyErrorResponseJson get default resource empty response json
func GetParamsEmptyErrorResponseJson() *ResponseJson {
	return &ResponseJson{
		Code: constant.ClientError,
		Msg:  "parameters not found",
		Data: nil,
	}
}

// IsHttpsEnabled checks whether TLS can be enabled
func IsHttpsEnabled(certPath, keyPath, caPath string) (bool, error) {
	paths := []string{
		caPath,
		certPath,
		keyPath,
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				zlog.Warnf("tls file %s not exist, use http", p)
				return false, nil
			}
			zlog.Errorf("tls file %s exists but cannot be accessed: %v", p, err)
			return false, err
		}
	}

	return true, nil
}

// GetHttpConfig get http config
func GetHttpConfig(certPath, keyPath, caPath string, enableTLS bool) (*tls.Config, error) {
	if enableTLS {
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, err
		}

		// Load CA cert
		caCert, err := os.ReadFile(caPath)
		if err != nil {
			return nil, err
		}
		caCertPool := x509.NewCertPool()
		caCertPool.AppendCertsFromPEM(caCert)

		// Setup HTTPS client
		return &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
			MaxVersion:   tls.VersionTLS13,
			ClientCAs:    caCertPool,
			ClientAuth:   tls.VerifyClientCertIfGiven,
		}, nil
	} else {
		return &tls.Config{
			InsecureSkipVerify: true,
		}, nil
	}
}
