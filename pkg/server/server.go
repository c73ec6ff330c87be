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

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/emicklei/go-restful/v3"

	"release-service/cmd/config"
	releasev1 "release-service/pkg/api/release/v1beta1"
	"release-service/pkg/helm"
	"release-service/pkg/server/runtime"
	"release-service/pkg/utils/httputil"
	"release-service/pkg/zlog"
)

// CServer including http server config, go-restful container and the release operation
type CServer struct {
	// server
	Server *http.Server

	// Container a Web Server（服务器），con WebServices 组成，此外还包含了若干个 Filters（过滤器）、
	container *restful.Container

	// HelmOperation 发布调和引擎
	HelmOperation helm.Operation
}

// NewServer creates an cServer instance using given options
func NewServer(cfg *config.RunConfig, ctx context.Context) (*CServer, error) {
	server := &CServer{}

	httpServer, err := initServer(cfg)
	if err != nil {
		return nil, err
	}
	server.Server = httpServer

	server.container = restful.NewContainer()
	server.container.Router(restful.CurlyRouter{})
	server.container.Filter(RecordAccessLogs)

	command := helm.NewCommand(cfg.CommandConfig())
	server.HelmOperation = helm.NewHelmOperation(command)

	return server, nil
}

func initServer(cfg *config.RunConfig) (*http.Server, error) {
	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.InsecurePort),
	}

	if cfg.Server.SecurePort != 0 {
		tlsConfig, err := httputil.GetHttpConfig(cfg.Server.CertFile, cfg.Server.PrivateKey, cfg.Server.CAFile, true)
		if err != nil {
			zlog.Errorf("error loading tls config from %s and %s, %v",
				cfg.Server.CertFile, cfg.Server.PrivateKey, err)
			return nil, err
		}
		httpServer.TLSConfig = tlsConfig
		httpServer.Addr = fmt.Sprintf(":%d", cfg.Server.SecurePort)
	}
	return httpServer, nil
}

// Run init release-service server, bind route, set tls config, etc.
func (s *CServer) Run(ctx context.Context) error {
	var err error = nil
	s.registerAPI()
	s.Server.Handler = s.container

	shutdownCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-ctx.Done()
		err = s.Server.Shutdown(shutdownCtx)
	}()

	if s.Server.TLSConfig != nil {
		err = s.Server.ListenAndServeTLS("", "")
	} else {
		err = s.Server.ListenAndServe()
	}
	return err
}

func (s *CServer) registerAPI() {
	releaseWebService := runtime.GetReleaseWebService()
	releasev1.BindReleaseRoute(releaseWebService, s.HelmOperation)
	s.container.Add(releaseWebService)
}
