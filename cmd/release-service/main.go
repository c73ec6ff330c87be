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

// release-service exposes idempotent helm release reconciliation over a
// restful api
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"release-service/cmd/config"
	"release-service/pkg/server"
	"release-service/pkg/zlog"
)

func main() {
	defer func() {
		_ = zlog.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewRunConfig()
	if err != nil {
		zlog.Fatalf("load run config failed, %v", err)
	}

	cServer, err := server.NewServer(cfg, ctx)
	if err != nil {
		zlog.Fatalf("create server failed, %v", err)
	}

	if err := cServer.Run(ctx); err != nil && err != http.ErrServerClosed {
		zlog.Fatalf("server exited, %v", err)
	}
}
