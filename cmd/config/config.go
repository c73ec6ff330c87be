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
Package config
loads and validates the release-service run configuration
*/
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"k8s.io/client-go/tools/clientcmd"

	"release-service/pkg/constant"
	"release-service/pkg/helm"
	"release-service/pkg/server/runtime"
	"release-service/pkg/zlog"
)

const (
	configName = "release-service"
	configType = "yaml"
)

// HelmConfig helm command runner settings
type HelmConfig struct {
	Executable            string `mapstructure:"executable"`
	DefaultTimeout        string `mapstructure:"defaultTimeout"`
	HistoryMaxRevisions   int    `mapstructure:"historyMaxRevisions"`
	InsecureSkipTLSVerify bool   `mapstructure:"insecureSkipTlsVerify"`
	Kubeconfig            string `mapstructure:"kubeconfig"`
	Kubecontext           string `mapstructure:"kubecontext"`
	KubeAPIServer         string `mapstructure:"kubeApiserver"`
	KubeToken             string `mapstructure:"kubeToken"`
	UnpackDirectory       string `mapstructure:"unpackDirectory"`
}

// RunConfig release-service run configuration
type RunConfig struct {
	Server *runtime.ServerConfig
	Helm   *HelmConfig
}

// NewRunConfig loads the run configuration from the config directory and
// validates it
func NewRunConfig() (*RunConfig, error) {
	v := viper.New()
	v.AddConfigPath(constant.ConfigDirectory)
	v.SetConfigName(configName)
	v.SetConfigType(configType)

	helmConfig := &HelmConfig{}
	if err := v.ReadInConfig(); err != nil {
		zlog.Warnf("config file not loaded, use defaults, %v", err)
	} else if err := v.UnmarshalKey("helm", helmConfig); err != nil {
		return nil, err
	}
	if err := validateHelmConfig(helmConfig); err != nil {
		return nil, err
	}

	serverConfig := runtime.NewServerConfig()
	if serverConfig == nil {
		return nil, errors.New("server config could not be created")
	}
	if errs := serverConfig.Validate(); len(errs) > 0 {
		return nil, errors.Errorf("invalid server config: %v", errs)
	}

	return &RunConfig{
		Server: serverConfig,
		Helm:   helmConfig,
	}, nil
}

func validateHelmConfig(helmConfig *HelmConfig) error {
	if helmConfig.DefaultTimeout != "" {
		if _, err := time.ParseDuration(helmConfig.DefaultTimeout); err != nil {
			return errors.Wrapf(err, "invalid helm default timeout %q", helmConfig.DefaultTimeout)
		}
	}
	if helmConfig.Kubeconfig == "" {
		return nil
	}
	kubeconfig, err := clientcmd.LoadFromFile(helmConfig.Kubeconfig)
	if err != nil {
		return errors.Wrapf(err, "load kubeconfig %s failed", helmConfig.Kubeconfig)
	}
	if helmConfig.Kubecontext != "" {
		if _, ok := kubeconfig.Contexts[helmConfig.Kubecontext]; !ok {
			return errors.Errorf("context %s not found in kubeconfig %s",
				helmConfig.Kubecontext, helmConfig.Kubeconfig)
		}
	}
	return nil
}

// CommandConfig converts the helm section to the command runner config
func (c *RunConfig) CommandConfig() helm.CommandConfig {
	var timeout time.Duration
	if c.Helm.DefaultTimeout != "" {
		// 已在加载阶段校验过格式
		timeout, _ = time.ParseDuration(c.Helm.DefaultTimeout)
	}
	return helm.CommandConfig{
		Executable:            c.Helm.Executable,
		DefaultTimeout:        timeout,
		HistoryMaxRevisions:   c.Helm.HistoryMaxRevisions,
		InsecureSkipTLSVerify: c.Helm.InsecureSkipTLSVerify,
		Kubeconfig:            c.Helm.Kubeconfig,
		Kubecontext:           c.Helm.Kubecontext,
		KubeAPIServer:         c.Helm.KubeAPIServer,
		KubeToken:             c.Helm.KubeToken,
		UnpackDirectory:       c.Helm.UnpackDirectory,
	}
}
