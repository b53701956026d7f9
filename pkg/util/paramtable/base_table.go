// Copyright (C) 2024-2026 Kestrel VM Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License
// is distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express
// or implied. See the License for the specific language governing permissions and limitations under the License.

// Package paramtable holds the runtime's tunables. Values come from an
// optional kestrel.yaml, environment variables prefixed with KESTREL_, and
// compiled-in defaults, in that order of precedence.
package paramtable

import (
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/kestrelvm/kestrel/pkg/log"
)

const (
	defaultYamlName  = "kestrel"
	defaultEnvPrefix = "KESTREL"
)

// BaseTable is the flat key/value view over all configuration sources.
type BaseTable struct {
	mu sync.RWMutex
	kv *viper.Viper
}

type baseTableOption struct {
	yamlName    string
	configPaths []string
}

type BaseTableOption func(*baseTableOption)

// WithYamlName overrides the config file name (without extension).
func WithYamlName(name string) BaseTableOption {
	return func(o *baseTableOption) { o.yamlName = name }
}

// WithConfigPaths adds directories searched for the config file.
func WithConfigPaths(paths ...string) BaseTableOption {
	return func(o *baseTableOption) { o.configPaths = append(o.configPaths, paths...) }
}

// NewBaseTable loads the config file if one is present; a missing file is
// not an error, defaults and environment still apply.
func NewBaseTable(opts ...BaseTableOption) *BaseTable {
	o := &baseTableOption{
		yamlName:    defaultYamlName,
		configPaths: []string{".", "./configs"},
	}
	for _, opt := range opts {
		opt(o)
	}

	kv := viper.New()
	kv.SetConfigName(o.yamlName)
	kv.SetConfigType("yaml")
	for _, p := range o.configPaths {
		kv.AddConfigPath(p)
	}
	kv.SetEnvPrefix(defaultEnvPrefix)
	kv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	kv.AutomaticEnv()

	if err := kv.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("failed to read config file, fall back to defaults", log.FieldModule("paramtable"))
		}
	}

	return &BaseTable{kv: kv}
}

// Get returns the raw string value for key, empty if unset.
func (bt *BaseTable) Get(key string) string {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return bt.kv.GetString(key)
}

// GetWithDefault returns the value for key, or defaultValue if unset.
func (bt *BaseTable) GetWithDefault(key, defaultValue string) string {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	if !bt.kv.IsSet(key) {
		return defaultValue
	}
	return bt.kv.GetString(key)
}

// Save overrides key at runtime. Used by tests and tooling.
func (bt *BaseTable) Save(key, value string) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.kv.Set(key, value)
}

// Remove drops a runtime override.
func (bt *BaseTable) Remove(key string) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.kv.Set(key, nil)
}
