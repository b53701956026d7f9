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

package paramtable

import (
	"time"

	"github.com/spf13/cast"
)

// ParamItem is one typed configuration entry backed by the BaseTable.
type ParamItem struct {
	Key          string
	Version      string
	Doc          string
	DefaultValue string

	table *BaseTable
}

// Init binds the item to its table. Called once from ComponentParam.Init.
func (pi *ParamItem) Init(bt *BaseTable) {
	pi.table = bt
}

// GetValue returns the effective string value.
func (pi *ParamItem) GetValue() string {
	return pi.table.GetWithDefault(pi.Key, pi.DefaultValue)
}

func (pi *ParamItem) GetAsInt() int {
	return cast.ToInt(pi.GetValue())
}

func (pi *ParamItem) GetAsInt64() int64 {
	return cast.ToInt64(pi.GetValue())
}

func (pi *ParamItem) GetAsBool() bool {
	return cast.ToBool(pi.GetValue())
}

func (pi *ParamItem) GetAsDuration() time.Duration {
	return cast.ToDuration(pi.GetValue())
}
