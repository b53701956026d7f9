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
	"sync"
)

var (
	once   sync.Once
	params ComponentParam
)

// Init loads the global param table once.
func Init() {
	once.Do(func() {
		params.Init(NewBaseTable())
	})
}

// InitWithBaseTable loads the global param table from a prepared table.
func InitWithBaseTable(bt *BaseTable) {
	once.Do(func() {
		params.Init(bt)
	})
}

// Get returns the global params. Init must have been called.
func Get() *ComponentParam {
	return &params
}

// GetBaseTable returns the table backing the global params.
func GetBaseTable() *BaseTable {
	return params.baseTable
}
