// Copyright 2024 github.com/ucirello
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"strings"

	"cirello.io/foreshell/internal/procfile"
)

// applyFilters narrows pf to the process types --only/--skip/--optional
// select, in that precedence order, then drops any remaining optional
// entry that wasn't named by --optional.
func applyFilters(pf *procfile.Procfile, only, skip, optional string) {
	switch {
	case only != "":
		keep := fields(only)
		pf.Filter(func(e *procfile.Entry) bool { return contains(keep, e.Name) })
	case skip != "":
		drop := fields(skip)
		pf.Filter(func(e *procfile.Entry) bool {
			if contains(drop, e.Name) {
				fmt.Println("skipping", e.Name)
				return false
			}
			return true
		})
	}

	forceOptional := fields(optional)
	pf.Filter(func(e *procfile.Entry) bool {
		if !e.Optional {
			return true
		}
		if contains(forceOptional, e.Name) {
			fmt.Println("enabling", e.Name)
			return true
		}
		return false
	})
}

func fields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
