/*-
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package models pkg/models/roles.go
package models

import (
	"errors"
	"fmt"
	"strings"
)

var errUnknownRole = errors.New("unknown role")

type Role string

const (
	RoleMaster Role = "master"
	RolePinger Role = "pinger"
	RolePonger Role = "ponger"
)

// Roles is the set of capabilities a node runs with. It is fixed at startup.
type Roles struct {
	Master bool `json:"master"`
	Pinger bool `json:"pinger"`
	Ponger bool `json:"ponger"`
}

// ParseRoles parses a comma separated role list such as "master,pinger".
func ParseRoles(s string) (Roles, error) {
	var r Roles

	for _, part := range strings.Split(s, ",") {
		switch Role(strings.ToLower(strings.TrimSpace(part))) {
		case RoleMaster:
			r.Master = true
		case RolePinger:
			r.Pinger = true
		case RolePonger:
			r.Ponger = true
		case "":
		default:
			return Roles{}, fmt.Errorf("%w: %q", errUnknownRole, part)
		}
	}

	return r, nil
}

// Has reports whether the node runs the given role.
func (r Roles) Has(role Role) bool {
	switch role {
	case RoleMaster:
		return r.Master
	case RolePinger:
		return r.Pinger
	case RolePonger:
		return r.Ponger
	default:
		return false
	}
}

// Any reports whether at least one role is enabled.
func (r Roles) Any() bool {
	return r.Master || r.Pinger || r.Ponger
}

func (r Roles) String() string {
	var parts []string

	for _, role := range []Role{RoleMaster, RolePinger, RolePonger} {
		if r.Has(role) {
			parts = append(parts, string(role))
		}
	}

	return strings.Join(parts, ",")
}
