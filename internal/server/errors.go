// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import "errors"

// errNoServersEnabled is returned by NewServer when every server passed to it
// is disabled (nil).
var errNoServersEnabled = errors.New("no servers are enabled")
