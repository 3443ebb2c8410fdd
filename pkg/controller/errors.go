// pkg/controller/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package controller

import "errors"

// ErrControl signals a condition the controller treats as fatal to the
// current run: the preflight retry budget was exceeded, or the operator
// injected an "rtb" override on stdin. The "rtb" override surfaces from
// Run and triggers emergency return-to-launch followed by shutdown; a
// preflight failure is returned from Startup, and cmd/dronebot then
// exits without flying a return-to-launch.
var ErrControl = errors.New("control error")
