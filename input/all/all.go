// Package all registers every input backend.
package all

import (
	_ "github.com/sensorbench/pulsewave/input/exec"
	_ "github.com/sensorbench/pulsewave/input/file"
	_ "github.com/sensorbench/pulsewave/input/mqtt"
	_ "github.com/sensorbench/pulsewave/input/serial"
	_ "github.com/sensorbench/pulsewave/input/stdinput"
)
