/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
)

// maxFrameSize caps a single inbound websocket message. A full snapshot with
// ten players and their histories stays well below it.
const maxFrameSize = 64 << 10

var sizeUnits = [...]string{"kB", "MB", "GB", "TB"}

func humanReadableSize(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d B", n)
	}

	size := float64(n) / 1000
	unit := 0
	for size >= 1000 && unit < len(sizeUnits)-1 {
		size /= 1000
		unit++
	}

	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}
