package controller

import (
	"strconv"
	"strings"
	"time"
)

const (
	blinkOnMs    = 150
	blinkOffMs   = 150
	blinkPauseMs = 1000
)

// parseMajorMinor extracts the first two numeric tokens of a version string,
// so "1.3.1" blinks 1 then 3.
func parseMajorMinor(version string) (int, int) {
	major, minor := 0, 0
	tokens := strings.Split(strings.ReplaceAll(version, "-", "."), ".")
	for _, tok := range tokens {
		val, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		if major == 0 {
			major = val
		} else {
			minor = val
			break
		}
	}
	return major, minor
}

func (c *Controller) blinkN(n int) {
	for i := 0; i < n; i++ {
		c.board.LED.Set(true)
		c.sleep(blinkOnMs * time.Millisecond)
		c.board.LED.Set(false)
		if i != n-1 {
			c.sleep(blinkOffMs * time.Millisecond)
		}
	}
}

// blinkVersion signals the firmware version on the LED before the loop
// starts: major count, pause, minor count. Bounded, runs once.
func (c *Controller) blinkVersion() {
	major, minor := parseMajorMinor(FirmwareVersion)
	c.blinkN(major)
	c.sleep(blinkPauseMs * time.Millisecond)
	c.blinkN(minor)
	c.sleep(200 * time.Millisecond)
	c.board.LED.Set(false)
}
