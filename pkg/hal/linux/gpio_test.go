//go:build linux
// +build linux

package linux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChipPath(t *testing.T) {
	assert.Equal(t, "/dev/gpiochip0", ChipPath("gpiochip0"))
	assert.Equal(t, "/dev/gpiochip1", ChipPath("/dev/gpiochip1"))
}
