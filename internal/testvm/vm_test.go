package testvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArithmeticAndJump(t *testing.T) {
	src := `
set a 3
op add a a 4
op mul a a 2
jump 5 always 0 0
set a 999
set @counter retaddr@main
`
	vm := New(src)
	err := vm.RunToReturn(1000)
	assert.NoError(t, err)
	assert.Equal(t, float64(14), vm.Get("a"))
}

func TestIdivTruncatesTowardZero(t *testing.T) {
	src := `
op idiv q 7 3
set @counter retaddr@main
`
	vm := New(src)
	assert.NoError(t, vm.RunToReturn(1000))
	assert.Equal(t, float64(2), vm.Get("q"))
}

func TestConditionalLoop(t *testing.T) {
	src := `
set s 0
set i 0
jump 6 greaterThanEq i 10
op add s s i
op add i i 1
jump 2 always 0 0
set @counter retaddr@main
`
	vm := New(src)
	assert.NoError(t, vm.RunToReturn(100000))
	assert.Equal(t, float64(45), vm.Get("s"))
}
