package emit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UMRnInside/MlogEvo/internal/emit"
	"github.com/UMRnInside/MlogEvo/internal/inline"
	"github.com/UMRnInside/MlogEvo/internal/lower"
	"github.com/UMRnInside/MlogEvo/internal/optimize"
	"github.com/UMRnInside/MlogEvo/internal/parser"
	"github.com/UMRnInside/MlogEvo/internal/testvm"
)

// compile runs the full pipeline (parse -> lower -> inline -> optimize ->
// emit) exactly as cmd/mlogevo wires it, and executes the result with
// testvm until main's own return fires, returning the VM for variable
// assertions — the in-process equivalent of arch_mlog_tests'
// compile_and_test harness (spec.md §6's "Test harness expectation").
// Scenarios observe globals: from -O1 on, remove-unused-variables drops
// writes to locals that nothing in the function reads.
func compile(t *testing.T, source string, level int) *testvm.VM {
	t.Helper()
	prog, err := parser.Parse("test.c", source)
	require.NoError(t, err)

	mod, err := lower.Lower(prog)
	require.NoError(t, err)

	if level >= 1 {
		inline.InlineAll(mod)
	}
	require.NoError(t, optimize.Run(mod, optimize.Config{Level: level, Flags: map[string]bool{}}))

	out, err := emit.Emit(mod, emit.Options{})
	require.NoError(t, err)

	vm := testvm.New(out)
	require.NoError(t, vm.RunToReturn(2_000_000))
	return vm
}

func TestArithmeticScenario(t *testing.T) {
	src := `
int a, b;
int main() {
    a = 3 + 4 * 2;
    b = a - 1;
    return 0;
}
`
	for _, level := range []int{0, 1, 2, 3} {
		vm := compile(t, src, level)
		assert.Equal(t, float64(11), vm.Get("a"), "level %d", level)
		assert.Equal(t, float64(10), vm.Get("b"), "level %d", level)
	}
}

func TestFloatToIntTruncation(t *testing.T) {
	src := `
int y;
int main() {
    double x = 1.5;
    y = (int)(x * 4.0);
    return 0;
}
`
	for _, level := range []int{0, 1, 2, 3} {
		vm := compile(t, src, level)
		assert.Equal(t, float64(6), vm.Get("y"), "level %d", level)
	}
}

func TestForLoopSum(t *testing.T) {
	src := `
int main() {
    int s = 0;
    for (int i = 0; i < 10; ++i) s += i;
    return 0;
}
`
	for _, level := range []int{0, 1, 2, 3} {
		vm := compile(t, src, level)
		assert.Equal(t, float64(45), vm.Get("_s@main"), "level %d", level)
	}
}

func TestShortCircuitAndTakesElseBranch(t *testing.T) {
	src := `
int x;
int main() {
    if (1 && 0) x = 1; else x = 2;
    return 0;
}
`
	for _, level := range []int{0, 1, 2, 3} {
		vm := compile(t, src, level)
		assert.Equal(t, float64(2), vm.Get("x"), "level %d", level)
	}
}

func TestRecursiveFactorial(t *testing.T) {
	src := `
int f(int n) {
    if (n <= 1) return 1;
    return n * f(n - 1);
}
int main() {
    int r = f(5);
    return 0;
}
`
	for _, level := range []int{0, 1, 2, 3} {
		vm := compile(t, src, level)
		assert.Equal(t, float64(120), vm.Get("_r@main"), "level %d", level)
	}
}

func TestInlinedFunctionWithParamAndReturn(t *testing.T) {
	src := `
int a, b;
inline int doubleIt(int x) {
    return x + x;
}
int main() {
    a = doubleIt(5);
    b = doubleIt(7);
    return 0;
}
`
	for _, level := range []int{1, 2, 3} {
		vm := compile(t, src, level)
		assert.Equal(t, float64(10), vm.Get("a"), "level %d", level)
		assert.Equal(t, float64(14), vm.Get("b"), "level %d", level)
	}
}

func TestDivAndModTruncateTowardZero(t *testing.T) {
	src := `
int q, r;
int main() {
    int a = 7, b = 3;
    q = a / b;
    r = a % b;
    return 0;
}
`
	for _, level := range []int{0, 1, 2, 3} {
		vm := compile(t, src, level)
		assert.Equal(t, float64(2), vm.Get("q"), "level %d", level)
		assert.Equal(t, float64(1), vm.Get("r"), "level %d", level)
	}
}
