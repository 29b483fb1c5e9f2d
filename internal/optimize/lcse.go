package optimize

import (
	"sort"
	"strings"

	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/errors"
	"github.com/UMRnInside/MlogEvo/internal/ir"
)

func init() {
	Register(&Pass{Name: "lcse", Scope: ScopeBasicBlock, Rank: 60, MinLevel: 2, RunBlock: lcseBlock})
}

// versionedVar is a (name, version) pair: spec.md §4.5's VersionedVariable.
// Version 0 is the value a name carries on entry to the block (read before
// any write within it); each def bumps that name's version.
type versionedVar struct {
	Name    string
	Version int
}

// dependency is one edge of a dagNode's Depends list: the Output'th value
// produced by Node.
type dependency struct {
	Node   *dagNode
	Output int
}

// operandSlot is one source operand of the instruction a dagNode represents:
// either a literal token (kept verbatim on regeneration) or a dependency on
// another node's output (rewritten to that output's canonical name).
type operandSlot struct {
	IsVar bool
	Dep   dependency
	Token string
}

// dagNode is one value node of the block's LCSE DAG (spec.md §4.5).
// Instruction == "" marks a synthetic node standing in for a value that
// comes from outside this block (a name's version-0 read); it has no
// Quadruple and is never itself regenerated, only depended upon. Depends
// are this node's data dependencies; the reverse adjacency ("rdepends") the
// spec also names is derived locally during liveness/topological sort
// rather than stored, since nothing else needs it kept current.
type dagNode struct {
	ID          int
	Instruction string
	Quadruple   *ir.Quadruple
	Operands    []operandSlot
	Depends     []dependency
	Provides    []versionedVar
}

// lcseState carries one basic block's DAG construction: variable versions,
// the DAG nodes themselves, the alias map a `set_t` copy or an op-cache hit
// installs instead of a real node, and the op-cache keyed on operand
// identity.
type lcseState struct {
	versions         map[string]int
	definedInBlock   map[string]bool
	variableProvider map[versionedVar]*dagNode
	externalNodes    map[versionedVar]*dagNode
	aliasMap         map[versionedVar]versionedVar
	opCache          map[string]*dagNode
	allVersions      []versionedVar
	nodes            []*dagNode
	alwaysLive       []*dagNode
	endingNode       *dagNode
	nextID           int
}

func newLCSEState() *lcseState {
	return &lcseState{
		versions:         map[string]int{},
		definedInBlock:   map[string]bool{},
		variableProvider: map[versionedVar]*dagNode{},
		externalNodes:    map[versionedVar]*dagNode{},
		aliasMap:         map[versionedVar]versionedVar{},
		opCache:          map[string]*dagNode{},
	}
}

// lcseBlock implements local common subexpression elimination (spec.md
// §4.5): it builds the block's value DAG (nodes, depends, provides),
// collapses `set_t`-style copies and op-cache hits into alias entries
// instead of real nodes, drops every node a reverse-BFS liveness sweep from
// the ending branch/call and from each name's final version can't reach,
// and regenerates the survivors in topological order, naming each one's
// output by the weighted reverse-alias canonicalization and re-emitting
// `set_t` fillers for any other live name that still needs to read it.
//
// `decl_*` and block-entrance instructions pass through verbatim at the
// head of the result; a tail `goto`/`__return`/`__funcend` (none of which
// reference a variable) passes through verbatim at the end. A tail
// `if`/`ifnot`/`__call` instead becomes the DAG's designated ending node,
// with a synthetic precedence edge from every other active node so it is
// always regenerated last.
func lcseBlock(blk *ir.BasicBlock, ctx *Context) (bool, error) {
	instrs := blk.Instructions
	if len(instrs) == 0 {
		return false, nil
	}
	callee := tailCallee(instrs)

	var head []*ir.Quadruple
	var tail *ir.Quadruple
	st := newLCSEState()

	for i, q := range instrs {
		switch {
		case q.IsBasicBlockEntrance(), q.Arity() == ir.ArityO1:
			head = append(head, q)
		case i == len(instrs)-1 && isPassthroughExit(q.Instruction):
			tail = q
		default:
			if err := st.process(q, callee); err != nil {
				return false, err
			}
		}
	}

	body, err := st.regenerate(ctx, callee)
	if err != nil {
		return false, err
	}

	out := make([]*ir.Quadruple, 0, len(head)+len(body)+1)
	out = append(out, head...)
	out = append(out, body...)
	if tail != nil {
		out = append(out, tail)
	}

	if sameSequence(instrs, out) {
		return false, nil
	}
	blk.Instructions = out
	return true, nil
}

func tailCallee(instrs []*ir.Quadruple) string {
	last := instrs[len(instrs)-1]
	if last.Instruction == "__call" {
		return last.Src1
	}
	return ""
}

func isPassthroughExit(instr string) bool {
	return instr == "goto" || instr == "__return" || instr == "__funcend"
}

// callSacred reports whether dest is the callee's own parameter slot
// (`_name@callee`) or result slot (`result@callee`) for the block's
// outgoing call — the one case a `set_t` into a variable destination must
// still become a real DAG node rather than an alias, since the call
// convention reads that exact storage, not whatever value it happens to
// currently equal (spec.md §4.5).
func callSacred(dest, callee string) bool {
	return callee != "" && strings.HasSuffix(dest, "@"+callee)
}

// process dispatches one block instruction into the DAG: a plain-copy
// `set_t` becomes an alias, every other value-producing instruction becomes
// a (possibly op-cache-deduplicated) node, and asm/branch/print/call become
// distinct nodes that are never cached or aliased.
func (st *lcseState) process(q *ir.Quadruple, callee string) error {
	switch q.Arity() {
	case ir.ArityI1O1:
		if strings.HasPrefix(q.Instruction, "set_") && q.Src1Kind == ir.OperandVariable && !callSacred(q.Dest, callee) {
			return st.alias(q)
		}
		return st.opNode(q, q.Src1, "")
	case ir.ArityI2O1:
		return st.opNode(q, q.Src1, q.Src2)
	case ir.ArityAsm:
		return st.asmNode(q)
	case ir.ArityBranch:
		return st.branchNode(q)
	default:
		switch q.Instruction {
		case "print":
			return st.printNode(q)
		case "__call":
			return st.callNode(q)
		}
		return nil
	}
}

// alias records a plain-copy `set_t dest src` as an equivalence instead of
// a DAG node: dest's new version simply resolves to src's current provider.
func (st *lcseState) alias(q *ir.Quadruple) error {
	canonSrc, err := st.canonical(st.currentVV(q.Src1))
	if err != nil {
		return err
	}
	// Mint the source's provider now, so an outside value gets a node in
	// program order rather than at liveness time.
	st.providerOf(canonSrc)
	newVV := st.newVersion(q.Dest)
	st.aliasMap[newVV] = canonSrc
	return nil
}

// opNode handles every arithmetic/compare/conversion/forced-set
// instruction: an op-cache hit on (instruction, resolved operands) becomes
// an alias, a miss becomes a new node.
func (st *lcseState) opNode(q *ir.Quadruple, src1, src2 string) error {
	op1, dep1, err := st.makeOperand(src1)
	if err != nil {
		return err
	}
	op2, dep2, err := st.makeOperand(src2)
	if err != nil {
		return err
	}

	key := cacheKey(q.Instruction, op1, op2)
	if cached, ok := st.opCache[key]; ok {
		newVV := st.newVersion(q.Dest)
		st.aliasMap[newVV] = cached.Provides[0]
		return nil
	}

	n := &dagNode{ID: st.newID(), Instruction: q.Instruction, Quadruple: q, Operands: []operandSlot{op1, op2}}
	if dep1 != nil {
		n.Depends = append(n.Depends, *dep1)
	}
	if dep2 != nil {
		n.Depends = append(n.Depends, *dep2)
	}
	newVV := st.newVersion(q.Dest)
	n.Provides = []versionedVar{newVV}
	st.opCache[key] = n
	st.variableProvider[newVV] = n
	st.nodes = append(st.nodes, n)
	return nil
}

func (st *lcseState) asmNode(q *ir.Quadruple) error {
	n := &dagNode{ID: st.newID(), Instruction: q.Instruction, Quadruple: q}
	for _, v := range q.InputVars {
		op, dep, err := st.makeOperand(v)
		if err != nil {
			return err
		}
		n.Operands = append(n.Operands, op)
		if dep != nil {
			n.Depends = append(n.Depends, *dep)
		}
	}
	for _, v := range q.OutputVars {
		vv := st.newVersion(v)
		n.Provides = append(n.Provides, vv)
		st.variableProvider[vv] = n
	}
	st.nodes = append(st.nodes, n)
	st.alwaysLive = append(st.alwaysLive, n)
	return nil
}

func (st *lcseState) branchNode(q *ir.Quadruple) error {
	n := &dagNode{ID: st.newID(), Instruction: q.Instruction, Quadruple: q}
	for _, tok := range []string{q.Src1, q.Src2} {
		op, dep, err := st.makeOperand(tok)
		if err != nil {
			return err
		}
		n.Operands = append(n.Operands, op)
		if dep != nil {
			n.Depends = append(n.Depends, *dep)
		}
	}
	st.nodes = append(st.nodes, n)
	st.endingNode = n
	return nil
}

func (st *lcseState) printNode(q *ir.Quadruple) error {
	n := &dagNode{ID: st.newID(), Instruction: q.Instruction, Quadruple: q}
	op, dep, err := st.makeOperand(q.Src1)
	if err != nil {
		return err
	}
	n.Operands = append(n.Operands, op)
	if dep != nil {
		n.Depends = append(n.Depends, *dep)
	}
	st.nodes = append(st.nodes, n)
	st.alwaysLive = append(st.alwaysLive, n)
	return nil
}

// callNode models a tail `__call` as the block's ending node. Its callee
// operand is a function name, never a variable, so it has no Depends of its
// own; everything that set up the callee's argument slots becomes live via
// the "most recent version of each name" liveness rule instead.
func (st *lcseState) callNode(q *ir.Quadruple) error {
	n := &dagNode{ID: st.newID(), Instruction: q.Instruction, Quadruple: q}
	st.nodes = append(st.nodes, n)
	st.endingNode = n
	return nil
}

// makeOperand resolves one source token: a literal passes through
// unchanged, a variable resolves (through any alias chain) to the
// versioned value currently backing it and the dagNode that provides it.
func (st *lcseState) makeOperand(tok string) (operandSlot, *dependency, error) {
	if tok == "" || ir.ClassifyOperand(tok) != ir.OperandVariable {
		return operandSlot{Token: tok}, nil, nil
	}
	canon, err := st.canonical(st.currentVV(tok))
	if err != nil {
		return operandSlot{}, nil, err
	}
	node, idx := st.providerOf(canon)
	dep := dependency{Node: node, Output: idx}
	return operandSlot{IsVar: true, Dep: dep}, &dep, nil
}

func (st *lcseState) currentVV(name string) versionedVar {
	return versionedVar{Name: name, Version: st.versions[name]}
}

func (st *lcseState) newVersion(name string) versionedVar {
	st.versions[name]++
	vv := versionedVar{Name: name, Version: st.versions[name]}
	st.definedInBlock[name] = true
	st.allVersions = append(st.allVersions, vv)
	return vv
}

// canonical follows the alias map to the versioned variable a value is
// ultimately backed by. A cycle here is a bug in the DAG construction
// above, never a legal program shape, so it aborts the pass rather than
// looping forever.
func (st *lcseState) canonical(vv versionedVar) (versionedVar, error) {
	seen := map[versionedVar]bool{}
	cur := vv
	for {
		if seen[cur] {
			return versionedVar{}, errors.New(errors.KindCycle, ast.Position{}, "lcse: cycle detected resolving alias of %s", cur.Name)
		}
		seen[cur] = true
		next, ok := st.aliasMap[cur]
		if !ok {
			return cur, nil
		}
		cur = next
	}
}

// providerOf finds (or lazily creates) the node that produces canon,
// minting a synthetic "comes from outside this block" source node the
// first time a name's version-0 value is actually read.
func (st *lcseState) providerOf(canon versionedVar) (*dagNode, int) {
	n, ok := st.variableProvider[canon]
	if !ok {
		if ext, ok2 := st.externalNodes[canon]; ok2 {
			n = ext
		} else {
			n = &dagNode{ID: st.newID(), Provides: []versionedVar{canon}}
			st.externalNodes[canon] = n
			st.nodes = append(st.nodes, n)
		}
	}
	for i, p := range n.Provides {
		if p == canon {
			return n, i
		}
	}
	return n, 0
}

func (st *lcseState) newID() int {
	id := st.nextID
	st.nextID++
	return id
}

func cacheKey(instr string, ops ...operandSlot) string {
	parts := make([]string, 0, len(ops)*3+1)
	parts = append(parts, instr)
	for _, o := range ops {
		if o.IsVar {
			parts = append(parts, "v", itoa(o.Dep.Node.ID), itoa(o.Dep.Output))
		} else {
			parts = append(parts, "i", o.Token)
		}
	}
	return strings.Join(parts, "|")
}

// itoa avoids pulling in strconv just for cache-key building; keys never
// need more than base-10 digits.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}

// regenerate runs liveness (reverse BFS from the ending node, from every
// asm/print node, and from the provider of every name's final version),
// sorts the surviving nodes topologically (Kahn's algorithm over Depends,
// with a synthetic edge from every other active node to the ending node),
// and emits each survivor under its canonical name plus any alias-filler
// `set_t`s still-live aliasing names need.
func (st *lcseState) regenerate(ctx *Context, callee string) ([]*ir.Quadruple, error) {
	if len(st.nodes) == 0 {
		return nil, nil
	}

	roots, err := st.livenessRoots()
	if err != nil {
		return nil, err
	}
	active := activeSet(roots)

	order, err := topoSort(active, st.endingNode)
	if err != nil {
		return nil, err
	}

	groups, err := st.aliasGroups()
	if err != nil {
		return nil, err
	}
	canonName, fillerNames := chooseCanonicalNames(groups, st.versions, callee)

	var body []*ir.Quadruple
	for _, n := range order {
		if n.Instruction == "" {
			for _, p := range n.Provides {
				// An outside value renamed to an alias is copied out of the
				// variable it arrived in.
				if canonName[p] != p.Name {
					body = append(body, emitFillers(p.Name, []string{canonName[p]}, ctx)...)
				}
				body = append(body, emitFillers(canonName[p], fillerNames[p], ctx)...)
			}
			continue
		}
		body = append(body, regenerateInstruction(n, canonName))
		for _, p := range n.Provides {
			body = append(body, emitFillers(canonName[p], fillerNames[p], ctx)...)
		}
	}
	return body, nil
}

// livenessRoots is the ending node (if this block tails in a branch or
// call) plus every asm/print node unconditionally (their effects reach
// beyond their declared outputs and must never be dropped as "unread")
// plus the provider of every name this block ever defined, at that name's
// final version — spec.md §4.5's documented liveness source.
func (st *lcseState) livenessRoots() ([]*dagNode, error) {
	var roots []*dagNode
	if st.endingNode != nil {
		roots = append(roots, st.endingNode)
	}
	roots = append(roots, st.alwaysLive...)
	for name := range st.definedInBlock {
		canon, err := st.canonical(versionedVar{Name: name, Version: st.versions[name]})
		if err != nil {
			return nil, err
		}
		node, _ := st.providerOf(canon)
		roots = append(roots, node)
	}
	return roots, nil
}

func activeSet(roots []*dagNode) map[*dagNode]bool {
	active := map[*dagNode]bool{}
	queue := append([]*dagNode(nil), roots...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if active[n] {
			continue
		}
		active[n] = true
		for _, d := range n.Depends {
			if !active[d.Node] {
				queue = append(queue, d.Node)
			}
		}
	}
	return active
}

// topoSort orders active nodes so every dependency precedes its dependents,
// via Kahn's algorithm: walking each node's Depends to build the reverse
// adjacency (its rdepends/consumers) used to notify them as each
// prerequisite completes. The ending node (if active) additionally gets a
// synthetic precedence requirement from every other active node,
// guaranteeing it is regenerated last even when it has no real operand
// dependencies of its own (a bare `__call`). Ties among simultaneously-
// ready nodes break on creation order, which reproduces the original
// instruction order whenever the DAG leaves a choice.
func topoSort(active map[*dagNode]bool, ending *dagNode) ([]*dagNode, error) {
	indegree := make(map[*dagNode]int, len(active))
	consumers := make(map[*dagNode][]*dagNode, len(active))
	for n := range active {
		indegree[n] = 0
	}
	for n := range active {
		for _, d := range n.Depends {
			if active[d.Node] {
				indegree[n]++
				consumers[d.Node] = append(consumers[d.Node], n)
			}
		}
	}
	if ending != nil && active[ending] {
		for n := range active {
			if n == ending {
				continue
			}
			indegree[ending]++
			consumers[n] = append(consumers[n], ending)
		}
	}

	byID := func(ns []*dagNode) { sort.Slice(ns, func(i, j int) bool { return ns[i].ID < ns[j].ID }) }

	ready := make([]*dagNode, 0, len(active))
	for n := range active {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	byID(ready)

	order := make([]*dagNode, 0, len(active))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		var freed []*dagNode
		for _, m := range consumers[n] {
			indegree[m]--
			if indegree[m] == 0 {
				freed = append(freed, m)
			}
		}
		byID(freed)
		ready = append(ready, freed...)
		byID(ready)
	}
	if len(order) != len(active) {
		return nil, errors.New(errors.KindCycle, ast.Position{}, "lcse: cycle detected among basic-block value nodes")
	}
	return order, nil
}

// aliasGroups buckets every versioned name this block ever minted by the
// canonical value it resolves to (spec.md §4.5's alias_group), so
// regeneration can pick one storage location per value and fill in the
// rest as copies. Every node's Provides also gets a (possibly singleton)
// group, so a name that is only ever read in this block — never itself
// redefined, hence absent from allVersions — still has a canonical name to
// regenerate operand references to.
func (st *lcseState) aliasGroups() (map[versionedVar][]versionedVar, error) {
	groups := map[versionedVar][]versionedVar{}
	for _, vv := range st.allVersions {
		canon, err := st.canonical(vv)
		if err != nil {
			return nil, err
		}
		groups[canon] = append(groups[canon], vv)
	}
	for _, n := range st.nodes {
		for _, p := range n.Provides {
			if _, ok := groups[p]; !ok {
				groups[p] = []versionedVar{p}
			}
		}
	}
	for canon, members := range groups {
		present := false
		for _, m := range members {
			if m == canon {
				present = true
				break
			}
		}
		if !present {
			groups[canon] = append([]versionedVar{canon}, members...)
		}
	}
	return groups, nil
}

// chooseCanonicalNames picks, per alias group, the highest-weighted member
// name to regenerate the defining node's output as, and the other
// still-current names that need a trailing `set_t` copy to keep reading
// the same value under their own name.
func chooseCanonicalNames(groups map[versionedVar][]versionedVar, versions map[string]int, callee string) (map[versionedVar]string, map[versionedVar][]string) {
	canonName := make(map[versionedVar]string, len(groups))
	fillers := make(map[versionedVar][]string, len(groups))
	for canon, members := range groups {
		best := members[0]
		bestWeight := aliasWeight(best, versions, callee)
		for _, m := range members[1:] {
			if w := aliasWeight(m, versions, callee); w > bestWeight {
				best, bestWeight = m, w
			}
		}
		canonName[canon] = best.Name

		var others []string
		for _, m := range members {
			if m.Name == best.Name {
				continue
			}
			if m.Version == versions[m.Name] {
				others = append(others, m.Name)
			}
		}
		sort.Strings(others)
		fillers[canon] = others
	}
	return canonName, fillers
}

// aliasWeight scores a versioned name as a candidate for the real storage
// location an LCSE-collapsed value keeps (spec.md §4.5): +8 for naming the
// current version of its variable, else -8; +4 for a global (no `@`
// decoration); +2 for an outgoing call argument slot matching this block's
// callee; -1 for a compiler-synthesized temp.
func aliasWeight(vv versionedVar, versions map[string]int, callee string) int {
	w := 0
	if vv.Version == versions[vv.Name] {
		w += 8
	} else {
		w -= 8
	}
	if !strings.Contains(vv.Name, "@") {
		w += 4
	}
	if callee != "" && strings.HasSuffix(vv.Name, "@"+callee) {
		w += 2
	}
	if strings.Contains(vv.Name, "___vtmp_") {
		w--
	}
	return w
}

// emitFillers produces the trailing `set_t canonical "" other` copies a
// still-current aliasing name needs, skipping any name whose type isn't in
// the table (spec.md §4.5: presumed handled elsewhere, filler skipped).
func emitFillers(canonical string, others []string, ctx *Context) []*ir.Quadruple {
	var out []*ir.Quadruple
	for _, other := range others {
		typ, ok := ctx.VariableTypes[other]
		if !ok {
			continue
		}
		out = append(out, ir.NewQuadruple("set_"+typ, canonical, "", other))
	}
	return out
}

func operandToken(slot operandSlot, canonName map[versionedVar]string) string {
	if !slot.IsVar {
		return slot.Token
	}
	return canonName[slot.Dep.Node.Provides[slot.Dep.Output]]
}

// regenerateInstruction re-emits one active node's quadruple, rewriting its
// operand/dest tokens to the canonical names chosen for its dependencies
// and provides.
func regenerateInstruction(n *dagNode, canonName map[versionedVar]string) *ir.Quadruple {
	q := n.Quadruple.Clone()
	switch {
	case n.Instruction == "__call":
		// The callee name in Src1 is a function name, not an operand.
	case ir.Branches[n.Instruction]:
		q.SetSrc1(operandToken(n.Operands[0], canonName))
		q.SetSrc2(operandToken(n.Operands[1], canonName))
	case ir.AsmTags[n.Instruction]:
		for i := range q.InputVars {
			q.InputVars[i] = operandToken(n.Operands[i], canonName)
		}
		for i := range q.OutputVars {
			q.OutputVars[i] = canonName[n.Provides[i]]
		}
	case n.Instruction == "print":
		q.SetSrc1(operandToken(n.Operands[0], canonName))
	case ir.I2O1[n.Instruction]:
		q.SetSrc1(operandToken(n.Operands[0], canonName))
		q.SetSrc2(operandToken(n.Operands[1], canonName))
		q.Dest = canonName[n.Provides[0]]
	case ir.I1O1[n.Instruction]:
		q.SetSrc1(operandToken(n.Operands[0], canonName))
		q.SetSrc2("")
		q.Dest = canonName[n.Provides[0]]
	}
	return q
}

func sameSequence(a, b []*ir.Quadruple) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Instruction != b[i].Instruction || a[i].Src1 != b[i].Src1 || a[i].Src2 != b[i].Src2 || a[i].Dest != b[i].Dest {
			return false
		}
		if len(a[i].InputVars) != len(b[i].InputVars) || len(a[i].OutputVars) != len(b[i].OutputVars) {
			return false
		}
		for j := range a[i].InputVars {
			if a[i].InputVars[j] != b[i].InputVars[j] {
				return false
			}
		}
		for j := range a[i].OutputVars {
			if a[i].OutputVars[j] != b[i].OutputVars[j] {
				return false
			}
		}
	}
	return true
}
