package nbgraph

import (
	"fmt"
	"math"
	"strconv"
)

// UnrankedKey is the order key of an id with no trailing digit run.
// Such ids sort after every numbered cell.
const UnrankedKey = math.MaxInt

// CellID formats the canonical id for cell number n.
func CellID(n int) string {
	return fmt.Sprintf("cell-%d", n)
}

// CellLabel formats the display label for cell number n.
func CellLabel(n int) string {
	return fmt.Sprintf("Cell %d", n)
}

// NextID returns a fresh "cell-<n>" id.  The scan starts at one past
// the current node count and probes upward until an unused number is
// found, so freed lower numbers are never reclaimed: ids are unused and
// deterministic for a given node set, not minimal.
func NextID(nodes []Node) string {
	return CellID(nextCellNum(nodes))
}

func nextCellNum(nodes []Node) int {
	used := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		used[n.ID] = struct{}{}
	}
	for num := len(nodes) + 1; ; num++ {
		if _, taken := used[CellID(num)]; !taken {
			return num
		}
	}
}

// OrderKey parses the trailing run of digits in id as that id's
// left-to-right ordering key, so "cell-10" sorts after "cell-2".
// Ids without a trailing digit run return UnrankedKey.
func OrderKey(id string) int {
	start := len(id)
	for start > 0 && id[start-1] >= '0' && id[start-1] <= '9' {
		start--
	}
	if start == len(id) {
		return UnrankedKey
	}
	num, err := strconv.Atoi(id[start:])
	if err != nil {
		return UnrankedKey
	}
	return num
}

// KeyLess orders ids by OrderKey, breaking ties lexicographically.
// This is the single ordering used for layout ranks and run-all order.
func KeyLess(a, b string) bool {
	ka, kb := OrderKey(a), OrderKey(b)
	if ka != kb {
		return ka < kb
	}
	return a < b
}
