/**
 * Copyright 2022 kmeaw
 *
 * Licensed under the GNU Affero General Public License (AGPL).
 *
 * This program is free software: you can redistribute it and/or modify it
 * under the terms of the GNU Affero General Public License as published by the
 * Free Software Foundation, version 3 of the License.
 *
 * This program is distributed in the hope that it will be useful, but WITHOUT
 * ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
 * FITNESS FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License
 * for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */
package main

import (
	"math"
	"strings"
)

const NO_NODE = -1

type nodeKind uint8

const (
	KIND_LEAF nodeKind = iota
	KIND_INTERNAL
)

type node struct {
	kind      nodeKind
	val       byte
	freq      int64
	zero, one int
}

func (n *node) isLeaf() bool {
	return n.kind == KIND_LEAF
}

// Tree is a Huffman tree whose nodes live in a single arena and refer to
// their children by index.
type Tree struct {
	nodes []node
	root  int
}

// CodeTable maps a byte value to its code. Absent symbols have an empty code.
type CodeTable [256]string

func (t *Tree) Empty() bool {
	return t.root == NO_NODE
}

func (t *Tree) Root() int {
	return t.root
}

func (t *Tree) addLeaf(val byte, freq int64) int {
	t.nodes = append(t.nodes, node{
		kind: KIND_LEAF,
		val:  val,
		freq: freq,
		zero: NO_NODE,
		one:  NO_NODE,
	})
	return len(t.nodes) - 1
}

func (t *Tree) addInternal(freq int64, zero, one int) int {
	t.nodes = append(t.nodes, node{
		kind: KIND_INTERNAL,
		freq: freq,
		zero: zero,
		one:  one,
	})
	return len(t.nodes) - 1
}

// BuildTree merges the two lightest live nodes until one remains. Equal
// weights resolve to the node created first, and leaves are created in
// ascending byte order, so the shape depends only on the counts.
func BuildTree(f *Frequencies) *Tree {
	t := &Tree{
		nodes: make([]node, 0, 511),
		root:  NO_NODE,
	}

	live := make([]int, 0, 256)
	for i, c := range f.Counts {
		if c > 0 {
			live = append(live, t.addLeaf(byte(i), c))
		}
	}

	for len(live) > 1 {
		min_pos1, min_pos2 := -1, -1
		var min_freq1, min_freq2 int64 = math.MaxInt64, math.MaxInt64

		for pos, idx := range live {
			freq := t.nodes[idx].freq
			if freq < min_freq1 {
				min_pos2, min_freq2 = min_pos1, min_freq1
				min_pos1, min_freq1 = pos, freq
			} else if freq < min_freq2 {
				min_pos2, min_freq2 = pos, freq
			}
		}

		merged := t.addInternal(min_freq1+min_freq2, live[min_pos1], live[min_pos2])

		// live stays in arena order: drop both picks, append the merge
		next := live[:0]
		for pos, idx := range live {
			if pos != min_pos1 && pos != min_pos2 {
				next = append(next, idx)
			}
		}
		live = append(next, merged)
	}

	if len(live) == 1 {
		t.root = live[0]
	}

	return t
}

// Codes walks the tree and returns the code of every leaf.
func (t *Tree) Codes() CodeTable {
	var table CodeTable
	if t.Empty() {
		return table
	}

	if t.nodes[t.root].isLeaf() {
		// a lone symbol still needs one bit per occurrence
		table[t.nodes[t.root].val] = "0"
		return table
	}

	type frame struct {
		idx    int
		prefix string
	}

	stack := []frame{{t.root, ""}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[top.idx]
		if n.isLeaf() {
			table[n.val] = top.prefix
			continue
		}

		// one-branch first so the zero-branch is visited first
		if n.one != NO_NODE {
			stack = append(stack, frame{n.one, top.prefix + "1"})
		}
		if n.zero != NO_NODE {
			stack = append(stack, frame{n.zero, top.prefix + "0"})
		}
	}

	return table
}

// TreeFromCodes rebuilds a decoding tree from a code table. Branches that
// no code takes are left absent.
func TreeFromCodes(table *CodeTable) (*Tree, error) {
	t := &Tree{root: NO_NODE}

	for sym, code := range table {
		if code == "" {
			continue
		}

		if t.root == NO_NODE {
			t.root = t.addInternal(0, NO_NODE, NO_NODE)
		}

		cur := t.root
		for i := 0; i < len(code); i++ {
			if t.nodes[cur].isLeaf() {
				return nil, formatErrorf(-1, "code %q for %q extends the code of %q", code, byte(sym), t.nodes[cur].val)
			}

			var next int
			switch code[i] {
			case '0':
				next = t.nodes[cur].zero
			case '1':
				next = t.nodes[cur].one
			default:
				return nil, formatErrorf(-1, "bad bit %q in code for %q", code[i], byte(sym))
			}

			if next == NO_NODE {
				next = t.addInternal(0, NO_NODE, NO_NODE)
				if code[i] == '0' {
					t.nodes[cur].zero = next
				} else {
					t.nodes[cur].one = next
				}
			}
			cur = next
		}

		n := &t.nodes[cur]
		if n.isLeaf() || n.zero != NO_NODE || n.one != NO_NODE {
			return nil, formatErrorf(-1, "code %q for %q collides with another code", code, byte(sym))
		}
		n.kind = KIND_LEAF
		n.val = byte(sym)
	}

	return t, nil
}

// Encode appends the code of every byte in data to sb.
func (table *CodeTable) Encode(sb *strings.Builder, data []byte) error {
	for _, b := range data {
		code := table[b]
		if code == "" {
			return inconsistent("no code for byte %#02x", b)
		}
		sb.WriteString(code)
	}
	return nil
}

// Symbols returns the number of bytes that have a code.
func (table *CodeTable) Symbols() int {
	n := 0
	for _, code := range table {
		if code != "" {
			n++
		}
	}
	return n
}

// vim: ai:ts=8:sw=8:noet:syntax=go
