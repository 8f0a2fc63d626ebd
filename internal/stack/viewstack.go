// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package stack implements the tag-filtered view stack: an ordered
// doubly-linked collection supporting filtered forward/reverse iteration
// over a 32-bit tag bitmask. It generalizes the plain container/list.List
// the teacher keeps its mapped toplevels in (server.go's topLevelList) by
// adding attach-mode insertion and tag-filtered iterators.
package stack

import "container/list"

// AllTags yields every node regardless of tag, the all-ones bitmask.
const AllTags uint32 = ^uint32(0)

// AttachMode selects where a newly mapped view is inserted.
type AttachMode int

const (
	AttachTop AttachMode = iota
	AttachBottom
)

// Taggable is anything a ViewStack can hold: something with a current tag
// set and, optionally, a pending one.
type Taggable interface {
	CurrentTags() uint32
	// PendingTags returns the pending tag set and true if a pending
	// snapshot exists, else (0, false).
	PendingTags() (uint32, bool)
}

// Stack is a doubly-linked ordered collection of T, filterable by tag.
type Stack[T Taggable] struct {
	list list.List
}

// Node is an opaque handle to a position in the stack, returned by Push/
// Append/Attach and consumed by Remove/Swap.
type Node[T Taggable] struct {
	elem *list.Element
}

func New[T Taggable]() *Stack[T] {
	s := &Stack[T]{}
	s.list.Init()
	return s
}

func (s *Stack[T]) Len() int { return s.list.Len() }

// Push prepends value, making it the new first node.
func (s *Stack[T]) Push(value T) Node[T] {
	return Node[T]{elem: s.list.PushFront(value)}
}

// Append adds value as the new last node.
func (s *Stack[T]) Append(value T) Node[T] {
	return Node[T]{elem: s.list.PushBack(value)}
}

// Attach inserts value at the top or bottom of the stack per mode.
func (s *Stack[T]) Attach(value T, mode AttachMode) Node[T] {
	if mode == AttachBottom {
		return s.Append(value)
	}
	return s.Push(value)
}

// Remove takes node out of the stack. node must belong to this stack.
func (s *Stack[T]) Remove(node Node[T]) {
	s.list.Remove(node.elem)
}

// Swap exchanges the positions of a and b in the list, by exchanging the
// values the two nodes hold. Swapping a node with itself is a no-op.
// swap(a, b); swap(a, b) is therefore the identity on list order.
func (s *Stack[T]) Swap(a, b Node[T]) {
	if a.elem == b.elem {
		return
	}
	a.elem.Value, b.elem.Value = b.elem.Value, a.elem.Value
}

// First returns the first node in the stack, or the zero Node if empty.
func (s *Stack[T]) First() Node[T] { return Node[T]{elem: s.list.Front()} }

// Last returns the last node in the stack, or the zero Node if empty.
func (s *Stack[T]) Last() Node[T] { return Node[T]{elem: s.list.Back()} }

func (n Node[T]) Valid() bool { return n.elem != nil }

func (n Node[T]) Value() T {
	return n.elem.Value.(T)
}

// tagMatch applies the spec's tag-filter rule: tags == 0 matches nothing,
// tags == AllTags matches everything, otherwise bitwise AND must be
// nonzero.
func tagMatch(nodeTags, filter uint32) bool {
	if filter == 0 {
		return false
	}
	if filter == AllTags {
		return true
	}
	return nodeTags&filter != 0
}

// Iterator walks a Stack in one direction, yielding only nodes whose tag
// set (selected by the iterator's kind) intersects the filter.
type Iterator[T Taggable] struct {
	elem    *list.Element
	filter  uint32
	reverse bool
	pending bool
}

func (s *Stack[T]) iterFrom(start Node[T], tags uint32, reverse, pending bool) *Iterator[T] {
	e := start.elem
	if e == nil {
		if reverse {
			e = s.list.Back()
		} else {
			e = s.list.Front()
		}
	}
	return &Iterator[T]{elem: e, filter: tags, reverse: reverse, pending: pending}
}

// Iterator returns a forward iterator from start (or the stack's first node
// if start is the zero Node), yielding nodes whose current tags intersect
// tags.
func (s *Stack[T]) Iterator(start Node[T], tags uint32) *Iterator[T] {
	return s.iterFrom(start, tags, false, false)
}

// ReverseIterator is Iterator's mirror, walking from start (or the stack's
// last node) towards the front.
func (s *Stack[T]) ReverseIterator(start Node[T], tags uint32) *Iterator[T] {
	return s.iterFrom(start, tags, true, false)
}

// PendingIterator is a forward iterator that filters on each node's pending
// tags when present, falling back to current tags otherwise.
func (s *Stack[T]) PendingIterator(start Node[T], tags uint32) *Iterator[T] {
	return s.iterFrom(start, tags, false, true)
}

func (it *Iterator[T]) nodeTags(e *list.Element) uint32 {
	v := e.Value.(T)
	if it.pending {
		if pt, ok := v.PendingTags(); ok {
			return pt
		}
	}
	return v.CurrentTags()
}

// Next advances the iterator and returns the next matching node, or the
// zero Node when exhausted.
func (it *Iterator[T]) Next() (Node[T], bool) {
	for it.elem != nil {
		e := it.elem
		if it.reverse {
			it.elem = e.Prev()
		} else {
			it.elem = e.Next()
		}
		if tagMatch(it.nodeTags(e), it.filter) {
			return Node[T]{elem: e}, true
		}
	}
	return Node[T]{}, false
}

// Collect drains the iterator into a slice, in yield order.
func (it *Iterator[T]) Collect() []T {
	var out []T
	for {
		n, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, n.Value())
	}
}
