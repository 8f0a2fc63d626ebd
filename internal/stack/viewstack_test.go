// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package stack

import (
	"reflect"
	"testing"
)

type tagged struct {
	name    string
	tags    uint32
	pending uint32
	hasPend bool
}

func (t *tagged) CurrentTags() uint32 { return t.tags }
func (t *tagged) PendingTags() (uint32, bool) {
	return t.pending, t.hasPend
}

func names(items []*tagged) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.name
	}
	return out
}

func TestForwardReverseAreMirrored(t *testing.T) {
	s := New[*tagged]()
	a := &tagged{name: "a", tags: 1}
	b := &tagged{name: "b", tags: 1}
	c := &tagged{name: "c", tags: 1}
	s.Push(a) // [a]
	s.Append(b) // [a b]
	na := s.First()
	s.Remove(na)
	s.Push(a)
	s.Append(c) // [a b c]

	fwd := s.Iterator(Node[*tagged]{}, AllTags).Collect()
	rev := s.ReverseIterator(Node[*tagged]{}, AllTags).Collect()

	reversed := make([]*tagged, len(rev))
	for i, v := range rev {
		reversed[len(rev)-1-i] = v
	}
	if !reflect.DeepEqual(names(fwd), names(reversed)) {
		t.Fatalf("forward %v != reversed(reverse) %v", names(fwd), names(reversed))
	}
}

func TestIteratorFiltersByCurrentTags(t *testing.T) {
	s := New[*tagged]()
	s.Append(&tagged{name: "a", tags: 0b001})
	s.Append(&tagged{name: "b", tags: 0b010})
	s.Append(&tagged{name: "c", tags: 0b011})

	got := names(s.Iterator(Node[*tagged]{}, 0b010).Collect())
	want := []string{"b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	if got := s.Iterator(Node[*tagged]{}, 0).Collect(); len(got) != 0 {
		t.Fatalf("tags==0 should yield nothing, got %v", names(got))
	}

	if got := s.Iterator(Node[*tagged]{}, AllTags).Collect(); len(got) != 3 {
		t.Fatalf("AllTags should yield everything, got %v", names(got))
	}
}

func TestPendingIteratorFallsBackToCurrent(t *testing.T) {
	s := New[*tagged]()
	s.Append(&tagged{name: "a", tags: 0b001, pending: 0b010, hasPend: true})
	s.Append(&tagged{name: "b", tags: 0b010})

	got := names(s.PendingIterator(Node[*tagged]{}, 0b010).Collect())
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSwapTwiceIsIdentity(t *testing.T) {
	s := New[*tagged]()
	a := &tagged{name: "a", tags: 1}
	b := &tagged{name: "b", tags: 1}
	c := &tagged{name: "c", tags: 1}
	na := s.Append(a)
	nb := s.Append(b)
	s.Append(c)

	before := names(s.Iterator(Node[*tagged]{}, AllTags).Collect())
	s.Swap(na, nb)
	s.Swap(na, nb)
	after := names(s.Iterator(Node[*tagged]{}, AllTags).Collect())
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("double swap changed order: %v -> %v", before, after)
	}
}

func TestSwapSelfIsNoOp(t *testing.T) {
	s := New[*tagged]()
	a := &tagged{name: "a", tags: 1}
	na := s.Append(a)
	s.Append(&tagged{name: "b", tags: 1})

	before := names(s.Iterator(Node[*tagged]{}, AllTags).Collect())
	s.Swap(na, na)
	after := names(s.Iterator(Node[*tagged]{}, AllTags).Collect())
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("self swap changed order: %v -> %v", before, after)
	}
}

func TestRemove(t *testing.T) {
	s := New[*tagged]()
	s.Append(&tagged{name: "a", tags: 1})
	nb := s.Append(&tagged{name: "b", tags: 1})
	s.Append(&tagged{name: "c", tags: 1})

	s.Remove(nb)
	got := names(s.Iterator(Node[*tagged]{}, AllTags).Collect())
	want := []string{"a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
