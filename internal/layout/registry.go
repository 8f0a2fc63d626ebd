// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package layout

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// key is the composite (output_id, namespace) registry key design note §9
// mandates.
type key struct {
	output    uuid.UUID
	namespace string
}

// Registry is the process-wide layout-namespace registry (design note §9:
// "Global state ... Initialize once at compositor start; tear down at
// exit."). A namespace may be bound on at most one output at a time across
// the whole compositor, and at most one client may hold a given
// (output, namespace) pair.
type Registry struct {
	mu          sync.Mutex
	byKey       map[key]*Client
	namespaceOf map[string]uuid.UUID // namespace -> output currently using it, across all outputs
}

func NewRegistry() *Registry {
	return &Registry{
		byKey:       make(map[key]*Client),
		namespaceOf: make(map[string]uuid.UUID),
	}
}

// Register binds a new Client for (output, namespace). It refuses
// (ErrNamespaceInUse) if that exact pair is already bound, or if the
// namespace is already used by a different client on any other output
// (spec.md §4.5). After a refusal, the caller must ignore all further
// requests on the object except destruction.
func (r *Registry) Register(conn *Conn, outputID uuid.UUID, namespace string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{output: outputID, namespace: namespace}
	if _, exists := r.byKey[k]; exists {
		return nil, fmt.Errorf("%w: namespace %q already bound on this output", ErrNamespaceInUseErr, namespace)
	}
	if usedOn, ok := r.namespaceOf[namespace]; ok && usedOn != outputID {
		return nil, fmt.Errorf("%w: namespace %q already used on another output", ErrNamespaceInUseErr, namespace)
	}

	client := NewClient(conn, namespace, outputID)
	client.Bound = true
	r.byKey[k] = client
	r.namespaceOf[namespace] = outputID
	return client, nil
}

// Lookup returns the client bound for (output, namespace), if any.
func (r *Registry) Lookup(outputID uuid.UUID, namespace string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byKey[key{output: outputID, namespace: namespace}]
	return c, ok
}

// Unregister removes a destroyed client's registration.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{output: c.OutputID, namespace: c.Namespace}
	if cur, ok := r.byKey[k]; ok && cur == c {
		delete(r.byKey, k)
	}
	if out, ok := r.namespaceOf[c.Namespace]; ok && out == c.OutputID {
		delete(r.namespaceOf, c.Namespace)
	}
}

// ErrNamespaceInUseErr is returned by Register; it wraps ErrNamespaceInUse
// so callers can translate it into the wire error code.
var ErrNamespaceInUseErr = fmt.Errorf("layout_v2: namespace_in_use")
