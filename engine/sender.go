/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package engine

import "sync"

// SendFunc transmits one raw Ethernet frame. Supplied by the embedding
// program; the engine never opens or closes a socket itself.
type SendFunc func(frame []byte) error

// SerializedSender wraps a SendFunc so that concurrent control-block tasks
// share a single logical send path with at most one send in flight at a
// time.
type SerializedSender struct {
	mu   sync.Mutex
	send SendFunc
}

// NewSerializedSender wraps send for shared, mutex-serialized use.
func NewSerializedSender(send SendFunc) *SerializedSender {
	return &SerializedSender{send: send}
}

// Send transmits frame, blocking until any concurrent send completes.
func (s *SerializedSender) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(frame)
}
