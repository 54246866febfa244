// Copyright 2025 the stored-go authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stored

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/DEMCON/stored-go/internal/debug"
	"github.com/DEMCON/stored-go/protocol"
)

// Synchronizer message types.
const (
	syncHello   = 'h'
	syncWelcome = 'w'
	syncUpdate  = 'u'
	syncBye     = 'b'
)

// Synchronizer replicates stores between processes over any protocol
// channel. Map the stores to synchronize, Connect the channels, and mark
// the stores whose authoritative copy lives at the peer with SyncFrom;
// afterwards, Process flushes local writes as compact update messages.
//
// Updates never echo back onto the channel they arrived on, so arbitrary
// topologies (chains, trees, meshes with cycles) converge.
//
// All message fields are big-endian:
//
//	hello:   'h' <schema hash> 0x00 <id>
//	welcome: 'w' <hello id> <chosen id> <whole buffer>
//	update:  'u' <id> (<key> <length> <bytes>)*
//	bye:     'b' <id>
type Synchronizer struct {
	id       uuid.UUID
	journals map[*Store]*StoreJournal
	byHash   map[string]*StoreJournal
	conns    []*SyncConnection
	nextID   uint16
}

// NewSynchronizer returns an empty synchronizer.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{
		id:       uuid.New(),
		journals: make(map[*Store]*StoreJournal),
		byHash:   make(map[string]*StoreJournal),
	}
}

// ID identifies this synchronizer instance, to tell nodes apart when
// debugging a topology.
func (s *Synchronizer) ID() uuid.UUID { return s.id }

// Map starts tracking a store: its writes are journalled through the hook
// chain from now on. The store's configuration must have hooks enabled.
func (s *Synchronizer) Map(store *Store) *StoreJournal {
	if j, ok := s.journals[store]; ok {
		return j
	}
	j := newStoreJournal(store)
	s.journals[store] = j
	s.byHash[store.Hash()] = j
	store.WrapHooks(func(base Hooks) Hooks {
		return journalHooks{Hooks: base, j: j}
	})
	return j
}

// MaxMessageSize returns an upper bound on any message this synchronizer
// emits, across all mapped stores. Size bounded channels (FIFOs) to it.
func (s *Synchronizer) MaxMessageSize() int {
	m := 0
	for _, j := range s.journals {
		m = max(m, j.MaxMessageSize())
	}
	return m
}

// Connect attaches a channel: the synchronizer becomes the top layer of
// the given chain.
func (s *Synchronizer) Connect(channel protocol.Layer) *SyncConnection {
	c := &SyncConnection{sync: s, byLocal: make(map[uint16]*syncMapping)}
	protocol.Wrap(c, channel)
	s.conns = append(s.conns, c)
	return c
}

// SyncFrom asks the peer on a connection for the authoritative copy of a
// mapped store: it sends hello and applies the welcome when it arrives.
func (s *Synchronizer) SyncFrom(store *Store, c *SyncConnection) {
	j, ok := s.journals[store]
	if !ok {
		j = s.Map(store)
	}

	m := c.mapping(j)
	m.source = true

	msg := make([]byte, 0, len(store.Hash())+4)
	msg = append(msg, syncHello)
	msg = append(msg, store.Hash()...)
	msg = append(msg, 0)
	msg = binary.BigEndian.AppendUint16(msg, m.localID)
	c.Encode(msg, true)
}

// Disconnect sends bye for everything synchronized over the connection and
// detaches it.
func (s *Synchronizer) Disconnect(c *SyncConnection) {
	for _, m := range c.byLocal {
		if m.synced {
			var msg [3]byte
			msg[0] = syncBye
			binary.BigEndian.PutUint16(msg[1:], m.remoteID)
			c.Encode(msg[:], true)
		}
	}
	c.byLocal = make(map[uint16]*syncMapping)
	for i := range s.conns {
		if s.conns[i] == c {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			break
		}
	}
}

// Process flushes pending changes of a store: per connection at most one
// update message, covering everything the peer has not seen.
func (s *Synchronizer) Process(store *Store) {
	j, ok := s.journals[store]
	if !ok {
		return
	}
	for _, c := range s.conns {
		c.process(j)
	}
}

// ProcessAll flushes pending changes of all mapped stores.
func (s *Synchronizer) ProcessAll() {
	for _, j := range s.journals {
		for _, c := range s.conns {
			c.process(j)
		}
	}
}

// SyncConnection binds a synchronizer to one channel. It is the top
// protocol layer of that channel's chain.
type SyncConnection struct {
	protocol.Base
	sync    *Synchronizer
	byLocal map[uint16]*syncMapping
	closed  bool
}

// syncMapping is the per-(store, connection) synchronization state.
type syncMapping struct {
	j        *StoreJournal
	localID  uint16 // id the peer uses to address this store here
	remoteID uint16 // id this side uses to address the store at the peer
	seq      uint64 // first journal seq the peer has not seen
	source   bool   // hello sent, welcome pending or applied
	synced   bool
}

func (c *SyncConnection) mapping(j *StoreJournal) *syncMapping {
	for _, m := range c.byLocal {
		if m.j == j {
			return m
		}
	}
	c.sync.nextID++
	m := &syncMapping{j: j, localID: c.sync.nextID}
	c.byLocal[m.localID] = m
	return m
}

// Close marks the channel dead, e.g. from an ARQ closed callback; every
// mapping drops back to disconnected.
func (c *SyncConnection) Close() {
	c.closed = true
	c.byLocal = make(map[uint16]*syncMapping)
}

// Closed reports whether the channel died.
func (c *SyncConnection) Closed() bool { return c.closed }

// Err returns [ErrClosed] once the channel died, nil while it is usable.
func (c *SyncConnection) Err() error {
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *SyncConnection) process(j *StoreJournal) {
	if c.closed {
		return
	}
	for _, m := range c.byLocal {
		if m.j != j || !m.synced {
			continue
		}
		if !j.hasChangesSince(m.seq) {
			continue
		}

		msg := make([]byte, 0, 3+64)
		msg = append(msg, syncUpdate)
		msg = binary.BigEndian.AppendUint16(msg, m.remoteID)
		msg = j.encodeUpdates(m.seq, msg)
		m.seq = j.bumpSeq()
		c.Encode(msg, true)
	}
}

// Decode implements [protocol.Layer]: it handles the synchronizer messages
// arriving on this channel.
func (c *SyncConnection) Decode(msg []byte) {
	if len(msg) == 0 || c.closed {
		return
	}
	switch msg[0] {
	case syncHello:
		c.decodeHello(msg[1:])
	case syncWelcome:
		c.decodeWelcome(msg[1:])
	case syncUpdate:
		c.decodeUpdate(msg[1:])
	case syncBye:
		c.decodeBye(msg[1:])
	default:
		debug.Log("sync", "%s: unknown message type %#02x", c.sync.id, msg[0])
	}
}

func (c *SyncConnection) decodeHello(msg []byte) {
	var hash string
	for i, b := range msg {
		if b == 0 {
			hash = string(msg[:i])
			msg = msg[i+1:]
			break
		}
	}
	if hash == "" || len(msg) != 2 {
		return
	}

	j, ok := c.sync.byHash[hash]
	if !ok {
		debug.Log("sync", "%s: hello for unknown store %s", c.sync.id, hash)
		return
	}

	m := c.mapping(j)
	m.remoteID = binary.BigEndian.Uint16(msg)
	m.synced = true
	m.seq = j.bumpSeq()

	out := make([]byte, 0, 5+len(j.store.buffer))
	out = append(out, syncWelcome)
	out = binary.BigEndian.AppendUint16(out, m.remoteID)
	out = binary.BigEndian.AppendUint16(out, m.localID)
	out = append(out, j.store.buffer...)
	c.Encode(out, true)
}

func (c *SyncConnection) decodeWelcome(msg []byte) {
	if len(msg) < 4 {
		return
	}
	m, ok := c.byLocal[binary.BigEndian.Uint16(msg)]
	if !ok || !m.source {
		return
	}
	m.remoteID = binary.BigEndian.Uint16(msg[2:])

	m.j.bumpSeq()
	if !m.j.applyBuffer(msg[4:]) {
		debug.Log("sync", "%s: welcome with wrong buffer size", c.sync.id)
		return
	}
	m.synced = true
	m.seq = m.j.bumpSeq()
}

func (c *SyncConnection) decodeUpdate(msg []byte) {
	if len(msg) < 2 {
		return
	}
	m, ok := c.byLocal[binary.BigEndian.Uint16(msg)]
	if !ok || !m.synced {
		return
	}

	m.j.bumpSeq()
	if !m.j.applyUpdates(msg[2:]) {
		debug.Log("sync", "%s: malformed update", c.sync.id)
	}
	m.seq = m.j.bumpSeq()
}

func (c *SyncConnection) decodeBye(msg []byte) {
	if len(msg) < 2 {
		// Bye without an id drops everything on this channel.
		c.byLocal = make(map[uint16]*syncMapping)
		return
	}
	delete(c.byLocal, binary.BigEndian.Uint16(msg))
}
