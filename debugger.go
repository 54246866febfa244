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
	"bytes"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"

	"github.com/DEMCON/stored-go/internal/xunsafe"
	"github.com/DEMCON/stored-go/protocol"
)

// Debugger interprets Embedded Debugger requests against a set of mapped
// stores. It sits at the top of a protocol stack: requests arrive through
// Decode, the response leaves through the layer below.
//
// Every request produces exactly one response; a request that cannot
// produce a valid result answers with a single '?'.
type Debugger struct {
	protocol.Base
	cfg Config

	identification string
	versions       string

	stores []mappedStore

	aliases    map[byte]string
	macros     map[byte]string
	macroBytes int
	macroDepth int

	streams map[byte]*Stream

	trace struct {
		enabled  bool
		macro    byte
		stream   byte
		decimate int
		n        int
	}

	extCaps    string
	extHandler func(req, resp []byte) ([]byte, bool)
}

type mappedStore struct {
	prefix string
	store  *Store
}

// NewDebugger returns a debugger that identifies itself with the given
// string on the 'i' command.
func NewDebugger(identification string, opts ...Option) *Debugger {
	cfg := DefaultConfig()
	for _, o := range opts {
		o.apply(&cfg)
	}
	return &Debugger{
		cfg:            cfg,
		identification: identification,
		aliases:        make(map[byte]string),
		macros:         make(map[byte]string),
		streams:        make(map[byte]*Stream),
	}
}

// SetVersions appends application versions to the 'v' response.
func (d *Debugger) SetVersions(v string) { d.versions = v }

// Map registers a store under its own name.
func (d *Debugger) Map(s *Store) { d.MapPrefix(s.Name(), s) }

// MapPrefix registers a store under an explicit path prefix. Cells are
// addressed as prefix + cell name; the longest (or unambiguously
// abbreviated) matching prefix wins.
func (d *Debugger) MapPrefix(prefix string, s *Store) {
	for i := range d.stores {
		if d.stores[i].prefix == prefix {
			d.stores[i].store = s
			return
		}
	}
	d.stores = append(d.stores, mappedStore{prefix: prefix, store: s})
}

// Unmap removes a mapped store by prefix.
func (d *Debugger) Unmap(prefix string) {
	for i := range d.stores {
		if d.stores[i].prefix == prefix {
			d.stores = append(d.stores[:i], d.stores[i+1:]...)
			return
		}
	}
}

// Find resolves a full path to a cell in one of the mapped stores.
func (d *Debugger) Find(name string) Variant {
	// Longest exact prefix first.
	best := -1
	for i := range d.stores {
		p := d.stores[i].prefix
		if strings.HasPrefix(name, p) && (best < 0 || len(p) > len(d.stores[best].prefix)) {
			rest := name[len(p):]
			if rest == "" || rest[0] == '/' {
				best = i
			}
		}
	}
	if best >= 0 {
		if v := d.stores[best].store.Find(name[len(d.stores[best].prefix):]); v.Valid() {
			return v
		}
	}

	// Abbreviated store prefix: the first path segment must match exactly
	// one mapped prefix.
	if seg := firstSegment(name); seg != name {
		match := -1
		for i := range d.stores {
			if strings.HasPrefix(d.stores[i].prefix, seg) {
				if match >= 0 {
					match = -1
					break
				}
				match = i
			}
		}
		if match >= 0 {
			if v := d.stores[match].store.Find(name[len(seg):]); v.Valid() {
				return v
			}
		}
	}

	// A single mapped store may be addressed without its prefix.
	if len(d.stores) == 1 {
		return d.stores[0].store.Find(name)
	}
	return Variant{}
}

func firstSegment(name string) string {
	if len(name) < 1 || name[0] != '/' {
		return name
	}
	if i := strings.IndexByte(name[1:], '/'); i >= 0 {
		return name[:i+1]
	}
	return name
}

// Decode implements [protocol.Layer]: one request frame in, one response
// frame out.
func (d *Debugger) Decode(req []byte) {
	resp := d.process(req, nil)
	d.Encode(resp, true)
}

// Process answers a single request; the wire-facing entry point is Decode.
func (d *Debugger) Process(req []byte) []byte {
	return d.process(req, nil)
}

func (d *Debugger) process(req, resp []byte) []byte {
	if len(req) == 0 {
		return append(resp, '?')
	}

	switch req[0] {
	case '?':
		return append(resp, d.Capabilities()...)
	case 'i':
		if !d.cfg.DebuggerIdentification || d.identification == "" {
			break
		}
		return append(resp, d.identification...)
	case 'v':
		resp = append(resp, strconv.Itoa(d.cfg.DebuggerVersion)...)
		if d.versions != "" {
			resp = append(resp, ' ')
			resp = append(resp, d.versions...)
		}
		return resp
	case 'r':
		if !d.cfg.DebuggerRead {
			break
		}
		return d.cmdRead(req[1:], resp)
	case 'w':
		if !d.cfg.DebuggerWrite {
			break
		}
		return d.cmdWrite(req[1:], resp)
	case 'l':
		if !d.cfg.DebuggerList {
			break
		}
		return d.cmdList(resp)
	case 'a':
		return d.cmdAlias(req[1:], resp)
	case 'm':
		return d.cmdMacroDef(req[1:], resp)
	case 'e':
		if !d.cfg.DebuggerEcho {
			break
		}
		return append(resp, req[1:]...)
	case 'R':
		if !d.cfg.DebuggerReadMem {
			break
		}
		return d.cmdReadMem(req[1:], resp)
	case 'W':
		if !d.cfg.DebuggerWriteMem {
			break
		}
		return d.cmdWriteMem(req[1:], resp)
	case 's':
		return d.cmdStream(req[1:], resp)
	case 't':
		return d.cmdTrace(req[1:], resp)
	default:
		if def, ok := d.macros[req[0]]; ok && len(req) == 1 {
			return d.runMacro(def, resp)
		}
		if d.extHandler != nil && strings.IndexByte(d.extCaps, req[0]) >= 0 {
			if out, ok := d.extHandler(req, resp); ok {
				return out
			}
		}
	}
	return append(resp, '?')
}

// Capabilities returns the command bytes this debugger answers to.
func (d *Debugger) Capabilities() string {
	var caps strings.Builder
	caps.WriteByte('?')
	if d.cfg.DebuggerRead {
		caps.WriteByte('r')
	}
	if d.cfg.DebuggerWrite {
		caps.WriteByte('w')
	}
	if d.cfg.DebuggerEcho {
		caps.WriteByte('e')
	}
	if d.cfg.DebuggerList {
		caps.WriteByte('l')
	}
	if d.cfg.DebuggerAlias > 0 {
		caps.WriteByte('a')
	}
	if d.cfg.DebuggerMacro > 0 {
		caps.WriteByte('m')
	}
	if d.cfg.DebuggerIdentification {
		caps.WriteByte('i')
	}
	caps.WriteByte('v')
	if d.cfg.DebuggerReadMem {
		caps.WriteByte('R')
	}
	if d.cfg.DebuggerWriteMem {
		caps.WriteByte('W')
	}
	if d.cfg.DebuggerStreams > 0 {
		caps.WriteByte('s')
		caps.WriteByte('t')
	}
	caps.WriteString(d.extCaps)
	return caps.String()
}

// Extend registers additional command bytes, which are advertised through
// the capabilities response and dispatched to handler.
func (d *Debugger) Extend(cmds string, handler func(req, resp []byte) ([]byte, bool)) {
	d.extCaps = cmds
	d.extHandler = handler
}

// resolve turns a request object reference, a path or a single alias
// character, into a variant.
func (d *Debugger) resolve(ref []byte) Variant {
	if len(ref) == 0 {
		return Variant{}
	}
	if ref[0] != '/' {
		if len(ref) != 1 {
			return Variant{}
		}
		name, ok := d.aliases[ref[0]]
		if !ok {
			return Variant{}
		}
		return d.Find(name)
	}
	return d.Find(string(ref))
}

func (d *Debugger) cmdRead(req, resp []byte) []byte {
	v := d.resolve(req)
	if !v.Valid() {
		return append(resp, '?')
	}

	buf := make([]byte, v.Len())
	n := v.Get(buf)
	if n < 0 {
		return append(resp, '?')
	}
	buf = buf[:n]

	if v.Type().IsNumeric() && hostLittle {
		slices.Reverse(buf)
	}
	if v.Type().Data() == String {
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			buf = buf[:i]
		}
	}
	return hex.AppendEncode(resp, buf)
}

func (d *Debugger) cmdWrite(req, resp []byte) []byte {
	hexEnd := 0
	for hexEnd < len(req) && isHexDigit(req[hexEnd]) {
		hexEnd++
	}
	if hexEnd == len(req) && hexEnd > 0 {
		// No path follows; the last byte must have been an alias.
		hexEnd--
	}
	if hexEnd == 0 {
		return append(resp, '?')
	}

	value, err := decodeHex(req[:hexEnd])
	if err != nil {
		return append(resp, '?')
	}

	v := d.resolve(req[hexEnd:])
	if !v.Valid() {
		return append(resp, '?')
	}

	if v.Type().IsFixed() {
		size := v.Type().Size()
		if len(value) > size {
			return append(resp, '?')
		}
		// The wire is big-endian; extend on the left.
		full := make([]byte, size)
		copy(full[size-len(value):], value)
		if hostLittle && v.Type().IsNumeric() {
			slices.Reverse(full)
		}
		value = full
	}

	if v.Set(value) == 0 && len(value) > 0 {
		return append(resp, '?')
	}
	return append(resp, '!')
}

func (d *Debugger) cmdList(resp []byte) []byte {
	for i := range d.stores {
		prefix := d.stores[i].prefix
		d.stores[i].store.List(func(name string, v Variant) {
			resp = hex.AppendEncode(resp, []byte{byte(v.Type())})
			resp = strconv.AppendUint(resp, uint64(v.Len()), 16)
			resp = append(resp, prefix...)
			resp = append(resp, name...)
			resp = append(resp, '\n')
		})
	}
	if len(resp) == 0 {
		return append(resp, '?')
	}
	return resp
}

func (d *Debugger) cmdAlias(req, resp []byte) []byte {
	if len(req) == 0 || d.cfg.DebuggerAlias <= 0 {
		return append(resp, '?')
	}
	a := req[0]
	if a < 0x20 || a > 0x7e || a == '/' {
		return append(resp, '?')
	}

	if len(req) == 1 {
		delete(d.aliases, a)
		return append(resp, '!')
	}

	name := string(req[1:])
	if !d.Find(name).Valid() {
		return append(resp, '?')
	}
	if _, ok := d.aliases[a]; !ok && len(d.aliases) >= d.cfg.DebuggerAlias {
		return append(resp, '?')
	}
	d.aliases[a] = name
	return append(resp, '!')
}

func (d *Debugger) cmdMacroDef(req, resp []byte) []byte {
	if len(req) == 0 || d.cfg.DebuggerMacro <= 0 {
		return append(resp, '?')
	}
	id := req[0]

	if old, ok := d.macros[id]; ok {
		d.macroBytes -= len(old)
		delete(d.macros, id)
	}
	if len(req) == 1 {
		return append(resp, '!')
	}

	def := string(req[1:])
	if d.macroBytes+len(def) > d.cfg.DebuggerMacro {
		return append(resp, '?')
	}
	d.macros[id] = def
	d.macroBytes += len(def)
	return append(resp, '!')
}

// runMacro executes a macro definition: a separator byte followed by
// separator-delimited commands. Every sub-response is emitted, failures
// included, separated like the definition.
func (d *Debugger) runMacro(def string, resp []byte) []byte {
	if d.macroDepth >= 8 || len(def) == 0 {
		return append(resp, '?')
	}
	d.macroDepth++
	defer func() { d.macroDepth-- }()

	sep := def[0]
	cmds := strings.Split(def[1:], string(sep))
	for i, cmd := range cmds {
		if i > 0 {
			resp = append(resp, sep)
		}
		resp = d.process([]byte(cmd), resp)
	}
	return resp
}

func (d *Debugger) cmdReadMem(req, resp []byte) []byte {
	addr, rest, ok := parseAddr(req)
	if !ok || len(rest) == 0 || rest[0] != ' ' {
		return append(resp, '?')
	}
	n, err := strconv.Atoi(string(rest[1:]))
	if err != nil || n <= 0 {
		return append(resp, '?')
	}
	return hex.AppendEncode(resp, xunsafe.Addr(addr).Load(n))
}

func (d *Debugger) cmdWriteMem(req, resp []byte) []byte {
	addr, rest, ok := parseAddr(req)
	if !ok || len(rest) < 2 || rest[0] != ' ' {
		return append(resp, '?')
	}
	data, err := decodeHex(rest[1:])
	if err != nil {
		return append(resp, '?')
	}
	xunsafe.Addr(addr).Store(data)
	return append(resp, '!')
}

func parseAddr(req []byte) (uintptr, []byte, bool) {
	end := 0
	for end < len(req) && isHexDigit(req[end]) {
		end++
	}
	if end == 0 || end > 16 {
		return 0, nil, false
	}
	addr, err := strconv.ParseUint(string(req[:end]), 16, 64)
	if err != nil {
		return 0, nil, false
	}
	return uintptr(addr), req[end:], true
}

func (d *Debugger) cmdStream(req, resp []byte) []byte {
	if d.cfg.DebuggerStreams <= 0 {
		return append(resp, '?')
	}
	if len(req) == 0 {
		if len(d.streams) == 0 {
			return append(resp, '?')
		}
		for c := range d.streams {
			resp = append(resp, c)
		}
		slices.Sort(resp[len(resp)-len(d.streams):])
		return resp
	}

	s, ok := d.streams[req[0]]
	if !ok || s.Len() == 0 {
		return append(resp, '?')
	}
	return s.drain(resp)
}

func (d *Debugger) cmdTrace(req, resp []byte) []byte {
	if d.cfg.DebuggerStreams <= 0 {
		return append(resp, '?')
	}
	if len(req) == 0 {
		d.trace.enabled = false
		return append(resp, '!')
	}
	if len(req) < 2 {
		return append(resp, '?')
	}

	macro, stream := req[0], req[1]
	if _, ok := d.macros[macro]; !ok {
		return append(resp, '?')
	}
	if d.Stream(stream) == nil {
		return append(resp, '?')
	}

	decimate := 1
	if len(req) > 2 {
		n, err := strconv.ParseUint(string(req[2:]), 16, 31)
		if err != nil || n == 0 {
			return append(resp, '?')
		}
		decimate = int(n)
	}

	d.trace.enabled = true
	d.trace.macro = macro
	d.trace.stream = stream
	d.trace.decimate = decimate
	d.trace.n = 0
	return append(resp, '!')
}

// Trace takes one trace sample: every decimate-th call executes the trace
// macro and appends its output to the trace stream. Call it from the
// application's sample point.
func (d *Debugger) Trace() {
	if !d.trace.enabled {
		return
	}
	d.trace.n++
	if d.trace.n < d.trace.decimate {
		return
	}
	d.trace.n = 0

	def, ok := d.macros[d.trace.macro]
	if !ok {
		d.trace.enabled = false
		return
	}
	out := d.runMacro(def, nil)
	s := d.Stream(d.trace.stream)
	_, _ = s.Write(out)
	_, _ = s.Write([]byte{'\n'})
}

// Stream returns the named stream buffer, creating it while the configured
// number of streams is not yet exhausted. Returns nil otherwise.
func (d *Debugger) Stream(c byte) *Stream {
	if s, ok := d.streams[c]; ok {
		return s
	}
	if len(d.streams) >= d.cfg.DebuggerStreams {
		return nil
	}
	s := newStream(d.cfg.DebuggerStreamBuffer)
	d.streams[c] = s
	return s
}

func isHexDigit(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

// decodeHex decodes possibly odd-length hex, extending a leading nibble.
func decodeHex(in []byte) ([]byte, error) {
	if len(in)%2 != 0 {
		in = append([]byte{'0'}, in...)
	}
	return hex.AppendDecode(nil, in)
}
