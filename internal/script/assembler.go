// Package script also assembles parsed script functions into the
// big-endian bytecode stream the script opcode table describes.
package script

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/aliensun/mapcompile/internal/symtab"
)

// AssetResolver looks up the numeric id of an asset path within one of
// the named categories (gfx, maps, mus, sfx, tileset). It is satisfied
// by the external asset-header resolver.
type AssetResolver interface {
	AssetIndex(category, path string) (uint32, error)
}

// EnumResolver resolves C enum names to their numeric values: script
// opcodes (OP_*) and actor types (AT_*), both sourced from companion C
// headers.
type EnumResolver interface {
	OpcodeValue(name string) (uint32, error)
	ActorTypeValue(name string) (uint32, error)
}

// ActorBlobPool deduplicates the scratch argument buffers spawn_actor
// commands assemble, handling the spawn-actor special case.
type ActorBlobPool struct {
	blobs []string
	index map[string]int
}

// NewActorBlobPool returns an empty pool.
func NewActorBlobPool() *ActorBlobPool {
	return &ActorBlobPool{index: make(map[string]int)}
}

// Insert returns the pool index of blob, appending it if this is the
// first time these exact bytes have been seen.
func (p *ActorBlobPool) Insert(blob []byte) int {
	key := string(blob)
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := len(p.blobs)
	p.blobs = append(p.blobs, key)
	p.index[key] = idx
	return idx
}

// Blobs returns the pooled argument buffers in insertion order.
func (p *ActorBlobPool) Blobs() [][]byte {
	out := make([][]byte, len(p.blobs))
	for i, s := range p.blobs {
		out[i] = []byte(s)
	}
	return out
}

// Assembler turns parsed script functions into bytecode, resolving
// identifiers against the symbol pool, string pool, asset resolver and
// enum resolver supplied at construction.
type Assembler struct {
	Assets  AssetResolver
	Enums   EnumResolver
	Symbols *symtab.SymbolPool
	Strings *symtab.StringPool
	Actors  *ActorBlobPool

	// ScriptIndex maps every map-level script name to its position in
	// the final script table (inline trigger bodies have no name), for `script` and
	// `activescript` arguments.
	ScriptIndex map[string]int

	// ActorCount is the number of live actors and triggers already
	// enumerated in the map; spawn_actor pool indices are
	// offset by this so they land after the main actor table. It must be
	// fixed before Assemble is called on any script.
	ActorCount int
}

// Assemble compiles fn into its bytecode stream.
func (a *Assembler) Assemble(fn *Func) ([]byte, error) {
	var out bytes.Buffer

	if fn.Singleton {
		op, err := a.Enums.OpcodeValue(OpSingleton)
		if err != nil {
			return nil, err
		}
		writeU32(&out, op)
	}

	commands := fn.Commands
	if len(commands) == 0 || !isTerminal(commands[len(commands)-1].Name) {
		commands = append(commands, Command{Pos: fn.Pos, Name: "return"})
	}

	for _, cmd := range commands {
		def, ok := Commands[cmd.Name]
		if !ok {
			return nil, a.errf(fn, cmd.Pos, "unknown script command %q", cmd.Name)
		}
		opID, err := a.Enums.OpcodeValue(def.OpName)
		if err != nil {
			return nil, a.errf(fn, cmd.Pos, "unknown script opcode %s", def.OpName)
		}
		writeU32(&out, opID)

		dst := &out
		var scratch bytes.Buffer
		if cmd.Name == "spawn_actor" {
			dst = &scratch
		}

		if err := a.emitArgs(fn, cmd, def.Args, dst); err != nil {
			return nil, err
		}

		if cmd.Name == "spawn_actor" {
			writeU32(&scratch, 0)
			idx := a.Actors.Insert(scratch.Bytes())
			writeU32(&out, uint32(a.ActorCount+idx))
		}
	}
	return out.Bytes(), nil
}

func isTerminal(name string) bool {
	return name == "jump" || name == "exit" || name == "return"
}

func (a *Assembler) errf(fn *Func, pos Pos, format string, args ...any) error {
	return fmt.Errorf("%s : line %d C %d : %s", fn.Source, pos.Line, pos.Col, fmt.Sprintf(format, args...))
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeI32(buf *bytes.Buffer, v int32) {
	writeU32(buf, uint32(v))
}

func writeF32(buf *bytes.Buffer, v float32) {
	writeU32(buf, math.Float32bits(v))
}

func (a *Assembler) emitArgs(fn *Func, cmd Command, defs []ArgDef, buf *bytes.Buffer) error {
	lookup := make(map[string]Arg, len(cmd.Args))
	positional := make([]Arg, 0, len(cmd.Args))
	for _, arg := range cmd.Args {
		if arg.Name == "" {
			positional = append(positional, arg)
		} else {
			lookup[arg.Name] = arg
		}
	}

	posIdx := 0
	for _, def := range defs {
		var value Value
		have := false

		if def.Name == "" {
			if posIdx < len(positional) {
				value = positional[posIdx].Value
				have = true
			}
			posIdx++
		} else if arg, ok := lookup[def.Name]; ok {
			value = arg.Value
			have = true
		}

		if !have {
			if !def.Optional {
				if def.Name == "" {
					return a.errf(fn, cmd.Pos, "missing required argument to %s", cmd.Name)
				}
				return a.errf(fn, cmd.Pos, "missing required keyword argument %s", def.Name)
			}
			value = defaultValue(def.Type, cmd.Pos)
		}

		if err := a.emitArg(fn, cmd, def, value, buf); err != nil {
			return err
		}
	}
	return nil
}

func defaultValue(typ argType, pos Pos) Value {
	switch typ {
	case argInt, argUint, argUshort, argFloat, argColor, argAngle:
		return Value{Pos: pos, Kind: ValInt, Int: 0}
	default:
		return Value{Pos: pos, Kind: ValNull}
	}
}

func (a *Assembler) typeErr(fn *Func, value Value, want string) error {
	return a.errf(fn, value.Pos, "expected %s, got %s", want, value.Kind)
}

func (a *Assembler) emitArg(fn *Func, cmd Command, def ArgDef, value Value, buf *bytes.Buffer) error {
	switch def.Type {
	case argScript:
		if value.Kind != ValIdent {
			return a.typeErr(fn, value, "script identifier")
		}
		idx, ok := a.ScriptIndex[value.Str]
		if !ok {
			return a.errf(fn, value.Pos, "unknown script `%s`", value.Str)
		}
		writeU32(buf, uint32(idx))

	case argActiveScript:
		if value.IsSpecial("child") {
			writeU32(buf, 0xFFFFFFFF)
			return nil
		}
		if value.Kind != ValIdent {
			return a.typeErr(fn, value, "script identifier or @child")
		}
		idx, ok := a.ScriptIndex[value.Str]
		if !ok {
			return a.errf(fn, value.Pos, "unknown script `%s`", value.Str)
		}
		writeU32(buf, uint32(idx))

	case argInt:
		n, err := asInt(value)
		if err != nil {
			return a.typeErr(fn, value, "integer")
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return a.errf(fn, value.Pos, "int32 value out of range")
		}
		writeI32(buf, int32(n))

	case argUint:
		n, err := asInt(value)
		if err != nil {
			return a.typeErr(fn, value, "unsigned integer")
		}
		if n > math.MaxUint32 || n < 0 {
			return a.errf(fn, value.Pos, "uint32 value out of range")
		}
		writeU32(buf, uint32(n))

	case argUshort:
		n, err := asInt(value)
		if err != nil {
			return a.typeErr(fn, value, "unsigned integer")
		}
		if n > math.MaxUint16 || n < 0 {
			return a.errf(fn, value.Pos, "uint16 value out of range")
		}
		writeU16(buf, uint16(n))

	case argString:
		if value.Kind != ValString {
			return a.typeErr(fn, value, "string")
		}
		writeU32(buf, uint32(a.Strings.Insert(value.Str)))

	case argColor:
		switch value.Kind {
		case ValColor:
			writeU32(buf, value.Color.Packed())
		case ValInt:
			if value.Int > math.MaxUint32 || value.Int < 0 {
				return a.errf(fn, value.Pos, "uint32 value out of range")
			}
			writeU32(buf, uint32(value.Int))
		default:
			return a.typeErr(fn, value, "color literal or unsigned integer")
		}

	case argActor:
		switch {
		case value.Kind == ValNull:
			writeU32(buf, 0)
		case value.IsSpecial("caller"):
			writeU32(buf, 0x80000001)
		case value.Kind == ValIdent:
			id, err := a.Symbols.Get(symtab.KindActor, value.Str)
			if err != nil {
				return a.errf(fn, value.Pos, "%s", err)
			}
			writeU32(buf, uint32(id))
		default:
			want := "actor identifier or @caller"
			if def.Optional {
				want += " or null"
			}
			return a.typeErr(fn, value, want)
		}

	case argTarget:
		switch {
		case value.Kind == ValNull:
			writeU32(buf, 0)
		case value.IsSpecial("camera"):
			writeU32(buf, 0x80000000)
		case value.IsSpecial("caller"):
			writeU32(buf, 0x80000001)
		case value.Kind == ValIdent:
			if id, ok := a.Symbols.TryGet(symtab.KindActor, value.Str); ok {
				writeU32(buf, uint32(id))
			} else if id, ok := a.Symbols.TryGet(symtab.KindWaypoint, value.Str); ok {
				writeI32(buf, -(int32(id) + 1))
			} else {
				return a.errf(fn, value.Pos, "no such target `%s`", value.Str)
			}
		default:
			return a.typeErr(fn, value, "identifier or @caller or @camera or null")
		}

	case argFloat:
		f, err := asFloat(value)
		if err != nil {
			return a.typeErr(fn, value, "float")
		}
		writeF32(buf, float32(f))

	case argMap:
		if value.Kind != ValString {
			return a.typeErr(fn, value, "string")
		}
		id, err := a.Assets.AssetIndex("maps", value.Str)
		if err != nil {
			return a.errf(fn, value.Pos, "%s", err)
		}
		writeU32(buf, id)

	case argMusic:
		if value.Kind == ValNull {
			writeU32(buf, 0)
			return nil
		}
		if value.Kind != ValString {
			return a.typeErr(fn, value, "string")
		}
		id, err := a.Assets.AssetIndex("mus", value.Str)
		if err != nil {
			return a.errf(fn, value.Pos, "%s", err)
		}
		writeU32(buf, id)

	case argSfx:
		if value.Kind == ValNull {
			writeU32(buf, 0)
			return nil
		}
		if value.Kind != ValString {
			return a.typeErr(fn, value, "string")
		}
		id, err := a.Assets.AssetIndex("sfx", value.Str)
		if err != nil {
			return a.errf(fn, value.Pos, "%s", err)
		}
		writeU32(buf, id)

	case argActorType:
		if value.Kind != ValIdent {
			return a.typeErr(fn, value, "actor type identifier")
		}
		id, err := a.Enums.ActorTypeValue(value.Str)
		if err != nil {
			return a.errf(fn, value.Pos, "unknown actor type `%s`", value.Str)
		}
		writeU32(buf, id)

	case argNewTarget:
		if value.Kind == ValNull {
			writeU16(buf, 0)
			return nil
		}
		if value.Kind != ValIdent {
			return a.typeErr(fn, value, "identifier or null")
		}
		id, err := a.Symbols.Insert(value.Str, symtab.KindActor)
		if err != nil {
			return a.errf(fn, value.Pos, "%s", err)
		}
		writeU16(buf, uint16(id))

	case argAngle:
		f, err := asFloat(value)
		if err != nil {
			return a.typeErr(fn, value, "number")
		}
		writeU16(buf, Angle16(f))

	case argFx:
		if value.Kind != ValString {
			return a.typeErr(fn, value, "string")
		}
		gfx, err := a.Assets.AssetIndex("gfx", value.Str)
		if err != nil {
			return a.errf(fn, value.Pos, "%s", err)
		}
		tileset, err := a.Assets.AssetIndex("tileset", value.Str)
		if err != nil {
			return a.errf(fn, value.Pos, "%s", err)
		}
		writeU16(buf, uint16(gfx))
		writeU16(buf, uint16(tileset))

	default:
		return fmt.Errorf("unknown type in command definition: %s", def.Type)
	}
	return nil
}

func asInt(v Value) (int64, error) {
	if v.Kind != ValInt {
		return 0, fmt.Errorf("not an integer")
	}
	return v.Int, nil
}

func asFloat(v Value) (float64, error) {
	switch v.Kind {
	case ValFloat:
		return v.Float, nil
	case ValInt:
		return float64(v.Int), nil
	default:
		return 0, fmt.Errorf("not a number")
	}
}

// Angle16 quantizes a degree value to the u16 fixed-point angle
// encoding: min(round((v mod 360)/360 * 65536), 65535).
func Angle16(degrees float64) uint16 {
	m := math.Mod(degrees, 360)
	if m < 0 {
		m += 360
	}
	scaled := math.Round(m / 360 * 65536)
	if scaled > 65535 {
		scaled = 65535
	}
	return uint16(scaled)
}
