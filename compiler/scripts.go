package compiler

import (
	"fmt"

	"github.com/aliensun/mapcompile/internal/mapfile"
	"github.com/aliensun/mapcompile/internal/script"
)

// ParseMapScripts parses the map's `scripts` property, if present, into
// its list of script functions. A map without a `scripts` property (or
// with an empty one) compiles with no map-level scripts.
func ParseMapScripts(m *TiledMap) ([]*script.Func, error) {
	src, _ := m.Properties["scripts"].(string)
	if src == "" {
		return nil, nil
	}
	return script.ParseFile(src, "map")
}

// CompiledScripts is the linked, ordered set of script functions the
// compositor will place in the output script table: map-level scripts
// first in authored order, followed by one synthetic entry per trigger
// whose inline body did not collapse to a plain reference.
type CompiledScripts struct {
	Funcs []*script.Func

	// Index maps a map-level script's authored name to its table
	// position, for `script`/`activescript` arguments.
	Index map[string]int

	// TriggerScript maps every trigger's object id to the table
	// position of the script it jumps into on fire, whether that
	// script is an authored reference or a synthesized inline entry.
	TriggerScript map[uint32]int

	// StartupIndex is the table position of the map's #[startup]
	// script, or mapfile.NoStartupScript if it has none.
	StartupIndex uint32
}

// LinkScripts validates attributes and names, orders every script the
// compositor needs to assemble, and resolves each trigger's reference
// against the known script set. mapScripts is the map's own script
// list; actors is the full layer-scan actor list, only its triggers
// matter here.
func LinkScripts(mapScripts []*script.Func, actors []actorScan) (*CompiledScripts, error) {
	cs := &CompiledScripts{
		Index:         make(map[string]int),
		TriggerScript: make(map[uint32]int),
		StartupIndex:  mapfile.NoStartupScript,
	}

	startupSeen := false
	for _, fn := range mapScripts {
		singleton := false
		startup := false
		for _, attr := range fn.Attributes {
			switch attr {
			case "startup":
				startup = true
			case "singleton":
				singleton = true
			default:
				return nil, fmt.Errorf("%w: %q", ErrUnknownScriptAttr, attr)
			}
		}
		if startup && startupSeen {
			return nil, ErrMultipleStartup
		}
		if _, dup := cs.Index[fn.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateScriptName, fn.Name)
		}

		fn.Singleton = singleton
		idx := len(cs.Funcs)
		cs.Index[fn.Name] = idx
		cs.Funcs = append(cs.Funcs, fn)
		if startup {
			startupSeen = true
			cs.StartupIndex = uint32(idx)
		}
	}

	for _, a := range actors {
		if !a.IsTrigger || a.Inline == nil {
			continue
		}
		fn := a.Inline
		singleton := false
		for _, attr := range fn.Attributes {
			if attr != "singleton" {
				return nil, fmt.Errorf("%w: %q", ErrUnknownScriptAttr, attr)
			}
			singleton = true
		}
		fn.Singleton = singleton
		idx := len(cs.Funcs)
		cs.Funcs = append(cs.Funcs, fn)
		cs.TriggerScript[a.ObjectID] = idx
	}

	for _, a := range actors {
		if !a.IsTrigger || a.Inline != nil {
			continue
		}
		idx, ok := cs.Index[a.ScriptRef]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScript, a.ScriptRef)
		}
		cs.TriggerScript[a.ObjectID] = idx
	}

	return cs, nil
}

// AssembleAll compiles every linked script into its bytecode, in table
// order. asm.ActorCount must already be set; asm.ScriptIndex is set
// here from cs.Index. The caller owns asm's lifetime since it also
// carries the shared symbol, string and actor-blob pools.
func AssembleAll(cs *CompiledScripts, asm *script.Assembler) ([][]byte, error) {
	asm.ScriptIndex = cs.Index
	out := make([][]byte, len(cs.Funcs))
	for i, fn := range cs.Funcs {
		b, err := asm.Assemble(fn)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
