// Package headerindex reads the companion C artifacts that the asset
// header generator and actor-type/script-opcode header generator
// produce, and adapts them into the compiler's AssetResolver and
// EnumResolver contracts.
//
// Both formats are intentionally narrow: enum headers are a single
// `typedef enum { ... } <typename>;` block with implicit, sequential
// enumerator values (explicit initializers are rejected, matching the
// generator's own output); asset lists are a single C array literal
// `const char * const <category>_paths[...] = { ... };` holding
// `"rom:/path/to/asset.ext"` string literals in declaration order.
package headerindex

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"
)

// EnumTable resolves actor-type and script-opcode names to their
// numeric enum values, loaded from two separate C headers.
type EnumTable struct {
	actorTypes map[string]uint32
	opcodes    map[string]uint32
}

// LoadEnumTable parses the actor-types header (`actor_type_t`) and the
// script-ops header (`script_op_t`).
func LoadEnumTable(actorTypesPath, scriptOpsPath string) (*EnumTable, error) {
	actorTypes, err := parseEnum(actorTypesPath, "actor_type_t")
	if err != nil {
		return nil, err
	}
	opcodes, err := parseEnum(scriptOpsPath, "script_op_t")
	if err != nil {
		return nil, err
	}
	return &EnumTable{actorTypes: actorTypes, opcodes: opcodes}, nil
}

// ActorTypeValue satisfies script.EnumResolver.
func (e *EnumTable) ActorTypeValue(name string) (uint32, error) {
	v, ok := e.actorTypes[name]
	if !ok {
		return 0, fmt.Errorf("unknown actor type %q", name)
	}
	return v, nil
}

// OpcodeValue satisfies script.EnumResolver.
func (e *EnumTable) OpcodeValue(name string) (uint32, error) {
	v, ok := e.opcodes[name]
	if !ok {
		return 0, fmt.Errorf("unknown script opcode %q", name)
	}
	return v, nil
}

var typedefEnumRe = regexp.MustCompile(`typedef\s+enum\s*\{`)
var enumeratorRe = regexp.MustCompile(`^([_a-zA-Z][_a-zA-Z0-9]*)\s*(?:=\s*(.+?))?,?\s*$`)

// parseEnum scans path for `typedef enum { ... } typename;` and returns
// the enumerator name -> implicit sequential value map. Only the first
// matching block is used, mirroring the generator's one-enum-per-header
// convention.
func parseEnum(headerPath, typename string) (map[string]uint32, error) {
	f, err := os.Open(headerPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	values := make(map[string]uint32)
	inBlock := false
	var body strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if !inBlock {
			if typedefEnumRe.MatchString(line) {
				inBlock = true
			}
			continue
		}
		if idx := strings.Index(line, "}"); idx >= 0 {
			body.WriteString(line[:idx])
			rest := strings.TrimSpace(line[idx+1:])
			if !strings.HasPrefix(strings.TrimSuffix(rest, ";"), typename) {
				body.Reset()
				inBlock = false
				continue
			}
			break
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if body.Len() == 0 {
		return nil, fmt.Errorf("%s: no `%s` enum typedef found", headerPath, typename)
	}

	counter := uint32(0)
	for _, field := range strings.Split(body.String(), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		m := enumeratorRe.FindStringSubmatch(field)
		if m == nil {
			return nil, fmt.Errorf("%s: unparsable enumerator %q", headerPath, field)
		}
		if m[2] != "" {
			return nil, fmt.Errorf("%s: explicit enum values not supported: %s", headerPath, field)
		}
		values[m[1]] = counter
		counter++
	}
	return values, nil
}

// AssetIndex resolves an asset's on-disk path to its numeric index
// within its category's path table.
type AssetIndex struct {
	dir    string
	groups map[string][]string // category -> ordered asset stems, index 0 reserved
}

var arrayDeclRe = regexp.MustCompile(`const\s+char\s*\*\s*const\s+([_a-zA-Z][_a-zA-Z0-9]*)_paths\s*\[`)
var stringLitRe = regexp.MustCompile(`"([^"]*)"`)

// LoadAssetIndex parses an asset list file (as produced without the
// header-generator's `-H` flag): one or more
// `const char * const <category>_paths[N] = { ... };` array literals,
// each entry a `"rom:/..."` path relative to assetDir.
func LoadAssetIndex(listPath, assetDir string) (*AssetIndex, error) {
	raw, err := os.ReadFile(listPath)
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]string)
	lines := strings.Split(string(raw), "\n")
	for i := 0; i < len(lines); i++ {
		m := arrayDeclRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		category := m[1]
		var stems []string
		for i++; i < len(lines); i++ {
			if strings.Contains(lines[i], "};") {
				break
			}
			entry := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(lines[i]), ","))
			if entry == "" {
				continue
			}
			// Entry 0 is always the generator's `(void *) 0` NONE
			// placeholder; only quoted entries name a real asset.
			if sm := stringLitRe.FindStringSubmatch(entry); sm != nil {
				stems = append(stems, assetStem(sm[1]))
			} else {
				stems = append(stems, "")
			}
		}
		groups[category] = stems
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%s: no asset path arrays found", listPath)
	}
	return &AssetIndex{dir: assetDir, groups: groups}, nil
}

// assetStem reduces a path to the bare filename stem AssetIndex keys
// on: the generator's `rom:/` prefix stripped, directory components
// dropped (the category already disambiguates maps/ from mus/ etc),
// and the extension stripped.
func assetStem(lit string) string {
	lit = strings.TrimPrefix(lit, "rom:/")
	base := path.Base(lit)
	return strings.TrimSuffix(base, path.Ext(base))
}

// AssetIndex satisfies script.AssetResolver: category is one of
// "maps", "mus", "sfx", "gfx", "tileset"; assetPath is the bare name a
// script author writes, with or without extension.
func (a *AssetIndex) AssetIndex(category, assetPath string) (uint32, error) {
	stems, ok := a.groups[category]
	if !ok {
		return 0, fmt.Errorf("unknown asset category %q", category)
	}
	key := assetStem(assetPath)
	for i, s := range stems {
		if s == key {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("unknown asset %q in category %q", assetPath, category)
}
