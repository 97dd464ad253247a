package script

// argType names one of an opcode's operand encodings.
type argType string

const (
	argInt          argType = "int"
	argUint         argType = "uint"
	argUshort       argType = "ushort"
	argFloat        argType = "float"
	argString       argType = "string"
	argColor        argType = "color"
	argAngle        argType = "angle"
	argScript       argType = "script"
	argActiveScript argType = "activescript"
	argActor        argType = "actor"
	argTarget       argType = "target"
	argNewTarget    argType = "newtarget"
	argMap          argType = "map"
	argMusic        argType = "music"
	argSfx          argType = "sfx"
	argFx           argType = "fx"
	argActorType    argType = "actortype"
)

// ArgDef is one entry in an opcode's argument signature: either a
// positional slot (Name == "") or a keyword slot, optionally marked
// Optional for a leading-'?' argument.
type ArgDef struct {
	Name     string
	Type     argType
	Optional bool
}

// OpDef is an opcode's emission signature: the C enum name the external
// script-opcode header resolves, plus its argument list in declaration
// (and emission) order.
type OpDef struct {
	OpName string
	Args   []ArgDef
}

// OpSingleton is the opcode prefixed onto any script function carrying
// the #[singleton] attribute; it takes no arguments.
const OpSingleton = "OP_SINGLETON"

// Commands is the opcode table every script command name resolves
// through. It is compiled into the tool rather than read from the
// external script-opcode header: the header only supplies the numeric
// value for a given C enum name, not the argument shape.
var Commands = map[string]OpDef{
	"exit":   {OpName: "OP_EXIT"},
	"return": {OpName: "OP_RETURN"},
	"jump": {
		OpName: "OP_JUMP",
		Args:   []ArgDef{{Type: argScript}},
	},
	"wait": {
		OpName: "OP_WAIT",
		Args:   []ArgDef{{Type: argUint}},
	},
	"spawn_actor": {
		OpName: "OP_SPAWN_ACTOR",
		Args: []ArgDef{
			{Type: argActorType},
			{Type: argInt},
			{Type: argInt},
			{Name: "angle", Type: argAngle, Optional: true},
			{Name: "flags", Type: argUint, Optional: true},
		},
	},
	"play_music": {
		OpName: "OP_PLAY_MUSIC",
		Args:   []ArgDef{{Type: argMusic, Optional: true}},
	},
	"play_sfx": {
		OpName: "OP_PLAY_SFX",
		Args:   []ArgDef{{Type: argSfx}},
	},
	"set_fx": {
		OpName: "OP_SET_FX",
		Args:   []ArgDef{{Type: argFx}},
	},
	"goto_target": {
		OpName: "OP_GOTO_TARGET",
		Args:   []ArgDef{{Type: argTarget}},
	},
	"set_color": {
		OpName: "OP_SET_COLOR",
		Args:   []ArgDef{{Type: argColor}},
	},
	"call_script": {
		OpName: "OP_CALL_SCRIPT",
		Args:   []ArgDef{{Type: argActiveScript}},
	},
	"bind_actor": {
		OpName: "OP_BIND_ACTOR",
		Args:   []ArgDef{{Type: argNewTarget}},
	},
	"load_map": {
		OpName: "OP_LOAD_MAP",
		Args:   []ArgDef{{Type: argMap}},
	},
	"move_to": {
		OpName: "OP_MOVE_TO",
		Args:   []ArgDef{{Type: argFloat}, {Type: argFloat}},
	},
	"set_string": {
		OpName: "OP_SET_STRING",
		Args:   []ArgDef{{Type: argString}},
	},
	"set_actor_target": {
		OpName: "OP_SET_ACTOR_TARGET",
		Args:   []ArgDef{{Type: argActor}},
	},
}
