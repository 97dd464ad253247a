package headerindex_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aliensun/mapcompile/internal/headerindex"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const actorTypesHeader = `typedef enum {
  AT_NONE,
  AT_PLAYER,
  AT_TRIGGER,
  AT_CLIFF_PLATFORM,
  NUM_AT
} actor_type_t;

extern const char * const actor_type_names[NUM_AT];
`

const scriptOpsHeader = `typedef enum {
  OP_SINGLETON,
  OP_WAIT,
  OP_JUMP,
  NUM_OP
} script_op_t;
`

func TestLoadEnumTableAssignsSequentialValues(t *testing.T) {
	actorPath := writeTemp(t, "actor_types.h", actorTypesHeader)
	opsPath := writeTemp(t, "script_ops.h", scriptOpsHeader)

	table, err := headerindex.LoadEnumTable(actorPath, opsPath)
	if err != nil {
		t.Fatalf("LoadEnumTable: %v", err)
	}
	v, err := table.ActorTypeValue("AT_TRIGGER")
	if err != nil {
		t.Fatalf("ActorTypeValue: %v", err)
	}
	if v != 2 {
		t.Errorf("AT_TRIGGER = %d, want 2", v)
	}
	v, err = table.OpcodeValue("OP_JUMP")
	if err != nil {
		t.Fatalf("OpcodeValue: %v", err)
	}
	if v != 2 {
		t.Errorf("OP_JUMP = %d, want 2", v)
	}
}

func TestLoadEnumTableUnknownNameErrors(t *testing.T) {
	actorPath := writeTemp(t, "actor_types.h", actorTypesHeader)
	opsPath := writeTemp(t, "script_ops.h", scriptOpsHeader)
	table, err := headerindex.LoadEnumTable(actorPath, opsPath)
	if err != nil {
		t.Fatalf("LoadEnumTable: %v", err)
	}
	if _, err := table.ActorTypeValue("AT_NOT_REAL"); err == nil {
		t.Fatal("expected an error for an unknown actor type")
	}
}

func TestLoadEnumTableMissingTypedefErrors(t *testing.T) {
	path := writeTemp(t, "empty.h", "// nothing here\n")
	if _, err := headerindex.LoadEnumTable(path, path); err == nil {
		t.Fatal("expected an error when no enum typedef is present")
	}
}

const assetList = `const char * const maps_paths[NUM_MAPS] = {
  (void *) 0,
  "rom:/maps/forest.map",
  "rom:/maps/castle.map",
};

const char * const mus_paths[NUM_MUS] = {
  (void *) 0,
  "rom:/mus/title.mus",
};
`

func TestLoadAssetIndexResolvesPathToIndex(t *testing.T) {
	path := writeTemp(t, "assets.c", assetList)
	idx, err := headerindex.LoadAssetIndex(path, filepath.Dir(path))
	if err != nil {
		t.Fatalf("LoadAssetIndex: %v", err)
	}
	id, err := idx.AssetIndex("maps", "castle.map")
	if err != nil {
		t.Fatalf("AssetIndex: %v", err)
	}
	if id != 2 {
		t.Errorf("castle.map index = %d, want 2 (slot 0 reserved)", id)
	}
}

func TestLoadAssetIndexUnknownCategoryErrors(t *testing.T) {
	path := writeTemp(t, "assets.c", assetList)
	idx, err := headerindex.LoadAssetIndex(path, filepath.Dir(path))
	if err != nil {
		t.Fatalf("LoadAssetIndex: %v", err)
	}
	if _, err := idx.AssetIndex("gfx", "sprite.png"); err == nil {
		t.Fatal("expected an error for an unknown category")
	}
}

func TestLoadAssetIndexUnknownAssetErrors(t *testing.T) {
	path := writeTemp(t, "assets.c", assetList)
	idx, err := headerindex.LoadAssetIndex(path, filepath.Dir(path))
	if err != nil {
		t.Fatalf("LoadAssetIndex: %v", err)
	}
	if _, err := idx.AssetIndex("maps", "swamp.map"); err == nil {
		t.Fatal("expected an error for an unlisted asset")
	}
}
