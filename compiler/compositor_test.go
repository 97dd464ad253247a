package compiler_test

import (
	"testing"

	"github.com/aliensun/mapcompile/compiler"
)

type stubAssets struct{}

func (stubAssets) AssetIndex(category, path string) (uint32, error) { return 1, nil }

type stubEnums struct{}

func (stubEnums) OpcodeValue(name string) (uint32, error)    { return 1, nil }
func (stubEnums) ActorTypeValue(name string) (uint32, error) { return 1, nil }

func emptyMap() *compiler.TiledMap {
	return &compiler.TiledMap{
		Orientation: "orthogonal",
		RenderOrder: "right-down",
		TileWidth:   16, TileHeight: 16,
		Infinite:    true,
		WidthTiles:  16, HeightTiles: 16,
	}
}

func TestCompileProducesA16ByteAlignedBlobForAnEmptyMap(t *testing.T) {
	out, err := compiler.Compile(emptyMap(), stubAssets{}, stubEnums{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("Compile produced no output")
	}
	if len(out)%16 != 0 {
		t.Errorf("len(out) = %d, not 16-byte aligned", len(out))
	}
	if string(out[:4]) != "TMAP" {
		t.Errorf("tag = %q, want TMAP", out[:4])
	}
}

func TestCompileRejectsWrongOrientation(t *testing.T) {
	m := emptyMap()
	m.Orientation = "isometric"
	if _, err := compiler.Compile(m, stubAssets{}, stubEnums{}); err != compiler.ErrUnsupportedOrientation {
		t.Fatalf("err = %v, want ErrUnsupportedOrientation", err)
	}
}

func TestCompileRejectsSizeNotMultipleOf16(t *testing.T) {
	m := emptyMap()
	m.WidthTiles = 17
	if _, err := compiler.Compile(m, stubAssets{}, stubEnums{}); err != compiler.ErrSizeNotMultiple16 {
		t.Fatalf("err = %v, want ErrSizeNotMultiple16", err)
	}
}

func TestCompileRejectsNonInfiniteMap(t *testing.T) {
	m := emptyMap()
	m.Infinite = false
	if _, err := compiler.Compile(m, stubAssets{}, stubEnums{}); err != compiler.ErrNotInfinite {
		t.Fatalf("err = %v, want ErrNotInfinite", err)
	}
}

func TestCompileWithActorsAndPropsTilesetsRoundTrips(t *testing.T) {
	m := emptyMap()
	m.Tilesets = []compiler.TiledTileset{
		{Name: "actors", FirstGid: 1, Alignment: "topleft"},
		{Name: "props", FirstGid: 2, Alignment: "topleft"},
	}
	m.Layers = []compiler.Layer{
		{
			Kind: compiler.LayerObject,
			Object: &compiler.ObjectLayer{
				Objects: []compiler.TiledObject{
					{Kind: compiler.ObjPoint, ID: 1, Name: "camera-start", X: 48, Y: 32},
				},
			},
		},
	}
	out, err := compiler.Compile(m, stubAssets{}, stubEnums{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("Compile produced no output")
	}
}
