package compiler

import (
	"github.com/aliensun/mapcompile/internal/collision"
	"github.com/aliensun/mapcompile/internal/poolwriter"
	"github.com/aliensun/mapcompile/internal/script"
	"github.com/aliensun/mapcompile/internal/svgdebug"
	"github.com/aliensun/mapcompile/internal/symtab"
	"github.com/aliensun/mapcompile/internal/tileset"
)

// Compile drives the full pipeline: structural validation, tileset
// classification, layer scan, script linking and assembly, collision
// geometry and final serialization, in that order.
func Compile(m *TiledMap, assets AssetResolver, enums EnumResolver) ([]byte, error) {
	if err := validateMap(m); err != nil {
		return nil, err
	}

	assign, err := tileset.Assign(tilesetSources(m))
	if err != nil {
		return nil, err
	}

	shapes, err := collision.DeriveTileShapes(collisionSources(m))
	if err != nil {
		return nil, err
	}
	builder := collision.NewBuilder(shapes)

	symbols := symtab.NewSymbolPool()
	strings := symtab.NewStringPool()

	scan, err := ScanLayers(m, assign, symbols, builder)
	if err != nil {
		return nil, err
	}

	mapScripts, err := ParseMapScripts(m)
	if err != nil {
		return nil, err
	}
	cs, err := LinkScripts(mapScripts, scan.Actors)
	if err != nil {
		return nil, err
	}

	asm := &script.Assembler{
		Assets:     assets,
		Enums:      enums,
		Symbols:    symbols,
		Strings:    strings,
		Actors:     script.NewActorBlobPool(),
		ActorCount: len(scan.Actors),
	}
	scriptBlobs, err := AssembleAll(cs, asm)
	if err != nil {
		return nil, err
	}

	return Serialize(SerializeInput{
		Map:         m,
		Assign:      assign,
		Scan:        scan,
		Builder:     builder,
		Scripts:     cs,
		ScriptBlobs: scriptBlobs,
		ActorBlobs:  asm.Actors.Blobs(),
		Symbols:     symbols,
		Strings:     strings,
		Assets:      assets,
		Enums:       enums,
	})
}

// BuildCollisionOnly runs just enough of the pipeline to produce a
// populated collision builder and the map's pixel-space view box, for
// the -S debug dump. It performs the same validation as Compile.
func BuildCollisionOnly(m *TiledMap) (*collision.Builder, svgdebug.ViewBox, error) {
	if err := validateMap(m); err != nil {
		return nil, svgdebug.ViewBox{}, err
	}

	assign, err := tileset.Assign(tilesetSources(m))
	if err != nil {
		return nil, svgdebug.ViewBox{}, err
	}

	shapes, err := collision.DeriveTileShapes(collisionSources(m))
	if err != nil {
		return nil, svgdebug.ViewBox{}, err
	}
	builder := collision.NewBuilder(shapes)

	scan, err := ScanLayers(m, assign, symtab.NewSymbolPool(), builder)
	if err != nil {
		return nil, svgdebug.ViewBox{}, err
	}
	builder.Build(poolwriter.New(nil))

	const chunkPx = chunkSize * 16
	box := svgdebug.ViewBox{
		X: float64(int(scan.LowerXChunks) * chunkPx),
		Y: float64(int(scan.LowerYChunks) * chunkPx),
		W: float64(int(scan.MapWChunks) * chunkPx),
		H: float64(int(scan.MapHChunks) * chunkPx),
	}
	return builder, box, nil
}

func validateMap(m *TiledMap) error {
	if m.Orientation != "orthogonal" {
		return ErrUnsupportedOrientation
	}
	if m.RenderOrder != "right-down" {
		return ErrUnsupportedRenderOrder
	}
	if !m.Infinite {
		return ErrNotInfinite
	}
	if m.TileWidth != 16 || m.TileHeight != 16 {
		return ErrUnsupportedTileSize
	}
	if m.WidthTiles%16 != 0 || m.HeightTiles%16 != 0 {
		return ErrSizeNotMultiple16
	}
	return nil
}

// tilesetSources converts every authored tileset into the classifier's
// input shape, actors/props included — Assign itself singles those two
// out by name.
func tilesetSources(m *TiledMap) []tileset.Source {
	out := make([]tileset.Source, len(m.Tilesets))
	for i, ts := range m.Tilesets {
		out[i] = tileset.Source{
			Name:        ts.Name,
			FirstGid:    ts.FirstGid,
			Alignment:   ts.Alignment,
			Image:       ts.Image,
			ImageWidth:  ts.ImageWidth,
			ImageHeight: ts.ImageHeight,
			TileWidth:   ts.TileWidth,
			TileHeight:  ts.TileHeight,
			TileCount:   ts.TileCount,
		}
	}
	return out
}

// collisionSources builds the shape deriver's input for every ordinary
// (non actors/props) tileset with a spritesheet image — actors and
// props tiles never carry terrain collision of their own.
func collisionSources(m *TiledMap) []collision.TilesetSource {
	var out []collision.TilesetSource
	for _, ts := range m.Tilesets {
		if ts.Name == "actors" || ts.Name == "props" || ts.Image == "" {
			continue
		}
		tiles := make(map[int]collision.TileProperties, len(ts.Tiles))
		for local, tile := range ts.Tiles {
			tiles[local] = tileProperties(tile)
		}
		out = append(out, collision.TilesetSource{
			FirstGid:   ts.FirstGid,
			ImagePath:  ts.Image,
			TileWidth:  ts.TileWidth,
			TileHeight: ts.TileHeight,
			TileCount:  ts.TileCount,
			Columns:    ts.Columns,
			Tiles:      tiles,
		})
	}
	return out
}

func tileProperties(tile TiledTile) collision.TileProperties {
	var collide *bool
	if v, ok := tile.Properties["collide"].(bool); ok {
		collide = &v
	}
	objs := make([]collision.CollisionObject, len(tile.Objects))
	for i, o := range tile.Objects {
		objs[i] = toCollisionObject(o)
	}
	return collision.TileProperties{Objects: objs, Collide: collide}
}
