// Package compiler orchestrates the map compositor: it owns the
// collaborator contracts (Tiled loader, asset resolver, enum resolver)
// and drives validation, tileset classification, layer scan, script
// compile, and serialization (which builds collision) in that order.
package compiler

import "github.com/aliensun/mapcompile/internal/script"

// AssetResolver looks up a numeric asset id by category and path.
// Satisfied by the external asset-header resolver.
type AssetResolver = script.AssetResolver

// EnumResolver resolves C enum names (script opcodes, actor types) to
// their numeric values. Satisfied by the external enum-header resolver.
type EnumResolver = script.EnumResolver

// TiledLoader yields a parsed map by path. The actual Tiled/TMX
// parsing is out of scope; any implementation that can produce a
// *TiledMap satisfies this.
type TiledLoader interface {
	LoadMap(path string) (*TiledMap, error)
}

// Point2 is a plain coordinate pair in authored pixel space.
type Point2 struct{ X, Y float64 }

// ObjectKind distinguishes the shapes an authored Tiled object can take.
type ObjectKind int

const (
	ObjPoint ObjectKind = iota
	ObjRectangle
	ObjEllipse
	ObjPolygon
	ObjPolyline
	ObjTile
)

// TiledObject is one object-layer entry, in authored map coordinates
// (before any layer offset is applied).
type TiledObject struct {
	Kind       ObjectKind
	ID         uint32
	Name       string
	X, Y       float64
	Width      float64
	Height     float64
	Points     []Point2 // authored relative to (X, Y), as for collision.CollisionObject
	Rotation   float64
	Gid        uint32 // meaningful only for Kind == ObjTile; includes TMX flip bits
	Properties map[string]any
}

// TiledTile is one tileset-local tile's authored metadata. Image is
// only meaningful for image-collection tilesets (the `props` tileset),
// where each tile carries its own backing image rather than sharing one
// spritesheet.
type TiledTile struct {
	Objects    []TiledObject
	Properties map[string]any
	Image      string
}

// TiledTileset is one authored tileset exactly as the Tiled loader
// reports it.
type TiledTileset struct {
	Name        string
	FirstGid    uint32
	Alignment   string
	Image       string
	ImageWidth  int
	ImageHeight int
	TileWidth   int
	TileHeight  int
	TileCount   int
	Columns     int
	Tiles       map[int]TiledTile
}

// TiledChunk is one 16x16 block of raw authored gids (TMX flip bits
// included) at a chunk-aligned tile coordinate.
type TiledChunk struct {
	CX, CY int
	Data   [256]uint32 // row-major, index = localY*16+localX
}

// TileLayer is one chunked terrain layer.
type TileLayer struct {
	Name                 string
	OffsetX, OffsetY     float64
	ParallaxX, ParallaxY float64
	Collide              bool // false only when the authored `collide` property is explicitly false
	Chunks               []TiledChunk
}

// ImageLayer is one background (or water) image layer.
type ImageLayer struct {
	Name                     string
	OffsetX, OffsetY         float64
	AutoscrollX, AutoscrollY float64
	ParallaxX, ParallaxY     float64
	RepeatX, RepeatY         bool
	Image                    string
	TintColor                *uint32 // packed RGBA, used for water tint
	AnimTileset              string
	Properties               map[string]any
}

// ObjectLayer is one layer of points/shapes/actor-or-prop tiles.
type ObjectLayer struct {
	Name                 string
	OffsetX, OffsetY     float64
	ParallaxX, ParallaxY float64
	Objects              []TiledObject
}

// LayerKind tags which of Image/Tile/Object a Layer carries.
type LayerKind int

const (
	LayerImage LayerKind = iota
	LayerTile
	LayerObject
)

// Layer is one entry in the map's render-order layer list.
type Layer struct {
	Kind   LayerKind
	Image  *ImageLayer
	Tile   *TileLayer
	Object *ObjectLayer
}

// TiledMap is everything the compositor needs from the Tiled loader.
type TiledMap struct {
	Orientation              string
	RenderOrder              string
	TileWidth, TileHeight    int
	Infinite                 bool
	WidthTiles, HeightTiles  int
	ParallaxOriginX          float64
	ParallaxOriginY          float64
	Tilesets                 []TiledTileset
	Layers                   []Layer
	Properties               map[string]any
}
