// Package tiledloader reads a Tiled JSON-format map export and adapts
// it into the compiler package's own TiledMap contract. It implements
// only the subset of the Tiled JSON schema the map compositor actually
// consumes: infinite orthogonal maps with chunked tile layers, object
// layers, image layers and tilesets (including image-collection
// tilesets for actors/props).
package tiledloader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aliensun/mapcompile/compiler"
)

// Loader reads Tiled JSON maps from disk.
type Loader struct{}

// LoadMap satisfies compiler.TiledLoader.
func (Loader) LoadMap(path string) (*compiler.TiledMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc tiledMap
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc.convert(filepath.Dir(path))
}

// tiledProperty is one entry of Tiled's `properties` array.
type tiledProperty struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func propsToMap(props []tiledProperty) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for _, p := range props {
		out[p.Name] = p.Value
	}
	return out
}

type tiledChunk struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Data   []int64 `json:"data"`
}

type tiledObject struct {
	ID         uint32          `json:"id"`
	Name       string          `json:"name"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Rotation   float64         `json:"rotation"`
	Gid        uint32          `json:"gid"`
	Point      bool            `json:"point"`
	Ellipse    bool            `json:"ellipse"`
	Polygon    []point2        `json:"polygon"`
	Polyline   []point2        `json:"polyline"`
	Properties []tiledProperty `json:"properties"`
}

type point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (o tiledObject) convert() compiler.TiledObject {
	kind := compiler.ObjRectangle
	var pts []compiler.Point2
	switch {
	case o.Gid != 0:
		kind = compiler.ObjTile
	case o.Point:
		kind = compiler.ObjPoint
	case o.Ellipse:
		kind = compiler.ObjEllipse
	case len(o.Polygon) > 0:
		kind = compiler.ObjPolygon
		pts = convertPoints(o.Polygon)
	case len(o.Polyline) > 0:
		kind = compiler.ObjPolyline
		pts = convertPoints(o.Polyline)
	}
	return compiler.TiledObject{
		Kind: kind, ID: o.ID, Name: o.Name,
		X: o.X, Y: o.Y, Width: o.Width, Height: o.Height,
		Points: pts, Rotation: o.Rotation, Gid: o.Gid,
		Properties: propsToMap(o.Properties),
	}
}

func convertPoints(pts []point2) []compiler.Point2 {
	out := make([]compiler.Point2, len(pts))
	for i, p := range pts {
		out[i] = compiler.Point2{X: p.X, Y: p.Y}
	}
	return out
}

type tiledLayer struct {
	Type       string          `json:"type"`
	Name       string          `json:"name"`
	OffsetX    float64         `json:"offsetx"`
	OffsetY    float64         `json:"offsety"`
	ParallaxX  float64         `json:"parallaxx"`
	ParallaxY  float64         `json:"parallaxy"`
	Image      string          `json:"image"`
	TintColor  string          `json:"tintcolor"`
	Repeatx    bool            `json:"repeatx"`
	Repeaty    bool            `json:"repeaty"`
	Chunks     []tiledChunk    `json:"chunks"`
	Objects    []tiledObject   `json:"objects"`
	Properties []tiledProperty `json:"properties"`
}

func parallaxOrDefault(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func (l tiledLayer) convert() (compiler.Layer, error) {
	props := propsToMap(l.Properties)
	switch l.Type {
	case "imagelayer":
		var tint *uint32
		if c, err := parseHexColor(l.TintColor); err == nil && l.TintColor != "" {
			tint = &c
		}
		autoX, _ := props["autoscroll_x"].(float64)
		autoY, _ := props["autoscroll_y"].(float64)
		animTileset, _ := props["anim"].(string)
		return compiler.Layer{Kind: compiler.LayerImage, Image: &compiler.ImageLayer{
			Name: l.Name, OffsetX: l.OffsetX, OffsetY: l.OffsetY,
			AutoscrollX: autoX, AutoscrollY: autoY,
			ParallaxX: parallaxOrDefault(l.ParallaxX), ParallaxY: parallaxOrDefault(l.ParallaxY),
			RepeatX: l.Repeatx, RepeatY: l.Repeaty,
			Image: l.Image, TintColor: tint, AnimTileset: animTileset,
			Properties: props,
		}}, nil

	case "objectgroup":
		objs := make([]compiler.TiledObject, len(l.Objects))
		for i, o := range l.Objects {
			objs[i] = o.convert()
		}
		return compiler.Layer{Kind: compiler.LayerObject, Object: &compiler.ObjectLayer{
			Name: l.Name, OffsetX: l.OffsetX, OffsetY: l.OffsetY,
			ParallaxX: parallaxOrDefault(l.ParallaxX), ParallaxY: parallaxOrDefault(l.ParallaxY),
			Objects: objs,
		}}, nil

	case "tilelayer":
		collide := true
		if v, ok := props["collide"].(bool); ok {
			collide = v
		}
		chunks := make([]compiler.TiledChunk, len(l.Chunks))
		for i, c := range l.Chunks {
			var tc compiler.TiledChunk
			tc.CX, tc.CY = c.X, c.Y
			for j, v := range c.Data {
				if j >= len(tc.Data) {
					break
				}
				tc.Data[j] = uint32(v)
			}
			chunks[i] = tc
		}
		return compiler.Layer{Kind: compiler.LayerTile, Tile: &compiler.TileLayer{
			Name: l.Name, OffsetX: l.OffsetX, OffsetY: l.OffsetY,
			ParallaxX: parallaxOrDefault(l.ParallaxX), ParallaxY: parallaxOrDefault(l.ParallaxY),
			Collide: collide, Chunks: chunks,
		}}, nil

	default:
		return compiler.Layer{}, fmt.Errorf("unsupported layer type %q", l.Type)
	}
}

func parseHexColor(s string) (uint32, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("empty color")
	}
	if s[0] == '#' {
		s = s[1:]
	}
	var v uint32
	if _, err := fmt.Sscanf(s, "%x", &v); err != nil {
		return 0, err
	}
	if len(s) == 6 {
		v = v<<8 | 0xff
	}
	return v, nil
}

type tiledTilesetTile struct {
	ID         int             `json:"id"`
	Image      string          `json:"image"`
	Objects    *tiledObjGroup  `json:"objectgroup"`
	Properties []tiledProperty `json:"properties"`
}

type tiledObjGroup struct {
	Objects []tiledObject `json:"objects"`
}

type tiledTileset struct {
	Name        string             `json:"name"`
	FirstGid    uint32             `json:"firstgid"`
	ObjectAlign string             `json:"objectalignment"`
	Image       string             `json:"image"`
	ImageWidth  int                `json:"imagewidth"`
	ImageHeight int                `json:"imageheight"`
	TileWidth   int                `json:"tilewidth"`
	TileHeight  int                `json:"tileheight"`
	TileCount   int                `json:"tilecount"`
	Columns     int                `json:"columns"`
	Tiles       []tiledTilesetTile `json:"tiles"`
}

func (ts tiledTileset) convert() compiler.TiledTileset {
	tiles := make(map[int]compiler.TiledTile, len(ts.Tiles))
	for _, t := range ts.Tiles {
		var objs []compiler.TiledObject
		if t.Objects != nil {
			objs = make([]compiler.TiledObject, len(t.Objects.Objects))
			for i, o := range t.Objects.Objects {
				objs[i] = o.convert()
			}
		}
		tiles[t.ID] = compiler.TiledTile{Objects: objs, Properties: propsToMap(t.Properties), Image: t.Image}
	}
	align := ts.ObjectAlign
	if align == "" {
		align = "topleft"
	}
	return compiler.TiledTileset{
		Name: ts.Name, FirstGid: ts.FirstGid, Alignment: align,
		Image: ts.Image, ImageWidth: ts.ImageWidth, ImageHeight: ts.ImageHeight,
		TileWidth: ts.TileWidth, TileHeight: ts.TileHeight,
		TileCount: ts.TileCount, Columns: ts.Columns, Tiles: tiles,
	}
}

type tiledMap struct {
	Orientation string          `json:"orientation"`
	RenderOrder string          `json:"renderorder"`
	TileWidth   int             `json:"tilewidth"`
	TileHeight  int             `json:"tileheight"`
	Infinite    bool            `json:"infinite"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Tilesets    []tiledTileset  `json:"tilesets"`
	Layers      []tiledLayer    `json:"layers"`
	Properties  []tiledProperty `json:"properties"`
}

func (m tiledMap) convert(_ string) (*compiler.TiledMap, error) {
	props := propsToMap(m.Properties)
	originX, _ := props["parallax_origin_x"].(float64)
	originY, _ := props["parallax_origin_y"].(float64)

	layers := make([]compiler.Layer, len(m.Layers))
	for i, l := range m.Layers {
		conv, err := l.convert()
		if err != nil {
			return nil, err
		}
		layers[i] = conv
	}
	tilesets := make([]compiler.TiledTileset, len(m.Tilesets))
	for i, ts := range m.Tilesets {
		tilesets[i] = ts.convert()
	}
	return &compiler.TiledMap{
		Orientation: m.Orientation, RenderOrder: m.RenderOrder,
		TileWidth: m.TileWidth, TileHeight: m.TileHeight,
		Infinite: m.Infinite, WidthTiles: m.Width, HeightTiles: m.Height,
		ParallaxOriginX: originX, ParallaxOriginY: originY,
		Tilesets: tilesets, Layers: layers, Properties: props,
	}, nil
}
