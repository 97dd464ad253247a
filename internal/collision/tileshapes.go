package collision

import (
	"fmt"
	"image"
	_ "image/png" // tileset sheets are authored as PNG

	"os"
)

// TileProperties is the subset of an authored tile's metadata the
// shape deriver needs: its own collision objects (if any) and its
// explicit `collide` override (nil means "unset, derive from pixels").
type TileProperties struct {
	Objects []CollisionObject
	Collide *bool
}

// TilesetSource describes one tileset sheet to derive per-tile shapes
// from: its image path, tile dimensions, tile count and column count,
// and per-tile authored properties keyed by tileset-local tile index.
type TilesetSource struct {
	FirstGid  uint32
	ImagePath string
	TileWidth int
	TileHeight int
	TileCount  int
	Columns    int
	Tiles      map[int]TileProperties
}

// DeriveTileShapes builds the shape table for every tile across every
// source tileset, sampling the sheet's alpha (or palette transparency)
// for tiles with no authored objects and no explicit `collide`
// property, exactly as the source compiler does at load time.
func DeriveTileShapes(sources []TilesetSource) (TileShapeTable, error) {
	table := make(TileShapeTable)
	for _, src := range sources {
		if err := deriveOne(table, src); err != nil {
			return nil, fmt.Errorf("tileset %s: %w", src.ImagePath, err)
		}
	}
	return table, nil
}

func deriveOne(table TileShapeTable, src TilesetSource) error {
	sampler, err := newAlphaSampler(src.ImagePath)
	if err != nil {
		return err
	}

	for tid := 0; tid < src.TileCount; tid++ {
		props := src.Tiles[tid]
		var shapes []TileShape

		collides := props.Collide == nil || *props.Collide
		if collides {
			switch {
			case len(props.Objects) > 0:
				for _, obj := range props.Objects {
					shape, err := ToShape(obj)
					if err != nil {
						return err
					}
					shapes = append(shapes, TileShape{Kind: shape.Kind, Circle: shape.Circle, Polygon: shape.Polygon})
				}
			case props.Collide != nil && *props.Collide:
				shapes = append(shapes, FullTileBox())
			case props.Collide == nil:
				x := (tid % src.Columns) * src.TileWidth
				y := (tid / src.Columns) * src.TileHeight
				if sampler.anyOpaque(x, y, src.TileWidth, src.TileHeight) {
					shapes = append(shapes, FullTileBox())
				}
			}
		}

		table[src.FirstGid+uint32(tid)] = shapes
	}
	return nil
}

// alphaSampler answers whether any pixel within a tile rectangle is
// non-transparent, covering both true-alpha images and palette images
// with a designated transparent index.
type alphaSampler struct {
	img image.Image
}

func newAlphaSampler(path string) (*alphaSampler, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &alphaSampler{img: img}, nil
}

func (s *alphaSampler) anyOpaque(x, y, w, h int) bool {
	bounds := s.img.Bounds()
	for py := y; py < y+h; py++ {
		for px := x; px < x+w; px++ {
			if px < bounds.Min.X || px >= bounds.Max.X || py < bounds.Min.Y || py >= bounds.Max.Y {
				continue
			}
			_, _, _, a := s.img.At(px, py).RGBA()
			if a != 0 {
				return true
			}
		}
	}
	return false
}
