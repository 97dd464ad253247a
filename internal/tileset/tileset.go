// Package tileset assigns the compiler's own 16-bit tile-ID space across
// a map's authored tilesets, and classifies the two special sheets
// (`actors`, `props`) that are never emitted as ordinary tile data.
package tileset

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	// ErrDuplicateActors is returned when more than one tileset is named `actors`.
	ErrDuplicateActors = errors.New("duplicate actors tileset")
	// ErrDuplicateProps is returned when more than one tileset is named `props`.
	ErrDuplicateProps = errors.New("duplicate props tileset")
	// ErrBadAlignment is returned when the actors/props tileset is not top-left aligned.
	ErrBadAlignment = errors.New("tileset must have alignment topleft")
	// ErrNoImage is returned when an ordinary tileset has no spritesheet image.
	ErrNoImage = errors.New("tileset must be a spritesheet")
	// ErrBadTileSize is returned when an ordinary tileset's tiles aren't 16x16.
	ErrBadTileSize = errors.New("tileset must have 16x16 tiles")
	// ErrImageWidthNotPow2 is returned when an ordinary tileset's image width isn't a power of two.
	ErrImageWidthNotPow2 = errors.New("tileset image width must be a power of two")
)

// Source describes one authored tileset exactly as the Tiled loader
// reports it — enough to classify it and, for ordinary tilesets,
// assign it a TID range.
type Source struct {
	Name        string
	FirstGid    uint32
	Alignment   string
	Image       string // empty if this tileset has no single spritesheet image
	ImageWidth  int
	ImageHeight int
	TileWidth   int
	TileHeight  int
	TileCount   int
}

// Ordinary is one non-special tileset's assigned TID range, ready to
// be emitted as a tileset record.
type Ordinary struct {
	Source  Source
	FirstTID uint16
	EndTID   uint16
	XMask    uint8
	YShift   uint8
}

// special records the firstgid half-open range reserved for the
// `actors` or `props` tileset: gids in [FirstGid, lastGid) belong to it.
type special struct {
	source  Source
	lastGid uint32
}

// Assignment is the result of classifying and assigning TIDs across
// every tileset in a map, in authored order.
type Assignment struct {
	Ordinary []Ordinary
	actors   *special
	props    *special
}

// Assign classifies sources (in authored order) into the actors
// tileset, the props tileset, and zero or more ordinary tilesets, and
// assigns each ordinary tileset a contiguous 16-aligned TID range
// starting at 1. Tilesets with zero tiles are skipped entirely (they
// contribute no gids and reserve no range).
func Assign(sources []Source) (*Assignment, error) {
	a := &Assignment{}
	nextTID := uint16(1)

	for i, src := range sources {
		switch src.Name {
		case "actors":
			if a.actors != nil {
				return nil, ErrDuplicateActors
			}
			if src.Alignment != "topleft" {
				return nil, fmt.Errorf("actors: %w", ErrBadAlignment)
			}
			a.actors = &special{source: src, lastGid: lastGidOf(sources, i)}

		case "props":
			if a.props != nil {
				return nil, ErrDuplicateProps
			}
			if src.Alignment != "topleft" {
				return nil, fmt.Errorf("props: %w", ErrBadAlignment)
			}
			a.props = &special{source: src, lastGid: lastGidOf(sources, i)}

		default:
			if src.TileCount == 0 {
				continue
			}
			if src.Image == "" {
				return nil, fmt.Errorf("tileset %q: %w", src.Name, ErrNoImage)
			}
			if src.TileWidth != 16 || src.TileHeight != 16 {
				return nil, fmt.Errorf("tileset %q: %w", src.Name, ErrBadTileSize)
			}
			if src.ImageWidth <= 0 || src.ImageWidth&(src.ImageWidth-1) != 0 {
				return nil, fmt.Errorf("tileset %q: %w", src.Name, ErrImageWidthNotPow2)
			}

			firstTID := nextTID
			endTID := alignUp16(firstTID + uint16(src.TileCount))
			cols := src.ImageWidth >> 4
			xmask := uint8(cols - 1)
			yshift := uint8(bits.Len(uint(cols)) - 1)

			ord := Ordinary{Source: src, FirstTID: firstTID, EndTID: endTID, XMask: xmask, YShift: yshift}
			a.Ordinary = append(a.Ordinary, ord)
			nextTID = endTID
		}
	}
	return a, nil
}

func lastGidOf(sources []Source, index int) uint32 {
	if index+1 < len(sources) {
		return sources[index+1].FirstGid
	}
	return ^uint32(0)
}

func alignUp16(v uint16) uint16 {
	return (v + 15) &^ 15
}

// GidToTID translates an authored gid into the emitted TID, scanning
// ordinary tilesets from last to first and selecting the one whose
// FirstGid is the greatest value <= gid. ok is false if gid falls
// before every ordinary tileset's range (including gid 0, "empty").
func (a *Assignment) GidToTID(gid uint32) (tid uint16, ok bool) {
	var best *Ordinary
	for i := len(a.Ordinary) - 1; i >= 0; i-- {
		if a.Ordinary[i].Source.FirstGid <= gid {
			best = &a.Ordinary[i]
			break
		}
	}
	if best == nil {
		return 0, false
	}
	return best.FirstTID + uint16(gid-best.Source.FirstGid), true
}

// IsActorGid reports whether gid (with flip bits already stripped)
// names a tile in the `actors` tileset, and if so its tileset-local
// tile index.
func (a *Assignment) IsActorGid(gid uint32) (localTile int, ok bool) {
	return specialLookup(a.actors, gid)
}

// IsPropGid reports whether gid names a tile in the `props` tileset,
// and if so its tileset-local tile index.
func (a *Assignment) IsPropGid(gid uint32) (localTile int, ok bool) {
	return specialLookup(a.props, gid)
}

func specialLookup(s *special, gid uint32) (int, bool) {
	if s == nil || gid < s.source.FirstGid || gid >= s.lastGid {
		return 0, false
	}
	return int(gid - s.source.FirstGid), true
}

// ActorsSource returns the `actors` tileset's source, or false if the
// map carries none.
func (a *Assignment) ActorsSource() (Source, bool) {
	if a.actors == nil {
		return Source{}, false
	}
	return a.actors.source, true
}

// PropsSource returns the `props` tileset's source, or false if the
// map carries none.
func (a *Assignment) PropsSource() (Source, bool) {
	if a.props == nil {
		return Source{}, false
	}
	return a.props.source, true
}
