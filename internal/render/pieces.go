package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Glyph bodies on a 45x45 canvas. STYLE is replaced with the side's fill and
// stroke attributes.
var glyphs = map[nchess.PieceType]string{
	nchess.Pawn: `<circle cx="22.5" cy="13" r="5.5" STYLE/>
<path d="M17 20 L28 20 L31 34 L14 34 Z" STYLE/>`,
	nchess.Rook: `<path d="M12 9 L16 9 L16 12 L20 12 L20 9 L25 9 L25 12 L29 12 L29 9 L33 9 L33 16 L12 16 Z" STYLE/>
<path d="M15 16 L30 16 L31 34 L14 34 Z" STYLE/>`,
	nchess.Knight: `<path d="M14 34 L15 24 L22 16 L17 17 L13 20 L11 17 L19 9 L26 8 C32 10 34 18 33 34 Z" STYLE/>
<circle cx="21" cy="13" r="1.2" STYLE/>`,
	nchess.Bishop: `<circle cx="22.5" cy="7.5" r="2.5" STYLE/>
<ellipse cx="22.5" cy="18" rx="7" ry="9" STYLE/>
<path d="M16 26 L29 26 L31 34 L14 34 Z" STYLE/>`,
	nchess.Queen: `<path d="M10 14 L15 28 L18 12 L22.5 26 L27 12 L30 28 L35 14 L32 34 L13 34 Z" STYLE/>
<circle cx="10" cy="12" r="2" STYLE/>
<circle cx="18" cy="10" r="2" STYLE/>
<circle cx="27" cy="10" r="2" STYLE/>
<circle cx="35" cy="12" r="2" STYLE/>`,
	nchess.King: `<path d="M21 4 L24 4 L24 7 L27 7 L27 10 L24 10 L24 14 L21 14 L21 10 L18 10 L18 7 L21 7 Z" STYLE/>
<path d="M12 20 C12 14 22.5 13 22.5 18 C22.5 13 33 14 33 20 L30 34 L15 34 Z" STYLE/>`,
}

const glyphBase = `<rect x="11" y="34" width="23" height="5" rx="1" STYLE/>`

func glyphSVG(p nchess.Piece) ([]byte, bool) {
	body, ok := glyphs[p.Type()]
	if !ok {
		return nil, false
	}
	style := `fill="#f7f3ea" stroke="#1c1c1c" stroke-width="1.5"`
	if p.Color() == nchess.Black {
		style = `fill="#262421" stroke="#e8e4da" stroke-width="1.2"`
	}
	inner := strings.ReplaceAll(body+"\n"+glyphBase, "STYLE", style)
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">%s</svg>`, inner)
	return []byte(svg), true
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, ok := glyphSVG(piece)
	if !ok {
		return nil, fmt.Errorf("no glyph for piece %v", piece)
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
