package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cashout-chess/internal/chess"
	"github.com/park285/cashout-chess/internal/room"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

const (
	squareSize   = 64
	boardSize    = squareSize * 8
	sideMargin   = 28
	headerHeight = 48
	footerHeight = 40
	panelRadius  = 10
)

// Options controls a single render.
type Options struct {
	// Caption is drawn in the header panel.
	Caption string
	// Perspective black puts rank 1 at the top.
	Perspective chess.Color
	LastMove    *chessdto.LastMove
	Captured    chessdto.CapturedPieces
}

// Renderer draws boards as PNG. The zero value is ready to use.
type Renderer struct{}

func New() *Renderer { return &Renderer{} }

// RenderRoom draws a room snapshot as seen from perspective.
func (r *Renderer) RenderRoom(ctx context.Context, snap chessdto.Room, perspective chess.Color, caption string) ([]byte, error) {
	gs := room.GameStateFromDTO(snap.GameState)
	return r.RenderPNG(ctx, gs.Board, Options{
		Caption:     caption,
		Perspective: perspective,
		LastMove:    snap.GameState.LastMove,
		Captured:    snap.GameState.CapturedPieces,
	})
}

func (r *Renderer) RenderPNG(ctx context.Context, b chess.Board, opts Options) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	flip := opts.Perspective == chess.Black
	board := chess.LibBoard(b)
	width := boardSize + sideMargin*2
	height := boardSize + headerHeight + footerHeight + sideMargin
	origin := image.Point{X: sideMargin, Y: headerHeight + sideMargin/2}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)
	drawBoardShadow(img, boardRect)
	drawSquares(img, origin, flip)
	drawLastMove(img, opts.LastMove, origin, flip)
	if err := drawPieces(img, board, origin, flip); err != nil {
		return nil, err
	}
	drawCoordinates(img, origin, flip)
	drawHeader(img, opts.Caption, boardRect)
	drawFooter(img, opts.Captured, boardRect)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	backgroundColor     = color.RGBA{R: 24, G: 26, B: 38, A: 255}
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	lastMoveFill        = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	boardShadowColor    = color.NRGBA{0, 0, 0, 60}
	panelColor          = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	textPrimary         = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

var (
	ranks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	files = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func drawBoardShadow(img *image.RGBA, boardRect image.Rectangle) {
	shadowRect := image.Rect(boardRect.Min.X+4, boardRect.Min.Y+8, boardRect.Max.X+8, boardRect.Max.Y+10)
	imagedraw.Draw(img, shadowRect, image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
}

func drawSquares(dst imagedraw.Image, origin image.Point, flip bool) {
	for _, rank := range ranks {
		for _, file := range files {
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, squareRect(sq, origin, flip), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, origin image.Point, flip bool) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq, origin, flip), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawLastMove(img *image.RGBA, lm *chessdto.LastMove, origin image.Point, flip bool) {
	if lm == nil {
		return
	}
	for _, name := range []string{lm.From, lm.To} {
		if sq, ok := libSquare(name); ok {
			imagedraw.Draw(img, squareRect(sq, origin, flip), image.NewUniform(lastMoveFill), image.Point{}, imagedraw.Over)
		}
	}
}

func libSquare(name string) (nchess.Square, bool) {
	row, col, ok := chess.ParseSquare(name)
	if !ok {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(col), nchess.Rank(7-row)), true
}

func drawCoordinates(dst imagedraw.Image, origin image.Point, flip bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	for _, rank := range ranks {
		rect := squareRect(nchess.NewSquare(nchess.FileA, rank), origin, flip)
		drawCenteredText(drawer, rank.String(), origin.X-sideMargin/2, rect.Min.Y+squareSize/2+ascent/2)
	}
	for _, file := range files {
		rect := squareRect(nchess.NewSquare(file, nchess.Rank1), origin, flip)
		drawCenteredText(drawer, file.String(), rect.Min.X+squareSize/2, origin.Y+boardSize+ascent+4)
	}
}

func drawHeader(img *image.RGBA, caption string, boardRect image.Rectangle) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return
	}
	rect := image.Rect(boardRect.Min.X, 8, boardRect.Max.X, headerHeight-4)
	drawRoundedPanel(img, rect, panelRadius, panelColor)
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	caption = truncateWithEllipsis(drawer.Face, caption, rect.Dx()-24)
	drawCenteredString(drawer, rect, caption, textPrimary)
}

func drawFooter(img *image.RGBA, captured chessdto.CapturedPieces, boardRect image.Rectangle) {
	top := boardRect.Max.Y + 22
	rect := image.Rect(boardRect.Min.X, top, boardRect.Max.X, top+footerHeight-14)
	if rect.Max.Y > img.Bounds().Max.Y {
		return
	}
	drawRoundedPanel(img, rect, panelRadius, panelColor)
	text := "captured  white " + strconv.Itoa(len(captured.White)) + "  black " + strconv.Itoa(len(captured.Black))
	drawCenteredString(&font.Drawer{Dst: img, Face: basicfont.Face7x13}, rect, text, textPrimary)
}

func squareRect(sq nchess.Square, origin image.Point, flip bool) image.Rectangle {
	row := 7 - int(sq.Rank())
	col := int(sq.File())
	if flip {
		row, col = 7-row, 7-col
	}
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	drawer := font.Drawer{Face: face}
	if maxWidth <= 0 || drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return "..."
}
