// Package preview renders processed farm collections into small raster maps.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"github.com/woozymasta/rotfarm/internal/geo"
	"github.com/woozymasta/rotfarm/internal/processor"

	"github.com/chai2010/webp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Default image size.
const (
	DefaultWidth  = 1024
	DefaultHeight = 768
)

const (
	padding    = 16
	lineWidth  = 1.5
	pointWidth = 4
)

// ErrNothingToRender is returned when no feature has a drawable geometry.
var ErrNothingToRender = errors.New("preview: no geometries to render")

var (
	background = color.RGBA{0x02, 0x06, 0x17, 0xff}

	// Status colors, drawn semi-transparent so overlaps stay visible.
	carbonSinkColor = color.NRGBA{0x22, 0xc5, 0x5e, 0xc0}
	activeFarmColor = color.NRGBA{0xf9, 0x73, 0x16, 0xc0}
	otherColor      = color.NRGBA{0xcc, 0xcc, 0xcc, 0xc0}
)

// Options configures Render.
type Options struct {
	Width  int
	Height int

	// Projected marks planar coordinates such as Web Mercator meters.
	// Bounds outside the longitude/latitude range are treated as projected too.
	Projected bool
}

// StatusColor returns the fill color for a feature status.
func StatusColor(status string) color.NRGBA {
	switch status {
	case processor.StatusCarbonSink:
		return carbonSinkColor
	case processor.StatusActiveFarm:
		return activeFarmColor
	default:
		return otherColor
	}
}

// Render draws every feature of c with longitude/latitude coordinates,
// fit into the image and colored by status.
func Render(c *geo.Collection, opts Options) (*image.RGBA, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Width <= 2*padding || opts.Height <= 2*padding {
		return nil, fmt.Errorf("preview: image %dx%d is too small", opts.Width, opts.Height)
	}

	var (
		features []*geojson.Feature
		bound    orb.Bound
	)
	for _, raw := range c.Features {
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil || f.Geometry == nil {
			continue
		}
		if len(features) == 0 {
			bound = f.Geometry.Bound()
		} else {
			bound = bound.Union(f.Geometry.Bound())
		}
		features = append(features, f)
	}
	if len(features) == 0 {
		return nil, ErrNothingToRender
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	cv := newCanvas(img, bound, opts.Projected || !geographic(bound))
	for _, f := range features {
		cv.fill(f.Geometry, StatusColor(f.Properties.MustString("status", "")))
	}

	return img, nil
}

// Thumbnail scales img to the given width, keeping the aspect ratio.
func Thumbnail(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width <= 0 || width >= b.Dx() {
		return img
	}

	height := max(1, b.Dy()*width/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Encode writes img as lossless WebP.
func Encode(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, &webp.Options{Lossless: true})
}

// canvas maps longitude/latitude to pixels with an equirectangular
// projection scaled around the middle latitude.
type canvas struct {
	img *image.RGBA
	r   *vector.Rasterizer

	minX, minY float64
	kx         float64 // longitude shrink at the middle latitude
	scale      float64
	offX, offY float64
}

func newCanvas(img *image.RGBA, b orb.Bound, projected bool) *canvas {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	kx := 1.0
	if !projected {
		kx = math.Cos((b.Min.Y() + b.Max.Y()) / 2 * math.Pi / 180)
	}
	spanX := math.Max((b.Max.X()-b.Min.X())*kx, 1e-9)
	spanY := math.Max(b.Max.Y()-b.Min.Y(), 1e-9)

	availX, availY := float64(w-2*padding), float64(h-2*padding)
	scale := math.Min(availX/spanX, availY/spanY)

	return &canvas{
		img:   img,
		r:     vector.NewRasterizer(w, h),
		minX:  b.Min.X(),
		minY:  b.Min.Y(),
		kx:    kx,
		scale: scale,
		offX:  padding + (availX-spanX*scale)/2,
		offY:  padding + (availY-spanY*scale)/2,
	}
}

func geographic(b orb.Bound) bool {
	return b.Min.X() >= -180 && b.Max.X() <= 180 && b.Min.Y() >= -90 && b.Max.Y() <= 90
}

func (cv *canvas) pixel(p orb.Point) (float32, float32) {
	x := cv.offX + (p.X()-cv.minX)*cv.kx*cv.scale
	y := cv.offY + (p.Y()-cv.minY)*cv.scale
	h := float64(cv.img.Bounds().Dy())
	return float32(x), float32(h - y)
}

func (cv *canvas) fill(g orb.Geometry, c color.NRGBA) {
	cv.r.Reset(cv.img.Bounds().Dx(), cv.img.Bounds().Dy())
	cv.path(g)
	cv.r.Draw(cv.img, cv.img.Bounds(), image.NewUniform(c), image.Point{})
}

func (cv *canvas) path(g orb.Geometry) {
	switch v := g.(type) {
	case orb.Point:
		cv.square(v)
	case orb.MultiPoint:
		for _, p := range v {
			cv.square(p)
		}
	case orb.LineString:
		cv.line(v)
	case orb.MultiLineString:
		for _, ls := range v {
			cv.line(ls)
		}
	case orb.Ring:
		cv.ring(v)
	case orb.Polygon:
		for _, r := range v {
			cv.ring(r)
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			for _, r := range poly {
				cv.ring(r)
			}
		}
	case orb.Collection:
		for _, child := range v {
			cv.path(child)
		}
	}
}

func (cv *canvas) ring(r orb.Ring) {
	if len(r) < 3 {
		return
	}

	x, y := cv.pixel(r[0])
	cv.r.MoveTo(x, y)
	for _, p := range r[1:] {
		x, y = cv.pixel(p)
		cv.r.LineTo(x, y)
	}
	cv.r.ClosePath()
}

func (cv *canvas) square(p orb.Point) {
	x, y := cv.pixel(p)
	const d = pointWidth / 2

	cv.r.MoveTo(x-d, y-d)
	cv.r.LineTo(x+d, y-d)
	cv.r.LineTo(x+d, y+d)
	cv.r.LineTo(x-d, y+d)
	cv.r.ClosePath()
}

// line strokes each segment as a thin quad.
func (cv *canvas) line(ls orb.LineString) {
	for i := 1; i < len(ls); i++ {
		x0, y0 := cv.pixel(ls[i-1])
		x1, y1 := cv.pixel(ls[i])

		dx, dy := x1-x0, y1-y0
		length := float32(math.Hypot(float64(dx), float64(dy)))
		if length == 0 {
			continue
		}
		nx, ny := -dy/length*lineWidth/2, dx/length*lineWidth/2

		cv.r.MoveTo(x0+nx, y0+ny)
		cv.r.LineTo(x1+nx, y1+ny)
		cv.r.LineTo(x1-nx, y1-ny)
		cv.r.LineTo(x0-nx, y0-ny)
		cv.r.ClosePath()
	}
}
