package lovecall

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	SnapshotMaxWidth = 640
	SnapshotQuality  = 60
)

// Camera produces still frames of the local video feed.
type Camera interface {
	Snapshot(ctx context.Context) (image.Image, error)
}

type CameraFunc func(ctx context.Context) (image.Image, error)

func (f CameraFunc) Snapshot(ctx context.Context) (image.Image, error) {
	return f(ctx)
}

// EncodeSnapshot scales img down to at most maxWidth pixels wide and encodes
// it as JPEG.
func EncodeSnapshot(img image.Image, maxWidth, quality int) ([]byte, error) {
	b := img.Bounds()
	if maxWidth > 0 && b.Dx() > maxWidth {
		h := b.Dy() * maxWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
