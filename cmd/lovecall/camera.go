package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/webp"

	lovecall "github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000"
)

// fileCamera reads a still image from path on every snapshot. A capture tool
// overwriting the file turns it into a live feed.
func fileCamera(path string) lovecall.Camera {
	return lovecall.CameraFunc(func(ctx context.Context) (image.Image, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return img, nil
	})
}
