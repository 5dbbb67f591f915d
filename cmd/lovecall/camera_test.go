package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileCamera(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	cam := fileCamera(path)

	_, err := cam.Snapshot(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)

	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	img.Set(3, 4, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	got, err := cam.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 32, 16), got.Bounds())
	r, _, _, _ := got.At(3, 4).RGBA()
	require.Equal(t, uint32(0xffff), r)

	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o600))
	_, err = cam.Snapshot(context.Background())
	require.ErrorContains(t, err, "decode")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cam.Snapshot(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
