package media

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "poster.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLocalStoreUploadFillsEventCard(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "http://localhost:8080/media/")
	src := writePNG(t, 800, 800)

	result, err := store.Upload(context.Background(), src, UploadOptions{
		Folder:         "localhub/events",
		Transform:      EventCard,
		AllowedFormats: DefaultAllowedFormats,
	})
	require.NoError(t, err)
	require.Equal(t, 400, result.Width)
	require.Equal(t, 250, result.Height)
	require.Equal(t, "png", result.Format)
	require.True(t, strings.HasPrefix(result.SecureURL, "http://localhost:8080/media/localhub/events/"))
	require.True(t, strings.HasPrefix(result.PublicID, "localhub/events/"))

	stored := filepath.Join(dir, filepath.FromSlash(result.PublicID)+".png")
	img, err := imaging.Open(stored)
	require.NoError(t, err)
	require.Equal(t, 400, img.Bounds().Dx())
	require.Equal(t, 250, img.Bounds().Dy())

	// Local URLs carry no /upload/ segment, so rewriting leaves them alone.
	require.Equal(t, result.SecureURL, RewriteURL(result.SecureURL, EventCard))
}

func TestLocalStoreRejectsFormat(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "http://localhost/media")
	path := filepath.Join(t.TempDir(), "anim.gif")
	require.NoError(t, os.WriteFile(path, []byte("GIF89a"), 0o600))

	_, err := store.Upload(context.Background(), path, UploadOptions{AllowedFormats: DefaultAllowedFormats})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLocalStoreFolderCannotEscape(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "http://localhost/media")
	src := writePNG(t, 50, 50)

	result, err := store.Upload(context.Background(), src, UploadOptions{Folder: "../../etc"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result.PublicID, "etc/"))
	_, err = os.Stat(filepath.Join(dir, "etc"))
	require.NoError(t, err)
}

func TestLocalStoreCorruptImage(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "http://localhost/media")
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o600))

	_, err := store.Upload(context.Background(), path, UploadOptions{Transform: EventCard})
	require.ErrorContains(t, err, "decode image")
}
