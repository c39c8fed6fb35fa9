package media

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// LocalStore writes transformed images under a directory served by the API
// itself. It applies the crop locally, so the returned URL needs no rewrite.
type LocalStore struct {
	dir       string
	publicURL string
}

func NewLocalStore(dir, publicURL string) *LocalStore {
	return &LocalStore{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Dir is the root the store writes into.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Upload(ctx context.Context, path string, opts UploadOptions) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !FormatAllowed(path, opts.AllowedFormats) {
		return Result{}, ErrUnsupportedFormat
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}
	if opts.Transform.Width > 0 && opts.Transform.Height > 0 {
		img = applyTransform(img, opts.Transform)
	}

	ext := strings.ToLower(filepath.Ext(path))
	format := strings.TrimPrefix(ext, ".")
	if format == "jpeg" {
		format, ext = "jpg", ".jpg"
	}

	name := uuid.NewString() + ext
	folder := filepath.Clean("/" + opts.Folder)
	targetDir := filepath.Join(s.dir, folder)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create media dir: %w", err)
	}
	target := filepath.Join(targetDir, name)
	if err := imaging.Save(img, target, imaging.JPEGQuality(90)); err != nil {
		return Result{}, fmt.Errorf("save image: %w", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return Result{}, fmt.Errorf("stat image: %w", err)
	}

	publicID := strings.TrimPrefix(filepath.ToSlash(filepath.Join(folder, strings.TrimSuffix(name, ext))), "/")
	bounds := img.Bounds()
	return Result{
		PublicID:  publicID,
		SecureURL: s.publicURL + "/" + publicID + ext,
		Format:    format,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Bytes:     info.Size(),
	}, nil
}

func applyTransform(img image.Image, t Transform) image.Image {
	switch t.Crop {
	case "fit", "limit":
		return imaging.Fit(img, t.Width, t.Height, imaging.Lanczos)
	case "scale":
		return imaging.Resize(img, t.Width, t.Height, imaging.Lanczos)
	default:
		return imaging.Fill(img, t.Width, t.Height, anchorFor(t.Gravity), imaging.Lanczos)
	}
}

// anchorFor maps a gravity name to a crop anchor. "auto" has no local
// equivalent and falls back to the centre.
func anchorFor(gravity string) imaging.Anchor {
	switch gravity {
	case "north":
		return imaging.Top
	case "south":
		return imaging.Bottom
	case "east":
		return imaging.Right
	case "west":
		return imaging.Left
	case "north_east":
		return imaging.TopRight
	case "north_west":
		return imaging.TopLeft
	case "south_east":
		return imaging.BottomRight
	case "south_west":
		return imaging.BottomLeft
	default:
		return imaging.Center
	}
}
