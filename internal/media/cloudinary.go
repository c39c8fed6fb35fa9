package media

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	// DefaultCloudinaryBaseURL is the public upload API endpoint.
	DefaultCloudinaryBaseURL = "https://api.cloudinary.com"
	// DefaultUploadTimeout bounds a single upload request.
	DefaultUploadTimeout = 60 * time.Second
)

// CloudinaryClient uploads images through the signed upload API.
type CloudinaryClient struct {
	cld     *cloudinary.Cloudinary
	timeout time.Duration
}

type CloudinaryOption func(*CloudinaryClient)

// WithBaseURL points uploads at another API host.
func WithBaseURL(baseURL string) CloudinaryOption {
	return func(c *CloudinaryClient) {
		if baseURL != "" {
			c.cld.Upload.Config.API.UploadPrefix = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithUploadTimeout(timeout time.Duration) CloudinaryOption {
	return func(c *CloudinaryClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func NewCloudinaryClient(cloudName, apiKey, apiSecret string, opts ...CloudinaryOption) (*CloudinaryClient, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("configure cloudinary: %w", err)
	}
	client := &CloudinaryClient{cld: cld, timeout: DefaultUploadTimeout}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Upload sends the file at path with the folder, transform and format
// restriction from opts. Cloudinary applies the transform before storing.
func (c *CloudinaryClient) Upload(ctx context.Context, path string, opts UploadOptions) (Result, error) {
	// Opened here so a missing file fails locally instead of being sent as a
	// remote URL.
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := uploader.UploadParams{
		ResourceType:   "image",
		Folder:         opts.Folder,
		Transformation: opts.Transform.String(),
	}
	if len(opts.AllowedFormats) > 0 {
		params.AllowedFormats = api.CldAPIArray(opts.AllowedFormats)
	}

	resp, err := c.cld.Upload.Upload(ctx, file, params)
	if err != nil {
		return Result{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return Result{}, fmt.Errorf("cloudinary upload failed: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return Result{}, fmt.Errorf("cloudinary upload returned no secure_url")
	}

	return Result{
		PublicID:  resp.PublicID,
		SecureURL: resp.SecureURL,
		Format:    resp.Format,
		Width:     resp.Width,
		Height:    resp.Height,
		Bytes:     int64(resp.Bytes),
	}, nil
}
