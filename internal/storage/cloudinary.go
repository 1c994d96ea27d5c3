package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Case files are documents, so everything goes up as the "raw" resource type.
const cloudinaryResourceType = "raw"

type CloudinaryStore struct {
	cld        *cloudinary.Cloudinary
	folder     string
	httpClient *http.Client
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not set in configuration")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary failed: %w", err)
	}
	return &CloudinaryStore{
		cld:        cld,
		folder:     strings.Trim(folder, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (s *CloudinaryStore) publicID(key string) string {
	if s.folder == "" {
		return key
	}
	return path.Join(s.folder, key)
}

func (s *CloudinaryStore) Put(ctx context.Context, key, _ string, r io.Reader) (Object, error) {
	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     s.publicID(key),
		ResourceType: cloudinaryResourceType,
	})
	if err != nil {
		return Object{}, fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return Object{}, fmt.Errorf("cloudinary upload failed: %s", res.Error.Message)
	}
	if res.PublicID == "" {
		return Object{}, fmt.Errorf("cloudinary upload returned no public id")
	}
	return Object{Key: res.PublicID, URL: res.SecureURL}, nil
}

func (s *CloudinaryStore) Open(ctx context.Context, obj Object) (io.ReadCloser, error) {
	if obj.URL == "" {
		return nil, ErrNotFound
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, obj.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build cloudinary download failed: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary download failed: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("cloudinary download status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, obj Object) error {
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     obj.Key,
		ResourceType: cloudinaryResourceType,
	})
	if err != nil {
		return fmt.Errorf("cloudinary delete failed: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary delete failed: %s", res.Error.Message)
	}
	return nil
}
