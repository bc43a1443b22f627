package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/anjiri1684/training_academy/models"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUploadsDisabled = errors.New("image uploads are not configured")

type ImageStore interface {
	Upload(ctx context.Context, r io.Reader, publicID string) (string, error)
	SignUpload(now time.Time) (*UploadSignature, error)
}

// UploadSignature lets a browser upload straight to the image host.
type UploadSignature struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
}

type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore returns nil when url is empty.
func NewCloudinaryStore(url, folder string) (*CloudinaryStore, error) {
	if url == "" {
		return nil, nil
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (c *CloudinaryStore) Upload(ctx context.Context, r io.Reader, publicID string) (string, error) {
	overwrite := true
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:    c.folder,
		PublicID:  publicID,
		Overwrite: &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload image: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

func (c *CloudinaryStore) SignUpload(now time.Time) (*UploadSignature, error) {
	params, err := api.StructToParams(uploader.UploadParams{Folder: c.folder})
	if err != nil {
		return nil, fmt.Errorf("prepare upload params: %w", err)
	}
	ts := now.Unix()
	params.Set("timestamp", strconv.FormatInt(ts, 10))

	sig, err := api.SignParameters(params, c.cld.Config.Cloud.APISecret)
	if err != nil {
		return nil, fmt.Errorf("sign upload params: %w", err)
	}
	return &UploadSignature{
		Signature: sig,
		Timestamp: ts,
		APIKey:    c.cld.Config.Cloud.APIKey,
		CloudName: c.cld.Config.Cloud.CloudName,
		Folder:    c.folder,
	}, nil
}

// SetSessionImage uploads an image and records its URL on the session.
func SetSessionImage(ctx context.Context, db *gorm.DB, store ImageStore, sessionID uuid.UUID, r io.Reader, alt string) (*models.Session, error) {
	if store == nil {
		return nil, ErrUploadsDisabled
	}
	var session models.Session
	err := db.WithContext(ctx).First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	url, err := store.Upload(ctx, r, "session-"+sessionID.String())
	if err != nil {
		return nil, err
	}
	session.ImageURL = &url
	if alt != "" {
		session.ImageAlt = &alt
	}
	err = db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", session.ID).
		Updates(map[string]any{"image_url": session.ImageURL, "image_alt": session.ImageAlt}).Error
	if err != nil {
		return nil, fmt.Errorf("save session image: %w", err)
	}
	return &session, nil
}
