// Package filemgr stores uploaded event photos on local disk together with a
// thumbnail for listing cards.
package filemgr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"eventtts/models"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

// Store writes under Root and hands back URLs under PublicPrefix.
type Store struct {
	Root         string
	PublicPrefix string
}

func NewStore(root string) *Store {
	return &Store{Root: root, PublicPrefix: "/uploads"}
}

// Saved holds the public URLs of a stored photo.
type Saved struct {
	Photo     string `json:"photo"`
	Thumbnail string `json:"thumbnail"`
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", models.ErrValidation, err)
}

// SavePhoto validates an uploaded image, re-encodes it as JPEG without its
// metadata and writes a fixed-size thumbnail next to it.
func (s *Store) SavePhoto(r io.Reader, filename string) (*Saved, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(AllowedExtensions[PicPhoto], ext) {
		return nil, invalid(fmt.Errorf("%w: %q", ErrInvalidExtension, ext))
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, invalid(ErrFileTooLarge)
	}
	mimeType := http.DetectContentType(data)
	if !slices.Contains(AllowedMIMEs[PicPhoto], mimeType) {
		return nil, invalid(fmt.Errorf("%w: %s", ErrInvalidMIME, mimeType))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, invalid(ErrBadImage)
	}
	if b := img.Bounds(); b.Dx() > maxDimension || b.Dy() > maxDimension {
		return nil, invalid(fmt.Errorf("image dimensions %dx%d exceed %dx%d", b.Dx(), b.Dy(), maxDimension, maxDimension))
	}

	name := uuid.NewString() + ".jpg"
	if err := s.write(PicPhoto, name, img); err != nil {
		return nil, err
	}
	thumb := imaging.Fill(img, thumbWidth, thumbHeight, imaging.Center, imaging.Lanczos)
	if err := s.write(PicThumb, name, thumb); err != nil {
		return nil, err
	}

	zap.L().Info("photo stored", zap.String("file", name), zap.Int("bytes", len(data)), zap.String("mime", mimeType))
	return &Saved{
		Photo:     path.Join(s.PublicPrefix, PictureSubfolders[PicPhoto], name),
		Thumbnail: path.Join(s.PublicPrefix, PictureSubfolders[PicThumb], name),
	}, nil
}

func (s *Store) write(kind PictureType, name string, img image.Image) error {
	dir := filepath.Join(s.Root, PictureSubfolders[kind])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer out.Close()
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return nil
}
