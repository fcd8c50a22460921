package client

import (
	"context"
	"errors"
	"fmt"
	"os"

	"pocketchat/models"
)

// ErrPermissionDenied is returned by device sources when the user has not
// granted access to the photo library, camera or location.
var ErrPermissionDenied = errors.New("permission denied")

// ImageSource yields a local image resource, typically from the photo
// library or camera. Implementations return ErrPermissionDenied when
// access is not granted.
type ImageSource interface {
	Image(ctx context.Context) (string, error)
}

// LocationSource yields the device's current coordinates as a single fix.
// There is no continuous tracking.
type LocationSource interface {
	Current(ctx context.Context) (*models.Location, error)
}

// FileImage serves a fixed local file as the picked image.
type FileImage string

// Image returns the file path, or an error if the file is unreadable.
func (f FileImage) Image(ctx context.Context) (string, error) {
	if _, err := os.Stat(string(f)); err != nil {
		return "", fmt.Errorf("image not available: %w", err)
	}
	return string(f), nil
}

// StaticLocation reports a fixed coordinate pair.
type StaticLocation models.Location

func (s StaticLocation) Current(ctx context.Context) (*models.Location, error) {
	loc := models.Location(s)
	return &loc, nil
}
