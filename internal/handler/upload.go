package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wardrobe-planner/internal/service"
)

// MaxImageBytes caps a garment image.
const MaxImageBytes = 10 << 20

// imageFormField is the multipart field carrying the garment image.
const imageFormField = "image"

// Both the file extension and the declared MIME type must name one of
// these formats.  heic/heif cover photos taken on phones.
var allowedImageTypes = regexp.MustCompile(`jpeg|jpg|png|gif|heic|heif`)

var errImageType = badRequest("only image files can be uploaded (jpeg, jpg, png, gif, heic, heif)")

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// readImage returns the uploaded image, or nil when the request carries
// none.
func readImage(c echo.Context) (*service.ImageUpload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	fh, err := c.FormFile(imageFormField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, badRequest("invalid multipart body")
	}
	if fh.Size > MaxImageBytes {
		return nil, tooLarge()
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	mime := strings.ToLower(fh.Header.Get(echo.HeaderContentType))
	if !allowedImageTypes.MatchString(ext) || !strings.HasPrefix(mime, "image/") || !allowedImageTypes.MatchString(mime) {
		return nil, errImageType
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, tooLarge()
	}
	return &service.ImageUpload{Filename: fh.Filename, ContentType: mime, Data: data}, nil
}

func tooLarge() error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image must be 10MB or smaller")
}
