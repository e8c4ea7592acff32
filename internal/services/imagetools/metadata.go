package imagetools

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	exif "github.com/dsoprea/go-exif/v3"
)

// Tag is one flattened EXIF entry.
type Tag struct {
	IFD   string `json:"ifd"`
	Name  string `json:"name"`
	Value string `json:"value"`
	// Sensitive marks tags that can identify a place, device or person.
	Sensitive bool `json:"sensitive"`
}

// Metadata summarises an image and its EXIF block.
type Metadata struct {
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	HasEXIF   bool   `json:"has_exif"`
	HasGPS    bool   `json:"has_gps"`
	HasDevice bool   `json:"has_device"`
	Tags      []Tag  `json:"tags"`
}

var sensitiveTags = map[string]bool{
	"GPSLatitude": true, "GPSLongitude": true, "GPSLatitudeRef": true,
	"GPSLongitudeRef": true, "GPSAltitude": true,
	"Make": true, "Model": true,
	"SerialNumber": true, "CameraSerialNumber": true, "BodySerialNumber": true,
	"LensSerialNumber": true,
	"Artist":           true, "Author": true, "Copyright": true, "XPAuthor": true,
}

// ReadMetadata reports dimensions and the EXIF tags of data. An image
// without EXIF is not an error.
func ReadMetadata(data []byte) (Metadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	md := Metadata{Format: format, Width: cfg.Width, Height: cfg.Height, Tags: []Tag{}}

	raw, err := exif.SearchAndExtractExif(data)
	if errors.Is(err, exif.ErrNoExif) || (err == nil && raw == nil) {
		return md, nil
	}
	if err != nil {
		return md, fmt.Errorf("failed to locate EXIF data: %w", err)
	}

	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return md, fmt.Errorf("failed to parse EXIF data: %w", err)
	}

	md.HasEXIF = true
	for _, e := range entries {
		tag := Tag{IFD: e.IfdPath, Name: e.TagName, Value: e.Formatted, Sensitive: sensitiveTags[e.TagName]}
		switch e.TagName {
		case "GPSLatitude", "GPSLongitude":
			md.HasGPS = true
		case "Make", "Model":
			md.HasDevice = true
		}
		md.Tags = append(md.Tags, tag)
	}
	return md, nil
}
