package config

import (
	"github.com/danmuck/taskwire/internal/archive"
	"github.com/danmuck/taskwire/internal/parcel"
)

// ParcelLimits converts the configured bounds for parcel.Decode.
func (c Config) ParcelLimits() parcel.Limits {
	return parcel.Limits{
		MaxPayloadBytes: c.Parcel.MaxPayloadBytes,
		Archive:         archive.Limits{MaxRecordBytes: c.Archive.MaxRecordBytes},
	}
}

// PackOptions converts the configured save settings for parcel.Pack.
// Validate has already rejected unknown compressions.
func (c Config) PackOptions(attrs ...parcel.Attr) parcel.Options {
	comp, _ := parcel.ParseCompression(c.Parcel.Compression)
	return parcel.Options{
		Version:     c.Archive.Version,
		Compression: comp,
		Attrs:       attrs,
	}
}
