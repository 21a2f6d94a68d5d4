package admin

import (
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/taskwire/internal/archive"
	"github.com/danmuck/taskwire/internal/descriptor"
	"github.com/danmuck/taskwire/internal/parcel"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TypeView is the JSON shape of one registry entry.
type TypeView struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
	Type string `json:"type"`
	Size uint64 `json:"size"`
}

// ParcelView is the JSON shape of an inspected parcel.
type ParcelView struct {
	ID          string     `json:"id"`
	Tag         string     `json:"tag"`
	Type        string     `json:"type,omitempty"`
	Registered  bool       `json:"registered"`
	Version     uint32     `json:"version"`
	Mode        string     `json:"mode"`
	Compression string     `json:"compression"`
	BodyBytes   uint32     `json:"body_bytes"`
	RawBytes    uint32     `json:"raw_bytes"`
	Attrs       []AttrView `json:"attrs,omitempty"`
}

type AttrView struct {
	ID    uint16 `json:"id"`
	Type  uint8  `json:"type"`
	Value string `json:"value"`
}

func viewOf(e descriptor.Entry) TypeView {
	return TypeView{Name: e.Name, Tag: e.Tag.String(), Type: e.Type.String(), Size: uint64(e.Size)}
}

// InspectView builds the parcel summary shared by the HTTP route and the CLI.
func InspectView(reg *descriptor.Registry, h parcel.Header, attrs []parcel.Attr) ParcelView {
	view := ParcelView{
		ID:          h.ID.String(),
		Tag:         h.Tag.String(),
		Version:     h.Version,
		Mode:        h.Mode.String(),
		Compression: h.Compression.String(),
		BodyBytes:   h.BodyLen,
		RawBytes:    h.RawLen,
	}
	if entry, ok := reg.Entry(h.Tag); ok {
		view.Type = entry.Name
		view.Registered = true
	}
	for _, a := range attrs {
		av := AttrView{ID: a.ID, Type: a.Type}
		switch a.Type {
		case parcel.AttrTypeString:
			av.Value, _ = a.Text()
		case parcel.AttrTypeU64:
			if v, err := a.Uint64(); err == nil {
				av.Value = strconv.FormatUint(v, 10)
			}
		default:
			av.Value = hex.EncodeToString(a.Value)
		}
		view.Attrs = append(view.Attrs, av)
	}
	return view
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"service": "taskwire",
			"version": Version,
			"archive": archive.ActiveMode().String(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/types", func(c *gin.Context) {
		entries := s.Registry.Entries()
		views := make([]TypeView, 0, len(entries))
		for _, e := range entries {
			views = append(views, viewOf(e))
		}
		c.JSON(http.StatusOK, gin.H{"types": views})
	})

	s.router.GET("/types/:name", func(c *gin.Context) {
		d, err := s.Registry.LookupName(c.Param("name"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		tag, _ := s.Registry.TagOf(d)
		entry, _ := s.Registry.Entry(tag)
		c.JSON(http.StatusOK, viewOf(entry))
	})

	s.router.POST("/inspect", func(c *gin.Context) {
		limits := s.Limits
		if limits.MaxPayloadBytes == 0 {
			limits = parcel.DefaultLimits()
		}
		body := http.MaxBytesReader(c.Writer, c.Request.Body, int64(parcel.HeaderLen)+int64(limits.MaxPayloadBytes))
		data, err := io.ReadAll(body)
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		h, attrs, err := parcel.Inspect(data, limits)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, parcel.ErrPayloadTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, InspectView(s.Registry, h, attrs))
	})
}
