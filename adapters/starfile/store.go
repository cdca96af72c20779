// Package starfile persists stars as self-contained records on disk: one
// file per star with an identity header and one extension per light curve.
package starfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"lcsweep/domain/star"
	"lcsweep/internal"
	"lcsweep/internal/errors"
)

const fileExtension = ".star.json"

// container is the on-disk shape: a header plus light curve extensions.
type container struct {
	Header     header      `json:"header"`
	Extensions []extension `json:"extensions"`
}

type header struct {
	Name      string                   `json:"name"`
	Ident     map[string]identEntry    `json:"ident"`
	Coo       *cooEntry                `json:"coo,omitempty"`
	StarClass string                   `json:"star_class,omitempty"`
	More      map[string]interface{}   `json:"more,omitempty"`
}

type identEntry struct {
	Name    string            `json:"name"`
	DBIdent map[string]string `json:"db_ident,omitempty"`
}

type cooEntry struct {
	RA   float64 `json:"ra"`
	Dec  float64 `json:"dec"`
	Unit string  `json:"unit"`
}

type extension struct {
	Times []float64 `json:"time"`
	Mags  []float64 `json:"mag"`
	Errs  []float64 `json:"err"`
	Meta  metaEntry `json:"meta"`
}

type metaEntry struct {
	XLabel      string `json:"xlabel"`
	XLabelUnit  string `json:"xlabel_unit"`
	YLabel      string `json:"ylabel"`
	YLabelUnit  string `json:"ylabel_unit"`
	Color       string `json:"color"`
	Origin      string `json:"origin,omitempty"`
	InvertYAxis bool   `json:"invert_yaxis"`
}

// Store is a directory-backed star store: stars land under
// <root>/<job>/<star name>.star.json. Saves replace atomically, so a
// retried task overwrites cleanly without corrupting readers.
type Store struct {
	Root string
	Log  *internal.Logger
}

// NewStore builds a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Root: dir, Log: internal.DefaultLogger}
}

func (st *Store) Save(ctx context.Context, job string, s *star.Star) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(st.Root, job)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.InvalidFilesPath(dir, err)
	}

	data, err := json.MarshalIndent(encode(s), "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode star "+s.Name)
	}

	path := filepath.Join(dir, safeName(s.Name)+fileExtension)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.InvalidFilesPath(tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.InvalidFilesPath(path, err)
	}
	st.Log.Debug("[StarFile] Saved %s to %s", s.Name, path)
	return nil
}

func (st *Store) List(ctx context.Context, job string) ([]*star.Star, error) {
	dir := filepath.Join(st.Root, job)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.InvalidFilesPath(dir, err)
	}

	var stars []*star.Star
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExtension) {
			continue
		}
		s, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			st.Log.Warn("[StarFile] Skipping %s: %v", entry.Name(), err)
			continue
		}
		stars = append(stars, s)
	}
	return stars, nil
}

// Load reads one persisted star record.
func Load(path string) (*star.Star, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidFilesPath(path, err)
	}
	var c container
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.InvalidFile("star record " + path + " is not valid: " + err.Error())
	}
	return decode(&c)
}

func encode(s *star.Star) *container {
	c := &container{
		Header: header{
			Name:      s.Name,
			Ident:     map[string]identEntry{},
			StarClass: s.StarClass,
			More:      s.More,
		},
	}
	for catalog, id := range s.Ident {
		c.Header.Ident[catalog] = identEntry{Name: id.Name, DBIdent: id.DBIdent}
	}
	if s.Coo != nil {
		c.Header.Coo = &cooEntry{RA: s.Coo.RA, Dec: s.Coo.Dec, Unit: "deg"}
	}
	for _, lc := range s.LightCurves {
		c.Extensions = append(c.Extensions, extension{
			Times: lc.Times,
			Mags:  lc.Mags,
			Errs:  lc.Errs,
			Meta: metaEntry{
				XLabel:      lc.Meta.XLabel,
				XLabelUnit:  lc.Meta.XLabelUnit,
				YLabel:      lc.Meta.YLabel,
				YLabelUnit:  lc.Meta.YLabelUnit,
				Color:       lc.Meta.Color,
				Origin:      lc.Meta.Origin,
				InvertYAxis: lc.Meta.InvertYAxis,
			},
		})
	}
	return c
}

func decode(c *container) (*star.Star, error) {
	s := star.New(c.Header.Name)
	s.StarClass = c.Header.StarClass
	if c.Header.More != nil {
		s.More = c.Header.More
	}
	for catalog, id := range c.Header.Ident {
		s.AddIdentity(catalog, star.Identity{Name: id.Name, DBIdent: id.DBIdent})
	}
	if c.Header.Coo != nil {
		coo, err := star.NewCoord(c.Header.Coo.RA, c.Header.Coo.Dec)
		if err != nil {
			return nil, err
		}
		s.Coo = coo
	}
	for _, ext := range c.Extensions {
		lc, err := star.NewLightCurve(ext.Times, ext.Mags, ext.Errs, star.Meta{
			XLabel:      ext.Meta.XLabel,
			XLabelUnit:  ext.Meta.XLabelUnit,
			YLabel:      ext.Meta.YLabel,
			YLabelUnit:  ext.Meta.YLabelUnit,
			Color:       ext.Meta.Color,
			Origin:      ext.Meta.Origin,
			InvertYAxis: ext.Meta.InvertYAxis,
		})
		if err != nil {
			return nil, err
		}
		s.AddLightCurve(lc)
	}
	return s, nil
}

func safeName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_")
	return replacer.Replace(name)
}
