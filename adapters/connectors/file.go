// Package connectors provides catalog access implementations. The file
// connector serves stars from a local directory of light curve files and
// doubles as the test double for remote catalogs.
package connectors

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lcsweep/domain/star"
	"lcsweep/internal"
	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// DefaultExtension is the light curve file suffix loaded when a query does
// not name one.
const DefaultExtension = ".dat"

// FileConnector serves stars from a directory of column-formatted light
// curve files. Recognized query keys: "path" (directory, required),
// "extension", "starts_with" (file name prefix), plus the cone search
// keys "ra", "dec", "delta" and "nearest".
type FileConnector struct {
	Log *internal.Logger
}

// NewFileConnector builds the connector.
func NewFileConnector() *FileConnector {
	return &FileConnector{Log: internal.DefaultLogger}
}

func (c *FileConnector) Name() string { return "FileManager" }

func (c *FileConnector) GetStars(ctx context.Context, queries []ports.Query, loadLC bool) ([]*star.Star, error) {
	var out []*star.Star
	for _, q := range queries {
		stars, err := c.GetStar(ctx, q, loadLC)
		if err != nil {
			return nil, err
		}
		out = append(out, stars...)
	}
	return out, nil
}

func (c *FileConnector) GetStar(ctx context.Context, q ports.Query, loadLC bool) ([]*star.Star, error) {
	dir, prefix, ext, err := parseFileQuery(q)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.InvalidFilesPath(dir, err)
	}

	var stars []*star.Star
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) || !strings.HasPrefix(name, prefix) {
			continue
		}
		s, err := c.loadStar(filepath.Join(dir, name), loadLC)
		if err != nil {
			c.Log.Warn("[FileManager] Skipping %s: %v", name, err)
			continue
		}
		stars = append(stars, s)
	}

	return applyConeSearch(q, stars)
}

func parseFileQuery(q ports.Query) (dir, prefix, ext string, err error) {
	dirVal, ok := q["path"].(string)
	if !ok || dirVal == "" {
		return "", "", "", errors.QueryInput("file connector query needs a 'path' key")
	}
	for key := range q {
		switch key {
		case "path", "extension", "starts_with", "ra", "dec", "delta", "nearest":
		default:
			return "", "", "", errors.QueryInputf("file connector does not recognize query key %q", key)
		}
	}
	ext = DefaultExtension
	if v, ok := q["extension"].(string); ok && v != "" {
		ext = v
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
	}
	prefix, _ = q["starts_with"].(string)
	return dirVal, prefix, ext, nil
}

// loadStar reads a column-formatted light curve file: whitespace separated
// time, magnitude and optional error columns, '#' comments. The star name
// comes from the file name.
func (c *FileConnector) loadStar(path string, loadLC bool) (*star.Star, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s := star.New(name)
	s.AddIdentity("FileManager", star.Identity{
		Name:    name,
		DBIdent: map[string]string{"path": path},
	})
	if !loadLC {
		return s, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.InvalidFilesPath(path, err)
	}
	defer f.Close()

	var times, mags, errs []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errors.InvalidFile(fmt.Sprintf("light curve row %q has fewer than two columns", line))
		}
		t, err1 := strconv.ParseFloat(fields[0], 64)
		m, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			return nil, errors.InvalidFile(fmt.Sprintf("light curve row %q is not numeric", line))
		}
		e := 0.0
		if len(fields) > 2 {
			e, _ = strconv.ParseFloat(fields[2], 64)
		}
		times = append(times, t)
		mags = append(mags, m)
		errs = append(errs, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "could not read light curve file")
	}

	lc, err := star.NewLightCurve(times, mags, errs, star.Meta{Origin: "FileManager"})
	if err != nil {
		return nil, err
	}
	if lc.Len() > 0 {
		s.PutLightCurve(lc)
	}
	return s, nil
}

// applyConeSearch narrows the result set when the query carries cone
// search keys.
func applyConeSearch(q ports.Query, stars []*star.Star) ([]*star.Star, error) {
	ra, okRA := queryFloat(q, "ra")
	dec, okDec := queryFloat(q, "dec")
	delta, okDelta := queryFloat(q, "delta")
	if !okRA && !okDec && !okDelta {
		return stars, nil
	}
	if !okRA || !okDec || !okDelta {
		return nil, errors.QueryInput("cone search needs all of 'ra', 'dec' and 'delta'")
	}
	center, err := star.NewCoord(ra, dec)
	if err != nil {
		return nil, err
	}
	nearest, _ := q["nearest"].(bool)
	return ConeSearch(center, stars, delta, nearest), nil
}

// ConeSearch filters candidates by angular separation from center. The
// radius is in arcseconds. With nearest only the closest match survives.
func ConeSearch(center *star.Coord, candidates []*star.Star, radiusArcsec float64, nearest bool) []*star.Star {
	radiusDeg := radiusArcsec / 3600

	var out []*star.Star
	var best *star.Star
	bestSep := math.Inf(1)
	for _, s := range candidates {
		if s.Coo == nil {
			continue
		}
		sep := center.Separation(s.Coo)
		if sep > radiusDeg {
			continue
		}
		if sep < bestSep {
			best = s
			bestSep = sep
		}
		out = append(out, s)
	}
	if nearest {
		if best == nil {
			return nil
		}
		return []*star.Star{best}
	}
	return out
}

func queryFloat(q ports.Query, key string) (float64, bool) {
	switch v := q[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
