// Package star defines the core data model: stars with multi-catalog
// identities and their cleaned photometric light curves.
package star

import (
	"fmt"
	"math"

	"lcsweep/internal/errors"
)

// CoordEps is the angular separation (degrees) under which two stars are
// considered to occupy the same position.
const CoordEps = 5e-4

// Coord is a celestial position. Both components are in degrees.
type Coord struct {
	RA  float64
	Dec float64
}

// NewCoord validates and builds a coordinate pair.
func NewCoord(ra, dec float64) (*Coord, error) {
	if math.IsNaN(ra) || math.IsInf(ra, 0) || math.IsNaN(dec) || math.IsInf(dec, 0) {
		return nil, errors.StarAttribute(fmt.Sprintf("coordinate components must be finite, got (%v, %v)", ra, dec))
	}
	return &Coord{RA: ra, Dec: dec}, nil
}

// Separation returns the angular distance to other in degrees, with the
// right ascension axis compressed by cos(dec).
func (c *Coord) Separation(other *Coord) float64 {
	dRA := (c.RA - other.RA) * math.Cos(c.Dec*math.Pi/180)
	dDec := c.Dec - other.Dec
	return math.Sqrt(dRA*dRA + dDec*dDec)
}

// Identity is one catalog's view of a star: its catalog-native name and the
// key set needed to query that catalog for it again.
type Identity struct {
	Name    string
	DBIdent map[string]string
}

// Star is an astronomical object carrying identities in one or more
// catalogs, an optional position, arbitrary scalar attributes and any number
// of light curves. Stars must not be used as map keys; compare them with
// IdentityMatches or Near instead.
type Star struct {
	Name      string
	Ident     map[string]Identity
	Coo       *Coord
	More      map[string]interface{}
	StarClass string

	LightCurves []*LightCurve
}

// New builds a star with empty identity and attribute maps.
func New(name string) *Star {
	return &Star{
		Name:  name,
		Ident: map[string]Identity{},
		More:  map[string]interface{}{},
	}
}

// AddIdentity records the star's identity in the given catalog.
func (s *Star) AddIdentity(catalog string, id Identity) {
	if s.Ident == nil {
		s.Ident = map[string]Identity{}
	}
	s.Ident[catalog] = id
	if s.Name == "" {
		s.Name = id.Name
	}
}

// IdentityMatches reports whether both stars carry the same identity in at
// least one shared catalog: an equal catalog-native name, or an equal
// non-empty db_ident key set.
func (s *Star) IdentityMatches(other *Star) bool {
	for catalog, id := range s.Ident {
		oid, ok := other.Ident[catalog]
		if !ok {
			continue
		}
		if id.Name != "" && id.Name == oid.Name {
			return true
		}
		if len(id.DBIdent) > 0 && len(id.DBIdent) == len(oid.DBIdent) {
			same := true
			for k, v := range id.DBIdent {
				if oid.DBIdent[k] != v {
					same = false
					break
				}
			}
			if same {
				return true
			}
		}
	}
	return false
}

// Near reports whether both stars have coordinates within eps degrees of
// each other. Pass eps <= 0 to use CoordEps.
func (s *Star) Near(other *Star, eps float64) bool {
	if s.Coo == nil || other.Coo == nil {
		return false
	}
	if eps <= 0 {
		eps = CoordEps
	}
	return s.Coo.Separation(other.Coo) < eps
}

// LightCurve returns the star's primary light curve, nil if none is attached.
func (s *Star) LightCurve() *LightCurve {
	if len(s.LightCurves) == 0 {
		return nil
	}
	return s.LightCurves[0]
}

// PutLightCurve attaches lc as the star's primary light curve, displacing
// any existing curves.
func (s *Star) PutLightCurve(lc *LightCurve) {
	if lc == nil {
		return
	}
	s.LightCurves = []*LightCurve{lc}
}

// AddLightCurve appends lc to the star's curve list.
func (s *Star) AddLightCurve(lc *LightCurve) {
	if lc == nil {
		return
	}
	s.LightCurves = append(s.LightCurves, lc)
}

// MoreFloat looks up a numeric attribute in the More map, accepting float64
// and int values. The second return is false when the key is absent or not
// numeric.
func (s *Star) MoreFloat(key string) (float64, bool) {
	v, ok := s.More[key]
	if !ok {
		return math.NaN(), false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return math.NaN(), false
}

func (s *Star) String() string {
	if s.Coo != nil {
		return fmt.Sprintf("%s (%.5f, %.5f)", s.Name, s.Coo.RA, s.Coo.Dec)
	}
	return s.Name
}
