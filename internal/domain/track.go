package domain

import (
	"math"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
)

// DefaultMinAgeHours is the minimum track lifetime kept by DefaultTrackFilter.
const DefaultMinAgeHours = 36

// TrackPoint is one fix of a tropical-cyclone track (observed best track or
// TC-like vortex from a climate model).
type TrackPoint struct {
	TrackID   string    `json:"num"`
	Time      time.Time `json:"time"`
	Lon       float64   `json:"lon"`
	Lat       float64   `json:"lat"`
	PMin      float64   `json:"pmin"`                // central pressure, hPa
	POCI      float64   `json:"poci"`                // pressure of outermost closed isobar, hPa
	Vorticity float64   `json:"vorticity,omitempty"` // model vortices only
}

// PressureDeficit returns Δp = POCI − PMin in hPa.
func (p TrackPoint) PressureDeficit() float64 {
	return p.POCI - p.PMin
}

// Track is the time-ordered set of points sharing a TrackID.
type Track struct {
	ID     string
	Points []TrackPoint
}

// AgeHours is the time between the first and last fix.
func (t Track) AgeHours() float64 {
	if len(t.Points) < 2 {
		return 0
	}
	return t.Points[len(t.Points)-1].Time.Sub(t.Points[0].Time).Hours()
}

// LifetimeMaximum returns the largest pressure deficit along the track.
func (t Track) LifetimeMaximum() float64 {
	lmi := math.Inf(-1)
	for _, p := range t.Points {
		lmi = math.Max(lmi, p.PressureDeficit())
	}
	return lmi
}

// BoundingBox is a lon/lat rectangle. Tracks and box must share the same
// geographic coordinate system.
type BoundingBox struct {
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// Bound returns the box as an orb bound, X = lon, Y = lat.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// TrackFilter selects the tracks that contribute to a sample. Zero values
// disable the year and vorticity constraints; MinAgeHours of zero keeps
// tracks of any lifetime.
type TrackFilter struct {
	StartYear    int          `json:"start_year,omitempty"`
	EndYear      int          `json:"end_year,omitempty"`
	MinAgeHours  float64      `json:"min_age_hours"`
	MinVorticity float64      `json:"min_vorticity,omitempty"`
	Domain       *BoundingBox `json:"domain,omitempty"`
}

// DefaultTrackFilter keeps tracks that live at least 36 hours.
func DefaultTrackFilter() TrackFilter {
	return TrackFilter{MinAgeHours: DefaultMinAgeHours}
}

// GroupTracks groups points by TrackID, keeping first-seen order of tracks
// and sorting each track's points by time.
func GroupTracks(points []TrackPoint) []Track {
	index := make(map[string]int)
	var tracks []Track
	for _, p := range points {
		i, ok := index[p.TrackID]
		if !ok {
			i = len(tracks)
			index[p.TrackID] = i
			tracks = append(tracks, Track{ID: p.TrackID})
		}
		tracks[i].Points = append(tracks[i].Points, p)
	}
	for i := range tracks {
		pts := tracks[i].Points
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].Time.Before(pts[b].Time) })
	}
	return tracks
}

// FilterTracks groups points into tracks and keeps those passing the filter.
func FilterTracks(points []TrackPoint, f TrackFilter) []Track {
	var kept []Track
	for _, t := range GroupTracks(points) {
		if f.keep(t) {
			kept = append(kept, t)
		}
	}
	return kept
}

func (f TrackFilter) keep(t Track) bool {
	if len(t.Points) == 0 {
		return false
	}
	first, last := t.Points[0], t.Points[len(t.Points)-1]
	if f.StartYear != 0 && first.Time.Year() < f.StartYear {
		return false
	}
	if f.EndYear != 0 && last.Time.Year() > f.EndYear {
		return false
	}
	if t.AgeHours() < f.MinAgeHours {
		return false
	}
	if f.MinVorticity > 0 && math.Abs(minVorticity(t)) <= f.MinVorticity {
		return false
	}
	if f.Domain != nil && !intersects(t, *f.Domain) {
		return false
	}
	return true
}

func minVorticity(t Track) float64 {
	v := math.Inf(1)
	for _, p := range t.Points {
		v = math.Min(v, p.Vorticity)
	}
	return v
}

// LifetimeMaxima returns the LMI pressure deficit of each track, in track
// order. Tracks whose LMI is not positive are dropped.
func LifetimeMaxima(tracks []Track) []float64 {
	out := make([]float64, 0, len(tracks))
	for _, t := range tracks {
		if lmi := t.LifetimeMaximum(); lmi > 0 {
			out = append(out, lmi)
		}
	}
	return out
}

// intersects reports whether the track polyline touches the box. Single-fix
// tracks never intersect.
func intersects(t Track, b BoundingBox) bool {
	if len(t.Points) < 2 {
		return false
	}
	bound := b.Bound()
	line := make(orb.LineString, len(t.Points))
	for i, p := range t.Points {
		line[i] = orb.Point{p.Lon, p.Lat}
		if bound.Contains(line[i]) {
			return true
		}
	}
	return len(clip.LineString(bound, line)) > 0
}
