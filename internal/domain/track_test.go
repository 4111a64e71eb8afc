package domain

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackPoints builds a two-fix track lasting hours, deepening to pmin at the
// second fix.
func trackPoints(id string, start time.Time, hours float64, poci, pmin float64) []TrackPoint {
	return []TrackPoint{
		{TrackID: id, Time: start, Lon: 150, Lat: -15, PMin: poci - 1, POCI: poci},
		{TrackID: id, Time: start.Add(time.Duration(hours * float64(time.Hour))), Lon: 152, Lat: -17, PMin: pmin, POCI: poci},
	}
}

func TestTrackPoint_PressureDeficit(t *testing.T) {
	assert.Equal(t, 25.0, TrackPoint{PMin: 980, POCI: 1005}.PressureDeficit())
}

func TestGroupTracks(t *testing.T) {
	t0 := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []TrackPoint{
		{TrackID: "b", Time: t0.Add(6 * time.Hour)},
		{TrackID: "a", Time: t0.Add(12 * time.Hour)},
		{TrackID: "b", Time: t0},
		{TrackID: "a", Time: t0},
	}

	tracks := GroupTracks(points)

	require.Len(t, tracks, 2)
	assert.Equal(t, "b", tracks[0].ID)
	assert.Equal(t, "a", tracks[1].ID)
	assert.Equal(t, t0, tracks[0].Points[0].Time)
	assert.Equal(t, 6.0, tracks[0].AgeHours())
	assert.Equal(t, 12.0, tracks[1].AgeHours())
}

func TestTrack_AgeHours_SingleFix(t *testing.T) {
	assert.Zero(t, Track{Points: []TrackPoint{{Time: time.Now()}}}.AgeHours())
}

func TestFilterTracks(t *testing.T) {
	t0 := time.Date(1995, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		points []TrackPoint
		filter TrackFilter
		want   []float64
	}{
		{
			name:   "default age threshold",
			points: append(trackPoints("a", t0, 36, 1005, 980), trackPoints("b", t0, 35, 1005, 970)...),
			filter: DefaultTrackFilter(),
			want:   []float64{25},
		},
		{
			name:   "year window",
			points: append(trackPoints("a", t0, 48, 1005, 980), trackPoints("b", t0.AddDate(10, 0, 0), 48, 1005, 970)...),
			filter: TrackFilter{StartYear: 1990, EndYear: 2000},
			want:   []float64{25},
		},
		{
			name:   "track spanning end year is excluded",
			points: trackPoints("a", time.Date(2000, 12, 31, 12, 0, 0, 0, time.UTC), 48, 1005, 980),
			filter: TrackFilter{EndYear: 2000},
			want:   []float64{},
		},
		{
			name: "vorticity threshold",
			points: func() []TrackPoint {
				strong := trackPoints("strong", t0, 48, 1005, 980)
				strong[1].Vorticity = -3e-4
				weak := trackPoints("weak", t0, 48, 1005, 990)
				weak[1].Vorticity = -1e-4
				return append(strong, weak...)
			}(),
			filter: TrackFilter{MinVorticity: 2e-4},
			want:   []float64{25},
		},
		{
			name: "non-positive deficit dropped",
			points: []TrackPoint{
				{TrackID: "a", Time: t0, PMin: 1001, POCI: 1000},
				{TrackID: "a", Time: t0.Add(48 * time.Hour), PMin: 1000, POCI: 1000},
			},
			filter: TrackFilter{},
			want:   []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LifetimeMaxima(FilterTracks(tt.points, tt.filter))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoundingBox_Bound(t *testing.T) {
	b := BoundingBox{MinLon: 140, MaxLon: 160, MinLat: -25, MaxLat: -10}.Bound()
	assert.Equal(t, orb.Point{140, -25}, b.Min)
	assert.Equal(t, orb.Point{160, -10}, b.Max)
	assert.True(t, b.Contains(orb.Point{150, -15}))
	assert.False(t, b.Contains(orb.Point{150, -5}))
}

func TestFilterTracks_Domain(t *testing.T) {
	t0 := time.Date(1995, 3, 1, 0, 0, 0, 0, time.UTC)
	box := &BoundingBox{MinLon: 140, MaxLon: 160, MinLat: -25, MaxLat: -10}

	t.Run("fix inside box", func(t *testing.T) {
		tracks := FilterTracks(trackPoints("a", t0, 48, 1005, 980), TrackFilter{Domain: box})
		assert.Len(t, tracks, 1)
	})

	t.Run("segment crosses box", func(t *testing.T) {
		points := []TrackPoint{
			{TrackID: "a", Time: t0, Lon: 130, Lat: -18, PMin: 990, POCI: 1005},
			{TrackID: "a", Time: t0.Add(48 * time.Hour), Lon: 170, Lat: -18, PMin: 980, POCI: 1005},
		}
		assert.Len(t, FilterTracks(points, TrackFilter{Domain: box}), 1)
	})

	t.Run("track outside box", func(t *testing.T) {
		points := []TrackPoint{
			{TrackID: "a", Time: t0, Lon: 100, Lat: -5, PMin: 990, POCI: 1005},
			{TrackID: "a", Time: t0.Add(48 * time.Hour), Lon: 110, Lat: -8, PMin: 980, POCI: 1005},
		}
		assert.Empty(t, FilterTracks(points, TrackFilter{Domain: box}))
	})

	t.Run("diagonal crosses box without a fix inside", func(t *testing.T) {
		points := []TrackPoint{
			{TrackID: "a", Time: t0, Lon: 135, Lat: -30, PMin: 990, POCI: 1005},
			{TrackID: "a", Time: t0.Add(24 * time.Hour), Lon: 165, Lat: -5, PMin: 980, POCI: 1005},
		}
		assert.Len(t, FilterTracks(points, TrackFilter{Domain: box}), 1)
	})

	t.Run("fix on box edge", func(t *testing.T) {
		points := []TrackPoint{
			{TrackID: "a", Time: t0, Lon: 160, Lat: -18, PMin: 990, POCI: 1005},
			{TrackID: "a", Time: t0.Add(48 * time.Hour), Lon: 175, Lat: -18, PMin: 980, POCI: 1005},
		}
		assert.Len(t, FilterTracks(points, TrackFilter{Domain: box}), 1)
	})

	t.Run("fix on box corner", func(t *testing.T) {
		points := []TrackPoint{
			{TrackID: "a", Time: t0, Lon: 170, Lat: 0, PMin: 990, POCI: 1005},
			{TrackID: "a", Time: t0.Add(48 * time.Hour), Lon: 160, Lat: -10, PMin: 980, POCI: 1005},
		}
		assert.Len(t, FilterTracks(points, TrackFilter{Domain: box}), 1)
	})

	t.Run("passes beside corner", func(t *testing.T) {
		points := []TrackPoint{
			{TrackID: "a", Time: t0, Lon: 165, Lat: -10, PMin: 990, POCI: 1005},
			{TrackID: "a", Time: t0.Add(48 * time.Hour), Lon: 160, Lat: -5, PMin: 980, POCI: 1005},
		}
		assert.Empty(t, FilterTracks(points, TrackFilter{Domain: box}))
	})

	t.Run("single fix never intersects", func(t *testing.T) {
		points := []TrackPoint{{TrackID: "a", Time: t0, Lon: 150, Lat: -15, PMin: 990, POCI: 1005}}
		assert.Empty(t, FilterTracks(points, TrackFilter{Domain: box}))
	})
}
