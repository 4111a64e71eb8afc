// Package domain models tropical-cyclone intensity samples and the
// correction requests and results exchanged over Kafka and HTTP.
//
// # Intensity Variable
//
// Cyclone intensity is expressed as the central pressure deficit
//
//	Δp = p_oci − p_min   (hPa)
//
// where p_oci is the pressure of the outermost closed isobar and p_min the
// minimum central pressure. Each track contributes a single sample value,
// its lifetime maximum intensity (LMI), the largest Δp along the track.
// Non-positive LMIs are discarded.
//
// # Track Selection
//
// Samples can be supplied as raw track fixes. Tracks are grouped by their
// "num" identifier, sorted by time and filtered by [TrackFilter]:
//
//	start_year / end_year   first fix ≥ start_year, last fix ≤ end_year
//	min_age_hours           lifetime ≥ threshold (default 36 h)
//	min_vorticity           |min vorticity| > threshold (model vortices)
//	domain                  polyline intersects the lon/lat bounding box
//
// Tracks with a single fix never intersect a domain, so they are dropped
// whenever a domain is set.
//
// # Wire Format
//
// A request names the distribution family (scipy names: lognorm, norm,
// weibull_min, genpareto), the correction mode and three samples:
//
//	{
//	  "id": "cnrm-rcp85",
//	  "label": "CNRM-CM5Q RCP85",
//	  "family": {"name": "lognorm"},
//	  "mode": "ratio",
//	  "observed":  {"values": [23.1, 41.0, ...]},
//	  "reference": {"tracks": [...], "filter": {"start_year": 1981, "end_year": 2010, "min_age_hours": 36}},
//	  "future":    {"tracks": [...], "filter": {"start_year": 2081, "end_year": 2100, "min_age_hours": 36}}
//	}
//
// JSON null inside "values" is decoded as NaN so that missing data is
// rejected by the mapper rather than imputed.
//
// Results carry the corrected future sample (aligned with the resolved future
// values), the reference sample mapped onto the observed distribution, the
// fitted parameters and summary diagnostics.
package domain
