// Package hazard defines the descriptors the engine animates and the
// decoding of feed payloads into them.
//
// # Hazard kinds
//
// Three descriptor families exist, one per animation style:
//
//   - Cyclone: a rotating wind system around a center. The overlay builds
//     an analytic circulation field from it; no samples are needed.
//   - FloodZone: water moving through a polygon at a zone velocity.
//     Particles advect along the flow inside the polygon and ripple rings
//     mark zones that are still expanding.
//   - DetectionZone: a formation-probability area. It never advects
//     particles; it renders a pulsing probability disk, an ensemble
//     scatter, and a dashed predicted track.
//
// Ambient wind is not a descriptor. It arrives as point samples
// (field.Sample) and is interpolated by the field store.
//
// # Feed payloads
//
// Feeds deliver GeoJSON FeatureCollections. Every feature carries a
// "kind" property selecting the decoder:
//
//	wind_sample  Point    u, v                                 (m/s)
//	cyclone      Point    radius_m, max_wind_ms, name
//	flood        Polygon  flow_u, flow_v, expanding            (m/s, bool)
//	detection    Point    radius_m, probability, ensemble, track
//
// The ensemble and track properties are arrays of [lon, lat] pairs, the
// GeoJSON axis order. Malformed features are dropped and counted, never
// fatal; only an unreadable collection is an error.
//
// # Storm reports
//
// The transformed-weather-data topic carries storm reports (hail, wind,
// tornado) in the ETL's output schema. Reports map onto detection zones:
// severity picks the radius and probability, so a tornado report shows a
// larger, hotter zone than a marginal hail report. Reports without
// coordinates are dropped.
package hazard
