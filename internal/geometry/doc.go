// Package geometry computes thumbnail dimensions and crop rectangles.
//
// Everything here is pure arithmetic on Dimensions snapshots. Nothing holds
// image data or talks to an engine, so the same plans are reused by every
// backend:
//   - Fit: scale proportionally to fit inside a bounding box
//   - StrictFit: scale proportionally to cover a box (overflowing one axis)
//   - Percent: scale uniformly by a whole-number percentage
//   - PlanCrop / PlanCenterCrop: always in-bounds crop rectangles
//
// Sizes use int like image.Rectangle does. Callers reject negative input
// before calling in; a zero bound means "unconstrained on that axis".
package geometry
