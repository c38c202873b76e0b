// Package face defines the contract with the external face-matching
// service. The backend never trains or stores embeddings itself; it indexes
// reference images into a gallery collection and asks the service to
// search, compare, and detect.
package face

import (
	"context"
	"errors"
)

var (
	// ErrNoFaceDetected indicates the supplied image contains no usable face.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrCollectionMissing indicates the gallery collection has not been
	// provisioned on the face service.
	ErrCollectionMissing = errors.New("face collection missing")
)

// Match is one gallery hit from a search.
type Match struct {
	// FaceID is the gallery identifier assigned at indexing time.
	FaceID string

	// ExternalID is the caller-supplied identifier stored with the face
	// (the employee ID in this deployment).
	ExternalID string

	// Similarity is the match confidence in 0..100.
	Similarity float64
}

// BoundingBox locates a detected face as fractions of the frame dimensions.
type BoundingBox struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Detection is one face found in a frame.
type Detection struct {
	Box        BoundingBox
	Confidence float64
}

// IndexResult is the outcome of enrolling a reference image.
type IndexResult struct {
	FaceID     string
	Confidence float64
}

// Verifier is the face service contract used by the punch pipeline and the
// enrolment handlers.
type Verifier interface {
	// IndexFace registers a reference image in the gallery under an
	// external ID and returns the assigned face ID.
	IndexFace(ctx context.Context, image []byte, externalID string) (*IndexResult, error)

	// SearchByImage finds gallery faces matching the largest face in the
	// image, best match first. Matches below threshold are not returned.
	SearchByImage(ctx context.Context, image []byte, threshold float64) ([]Match, error)

	// CompareFaces runs a pairwise comparison and returns the similarity
	// of the best matching face pair in 0..100.
	CompareFaces(ctx context.Context, source, target []byte) (float64, error)

	// DetectFaces locates every face in the frame.
	DetectFaces(ctx context.Context, image []byte) ([]Detection, error)

	// DeleteFace removes a face from the gallery.
	DeleteFace(ctx context.Context, faceID string) error
}
