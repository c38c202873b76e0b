package punch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apricityDigital/attendease-backend/internal/face"
	"github.com/apricityDigital/attendease-backend/internal/services/attendance"
)

func centeredFaces(n int) []face.Detection {
	out := make([]face.Detection, n)
	for i := range out {
		out[i] = face.Detection{
			Box:        face.BoundingBox{Left: 0.1 + float64(i)*0.3, Top: 0.2, Width: 0.2, Height: 0.3},
			Confidence: 99,
		}
	}
	return out
}

func TestPunchGroup(t *testing.T) {
	ctx := context.Background()
	frame := testJPEG(t, 640, 480)

	t.Run("no faces in frame", func(t *testing.T) {
		fx := newPipelineFixture(t)

		_, err := fx.pipeline.PunchGroup(ctx, Request{PunchType: attendance.PunchIn, Image: frame})
		assert.ErrorIs(t, err, face.ErrNoFaceDetected)
	})

	t.Run("same employee twice collapses to one punch", func(t *testing.T) {
		fx := newPipelineFixture(t)
		fx.verifier.detections = centeredFaces(2)
		fx.verifier.searchQueue = [][]face.Match{
			{match100(94)},
			{match100(91)},
		}

		res, err := fx.pipeline.PunchGroup(ctx, Request{PunchType: attendance.PunchIn, Image: frame})
		require.NoError(t, err)

		assert.True(t, res.Success)
		assert.Equal(t, 2, res.FacesDetected)
		assert.Equal(t, 1, res.PunchedCount)
		assert.Equal(t, 1, res.DuplicateCount)
		require.Len(t, res.Results, 2)

		first, second := res.Results[0], res.Results[1]
		assert.Equal(t, StatusPunched, first.Status)
		require.NotNil(t, first.AttendanceID)
		require.NotNil(t, first.PunchedAt)

		assert.Equal(t, StatusDuplicate, second.Status)
		require.NotNil(t, second.EmployeeID)
		assert.Equal(t, int64(100), *second.EmployeeID)
		assert.Nil(t, second.AttendanceID)
	})

	t.Run("unmatched face does not fail the batch", func(t *testing.T) {
		fx := newPipelineFixture(t)
		fx.verifier.detections = centeredFaces(2)
		fx.verifier.searchQueue = [][]face.Match{
			{match100(94)},
			{},
		}

		res, err := fx.pipeline.PunchGroup(ctx, Request{PunchType: attendance.PunchIn, Image: frame})
		require.NoError(t, err)

		assert.True(t, res.Success)
		assert.Equal(t, 1, res.PunchedCount)
		assert.Equal(t, 1, res.UnmatchedCount)
		assert.Equal(t, StatusUnmatched, res.Results[1].Status)
	})

	t.Run("all faces unmatched is a successless 200", func(t *testing.T) {
		fx := newPipelineFixture(t)
		fx.verifier.detections = centeredFaces(1)
		fx.verifier.searchQueue = [][]face.Match{{}}

		res, err := fx.pipeline.PunchGroup(ctx, Request{PunchType: attendance.PunchIn, Image: frame})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 0, res.PunchedCount)
	})

	t.Run("unenrolled match is skipped not errored", func(t *testing.T) {
		fx := newPipelineFixture(t)
		fx.verifier.detections = centeredFaces(1)
		fx.verifier.searchQueue = [][]face.Match{
			{{FaceID: "face-101", ExternalID: "101", Similarity: 90}},
		}

		res, err := fx.pipeline.PunchGroup(ctx, Request{PunchType: attendance.PunchIn, Image: frame})
		require.NoError(t, err)
		assert.Equal(t, 1, res.SkippedCount)
		assert.Equal(t, StatusSkipped, res.Results[0].Status)
		assert.False(t, res.Success)
	})

	t.Run("already punched employee is skipped on repeat frame", func(t *testing.T) {
		fx := newPipelineFixture(t)
		fx.verifier.defaultMatches = []face.Match{match100(94)}
		fx.verifier.detections = centeredFaces(1)

		res, err := fx.pipeline.PunchGroup(ctx, Request{PunchType: attendance.PunchIn, Image: frame})
		require.NoError(t, err)
		require.Equal(t, 1, res.PunchedCount)

		res, err = fx.pipeline.PunchGroup(ctx, Request{PunchType: attendance.PunchIn, Image: frame})
		require.NoError(t, err)
		assert.Equal(t, 0, res.PunchedCount)
		assert.Equal(t, 1, res.SkippedCount)
		assert.False(t, res.Success)
	})
}
