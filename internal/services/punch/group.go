package punch

import (
	"context"
	"errors"
	"image"
	"log"
	"time"

	"github.com/apricityDigital/attendease-backend/internal/face"
	"github.com/apricityDigital/attendease-backend/internal/services/attendance"
)

// Face statuses reported for each detection in a group frame.
const (
	StatusPunched   = "punched"
	StatusUnmatched = "unmatched"
	StatusDuplicate = "duplicate"
	StatusSkipped   = "skipped"
	StatusError     = "error"
)

// FaceResult is the outcome for one detected face in a group frame.
type FaceResult struct {
	FaceIndex    int        `json:"faceIndex"`
	Status       string     `json:"status"`
	EmployeeID   *int64     `json:"employeeId,omitempty"`
	EmployeeName *string    `json:"employeeName,omitempty"`
	Similarity   *float64   `json:"similarity,omitempty"`
	AttendanceID *int64     `json:"attendanceId,omitempty"`
	PunchedAt    *time.Time `json:"punchedAt,omitempty"`
	Message      string     `json:"message,omitempty"`
}

// GroupResult aggregates the per-face outcomes of one group frame.
type GroupResult struct {
	Success        bool         `json:"success"`
	FacesDetected  int          `json:"faces_detected"`
	PunchedCount   int          `json:"punched_count"`
	UnmatchedCount int          `json:"unmatched_count"`
	DuplicateCount int          `json:"duplicate_count"`
	SkippedCount   int          `json:"skipped_count"`
	ErrorCount     int          `json:"error_count"`
	Results        []FaceResult `json:"results"`
}

// PunchGroup runs the group flow over one frame: detect every face, crop
// and search each one, and punch each resolved employee independently.
// Faces are processed sequentially so the duplicate-suppression set stays
// coherent; individual failures never fail the batch.
func (p *Pipeline) PunchGroup(ctx context.Context, req Request) (*GroupResult, error) {
	img, normalized, err := NormalizeImage(req.Image)
	if err != nil {
		return nil, err
	}

	detections, err := p.verifier.DetectFaces(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return nil, face.ErrNoFaceDetected
	}

	threshold := p.effectiveThreshold(req.Threshold)
	seen := make(map[int64]bool)
	result := &GroupResult{FacesDetected: len(detections), Results: make([]FaceResult, 0, len(detections))}

	for i, detection := range detections {
		fr := p.punchOneFace(ctx, req, img, detection.Box, threshold, seen, i)
		result.Results = append(result.Results, fr)

		switch fr.Status {
		case StatusPunched:
			result.PunchedCount++
		case StatusUnmatched:
			result.UnmatchedCount++
		case StatusDuplicate:
			result.DuplicateCount++
		case StatusSkipped:
			result.SkippedCount++
		default:
			result.ErrorCount++
		}
	}

	result.Success = result.PunchedCount > 0
	return result, nil
}

// punchOneFace carries a single detection through crop → search → verify →
// upload → transition, translating every failure into a per-face status.
func (p *Pipeline) punchOneFace(ctx context.Context, req Request, img image.Image, box face.BoundingBox, threshold float64, seen map[int64]bool, index int) FaceResult {
	fr := FaceResult{FaceIndex: index}

	crop, err := CropFace(img, box)
	if err != nil {
		fr.Status = StatusError
		fr.Message = err.Error()
		return fr
	}

	employee, similarity, err := p.identify(ctx, crop, threshold)
	if err != nil {
		if errors.Is(err, ErrNoMatch) || errors.Is(err, face.ErrNoFaceDetected) {
			fr.Status = StatusUnmatched
			fr.Message = "no enrolled employee matched this face"
			return fr
		}
		log.Printf("punch: group face %d identify: %v", index, err)
		fr.Status = StatusError
		fr.Message = err.Error()
		return fr
	}

	fr.EmployeeID = &employee.EmpID
	fr.EmployeeName = &employee.Name
	fr.Similarity = &similarity

	if seen[employee.EmpID] {
		fr.Status = StatusDuplicate
		fr.Message = "employee already processed in this frame"
		return fr
	}
	seen[employee.EmpID] = true

	if err := p.checkEligible(ctx, employee.EmpID, req.PunchType); err != nil {
		fr.Status = StatusSkipped
		fr.Message = err.Error()
		return fr
	}

	verified, err := p.verify(ctx, employee, crop, threshold)
	if err != nil {
		if errors.Is(err, ErrEnrolmentMissing) || errors.Is(err, ErrVerificationFailed) {
			fr.Status = StatusSkipped
		} else {
			log.Printf("punch: group face %d verify employee %d: %v", index, employee.EmpID, err)
			fr.Status = StatusError
		}
		fr.Message = err.Error()
		return fr
	}
	fr.Similarity = &verified

	ref, err := p.uploadPunchImage(ctx, employee, req, crop)
	if err != nil {
		log.Printf("punch: group face %d upload for employee %d: %v", index, employee.EmpID, err)
		fr.Status = StatusError
		fr.Message = err.Error()
		return fr
	}

	row, err := p.attendance.Record(ctx, req.PunchType, attendance.Punch{
		EmpID:       employee.EmpID,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		ImageRef:    &ref,
		ActorUserID: req.ActorUserID,
	})
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyPunchedIn) || errors.Is(err, attendance.ErrAlreadyPunchedOut) || errors.Is(err, attendance.ErrMustPunchInFirst) {
			fr.Status = StatusSkipped
		} else {
			log.Printf("punch: group face %d record employee %d: %v", index, employee.EmpID, err)
			fr.Status = StatusError
		}
		fr.Message = err.Error()
		return fr
	}

	fr.Status = StatusPunched
	fr.AttendanceID = &row.AttendanceID
	if req.PunchType == attendance.PunchIn {
		fr.PunchedAt = row.PunchInTime
	} else {
		fr.PunchedAt = row.PunchOutTime
	}
	return fr
}
