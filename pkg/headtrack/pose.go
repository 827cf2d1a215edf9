package headtrack

import "math"

// Physical constants for the pinhole head model, in centimeters. An
// adult head is modeled as a fixed-width target; the bootstrap
// measurement anchors the distance scale.
const (
	headWidthCm = 16.0
	// Assumed subject distance at bootstrap when no FOV is configured.
	nominalDistanceCm = 60.0
)

// PinholePose estimates head position from bounding-box measurements
// using simple pinhole geometry. It satisfies the PoseEstimator
// contract; sessions only depend on FOV and Update.
type PinholePose struct {
	fov          float64 // horizontal, radians
	frameWidth   float64
	frameHeight  float64
	cameraOffset float64 // cm, camera sits this far above the screen center
}

// NewPoseEstimator builds the default pose estimator. When opts.FOV is
// zero the field of view is estimated from the bootstrap measurement,
// assuming the subject sits at a nominal distance.
func NewPoseEstimator(initial Sample, frameWidth, frameHeight int, opts PoseOptions) PoseEstimator {
	p := &PinholePose{
		fov:          opts.FOV,
		frameWidth:   float64(frameWidth),
		frameHeight:  float64(frameHeight),
		cameraOffset: opts.CameraOffset,
	}
	if p.fov <= 0 {
		p.fov = estimateFOV(initial.Width, p.frameWidth)
	}
	return p
}

// estimateFOV derives the horizontal field of view from the pixel width
// a real head covers at the nominal distance.
func estimateFOV(headWidthPx, frameWidthPx float64) float64 {
	if headWidthPx <= 0 || frameWidthPx <= 0 {
		return math.Pi / 3 // sane webcam default
	}
	headAngle := 2 * math.Atan2(headWidthCm/2, nominalDistanceCm)
	return headAngle * frameWidthPx / headWidthPx
}

// FOV returns the horizontal field of view in radians.
func (p *PinholePose) FOV() float64 {
	return p.fov
}

// Update converts one measurement into a camera-relative head position
// in centimeters. X grows rightward, Y upward, Z away from the camera.
func (p *PinholePose) Update(sample Sample) Position {
	if sample.Width <= 0 {
		return Position{}
	}

	// Angle subtended by the head's width gives the distance.
	halfAngle := (sample.Width / p.frameWidth) * p.fov / 2
	z := (headWidthCm / 2) / math.Tan(halfAngle)

	cx := sample.X + sample.Width/2
	cy := sample.Y + sample.Height/2

	// Vertical FOV scaled from the horizontal by the aspect ratio.
	vfov := p.fov * p.frameHeight / p.frameWidth

	ax := ((cx - p.frameWidth/2) / p.frameWidth) * p.fov
	ay := ((p.frameHeight/2 - cy) / p.frameHeight) * vfov

	return Position{
		X: math.Tan(ax) * z,
		Y: math.Tan(ay)*z - p.cameraOffset,
		Z: z,
	}
}
