package detection

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Hue histogram shape for CAMShift back-projection. Saturation and
// value bounds mask out washed-out and dark pixels that carry no hue
// information.
var (
	histSize   = []int{16}
	histRange  = []float64{0, 180}
	maskLower  = gocv.NewScalar(0, 60, 32, 0)
	maskUpper  = gocv.NewScalar(180, 255, 255, 0)
	termCrit   = gocv.NewTermCriteria(gocv.Count|gocv.EPS, 10, 1)
	minSideLen = 4
)

// seedCamshift builds the hue histogram of the detected face region.
func (t *Tracker) seedCamshift(face image.Rectangle) error {
	face = face.Intersect(image.Rect(0, 0, t.frame.Cols(), t.frame.Rows()))
	if face.Dx() < minSideLen || face.Dy() < minSideLen {
		return fmt.Errorf("seed region %v too small", face)
	}

	gocv.CvtColor(t.frame, &t.hsv, gocv.ColorBGRToHSV)
	gocv.InRangeWithScalar(t.hsv, maskLower, maskUpper, &t.mask)

	roi := t.hsv.Region(face)
	defer roi.Close()
	roiMask := t.mask.Region(face)
	defer roiMask.Close()

	gocv.CalcHist([]gocv.Mat{roi}, []int{0}, roiMask, &t.hist, histSize, histRange, false)
	gocv.Normalize(t.hist, &t.hist, 0, 255, gocv.NormMinMax)
	return nil
}

// trackCamshift advances the CAMShift window one frame. It returns the
// in-plane rotation, the new window, and whether the window is still a
// usable region; a degenerate window means the lock was lost.
func (t *Tracker) trackCamshift() (angle float64, window image.Rectangle, ok bool) {
	gocv.CvtColor(t.frame, &t.hsv, gocv.ColorBGRToHSV)
	gocv.InRangeWithScalar(t.hsv, maskLower, maskUpper, &t.mask)

	gocv.CalcBackProject([]gocv.Mat{t.hsv}, []int{0}, t.hist, &t.backProj, histRange, false)
	gocv.BitwiseAnd(t.backProj, t.mask, &t.backProj)

	rot, next := gocv.CamShift(t.backProj, t.window, termCrit)

	bounds := image.Rect(0, 0, t.frame.Cols(), t.frame.Rows())
	next = next.Intersect(bounds)
	if next.Dx() < minSideLen || next.Dy() < minSideLen {
		return 0, image.Rectangle{}, false
	}

	return float64(rot.Angle) * math.Pi / 180, next, true
}
