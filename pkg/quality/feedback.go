package quality

// Feedback messages shown to the user
const (
	FeedbackNoFace      = "No face detected"
	FeedbackMoveCloser  = "Move closer to the camera"
	FeedbackMoveBack    = "Move back from the camera"
	FeedbackCenter      = "Center your face in the frame"
	FeedbackTooDark     = "Find better lighting"
	FeedbackTooBright   = "Lighting is too harsh, avoid direct light"
	FeedbackHoldStill   = "Hold still"
	FeedbackGood        = "Great! Hold still for analysis"
	FeedbackAlmostThere = "Almost there"
)

// feedback reports the first failing check in evaluation order
func (a *Analyzer) feedback(e evaluation) string {
	s, limit := e.score, a.config.MinSubScore
	switch {
	case s.FaceSize == 0 && !e.tooLarge:
		return FeedbackNoFace
	case s.FaceSize < limit && e.tooLarge:
		return FeedbackMoveBack
	case s.FaceSize < limit:
		return FeedbackMoveCloser
	case s.FacePosition < limit:
		return FeedbackCenter
	case !e.hasFrame:
		if s.IsAcceptable {
			return FeedbackGood
		}
		return FeedbackAlmostThere
	case s.Brightness < limit && e.tooBright:
		return FeedbackTooBright
	case s.Brightness < limit:
		return FeedbackTooDark
	case s.Sharpness < limit:
		return FeedbackHoldStill
	case s.IsAcceptable:
		return FeedbackGood
	default:
		return FeedbackAlmostThere
	}
}
