package touch

// Classify maps one cycle's readings to a raw touch category.
// A pad is touched when its raw reading is strictly below its baseline.
// Both-touched cases win over single-pad cases regardless of the connection
// reading; connection only splits the both-touched case.
func Classify(leftRaw, rightRaw, leftBaseline, rightBaseline uint16, connected bool) State {
	left := leftRaw < leftBaseline
	right := rightRaw < rightBaseline

	switch {
	case left && right && connected:
		return BothConnected
	case left && right:
		return BothDisconnected
	case left:
		return LeftOnly
	case right:
		return RightOnly
	default:
		return NoTouch
	}
}
