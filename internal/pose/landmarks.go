package pose

// Landmark labels produced by the BlazePose (MediaPipe Pose) model, in model index order.
var Landmarks = [...]string{
	"nose",
	"left_eye_inner",
	"left_eye",
	"left_eye_outer",
	"right_eye_inner",
	"right_eye",
	"right_eye_outer",
	"left_ear",
	"right_ear",
	"mouth_left",
	"mouth_right",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_pinky",
	"right_pinky",
	"left_index",
	"right_index",
	"left_thumb",
	"right_thumb",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
	"left_heel",
	"right_heel",
	"left_foot_index",
	"right_foot_index",
}

var landmarkIndex = func() map[string]int {
	m := make(map[string]int, len(Landmarks))
	for i, name := range Landmarks {
		m[name] = i
	}
	return m
}()

// IsLandmark reports whether label names a landmark the model produces
func IsLandmark(label string) bool {
	_, ok := landmarkIndex[label]
	return ok
}

// LandmarkAt returns the label for a model output index
func LandmarkAt(index int) (string, bool) {
	if index < 0 || index >= len(Landmarks) {
		return "", false
	}
	return Landmarks[index], true
}
