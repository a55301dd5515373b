package segmentation

// Face-mesh landmark indices (468-point topology)
var (
	// FaceOval is the closed ring around the face outline
	FaceOval = []int{
		10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288,
		397, 365, 379, 378, 400, 377, 152, 148, 176, 149, 150, 136,
		172, 58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
	}

	LeftCheek  = []int{345, 346, 347, 348, 329, 371, 423, 426, 427, 411, 376, 352}
	RightCheek = []int{116, 117, 118, 119, 100, 142, 203, 206, 207, 187, 147, 123}
	Forehead   = []int{10, 338, 297, 332, 333, 299, 337, 151, 108, 69, 104, 103, 67, 109}

	LeftEye  = []int{362, 382, 381, 380, 374, 373, 390, 249, 263, 466, 388, 387, 386, 385, 384, 398}
	RightEye = []int{33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246}
)

// Key landmarks used for face position scoring
const (
	Chin        = 152
	ForeheadTop = 10
	LeftTemple  = 454
	RightTemple = 234
	MeshSize    = 468
)

// Region names a landmark polygon
type Region struct {
	Name    string
	Indices []int
}

// SkinRegions are the polygons sampled for skin color
func SkinRegions() []Region {
	return []Region{
		{Name: "left_cheek", Indices: LeftCheek},
		{Name: "right_cheek", Indices: RightCheek},
		{Name: "forehead", Indices: Forehead},
	}
}
