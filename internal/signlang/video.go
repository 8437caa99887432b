package signlang

const defaultVideoURL = "/videos/asl/default.mp4"

var videoURLs = map[string]string{
	GestureWave:        "/videos/asl/wave.mp4",
	GestureThumbsUp:    "/videos/asl/thumbs_up.mp4",
	GestureNod:         "/videos/asl/nod.mp4",
	GestureFingerspell: "/videos/asl/fingerspell.mp4",
}

// VideoURL returns the demonstration video path for a gesture
func VideoURL(gesture string) string {
	if url, ok := videoURLs[gesture]; ok {
		return url
	}
	return defaultVideoURL
}
