package ocr

// Input is one image handed to a backend.
type Input struct {
	Image     []byte
	MIME      string   // image/png, image/jpeg, ...
	Languages []string // backend-specific codes, e.g. ["en"] or ["eng"]
	Model     string   // overrides the engine's default model when set
}

// Result is the raw backend output. Confidence is on a 0..100 scale and is
// nil when the backend does not report one.
type Result struct {
	Text       string
	Confidence *float64
	Model      string
}

// Confidence is a convenience for building a Result.
func Confidence(v float64) *float64 { return &v }
