package feature

// Extractor produces a fixed-length feature vector for a mono signal.
type Extractor interface {
	Features(samples []float64) ([]float64, error)
	Len() int
}

var (
	_ Extractor = &MFCC{}
	_ Extractor = &MelSpectrogram{}
)
