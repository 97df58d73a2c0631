// Package feature turns mono audio into the numeric features the voice classifiers were trained on.
//
// The computation follows the librosa defaults used during training:
//
//	FFTSize:  2048
//	HopSize:  512 (frames are centered, signal zero padded by FFTSize/2)
//	Window:   periodic Hann
//	NumMels:  128, Slaney mel scale and area normalization, 0 Hz .. SampleRate/2
//	Power:    2 (power spectrogram)
//	dB:       10*log10(max(S, 1e-10)), clipped to TopDB (80) below the maximum
//	MFCC:     orthonormal DCT-II of the log mel spectrogram
package feature
