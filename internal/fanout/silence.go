package fanout

// silenceFrame is a constant ~36-byte MPEG-1 Layer 3 frame encoding a single
// frame of silence at 128 kbps / 44.1 kHz stereo. It is embedded as a literal
// rather than synthesized at runtime, so every silence write is byte-for-byte
// identical and cheap.
var silenceFrame = []byte{
	0xFF, 0xFB, 0x90, 0x44, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// flushRepeatCount is how many times the silence frame is repeated to build
// the pause-flush block (one frame is ~26ms at 128kbps/44.1kHz, so the block
// decodes to roughly 2.6 seconds of silence).
const flushRepeatCount = 100

// SilenceFrame returns the constant silence frame payload.
func SilenceFrame() []byte {
	return silenceFrame
}

// FlushBlock returns the silence frame repeated flushRepeatCount times,
// concatenated into a single buffer, used to purge a listener's forward
// audio buffer the instant playback pauses.
func FlushBlock() []byte {
	out := make([]byte, 0, len(silenceFrame)*flushRepeatCount)
	for i := 0; i < flushRepeatCount; i++ {
		out = append(out, silenceFrame...)
	}
	return out
}
