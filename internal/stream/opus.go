package stream

import (
	"fmt"

	"layeh.com/gopus"
)

const (
	SampleRate = 48000
	Channels   = 2
	FrameSize  = 960 // samples per channel, 20ms at 48k
	FrameBytes = FrameSize * Channels * 2
)

// OpusEncoder wraps gopus for 20ms stereo frames.
type OpusEncoder struct {
	enc *gopus.Encoder
}

func NewOpusEncoder() (*OpusEncoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	enc.SetBitrate(160000)
	return &OpusEncoder{enc: enc}, nil
}

// Encode encodes one interleaved frame of FrameSize*Channels samples.
func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	pkt, err := e.enc.Encode(pcm, FrameSize, 4000)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return pkt, nil
}
