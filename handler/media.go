package handler

import (
	"context"
	"encoding/json"
	"strconv"
)

// probeResult is the subset of ffprobe's JSON output the handlers use.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	BitRate    string `json:"bit_rate"`
}

// probeMedia runs ffprobe and parses its JSON output. Returns nil on any
// failure; media metadata is best effort.
func (b base) probeMedia(ctx context.Context, path string) *probeResult {
	out := b.run(ctx, b.probeTimeout, "ffprobe",
		"-v", "error", "-print_format", "json", "-show_format", "-show_streams", path)
	if out.Failed() {
		return nil
	}
	var res probeResult
	if err := json.Unmarshal([]byte(out.Stdout), &res); err != nil {
		b.logger.Debug("ffprobe output unparsable", "path", path, "error", err)
		return nil
	}
	return &res
}

func (r *probeResult) stream(codecType string) *probeStream {
	for i := range r.Streams {
		if r.Streams[i].CodecType == codecType {
			return &r.Streams[i]
		}
	}
	return nil
}

func (r *probeResult) duration() float64 {
	d, err := strconv.ParseFloat(r.Format.Duration, 64)
	if err != nil {
		return 0
	}
	return d
}
