package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

type ProbeData struct {
	FormatName []string      `json:"formatName"`
	Duration   time.Duration `json:"duration"`
	Audio      []AudioStream `json:"audio"`
}

type AudioStream struct {
	Codec      string        `json:"codec"`
	SampleRate int           `json:"sampleRate"`
	Channels   int           `json:"channels"`
	BitRate    float64       `json:"bitRate"`
	Duration   time.Duration `json:"duration"`
}

func Probe(ctx context.Context, ffprobeBinary string, inputFilePath string) (*ProbeData, error) {
	args := []string{
		"-v", "error", // Hide debug information
		"-show_format",  // Show container information
		"-show_streams", // Show codec information
		"-of", "json",
		inputFilePath,
	}

	cmd := exec.CommandContext(ctx, ffprobeBinary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseProbe(stdout.Bytes())
}

func parseProbe(data []byte) (*ProbeData, error) {
	out := struct {
		Streams []struct {
			CodecName  string `json:"codec_name"`
			CodecType  string `json:"codec_type"`
			Duration   string `json:"duration"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			BitRate    string `json:"bit_rate"`
		} `json:"streams"`
		Format struct {
			FormatName string `json:"format_name"`
			Duration   string `json:"duration"`
		} `json:"format"`
	}{}

	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	probe := ProbeData{
		Audio: []AudioStream{},
	}

	for _, stream := range out.Streams {
		if stream.CodecType != "audio" {
			continue
		}

		audio := AudioStream{
			Codec:    stream.CodecName,
			Channels: stream.Channels,
		}

		var err error
		if stream.Duration != "" {
			audio.Duration, err = time.ParseDuration(stream.Duration + "s")
			if err != nil {
				return nil, fmt.Errorf("unable to parse stream duration: %w", err)
			}
		}

		if stream.SampleRate != "" {
			audio.SampleRate, err = strconv.Atoi(stream.SampleRate)
			if err != nil {
				return nil, fmt.Errorf("unable to parse audio sample rate: %w", err)
			}
		}

		if stream.BitRate != "" {
			audio.BitRate, err = strconv.ParseFloat(stream.BitRate, 64)
			if err != nil {
				return nil, fmt.Errorf("unable to parse audio stream bitrate: %w", err)
			}
		}

		probe.Audio = append(probe.Audio, audio)
	}

	if out.Format.FormatName != "" {
		probe.FormatName = strings.Split(out.Format.FormatName, ",")
	}

	if out.Format.Duration != "" {
		var err error
		probe.Duration, err = time.ParseDuration(out.Format.Duration + "s")
		if err != nil {
			return nil, fmt.Errorf("unable to parse format duration: %w", err)
		}
	}

	return &probe, nil
}
