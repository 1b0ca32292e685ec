// Package probe determines clip pixel dimensions with ffprobe. Probing never
// fails outward: a decode error or timeout degrades to zero dimensions, which
// classifies into the square bucket, so one bad clip cannot block startup.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"ambientloop/internal/manifest"
	"ambientloop/internal/rotation"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 8 * time.Second

// Result holds probed pixel dimensions. Zero dimensions mean the probe
// failed and the clip belongs in the square bucket.
type Result struct {
	Width  int
	Height int
}

// Prober resolves a clip address to its dimensions.
type Prober interface {
	Probe(ctx context.Context, address string) Result
}

// FFProbe shells out to ffprobe. The zero value is usable.
type FFProbe struct {
	// Bin is the ffprobe binary; defaults to "ffprobe" on PATH.
	Bin string
	// Timeout per probe; defaults to DefaultTimeout.
	Timeout time.Duration
	Log     *slog.Logger
	// OnFailure is called once per degraded probe, for accounting. May be nil.
	OnFailure func()
}

// Probe implements Prober.
func (p *FFProbe) Probe(ctx context.Context, address string) Result {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bin := p.Bin
	if bin == "" {
		bin = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		address,
	)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		p.degrade(address, err)
		return Result{}
	}

	w, h, err := parseDimensions(out.Bytes())
	if err != nil {
		p.degrade(address, err)
		return Result{}
	}
	return Result{Width: w, Height: h}
}

func (p *FFProbe) degrade(address string, err error) {
	if p.Log != nil {
		p.Log.Warn("probe degraded to square",
			slog.String("address", address),
			slog.String("error", err.Error()))
	}
	if p.OnFailure != nil {
		p.OnFailure()
	}
}

type ffprobeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
}

func parseDimensions(b []byte) (int, int, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(b, &parsed); err != nil {
		return 0, 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	for _, s := range parsed.Streams {
		if s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, nil
		}
	}
	return 0, 0, fmt.Errorf("no video stream dimensions")
}

// Library probes every manifest entry concurrently and returns clips ready
// for bucket indexing. Order follows the manifest. A failed probe still
// yields a clip; it is never dropped solely for failed probing.
func Library(ctx context.Context, p Prober, entries []manifest.Entry) []*rotation.Clip {
	clips := make([]*rotation.Clip, len(entries))
	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func(i int, e manifest.Entry) {
			defer wg.Done()
			res := p.Probe(ctx, e.Address)
			clips[i] = &rotation.Clip{
				Address: e.Address,
				Title:   e.Title,
				Width:   res.Width,
				Height:  res.Height,
			}
		}(i, e)
	}
	wg.Wait()
	return clips
}
