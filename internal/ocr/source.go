package ocr

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/config"
	"github.com/sells-group/odds-cli/internal/model"
)

// Source yields noisy observations for a competition. An empty result means
// nothing new has been captured yet.
type Source interface {
	Fetch(ctx context.Context, competition string) ([]model.RawObservation, error)
}

// NewSource creates a Source based on config. The inbox is used when the
// source is "inbox" and may be nil otherwise.
func NewSource(cfg config.OCRConfig, inbox *Inbox) (Source, error) {
	switch cfg.Source {
	case "dir", "":
		return NewDirSource(cfg.SpoolDir, nil), nil
	case "inbox":
		if inbox == nil {
			return nil, eris.New("ocr: inbox source requires an inbox")
		}
		return inbox, nil
	default:
		return nil, eris.Errorf("ocr: unknown source %q", cfg.Source)
	}
}

// parseFrames converts frames to observations, logging and dropping frames
// that do not parse.
func parseFrames(log *zap.Logger, frames []model.Frame, now time.Time) []model.RawObservation {
	out := make([]model.RawObservation, 0, len(frames))
	for _, f := range frames {
		captured := f.CapturedAt
		if captured.IsZero() {
			captured = now
		}
		obs, err := ParseFrame(f, captured)
		if err != nil {
			log.Warn("skipping frame", zap.String("competition", f.Competition), zap.Error(err))
			continue
		}
		out = append(out, obs)
	}
	return out
}

// Inbox queues frames pushed over HTTP until the next fetch drains them.
// Safe for concurrent use.
type Inbox struct {
	mu     sync.Mutex
	frames map[string][]model.Frame
	now    func() time.Time
	log    *zap.Logger
}

// NewInbox creates an empty Inbox. A nil clock uses time.Now.
func NewInbox(clock func() time.Time) *Inbox {
	if clock == nil {
		clock = time.Now
	}
	return &Inbox{
		frames: make(map[string][]model.Frame),
		now:    clock,
		log:    zap.L().With(zap.String("component", "ocr.inbox")),
	}
}

// Push queues frames under their competition.
func (in *Inbox) Push(frames ...model.Frame) error {
	for _, f := range frames {
		if f.Competition == "" {
			return eris.New("ocr: frame has no competition")
		}
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	for _, f := range frames {
		in.frames[f.Competition] = append(in.frames[f.Competition], f)
	}
	return nil
}

// Pending reports how many frames wait for competition.
func (in *Inbox) Pending(competition string) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.frames[competition])
}

// Fetch drains and parses queued frames for competition.
func (in *Inbox) Fetch(_ context.Context, competition string) ([]model.RawObservation, error) {
	in.mu.Lock()
	frames := in.frames[competition]
	delete(in.frames, competition)
	in.mu.Unlock()

	if len(frames) == 0 {
		return nil, nil
	}
	return parseFrames(in.log, frames, in.now()), nil
}

// DirSource reads frame files written by the capture agent into
// <root>/<competition>/*.json. Consumed files move to a done/ subdirectory.
type DirSource struct {
	root string
	now  func() time.Time
	log  *zap.Logger
}

// NewDirSource creates a DirSource over root. A nil clock uses time.Now.
func NewDirSource(root string, clock func() time.Time) *DirSource {
	if clock == nil {
		clock = time.Now
	}
	return &DirSource{
		root: root,
		now:  clock,
		log:  zap.L().With(zap.String("component", "ocr.dir")),
	}
}

// Dir returns the spool directory for competition.
func (d *DirSource) Dir(competition string) string {
	return filepath.Join(d.root, model.SafeName(competition))
}

// Fetch reads every pending frame file for competition. A missing directory
// means nothing has been captured.
func (d *DirSource) Fetch(ctx context.Context, competition string) ([]model.RawObservation, error) {
	dir := d.Dir(competition)
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, eris.Wrap(err, "ocr: list spool")
	}
	if len(paths) == 0 {
		return nil, nil
	}
	sort.Strings(paths)

	doneDir := filepath.Join(dir, "done")
	if err := os.MkdirAll(doneDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "ocr: create done dir")
	}

	var frames []model.Frame
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := readFrames(p)
		if err != nil {
			d.log.Warn("unreadable frame file", zap.String("path", p), zap.Error(err))
		}
		for i := range batch {
			if batch[i].Competition == "" {
				batch[i].Competition = competition
			}
		}
		frames = append(frames, batch...)

		if err := os.Rename(p, filepath.Join(doneDir, filepath.Base(p))); err != nil {
			return nil, eris.Wrapf(err, "ocr: archive %s", p)
		}
	}

	obs := parseFrames(d.log, frames, d.now())
	d.log.Debug("spool drained",
		zap.String("competition", competition),
		zap.Int("files", len(paths)),
		zap.Int("observations", len(obs)),
	)
	return obs, nil
}

// readFrames accepts either a single frame object or an array of frames.
func readFrames(path string) ([]model.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: read frame file")
	}

	var many []model.Frame
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one model.Frame
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, eris.Wrap(err, "ocr: decode frame file")
	}
	return []model.Frame{one}, nil
}
