package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/config"
)

// VideoMaker renders one chapter video per unit from its narration audio,
// backed either by a static background image or by the unit's slideshow
// image directory.
type VideoMaker struct {
	store book.Store
	dir   string
	cfg   config.VideoConfig
	audio config.AudioConfig
	run   runner
	probe func(ctx context.Context, path string) (float64, error)
	log   *slog.Logger
}

// NewVideoMaker builds a video renderer over a project store.
func NewVideoMaker(store book.Store, cfg config.VideoConfig, audio config.AudioConfig) *VideoMaker {
	return &VideoMaker{
		store: store,
		dir:   store.Root(),
		cfg:   cfg,
		audio: audio,
		run:   execRunner,
		probe: ProbeAudioDuration,
		log:   slog.Default().With("component", "video"),
	}
}

// Render produces a video for every unit with narration audio. Units
// without audio are skipped with a warning; existing videos are skipped
// unless overwrite is configured.
func (v *VideoMaker) Render(ctx context.Context) error {
	units, err := v.store.List()
	if err != nil {
		return err
	}
	videoDir := filepath.Join(v.dir, v.cfg.Dirname)
	if err := os.MkdirAll(videoDir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", v.cfg.Dirname, err)
	}

	for _, u := range units {
		stem := strings.TrimSuffix(u.Filename, ".md")
		out := filepath.Join(videoDir, stem+".mp4")
		if _, err := os.Stat(out); err == nil && !v.cfg.Overwrite {
			v.log.Debug("video exists, skipping", "number", u.Number)
			continue
		}
		audio := filepath.Join(v.dir, v.audio.Dirname, stem+".mp3")
		if _, err := os.Stat(audio); err != nil {
			v.log.Warn("no narration audio, skipping video", "number", u.Number)
			continue
		}
		read, err := v.store.Read(u.Number)
		if err != nil {
			return err
		}
		if err := v.renderUnit(ctx, stem, read.Content, audio, out); err != nil {
			if errors.Is(err, ErrToolMissing) {
				v.log.Warn("video tool missing, skipping videos", "error", err)
				return nil
			}
			return fmt.Errorf("render video for unit %d: %w", u.Number, err)
		}
		v.log.Info("video rendered", "number", u.Number, "file", filepath.Base(out))
	}
	return nil
}

func (v *VideoMaker) renderUnit(ctx context.Context, stem, content, audio, out string) error {
	imageDir := filepath.Join(v.dir, v.cfg.ParagraphImages.Dirname, stem)
	images := listImages(imageDir)
	if len(images) > 0 {
		return v.renderSlideshow(ctx, images, Paragraphs(content), audio, out)
	}
	background := v.cfg.Background
	if background == "" {
		background = filepath.Join(v.dir, "cover.png")
	}
	if _, err := os.Stat(background); err != nil {
		return fmt.Errorf("no background image for video: %w", err)
	}
	argv := []string{
		"ffmpeg", "-y",
		"-loop", "1", "-i", background,
		"-i", audio,
		"-c:v", "libx264", "-tune", "stillimage",
		"-c:a", "aac", "-b:a", "192k",
		"-pix_fmt", "yuv420p", "-shortest",
		out,
	}
	return v.run(ctx, v.dir, argv)
}

func (v *VideoMaker) renderSlideshow(ctx context.Context, images, paragraphs []string, audio, out string) error {
	total, err := v.probe(ctx, audio)
	if err != nil {
		return fmt.Errorf("probe audio duration: %w", err)
	}
	// With one image per paragraph, hold each image for as long as its
	// paragraph takes to narrate.
	var durations []float64
	if len(paragraphs) == len(images) {
		durations = ParagraphDurations(paragraphs, total)
	} else {
		durations = evenDurations(len(images), total)
	}
	manifest, err := os.CreateTemp("", "bookforge-concat-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(manifest.Name())
	if _, err := manifest.WriteString(ConcatManifest(images, durations)); err != nil {
		manifest.Close()
		return err
	}
	if err := manifest.Close(); err != nil {
		return err
	}
	argv := []string{
		"ffmpeg", "-y",
		"-f", "concat", "-safe", "0", "-i", manifest.Name(),
		"-i", audio,
		"-c:v", "libx264", "-c:a", "aac", "-b:a", "192k",
		"-pix_fmt", "yuv420p", "-shortest",
		out,
	}
	return v.run(ctx, v.dir, argv)
}

// ProbeAudioDuration asks ffprobe for a file's duration in seconds.
func ProbeAudioDuration(ctx context.Context, path string) (float64, error) {
	bin, err := exec.LookPath("ffprobe")
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe", ErrToolMissing)
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return seconds, nil
}

// ParagraphDurations splits a total duration over paragraphs weighted by
// word count, so longer passages hold their image longer.
func ParagraphDurations(paragraphs []string, total float64) []float64 {
	if len(paragraphs) == 0 {
		return nil
	}
	words := make([]int, len(paragraphs))
	sum := 0
	for i, p := range paragraphs {
		words[i] = len(strings.Fields(p))
		if words[i] == 0 {
			words[i] = 1
		}
		sum += words[i]
	}
	durations := make([]float64, len(paragraphs))
	for i, w := range words {
		durations[i] = total * float64(w) / float64(sum)
	}
	return durations
}

func evenDurations(n int, total float64) []float64 {
	durations := make([]float64, n)
	for i := range durations {
		durations[i] = total / float64(n)
	}
	return durations
}

// ConcatManifest renders an ffmpeg concat demuxer manifest. The final image
// is listed twice per the demuxer's requirement that the last entry carry
// no duration.
func ConcatManifest(images []string, durations []float64) string {
	var sb strings.Builder
	for i, img := range images {
		sb.WriteString("file '" + img + "'\n")
		sb.WriteString(fmt.Sprintf("duration %.3f\n", durations[i]))
	}
	if len(images) > 0 {
		sb.WriteString("file '" + images[len(images)-1] + "'\n")
	}
	return sb.String()
}

func listImages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".webp":
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)
	return images
}
