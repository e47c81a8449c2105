// Package ytdlp wraps the yt-dlp binary for video metadata and downloads.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"tg-anime-bot/internal/infra/metrics"
)

// maxUploadBytes is the Telegram bot API upload limit. Formats above it are
// never offered for download.
const maxUploadBytes = 50 * 1024 * 1024

// ErrNoUsableFormat reports that every format exceeds the upload limit.
var ErrNoUsableFormat = errors.New("no format fits the upload limit")

// Format is one downloadable rendition of a video.
type Format struct {
	ID         string  `json:"format_id"`
	Ext        string  `json:"ext"`
	Resolution string  `json:"resolution"`
	Note       string  `json:"format_note"`
	Filesize   int64   `json:"filesize"`
	Approx     int64   `json:"filesize_approx"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
	ABR        float64 `json:"abr"`
}

// Size returns the best known byte size of the format.
func (f Format) Size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.Approx
}

// AudioOnly reports whether the format carries no video stream.
func (f Format) AudioOnly() bool {
	return f.VCodec == "none" && f.ACodec != "none"
}

// Video is the metadata yt-dlp reports for one URL.
type Video struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Duration float64  `json:"duration"`
	Thumb    string   `json:"thumbnail"`
	Formats  []Format `json:"formats"`
}

// Downloader shells out to yt-dlp.
type Downloader struct {
	bin         string
	cookieFile  string
	downloadDir string
}

// NewDownloader creates the downloader. bin defaults to "yt-dlp" on PATH.
func NewDownloader(bin, cookieFile, downloadDir string) *Downloader {
	if bin == "" {
		bin = "yt-dlp"
	}
	if downloadDir == "" {
		downloadDir = os.TempDir()
	}
	return &Downloader{bin: bin, cookieFile: cookieFile, downloadDir: downloadDir}
}

func (d *Downloader) baseArgs() []string {
	args := []string{"--no-playlist", "--no-warnings"}
	if d.cookieFile != "" {
		args = append(args, "--cookies", d.cookieFile)
	}
	return args
}

// Probe fetches metadata for url without downloading anything.
func (d *Downloader) Probe(ctx context.Context, url string) (*Video, error) {
	args := append(d.baseArgs(), "-J", url)
	cmd := exec.CommandContext(ctx, d.bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.ObserveNetworkRequest("ytdlp", "probe", start, err)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp probe: %w: %s", err, firstLine(stderr.String()))
	}

	var video Video
	if err := json.Unmarshal(stdout.Bytes(), &video); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &video, nil
}

// UsableFormats filters v's formats down to those that fit the upload limit,
// keeping combined audio+video renditions and audio-only tracks.
func UsableFormats(v *Video) ([]Format, error) {
	var out []Format
	for _, f := range v.Formats {
		size := f.Size()
		if size <= 0 || size > maxUploadBytes {
			continue
		}
		if f.AudioOnly() || (f.VCodec != "none" && f.ACodec != "none") {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoUsableFormat
	}
	return out, nil
}

// Download fetches url in the given format and returns the local file path.
// The caller removes the file when done.
func (d *Downloader) Download(ctx context.Context, url, formatID string) (string, error) {
	outTemplate := filepath.Join(d.downloadDir, uuid.NewString()+".%(ext)s")
	args := append(d.baseArgs(),
		"-f", formatID,
		"--max-filesize", fmt.Sprintf("%d", maxUploadBytes),
		"-o", outTemplate,
		"--print", "after_move:filepath",
		url,
	)
	cmd := exec.CommandContext(ctx, d.bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.ObserveNetworkRequest("ytdlp", "download", start, err)
	if err != nil {
		return "", fmt.Errorf("yt-dlp download: %w: %s", err, firstLine(stderr.String()))
	}

	path := strings.TrimSpace(stdout.String())
	if path == "" {
		return "", errors.New("yt-dlp reported no output file")
	}
	return path, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
