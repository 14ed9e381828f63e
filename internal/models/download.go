// Package models downloads whisper.cpp ggml models.
package models

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chaz8081/nova/internal/config"
)

// baseURL is the HuggingFace repo the ggml models are served from.
var baseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Size describes a downloadable model.
type Size struct {
	Name string
	MB   int // approximate download size
	Note string
}

// Sizes lists the models offered by the interactive download.
var Sizes = []Size{
	{"tiny.en", 75, "fastest, English only"},
	{"base.en", 142, "fast, English only"},
	{"small", 466, "default, multilingual"},
	{"small.en", 466, "English only"},
	{"medium", 1500, "slower, more accurate"},
	{"large-v3-turbo", 1600, "most accurate, needs a fast machine"},
}

// FileName returns the ggml file name for a model size such as "small".
func FileName(size string) string {
	return "ggml-" + size + ".bin"
}

// ModelURL returns the download URL for a model size.
func ModelURL(size string) string {
	return baseURL + "/" + FileName(size)
}

// EnsureWhisper makes sure the model for size exists in dir, downloading it
// if needed, and returns its path. Progress is written to stdout.
func EnsureWhisper(ctx context.Context, size, dir string) (string, error) {
	return ensure(ctx, size, dir, os.Stdout)
}

func ensure(ctx context.Context, size, dir string, out io.Writer) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating models dir: %w", err)
	}

	destPath := filepath.Join(dir, FileName(size))
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Fprintf(out, "  Whisper model already exists: %s (%.0f MB)\n", destPath, float64(info.Size())/(1024*1024))
		return destPath, nil
	}

	url := ModelURL(size)
	fmt.Fprintf(out, "  Downloading whisper model from HuggingFace...\n")
	fmt.Fprintf(out, "  URL: %s\n", url)
	fmt.Fprintf(out, "  Destination: %s\n", destPath)

	if err := download(ctx, url, destPath, FileName(size), out); err != nil {
		return "", err
	}
	return destPath, nil
}

func download(ctx context.Context, url, destPath, label string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading whisper model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	// Write to temp file first, then rename (atomic)
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	pr := &progressWriter{
		writer: f,
		out:    out,
		total:  resp.ContentLength,
		label:  label,
	}

	written, err := io.Copy(pr, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing model file: %w", err)
	}

	fmt.Fprintf(out, "\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving model file: %w", err)
	}

	return nil
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}

// RunInteractiveDownload asks which model to fetch and downloads it to the
// default models directory.
func RunInteractiveDownload(ctx context.Context) error {
	_, err := runInteractive(ctx, os.Stdin, os.Stdout, config.DefaultModelsDir())
	return err
}

func runInteractive(ctx context.Context, in io.Reader, out io.Writer, dir string) (string, error) {
	fmt.Fprintln(out, "=== Model Download ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Models will be downloaded to: %s\n", dir)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Which model would you like to download?")
	for i, s := range Sizes {
		fmt.Fprintf(out, "  [%d] %s (~%d MB) - %s\n", i+1, s.Name, s.MB, s.Note)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Choice [1-%d]: ", len(Sizes))

	line, _ := bufio.NewReader(in).ReadString('\n')
	choice := strings.TrimSpace(line)
	fmt.Fprintln(out)

	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(Sizes) {
		return "", fmt.Errorf("invalid choice: %q (expected 1-%d)", choice, len(Sizes))
	}

	size := Sizes[n-1].Name
	fmt.Fprintf(out, "Downloading %s...\n", size)
	path, err := ensure(ctx, size, dir, out)
	if err != nil {
		return "", fmt.Errorf("%s download failed: %w", size, err)
	}
	fmt.Fprintf(out, "Set transcribe.model: %s in your config to use it.\n", size)
	return path, nil
}
