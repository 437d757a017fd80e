package usbkey

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/pterm/pterm"
)

// Downloader fetches ISO images over HTTP
type Downloader struct {
	Client *http.Client
	// Progress draws a pterm progress bar on Out when the size is known
	Progress bool
	Out      io.Writer

	fs types.FS
}

// NewDownloader creates a downloader writing through fsys
func NewDownloader(fsys types.FS, out io.Writer) *Downloader {
	return &Downloader{Client: http.DefaultClient, Progress: true, Out: out, fs: fsys}
}

// Download replaces dest with the body of url
func (d *Downloader) Download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "invalid url %s", url)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCommandFailed, "cannot download %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrCommandFailed, "cannot download %s", url).WithDetail("status", resp.Status)
	}

	if err := d.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", filepath.Dir(dest))
	}
	f, err := d.fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", dest)
	}

	if err := d.copy(f, resp, dest); err != nil {
		_ = f.Close()
		_ = d.fs.Remove(dest)
		return errors.Wrapf(err, errors.ErrFileWrite, "download of %s interrupted", url)
	}
	if err := f.Close(); err != nil {
		_ = d.fs.Remove(dest)
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", dest)
	}
	return nil
}

// copy streams the body into f, with a progress bar for large images
func (d *Downloader) copy(f io.Writer, resp *http.Response, dest string) error {
	var w io.Writer = f
	if d.Progress && resp.ContentLength >= 1<<20 {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(int(resp.ContentLength >> 20)).
			WithTitle(filepath.Base(dest) + " (MiB)").
			WithWriter(d.Out).
			WithRemoveWhenDone(true).
			Start()
		if err == nil {
			defer func() { _, _ = bar.Stop() }()
			w = io.MultiWriter(f, &barWriter{bar: bar})
		}
	}

	_, err := io.Copy(w, resp.Body)
	return err
}

// barWriter advances the bar one step per MiB written
type barWriter struct {
	bar     *pterm.ProgressbarPrinter
	pending int64
}

func (b *barWriter) Write(p []byte) (int, error) {
	b.pending += int64(len(p))
	if steps := int(b.pending >> 20); steps > 0 {
		b.bar.Add(steps)
		b.pending -= int64(steps) << 20
	}
	return len(p), nil
}
