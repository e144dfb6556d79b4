package engine

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
)

const (
	engineRepo      = "ast-grep/ast-grep"
	latestReleaseAP = "https://api.github.com/repos/" + engineRepo + "/releases/latest"
	taggedReleaseAP = "https://api.github.com/repos/" + engineRepo + "/releases/tags/%s"

	fetchTimeout = 5 * time.Minute
)

// For testing: the release endpoints and HTTP client can be overridden.
var (
	latestReleaseURL = latestReleaseAP
	taggedReleaseURL = taggedReleaseAP
	httpClient       = &http.Client{Timeout: fetchTimeout}
)

// releaseInfo holds the relevant fields from a GitHub release.
type releaseInfo struct {
	TagName string  `json:"tag_name"`
	Assets  []asset `json:"assets"`
}

// asset is one downloadable file in a release.
type asset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Fetch downloads the engine release for the current OS/arch into the
// managed directory and returns the installed path. version may be empty
// for the latest release or a tag like "0.37.0". The install is atomic:
// the binary is extracted to a temp name and renamed into place.
func Fetch(version string, progress io.Writer) (string, error) {
	release, err := fetchReleaseInfo(version)
	if err != nil {
		return "", err
	}

	assetName := buildAssetName()
	var chosen *asset
	for i := range release.Assets {
		if release.Assets[i].Name == assetName {
			chosen = &release.Assets[i]
			break
		}
	}
	if chosen == nil {
		return "", fmt.Errorf("release %s has no asset for %s/%s (looking for %s)",
			release.TagName, runtime.GOOS, runtime.GOARCH, assetName)
	}

	archivePath, err := downloadAsset(chosen, progress)
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(archivePath) }()

	binaryData, err := extractFromZip(archivePath)
	if err != nil {
		return "", fmt.Errorf("extracting engine from %s: %w", chosen.Name, err)
	}

	dir := ManagedDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating install directory: %w", err)
	}
	dest := filepath.Join(dir, exeName())
	tmpPath := dest + ".new"
	if err := os.WriteFile(tmpPath, binaryData, 0o755); err != nil { //nolint:gosec // executable bit intended
		return "", fmt.Errorf("writing engine binary: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("installing engine binary: %w", err)
	}

	return dest, nil
}

func fetchReleaseInfo(version string) (*releaseInfo, error) {
	url := latestReleaseURL
	if version != "" {
		url = fmt.Sprintf(taggedReleaseURL, "v"+strings.TrimPrefix(version, "v"))
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "sgmcp")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checking engine release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %d for %s", resp.StatusCode, url)
	}

	var release releaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("parsing release info: %w", err)
	}
	return &release, nil
}

// downloadAsset streams the archive to a temp file with a progress bar on
// the given writer (nil disables the bar). Zip needs random access, so
// the archive always lands on disk first.
func downloadAsset(a *asset, progress io.Writer) (string, error) {
	resp, err := httpClient.Get(a.BrowserDownloadURL)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", a.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download of %s returned %d", a.Name, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "sgmcp-engine-*.zip")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = tmp.Close() }()

	var reader io.Reader = resp.Body
	if progress != nil {
		bar := pb.Full.Start64(a.Size)
		bar.SetWriter(progress)
		bar.Set(pb.Bytes, true)
		reader = bar.NewProxyReader(resp.Body)
		defer bar.Finish()
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("writing archive: %w", err)
	}
	return tmp.Name(), nil
}

// extractFromZip pulls the engine binary out of the release archive.
func extractFromZip(archivePath string) ([]byte, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		name := filepath.Base(f.Name)
		if name != "ast-grep" && name != "ast-grep.exe" && name != "sg" && name != "sg.exe" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in archive: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s from archive: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("engine binary not found in archive")
}

// buildAssetName maps GOOS/GOARCH onto the engine's release asset naming,
// which uses Rust target triples.
func buildAssetName() string {
	arch := map[string]string{
		"amd64": "x86_64",
		"arm64": "aarch64",
	}[runtime.GOARCH]
	if arch == "" {
		arch = runtime.GOARCH
	}

	switch runtime.GOOS {
	case "darwin":
		return fmt.Sprintf("app-%s-apple-darwin.zip", arch)
	case "windows":
		return fmt.Sprintf("app-%s-pc-windows-msvc.zip", arch)
	default:
		return fmt.Sprintf("app-%s-unknown-linux-gnu.zip", arch)
	}
}
