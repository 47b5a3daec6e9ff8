//go:build cgo

package embeddings

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// onnxVersion pins the ONNX runtime release the local provider loads.
// Keep in sync with the onnxruntime_go version in go.mod.
const onnxVersion = "1.23.0"

// ErrUnsupportedPlatform is returned when no ONNX runtime build exists
// for the current OS/arch.
var ErrUnsupportedPlatform = fmt.Errorf("embeddings: no onnxruntime build for this platform")

// onnxPlatforms maps GOOS/GOARCH to the suffix of the upstream release
// archive name.
var onnxPlatforms = map[string]string{
	"linux/amd64":  "linux-x64",
	"linux/arm64":  "linux-aarch64",
	"darwin/amd64": "osx-x86_64",
	"darwin/arm64": "osx-arm64",
}

func onnxPlatform(goos, goarch string) (string, error) {
	p, ok := onnxPlatforms[goos+"/"+goarch]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
	}
	return p, nil
}

func onnxLibraryName(goos string) string {
	if goos == "darwin" {
		return "libonnxruntime.dylib"
	}
	return "libonnxruntime.so"
}

func onnxInstallDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "rune", "lib")
}

// RuntimeLibraryPath locates the ONNX runtime shared library: the
// ONNX_PATH override first, then rune's managed install directory.
// Empty means not installed.
func RuntimeLibraryPath() string {
	if p := os.Getenv("ONNX_PATH"); p != "" {
		return p
	}
	managed := filepath.Join(onnxInstallDir(), onnxLibraryName(runtime.GOOS))
	if _, err := os.Stat(managed); err == nil {
		return managed
	}
	return ""
}

// EnsureRuntime downloads and unpacks the pinned ONNX runtime release
// into the managed install directory if no library is present yet.
func EnsureRuntime(ctx context.Context) error {
	if RuntimeLibraryPath() != "" {
		return nil
	}

	platform, err := onnxPlatform(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}

	url := fmt.Sprintf(
		"https://github.com/microsoft/onnxruntime/releases/download/v%s/onnxruntime-%s-%s.tgz",
		onnxVersion, platform, onnxVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("embeddings: fetch onnxruntime: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embeddings: fetch onnxruntime: status %s", resp.Status)
	}

	destDir := onnxInstallDir()
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return extractRuntimeLibraries(resp.Body, destDir)
}

// extractRuntimeLibraries pulls only the shared-library files out of
// the release tarball; headers, docs, and symlink chains are skipped.
func extractRuntimeLibraries(archive io.Reader, destDir string) error {
	gz, err := gzip.NewReader(archive)
	if err != nil {
		return fmt.Errorf("embeddings: read onnxruntime archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("embeddings: read onnxruntime archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Base(hdr.Name)
		if !strings.Contains(name, "libonnxruntime") {
			continue
		}

		out, err := os.OpenFile(filepath.Join(destDir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil { //nolint:gosec // upstream release archives are a few hundred MB at most
			_ = out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
}
