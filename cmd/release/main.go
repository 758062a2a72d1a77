// release is a tool for distributing OS specific archives of the bookshelf
// command for Windows, macOS and Linux.
package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// Target is a GOOS/GOARCH pair.
type Target struct {
	OS, Arch string
}

func (t Target) String() string {
	return t.OS + "/" + t.Arch
}

// Binary is the executable name on the target.
func (t Target) Binary() string {
	if t.OS == "windows" {
		return "bookshelf.exe"
	}
	return "bookshelf"
}

// Archive is the file name of the release archive.
func (t Target) Archive(version string) string {
	return fmt.Sprintf("bookshelf_%s_%s_%s.zip", version, t.OS, t.Arch)
}

var DefaultTargets = []Target{
	{"linux", "amd64"},
	{"linux", "arm64"},
	{"darwin", "amd64"},
	{"darwin", "arm64"},
	{"windows", "amd64"},
}

// ParseTargets parses a comma separated list of os/arch pairs.
func ParseTargets(s string) ([]Target, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultTargets, nil
	}
	var targets []Target
	for _, part := range strings.Split(s, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "/", 2)
		if len(pair) != 2 || pair[0] == "" || pair[1] == "" {
			return nil, fmt.Errorf("target %q: want os/arch", part)
		}
		targets = append(targets, Target{OS: pair[0], Arch: pair[1]})
	}
	return targets, nil
}

func main() {
	var (
		dist    = pflag.String("dist", "dist", "output directory")
		version = pflag.String("version", "dev", "release version")
		only    = pflag.String("targets", "", "comma separated os/arch pairs (default: all)")
	)
	pflag.Parse()
	if err := func() error {
		targets, err := ParseTargets(*only)
		if err != nil {
			return err
		}
		for _, t := range targets {
			binary, err := build("cmd/bookshelf", filepath.Join(*dist, t.OS+"_"+t.Arch), t)
			if err != nil {
				return fmt.Errorf("building %s: %w", t, err)
			}
			archive := filepath.Join(*dist, t.Archive(*version))
			if err := bundle(archive, map[string]string{
				t.Binary():  binary,
				"README.md": "README.md",
			}); err != nil {
				return fmt.Errorf("bundling %s: %w", t, err)
			}
			fmt.Println(archive)
		}
		return nil
	}(); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

// build the Go program rooted at path for target, returning a path to it.
func build(path, out string, t Target) (string, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	binary := filepath.Join(out, t.Binary())
	cmd := exec.Command("go", "build", "-trimpath", "-o", binary, path)
	cmd.Env = append(os.Environ(), "GOOS="+t.OS, "GOARCH="+t.Arch)
	if err := run(cmd); err != nil {
		return "", err
	}
	return binary, nil
}

// run the specified command and return any error.
func run(cmd *exec.Cmd) error {
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("running command %q: %v: %w", cmd.String(), string(out), err)
	}
	return nil
}

// bundle zips files (archive name -> source path) into dest.
// Missing sources are skipped.
// NB: Will clobber destination.
func bundle(dest string, files map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0777); err != nil {
		return fmt.Errorf("preparing destination: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %q: %w", dest, err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, src := range files {
		if err := cp(zw, name, src); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return f.Close()
}

// cp copies src into the archive under name.
func cp(zw *zip.Writer, name, src string) error {
	srcf, err := os.Open(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening %q: %w", src, err)
	}
	defer srcf.Close()
	info, err := srcf.Stat()
	if err != nil {
		return fmt.Errorf("stat %q: %w", src, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header for %q: %w", src, err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("adding %q: %w", name, err)
	}
	if _, err := io.Copy(w, srcf); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
