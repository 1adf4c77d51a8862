// Package installer is the Artifact Installer (C4): given a server
// directory and an engine/version pair, it decides whether a runnable
// artifact already exists (so a pre-provisioned or manually-dropped
// directory is reused automatically), otherwise resolves a fetch plan via
// internal/loader and executes it — downloading a jar straight through the
// content-addressed cache, or running an external installer and reading
// back whatever script or jar it produced.
package installer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fleetctl/internal/apperr"
	"fleetctl/internal/cache"
	"fleetctl/internal/domain"
	"fleetctl/internal/loader"

	"go.uber.org/zap"
)

// installerTimeout bounds how long an external installer (Forge, NeoForge)
// is allowed to run before it is killed and the step fails.
const installerTimeout = 10 * time.Minute

// Kind classifies how the Supervisor should launch a runnable artifact.
type Kind string

const (
	KindScript Kind = "script"
	KindJar    Kind = "jar"
)

// Descriptor is Install's post-condition: what was found or built, and how
// to run it.
type Descriptor struct {
	Kind Kind
	Path string
}

// engineKeywords is the priority list Detect uses to prefer a jar whose
// name identifies the engine over an arbitrary first match.
var engineKeywords = []string{
	"server", "forge", "neoforge", "fabric", "paper",
	"spigot", "bukkit", "purpur", "folia", "minecraft",
}

// Installer executes fetch plans inside a server directory, caching
// downloaded jars by (engine, version) through the artifact cache.
type Installer struct {
	Cache *cache.Cache
	log   *zap.SugaredLogger
}

func New(c *cache.Cache, log *zap.SugaredLogger) *Installer {
	return &Installer{Cache: c, log: log}
}

// Detect scans dir for a pre-existing runnable artifact in priority order:
// launch scripts first (run.sh, start.sh, run.bat, start.bat), then any
// non-installer, non-library jar — preferring one whose name carries an
// engine keyword, else the first in lexical order.
func Detect(dir string) (*Descriptor, bool) {
	for _, name := range []string{"run.sh", "start.sh", "run.bat", "start.bat"} {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return &Descriptor{Kind: KindScript, Path: p}, true
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, false
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		lower := strings.ToLower(e.Name())
		if !strings.HasSuffix(lower, ".jar") {
			continue
		}
		if strings.Contains(lower, "installer") || strings.Contains(lower, "librar") {
			continue
		}
		candidates = append(candidates, e.Name())
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.Strings(candidates)

	for _, name := range candidates {
		lower := strings.ToLower(name)
		for _, kw := range engineKeywords {
			if strings.Contains(lower, kw) {
				return &Descriptor{Kind: KindJar, Path: filepath.Join(dir, name)}, true
			}
		}
	}
	return &Descriptor{Kind: KindJar, Path: filepath.Join(dir, candidates[0])}, true
}

// Install materializes a runnable artifact under dir for (engine, version).
// Autonomous detection always wins: a directory that was pre-provisioned
// (or salvaged from a prior failed run) is reused without touching the
// network. progress, if non-nil, receives a tick per notable step.
func (in *Installer) Install(dir string, engine domain.EngineFamily, version string, progress func(domain.ProgressEvent)) (*Descriptor, error) {
	if d, ok := Detect(dir); ok {
		return d, nil
	}

	resolver, err := loader.GetResolver(engine)
	if err != nil {
		return nil, err
	}
	plan, err := resolver.Resolve(version)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "could not resolve fetch plan", err)
	}

	switch plan.Kind {
	case loader.PlanDirectJar:
		dest := filepath.Join(dir, strings.ToLower(string(engine))+"-server.jar")
		if err := in.downloadTo(plan.URL, dest, engine, version, progress); err != nil {
			return nil, err
		}
		return &Descriptor{Kind: KindJar, Path: dest}, nil

	case loader.PlanInstallerRun:
		return in.runInstaller(dir, plan, engine, version, progress)

	case loader.PlanBuildFromSource:
		return in.buildFromSource(dir, engine, version, progress)

	default:
		return nil, apperr.New(apperr.Internal, fmt.Sprintf("unknown fetch plan kind %q", plan.Kind))
	}
}

// buildFromSource delegates to the engine's own loader.Load (Spigot/Bukkit
// compile-from-source via BuildTools) rather than reimplementing it here,
// then re-runs Detect to pick up whatever jar the build produced.
func (in *Installer) buildFromSource(dir string, engine domain.EngineFamily, version string, progress func(domain.ProgressEvent)) (*Descriptor, error) {
	l, err := loader.GetSourceBuilder(engine)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			if progress != nil {
				progress(ev)
			}
		}
	}()

	err = l.Load(version, dir, ch)
	close(ch)
	<-done
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "build from source failed", err)
	}

	if d, ok := Detect(dir); ok {
		return d, nil
	}
	return nil, apperr.New(apperr.Internal, "build completed but no runnable artifact was found")
}

// runInstaller downloads plan's installer jar and executes it with its
// declared argv, time-boxed at installerTimeout. On success it re-detects
// the directory and removes the installer jar; on failure it surfaces the
// tail of the installer's stderr.
func (in *Installer) runInstaller(dir string, plan loader.FetchPlan, engine domain.EngineFamily, version string, progress func(domain.ProgressEvent)) (*Descriptor, error) {
	installerPath := filepath.Join(dir, "installer.jar")
	if progress != nil {
		progress(domain.ProgressEvent{Message: "downloading installer"})
	}
	if err := in.downloadTo(plan.URL, installerPath, engine, version, progress); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), installerTimeout)
	defer cancel()

	argv := plan.Argv
	if len(argv) == 0 {
		argv = []string{"-jar", "installer.jar"}
	}
	cmd := exec.CommandContext(ctx, "java", argv...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if progress != nil {
		progress(domain.ProgressEvent{Message: "running installer"})
	}
	if err := cmd.Run(); err != nil {
		return nil, apperr.New(apperr.InstallerFailed, tailLines(stderr.String(), 20))
	}

	d, ok := Detect(dir)
	if !ok {
		return nil, apperr.New(apperr.InstallerFailed, "installer exited successfully but produced no runnable artifact")
	}
	if err := os.Remove(installerPath); err != nil && in.log != nil {
		in.log.Warnw("could not remove installer jar", "path", installerPath, "error", err)
	}
	return d, nil
}

// downloadTo fetches url into dest, short-circuiting through the content
// cache when (engine, version) was already downloaded once.
func (in *Installer) downloadTo(url, dest string, engine domain.EngineFamily, version string, progress func(domain.ProgressEvent)) error {
	if in.Cache != nil {
		if hash, ok := in.Cache.Lookup(string(engine), version); ok {
			return in.copyFromCache(hash, dest)
		}
	}

	resp, err := http.Get(url)
	if err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, "artifact download failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apperr.New(apperr.UpstreamUnavailable, fmt.Sprintf("artifact download failed: status %d", resp.StatusCode))
	}

	var body io.Reader = resp.Body
	if progress != nil {
		body = &progressCounter{r: resp.Body, total: resp.ContentLength, onTick: progress}
	}

	if in.Cache == nil {
		out, err := os.Create(dest)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, body)
		return err
	}

	hash, size, err := in.Cache.Put(body)
	if err != nil {
		return err
	}
	if err := in.Cache.Remember(string(engine), version, hash, size); err != nil && in.log != nil {
		in.log.Warnw("could not remember cache entry", "engine", engine, "version", version, "error", err)
	}
	return in.copyFromCache(hash, dest)
}

func (in *Installer) copyFromCache(hash, dest string) error {
	src, err := in.Cache.Open(hash)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

// progressCounter wraps a download body, invoking onTick with a running
// percentage once the total size is known.
type progressCounter struct {
	r      io.Reader
	total  int64
	read   int64
	onTick func(domain.ProgressEvent)
}

func (p *progressCounter) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		p.onTick(domain.ProgressEvent{
			Message:      "downloading artifact",
			Progress:     float64(p.read) / float64(p.total) * 100,
			CurrentBytes: p.read,
			TotalBytes:   p.total,
		})
	}
	return n, err
}

// tailLines returns at most n trailing lines of s, used to surface a bounded
// chunk of an installer's stderr instead of an unbounded blob.
func tailLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return "installer exited with a non-zero status"
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
