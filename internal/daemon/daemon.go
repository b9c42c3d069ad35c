// Package daemon implements the local store daemon: it resolves catalog
// entries to system packages, runs install and remove jobs in the background
// and remembers what it installed.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/appshelf/internal/domain"
	"github.com/mmcdole/appshelf/internal/store"
)

// ErrUnsupportedPackage is returned when an entry has no package URI with a supported scheme
var ErrUnsupportedPackage = errors.New("no supported package uri")

// ErrBusy is returned when an entry already has an active job
var ErrBusy = errors.New("entry has an active job")

// Runner executes package manager commands
type Runner interface {
	Install(ctx context.Context, pkg string) error
	Remove(ctx context.Context, pkg string) error
	Open(ctx context.Context, app, pkg string) error
	// Show returns the package description in dpkg stanza format
	Show(ctx context.Context, pkg string) ([]byte, error)
}

// Config holds daemon settings
type Config struct {
	Schemes []string // Package URI schemes this host can install, e.g. "deb"
	Version string
}

// Daemon answers the native bridge for one host
type Daemon struct {
	store   *store.PackageStore
	runner  Runner
	schemes []string
	version string
	logger  *slog.Logger

	mu sync.Mutex // Serializes job admission

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// New creates a daemon. Jobs left over from a previous run are discarded.
func New(cfg Config, st *store.PackageStore, runner Runner, logger *slog.Logger) (*Daemon, error) {
	if st == nil || runner == nil {
		return nil, errors.New("daemon requires a store and a runner")
	}
	if logger == nil {
		logger = slog.Default()
	}
	schemes := cfg.Schemes
	if len(schemes) == 0 {
		schemes = []string{"deb"}
	}

	if err := st.ClearJobs(); err != nil {
		return nil, fmt.Errorf("clear stale jobs: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		store:   st,
		runner:  runner,
		schemes: schemes,
		version: cfg.Version,
		logger:  logger.With("component", "daemon"),
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}, nil
}

// Close cancels running jobs and waits for them to stop
func (d *Daemon) Close() {
	d.cancel()
	d.wg.Wait()
}

// Version returns the daemon version
func (d *Daemon) Version() string { return d.version }

// target is a resolved package for one entry
type target struct {
	app string
	pkg string
	uri string
}

// resolve picks the first package URI whose scheme this host supports
func (d *Daemon) resolve(q domain.PackageQuery) (target, bool) {
	for _, p := range q.Packages {
		scheme, name, ok := strings.Cut(p.PackageURI, ":")
		if !ok || name == "" {
			continue
		}
		if slices.Contains(d.schemes, scheme) {
			return target{app: q.Name, pkg: name, uri: p.PackageURI}, true
		}
	}
	return target{}, false
}

// QueryPackages reports installed entries with their recorded version and
// installable entries with their resolved package. Other entries are absent.
func (d *Daemon) QueryPackages(_ context.Context, queries []domain.PackageQuery) (map[string]domain.Package, error) {
	out := make(map[string]domain.Package, len(queries))
	for _, q := range queries {
		if rec, ok := d.store.GetRecord(q.Name); ok {
			out[q.Name] = domain.Package{
				AppName:      q.Name,
				PackageName:  rec.PackageName,
				PackageURI:   rec.PackageURI,
				LocalVersion: rec.Version,
				Installed:    true,
			}
			continue
		}
		if t, ok := d.resolve(q); ok {
			out[q.Name] = domain.Package{
				AppName:     q.Name,
				PackageName: t.pkg,
				PackageURI:  t.uri,
			}
		}
	}
	return out, nil
}

// Installed reports whether the daemon installed name
func (d *Daemon) Installed(_ context.Context, name string) (bool, error) {
	_, ok := d.store.GetRecord(name)
	return ok, nil
}

// JobByName returns the active job touching name, or nil
func (d *Daemon) JobByName(_ context.Context, name string) (*domain.Job, error) {
	jobs, err := d.store.Jobs()
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.Active() && j.Touches(name) {
			return &j, nil
		}
	}
	return nil, nil
}

// Jobs returns every job the daemon knows about, including failed ones
func (d *Daemon) Jobs(context.Context) ([]domain.Job, error) {
	return d.store.Jobs()
}

// Install queues an install job for the entries
func (d *Daemon) Install(_ context.Context, queries []domain.PackageQuery) (domain.Job, error) {
	return d.submit(domain.JobInstall, queries)
}

// Remove queues a remove job for the entries
func (d *Daemon) Remove(_ context.Context, queries []domain.PackageQuery) (domain.Job, error) {
	return d.submit(domain.JobRemove, queries)
}

func (d *Daemon) submit(kind domain.JobType, queries []domain.PackageQuery) (domain.Job, error) {
	names := make([]string, len(queries))
	for i, q := range queries {
		names[i] = q.Name
	}
	if len(queries) == 0 {
		return domain.Job{}, &domain.OpError{Op: string(kind), Err: errors.New("no entries")}
	}

	targets := make([]target, 0, len(queries))
	for _, q := range queries {
		t, ok := d.target(kind, q)
		if !ok {
			return domain.Job{}, &domain.OpError{Op: string(kind), Names: []string{q.Name}, Err: ErrUnsupportedPackage}
		}
		targets = append(targets, t)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ctx.Err(); err != nil {
		return domain.Job{}, &domain.OpError{Op: string(kind), Names: names, Err: err}
	}
	for _, name := range names {
		job, err := d.JobByName(d.ctx, name)
		if err != nil {
			return domain.Job{}, err
		}
		if job != nil {
			return domain.Job{}, &domain.OpError{Op: string(kind), Names: []string{name}, Err: ErrBusy}
		}
	}

	job := domain.Job{
		ID:        uuid.NewString(),
		Type:      kind,
		Names:     names,
		Status:    domain.JobQueued,
		CreatedAt: d.now(),
	}
	if err := d.store.SaveJob(job); err != nil {
		return domain.Job{}, fmt.Errorf("save job: %w", err)
	}

	d.logger.Info("job queued", "id", job.ID, "type", kind, "names", names)
	d.wg.Add(1)
	go d.run(job, targets)
	return job, nil
}

// target resolves what a job acts on. Removal prefers the recorded package.
func (d *Daemon) target(kind domain.JobType, q domain.PackageQuery) (target, bool) {
	if kind == domain.JobRemove {
		if rec, ok := d.store.GetRecord(q.Name); ok && rec.PackageName != "" {
			return target{app: q.Name, pkg: rec.PackageName, uri: rec.PackageURI}, true
		}
	}
	return d.resolve(q)
}

func (d *Daemon) run(job domain.Job, targets []target) {
	defer d.wg.Done()

	job.Status = domain.JobRunning
	d.saveJob(job)

	for i, t := range targets {
		if err := d.apply(job.Type, t); err != nil {
			job.Status = domain.JobFailed
			job.Error = err.Error()
			d.saveJob(job)
			d.logger.Error("job failed", "id", job.ID, "app", t.app, "error", err)
			return
		}
		job.Progress = float64(i+1) / float64(len(targets))
		d.saveJob(job)
	}

	if err := d.store.DeleteJob(job.ID); err != nil {
		d.logger.Warn("failed to delete job", "id", job.ID, "error", err)
	}
	d.logger.Info("job finished", "id", job.ID, "type", job.Type, "names", job.Names)
}

func (d *Daemon) apply(kind domain.JobType, t target) error {
	switch kind {
	case domain.JobInstall:
		if err := d.runner.Install(d.ctx, t.pkg); err != nil {
			return err
		}
		var version string
		if out, err := d.runner.Show(d.ctx, t.pkg); err == nil {
			version = candidateVersion(out)
		}
		return d.store.SaveRecord(store.Record{
			AppName:     t.app,
			PackageName: t.pkg,
			PackageURI:  t.uri,
			Version:     version,
			InstalledAt: d.now(),
		})
	case domain.JobRemove:
		if err := d.runner.Remove(d.ctx, t.pkg); err != nil {
			return err
		}
		return d.store.DeleteRecord(t.app)
	default:
		return fmt.Errorf("unknown job type %q", kind)
	}
}

func (d *Daemon) saveJob(job domain.Job) {
	if err := d.store.SaveJob(job); err != nil {
		d.logger.Warn("failed to save job", "id", job.ID, "error", err)
	}
}

// Open launches an installed entry
func (d *Daemon) Open(ctx context.Context, q domain.PackageQuery) error {
	rec, ok := d.store.GetRecord(q.Name)
	if !ok {
		return &domain.OpError{Op: "open", Names: []string{q.Name}, Err: domain.ErrSoftwareNotFound}
	}
	d.logger.Info("opening app", "app", q.Name, "package", rec.PackageName)
	if err := d.runner.Open(ctx, q.Name, rec.PackageName); err != nil {
		return &domain.OpError{Op: "open", Names: []string{q.Name}, Err: err}
	}
	return nil
}

// DownloadSize sums the download size of every entry not yet installed
func (d *Daemon) DownloadSize(ctx context.Context, queries []domain.PackageQuery) (int64, error) {
	var total int64
	for _, q := range queries {
		if _, installed := d.store.GetRecord(q.Name); installed {
			continue
		}
		t, ok := d.resolve(q)
		if !ok {
			return 0, &domain.OpError{Op: "size", Names: []string{q.Name}, Err: ErrUnsupportedPackage}
		}
		out, err := d.runner.Show(ctx, t.pkg)
		if err != nil {
			return 0, &domain.OpError{Op: "size", Names: []string{q.Name}, Err: err}
		}
		size, err := downloadSize(out)
		if err != nil {
			return 0, &domain.OpError{Op: "size", Names: []string{q.Name}, Err: err}
		}
		total += size
	}
	return total, nil
}
