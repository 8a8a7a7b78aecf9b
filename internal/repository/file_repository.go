package repository

import (
	"context"
	"errors"
	"path/filepath"

	"msgcounter/internal/domain"
	"msgcounter/pkg/logger"
)

// FilePaths locates the three snapshot files
type FilePaths struct {
	Counts  string // JSON map of total counts
	Backup  string // line backup of total counts
	Delayed string // line backup of delayed counts
}

// ResolveFilePaths joins relative names onto dir
func ResolveFilePaths(dir, counts, backup, delayed string) FilePaths {
	join := func(name string) string {
		if filepath.IsAbs(name) || dir == "" {
			return name
		}
		return filepath.Join(dir, name)
	}
	return FilePaths{Counts: join(counts), Backup: join(backup), Delayed: join(delayed)}
}

// fileRepository persists counters as flat files
type fileRepository struct {
	paths  FilePaths
	logger *logger.Logger
}

// NewFileRepository creates a new file-backed counts repository
func NewFileRepository(paths FilePaths, logger *logger.Logger) CountsRepository {
	return &fileRepository{
		paths:  paths,
		logger: logger.Named("file_repository"),
	}
}

func (r *fileRepository) Name() string {
	return "file"
}

// Load reads totals from the JSON file, falling back to the line backup when
// the JSON is missing or corrupt, and delayed counts from their line backup.
// Problems are logged; the returned snapshot is never nil.
func (r *fileRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.NewSnapshot(), err
	}

	snap := domain.NewSnapshot()

	total, err := LoadCounts(r.paths.Counts)
	switch {
	case err == nil:
		snap.Total = total
		r.logger.WithFields(map[string]interface{}{
			"path":  r.paths.Counts,
			"users": len(total),
		}).Info("Loaded total message counts")
	case errors.Is(err, ErrSnapshotNotFound):
		r.logger.WithField("path", r.paths.Counts).Info("No total counts file found")
		snap.Total = r.loadLines(r.paths.Backup, "total backup")
	default:
		r.logger.WithError(err).WithField("path", r.paths.Counts).
			Warn("Failed to read total counts, trying line backup")
		snap.Total = r.loadLines(r.paths.Backup, "total backup")
	}

	snap.Delayed = r.loadLines(r.paths.Delayed, "delayed")

	return snap, nil
}

// loadLines reads a line backup, logging skipped records. A read error keeps
// whatever records were parsed before it.
func (r *fileRepository) loadLines(path, label string) map[string]int64 {
	log := r.logger.WithFields(map[string]interface{}{"path": path, "file": label})

	counts, skipped, err := LoadLineBackup(path)
	for _, le := range skipped {
		log.WithFields(map[string]interface{}{
			"line": le.Line,
			"text": le.Text,
		}).WithError(le.Err).Warn("Skipping malformed line")
	}

	switch {
	case err == nil:
		log.WithField("users", len(counts)).Info("Loaded line backup")
		return counts
	case errors.Is(err, ErrSnapshotNotFound):
		log.Info("No line backup found, starting empty")
	default:
		log.WithError(err).WithField("users", len(counts)).Warn("Failed to read whole line backup, keeping records read so far")
		if counts != nil {
			return counts
		}
	}
	return map[string]int64{}
}

// Save writes all three files, attempting each even if an earlier one fails
func (r *fileRepository) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		snap = domain.NewSnapshot()
	}

	var errs []error

	if err := SaveStructured(snap.Total, r.paths.Counts); err != nil {
		errs = append(errs, err)
	} else {
		r.logger.WithField("path", r.paths.Counts).Debug("Saved total message counts")
	}

	if err := SaveLineBackup(snap.Total, r.paths.Backup); err != nil {
		errs = append(errs, err)
	} else {
		r.logger.WithField("path", r.paths.Backup).Debug("Saved total counts backup")
	}

	if err := SaveLineBackup(snap.Delayed, r.paths.Delayed); err != nil {
		errs = append(errs, err)
	} else {
		r.logger.WithField("path", r.paths.Delayed).Debug("Saved delayed counts backup")
	}

	return errors.Join(errs...)
}
