package BatchDB

import (
	"context"

	"github.com/golang/glog"
	"github.com/nickyhof/BatchDB/ps"
	"github.com/nickyhof/BatchDB/runner"
	"github.com/pkg/errors"
)

type Config struct {
	// Driver selects the storage engine: "sqlite3" (default) or "duckdb".
	Driver string
	// BaseDir holds one storage file per database name.
	BaseDir string

	// ArchiveTarget is "s3://bucket/prefix", "git://dir" or empty to
	// delete without archiving.
	ArchiveTarget string
	Archive       ps.ArchiveConfig

	LegacyNullAsEmptyText bool
}

// Instance is one application session: the engine and the registry of
// open databases. Shut it down to release every handle.
type Instance struct {
	*runner.Registry
	Config Config
	Engine ps.Engine
}

func Open(ctx context.Context, config Config) (*Instance, error) {
	engine, err := ps.NewEngine(config.Driver)
	if err != nil {
		return nil, errors.Wrapf(err, "Open: ")
	}

	archiver, err := ps.NewArchiver(ctx, config.ArchiveTarget, config.Archive)
	if err != nil {
		return nil, errors.Wrapf(err, "Open: Problem setting up archive %s", config.ArchiveTarget)
	}

	glog.Infof("Open: Using %s storage in %s", engine.Dialect().Name, config.BaseDir)
	return New(ctx, engine, config, archiver), nil
}

// New builds an Instance over an existing engine.
func New(ctx context.Context, engine ps.Engine, config Config, archiver ps.Archiver) *Instance {
	registry := runner.NewRegistry(ctx, engine, ps.NewResolver(config.BaseDir), runner.Config{
		Archiver:              archiver,
		LegacyNullAsEmptyText: config.LegacyNullAsEmptyText,
	})
	return &Instance{
		Registry: registry,
		Config:   config,
		Engine:   engine,
	}
}

// Shutdown closes every open database.
func (instance *Instance) Shutdown(ctx context.Context) error {
	return instance.Registry.CloseAll(ctx)
}
