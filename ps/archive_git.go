package ps

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
	"github.com/golang/glog"
	"github.com/nickyhof/BatchDB/core"
)

// AuthType defines the type of authentication
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// RemoteAuth holds authentication configuration for pushing archives
type RemoteAuth struct {
	Type       AuthType
	Token      string // For token auth
	KeyPath    string // For SSH key auth
	Passphrase string // For SSH key with passphrase
	Username   string // For basic auth
	Password   string // For basic auth
}

// GitConfig configures the git archive repository.
type GitConfig struct {
	// RemoteURL, when set, is pushed to after every archive commit.
	RemoteURL string
	Auth      *RemoteAuth
	Author    core.Identity
}

// GitArchiver commits a copy of each deleted storage file into a git
// repository, one commit per archive.
type GitArchiver struct {
	repo   *git.Repository
	config GitConfig
	mu     sync.Mutex
	now    func() time.Time
}

// getAuthMethod converts RemoteAuth to go-git's AuthMethod
func (auth *RemoteAuth) getAuthMethod() (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}

	switch auth.Type {
	case AuthTypeNone, "":
		return nil, nil

	case AuthTypeToken:
		// Token auth uses username "git" or any non-empty string
		return &http.BasicAuth{
			Username: "git",
			Password: auth.Token,
		}, nil

	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			// Default to ~/.ssh/id_rsa
			home, _ := os.UserHomeDir()
			keyPath = home + "/.ssh/id_rsa"
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)

	case AuthTypeBasic:
		return &http.BasicAuth{
			Username: auth.Username,
			Password: auth.Password,
		}, nil

	default:
		return nil, fmt.Errorf("unknown auth type: %s", auth.Type)
	}
}

// NewGitArchiver opens the archive repository in dir, initializing it when
// it does not exist yet.
func NewGitArchiver(dir string, cfg GitConfig) (*GitArchiver, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(dir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := os.Stat(fs.Root()); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive repository: %w", err)
	}

	return newGitArchiver(repo, cfg)
}

// NewMemoryGitArchiver keeps archives in an in-memory repository.
func NewMemoryGitArchiver(cfg GitConfig) (*GitArchiver, error) {
	repo, err := git.Init(memory.NewStorage(), git.WithWorkTree(memfs.New()))
	if err != nil {
		return nil, err
	}
	return newGitArchiver(repo, cfg)
}

func newGitArchiver(repo *git.Repository, cfg GitConfig) (*GitArchiver, error) {
	if cfg.Author.Name == "" && cfg.Author.Email == "" {
		cfg.Author = core.Identity{Name: "BatchDB", Email: "archive@batchdb.local"}
	}

	if cfg.RemoteURL != "" {
		_, err := repo.Remote("origin")
		if err == git.ErrRemoteNotFound {
			_, err = repo.CreateRemote(&config.RemoteConfig{
				Name: "origin",
				URLs: []string{cfg.RemoteURL},
			})
		}
		if err != nil {
			return nil, fmt.Errorf("failed to add remote 'origin': %w", err)
		}
	}

	return &GitArchiver{
		repo:   repo,
		config: cfg,
		now:    time.Now,
	}, nil
}

// Repository exposes the archive repository for inspection.
func (archiver *GitArchiver) Repository() *git.Repository {
	return archiver.repo
}

func (archiver *GitArchiver) Archive(ctx context.Context, name string, path string) error {
	archiver.mu.Lock()
	defer archiver.mu.Unlock()

	wt, err := archiver.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	when := archiver.now()
	key := archiveKey(name, when)
	if err := writeWorktreeFile(wt.Filesystem, key, path); err != nil {
		return fmt.Errorf("failed to copy %s into archive: %w", name, err)
	}

	if _, err := wt.Add(key); err != nil {
		return fmt.Errorf("failed to stage archive: %w", err)
	}

	hash, err := wt.Commit(fmt.Sprintf("Archive %s", name), &git.CommitOptions{
		Author: &object.Signature{
			Name:  archiver.config.Author.Name,
			Email: archiver.config.Author.Email,
			When:  when,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}

	glog.Infof("GitArchiver.Archive: Archived %s as %s (%s)", name, key, hash)

	if archiver.config.RemoteURL != "" {
		return archiver.push(ctx)
	}
	return nil
}

func (archiver *GitArchiver) push(ctx context.Context) error {
	authMethod, err := archiver.config.Auth.getAuthMethod()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	head, err := archiver.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get current branch: %w", err)
	}
	refSpec := config.RefSpec(fmt.Sprintf("%s:%s", head.Name(), head.Name()))

	err = archiver.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       authMethod,
	})
	if err == git.NoErrAlreadyUpToDate {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to push archive: %w", err)
	}
	return nil
}

func writeWorktreeFile(fs billy.Filesystem, key string, path string) error {
	f, err := fs.Create(key)
	if err != nil {
		return err
	}
	if err := copyFile(f, path); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
