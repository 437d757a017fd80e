package bootstrap

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
)

//go:embed resources
var resources embed.FS

// Homes personalized besides the selected users
const (
	RootHome = "/root"
	SkelHome = "/etc/skel"
)

var bashMoved = []string{"aliases", "history", "logout"}

// Personalize installs the bash and vim configuration in home. The root
// home gets the root prompt and its vim plugins installed right away.
func (b *Bootstrap) Personalize(ctx context.Context, home string) error {
	if err := b.bash(home); err != nil {
		return err
	}
	if err := b.vim(ctx, home); err != nil {
		return err
	}
	b.logger.Info().Str("home", home).Msg("Personalization applied")
	return nil
}

func (b *Bootstrap) bash(home string) error {
	cfg := filepath.Join(home, ".config", "bash")
	if err := b.fs.MkdirAll(cfg, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", cfg)
	}
	if err := b.writeResource("resources/bash/profile", filepath.Join(home, ".profile")); err != nil {
		return err
	}
	if err := b.removeFile(filepath.Join(home, ".bashrc")); err != nil {
		return err
	}

	for _, name := range bashMoved {
		old := filepath.Join(home, ".bash_"+name)
		if _, err := b.fs.Lstat(old); err != nil {
			continue
		}
		if err := b.fs.Rename(old, filepath.Join(cfg, name)); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "cannot move %s", old)
		}
	}

	rc := "resources/bash/bashrc_user"
	if home == RootHome {
		rc = "resources/bash/bashrc_root"
	}
	return b.writeResource(rc, filepath.Join(cfg, "bashrc"))
}

func (b *Bootstrap) vim(ctx context.Context, home string) error {
	for _, old := range []string{".vimrc", ".viminfo"} {
		if err := b.removeFile(filepath.Join(home, old)); err != nil {
			return err
		}
	}

	dir := filepath.Join(home, ".vim")
	err := fs.WalkDir(resources, "resources/vim", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel("resources/vim", p)
		target := filepath.Join(dir, rel)
		if d.IsDir() {
			return b.fs.MkdirAll(target, 0755)
		}
		return b.writeResource(p, target)
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot install vim configuration in %s", dir)
	}

	plug := filepath.Join(dir, "autoload", "plug.vim")
	if err := b.fetch.Download(ctx, b.cfg.VimPlugURL, plug); err != nil {
		return err
	}

	if home == RootHome {
		if _, err := b.runner.Run(ctx, execx.Live("vim", "+PlugInstall", "+qall")); err != nil {
			b.printer.Warn("Vim plugins not installed: %s", execx.Describe(err))
		}
	}
	return nil
}

// writeResource copies an embedded resource to dst
func (b *Bootstrap) writeResource(name, dst string) error {
	data, err := resources.ReadFile(path.Clean(name))
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "missing resource %s", name)
	}
	if err := b.fs.WriteFile(dst, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", dst)
	}
	return nil
}

func (b *Bootstrap) removeFile(p string) error {
	if err := b.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot remove %s", p)
	}
	return nil
}
