// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package blob

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/gorse-io/bookrec/common/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// POSIX reads artifacts from a local directory, typically a volume mounted into the container.
type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

func (p *POSIX) Open(_ context.Context, name string) (io.ReadCloser, error) {
	file, err := os.Open(path.Join(p.dir, name))
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("artifact %s in %s", name, p.dir)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return file, nil
}

// Create writes to a temporary file which is renamed to the artifact name on Close,
// so a concurrent Load never observes a partial artifact.
func (p *POSIX) Create(name string) (io.WriteCloser, chan struct{}, error) {
	fullPath := path.Join(p.dir, name)
	if err := os.MkdirAll(path.Dir(fullPath), os.ModePerm); err != nil {
		return nil, nil, errors.Trace(err)
	}
	file, err := os.CreateTemp(path.Dir(fullPath), "."+path.Base(fullPath)+".*")
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	done := make(chan struct{})
	pr, pw := io.Pipe()
	go func() {
		defer close(done)
		defer os.Remove(file.Name())
		if _, err := io.Copy(file, pr); err != nil {
			_ = file.Close()
			log.Logger().Error("failed to write artifact", zap.String("name", fullPath), zap.Error(err))
			return
		}
		if err := file.Close(); err != nil {
			log.Logger().Error("failed to close artifact", zap.String("name", fullPath), zap.Error(err))
			return
		}
		if err := os.Chmod(file.Name(), 0o644); err != nil {
			log.Logger().Warn("failed to chmod artifact", zap.String("name", fullPath), zap.Error(err))
		}
		if err := os.Rename(file.Name(), fullPath); err != nil {
			log.Logger().Error("failed to rename artifact", zap.String("name", fullPath), zap.Error(err))
		}
	}()
	return pw, done, nil
}

// List returns regular files in the directory. Hidden files, including in-flight writes, are skipped.
func (p *POSIX) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Annotatef(err, "failed to list %s", p.dir)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
